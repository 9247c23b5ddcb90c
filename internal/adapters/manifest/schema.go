package manifest

// tomlManifest mirrors Scarb.toml. Fields accepting either a value or
// `{ workspace = true }` are decoded as any and resolved during conversion.
type tomlManifest struct {
	Package         *tomlPackage              `toml:"package"`
	Workspace       *tomlWorkspace            `toml:"workspace"`
	Dependencies    map[string]any            `toml:"dependencies"`
	DevDependencies map[string]any            `toml:"dev-dependencies"`
	Lib             map[string]any            `toml:"lib"`
	CairoPlugin     map[string]any            `toml:"cairo-plugin"`
	Executable      []map[string]any          `toml:"executable"`
	Test            []map[string]any          `toml:"test"`
	Target          map[string]any            `toml:"target"`
	Cairo           map[string]any            `toml:"cairo"`
	Features        map[string][]string       `toml:"features"`
	Profile         map[string]tomlProfile    `toml:"profile"`
	Patch           map[string]map[string]any `toml:"patch"`
	Security        *tomlSecurity             `toml:"security"`
	Scripts         map[string]any            `toml:"scripts"`
	Tool            map[string]any            `toml:"tool"`
}

type tomlPackage struct {
	Name                 string            `toml:"name"`
	Version              any               `toml:"version"`
	Edition              any               `toml:"edition"`
	Authors              any               `toml:"authors"`
	Description          any               `toml:"description"`
	Documentation        any               `toml:"documentation"`
	Homepage             any               `toml:"homepage"`
	Keywords             any               `toml:"keywords"`
	License              any               `toml:"license"`
	LicenseFile          any               `toml:"license-file"`
	Readme               any               `toml:"readme"`
	Repository           any               `toml:"repository"`
	CairoVersion         any               `toml:"cairo-version"`
	Urls                 map[string]string `toml:"urls"`
	Metadata             map[string]any    `toml:"metadata"`
	ExperimentalFeatures []string          `toml:"experimental-features"`
	NoCore               bool              `toml:"no-core"`
}

type tomlWorkspace struct {
	Members      []string          `toml:"members"`
	Package      map[string]any    `toml:"package"`
	Dependencies map[string]any    `toml:"dependencies"`
	Scripts      map[string]string `toml:"scripts"`
	Tool         map[string]any    `toml:"tool"`
}

type tomlProfile struct {
	Inherits string         `toml:"inherits"`
	Cairo    map[string]any `toml:"cairo"`
	Tool     map[string]any `toml:"tool"`
}

type tomlSecurity struct {
	RequireAudits bool     `toml:"require-audits"`
	AllowNoAudits []string `toml:"allow-no-audits"`
}

// tomlDependency is the detailed form of a dependency entry.
type tomlDependency struct {
	Version         string
	Path            string
	Git             string
	Branch          string
	Tag             string
	Rev             string
	Registry        string
	Features        []string
	DefaultFeatures *bool
	Workspace       bool
}
