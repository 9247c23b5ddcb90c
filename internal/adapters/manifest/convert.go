package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

var featureNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// workspaceContext gives member manifests access to inheritable workspace fields.
type workspaceContext struct {
	manifestPath string
	toml         *tomlWorkspace
}

func (w *workspaceContext) root() string {
	return filepath.Dir(w.manifestPath)
}

func (w *workspaceContext) packageFields() map[string]any {
	if w == nil || w.toml == nil {
		return nil
	}
	return w.toml.Package
}

type converter struct {
	path string
	root string
	ws   *workspaceContext
}

// toPackage converts a decoded manifest into a domain package served by source.
func toPackage(m *tomlManifest, path string, source domain.SourceID, ws *workspaceContext) (*domain.Package, error) {
	c := &converter{path: path, root: filepath.Dir(path), ws: ws}
	if m.Package == nil {
		return nil, zerr.Wrap(domain.ErrManifestInvalid, "no `package` section found")
	}
	p := m.Package

	name, err := domain.NewPackageName(p.Name)
	if err != nil {
		return nil, err
	}

	rawVersion, err := c.inheritString("version", p.Version)
	if err != nil {
		return nil, err
	}
	if rawVersion == "" {
		return nil, zerr.Wrap(domain.ErrManifestInvalid, "missing field `version` in [package]")
	}
	version, err := domain.ParseVersion(rawVersion)
	if err != nil {
		return nil, err
	}

	if source.IsZero() || source.IsPath() {
		if source, err = domain.NewPathSourceID(c.root); err != nil {
			return nil, err
		}
	}
	id := domain.NewPackageID(name, version, source)

	deps, err := c.dependencies(m.Dependencies, domain.NormalDep())
	if err != nil {
		return nil, err
	}
	devDeps, err := c.dependencies(m.DevDependencies, domain.DevDep())
	if err != nil {
		return nil, err
	}

	rawEdition, err := c.inheritString("edition", p.Edition)
	if err != nil {
		return nil, err
	}
	edition, err := domain.ParseEdition(rawEdition)
	if err != nil {
		return nil, err
	}

	metadata, err := c.metadata(p)
	if err != nil {
		return nil, err
	}

	targets, err := collectTargets(m, string(name), c.root)
	if err != nil {
		return nil, err
	}

	compiler, err := compilerPatch(m.Cairo)
	if err != nil {
		return nil, err
	}

	features, err := validateFeatures(m.Features)
	if err != nil {
		return nil, err
	}

	tool, err := c.tool(m.Tool)
	if err != nil {
		return nil, err
	}

	scripts, err := c.scripts(m.Scripts)
	if err != nil {
		return nil, err
	}

	manifest := &domain.Manifest{
		Summary: domain.Summary{
			PackageID:    id,
			Dependencies: append(deps, devDeps...),
			NoCore:       p.NoCore,
		},
		Targets:              targets,
		Edition:              edition,
		Metadata:             metadata,
		Compiler:             compiler,
		Features:             features,
		Tool:                 tool,
		ExperimentalFeatures: slices.Sorted(slices.Values(p.ExperimentalFeatures)),
		Scripts:              scripts,
		Security:             securityOf(m.Security),
	}
	return domain.NewPackage(id, c.path, manifest), nil
}

func (c *converter) dependencies(table map[string]any, kind domain.DepKind) ([]domain.ManifestDependency, error) {
	var out []domain.ManifestDependency
	for _, key := range sortedKeys(table) {
		name, err := domain.NewPackageName(key)
		if err != nil {
			return nil, err
		}
		d, err := parseDependency(key, table[key])
		if err != nil {
			return nil, err
		}

		baseDir := c.root
		if d.Workspace {
			inherited, err := c.workspaceDependency(key)
			if err != nil {
				return nil, err
			}
			d = inherited.inherit(d)
			baseDir = c.ws.root()
		}

		dep, err := d.toManifestDependency(name, baseDir, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

func (c *converter) workspaceDependency(name string) (tomlDependency, error) {
	if c.ws == nil || c.ws.toml == nil {
		return tomlDependency{}, zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, "no workspace found for dependency inheritance"), "dependency", name)
	}
	raw, ok := c.ws.toml.Dependencies[name]
	if !ok {
		return tomlDependency{}, zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, fmt.Sprintf("dependency `%s` not found in workspace", name)), "dependency", name)
	}
	d, err := parseDependency(name, raw)
	if err != nil {
		return tomlDependency{}, err
	}
	if d.Workspace {
		return tomlDependency{}, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "workspace dependencies cannot inherit from the workspace"), "dependency", name)
	}
	return d, nil
}

func (c *converter) inherited(field string, v any) (any, error) {
	if !isWorkspaceRef(v) {
		return v, nil
	}
	value, ok := c.ws.packageFields()[field]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, fmt.Sprintf("no `%s` field found in workspace definition", field)), "field", field)
	}
	return value, nil
}

func (c *converter) inheritString(field string, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	value, err := c.inherited(field, v)
	if err != nil {
		return "", err
	}
	s, err := asString(field, value)
	if err != nil {
		return "", zerr.Wrap(domain.ErrManifestInvalid, err.Error())
	}
	return s, nil
}

func (c *converter) inheritStrings(field string, v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	value, err := c.inherited(field, v)
	if err != nil {
		return nil, err
	}
	ss, err := asStrings(field, value)
	if err != nil {
		return nil, zerr.Wrap(domain.ErrManifestInvalid, err.Error())
	}
	return ss, nil
}

func (c *converter) metadata(p *tomlPackage) (domain.PackageMetadata, error) {
	md := domain.PackageMetadata{Urls: p.Urls, Custom: p.Metadata}
	var err error
	strs := []struct {
		field string
		raw   any
		dst   *string
	}{
		{"description", p.Description, &md.Description},
		{"documentation", p.Documentation, &md.Documentation},
		{"homepage", p.Homepage, &md.Homepage},
		{"license", p.License, &md.License},
		{"license-file", p.LicenseFile, &md.LicenseFile},
		{"readme", p.Readme, &md.Readme},
		{"repository", p.Repository, &md.Repository},
		{"cairo-version", p.CairoVersion, &md.CairoVersion},
	}
	for _, s := range strs {
		if *s.dst, err = c.inheritString(s.field, s.raw); err != nil {
			return md, err
		}
	}
	if md.Authors, err = c.inheritStrings("authors", p.Authors); err != nil {
		return md, err
	}
	if md.Keywords, err = c.inheritStrings("keywords", p.Keywords); err != nil {
		return md, err
	}
	if md.CairoVersion != "" {
		if _, err := domain.ParseVersionReq(md.CairoVersion); err != nil {
			return md, zerr.With(err, "field", "cairo-version")
		}
	}
	for _, rel := range []*string{&md.LicenseFile, &md.Readme} {
		if *rel != "" && !filepath.IsAbs(*rel) {
			*rel = filepath.Join(c.root, *rel)
		}
	}
	return md, nil
}

func (c *converter) tool(table map[string]any) (map[string]any, error) {
	if table == nil {
		return nil, nil
	}
	out := make(map[string]any, len(table))
	for name, value := range table {
		if isWorkspaceRef(value) {
			if c.ws == nil || c.ws.toml == nil || c.ws.toml.Tool[name] == nil {
				return nil, zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, fmt.Sprintf("tool `%s` not found in workspace tools", name)), "tool", name)
			}
			value = c.ws.toml.Tool[name]
		}
		out[name] = value
	}
	return out, nil
}

func (c *converter) scripts(table map[string]any) (map[string]string, error) {
	if table == nil {
		return nil, nil
	}
	out := make(map[string]string, len(table))
	for name, value := range table {
		if isWorkspaceRef(value) {
			var ok bool
			if c.ws != nil && c.ws.toml != nil {
				value, ok = c.ws.toml.Scripts[name]
			}
			if !ok {
				return nil, zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, fmt.Sprintf("script `%s` not found in workspace", name)), "script", name)
			}
		}
		s, err := asString("scripts."+name, value)
		if err != nil {
			return nil, zerr.Wrap(domain.ErrManifestInvalid, err.Error())
		}
		out[name] = s
	}
	return out, nil
}

// compilerPatch decodes a [cairo] table. Unknown keys are ignored.
func compilerPatch(table map[string]any) (domain.CompilerConfigPatch, error) {
	var p domain.CompilerConfigPatch
	bools := map[string]**bool{
		"sierra-replace-ids": &p.SierraReplaceIDs,
		"enable-gas":         &p.EnableGas,
		"panic-backtrace":    &p.PanicBacktrace,
		"unsafe-panic":       &p.UnsafePanic,
		"allow-warnings":     &p.AllowWarnings,
		"incremental":        &p.Incremental,
	}
	for key, dst := range bools {
		v, ok := table[key]
		if !ok {
			continue
		}
		b, err := asBool("cairo."+key, v)
		if err != nil {
			return p, zerr.Wrap(domain.ErrManifestInvalid, err.Error())
		}
		*dst = &b
	}
	if v, ok := table["inlining-strategy"]; ok {
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case int64:
			s = strconv.FormatInt(tv, 10)
		default:
			return p, zerr.Wrap(domain.ErrManifestInvalid, fmt.Sprintf("`cairo.inlining-strategy` must be a string or an integer, found %T", v))
		}
		p.InliningStrategy = &s
	}
	return p, nil
}

func validateFeatures(def map[string][]string) (domain.FeaturesDefinition, error) {
	if def == nil {
		return domain.FeaturesDefinition{}, nil
	}
	out := make(domain.FeaturesDefinition, len(def))
	for _, name := range sortedKeys(def) {
		if !featureNamePattern.MatchString(name) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "invalid feature name"), "feature", name)
		}
		for _, implied := range def[name] {
			if _, ok := def[implied]; !ok {
				return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid,
					fmt.Sprintf("feature `%s` is dependent on `%s` which is not defined", name, implied)), "feature", name)
			}
		}
		out[name] = slices.Clone(def[name])
	}
	return out, nil
}

func securityOf(s *tomlSecurity) domain.Security {
	if s == nil {
		return domain.Security{}
	}
	out := domain.Security{RequireAudits: s.RequireAudits}
	for _, n := range s.AllowNoAudits {
		out.AllowNoAudits = append(out.AllowNoAudits, domain.PackageName(n))
	}
	return out
}

func profileDefinitions(profiles map[string]tomlProfile) (map[string]domain.ProfileDefinition, error) {
	out := make(map[string]domain.ProfileDefinition, len(profiles))
	for _, name := range sortedKeys(profiles) {
		p := profiles[name]
		if !featureNamePattern.MatchString(name) {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "invalid profile name"), "profile", name)
		}
		switch p.Inherits {
		case "", domain.ProfileDev, domain.ProfileRelease:
		default:
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestInvalid,
				fmt.Sprintf("profile can inherit from `dev` or `release` only, found `%s`", p.Inherits)), "profile", name)
		}
		cairo, err := compilerPatch(p.Cairo)
		if err != nil {
			return nil, err
		}
		out[name] = domain.ProfileDefinition{Name: name, Inherits: p.Inherits, Cairo: cairo, Tool: p.Tool}
	}
	return out, nil
}
