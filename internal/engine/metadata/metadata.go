// Package metadata builds the machine readable description of a workspace printed by
// `scarb metadata`. The envelope is versioned; only domain.MetadataFormatVersion is produced.
package metadata

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options tune what Collect includes.
type Options struct {
	FormatVersion int
	// NoDeps limits packages to workspace members and omits compilation units.
	NoDeps bool
}

// Input is everything Collect reads. Resolved and Units may be nil when NoDeps is set.
type Input struct {
	Config    *domain.Config
	Workspace *domain.Workspace
	Resolved  *domain.ResolvedWorkspace
	Units     []domain.CompilationUnit
	AppExe    string
	Version   VersionInfo
}

// Metadata is the top level envelope.
type Metadata struct {
	Version          int                       `json:"version"`
	AppExe           string                    `json:"app_exe,omitempty"`
	AppVersionInfo   VersionInfo               `json:"app_version_info"`
	TargetDir        string                    `json:"target_dir,omitempty"`
	Workspace        WorkspaceMetadata         `json:"workspace"`
	Packages         []PackageMetadata         `json:"packages"`
	CompilationUnits []CompilationUnitMetadata `json:"compilation_units"`
	CurrentProfile   string                    `json:"current_profile"`
	Profiles         []string                  `json:"profiles"`
}

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version    string           `json:"version"`
	CommitInfo *CommitInfo      `json:"commit_info"`
	Cairo      CairoVersionInfo `json:"cairo"`
}

// CairoVersionInfo describes the Cairo language version the binary targets.
type CairoVersionInfo struct {
	Version    string      `json:"version"`
	CommitInfo *CommitInfo `json:"commit_info"`
}

// CommitInfo identifies the commit a binary was built from.
type CommitInfo struct {
	ShortCommitHash string `json:"short_commit_hash"`
	CommitHash      string `json:"commit_hash"`
	CommitDate      string `json:"commit_date,omitempty"`
}

// NewVersionInfo creates the version block from link-time build information.
// Commits that are empty or "none" produce no commit info.
func NewVersionInfo(version, commit, date, cairoVersion string) VersionInfo {
	info := VersionInfo{Version: version, Cairo: CairoVersionInfo{Version: cairoVersion}}
	if commit != "" && commit != "none" {
		short := commit
		if len(short) > 9 {
			short = short[:9]
		}
		if date == "unknown" {
			date = ""
		}
		info.CommitInfo = &CommitInfo{ShortCommitHash: short, CommitHash: commit, CommitDate: date}
	}
	return info
}

// WorkspaceMetadata describes the workspace.
type WorkspaceMetadata struct {
	ManifestPath string   `json:"manifest_path"`
	Root         string   `json:"root"`
	Members      []string `json:"members"`
}

// PackageMetadata describes one package of the resolved graph.
type PackageMetadata struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	Version              string               `json:"version"`
	Edition              string               `json:"edition"`
	Source               string               `json:"source"`
	ManifestPath         string               `json:"manifest_path"`
	Root                 string               `json:"root"`
	Dependencies         []DependencyMetadata `json:"dependencies"`
	Targets              []TargetMetadata     `json:"targets"`
	ManifestMetadata     ManifestMetadata     `json:"manifest_metadata"`
	ExperimentalFeatures []string             `json:"experimental_features"`
}

// ManifestMetadata holds the descriptive manifest fields and [tool] tables.
type ManifestMetadata struct {
	domain.PackageMetadata
	Tool map[string]any `json:"tool,omitempty"`
}

// DependencyMetadata is one declared dependency.
type DependencyMetadata struct {
	Name       string `json:"name"`
	VersionReq string `json:"version_req"`
	Source     string `json:"source"`
	Kind       string `json:"kind,omitempty"`
}

// TargetMetadata is one target of a package.
type TargetMetadata struct {
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	SourcePath string         `json:"source_path"`
	Params     map[string]any `json:"params"`
}

// CompilationUnitMetadata is one single-target compilation unit.
type CompilationUnitMetadata struct {
	ID             string                 `json:"id"`
	Package        string                 `json:"package"`
	Target         TargetMetadata         `json:"target"`
	CompilerConfig *domain.CompilerConfig `json:"compiler_config"`
	Components     []ComponentMetadata    `json:"components"`
	CairoPlugins   []CairoPluginMetadata  `json:"cairo_plugins"`
	Cfg            []Cfg                  `json:"cfg"`
}

// ComponentMetadata is one crate of a unit. Core has no discriminator.
type ComponentMetadata struct {
	ID            string                `json:"id"`
	Package       string                `json:"package"`
	Name          string                `json:"name"`
	Discriminator *string               `json:"discriminator"`
	Cfg           []Cfg                 `json:"cfg,omitempty"`
	Dependencies  []ComponentDependency `json:"dependencies"`
}

// ComponentDependency is an edge between two components of a unit.
type ComponentDependency struct {
	ID string `json:"id"`
}

// CairoPluginMetadata is a plugin used by a unit.
type CairoPluginMetadata struct {
	Package               string `json:"package"`
	ComponentDependencyID string `json:"component_dependency_id"`
	Builtin               bool   `json:"builtin"`
	PrebuiltAllowed       bool   `json:"prebuilt_allowed"`
}

// Cfg is a cfg item. Names encode as a string, key-value pairs as a two element array.
type Cfg domain.Cfg

// MarshalJSON implements json.Marshaler.
func (c Cfg) MarshalJSON() ([]byte, error) {
	if c.Value == "" {
		return json.Marshal(c.Key)
	}
	return json.Marshal([2]string{c.Key, c.Value})
}

// CheckFormatVersion fails for every envelope version other than domain.MetadataFormatVersion.
func CheckFormatVersion(version int) error {
	if version != domain.MetadataFormatVersion {
		return zerr.With(zerr.With(
			zerr.Wrap(domain.ErrUnsupportedMetadataVersion, ""),
			"version", version),
			"hint", "only version 1 is currently supported")
	}
	return nil
}

// Collect builds the metadata envelope. It never runs the compiler.
func Collect(in Input, opts Options) (*Metadata, error) {
	if err := CheckFormatVersion(opts.FormatVersion); err != nil {
		return nil, err
	}

	ws := in.Workspace
	m := &Metadata{
		Version:          domain.MetadataFormatVersion,
		AppExe:           in.AppExe,
		AppVersionInfo:   in.Version,
		TargetDir:        in.Config.TargetDir,
		Workspace:        workspaceMetadata(ws),
		Packages:         []PackageMetadata{},
		CompilationUnits: []CompilationUnitMetadata{},
		CurrentProfile:   in.Config.Profile,
		Profiles:         ws.ProfileNames(),
	}

	packages := ws.Members
	if !opts.NoDeps && in.Resolved != nil {
		packages = make([]*domain.Package, 0, len(in.Resolved.Packages))
		for _, p := range in.Resolved.Packages {
			packages = append(packages, p)
		}
	}
	for _, p := range packages {
		m.Packages = append(m.Packages, packageMetadata(p))
	}
	slices.SortFunc(m.Packages, func(a, b PackageMetadata) int { return strings.Compare(a.ID, b.ID) })

	if opts.NoDeps {
		return m, nil
	}
	for _, u := range in.Units {
		for _, s := range normalize(u) {
			m.CompilationUnits = append(m.CompilationUnits, unitMetadata(s))
		}
	}
	slices.SortFunc(m.CompilationUnits, func(a, b CompilationUnitMetadata) int {
		return cmp.Or(
			strings.Compare(a.Package, b.Package),
			strings.Compare(a.Target.Kind, b.Target.Kind),
			strings.Compare(a.Target.Name, b.Target.Name),
		)
	})
	return m, nil
}

func workspaceMetadata(ws *domain.Workspace) WorkspaceMetadata {
	members := make([]string, 0, len(ws.Members))
	for _, id := range ws.MemberIDs() {
		members = append(members, id.SerializedString())
	}
	slices.Sort(members)
	return WorkspaceMetadata{ManifestPath: ws.ManifestPath, Root: ws.Root(), Members: members}
}

func packageMetadata(p *domain.Package) PackageMetadata {
	deps := make([]DependencyMetadata, 0, len(p.Manifest.Summary.Dependencies))
	for _, d := range p.Manifest.Summary.Dependencies {
		dm := DependencyMetadata{
			Name:       d.Name.String(),
			VersionReq: d.VersionReq.String(),
			Source:     d.SourceID.PrettyURL(),
		}
		if !d.Kind.IsNormal() {
			dm.Kind = d.Kind.String()
		}
		deps = append(deps, dm)
	}
	slices.SortStableFunc(deps, func(a, b DependencyMetadata) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.Source, b.Source))
	})

	targets := slices.SortedFunc(slices.Values(p.Manifest.Targets), domain.CompareTargets)
	tm := make([]TargetMetadata, 0, len(targets))
	for _, t := range targets {
		tm = append(tm, targetMetadata(t))
	}

	experimental := slices.Clone(p.Manifest.ExperimentalFeatures)
	if experimental == nil {
		experimental = []string{}
	}
	slices.Sort(experimental)

	return PackageMetadata{
		ID:                   p.ID.SerializedString(),
		Name:                 p.ID.Name.String(),
		Version:              p.ID.Version.String(),
		Edition:              string(p.Manifest.Edition),
		Source:               p.ID.Source.PrettyURL(),
		ManifestPath:         p.ManifestPath,
		Root:                 p.Root(),
		Dependencies:         deps,
		Targets:              tm,
		ManifestMetadata:     ManifestMetadata{PackageMetadata: p.Manifest.Metadata, Tool: p.Manifest.Tool},
		ExperimentalFeatures: experimental,
	}
}

func targetMetadata(t domain.Target) TargetMetadata {
	params := t.Params
	if params == nil {
		params = map[string]any{}
	}
	return TargetMetadata{Kind: string(t.Kind), Name: t.Name, SourcePath: t.SourcePath, Params: params}
}

// single is a unit whose main component has exactly one target.
type single struct {
	unit       domain.CompilationUnit
	main       *domain.CompilationUnitComponent
	components []*domain.CompilationUnitComponent
}

// normalize splits a unit whose main component groups several targets into
// one clone per target. Each clone gets a component id keyed by its target name.
func normalize(u domain.CompilationUnit) []single {
	var components []*domain.CompilationUnitComponent
	switch cu := u.(type) {
	case *domain.CairoCompilationUnit:
		components = cu.Components
	case *domain.ProcMacroCompilationUnit:
		components = cu.Components
	}
	main := u.MainComponent()
	if len(main.Targets) <= 1 {
		return []single{{unit: u, main: main, components: components}}
	}

	out := make([]single, 0, len(main.Targets))
	for _, t := range main.Targets {
		clone := *main
		clone.Targets = []domain.Target{t}
		clone.ID.Group = t.Name
		rest := slices.Clone(components)
		rest[0] = &clone
		out = append(out, single{unit: u, main: &clone, components: rest})
	}
	return out
}

func unitMetadata(s single) CompilationUnitMetadata {
	um := CompilationUnitMetadata{
		ID:           s.main.ID.String(),
		Package:      s.main.Package.ID.SerializedString(),
		Target:       targetMetadata(s.main.FirstTarget()),
		CairoPlugins: []CairoPluginMetadata{},
		Cfg:          []Cfg{},
	}

	if cu, ok := s.unit.(*domain.CairoCompilationUnit); ok {
		cc := cu.CompilerConfig
		um.CompilerConfig = &cc
		um.Cfg = cfgs(cu.CfgSet)
		for _, ref := range cu.CairoPlugins {
			um.CairoPlugins = append(um.CairoPlugins, CairoPluginMetadata{
				Package:               ref.Package.ID.SerializedString(),
				ComponentDependencyID: ref.ComponentID.String(),
				Builtin:               ref.Builtin,
				PrebuiltAllowed:       ref.Prebuilt,
			})
		}
		slices.SortFunc(um.CairoPlugins, func(a, b CairoPluginMetadata) int { return strings.Compare(a.Package, b.Package) })
	}

	for _, c := range s.components {
		um.Components = append(um.Components, componentMetadata(c))
	}
	slices.SortFunc(um.Components, func(a, b ComponentMetadata) int {
		return cmp.Or(strings.Compare(a.Package, b.Package), strings.Compare(a.ID, b.ID))
	})
	return um
}

func componentMetadata(c *domain.CompilationUnitComponent) ComponentMetadata {
	cm := ComponentMetadata{
		ID:           c.ID.String(),
		Package:      c.Package.ID.SerializedString(),
		Name:         c.CairoName,
		Dependencies: []ComponentDependency{},
	}
	if d := c.Discriminator(); d != "" {
		cm.Discriminator = &d
	}
	if c.CfgSet != nil {
		cm.Cfg = cfgs(c.CfgSet)
	}
	for _, d := range c.Dependencies {
		cm.Dependencies = append(cm.Dependencies, ComponentDependency{ID: d.ID.String()})
	}
	slices.SortFunc(cm.Dependencies, func(a, b ComponentDependency) int { return strings.Compare(a.ID, b.ID) })
	return cm
}

func cfgs(set domain.CfgSet) []Cfg {
	out := make([]Cfg, 0, len(set))
	for _, c := range set {
		out = append(out, Cfg(c))
	}
	return out
}
