package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Cfg is one configuration item: a bare name or a key-value pair.
type Cfg struct {
	Key   string
	Value string
}

// CfgName creates a bare cfg item.
func CfgName(name string) Cfg { return Cfg{Key: name} }

// CfgKV creates a key-value cfg item.
func CfgKV(key, value string) Cfg { return Cfg{Key: key, Value: value} }

func (c Cfg) String() string {
	if c.Value == "" {
		return c.Key
	}
	return fmt.Sprintf("%s: %q", c.Key, c.Value)
}

// CfgSet is a sorted, duplicate-free set of cfg items.
type CfgSet []Cfg

// NewCfgSet creates a normalized CfgSet.
func NewCfgSet(items ...Cfg) CfgSet {
	s := slices.Clone(items)
	slices.SortFunc(s, compareCfg)
	return slices.Compact(s)
}

// Union returns the normalized union of s and o.
func (s CfgSet) Union(o CfgSet) CfgSet {
	return NewCfgSet(append(slices.Clone(s), o...)...)
}

// Contains reports whether c is in s.
func (s CfgSet) Contains(c Cfg) bool {
	return slices.Contains(s, c)
}

// Strings renders each item.
func (s CfgSet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.String()
	}
	return out
}

// IsName reports whether c is a bare name.
func (c Cfg) IsName() bool { return c.Value == "" }

// compareCfg orders every bare name before every key-value pair.
func compareCfg(a, b Cfg) int {
	if a.IsName() != b.IsName() {
		if a.IsName() {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return strings.Compare(a.Value, b.Value)
}

// ComponentID identifies a crate node inside a compilation unit.
type ComponentID struct {
	Package PackageID
	Kind    TargetKind
	Group   string
}

// Discriminator returns the stable short hash distinguishing this crate from
// otherwise identical crates compiled in other contexts.
func (c ComponentID) Discriminator() string {
	return ShortHash(c.Package.SerializedString(), string(c.Kind), c.Group)
}

// String renders the component id for metadata.
func (c ComponentID) String() string {
	return c.Package.SerializedString() + "-" + c.Discriminator()
}

// DependencyEdgeKind distinguishes crate edges from plugin edges.
type DependencyEdgeKind uint8

const (
	// EdgeComponent links a crate to a library crate.
	EdgeComponent DependencyEdgeKind = iota
	// EdgePlugin links a crate to a procedural macro plugin.
	EdgePlugin
)

// CompilationUnitDependency is one dependency edge of a component.
type CompilationUnitDependency struct {
	Kind DependencyEdgeKind
	ID   ComponentID
}

// CompilationUnitComponent is a crate inside a compilation unit.
type CompilationUnitComponent struct {
	ID                   ComponentID
	Package              *Package
	Targets              []Target
	CairoName            string
	CfgSet               CfgSet
	Dependencies         []CompilationUnitDependency
	ExperimentalFeatures []string
	Features             []string
}

// FirstTarget returns the first target of the component.
func (c *CompilationUnitComponent) FirstTarget() Target {
	return c.Targets[0]
}

// TargetName returns the name used for outputs and fingerprint directories.
func (c *CompilationUnitComponent) TargetName() string {
	t := c.FirstTarget()
	if t.GroupID != "" {
		return t.GroupID
	}
	return t.Name
}

// SourcePaths returns the sorted source paths of all targets.
func (c *CompilationUnitComponent) SourcePaths() []string {
	paths := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		paths = append(paths, t.SourcePath)
	}
	slices.Sort(paths)
	return paths
}

// Discriminator returns the component discriminator; core has none.
func (c *CompilationUnitComponent) Discriminator() string {
	if c.ID.Package.IsCore() {
		return ""
	}
	return c.ID.Discriminator()
}

// PluginDependencies returns the ids of plugin edges.
func (c *CompilationUnitComponent) PluginDependencies() []ComponentID {
	var out []ComponentID
	for _, d := range c.Dependencies {
		if d.Kind == EdgePlugin {
			out = append(out, d.ID)
		}
	}
	return out
}

// CairoPluginRef attaches a plugin package to a Cairo unit.
type CairoPluginRef struct {
	ComponentID ComponentID
	Package     *Package
	Builtin     bool
	Prebuilt    bool
}

// CompilationUnit is either a CairoCompilationUnit or a ProcMacroCompilationUnit.
type CompilationUnit interface {
	// ID is a stable identifier of the unit.
	ID() string
	// Name is a human readable name of the unit.
	Name() string
	// MainPackageID returns the package that owns the unit.
	MainPackageID() PackageID
	// MainComponent returns the component the unit was created for.
	MainComponent() *CompilationUnitComponent

	isCompilationUnit()
}

// CairoCompilationUnit compiles a main crate together with its library crates.
// Components[0] is the main component and, when present, core is Components[1].
type CairoCompilationUnit struct {
	Components     []*CompilationUnitComponent
	CairoPlugins   []CairoPluginRef
	CompilerConfig CompilerConfig
	CfgSet         CfgSet
	Profile        string
	Lint           bool
}

// ID implements CompilationUnit.
func (u *CairoCompilationUnit) ID() string {
	return u.MainComponent().ID.String()
}

// Name implements CompilationUnit.
func (u *CairoCompilationUnit) Name() string {
	main := u.MainComponent()
	return fmt.Sprintf("%s %s", main.TargetName(), main.FirstTarget().Kind)
}

// MainPackageID implements CompilationUnit.
func (u *CairoCompilationUnit) MainPackageID() PackageID {
	return u.MainComponent().ID.Package
}

// MainComponent implements CompilationUnit.
func (u *CairoCompilationUnit) MainComponent() *CompilationUnitComponent {
	return u.Components[0]
}

// CoreComponent returns the core library component.
func (u *CairoCompilationUnit) CoreComponent() (*CompilationUnitComponent, bool) {
	for _, c := range u.Components {
		if c.ID.Package.IsCore() {
			return c, true
		}
	}
	return nil, false
}

// Component returns the component with id.
func (u *CairoCompilationUnit) Component(id ComponentID) (*CompilationUnitComponent, bool) {
	for _, c := range u.Components {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Target returns the first target of the main component.
func (u *CairoCompilationUnit) Target() Target {
	return u.MainComponent().FirstTarget()
}

// IsSoleForPackage reports whether the unit compiles the main package's library-like targets.
func (u *CairoCompilationUnit) IsSoleForPackage() bool {
	return !u.Target().IsTest()
}

func (u *CairoCompilationUnit) isCompilationUnit() {}

// ProcMacroCompilationUnit builds a native plugin library.
type ProcMacroCompilationUnit struct {
	Components []*CompilationUnitComponent
	Profile    string
	Prebuilt   bool
}

// ID implements CompilationUnit.
func (u *ProcMacroCompilationUnit) ID() string {
	return u.MainComponent().ID.String()
}

// Name implements CompilationUnit.
func (u *ProcMacroCompilationUnit) Name() string {
	return fmt.Sprintf("%s %s", u.MainComponent().TargetName(), TargetKindCairoPlugin)
}

// MainPackageID implements CompilationUnit.
func (u *ProcMacroCompilationUnit) MainPackageID() PackageID {
	return u.MainComponent().ID.Package
}

// MainComponent implements CompilationUnit.
func (u *ProcMacroCompilationUnit) MainComponent() *CompilationUnitComponent {
	return u.Components[0]
}

func (u *ProcMacroCompilationUnit) isCompilationUnit() {}
