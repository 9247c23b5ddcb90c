package domain

import (
	"path/filepath"
	"slices"
)

// Summary is a candidate the resolver may select.
type Summary struct {
	PackageID    PackageID
	Dependencies []ManifestDependency
	Checksum     Checksum
	Audited      bool
	Yanked       bool
	NoCore       bool
}

// NeedsCore reports whether the package depends implicitly on the core library.
func (s Summary) NeedsCore() bool {
	return !s.NoCore && !s.PackageID.IsCore()
}

// ImplicitCoreDependency returns the dependency every package has on the bundled core library.
func ImplicitCoreDependency(coreVersion Version) ManifestDependency {
	return NewManifestDependency(CorePackageName, ReqDependencyReq(ExactVersionReq(coreVersion)), StdSourceID())
}

// Package is a summary materialized on disk together with its manifest.
type Package struct {
	ID           PackageID
	ManifestPath string
	Manifest     *Manifest
}

// NewPackage creates a Package.
func NewPackage(id PackageID, manifestPath string, manifest *Manifest) *Package {
	return &Package{ID: id, ManifestPath: manifestPath, Manifest: manifest}
}

// Root returns the package root directory.
func (p *Package) Root() string {
	return filepath.Dir(p.ManifestPath)
}

// Name returns the package name.
func (p *Package) Name() PackageName {
	return p.ID.Name
}

// TargetsOfKind returns the targets of kind k.
func (p *Package) TargetsOfKind(k TargetKind) []Target {
	var out []Target
	for _, t := range p.Manifest.Targets {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

// Lib returns the library target, if any.
func (p *Package) Lib() (Target, bool) {
	i := slices.IndexFunc(p.Manifest.Targets, func(t Target) bool { return t.IsLib() })
	if i < 0 {
		return Target{}, false
	}
	return p.Manifest.Targets[i], true
}

// IsCairoPlugin reports whether the package is a procedural macro package.
func (p *Package) IsCairoPlugin() bool {
	return slices.ContainsFunc(p.Manifest.Targets, func(t Target) bool { return t.IsCairoPlugin() })
}

// ToolMetadata returns the [tool.<name>] table.
func (p *Package) ToolMetadata(name string) (map[string]any, bool) {
	t, ok := p.Manifest.Tool[name].(map[string]any)
	return t, ok
}
