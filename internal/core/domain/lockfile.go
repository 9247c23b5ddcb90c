package domain

import (
	"cmp"
	"slices"
)

// LockedPackage is one [[package]] entry of Scarb.lock.
// Source is the zero SourceID for path packages, which are never written with a source.
type LockedPackage struct {
	Name         PackageName
	Version      Version
	Source       SourceID
	Checksum     Checksum
	Dependencies []PackageName
}

// Lockfile is the pinned state of a resolved workspace.
type Lockfile struct {
	Version  int
	Packages []LockedPackage
}

// NewLockfile returns a lockfile with packages in canonical order.
func NewLockfile(packages []LockedPackage) *Lockfile {
	l := &Lockfile{Version: LockfileFormatVersion, Packages: packages}
	l.Normalize()
	return l
}

// Normalize sorts packages and their dependency lists.
func (l *Lockfile) Normalize() {
	for i := range l.Packages {
		deps := slices.Clone(l.Packages[i].Dependencies)
		slices.Sort(deps)
		l.Packages[i].Dependencies = slices.Compact(deps)
	}
	slices.SortFunc(l.Packages, func(a, b LockedPackage) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		if c := a.Version.Compare(b.Version); c != 0 {
			return c
		}
		return a.Source.Compare(b.Source)
	})
}

// Find returns entries named name, optionally filtered to a source url.
func (l *Lockfile) Find(name PackageName) []LockedPackage {
	if l == nil {
		return nil
	}
	var out []LockedPackage
	for _, p := range l.Packages {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// LockedFor returns the locked entry matching a dependency's name and source.
func (l *Lockfile) LockedFor(dep ManifestDependency) (LockedPackage, bool) {
	for _, p := range l.Find(dep.Name) {
		if p.Source.IsZero() {
			if dep.SourceID.IsPath() {
				return p, true
			}
			continue
		}
		if p.Source.WithoutPrecise() == dep.SourceID.WithoutPrecise() ||
			p.Source.CanonicalURL() == dep.SourceID.CanonicalURL() && p.Source.Kind() == dep.SourceID.Kind() {
			return p, true
		}
	}
	return LockedPackage{}, false
}

// ResolvedDependency is one edge of a Resolve.
type ResolvedDependency struct {
	ID   PackageID
	Kind DepKind
}

// Resolve is a fully pinned dependency graph.
type Resolve struct {
	Summaries map[PackageID]Summary
	Edges     map[PackageID][]ResolvedDependency
}

// NewResolve creates an empty Resolve.
func NewResolve() *Resolve {
	return &Resolve{Summaries: map[PackageID]Summary{}, Edges: map[PackageID][]ResolvedDependency{}}
}

// PackageIDs returns every package of the graph in canonical order.
func (r *Resolve) PackageIDs() []PackageID {
	ids := make([]PackageID, 0, len(r.Summaries))
	for id := range r.Summaries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, ComparePackageIDs)
	return ids
}

// Dependencies returns the direct dependencies of id sorted by name then source.
func (r *Resolve) Dependencies(id PackageID) []ResolvedDependency {
	deps := slices.Clone(r.Edges[id])
	slices.SortFunc(deps, func(a, b ResolvedDependency) int { return ComparePackageIDs(a.ID, b.ID) })
	return deps
}

// DependenciesOfKind returns dependencies that are visible for a compilation of kind.
// Test-only edges are followed only from the unit root.
func (r *Resolve) DependenciesOfKind(id PackageID, kind TargetKind, isRoot bool) []PackageID {
	var out []PackageID
	for _, d := range r.Dependencies(id) {
		if d.Kind.AcceptsTarget(kind, isRoot) {
			out = append(out, d.ID)
		}
	}
	return slices.CompactFunc(out, func(a, b PackageID) bool { return a == b })
}

// SolutionOf returns every package reachable from root for a compilation of kind,
// root first, in depth-first order.
func (r *Resolve) SolutionOf(root PackageID, kind TargetKind) []PackageID {
	seen := map[PackageID]bool{root: true}
	out := []PackageID{root}
	var visit func(id PackageID)
	visit = func(id PackageID) {
		for _, dep := range r.DependenciesOfKind(id, kind, id == root) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			visit(dep)
		}
	}
	visit(root)
	return out
}

// FindByName returns ids with the given name.
func (r *Resolve) FindByName(name PackageName) []PackageID {
	var out []PackageID
	for _, id := range r.PackageIDs() {
		if id.Name == name {
			out = append(out, id)
		}
	}
	return out
}

// ToLockfile renders the resolve as a lockfile.
func (r *Resolve) ToLockfile() *Lockfile {
	packages := make([]LockedPackage, 0, len(r.Summaries))
	for _, id := range r.PackageIDs() {
		s := r.Summaries[id]
		entry := LockedPackage{Name: id.Name, Version: id.Version, Checksum: s.Checksum}
		if !id.Source.IsPath() {
			entry.Source = id.Source
		}
		for _, d := range r.Edges[id] {
			entry.Dependencies = append(entry.Dependencies, d.ID.Name)
		}
		packages = append(packages, entry)
	}
	return NewLockfile(packages)
}
