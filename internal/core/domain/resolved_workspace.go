package domain

// ResolvedWorkspace is a workspace together with its resolved graph and every
// package of that graph materialized on disk.
type ResolvedWorkspace struct {
	Workspace *Workspace
	Resolve   *Resolve
	Packages  map[PackageID]*Package
}

// Package returns the materialized package of id.
func (r *ResolvedWorkspace) Package(id PackageID) (*Package, bool) {
	p, ok := r.Packages[id]
	return p, ok
}

// SolutionOf returns the packages needed to compile a target of kind of root, root first.
func (r *ResolvedWorkspace) SolutionOf(root PackageID, kind TargetKind) []*Package {
	ids := r.Resolve.SolutionOf(root, kind)
	out := make([]*Package, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.Packages[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// AllowedPrebuilt returns the names of packages allowed to load prebuilt plugin libraries:
// every package named in allow-prebuilt-plugins and everything it depends on.
func (r *ResolvedWorkspace) AllowedPrebuilt(kind TargetKind) map[PackageName]bool {
	allowed := make(map[PackageName]bool)
	if len(r.Workspace.AllowPrebuiltPlugins) == 0 {
		return allowed
	}
	start := make(map[PackageName]bool, len(r.Workspace.AllowPrebuiltPlugins))
	for _, name := range r.Workspace.AllowPrebuiltPlugins {
		start[name] = true
	}
	for _, id := range r.Resolve.PackageIDs() {
		if !start[id.Name] {
			continue
		}
		for _, dep := range r.Resolve.SolutionOf(id, kind) {
			allowed[dep.Name] = true
		}
	}
	return allowed
}
