package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// Workspace is a set of member packages sharing a lockfile and a target directory.
type Workspace struct {
	ManifestPath         string
	Members              []*Package
	RootPackage          *PackageID
	Patch                map[string][]ManifestDependency
	Security             Security
	Profiles             map[string]ProfileDefinition
	Scripts              map[string]string
	Tool                 map[string]any
	AllowPrebuiltPlugins []PackageName
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return filepath.Dir(w.ManifestPath)
}

// LockfilePath returns the path of Scarb.lock.
func (w *Workspace) LockfilePath() string {
	return filepath.Join(w.Root(), LockfileFileName)
}

// MemberIDs returns the ids of all members.
func (w *Workspace) MemberIDs() []PackageID {
	ids := make([]PackageID, 0, len(w.Members))
	for _, m := range w.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// IsMember reports whether id is a workspace member.
func (w *Workspace) IsMember(id PackageID) bool {
	return slices.ContainsFunc(w.Members, func(p *Package) bool { return p.ID == id })
}

// Member returns the member with the given name.
func (w *Workspace) Member(name PackageName) (*Package, bool) {
	i := slices.IndexFunc(w.Members, func(p *Package) bool { return p.ID.Name == name })
	if i < 0 {
		return nil, false
	}
	return w.Members[i], true
}

// ProfileNames returns the built-in and declared profile names, sorted.
func (w *Workspace) ProfileNames() []string {
	names := []string{ProfileDev, ProfileRelease}
	for name := range w.Profiles {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// HasProfile reports whether name is a built-in or declared profile.
func (w *Workspace) HasProfile(name string) bool {
	return slices.Contains(w.ProfileNames(), name)
}

// CompilerConfigFor layers profile defaults, the package [cairo] table and profile overrides.
func (w *Workspace) CompilerConfigFor(pkg *Package, profile string) CompilerConfig {
	base := DefaultCompilerConfig(w.baseProfile(profile, 0))
	base = pkg.Manifest.Compiler.Apply(base)
	for _, p := range w.profileChain(profile) {
		base = p.Cairo.Apply(base)
	}
	return base
}

func (w *Workspace) baseProfile(name string, depth int) string {
	if name == ProfileDev || name == ProfileRelease || depth > len(w.Profiles) {
		return name
	}
	if p, ok := w.Profiles[name]; ok && p.Inherits != "" {
		return w.baseProfile(p.Inherits, depth+1)
	}
	return ProfileDev
}

// profileChain returns profile definitions from the most inherited to name itself.
func (w *Workspace) profileChain(name string) []ProfileDefinition {
	var chain []ProfileDefinition
	seen := map[string]bool{}
	for name != "" && !seen[name] {
		seen[name] = true
		p, ok := w.Profiles[name]
		if !ok {
			break
		}
		chain = append(chain, p)
		name = p.Inherits
	}
	slices.Reverse(chain)
	return chain
}

// PatchFor returns the patch entry for a dependency, if the workspace patches its source.
func (w *Workspace) PatchFor(dep ManifestDependency) (ManifestDependency, bool) {
	key := dep.SourceID.CanonicalURL()
	for url, entries := range w.Patch {
		if CanonicalizeURL(url) != key {
			continue
		}
		for _, e := range entries {
			if e.Name == dep.Name {
				return e, true
			}
		}
	}
	return ManifestDependency{}, false
}

// MatchesPackagesFilter reports whether name matches a comma separated filter with "*" globs.
func MatchesPackagesFilter(filter string, name PackageName) bool {
	if filter == "" {
		return true
	}
	for _, pattern := range strings.Split(filter, ",") {
		pattern = strings.TrimSpace(pattern)
		if ok, _ := filepath.Match(pattern, string(name)); ok {
			return true
		}
	}
	return false
}
