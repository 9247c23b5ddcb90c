package domain

import "fmt"

type depKindTag uint8

const (
	depNormal depKindTag = iota
	depDev
	depTarget
)

// DepKind says in which compilation contexts a dependency is visible.
type DepKind struct {
	tag    depKindTag
	target TargetKind
}

// NormalDep is visible everywhere.
func NormalDep() DepKind { return DepKind{tag: depNormal} }

// DevDep is visible only to tests and development targets of the depending package.
func DevDep() DepKind { return DepKind{tag: depDev} }

// TargetDep is visible only when compiling targets of the given kind.
func TargetDep(kind TargetKind) DepKind { return DepKind{tag: depTarget, target: kind} }

// IsNormal reports whether k is NormalDep.
func (k DepKind) IsNormal() bool { return k.tag == depNormal }

// IsDev reports whether k is DevDep.
func (k DepKind) IsDev() bool { return k.tag == depDev }

// IsTestOnly reports whether the dependency is only used by test targets.
func (k DepKind) IsTestOnly() bool {
	return k.tag == depDev || (k.tag == depTarget && k.target == TargetKindTest)
}

// Target returns the target kind of a TargetDep.
func (k DepKind) Target() (TargetKind, bool) {
	return k.target, k.tag == depTarget
}

// AcceptsTarget reports whether the edge is followed when compiling a target of kind.
// Test edges are followed only from the root package of a compilation unit.
func (k DepKind) AcceptsTarget(kind TargetKind, isRoot bool) bool {
	switch k.tag {
	case depNormal:
		return true
	case depDev:
		return kind == TargetKindTest && isRoot
	default:
		return k.target == kind && (isRoot || kind != TargetKindTest)
	}
}

func (k DepKind) String() string {
	switch k.tag {
	case depDev:
		return "dev"
	case depTarget:
		return "target(" + string(k.target) + ")"
	default:
		return "normal"
	}
}

type depReqTag uint8

const (
	depReqAny depReqTag = iota
	depReqReq
	depReqLocked
)

// DependencyVersionReq is either any version, a requirement, or a requirement locked to an exact version.
type DependencyVersionReq struct {
	tag    depReqTag
	req    VersionReq
	locked Version
}

// AnyDependencyReq admits every version.
func AnyDependencyReq() DependencyVersionReq {
	return DependencyVersionReq{tag: depReqAny, req: AnyVersionReq()}
}

// ReqDependencyReq admits versions matching req.
func ReqDependencyReq(req VersionReq) DependencyVersionReq {
	return DependencyVersionReq{tag: depReqReq, req: req}
}

// LockedDependencyReq admits only exact, which must also satisfy req.
func LockedDependencyReq(req VersionReq, exact Version) DependencyVersionReq {
	return DependencyVersionReq{tag: depReqLocked, req: req, locked: exact}
}

// IsAny reports whether every version is admitted.
func (r DependencyVersionReq) IsAny() bool { return r.tag == depReqAny }

// Locked returns the locked version, if any.
func (r DependencyVersionReq) Locked() (Version, bool) {
	return r.locked, r.tag == depReqLocked
}

// Req returns the underlying version requirement.
func (r DependencyVersionReq) Req() VersionReq {
	if r.tag == depReqAny {
		return AnyVersionReq()
	}
	return r.req
}

// Matches reports whether v is admitted.
func (r DependencyVersionReq) Matches(v Version) bool {
	switch r.tag {
	case depReqAny:
		return !v.IsPrerelease()
	case depReqLocked:
		return v.Compare(r.locked) == 0
	default:
		return r.req.Matches(v)
	}
}

// Ranges returns the admitted set for the solver.
func (r DependencyVersionReq) Ranges() Ranges {
	switch r.tag {
	case depReqAny:
		return FullRanges()
	case depReqLocked:
		return SingletonRanges(r.locked)
	default:
		return r.req.Ranges()
	}
}

func (r DependencyVersionReq) String() string {
	switch r.tag {
	case depReqAny:
		return "*"
	case depReqLocked:
		return "=" + r.locked.String()
	default:
		return r.req.String()
	}
}

// ManifestDependency is a dependency as declared by a manifest.
type ManifestDependency struct {
	Name            PackageName
	VersionReq      DependencyVersionReq
	SourceID        SourceID
	Kind            DepKind
	Features        []string
	DefaultFeatures bool
}

// NewManifestDependency creates a normal dependency with default features enabled.
func NewManifestDependency(name PackageName, req DependencyVersionReq, source SourceID) ManifestDependency {
	return ManifestDependency{Name: name, VersionReq: req, SourceID: source, Kind: NormalDep(), DefaultFeatures: true}
}

// MatchesSummary reports whether s satisfies the dependency.
func (d ManifestDependency) MatchesSummary(s Summary) bool {
	return d.MatchesPackageID(s.PackageID)
}

// MatchesPackageID reports whether id satisfies the dependency name, source and requirement.
func (d ManifestDependency) MatchesPackageID(id PackageID) bool {
	return d.Name == id.Name && d.SourceID.WithoutPrecise() == id.Source.WithoutPrecise() && d.VersionReq.Matches(id.Version)
}

func (d ManifestDependency) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Name, d.VersionReq, d.SourceID)
}

// DependencyFilter decides which declared dependencies propagate during resolution.
type DependencyFilter struct {
	// IncludeTestOnly keeps dev and test dependencies; it is set for workspace members only.
	IncludeTestOnly bool
}

// PropagationFilter returns the filter for a package, including test deps only for members.
func PropagationFilter(isMember bool) DependencyFilter {
	return DependencyFilter{IncludeTestOnly: isMember}
}

// Keep reports whether dep propagates.
func (f DependencyFilter) Keep(dep ManifestDependency) bool {
	return f.IncludeTestOnly || !dep.Kind.IsTestOnly()
}
