package resolver

import (
	"go.trai.ch/scarb/internal/core/domain"
)

// pkgKey is the identity the solver reasons about: a package name served by one source.
// Git sources are keyed without their locked commit.
type pkgKey struct {
	Name   domain.PackageName
	Source domain.SourceID
}

func keyOf(name domain.PackageName, source domain.SourceID) pkgKey {
	return pkgKey{Name: name, Source: source.WithoutPrecise()}
}

func (k pkgKey) String() string {
	return string(k.Name)
}

// term is a statement about the selected version of a package.
// A positive term says the package is selected with a version in set.
// A negative term says it is not selected with a version in set, which
// includes not being selected at all.
type term struct {
	positive bool
	set      domain.Ranges
}

func positive(set domain.Ranges) term { return term{positive: true, set: set} }

func negative(set domain.Ranges) term { return term{positive: false, set: set} }

// anyTerm is satisfied by every assignment.
func anyTerm() term { return negative(domain.EmptyRanges()) }

func (t term) negate() term {
	return term{positive: !t.positive, set: t.set}
}

func (t term) contains(v domain.Version) bool {
	if t.positive {
		return t.set.Contains(v)
	}
	return !t.set.Contains(v)
}

func (t term) intersect(o term) term {
	switch {
	case t.positive && o.positive:
		return positive(t.set.Intersection(o.set))
	case t.positive:
		return positive(t.set.Intersection(o.set.Complement()))
	case o.positive:
		return positive(t.set.Complement().Intersection(o.set))
	default:
		return negative(t.set.Union(o.set))
	}
}

func (t term) isContradiction() bool {
	return t.positive && t.set.IsEmpty()
}

func (t term) equal(o term) bool {
	return t.positive == o.positive && t.set.Equal(o.set)
}

// subsetOf reports whether every assignment satisfying t also satisfies o.
func (t term) subsetOf(o term) bool {
	return t.intersect(o).equal(t)
}

type relation uint8

const (
	relSatisfied relation = iota
	relContradicted
	relInconclusive
)

// relationTo classifies t against the accumulated assignment a of its package.
func (t term) relationTo(a term) relation {
	full := t.intersect(a)
	switch {
	case full.equal(a):
		return relSatisfied
	case full.isContradiction():
		return relContradicted
	default:
		return relInconclusive
	}
}

func (t term) describe(k pkgKey) string {
	if t.set.IsFull() {
		if t.positive {
			return "every version of " + k.String()
		}
		return "no version of " + k.String()
	}
	s := k.String() + " " + t.set.String()
	if t.positive {
		return s
	}
	return "not " + s
}
