package domain

import (
	"strings"
)

type boundKind uint8

const (
	unbounded boundKind = iota
	included
	excluded
)

type bound struct {
	kind boundKind
	v    Version
}

type segment struct {
	lo bound
	hi bound
}

// Ranges is a set of versions represented as a sorted union of disjoint intervals.
// The zero value is the empty set.
type Ranges struct {
	segs []segment
}

// EmptyRanges returns the empty set.
func EmptyRanges() Ranges {
	return Ranges{}
}

// FullRanges returns the set of all versions.
func FullRanges() Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: unbounded}, hi: bound{kind: unbounded}}}}
}

// SingletonRanges returns {v}.
func SingletonRanges(v Version) Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: included, v: v}, hi: bound{kind: included, v: v}}}}
}

// HigherThanRanges returns [v, +inf).
func HigherThanRanges(v Version) Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: included, v: v}, hi: bound{kind: unbounded}}}}
}

// StrictlyHigherThanRanges returns (v, +inf).
func StrictlyHigherThanRanges(v Version) Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: excluded, v: v}, hi: bound{kind: unbounded}}}}
}

// LowerThanRanges returns (-inf, v].
func LowerThanRanges(v Version) Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: unbounded}, hi: bound{kind: included, v: v}}}}
}

// StrictlyLowerThanRanges returns (-inf, v).
func StrictlyLowerThanRanges(v Version) Ranges {
	return Ranges{segs: []segment{{lo: bound{kind: unbounded}, hi: bound{kind: excluded, v: v}}}}
}

// BetweenRanges returns [lo, hi).
func BetweenRanges(lo, hi Version) Ranges {
	s := segment{lo: bound{kind: included, v: lo}, hi: bound{kind: excluded, v: hi}}
	if !s.valid() {
		return EmptyRanges()
	}
	return Ranges{segs: []segment{s}}
}

// IsEmpty reports whether the set contains no versions.
func (r Ranges) IsEmpty() bool {
	return len(r.segs) == 0
}

// IsFull reports whether the set contains every version.
func (r Ranges) IsFull() bool {
	return len(r.segs) == 1 && r.segs[0].lo.kind == unbounded && r.segs[0].hi.kind == unbounded
}

// Contains reports whether v is in the set.
func (r Ranges) Contains(v Version) bool {
	for _, s := range r.segs {
		if s.contains(v) {
			return true
		}
	}
	return false
}

// Complement returns every version not in r.
func (r Ranges) Complement() Ranges {
	if len(r.segs) == 0 {
		return FullRanges()
	}

	var out []segment
	first := r.segs[0]
	if first.lo.kind != unbounded {
		out = append(out, segment{lo: bound{kind: unbounded}, hi: flip(first.lo)})
	}
	for i := 0; i+1 < len(r.segs); i++ {
		if gap := (segment{lo: flip(r.segs[i].hi), hi: flip(r.segs[i+1].lo)}); gap.valid() {
			out = append(out, gap)
		}
	}
	last := r.segs[len(r.segs)-1]
	if last.hi.kind != unbounded {
		out = append(out, segment{lo: flip(last.hi), hi: bound{kind: unbounded}})
	}
	return Ranges{segs: out}
}

// Intersection returns versions in both r and o.
func (r Ranges) Intersection(o Ranges) Ranges {
	var out []segment
	i, j := 0, 0
	for i < len(r.segs) && j < len(o.segs) {
		a, b := r.segs[i], o.segs[j]
		lo := a.lo
		if cmpLower(b.lo, a.lo) > 0 {
			lo = b.lo
		}
		hi := a.hi
		if cmpUpper(b.hi, a.hi) < 0 {
			hi = b.hi
		}
		if s := (segment{lo: lo, hi: hi}); s.valid() {
			out = append(out, s)
		}
		if cmpUpper(a.hi, b.hi) < 0 {
			i++
		} else {
			j++
		}
	}
	return Ranges{segs: out}
}

// Union returns versions in r or o.
func (r Ranges) Union(o Ranges) Ranges {
	return r.Complement().Intersection(o.Complement()).Complement()
}

// IsSubsetOf reports whether every version of r is in o.
func (r Ranges) IsSubsetOf(o Ranges) bool {
	return r.Intersection(o).Equal(r)
}

// IsDisjoint reports whether r and o share no version.
func (r Ranges) IsDisjoint(o Ranges) bool {
	return r.Intersection(o).IsEmpty()
}

// Equal reports structural equality.
func (r Ranges) Equal(o Ranges) bool {
	if len(r.segs) != len(o.segs) {
		return false
	}
	for i := range r.segs {
		if !boundEqual(r.segs[i].lo, o.segs[i].lo) || !boundEqual(r.segs[i].hi, o.segs[i].hi) {
			return false
		}
	}
	return true
}

// SingleVersion returns the only version of the set if it is a singleton.
func (r Ranges) SingleVersion() (Version, bool) {
	if len(r.segs) != 1 {
		return Version{}, false
	}
	s := r.segs[0]
	if s.lo.kind == included && s.hi.kind == included && s.lo.v.Compare(s.hi.v) == 0 {
		return s.lo.v, true
	}
	return Version{}, false
}

// String renders the set in requirement-like syntax.
func (r Ranges) String() string {
	if r.IsEmpty() {
		return "∅"
	}
	if r.IsFull() {
		return "*"
	}
	parts := make([]string, 0, len(r.segs))
	for _, s := range r.segs {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " || ")
}

func (s segment) String() string {
	if s.lo.kind == included && s.hi.kind == included && s.lo.v.Compare(s.hi.v) == 0 {
		return s.lo.v.String()
	}
	var parts []string
	switch s.lo.kind {
	case included:
		parts = append(parts, ">="+s.lo.v.String())
	case excluded:
		parts = append(parts, ">"+s.lo.v.String())
	case unbounded:
	}
	switch s.hi.kind {
	case included:
		parts = append(parts, "<="+s.hi.v.String())
	case excluded:
		parts = append(parts, "<"+s.hi.v.String())
	case unbounded:
	}
	return strings.Join(parts, ", ")
}

func (s segment) contains(v Version) bool {
	switch s.lo.kind {
	case included:
		if v.Compare(s.lo.v) < 0 {
			return false
		}
	case excluded:
		if v.Compare(s.lo.v) <= 0 {
			return false
		}
	case unbounded:
	}
	switch s.hi.kind {
	case included:
		return v.Compare(s.hi.v) <= 0
	case excluded:
		return v.Compare(s.hi.v) < 0
	default:
		return true
	}
}

func (s segment) valid() bool {
	if s.lo.kind == unbounded || s.hi.kind == unbounded {
		return true
	}
	c := s.lo.v.Compare(s.hi.v)
	if c < 0 {
		return true
	}
	return c == 0 && s.lo.kind == included && s.hi.kind == included
}

func flip(b bound) bound {
	switch b.kind {
	case included:
		return bound{kind: excluded, v: b.v}
	case excluded:
		return bound{kind: included, v: b.v}
	default:
		return b
	}
}

// cmpLower orders lower bounds: a smaller lower bound admits more versions below.
func cmpLower(a, b bound) int {
	switch {
	case a.kind == unbounded && b.kind == unbounded:
		return 0
	case a.kind == unbounded:
		return -1
	case b.kind == unbounded:
		return 1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.kind == b.kind:
		return 0
	case a.kind == included:
		return -1
	default:
		return 1
	}
}

// cmpUpper orders upper bounds: a larger upper bound admits more versions above.
func cmpUpper(a, b bound) int {
	switch {
	case a.kind == unbounded && b.kind == unbounded:
		return 0
	case a.kind == unbounded:
		return 1
	case b.kind == unbounded:
		return -1
	}
	if c := a.v.Compare(b.v); c != 0 {
		return c
	}
	switch {
	case a.kind == b.kind:
		return 0
	case a.kind == included:
		return 1
	default:
		return -1
	}
}

func boundEqual(a, b bound) bool {
	if a.kind != b.kind {
		return false
	}
	return a.kind == unbounded || a.v.Compare(b.v) == 0
}
