package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

type reqOp uint8

const (
	opExact reqOp = iota
	opGreater
	opGreaterEq
	opLess
	opLessEq
	opTilde
	opCaret
	opWildcard
)

// comparator is one clause of a requirement with a possibly partial version.
type comparator struct {
	op    reqOp
	major uint64
	minor *uint64
	patch *uint64
	pre   string
}

// VersionReq is a SemVer requirement such as "^1.2", ">=1.0, <2" or "*".
type VersionReq struct {
	raw         string
	comparators []comparator
	ranges      Ranges
}

// AnyVersionReq matches every non-prerelease version.
func AnyVersionReq() VersionReq {
	return VersionReq{raw: "*", ranges: FullRanges()}
}

// ExactVersionReq matches exactly v.
func ExactVersionReq(v Version) VersionReq {
	minor, patch := v.Minor, v.Patch
	c := comparator{op: opExact, major: v.Major, minor: &minor, patch: &patch, pre: v.Pre}
	return VersionReq{raw: "=" + v.WithoutBuild().String(), comparators: []comparator{c}, ranges: SingletonRanges(v.WithoutBuild())}
}

// CaretVersionReq matches versions compatible with v, i.e. "^v".
func CaretVersionReq(v Version) VersionReq {
	req, _ := ParseVersionReq("^" + v.WithoutBuild().String())
	return req
}

// ParseVersionReq parses a comma-separated list of comparators.
func ParseVersionReq(s string) (VersionReq, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return VersionReq{}, zerr.With(zerr.Wrap(ErrInvalidVersionReq, "empty requirement"), "req", s)
	}
	if raw == "*" {
		return AnyVersionReq(), nil
	}

	req := VersionReq{raw: raw, ranges: FullRanges()}
	for _, part := range strings.Split(raw, ",") {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return VersionReq{}, zerr.With(err, "req", s)
		}
		req.comparators = append(req.comparators, c)
		req.ranges = req.ranges.Intersection(c.ranges())
	}
	return req, nil
}

// MustParseVersionReq is ParseVersionReq for constants and tests.
func MustParseVersionReq(s string) VersionReq {
	r, err := ParseVersionReq(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the requirement as written.
func (r VersionReq) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// Ranges returns the set of versions the requirement admits, ignoring the prerelease rule.
func (r VersionReq) Ranges() Ranges {
	if r.raw == "" {
		return FullRanges()
	}
	return r.ranges
}

// AllowsPrerelease reports whether any comparator names a prerelease.
func (r VersionReq) AllowsPrerelease() bool {
	for _, c := range r.comparators {
		if c.pre != "" {
			return true
		}
	}
	return false
}

// Matches reports whether v satisfies the requirement.
// A prerelease only matches when some comparator names a prerelease of the same MAJOR.MINOR.PATCH.
func (r VersionReq) Matches(v Version) bool {
	if !r.Ranges().Contains(v) {
		return false
	}
	if !v.IsPrerelease() {
		return true
	}
	for _, c := range r.comparators {
		if c.pre != "" && c.minor != nil && c.patch != nil &&
			c.major == v.Major && *c.minor == v.Minor && *c.patch == v.Patch {
			return true
		}
	}
	return false
}

// IsExact reports whether the requirement pins a single version.
func (r VersionReq) IsExact() (Version, bool) {
	return r.Ranges().SingleVersion()
}

// MarshalText implements encoding.TextMarshaler.
func (r VersionReq) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *VersionReq) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionReq(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func parseComparator(s string) (comparator, error) {
	var c comparator
	switch {
	case strings.HasPrefix(s, ">="):
		c.op, s = opGreaterEq, s[2:]
	case strings.HasPrefix(s, "<="):
		c.op, s = opLessEq, s[2:]
	case strings.HasPrefix(s, ">"):
		c.op, s = opGreater, s[1:]
	case strings.HasPrefix(s, "<"):
		c.op, s = opLess, s[1:]
	case strings.HasPrefix(s, "="):
		c.op, s = opExact, s[1:]
	case strings.HasPrefix(s, "~"):
		c.op, s = opTilde, s[1:]
	case strings.HasPrefix(s, "^"):
		c.op, s = opCaret, s[1:]
	default:
		c.op = opCaret
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return c, zerr.Wrap(ErrInvalidVersionReq, "missing version")
	}

	core := s
	if i := strings.IndexByte(core, '+'); i >= 0 {
		core = core[:i]
	}
	if i := strings.IndexByte(core, '-'); i >= 0 {
		c.pre = core[i+1:]
		core = core[:i]
		if c.pre == "" {
			return c, zerr.Wrap(ErrInvalidVersionReq, "empty prerelease")
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return c, zerr.Wrap(ErrInvalidVersionReq, "too many version components")
	}

	wildcard := false
	for i, p := range parts {
		if p == "*" || p == "x" || p == "X" {
			if i == 0 {
				return c, zerr.Wrap(ErrInvalidVersionReq, "major version cannot be a wildcard")
			}
			wildcard = true
			continue
		}
		if wildcard {
			return c, zerr.Wrap(ErrInvalidVersionReq, "wildcard must be the last component")
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return c, zerr.Wrap(ErrInvalidVersionReq, "invalid version component "+strconv.Quote(p))
		}
		switch i {
		case 0:
			c.major = n
		case 1:
			c.minor = &n
		case 2:
			c.patch = &n
		}
	}

	if wildcard {
		if c.op != opCaret && c.op != opExact {
			return c, zerr.Wrap(ErrInvalidVersionReq, "wildcards cannot be combined with comparison operators")
		}
		c.op = opWildcard
	}
	if c.pre != "" && (c.minor == nil || c.patch == nil) {
		return c, zerr.Wrap(ErrInvalidVersionReq, "prerelease requires a full version")
	}
	return c, nil
}

func (c comparator) full() Version {
	v := Version{Major: c.major, Pre: c.pre}
	if c.minor != nil {
		v.Minor = *c.minor
	}
	if c.patch != nil {
		v.Patch = *c.patch
	}
	return v
}

// nextPartial returns the exclusive upper bound of the partial version's own range.
func (c comparator) nextPartial() Version {
	switch {
	case c.minor == nil:
		return lowestPre(c.major+1, 0, 0)
	case c.patch == nil:
		return lowestPre(c.major, *c.minor+1, 0)
	default:
		return lowestPre(c.major, *c.minor, *c.patch+1)
	}
}

func (c comparator) ranges() Ranges {
	v := c.full()
	switch c.op {
	case opExact:
		if c.patch != nil {
			return SingletonRanges(v)
		}
		return BetweenRanges(v, c.nextPartial())
	case opWildcard:
		return BetweenRanges(v, c.nextPartial())
	case opGreater:
		if c.patch != nil {
			return StrictlyHigherThanRanges(v)
		}
		next := c.nextPartial()
		next.Pre = ""
		return HigherThanRanges(next)
	case opGreaterEq:
		return HigherThanRanges(v)
	case opLess:
		if c.patch != nil {
			return StrictlyLowerThanRanges(v)
		}
		return StrictlyLowerThanRanges(lowestPre(v.Major, v.Minor, v.Patch))
	case opLessEq:
		if c.patch != nil {
			return LowerThanRanges(v)
		}
		return StrictlyLowerThanRanges(c.nextPartial())
	case opTilde:
		if c.minor == nil {
			return BetweenRanges(v, lowestPre(c.major+1, 0, 0))
		}
		return BetweenRanges(v, lowestPre(c.major, *c.minor+1, 0))
	default:
		return BetweenRanges(v, c.caretUpper())
	}
}

func (c comparator) caretUpper() Version {
	switch {
	case c.major > 0 || c.minor == nil:
		return lowestPre(c.major+1, 0, 0)
	case *c.minor > 0 || c.patch == nil:
		return lowestPre(0, *c.minor+1, 0)
	default:
		return lowestPre(0, 0, *c.patch+1)
	}
}
