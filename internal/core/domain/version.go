package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

// Version is a SemVer 2.0.0 version.
// Ordering follows SemVer precedence; build metadata is ignored by Compare.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   string
	Build string
}

// ParseVersion parses a full MAJOR.MINOR.PATCH[-PRE][+BUILD] version.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if !semver.IsValid("v"+s) || strings.Count(strings.SplitN(strings.SplitN(s, "+", 2)[0], "-", 2)[0], ".") != 2 {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, ""), "version", s)
	}

	rest := s
	var build, pre string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		build = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		pre = rest[i+1:]
		rest = rest[:i]
	}

	parts := strings.Split(rest, ".")
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, err.Error()), "version", s)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre, Build: build}, nil
}

// MustParseVersion is ParseVersion for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in canonical form.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Compare returns -1, 0 or +1 by SemVer precedence.
func (v Version) Compare(o Version) int {
	return semver.Compare("v"+v.String(), "v"+o.String())
}

// Less reports whether v precedes o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// IsPrerelease reports whether v carries a pre-release tag.
func (v Version) IsPrerelease() bool {
	return v.Pre != ""
}

// SameCore reports whether v and o share MAJOR.MINOR.PATCH.
func (v Version) SameCore(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// WithoutBuild strips build metadata.
func (v Version) WithoutBuild() Version {
	v.Build = ""
	return v
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// lowestPre returns MAJOR.MINOR.PATCH-0, the smallest version with that core.
func lowestPre(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch, Pre: "0"}
}
