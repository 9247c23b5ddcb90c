package domain

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// CorePackageName is the name of the Cairo core library package.
const CorePackageName PackageName = "core"

var packageNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var cairoKeywords = map[string]struct{}{
	"as": {}, "break": {}, "const": {}, "continue": {}, "else": {}, "enum": {},
	"extern": {}, "false": {}, "fn": {}, "for": {}, "if": {}, "impl": {},
	"implicits": {}, "let": {}, "loop": {}, "macro": {}, "match": {}, "mod": {},
	"mut": {}, "nopanic": {}, "of": {}, "pub": {}, "ref": {}, "return": {},
	"self": {}, "static": {}, "struct": {}, "super": {}, "trait": {}, "true": {},
	"type": {}, "use": {}, "while": {},
}

// PackageName is a validated, lowercased package identifier.
type PackageName string

// NewPackageName validates s and returns its canonical lowercase form.
func NewPackageName(s string) (PackageName, error) {
	if !packageNamePattern.MatchString(s) {
		return "", zerr.With(zerr.Wrap(ErrInvalidPackageName, "names must match [a-zA-Z_][a-zA-Z0-9_]*"), "name", s)
	}
	lower := strings.ToLower(s)
	if _, ok := cairoKeywords[lower]; ok {
		return "", zerr.With(zerr.Wrap(ErrReservedPackageName, ""), "name", s)
	}
	return PackageName(lower), nil
}

// MustPackageName is NewPackageName for trusted constants and tests.
func MustPackageName(s string) PackageName {
	n, err := NewPackageName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the name.
func (n PackageName) String() string {
	return string(n)
}

// IsCore reports whether n names the Cairo core library.
func (n PackageName) IsCore() bool {
	return n == CorePackageName
}
