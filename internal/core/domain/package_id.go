package domain

import (
	"cmp"
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// PackageID is the globally unique identity of a resolved package.
type PackageID struct {
	Name    PackageName
	Version Version
	Source  SourceID
}

// NewPackageID creates a PackageID.
func NewPackageID(name PackageName, version Version, source SourceID) PackageID {
	return PackageID{Name: name, Version: version, Source: source}
}

// String renders the id for humans, e.g. "hello v0.1.0 (/path/to/hello)".
func (id PackageID) String() string {
	return fmt.Sprintf("%s v%s (%s)", id.Name, id.Version, id.Source)
}

// SerializedString renders the id for machines, e.g. "hello 0.1.0 (path+file:///...)".
func (id PackageID) SerializedString() string {
	return fmt.Sprintf("%s %s (%s)", id.Name, id.Version, id.Source.PrettyURL())
}

// ParsePackageID parses the output of SerializedString.
func ParsePackageID(s string) (PackageID, error) {
	name, rest, ok := strings.Cut(s, " ")
	if !ok {
		return PackageID{}, zerr.With(zerr.New("invalid package id"), "id", s)
	}
	ver, src, ok := strings.Cut(rest, " ")
	if !ok || !strings.HasPrefix(src, "(") || !strings.HasSuffix(src, ")") {
		return PackageID{}, zerr.With(zerr.New("invalid package id"), "id", s)
	}
	pn, err := NewPackageName(name)
	if err != nil {
		return PackageID{}, err
	}
	v, err := ParseVersion(ver)
	if err != nil {
		return PackageID{}, err
	}
	sid, err := ParseSourceID(src[1 : len(src)-1])
	if err != nil {
		return PackageID{}, err
	}
	return NewPackageID(pn, v, sid), nil
}

// IsCore reports whether id is the core library.
func (id PackageID) IsCore() bool {
	return id.Name.IsCore() && id.Source.IsStd()
}

// ComparePackageIDs orders ids by name, version and source.
func ComparePackageIDs(a, b PackageID) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := a.Version.Compare(b.Version); c != 0 {
		return c
	}
	return a.Source.Compare(b.Source)
}

// MarshalText implements encoding.TextMarshaler.
func (id PackageID) MarshalText() ([]byte, error) {
	return []byte(id.SerializedString()), nil
}

// ForTestTarget returns the id under which an integration test target is compiled,
// so test code can import the tested package by its own name.
func (id PackageID) ForTestTarget(target string) PackageID {
	return NewPackageID(PackageName(target), id.Version, id.Source)
}
