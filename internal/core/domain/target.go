package domain

import (
	"path/filepath"
	"regexp"
	"slices"

	"go.trai.ch/zerr"
)

// TargetKind names the kind of a compilation target.
type TargetKind string

// Built-in target kinds. Any other identifier is accepted as an extension kind.
const (
	TargetKindLib              TargetKind = "lib"
	TargetKindStarknetContract TargetKind = "starknet-contract"
	TargetKindExecutable       TargetKind = "executable"
	TargetKindTest             TargetKind = "test"
	TargetKindCairoPlugin      TargetKind = "cairo-plugin"
)

var targetKindPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NewTargetKind validates a target kind name.
func NewTargetKind(s string) (TargetKind, error) {
	if !targetKindPattern.MatchString(s) {
		return "", zerr.With(zerr.Wrap(ErrInvalidTargetKind, ""), "kind", s)
	}
	return TargetKind(s), nil
}

// DefaultBuildKinds are the kinds compiled by a plain build.
var DefaultBuildKinds = []TargetKind{TargetKindLib, TargetKindStarknetContract, TargetKindExecutable}

// IsDefaultBuild reports whether a plain build compiles targets of kind k.
func (k TargetKind) IsDefaultBuild() bool {
	return slices.Contains(DefaultBuildKinds, k)
}

// TestType distinguishes unit and integration test targets.
type TestType string

const (
	// TestTypeUnit compiles tests embedded in the library sources.
	TestTypeUnit TestType = "unit"
	// TestTypeIntegration compiles files under tests/.
	TestTypeIntegration TestType = "integration"
)

// Target is one compilable entity declared or inferred for a package.
type Target struct {
	Kind       TargetKind
	Name       string
	SourcePath string
	GroupID    string
	Params     map[string]any
}

// IsLib reports whether the target is a library.
func (t Target) IsLib() bool { return t.Kind == TargetKindLib }

// IsTest reports whether the target is a test target.
func (t Target) IsTest() bool { return t.Kind == TargetKindTest }

// IsCairoPlugin reports whether the target is a procedural macro package.
func (t Target) IsCairoPlugin() bool { return t.Kind == TargetKindCairoPlugin }

// TestType returns the test-type param of a test target.
func (t Target) TestType() TestType {
	if s, ok := t.Params["test-type"].(string); ok {
		return TestType(s)
	}
	return TestTypeUnit
}

// SourceRoot returns the directory containing the target source file.
func (t Target) SourceRoot() string {
	return filepath.Dir(t.SourcePath)
}

// HasLibCairoRoot reports whether the source path is a lib.cairo file.
func (t Target) HasLibCairoRoot() bool {
	return filepath.Base(t.SourcePath) == "lib.cairo"
}

// BoolParam returns a boolean param or def.
func (t Target) BoolParam(key string, def bool) bool {
	if v, ok := t.Params[key].(bool); ok {
		return v
	}
	return def
}

// CompareTargets orders targets by kind then name then source path.
func CompareTargets(a, b Target) int {
	switch {
	case a.Kind != b.Kind:
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	case a.Name != b.Name:
		if a.Name < b.Name {
			return -1
		}
		return 1
	case a.SourcePath < b.SourcePath:
		return -1
	case a.SourcePath > b.SourcePath:
		return 1
	default:
		return 0
	}
}
