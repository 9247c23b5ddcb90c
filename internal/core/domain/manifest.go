package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// Edition selects language behavior of the Cairo compiler.
type Edition string

// Known editions.
const (
	Edition2023_01 Edition = "2023_01"
	Edition2023_10 Edition = "2023_10"
	Edition2023_11 Edition = "2023_11"
	Edition2024_07 Edition = "2024_07"
)

// DefaultEdition is used when a manifest does not declare one.
const DefaultEdition = Edition2023_01

var knownEditions = []Edition{Edition2023_01, Edition2023_10, Edition2023_11, Edition2024_07}

// ParseEdition validates an edition name.
func ParseEdition(s string) (Edition, error) {
	if s == "" {
		return DefaultEdition, nil
	}
	e := Edition(s)
	if !slices.Contains(knownEditions, e) {
		return "", zerr.With(zerr.Wrap(ErrInvalidEdition, "expected one of 2023_01, 2023_10, 2023_11, 2024_07"), "edition", s)
	}
	return e, nil
}

// Built-in profile names.
const (
	ProfileDev     = "dev"
	ProfileRelease = "release"
)

// CompilerConfig is the fully resolved [cairo] configuration of a compilation unit.
type CompilerConfig struct {
	SierraReplaceIDs bool   `json:"sierra_replace_ids"`
	EnableGas        bool   `json:"enable_gas"`
	InliningStrategy string `json:"inlining_strategy"`
	PanicBacktrace   bool   `json:"panic_backtrace"`
	UnsafePanic      bool   `json:"unsafe_panic"`
	AllowWarnings    bool   `json:"allow_warnings"`
	Incremental      bool   `json:"incremental"`
}

// DefaultCompilerConfig returns the built-in defaults for a profile.
func DefaultCompilerConfig(profile string) CompilerConfig {
	return CompilerConfig{
		SierraReplaceIDs: profile != ProfileRelease,
		EnableGas:        true,
		InliningStrategy: "default",
		AllowWarnings:    true,
		Incremental:      true,
	}
}

// CompilerConfigPatch is a partial [cairo] table; nil fields leave the base unchanged.
type CompilerConfigPatch struct {
	SierraReplaceIDs *bool
	EnableGas        *bool
	InliningStrategy *string
	PanicBacktrace   *bool
	UnsafePanic      *bool
	AllowWarnings    *bool
	Incremental      *bool
}

// Apply overlays p onto base.
func (p CompilerConfigPatch) Apply(base CompilerConfig) CompilerConfig {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.SierraReplaceIDs, p.SierraReplaceIDs)
	set(&base.EnableGas, p.EnableGas)
	set(&base.PanicBacktrace, p.PanicBacktrace)
	set(&base.UnsafePanic, p.UnsafePanic)
	set(&base.AllowWarnings, p.AllowWarnings)
	set(&base.Incremental, p.Incremental)
	if p.InliningStrategy != nil {
		base.InliningStrategy = *p.InliningStrategy
	}
	return base
}

// ProfileDefinition is a [profile.<name>] table.
type ProfileDefinition struct {
	Name     string
	Inherits string
	Cairo    CompilerConfigPatch
	Tool     map[string]any
}

// PackageMetadata holds descriptive [package] fields.
type PackageMetadata struct {
	Authors       []string          `json:"authors,omitempty"`
	Urls          map[string]string `json:"urls,omitempty"`
	Description   string            `json:"description,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Homepage      string            `json:"homepage,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	License       string            `json:"license,omitempty"`
	LicenseFile   string            `json:"license_file,omitempty"`
	Readme        string            `json:"readme,omitempty"`
	Repository    string            `json:"repository,omitempty"`
	CairoVersion  string            `json:"cairo_version,omitempty"`
	Custom        map[string]any    `json:"custom,omitempty"`
}

// Security is a [security] table.
type Security struct {
	RequireAudits bool
	AllowNoAudits []PackageName
}

// AllowsUnaudited reports whether name is whitelisted.
func (s Security) AllowsUnaudited(name PackageName) bool {
	return slices.Contains(s.AllowNoAudits, name)
}

// FeaturesDefinition maps each declared feature to the features it implies.
type FeaturesDefinition map[string][]string

// DefaultFeatureName is the feature enabled unless default features are disabled.
const DefaultFeatureName = "default"

// Manifest is a validated package manifest.
type Manifest struct {
	Summary              Summary
	Targets              []Target
	Edition              Edition
	Metadata             PackageMetadata
	Compiler             CompilerConfigPatch
	Features             FeaturesDefinition
	Tool                 map[string]any
	ExperimentalFeatures []string
	Scripts              map[string]string
	Security             Security
}
