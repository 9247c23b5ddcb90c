package domain

// CrateSettings are the per-crate settings handed to the compiler.
type CrateSettings struct {
	Name                 string   `json:"name"`
	Discriminator        string   `json:"discriminator,omitempty"`
	Edition              Edition  `json:"edition"`
	Version              string   `json:"version"`
	CfgSet               []string `json:"cfg_set,omitempty"`
	ExperimentalFeatures []string `json:"experimental_features,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	BuiltinPlugins       []string `json:"builtin_plugins,omitempty"`
}

// CrateRoot binds a crate name to its root directory.
type CrateRoot struct {
	Name  string        `json:"name"`
	Root  string        `json:"root"`
	Crate CrateSettings `json:"settings"`
}

// VirtualFile is a file injected into the compiler database without touching disk.
type VirtualFile struct {
	Path         string        `json:"path"`
	Content      string        `json:"content"`
	CodeMappings []CodeMapping `json:"code_mappings,omitempty"`
	Note         string        `json:"diagnostics_note,omitempty"`
}

// CompileRequest is the compiler database description for one compilation unit.
type CompileRequest struct {
	UnitID               string         `json:"unit_id"`
	MainCrate            string         `json:"main_crate"`
	TargetKind           TargetKind     `json:"target_kind"`
	TargetName           string         `json:"target_name"`
	TargetParams         map[string]any `json:"target_params,omitempty"`
	Crates               []CrateRoot    `json:"crates"`
	VirtualFiles         []VirtualFile  `json:"virtual_files,omitempty"`
	CompilerConfig       CompilerConfig `json:"compiler_config"`
	ExecutableAttributes []string       `json:"executable_attributes,omitempty"`
	OutputDir            string         `json:"output_dir"`
	Lint                 bool           `json:"lint,omitempty"`
	CheckOnly            bool           `json:"check_only,omitempty"`
}

// CompiledArtifact is one output file produced by the compiler.
type CompiledArtifact struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// CompileResult is the compiler's answer for one unit.
type CompileResult struct {
	Diagnostics     []Diagnostic       `json:"diagnostics,omitempty"`
	Artifacts       []CompiledArtifact `json:"artifacts,omitempty"`
	FullPathMarkers []FullPathMarker   `json:"full_path_markers,omitempty"`
}

// HasErrors reports whether any diagnostic is an error.
func (r *CompileResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns warning diagnostics.
func (r *CompileResult) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// IncrementalArtifact is what the driver persists per component to skip later compilations.
type IncrementalArtifact struct {
	UnitID    string             `cbor:"1,keyasint"`
	Digest    string             `cbor:"2,keyasint"`
	Artifacts []CompiledArtifact `cbor:"3,keyasint"`
	Warnings  []Diagnostic       `cbor:"4,keyasint"`
}
