package domain

import (
	"strings"
	"unicode"
)

// TextSpan is a half-open byte range [Start, End) into a source file.
type TextSpan struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Width returns End - Start.
func (s TextSpan) Width() uint32 {
	return s.End - s.Start
}

// Token is a piece of source text with its original location.
type Token struct {
	Content string   `json:"content"`
	Span    TextSpan `json:"span"`
}

// TokenStreamMetadata describes the file a token stream came from.
type TokenStreamMetadata struct {
	OriginalFilePath string `json:"original_file_path,omitempty"`
	FileID           string `json:"file_id,omitempty"`
	Edition          string `json:"edition,omitempty"`
}

// TokenStream is the unit of exchange with procedural macros.
type TokenStream struct {
	Tokens   []Token             `json:"tokens"`
	Metadata TokenStreamMetadata `json:"metadata"`
}

// String concatenates token contents.
func (ts TokenStream) String() string {
	var b strings.Builder
	for _, t := range ts.Tokens {
		b.WriteString(t.Content)
	}
	return b.String()
}

// IsEmpty reports whether the stream has no content.
func (ts TokenStream) IsEmpty() bool {
	return ts.String() == ""
}

// ExpansionKind is the kind of procedural macro operation.
type ExpansionKind string

// Expansion kinds.
const (
	ExpansionAttribute  ExpansionKind = "attr"
	ExpansionDerive     ExpansionKind = "derive"
	ExpansionInline     ExpansionKind = "inline"
	ExpansionExecutable ExpansionKind = "executable"
)

// ExecutableAttrPrefix marks attribute expansions that are also compiler-executable attributes.
const ExecutableAttrPrefix = "__exec_attr_"

// Expansion is one operation exposed by a plugin.
type Expansion struct {
	Name string        `json:"name"`
	Kind ExpansionKind `json:"kind"`
}

// ExpansionName returns the name used to match invocations in source.
// Executable attributes drop the reserved prefix and derives are matched in UpperCamelCase.
func (e Expansion) ExpansionName() string {
	name := strings.TrimPrefix(e.Name, ExecutableAttrPrefix)
	if e.Kind == ExpansionDerive {
		return SnakeToUpperCamel(name)
	}
	return name
}

// SnakeToUpperCamel converts snake_case to UpperCamelCase.
func SnakeToUpperCamel(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Severity of a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a message attached to an expansion or compilation.
type Diagnostic struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Span     *TextSpan `json:"span,omitempty"`
	File     string    `json:"file,omitempty"`
}

// OriginKind tags a CodeOrigin.
type OriginKind string

// Origin kinds.
const (
	OriginStart    OriginKind = "start"
	OriginSpan     OriginKind = "span"
	OriginCallSite OriginKind = "call_site"
)

// CodeOrigin points from generated code back to input code.
type CodeOrigin struct {
	Kind  OriginKind `json:"kind"`
	Span  TextSpan   `json:"span"`
	Start uint32     `json:"start,omitempty"`
}

// CodeMapping maps a span of generated code to its origin.
type CodeMapping struct {
	Span   TextSpan   `json:"span"`
	Origin CodeOrigin `json:"origin"`
}

// FullPathMarker asks the host to report the resolved Cairo path of an item after compilation.
type FullPathMarker struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// ProcMacroResult is the outcome of one expansion.
type ProcMacroResult struct {
	TokenStream     TokenStream   `json:"token_stream"`
	Diagnostics     []Diagnostic  `json:"diagnostics,omitempty"`
	AuxData         []byte        `json:"aux_data,omitempty"`
	FullPathMarkers []string      `json:"full_path_markers,omitempty"`
	CodeMappings    []CodeMapping `json:"code_mappings,omitempty"`
}

// HasErrors reports whether any diagnostic is an error.
func (r ProcMacroResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// AuxDataEntry pairs aux data with the expansion that produced it.
type AuxDataEntry struct {
	Expansion Expansion `json:"expansion"`
	File      string    `json:"file"`
	Data      []byte    `json:"data"`
}

// PostProcessContext is passed to plugins after a unit compiled successfully.
type PostProcessContext struct {
	AuxData         []AuxDataEntry   `json:"aux_data"`
	FullPathMarkers []FullPathMarker `json:"full_path_markers"`
}
