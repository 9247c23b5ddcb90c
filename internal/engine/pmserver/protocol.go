package pmserver

import (
	"encoding/json"

	"go.trai.ch/scarb/internal/core/domain"
)

// Methods understood by the server.
const (
	MethodDefinedMacros   = "definedMacros"
	MethodExpandAttribute = "expandAttribute"
	MethodExpandDerive    = "expandDerive"
	MethodExpandInline    = "expandInline"
)

// Request is one line read from the client.
type Request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Response answers the request with the same ID. Exactly one of Value and Error is set.
type Response struct {
	ID    uint64 `json:"id"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Component identifies a compilation unit component the client expands code for.
type Component struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator,omitempty"`
}

// Scope selects the macros available to a request.
type Scope struct {
	Component Component `json:"component"`
}

// DefinedMacrosResponse lists the macros of every component with procedural macros.
type DefinedMacrosResponse struct {
	MacrosForComponents []ComponentMacros `json:"macros_for_cu_components"`
}

// ComponentMacros are the macros available to one component.
type ComponentMacros struct {
	Component    Component `json:"component"`
	Attributes   []string  `json:"attributes"`
	InlineMacros []string  `json:"inline_macros"`
	Derives      []string  `json:"derives"`
	Executables  []string  `json:"executables"`
	DebugInfo    DebugInfo `json:"debug_info"`
}

// DebugInfo names the plugin packages behind a component's macros.
type DebugInfo struct {
	SourcePackages []string `json:"source_packages"`
}

// ExpandAttributeParams are the parameters of expandAttribute.
type ExpandAttributeParams struct {
	Context  Scope              `json:"context"`
	Attr     string             `json:"attr"`
	Args     domain.TokenStream `json:"args"`
	Item     domain.TokenStream `json:"item"`
	CallSite domain.TextSpan    `json:"call_site"`
}

// ExpandDeriveParams are the parameters of expandDerive.
type ExpandDeriveParams struct {
	Context  Scope              `json:"context"`
	Derives  []string           `json:"derives"`
	Item     domain.TokenStream `json:"item"`
	CallSite domain.TextSpan    `json:"call_site"`
}

// ExpandInlineParams are the parameters of expandInline.
type ExpandInlineParams struct {
	Context  Scope              `json:"context"`
	Name     string             `json:"name"`
	Args     domain.TokenStream `json:"args"`
	CallSite domain.TextSpan    `json:"call_site"`
}

// ExpandResult is the response of every expand method.
type ExpandResult struct {
	TokenStream  domain.TokenStream   `json:"token_stream"`
	Diagnostics  []domain.Diagnostic  `json:"diagnostics"`
	CodeMappings []domain.CodeMapping `json:"code_mappings,omitempty"`
	PackageIDs   []string             `json:"package_ids"`
}
