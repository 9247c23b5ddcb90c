// Package procmacro loads procedural macro plugin libraries and builds them with cargo.
package procmacro

import (
	"encoding/json"
	"strings"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// Exported symbol names.
const (
	symABIVersion     = "scarb_proc_macro_abi_version"
	symListExpansions = "scarb_proc_macro_list_expansions"
	symExpand         = "scarb_proc_macro_expand"
	symPostProcess    = "scarb_proc_macro_post_process"
	symDoc            = "scarb_proc_macro_doc"
	symFree           = "scarb_proc_macro_free"
	symFingerprint    = "scarb_proc_macro_fingerprint"
)

// Supported ABI generations.
const (
	ABIv1 uint32 = 1
	ABIv2 uint32 = 2
)

// vtable is the set of library entry points with C strings already copied
// into Go memory and released through the library's free function.
type vtable struct {
	abiVersion     func() uint32
	listExpansions func() string
	expand         func(kind, name, callSite, args, item string) string
	postProcess    func(context string) string
	doc            func(name string) (string, bool)
	// fingerprint is nil for ABI v1.
	fingerprint func() uint64
}

var _ ports.Plugin = (*Plugin)(nil)

// Plugin is a loaded procedural macro library.
type Plugin struct {
	path       string
	version    uint32
	expansions []domain.Expansion
	vt         vtable
}

func newPlugin(path string, vt vtable) (*Plugin, error) {
	version := vt.abiVersion()
	if version != ABIv1 && version != ABIv2 {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginUnsupportedABI, ""), "version", version), "path", path)
	}
	if version == ABIv2 && vt.fingerprint == nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginSymbolMissing, ""), "symbol", symFingerprint), "path", path)
	}

	var expansions []domain.Expansion
	if err := json.Unmarshal([]byte(vt.listExpansions()), &expansions); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrPluginLoadFailed.Error()), "path", path)
	}
	seen := make(map[string]bool, len(expansions))
	for _, e := range expansions {
		if seen[e.Name] {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateExpansion, ""), "expansion", e.Name), "path", path)
		}
		seen[e.Name] = true
	}

	return &Plugin{path: path, version: version, expansions: expansions, vt: vt}, nil
}

// Path returns the canonical library path.
func (p *Plugin) Path() string { return p.path }

// ABIVersion returns 1 or 2.
func (p *Plugin) ABIVersion() uint32 { return p.version }

// Expansions lists the plugin operations.
func (p *Plugin) Expansions() []domain.Expansion { return p.expansions }

// Fingerprint returns the plugin-defined fingerprint, zero for ABI v1.
func (p *Plugin) Fingerprint() uint64 {
	if p.vt.fingerprint == nil {
		return 0
	}
	return p.vt.fingerprint()
}

// Doc returns the documentation of an expansion.
func (p *Plugin) Doc(name string) (string, bool) {
	return p.vt.doc(name)
}

// v1Result is the expansion result of ABI v1 libraries, which exchange plain source text.
type v1Result struct {
	TokenStream string              `json:"token_stream"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
	AuxData     []byte              `json:"aux_data,omitempty"`
	FullPath    []string            `json:"full_path_markers,omitempty"`
}

// Expand runs one expansion.
func (p *Plugin) Expand(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
	if p.version == ABIv1 {
		return p.expandV1(req)
	}

	callSite, err := json.Marshal(req.CallSite)
	if err != nil {
		return nil, err
	}
	args, err := json.Marshal(req.Args)
	if err != nil {
		return nil, err
	}
	item, err := json.Marshal(req.Item)
	if err != nil {
		return nil, err
	}

	raw := p.vt.expand(string(req.Kind), req.Name, string(callSite), string(args), string(item))
	var result domain.ProcMacroResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, p.decodeError(err, req.Name)
	}
	return &result, nil
}

func (p *Plugin) expandV1(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
	raw := p.vt.expand(string(req.Kind), req.Name, "", req.Args.String(), req.Item.String())
	var v1 v1Result
	if err := json.Unmarshal([]byte(raw), &v1); err != nil {
		return nil, p.decodeError(err, req.Name)
	}

	result := &domain.ProcMacroResult{
		Diagnostics:     v1.Diagnostics,
		AuxData:         v1.AuxData,
		FullPathMarkers: v1.FullPath,
		TokenStream:     domain.TokenStream{Metadata: req.Item.Metadata},
	}
	if v1.TokenStream != "" {
		// Without spans every generated token maps to the call site.
		result.TokenStream.Tokens = []domain.Token{{Content: v1.TokenStream, Span: req.CallSite}}
	}
	return result, nil
}

// PostProcess forwards aggregated data to the plugin.
func (p *Plugin) PostProcess(ctx domain.PostProcessContext) error {
	payload, err := json.Marshal(ctx)
	if err != nil {
		return err
	}
	raw := strings.TrimSpace(p.vt.postProcess(string(payload)))
	if raw == "" || raw == "null" {
		return nil
	}

	var diagnostics []domain.Diagnostic
	if err := json.Unmarshal([]byte(raw), &diagnostics); err != nil {
		return p.decodeError(err, "post_process")
	}
	for _, d := range diagnostics {
		if d.Severity == domain.SeverityError {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrExpansionFailed, d.Message), "plugin", p.path), "stage", "post_process")
		}
	}
	return nil
}

func (p *Plugin) decodeError(err error, expansion string) error {
	return zerr.With(zerr.With(zerr.Wrap(err, "plugin returned malformed data"), "plugin", p.path), "expansion", expansion)
}
