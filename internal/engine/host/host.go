// Package host applies procedural macro expansions to Cairo sources.
//
// A Host is created per compilation unit from the plugins the unit depends on. It expands
// every file of a component to a fixpoint and hands the generated files to the compiler
// as virtual files. After the unit compiled, PostProcess forwards the aux data collected
// during expansion to the plugins that produced it.
package host

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// MaxPasses bounds the number of expansion passes over one file.
const MaxPasses = 64

// LoadedPlugin is a plugin library together with the package that provides it.
type LoadedPlugin struct {
	Package domain.PackageID
	Plugin  ports.Plugin
}

type registered struct {
	plugin    *pluginState
	expansion domain.Expansion
}

type pluginState struct {
	LoadedPlugin
	mu        sync.Mutex
	used      bool
	auxData   []domain.AuxDataEntry
	fullPaths map[string]bool
}

// Host dispatches expansions to plugins.
type Host struct {
	logger  ports.Logger
	plugins []*pluginState
	attrs   map[string]registered
	derives map[string]registered
	inline  map[string]registered
	exec    []string
}

// New registers the expansions of plugins. An expansion name defined twice is an error.
func New(plugins []LoadedPlugin, logger ports.Logger) (*Host, error) {
	h := &Host{
		logger:  logger,
		attrs:   make(map[string]registered),
		derives: make(map[string]registered),
		inline:  make(map[string]registered),
	}
	owners := make(map[string]domain.PackageID)
	for _, p := range plugins {
		state := &pluginState{LoadedPlugin: p, fullPaths: make(map[string]bool)}
		h.plugins = append(h.plugins, state)
		for _, e := range p.Plugin.Expansions() {
			name := e.ExpansionName()
			if owner, ok := owners[name]; ok {
				return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrDuplicateExpansion, name),
					"first", owner.String()), "second", p.Package.String())
			}
			owners[name] = p.Package
			reg := registered{plugin: state, expansion: e}
			switch e.Kind {
			case domain.ExpansionDerive:
				h.derives[name] = reg
			case domain.ExpansionInline:
				h.inline[name] = reg
			default:
				h.attrs[name] = reg
				if e.Kind == domain.ExpansionExecutable || strings.HasPrefix(e.Name, domain.ExecutableAttrPrefix) {
					h.exec = append(h.exec, name)
				}
			}
		}
	}
	slices.Sort(h.exec)
	return h, nil
}

// IsEmpty reports whether no plugin is registered.
func (h *Host) IsEmpty() bool {
	return len(h.plugins) == 0
}

// ExecutableAttributes lists attributes the compiler must treat as executable entry points.
func (h *Host) ExecutableAttributes() []string {
	return slices.Clone(h.exec)
}

// FullPathRequests lists the item names whose resolved paths plugins asked for.
func (h *Host) FullPathRequests() []string {
	var out []string
	for _, p := range h.plugins {
		p.mu.Lock()
		for key := range p.fullPaths {
			out = append(out, key)
		}
		p.mu.Unlock()
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PostProcess calls every plugin that took part in an expansion with its aux data and
// the resolved full paths it requested.
func (h *Host) PostProcess(markers []domain.FullPathMarker) error {
	for _, p := range h.plugins {
		p.mu.Lock()
		used := p.used
		ctx := domain.PostProcessContext{AuxData: slices.Clone(p.auxData)}
		for _, m := range markers {
			if p.fullPaths[m.Key] {
				ctx.FullPathMarkers = append(ctx.FullPathMarkers, m)
			}
		}
		p.mu.Unlock()
		if !used {
			continue
		}
		if err := p.Plugin.PostProcess(ctx); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrExpansionFailed.Error()), "plugin", p.Package.String())
		}
	}
	return nil
}

// call runs one expansion and records its side outputs.
func (h *Host) call(reg registered, req ports.ExpandRequest, file string) (*domain.ProcMacroResult, error) {
	req.Kind = reg.expansion.Kind
	if req.Kind == domain.ExpansionExecutable {
		req.Kind = domain.ExpansionAttribute
	}
	req.Name = reg.expansion.Name
	h.logger.Debug(fmt.Sprintf("expanding %s macro %s in %s", req.Kind, req.Name, file))

	res, err := reg.plugin.Plugin.Expand(req)
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(err, domain.ErrExpansionFailed.Error()),
			"macro", reg.expansion.Name), "plugin", reg.plugin.Package.String())
	}

	p := reg.plugin
	p.mu.Lock()
	p.used = true
	if len(res.AuxData) > 0 {
		p.auxData = append(p.auxData, domain.AuxDataEntry{Expansion: reg.expansion, File: file, Data: res.AuxData})
	}
	for _, key := range res.FullPathMarkers {
		p.fullPaths[key] = true
	}
	p.mu.Unlock()
	return res, nil
}

// DefinedMacros lists the expansions of every plugin, grouped by package.
func (h *Host) DefinedMacros() []DefinedMacros {
	out := make([]DefinedMacros, 0, len(h.plugins))
	for _, p := range h.plugins {
		d := DefinedMacros{Package: p.Package.String()}
		for _, e := range p.Plugin.Expansions() {
			name := e.ExpansionName()
			switch e.Kind {
			case domain.ExpansionDerive:
				d.Derives = append(d.Derives, name)
			case domain.ExpansionInline:
				d.Inline = append(d.Inline, name)
			default:
				d.Attributes = append(d.Attributes, name)
				if slices.Contains(h.exec, name) {
					d.Executables = append(d.Executables, name)
				}
			}
		}
		out = append(out, d)
	}
	return out
}

// DefinedMacros are the expansions exposed by one plugin package.
type DefinedMacros struct {
	Package     string   `json:"package"`
	Attributes  []string `json:"attributes"`
	Derives     []string `json:"derives"`
	Inline      []string `json:"inline_macros"`
	Executables []string `json:"executables"`
}

// ExpandAttribute runs the attribute macro name on item.
func (h *Host) ExpandAttribute(name string, args, item domain.TokenStream, callSite domain.TextSpan) (*domain.ProcMacroResult, error) {
	reg, ok := h.attrs[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrExpansionFailed, "unknown attribute macro"), "macro", name)
	}
	return h.call(reg, ports.ExpandRequest{CallSite: callSite, Args: args, Item: item}, item.Metadata.OriginalFilePath)
}

// ExpandDerive runs every derive in names on item and concatenates their outputs.
func (h *Host) ExpandDerive(names []string, item domain.TokenStream, callSite domain.TextSpan) (*domain.ProcMacroResult, error) {
	out := &domain.ProcMacroResult{}
	for _, name := range names {
		reg, ok := h.derives[name]
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrExpansionFailed, "unknown derive macro"), "macro", name)
		}
		res, err := h.call(reg, ports.ExpandRequest{CallSite: callSite, Item: item}, item.Metadata.OriginalFilePath)
		if err != nil {
			return nil, err
		}
		out.TokenStream.Tokens = append(out.TokenStream.Tokens, res.TokenStream.Tokens...)
		out.Diagnostics = append(out.Diagnostics, res.Diagnostics...)
		out.AuxData = append(out.AuxData, res.AuxData...)
		out.FullPathMarkers = append(out.FullPathMarkers, res.FullPathMarkers...)
	}
	return out, nil
}

// ExpandInline runs the inline macro name on args.
func (h *Host) ExpandInline(name string, args domain.TokenStream, callSite domain.TextSpan) (*domain.ProcMacroResult, error) {
	reg, ok := h.inline[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrExpansionFailed, "unknown inline macro"), "macro", name)
	}
	return h.call(reg, ports.ExpandRequest{CallSite: callSite, Args: args}, args.Metadata.OriginalFilePath)
}

// Providers returns the packages that define the named expansions of kind, deduplicated.
func (h *Host) Providers(kind domain.ExpansionKind, names ...string) []domain.PackageID {
	table := h.attrs
	switch kind {
	case domain.ExpansionDerive:
		table = h.derives
	case domain.ExpansionInline:
		table = h.inline
	}
	var out []domain.PackageID
	for _, name := range names {
		if reg, ok := table[name]; ok && !slices.Contains(out, reg.plugin.Package) {
			out = append(out, reg.plugin.Package)
		}
	}
	return out
}
