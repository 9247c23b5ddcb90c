// Package pmserver serves procedural macro expansions to editors over line-delimited JSON.
//
// Every request and response is one JSON document on its own line. Requests are handled
// concurrently, so responses may arrive out of order and are matched to requests by ID.
package pmserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/host"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single request line.
const maxLineSize = 64 << 20

type scope struct {
	component Component
	host      *host.Host
}

// Server dispatches requests to the macro host of the component they name.
type Server struct {
	logger ports.Logger
	jobs   int
	scopes map[string]*scope
	order  []string
}

// New creates a Server without any scope.
func New(logger ports.Logger) *Server {
	return &Server{logger: logger, jobs: runtime.NumCPU(), scopes: make(map[string]*scope)}
}

// FromUnits registers a scope for every Cairo component that depends on a loaded plugin.
func FromUnits(units []domain.CompilationUnit, plugins map[domain.PackageID]ports.Plugin, logger ports.Logger) (*Server, error) {
	s := New(logger)
	for _, unit := range units {
		u, ok := unit.(*domain.CairoCompilationUnit)
		if !ok {
			continue
		}
		for _, c := range u.Components {
			id := c.ID.String()
			if _, seen := s.scopes[id]; seen {
				continue
			}
			var loaded []host.LoadedPlugin
			for _, ref := range u.CairoPlugins {
				if ref.Builtin || !dependsOn(c, ref.ComponentID) {
					continue
				}
				if p, ok := plugins[ref.Package.ID]; ok {
					loaded = append(loaded, host.LoadedPlugin{Package: ref.Package.ID, Plugin: p})
				}
			}
			if len(loaded) == 0 {
				continue
			}
			h, err := host.New(loaded, logger)
			if err != nil {
				return nil, zerr.With(err, "component", id)
			}
			s.Register(Component{ID: id, Name: c.CairoName, Discriminator: c.ID.Discriminator()}, h)
		}
	}
	return s, nil
}

func dependsOn(c *domain.CompilationUnitComponent, id domain.ComponentID) bool {
	return slices.ContainsFunc(c.Dependencies, func(d domain.CompilationUnitDependency) bool {
		return d.Kind == domain.EdgePlugin && d.ID == id
	})
}

// Register makes the expansions of h available to requests scoped to c.
func (s *Server) Register(c Component, h *host.Host) {
	if _, ok := s.scopes[c.ID]; !ok {
		s.order = append(s.order, c.ID)
		slices.Sort(s.order)
	}
	s.scopes[c.ID] = &scope{component: c, host: h}
}

// Serve answers requests read from in until in is exhausted. A line that is not a request
// stops the server after the requests in flight are answered.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	write := func(resp Response) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(resp)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for sc.Scan() {
		if gctx.Err() != nil {
			break
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = g.Wait()
			return zerr.Wrap(domain.ErrMalformedServerRequest, err.Error())
		}
		g.Go(func() error {
			if err := write(s.Handle(req)); err != nil {
				return zerr.Wrap(err, "failed to write response")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return zerr.Wrap(err, "failed to read request")
	}
	return ctx.Err()
}

// Handle answers a single request. Failures are reported in the response.
func (s *Server) Handle(req Request) Response {
	value, err := s.dispatch(req)
	if err != nil {
		s.logger.Debug(fmt.Sprintf("request %d (%s) failed: %v", req.ID, req.Method, err))
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Value: value}
}

func (s *Server) dispatch(req Request) (any, error) {
	switch req.Method {
	case MethodDefinedMacros:
		return s.definedMacros(), nil

	case MethodExpandAttribute:
		var p ExpandAttributeParams
		sc, err := s.decode(req, &p, func() Scope { return p.Context })
		if err != nil {
			return nil, err
		}
		res, err := sc.host.ExpandAttribute(p.Attr, p.Args, p.Item, p.CallSite)
		return expandResult(res, sc.host.Providers(domain.ExpansionAttribute, p.Attr), err)

	case MethodExpandDerive:
		var p ExpandDeriveParams
		sc, err := s.decode(req, &p, func() Scope { return p.Context })
		if err != nil {
			return nil, err
		}
		res, err := sc.host.ExpandDerive(p.Derives, p.Item, p.CallSite)
		return expandResult(res, sc.host.Providers(domain.ExpansionDerive, p.Derives...), err)

	case MethodExpandInline:
		var p ExpandInlineParams
		sc, err := s.decode(req, &p, func() Scope { return p.Context })
		if err != nil {
			return nil, err
		}
		res, err := sc.host.ExpandInline(p.Name, p.Args, p.CallSite)
		return expandResult(res, sc.host.Providers(domain.ExpansionInline, p.Name), err)

	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownServerMethod, ""), "method", req.Method)
	}
}

// decode unmarshals the request parameters into params and returns the scope they name.
func (s *Server) decode(req Request, params any, scopeOf func() Scope) (*scope, error) {
	if err := json.Unmarshal(req.Value, params); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrMalformedServerRequest, err.Error()), "method", req.Method)
	}
	c := scopeOf().Component
	sc, ok := s.scopes[c.ID]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownMacroScope, ""), "component", c.ID)
	}
	return sc, nil
}

func expandResult(res *domain.ProcMacroResult, providers []domain.PackageID, err error) (*ExpandResult, error) {
	if err != nil {
		return nil, err
	}
	out := &ExpandResult{
		TokenStream:  res.TokenStream,
		Diagnostics:  res.Diagnostics,
		CodeMappings: res.CodeMappings,
		PackageIDs:   make([]string, 0, len(providers)),
	}
	if out.TokenStream.Tokens == nil {
		out.TokenStream.Tokens = []domain.Token{}
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []domain.Diagnostic{}
	}
	for _, id := range providers {
		out.PackageIDs = append(out.PackageIDs, id.SerializedString())
	}
	return out, nil
}

func (s *Server) definedMacros() *DefinedMacrosResponse {
	resp := &DefinedMacrosResponse{MacrosForComponents: make([]ComponentMacros, 0, len(s.order))}
	for _, id := range s.order {
		sc := s.scopes[id]
		m := ComponentMacros{
			Component:    sc.component,
			Attributes:   []string{},
			InlineMacros: []string{},
			Derives:      []string{},
			Executables:  []string{},
			DebugInfo:    DebugInfo{SourcePackages: []string{}},
		}
		for _, d := range sc.host.DefinedMacros() {
			m.Attributes = append(m.Attributes, d.Attributes...)
			m.InlineMacros = append(m.InlineMacros, d.Inline...)
			m.Derives = append(m.Derives, d.Derives...)
			m.Executables = append(m.Executables, d.Executables...)
			m.DebugInfo.SourcePackages = append(m.DebugInfo.SourcePackages, d.Package)
		}
		for _, names := range [][]string{m.Attributes, m.InlineMacros, m.Derives, m.Executables} {
			slices.Sort(names)
		}
		resp.MacrosForComponents = append(resp.MacrosForComponents, m)
	}
	return resp
}
