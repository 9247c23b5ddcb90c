package host_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.trai.ch/scarb/internal/engine/host"
	"go.uber.org/mock/gomock"
)

type fakePlugin struct {
	expansions []domain.Expansion
	expand     func(req ports.ExpandRequest) (*domain.ProcMacroResult, error)
	requests   []ports.ExpandRequest
	processed  []domain.PostProcessContext
}

func (p *fakePlugin) Path() string                   { return "/plugins/libfake.so" }
func (p *fakePlugin) ABIVersion() uint32             { return 2 }
func (p *fakePlugin) Expansions() []domain.Expansion { return p.expansions }
func (p *fakePlugin) Doc(string) (string, bool)      { return "", false }
func (p *fakePlugin) Fingerprint() uint64            { return 0 }

func (p *fakePlugin) Expand(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
	p.requests = append(p.requests, req)
	return p.expand(req)
}

func (p *fakePlugin) PostProcess(ctx domain.PostProcessContext) error {
	p.processed = append(p.processed, ctx)
	return nil
}

func text(s string) domain.TokenStream {
	return domain.TokenStream{Tokens: []domain.Token{{Content: s}}}
}

func result(s string) *domain.ProcMacroResult {
	return &domain.ProcMacroResult{TokenStream: text(s)}
}

func attr(name string) domain.Expansion {
	return domain.Expansion{Name: name, Kind: domain.ExpansionAttribute}
}

func newHost(t *testing.T, plugins ...*fakePlugin) *host.Host {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()

	loaded := make([]host.LoadedPlugin, 0, len(plugins))
	for i, p := range plugins {
		name := domain.PackageName("macros" + strings.Repeat("x", i))
		id := domain.NewPackageID(name, domain.MustParseVersion("0.1.0"), domain.DefaultRegistrySourceID())
		loaded = append(loaded, host.LoadedPlugin{Package: id, Plugin: p})
	}
	h, err := host.New(loaded, logger)
	require.NoError(t, err)
	return h
}

func expand(t *testing.T, h *host.Host, src string) *host.FileExpansion {
	t.Helper()
	out, err := h.ExpandFile("/ws/src/lib.cairo", src, domain.Edition2024_07)
	require.NoError(t, err)
	return out
}

func TestNew_DuplicateExpansions(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	a := &fakePlugin{expansions: []domain.Expansion{attr("foo")}}
	b := &fakePlugin{expansions: []domain.Expansion{{Name: "foo", Kind: domain.ExpansionInline}}}

	_, err := host.New([]host.LoadedPlugin{
		{Package: domain.NewPackageID("a", domain.MustParseVersion("1.0.0"), domain.DefaultRegistrySourceID()), Plugin: a},
		{Package: domain.NewPackageID("b", domain.MustParseVersion("1.0.0"), domain.DefaultRegistrySourceID()), Plugin: b},
	}, logger)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrDuplicateExpansion.Error())
	assert.ErrorContains(t, err, "foo")
}

func TestExecutableAttributes(t *testing.T) {
	h := newHost(t, &fakePlugin{expansions: []domain.Expansion{
		attr(domain.ExecutableAttrPrefix + "main"),
		{Name: "entry", Kind: domain.ExpansionExecutable},
		attr("plain"),
	}})

	assert.Equal(t, []string{"entry", "main"}, h.ExecutableAttributes())
	macros := h.DefinedMacros()
	require.Len(t, macros, 1)
	assert.ElementsMatch(t, []string{"main", "entry", "plain"}, macros[0].Attributes)
	assert.ElementsMatch(t, []string{"main", "entry"}, macros[0].Executables)
}

func TestExpandFile_WithoutMacros(t *testing.T) {
	p := &fakePlugin{expansions: []domain.Expansion{attr("wrap")}}
	h := newHost(t, p)

	out := expand(t, h, "#[inline]\nfn f() {}\n")
	assert.Nil(t, out.File)
	assert.Empty(t, p.requests)
}

func TestExpandFile_Attribute(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("fn wrapped() {}"), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "use a::b;\n#[wrap(42)]\nfn f() {}\n")
	require.NotNil(t, out.File)
	assert.Equal(t, "use a::b;\nfn wrapped() {}\n", out.File.Content)
	assert.Equal(t, "/ws/src/lib.cairo", out.File.Path)
	assert.Equal(t, "this error originates in the attribute macro: `wrap`", out.File.Note)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, domain.ExpansionAttribute, req.Kind)
	assert.Equal(t, "wrap", req.Name)
	assert.Equal(t, "42", req.Args.String())
	assert.Equal(t, "fn f() {}", req.Item.String())
	assert.Equal(t, domain.TextSpan{Start: 10, End: 21}, req.CallSite)
	assert.Equal(t, "/ws/src/lib.cairo", req.Item.Metadata.OriginalFilePath)
	assert.Equal(t, "2024_07", req.Item.Metadata.Edition)
}

func TestExpandFile_AttributeSpansAreAdapted(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			res := result(req.Item.String())
			res.AuxData = []byte("seen")
			return res, nil
		},
	}
	h := newHost(t, p)

	// `#[doc]\n` is [0, 7), `#[wrap]\n` is [7, 15), `fn` starts at 15.
	out := expand(t, h, "#[doc]\n#[wrap]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "#[doc]\nfn f() {}", out.File.Content)

	req := p.requests[0]
	assert.Equal(t, domain.TextSpan{Start: 0, End: 7}, req.CallSite)
	first := req.Item.Tokens[0]
	assert.Equal(t, "#", first.Content)
	assert.Equal(t, domain.TextSpan{Start: 8, End: 9}, first.Span)
	var fn domain.Token
	for _, tok := range req.Item.Tokens {
		if tok.Content == "fn" {
			fn = tok
		}
	}
	assert.Equal(t, domain.TextSpan{Start: 15, End: 17}, fn.Span)
}

func TestExpandFile_CodeMappingsPointIntoOriginalFile(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			res := result(req.Item.String())
			res.AuxData = []byte("seen")
			res.CodeMappings = []domain.CodeMapping{{
				Span:   domain.TextSpan{Start: 0, End: 9},
				Origin: domain.CodeOrigin{Kind: domain.OriginSpan, Span: domain.TextSpan{Start: 8, End: 17}},
			}}
			return res, nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[wrap]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn f() {}", out.File.Content)
	assert.Equal(t, []domain.CodeMapping{{
		Span:   domain.TextSpan{Start: 0, End: 9},
		Origin: domain.CodeOrigin{Kind: domain.OriginSpan, Span: domain.TextSpan{Start: 8, End: 17}},
	}}, out.File.CodeMappings)
}

func TestExpandFile_UnmappedOutputPointsAtCallSite(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("fn g() {}"), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "fn a() {}\n#[wrap]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn a() {}\nfn g() {}", out.File.Content)
	assert.Equal(t, []domain.CodeMapping{
		{
			Span:   domain.TextSpan{Start: 0, End: 10},
			Origin: domain.CodeOrigin{Kind: domain.OriginSpan, Span: domain.TextSpan{Start: 0, End: 10}},
		},
		{
			Span:   domain.TextSpan{Start: 10, End: 19},
			Origin: domain.CodeOrigin{Kind: domain.OriginCallSite, Span: domain.TextSpan{Start: 10, End: 17}},
		},
	}, out.File.CodeMappings)
}

func TestExpandFile_AttributeDiagnosticsStayOnTheAttribute(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			span := domain.TextSpan{Start: 0, End: 8}
			return &domain.ProcMacroResult{
				TokenStream: text("fn g() {}"),
				Diagnostics: []domain.Diagnostic{{Message: "check arguments", Severity: domain.SeverityWarning, Span: &span}},
			}, nil
		},
	}
	h := newHost(t, p)

	// `#[wrap]` is [7, 14) and the newline after it is trivia.
	out := expand(t, h, "#[doc]\n#[wrap]\nfn f() {}")
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, &domain.TextSpan{Start: 7, End: 14}, out.Diagnostics[0].Span)
}

func TestExpandFile_UnchangedItemKeepsTheFile(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("noop")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result(req.Item.String()), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[noop]\nfn f() {}")
	assert.Nil(t, out.File)
	assert.Empty(t, out.Diagnostics)
	assert.Len(t, p.requests, 1)
}

func TestExpandFile_UnchangedItemWithAuxDataIsRewritten(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("track")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			res := result(req.Item.String())
			res.AuxData = []byte("entry")
			return res, nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[track]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn f() {}", out.File.Content)
}

func TestExpandFile_UnchangedItemWithMoreAttributesIsRewritten(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("noop"), attr("rename")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			if req.Name == "rename" {
				return result(strings.Replace(req.Item.String(), "f()", "g()", 1)), nil
			}
			return result(req.Item.String()), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[noop]\n#[rename]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn g() {}", out.File.Content)
	assert.Len(t, p.requests, 2)
}

func TestExpandFile_Derive(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{{Name: "my_derive", Kind: domain.ExpansionDerive}},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("impl SDerived of Derived<S> {}"), nil
		},
	}
	h := newHost(t, p)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "mixed with builtin derives",
			src:  "#[derive(Drop, MyDerive)]\nstruct S {}",
			want: "#[derive(Drop)]\nstruct S {}\nimpl SDerived of Derived<S> {}",
		},
		{
			name: "only plugin derives",
			src:  "#[derive(MyDerive)]\nstruct S {}",
			want: "struct S {}\nimpl SDerived of Derived<S> {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := expand(t, h, tt.src)
			require.NotNil(t, out.File)
			assert.Equal(t, tt.want, out.File.Content)
			assert.Equal(t, "this error originates in the derive macro: `MyDerive`", out.File.Note)
		})
	}
	assert.Equal(t, domain.ExpansionDerive, p.requests[0].Kind)
	assert.Equal(t, "my_derive", p.requests[0].Name)
	assert.Equal(t, "#[derive(Drop, MyDerive)]\nstruct S {}", p.requests[0].Item.String())
}

func TestExpandFile_Inline(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{{Name: "answer", Kind: domain.ExpansionInline}},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("42"), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "fn f() -> felt252 { answer!(please) + other!() }")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn f() -> felt252 { 42 + other!() }", out.File.Content)
	require.Len(t, p.requests, 1)
	assert.Equal(t, domain.ExpansionInline, p.requests[0].Kind)
	assert.Equal(t, "(please)", p.requests[0].Args.String())
}

func TestExpandFile_ReachesFixpoint(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("twice"), attr("once")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			if req.Name == "twice" {
				return result("#[once]\n" + req.Item.String()), nil
			}
			return result(strings.Replace(req.Item.String(), "f()", "g()", 1)), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[twice]\nfn f() {}")
	require.NotNil(t, out.File)
	assert.Equal(t, "fn g() {}", out.File.Content)
	assert.Len(t, p.requests, 2)
}

func TestExpandFile_PassLimit(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("again")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("#[again]\n" + req.Item.String()), nil
		},
	}
	h := newHost(t, p)

	_, err := h.ExpandFile("/ws/src/lib.cairo", "#[again]\nfn f() {}", domain.Edition2024_07)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrExpansionFailed.Error())
	assert.Len(t, p.requests, host.MaxPasses)
}

func TestExpandFile_InnerAttributes(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("wrap")},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("fn g() {}"), nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "impl A of B {\n    #[wrap]\n    fn f() {}\n    fn h() {}\n}\n")
	require.NotNil(t, out.File)
	assert.Equal(t, "impl A of B {\n    fn g() {}\n    fn h() {}\n}\n", out.File.Content)
}

func TestExpandFile_ErrorDiagnosticsDropTheAttribute(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("strict")},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return &domain.ProcMacroResult{Diagnostics: []domain.Diagnostic{
				{Message: "strict functions must be pure", Severity: domain.SeverityError},
			}}, nil
		},
	}
	h := newHost(t, p)

	out := expand(t, h, "#[strict]\nfn f() {}")
	require.True(t, out.HasErrors())
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "/ws/src/lib.cairo", out.Diagnostics[0].File)
	assert.Equal(t, &domain.TextSpan{Start: 0, End: 9}, out.Diagnostics[0].Span)
	require.NotNil(t, out.File)
	assert.Equal(t, "fn f() {}", out.File.Content)
}

func TestExpandFile_PluginFailure(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{attr("boom")},
		expand: func(ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return nil, errors.New("plugin panicked")
		},
	}
	h := newHost(t, p)

	_, err := h.ExpandFile("/ws/src/lib.cairo", "#[boom]\nfn f() {}", domain.Edition2024_07)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrExpansionFailed.Error())
	assert.ErrorContains(t, err, "plugin panicked")
}

func TestPostProcess(t *testing.T) {
	used := &fakePlugin{
		expansions: []domain.Expansion{attr("track")},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			res := result(req.Item.String())
			res.AuxData = []byte("entry")
			res.FullPathMarkers = []string{"f"}
			return res, nil
		},
	}
	unused := &fakePlugin{expansions: []domain.Expansion{attr("other")}}
	h := newHost(t, used, unused)

	expand(t, h, "#[track]\nfn f() {}")
	assert.Equal(t, []string{"f"}, h.FullPathRequests())

	require.NoError(t, h.PostProcess([]domain.FullPathMarker{{Key: "f", Path: "hello::f"}, {Key: "g", Path: "hello::g"}}))
	require.Len(t, used.processed, 1)
	assert.Equal(t, []domain.AuxDataEntry{{Expansion: attr("track"), File: "/ws/src/lib.cairo", Data: []byte("entry")}},
		used.processed[0].AuxData)
	assert.Equal(t, []domain.FullPathMarker{{Key: "f", Path: "hello::f"}}, used.processed[0].FullPathMarkers)
	assert.Empty(t, unused.processed)
}

func TestExpandDerive_ConcatenatesOutputs(t *testing.T) {
	p := &fakePlugin{
		expansions: []domain.Expansion{
			{Name: "first", Kind: domain.ExpansionDerive},
			{Name: "second", Kind: domain.ExpansionDerive},
		},
		expand: func(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
			return result("impl " + req.Name + ";"), nil
		},
	}
	h := newHost(t, p)

	res, err := h.ExpandDerive([]string{"First", "Second"}, text("struct S {}"), domain.TextSpan{})
	require.NoError(t, err)
	assert.Equal(t, "impl first;impl second;", res.TokenStream.String())

	_, err = h.ExpandDerive([]string{"Third"}, text("struct S {}"), domain.TextSpan{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown derive macro")
}
