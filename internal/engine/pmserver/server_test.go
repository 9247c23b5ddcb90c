package pmserver_test

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.trai.ch/scarb/internal/engine/host"
	"go.trai.ch/scarb/internal/engine/pmserver"
	"go.uber.org/mock/gomock"
)

type fakePlugin struct {
	expansions []domain.Expansion
}

func (p *fakePlugin) Path() string                                { return "/plugins/libmacros.so" }
func (p *fakePlugin) ABIVersion() uint32                          { return 2 }
func (p *fakePlugin) Expansions() []domain.Expansion              { return p.expansions }
func (p *fakePlugin) Doc(string) (string, bool)                   { return "", false }
func (p *fakePlugin) Fingerprint() uint64                         { return 0 }
func (p *fakePlugin) PostProcess(domain.PostProcessContext) error { return nil }

func (p *fakePlugin) Expand(req ports.ExpandRequest) (*domain.ProcMacroResult, error) {
	out := "// " + string(req.Kind) + " " + req.Name + "\n" + req.Item.String() + req.Args.String()
	return &domain.ProcMacroResult{TokenStream: domain.TokenStream{Tokens: []domain.Token{{Content: out}}}}, nil
}

var macrosID = domain.NewPackageID("macros", domain.MustParseVersion("0.1.0"), domain.DefaultRegistrySourceID())

func newLogger(t *testing.T) ports.Logger {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	return logger
}

func plugin() *fakePlugin {
	return &fakePlugin{expansions: []domain.Expansion{
		{Name: "tracked", Kind: domain.ExpansionAttribute},
		{Name: "describe", Kind: domain.ExpansionDerive},
		{Name: "greet", Kind: domain.ExpansionInline},
	}}
}

func newServer(t *testing.T) *pmserver.Server {
	t.Helper()
	logger := newLogger(t)
	h, err := host.New([]host.LoadedPlugin{{Package: macrosID, Plugin: plugin()}}, logger)
	require.NoError(t, err)
	s := pmserver.New(logger)
	s.Register(pmserver.Component{ID: "hello", Name: "hello"}, h)
	return s
}

type response struct {
	ID    uint64          `json:"id"`
	Value json.RawMessage `json:"value"`
	Error string          `json:"error"`
}

func serve(t *testing.T, s *pmserver.Server, lines ...string) map[uint64]response {
	t.Helper()
	var out strings.Builder
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))

	got := make(map[uint64]response)
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var r response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got[r.ID] = r
	}
	return got
}

const scopeJSON = `"context":{"component":{"id":"hello","name":"hello"}}`

func TestServe(t *testing.T) {
	got := serve(t, newServer(t),
		`{"id":1,"method":"definedMacros","value":{}}`,
		``,
		`{"id":2,"method":"expandAttribute","value":{`+scopeJSON+`,"attr":"tracked","args":{"tokens":[]},"item":{"tokens":[{"content":"fn f() {}","span":{"start":0,"end":9}}]},"call_site":{"start":0,"end":10}}}`,
		`{"id":3,"method":"expandDerive","value":{`+scopeJSON+`,"derives":["Describe"],"item":{"tokens":[{"content":"struct S {}","span":{"start":0,"end":11}}]},"call_site":{"start":0,"end":8}}}`,
		`{"id":4,"method":"expandInline","value":{`+scopeJSON+`,"name":"greet","args":{"tokens":[{"content":"(1)","span":{"start":6,"end":9}}]},"call_site":{"start":0,"end":9}}}`,
		`{"id":5,"method":"shutdown","value":{}}`,
		`{"id":6,"method":"expandInline","value":{"context":{"component":{"id":"other","name":"other"}},"name":"greet","args":{"tokens":[]},"call_site":{"start":0,"end":0}}}`,
	)
	require.Len(t, got, 6)

	assert.JSONEq(t, `{"macros_for_cu_components":[{
		"component":{"id":"hello","name":"hello"},
		"attributes":["tracked"],
		"inline_macros":["greet"],
		"derives":["Describe"],
		"executables":[],
		"debug_info":{"source_packages":["macros v0.1.0 (registry+https://scarbs.xyz/)"]}
	}]}`, string(got[1].Value))

	var attr pmserver.ExpandResult
	require.NoError(t, json.Unmarshal(got[2].Value, &attr))
	assert.Equal(t, "// attr tracked\nfn f() {}", attr.TokenStream.String())
	assert.Equal(t, []string{"macros 0.1.0 (registry+https://scarbs.xyz/)"}, attr.PackageIDs)
	assert.Empty(t, attr.Diagnostics)

	var derive pmserver.ExpandResult
	require.NoError(t, json.Unmarshal(got[3].Value, &derive))
	assert.Equal(t, "// derive describe\nstruct S {}", derive.TokenStream.String())

	var inline pmserver.ExpandResult
	require.NoError(t, json.Unmarshal(got[4].Value, &inline))
	assert.Equal(t, "// inline greet\n(1)", inline.TokenStream.String())

	assert.Contains(t, got[5].Error, "unknown proc-macro server method")
	assert.Contains(t, got[6].Error, "no procedural macros in scope")
}

func TestServe_MalformedRequest(t *testing.T) {
	var out strings.Builder
	err := newServer(t).Serve(context.Background(), strings.NewReader("not json\n"), &out)

	require.ErrorIs(t, err, domain.ErrMalformedServerRequest)
	assert.Empty(t, out.String())
}

func TestFromUnits(t *testing.T) {
	src, err := domain.NewPathSourceID("/ws")
	require.NoError(t, err)
	helloID := domain.NewPackageID("hello", domain.MustParseVersion("0.1.0"), src)
	coreID := domain.NewPackageID("core", domain.MustParseVersion("2.12.0"), domain.StdSourceID())
	pluginComponent := domain.ComponentID{Package: macrosID, Kind: domain.TargetKindCairoPlugin}

	hello := &domain.CompilationUnitComponent{
		ID:        domain.ComponentID{Package: helloID, Kind: domain.TargetKindLib},
		Package:   domain.NewPackage(helloID, "/ws/Scarb.toml", &domain.Manifest{}),
		CairoName: "hello",
		Dependencies: []domain.CompilationUnitDependency{
			{Kind: domain.EdgePlugin, ID: pluginComponent},
		},
	}
	core := &domain.CompilationUnitComponent{
		ID:        domain.ComponentID{Package: coreID, Kind: domain.TargetKindLib},
		Package:   domain.NewPackage(coreID, "/cache/core/Scarb.toml", &domain.Manifest{}),
		CairoName: "core",
	}
	unit := &domain.CairoCompilationUnit{
		Components: []*domain.CompilationUnitComponent{hello, core},
		CairoPlugins: []domain.CairoPluginRef{{
			ComponentID: pluginComponent,
			Package:     domain.NewPackage(macrosID, "/cache/macros/Scarb.toml", &domain.Manifest{}),
		}},
	}

	s, err := pmserver.FromUnits([]domain.CompilationUnit{unit}, map[domain.PackageID]ports.Plugin{macrosID: plugin()}, newLogger(t))
	require.NoError(t, err)

	resp := s.Handle(pmserver.Request{ID: 7, Method: pmserver.MethodDefinedMacros})
	require.Empty(t, resp.Error)
	defined, ok := resp.Value.(*pmserver.DefinedMacrosResponse)
	require.True(t, ok)
	require.Len(t, defined.MacrosForComponents, 1)
	assert.Equal(t, pmserver.Component{ID: hello.ID.String(), Name: "hello", Discriminator: hello.ID.Discriminator()}, defined.MacrosForComponents[0].Component)
}
