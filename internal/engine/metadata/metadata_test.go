package metadata_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/metadata"
)

type fixture struct {
	cfg    *domain.Config
	ws     *domain.Workspace
	rw     *domain.ResolvedWorkspace
	units  []domain.CompilationUnit
	hello  *domain.Package
	core   *domain.Package
	foo    *domain.Package
	macros *domain.Package
}

func pathSource(t *testing.T, dir string) domain.SourceID {
	t.Helper()
	src, err := domain.NewPathSourceID(dir)
	require.NoError(t, err)
	return src
}

func newPackage(name, version string, source domain.SourceID, manifestPath string, targets ...domain.Target) *domain.Package {
	id := domain.NewPackageID(domain.MustPackageName(name), domain.MustParseVersion(version), source)
	return domain.NewPackage(id, manifestPath, &domain.Manifest{
		Summary: domain.Summary{PackageID: id},
		Targets: targets,
		Edition: domain.Edition2024_07,
	})
}

func dependency(to *domain.Package, req string, kind domain.DepKind) domain.ManifestDependency {
	d := domain.NewManifestDependency(to.Name(), domain.ReqDependencyReq(domain.MustParseVersionReq(req)), to.ID.Source)
	d.Kind = kind
	return d
}

func component(pkg *domain.Package, targets ...domain.Target) *domain.CompilationUnitComponent {
	return &domain.CompilationUnitComponent{
		ID:        domain.ComponentID{Package: pkg.ID, Kind: targets[0].Kind, Group: targets[0].GroupID},
		Package:   pkg,
		Targets:   targets,
		CairoName: string(pkg.Name()),
	}
}

func edge(kind domain.DependencyEdgeKind, c *domain.CompilationUnitComponent) domain.CompilationUnitDependency {
	return domain.CompilationUnitDependency{Kind: kind, ID: c.ID}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}

	lib := domain.Target{Kind: domain.TargetKindLib, Name: "hello", SourcePath: "/ws/src/lib.cairo"}
	integration := func(name string) domain.Target {
		return domain.Target{
			Kind:       domain.TargetKindTest,
			Name:       name,
			SourcePath: "/ws/tests/" + name + ".cairo",
			GroupID:    "hello_integrationtest",
			Params:     map[string]any{"test-type": "integration"},
		}
	}
	f.hello = newPackage("hello", "0.1.0", pathSource(t, "/ws"), "/ws/Scarb.toml", lib, integration("b"), integration("a"))
	f.hello.Manifest.Metadata = domain.PackageMetadata{Authors: []string{"Alice"}, Description: "hello world", License: "MIT"}
	f.hello.Manifest.Tool = map[string]any{"fmt": map[string]any{"sort-module-level-items": true}}
	f.hello.Manifest.ExperimentalFeatures = []string{"negative_impls"}

	coreLib := domain.Target{Kind: domain.TargetKindLib, Name: "core", SourcePath: "/cache/core/src/lib.cairo"}
	f.core = newPackage("core", "2.12.0", domain.StdSourceID(), "/cache/core/Scarb.toml", coreLib)

	fooLib := domain.Target{Kind: domain.TargetKindLib, Name: "foo", SourcePath: "/cache/foo-1.2.0/src/lib.cairo"}
	f.foo = newPackage("foo", "1.2.0", domain.DefaultRegistrySourceID(), "/cache/foo-1.2.0/Scarb.toml", fooLib)

	pluginTarget := domain.Target{Kind: domain.TargetKindCairoPlugin, Name: "macros", SourcePath: "/ws/macros/Cargo.toml"}
	f.macros = newPackage("macros", "0.1.0", pathSource(t, "/ws/macros"), "/ws/macros/Scarb.toml", pluginTarget)

	f.hello.Manifest.Summary.Dependencies = []domain.ManifestDependency{
		dependency(f.macros, "*", domain.NormalDep()),
		dependency(f.foo, "^1.0.0", domain.NormalDep()),
		dependency(f.foo, "^1.2.0", domain.DevDep()),
	}

	f.ws = &domain.Workspace{
		ManifestPath: "/ws/Scarb.toml",
		Members:      []*domain.Package{f.hello, f.macros},
		Profiles:     map[string]domain.ProfileDefinition{"ci": {Name: "ci", Inherits: domain.ProfileRelease}},
	}
	f.rw = &domain.ResolvedWorkspace{
		Workspace: f.ws,
		Resolve:   domain.NewResolve(),
		Packages: map[domain.PackageID]*domain.Package{
			f.hello.ID: f.hello, f.core.ID: f.core, f.foo.ID: f.foo, f.macros.ID: f.macros,
		},
	}
	f.cfg = &domain.Config{TargetDir: "/ws/target", Profile: domain.ProfileDev}

	helloC := component(f.hello, lib)
	coreC := component(f.core, coreLib)
	fooC := component(f.foo, fooLib)
	macrosC := component(f.macros, pluginTarget)
	fooC.Dependencies = []domain.CompilationUnitDependency{edge(domain.EdgeComponent, coreC)}
	helloC.Dependencies = []domain.CompilationUnitDependency{
		edge(domain.EdgePlugin, macrosC),
		edge(domain.EdgeComponent, fooC),
		edge(domain.EdgeComponent, coreC),
	}

	testsC := component(f.hello, integration("a"), integration("b"))
	testsC.CfgSet = domain.NewCfgSet(domain.CfgName("test"), domain.CfgKV("target", "test"))
	testsC.Dependencies = []domain.CompilationUnitDependency{edge(domain.EdgeComponent, coreC)}

	f.units = []domain.CompilationUnit{
		&domain.ProcMacroCompilationUnit{Components: []*domain.CompilationUnitComponent{macrosC}, Profile: domain.ProfileDev},
		&domain.CairoCompilationUnit{
			Components:     []*domain.CompilationUnitComponent{testsC, coreC},
			CompilerConfig: domain.DefaultCompilerConfig(domain.ProfileDev),
			CfgSet:         domain.NewCfgSet(domain.CfgName("test"), domain.CfgKV("target", "test")),
			Profile:        domain.ProfileDev,
		},
		&domain.CairoCompilationUnit{
			Components:     []*domain.CompilationUnitComponent{helloC, coreC, fooC},
			CairoPlugins:   []domain.CairoPluginRef{{ComponentID: macrosC.ID, Package: f.macros}},
			CompilerConfig: domain.DefaultCompilerConfig(domain.ProfileDev),
			CfgSet:         domain.NewCfgSet(domain.CfgKV("target", "lib")),
			Profile:        domain.ProfileDev,
		},
	}
	return f
}

func (f *fixture) input() metadata.Input {
	return metadata.Input{
		Config:    f.cfg,
		Workspace: f.ws,
		Resolved:  f.rw,
		Units:     f.units,
		AppExe:    "/usr/bin/scarb",
		Version:   metadata.NewVersionInfo("2.12.0", "0123456789abcdef", "2025-08-01", "2.12.0"),
	}
}

func marshal(t *testing.T, m *metadata.Metadata) []byte {
	t.Helper()
	out, err := json.MarshalIndent(m, "", "  ")
	require.NoError(t, err)
	return out
}

func TestCollect(t *testing.T) {
	f := newFixture(t)

	m, err := metadata.Collect(f.input(), metadata.Options{FormatVersion: 1})
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "metadata", marshal(t, m))
}

func TestCollect_NoDeps(t *testing.T) {
	f := newFixture(t)

	m, err := metadata.Collect(f.input(), metadata.Options{FormatVersion: 1, NoDeps: true})
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "metadata_no_deps", marshal(t, m))
}

func TestCollect_SplitsGroupedTargets(t *testing.T) {
	f := newFixture(t)

	m, err := metadata.Collect(f.input(), metadata.Options{FormatVersion: 1})
	require.NoError(t, err)

	var tests []string
	ids := map[string]bool{}
	for _, u := range m.CompilationUnits {
		ids[u.ID] = true
		if u.Target.Kind == string(domain.TargetKindTest) {
			tests = append(tests, u.Target.Name)
		}
	}
	assert.Equal(t, []string{"a", "b"}, tests)
	assert.Len(t, ids, len(m.CompilationUnits), "unit ids must be unique")
}

func TestCollect_UnsupportedVersion(t *testing.T) {
	f := newFixture(t)

	_, err := metadata.Collect(f.input(), metadata.Options{FormatVersion: 2})
	require.ErrorIs(t, err, domain.ErrUnsupportedMetadataVersion)
}

func TestCfg_MarshalJSON(t *testing.T) {
	out, err := json.Marshal([]metadata.Cfg{
		metadata.Cfg(domain.CfgName("test")),
		metadata.Cfg(domain.CfgKV("target", "lib")),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["test", ["target", "lib"]]`, string(out))
}

func TestNewVersionInfo(t *testing.T) {
	dev := metadata.NewVersionInfo("dev", "none", "unknown", "2.12.0")
	assert.Nil(t, dev.CommitInfo)
	assert.Equal(t, "2.12.0", dev.Cairo.Version)

	release := metadata.NewVersionInfo("2.12.0", "0123456789abcdef", "unknown", "2.12.0")
	require.NotNil(t, release.CommitInfo)
	assert.Equal(t, "012345678", release.CommitInfo.ShortCommitHash)
	assert.Empty(t, release.CommitInfo.CommitDate)
}
