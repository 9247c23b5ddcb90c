package planner_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.uber.org/mock/gomock"
)

type graph struct {
	t    *testing.T
	ws   *domain.Workspace
	res  *domain.Resolve
	pkgs map[domain.PackageID]*domain.Package
}

func newGraph(t *testing.T) *graph {
	t.Helper()
	root := t.TempDir()
	return &graph{
		t:    t,
		ws:   &domain.Workspace{ManifestPath: filepath.Join(root, domain.ManifestFileName)},
		res:  domain.NewResolve(),
		pkgs: map[domain.PackageID]*domain.Package{},
	}
}

func (g *graph) add(name string, source domain.SourceID, targets ...domain.Target) *domain.Package {
	dir := filepath.Join(g.t.TempDir(), name)
	id := domain.NewPackageID(domain.PackageName(name), domain.MustParseVersion("1.0.0"), source)
	for i := range targets {
		if targets[i].Name == "" {
			targets[i].Name = name
		}
		targets[i].SourcePath = filepath.Join(dir, targets[i].SourcePath)
	}
	pkg := domain.NewPackage(id, filepath.Join(dir, domain.ManifestFileName), &domain.Manifest{
		Summary:  domain.Summary{PackageID: id},
		Targets:  targets,
		Features: domain.FeaturesDefinition{},
	})
	g.pkgs[id] = pkg
	g.res.Summaries[id] = pkg.Manifest.Summary
	return pkg
}

func (g *graph) member(name string, targets ...domain.Target) *domain.Package {
	src, err := domain.NewPathSourceID(g.t.TempDir())
	require.NoError(g.t, err)
	pkg := g.add(name, src, targets...)
	g.ws.Members = append(g.ws.Members, pkg)
	return pkg
}

func (g *graph) dep(from, to *domain.Package, kind domain.DepKind) {
	g.res.Edges[from.ID] = append(g.res.Edges[from.ID], domain.ResolvedDependency{ID: to.ID, Kind: kind})
	d := domain.NewManifestDependency(to.Name(), domain.AnyDependencyReq(), to.ID.Source)
	d.Kind = kind
	from.Manifest.Summary.Dependencies = append(from.Manifest.Summary.Dependencies, d)
}

func (g *graph) resolved() *domain.ResolvedWorkspace {
	return &domain.ResolvedWorkspace{Workspace: g.ws, Resolve: g.res, Packages: g.pkgs}
}

func lib() domain.Target {
	return domain.Target{Kind: domain.TargetKindLib, SourcePath: "src/lib.cairo"}
}

func plugin() domain.Target {
	return domain.Target{Kind: domain.TargetKindCairoPlugin, SourcePath: "src/lib.rs"}
}

func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	return planner.New(logger)
}

func cairoUnits(units []domain.CompilationUnit) []*domain.CairoCompilationUnit {
	var out []*domain.CairoCompilationUnit
	for _, u := range units {
		if cu, ok := u.(*domain.CairoCompilationUnit); ok {
			out = append(out, cu)
		}
	}
	return out
}

func componentNames(u *domain.CairoCompilationUnit) []string {
	names := make([]string, 0, len(u.Components))
	for _, c := range u.Components {
		names = append(names, c.CairoName)
	}
	return names
}

func TestPlan_ComponentOrder(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib())
	foo := g.add("foo", domain.DefaultRegistrySourceID(), lib())
	bar := g.add("bar", domain.DefaultRegistrySourceID(), lib())
	core := g.add("core", domain.StdSourceID(), lib())
	g.dep(hello, foo, domain.NormalDep())
	g.dep(hello, bar, domain.NormalDep())
	g.dep(hello, core, domain.NormalDep())
	g.dep(foo, core, domain.NormalDep())

	units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{Profile: domain.ProfileDev})
	require.NoError(t, err)

	cu := cairoUnits(units)
	require.Len(t, cu, 1)
	u := cu[0]
	assert.Equal(t, []string{"hello", "core", "bar", "foo"}, componentNames(u))
	assert.Equal(t, hello.ID, u.MainPackageID())
	assert.Equal(t, domain.NewCfgSet(domain.CfgKV("target", "lib")), u.CfgSet)
	assert.True(t, u.CompilerConfig.SierraReplaceIDs)
	assert.Equal(t, "hello lib", u.Name())

	main := u.MainComponent()
	var deps []string
	for _, d := range main.Dependencies {
		assert.Equal(t, domain.EdgeComponent, d.Kind)
		deps = append(deps, string(d.ID.Package.Name))
	}
	assert.ElementsMatch(t, []string{"bar", "core", "foo", "hello"}, deps)

	fooComponent, ok := u.Component(domain.ComponentID{Package: foo.ID, Kind: domain.TargetKindLib})
	require.True(t, ok)
	assert.Nil(t, fooComponent.CfgSet)
	assert.Len(t, fooComponent.Dependencies, 2)
}

func TestPlan_TargetFilter(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib(), domain.Target{
		Kind:       domain.TargetKindTest,
		Name:       "hello_unittest",
		SourcePath: "src/lib.cairo",
		Params:     map[string]any{"test-type": "unit"},
	})
	forge := g.add("forge", domain.DefaultRegistrySourceID(), lib())
	g.dep(hello, forge, domain.DevDep())

	t.Run("default build skips tests", func(t *testing.T) {
		units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{Profile: domain.ProfileDev})
		require.NoError(t, err)
		cu := cairoUnits(units)
		require.Len(t, cu, 1)
		assert.Equal(t, domain.TargetKindLib, cu[0].Target().Kind)
		assert.Equal(t, []string{"hello"}, componentNames(cu[0]))
	})

	t.Run("tests", func(t *testing.T) {
		units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{
			Profile: domain.ProfileDev,
			Targets: planner.TargetFilter{Kinds: []domain.TargetKind{domain.TargetKindTest}},
		})
		require.NoError(t, err)
		cu := cairoUnits(units)
		require.Len(t, cu, 1)
		u := cu[0]
		assert.Equal(t, []string{"hello", "forge"}, componentNames(u))
		assert.True(t, u.CfgSet.Contains(domain.CfgName("test")))
		assert.True(t, u.MainComponent().CfgSet.Contains(domain.CfgName("test")))
		assert.Equal(t, domain.NewCfgSet(domain.CfgKV("target", "test")), u.Components[1].CfgSet)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{
			Targets: planner.TargetFilter{Names: []string{"nope"}},
		})
		assert.ErrorContains(t, err, domain.ErrNoMatchingTarget.Error())
	})
}

func TestPlan_IntegrationTestGroup(t *testing.T) {
	g := newGraph(t)
	integration := func(file string) domain.Target {
		return domain.Target{
			Kind:       domain.TargetKindTest,
			Name:       "hello_" + file,
			SourcePath: "tests/" + file + ".cairo",
			GroupID:    "hello_integrationtest",
			Params:     map[string]any{"test-type": "integration"},
		}
	}
	hello := g.member("hello", lib(), integration("a"), integration("b"))

	units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{
		Profile: domain.ProfileDev,
		Targets: planner.TargetFilter{Kinds: []domain.TargetKind{domain.TargetKindTest}},
	})
	require.NoError(t, err)
	cu := cairoUnits(units)
	require.Len(t, cu, 1)
	u := cu[0]

	assert.Equal(t, []string{"hello_integrationtest", "hello"}, componentNames(u))
	main := u.MainComponent()
	assert.Equal(t, domain.PackageName("hello_integrationtest"), u.MainPackageID().Name)
	assert.Len(t, main.Targets, 2)
	assert.Equal(t, "hello_integrationtest", main.TargetName())

	memberLib := u.Components[1]
	assert.Equal(t, hello.ID, memberLib.ID.Package)
	assert.False(t, memberLib.CfgSet.Contains(domain.CfgName("test")))
	require.NotEmpty(t, main.Dependencies)
	assert.Equal(t, memberLib.ID, main.Dependencies[len(main.Dependencies)-1].ID)

	virtual, ok := planner.VirtualLibFile(main)
	require.True(t, ok)
	assert.Equal(t, "mod a;\nmod b;\n", virtual.Content)
	assert.Equal(t, "lib.cairo", filepath.Base(virtual.Path))

	_, ok = planner.VirtualLibFile(memberLib)
	assert.False(t, ok)
}

func TestPlan_Features(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib())
	hello.Manifest.Features = domain.FeaturesDefinition{"default": {"x"}, "x": {}, "y": {}}

	units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{
		Features: domain.FeaturesOpts{Features: []string{"y"}},
	})
	require.NoError(t, err)
	u := cairoUnits(units)[0]
	assert.True(t, u.CfgSet.Contains(domain.CfgKV("feature", "x")))
	assert.True(t, u.CfgSet.Contains(domain.CfgKV("feature", "y")))
	assert.Equal(t, []string{"x", "y"}, u.MainComponent().Features)

	_, err = newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{
		Features: domain.FeaturesOpts{Features: []string{"nope"}},
	})
	assert.ErrorContains(t, err, domain.ErrUnknownFeature.Error())
}

func TestPlan_DependencyFeatures(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib())
	foo := g.add("foo", domain.DefaultRegistrySourceID(), lib())
	foo.Manifest.Features = domain.FeaturesDefinition{"fast": {}}
	g.dep(hello, foo, domain.NormalDep())
	hello.Manifest.Summary.Dependencies[0].Features = []string{"fast"}

	units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{})
	require.NoError(t, err)
	fooComponent := cairoUnits(units)[0].Components[1]
	assert.Equal(t, []string{"fast"}, fooComponent.Features)
	assert.True(t, fooComponent.CfgSet.Contains(domain.CfgKV("feature", "fast")))
}

func TestPlan_Plugins(t *testing.T) {
	setup := func(t *testing.T, source domain.SourceID) (*graph, *domain.Package) {
		g := newGraph(t)
		hello := g.member("hello", lib())
		macros := g.add("macros", source, plugin())
		g.dep(hello, macros, domain.NormalDep())
		return g, macros
	}

	t.Run("registry plugin needs allowed prebuilt", func(t *testing.T) {
		g, _ := setup(t, domain.DefaultRegistrySourceID())
		_, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{LoadPrebuilt: true})
		assert.ErrorContains(t, err, domain.ErrPrebuiltNotAllowed.Error())
	})

	t.Run("allowed prebuilt", func(t *testing.T) {
		g, macros := setup(t, domain.DefaultRegistrySourceID())
		g.ws.AllowPrebuiltPlugins = []domain.PackageName{"macros"}

		units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{LoadPrebuilt: true})
		require.NoError(t, err)
		require.Len(t, units, 2)

		u := units[0].(*domain.CairoCompilationUnit)
		require.Len(t, u.CairoPlugins, 1)
		assert.True(t, u.CairoPlugins[0].Prebuilt)
		assert.Equal(t, []domain.ComponentID{{Package: macros.ID, Kind: domain.TargetKindCairoPlugin}}, u.MainComponent().PluginDependencies())

		pm, ok := units[1].(*domain.ProcMacroCompilationUnit)
		require.True(t, ok)
		assert.True(t, pm.Prebuilt)
		assert.Equal(t, macros.ID, pm.MainPackageID())
	})

	t.Run("path plugin is built", func(t *testing.T) {
		src, err := domain.NewPathSourceID(t.TempDir())
		require.NoError(t, err)
		g, _ := setup(t, src)

		units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{LoadPrebuilt: true})
		require.NoError(t, err)
		require.Len(t, units, 2)
		pm := units[1].(*domain.ProcMacroCompilationUnit)
		assert.False(t, pm.Prebuilt)
	})

	t.Run("builtin plugins get no unit", func(t *testing.T) {
		g := newGraph(t)
		hello := g.member("hello", lib())
		target := plugin()
		target.Params = map[string]any{"builtin": true}
		starknet := g.add("starknet", domain.StdSourceID(), target)
		g.dep(hello, starknet, domain.NormalDep())

		units, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{})
		require.NoError(t, err)
		require.Len(t, units, 1)
		assert.True(t, units[0].(*domain.CairoCompilationUnit).CairoPlugins[0].Builtin)
	})
}

func TestPlan_SkipsDependenciesWithoutLib(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib())
	bin := g.add("bin", domain.DefaultRegistrySourceID(), domain.Target{Kind: domain.TargetKindExecutable, SourcePath: "src/main.cairo"})
	g.dep(hello, bin, domain.NormalDep())

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "ignoring invalid dependency `bin`")
	}).Times(1)

	units, err := planner.New(logger).Plan(g.resolved(), g.ws.Members, planner.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, componentNames(cairoUnits(units)[0]))
}

func TestPlan_CairoVersion(t *testing.T) {
	g := newGraph(t)
	hello := g.member("hello", lib())
	hello.Manifest.Metadata.CairoVersion = "^3.0.0"
	current := domain.MustParseVersion("2.9.0")

	_, err := newPlanner(t).Plan(g.resolved(), g.ws.Members, planner.Options{CairoVersion: &current})
	assert.ErrorContains(t, err, domain.ErrCairoVersionMismatch.Error())

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).Times(1)
	_, err = planner.New(logger).Plan(g.resolved(), g.ws.Members, planner.Options{CairoVersion: &current, IgnoreCairoVersion: true})
	assert.NoError(t, err)
}
