package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/manifest"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func newLoader(t *testing.T) *manifest.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return manifest.NewLoader(log)
}

func TestLoadWorkspace_SinglePackage(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, `
[package]
name = "Hello"
version = "0.1.0"
edition = "2024_07"
authors = ["Jane"]

[dependencies]
foo = "1.2"
bar = { path = "../bar" }
baz = { git = "https://github.com/example/baz.git", branch = "main" }

[dev-dependencies]
qux = { version = "0.3", registry = "https://registry.example.com/" }

[cairo]
sierra-replace-ids = false
inlining-strategy = "avoid"

[features]
default = ["x"]
x = []
`)
	writeFile(t, filepath.Join(root, "src", "lib.cairo"), "fn main() -> felt252 { 42 }\n")

	ws, err := newLoader(t).LoadWorkspace(path)
	require.NoError(t, err)

	require.Len(t, ws.Members, 1)
	pkg := ws.Members[0]
	assert.Equal(t, domain.PackageName("hello"), pkg.Name())
	assert.Equal(t, "0.1.0", pkg.ID.Version.String())
	assert.True(t, pkg.ID.Source.IsPath())
	require.NotNil(t, ws.RootPackage)
	assert.Equal(t, pkg.ID, *ws.RootPackage)
	assert.Equal(t, domain.Edition2024_07, pkg.Manifest.Edition)
	assert.Equal(t, []string{"Jane"}, pkg.Manifest.Metadata.Authors)

	deps := pkg.Manifest.Summary.Dependencies
	require.Len(t, deps, 4)
	assert.Equal(t, domain.PackageName("bar"), deps[0].Name)
	assert.True(t, deps[0].SourceID.IsPath())
	assert.True(t, deps[0].VersionReq.IsAny())
	assert.Equal(t, domain.PackageName("baz"), deps[1].Name)
	assert.Equal(t, "git+https://github.com/example/baz.git?branch=main", deps[1].SourceID.PrettyURL())
	assert.Equal(t, domain.PackageName("foo"), deps[2].Name)
	assert.True(t, deps[2].SourceID.IsDefaultRegistry())
	assert.Equal(t, domain.PackageName("qux"), deps[3].Name)
	assert.True(t, deps[3].Kind.IsDev())

	require.NotNil(t, pkg.Manifest.Compiler.SierraReplaceIDs)
	assert.False(t, *pkg.Manifest.Compiler.SierraReplaceIDs)
	assert.Equal(t, "avoid", *pkg.Manifest.Compiler.InliningStrategy)
	assert.Equal(t, []string{"x"}, pkg.Manifest.Features["default"])
}

func TestLoadWorkspace_AutoTargets(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, "[package]\nname = \"hello\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(root, "src", "lib.cairo"), "")
	writeFile(t, filepath.Join(root, "tests", "a.cairo"), "")
	writeFile(t, filepath.Join(root, "tests", "b.cairo"), "")

	ws, err := newLoader(t).LoadWorkspace(path)
	require.NoError(t, err)
	targets := ws.Members[0].Manifest.Targets

	require.Len(t, targets, 4)
	assert.Equal(t, domain.TargetKindLib, targets[0].Kind)
	assert.Equal(t, "hello", targets[0].Name)

	assert.Equal(t, "hello_a", targets[1].Name)
	assert.Equal(t, "hello_integrationtest", targets[1].GroupID)
	assert.Equal(t, domain.TestTypeIntegration, targets[1].TestType())
	assert.Equal(t, "hello_b", targets[2].Name)

	assert.Equal(t, "hello_unittest", targets[3].Name)
	assert.Equal(t, domain.TestTypeUnit, targets[3].TestType())
	assert.Equal(t, targets[0].SourcePath, targets[3].SourcePath)
}

func TestLoadWorkspace_IntegrationTestsLib(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, "[package]\nname = \"hello\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(root, "src", "lib.cairo"), "")
	writeFile(t, filepath.Join(root, "tests", "lib.cairo"), "")
	writeFile(t, filepath.Join(root, "tests", "other.cairo"), "")

	ws, err := newLoader(t).LoadWorkspace(path)
	require.NoError(t, err)

	var names []string
	for _, tgt := range ws.Members[0].Manifest.Targets {
		names = append(names, tgt.Name)
	}
	assert.Equal(t, []string{"hello", "hello_integrationtest", "hello_unittest"}, names)
}

func TestLoadWorkspace_CairoPluginIsExclusive(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, "[package]\nname = \"macros\"\nversion = \"0.1.0\"\n\n[cairo-plugin]\n\n[lib]\n")

	_, err := newLoader(t).LoadWorkspace(path)
	assert.ErrorContains(t, err, "target `cairo-plugin` cannot be mixed with other targets")
}

func TestLoadWorkspace_PluginHasNoAutoTests(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, "[package]\nname = \"macros\"\nversion = \"0.1.0\"\n\n[cairo-plugin]\nbuiltin = true\n")
	writeFile(t, filepath.Join(root, "src", "lib.cairo"), "")

	ws, err := newLoader(t).LoadWorkspace(path)
	require.NoError(t, err)
	pkg := ws.Members[0]
	require.Len(t, pkg.Manifest.Targets, 1)
	assert.True(t, pkg.IsCairoPlugin())
	assert.True(t, pkg.Manifest.Targets[0].BoolParam("builtin", false))
}

func TestLoadWorkspace_EmptyTargetTables(t *testing.T) {
	t.Run("cairo-plugin", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, domain.ManifestFileName)
		writeFile(t, path, "[package]\nname = \"macros\"\nversion = \"0.1.0\"\n\n[cairo-plugin]\n")

		ws, err := newLoader(t).LoadWorkspace(path)
		require.NoError(t, err)
		pkg := ws.Members[0]
		require.Len(t, pkg.Manifest.Targets, 1)
		assert.Equal(t, domain.TargetKindCairoPlugin, pkg.Manifest.Targets[0].Kind)
		assert.True(t, pkg.IsCairoPlugin())
	})

	t.Run("lib", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, domain.ManifestFileName)
		writeFile(t, path, "[package]\nname = \"hello\"\nversion = \"0.1.0\"\n\n[lib]\n")

		ws, err := newLoader(t).LoadWorkspace(path)
		require.NoError(t, err)
		var kinds []domain.TargetKind
		for _, tgt := range ws.Members[0].Manifest.Targets {
			kinds = append(kinds, tgt.Kind)
		}
		assert.Contains(t, kinds, domain.TargetKindLib)
	})
}

func TestLoadWorkspace_MembersAndInheritance(t *testing.T) {
	root := t.TempDir()
	rootPath := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, rootPath, `
[workspace]
members = ["crates/*"]

[workspace.package]
version = "1.0.0"
edition = "2023_11"

[workspace.dependencies]
foo = { path = "vendor/foo" }

[patch.scarbs-xyz]
bar = { path = "patch/bar" }

[security]
require-audits = true

[profile.custom]
inherits = "release"

[profile.custom.cairo]
sierra-replace-ids = true

[workspace.tool.scarb]
allow-prebuilt-plugins = ["snforge_std"]
`)
	memberA := filepath.Join(root, "crates", "a", domain.ManifestFileName)
	writeFile(t, memberA, `
[package]
name = "a"
version.workspace = true
edition.workspace = true

[dependencies]
foo.workspace = true
b = { path = "../b" }
`)
	memberB := filepath.Join(root, "crates", "b", domain.ManifestFileName)
	writeFile(t, memberB, `
[package]
name = "b"
version = "2.0.0"

[security]
allow-no-audits = ["foo"]
`)

	loader := newLoader(t)
	ws, err := loader.LoadWorkspace(memberA)
	require.NoError(t, err)

	assert.Equal(t, rootPath, ws.ManifestPath)
	assert.Nil(t, ws.RootPackage)
	require.Len(t, ws.Members, 2)
	a, ok := ws.Member("a")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", a.ID.Version.String())
	assert.Equal(t, domain.Edition2023_11, a.Manifest.Edition)

	foo := a.Manifest.Summary.Dependencies[1]
	assert.Equal(t, domain.PackageName("foo"), foo.Name)
	resolvedVendor, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedVendor, "vendor", "foo"), foo.SourceID.Path())

	require.Len(t, ws.Patch["scarbs-xyz"], 1)
	patched, ok := ws.PatchFor(domain.NewManifestDependency("bar", domain.AnyDependencyReq(), domain.DefaultRegistrySourceID()))
	require.True(t, ok)
	assert.True(t, patched.SourceID.IsPath())

	assert.True(t, ws.Security.RequireAudits)
	assert.True(t, ws.Security.AllowsUnaudited("foo"))
	assert.True(t, ws.HasProfile("custom"))
	assert.Equal(t, []domain.PackageName{"snforge_std"}, ws.AllowPrebuiltPlugins)
}

func TestLoadWorkspace_PatchOutsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, domain.ManifestFileName), "[workspace]\nmembers = [\"a\"]\n")
	member := filepath.Join(root, "a", domain.ManifestFileName)
	writeFile(t, member, "[package]\nname = \"a\"\nversion = \"0.1.0\"\n\n[patch.scarbs-xyz]\nfoo = \"1\"\n")

	_, err := newLoader(t).LoadWorkspace(member)
	assert.ErrorContains(t, err, domain.ErrPatchOutsideRoot.Error())
}

func TestLoadWorkspace_NestedWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, domain.ManifestFileName), "[workspace]\nmembers = [\"a\"]\n")
	writeFile(t, filepath.Join(root, "a", domain.ManifestFileName), "[package]\nname = \"a\"\nversion = \"0.1.0\"\n\n[workspace]\n")

	_, err := newLoader(t).LoadWorkspace(filepath.Join(root, domain.ManifestFileName))
	assert.ErrorContains(t, err, domain.ErrNestedWorkspace.Error())
}

func TestLoadWorkspace_InvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "syntax", content: "[package\n", want: domain.ErrManifestParseFailed.Error()},
		{name: "no package", content: "[dependencies]\n", want: "no `package` section found"},
		{name: "edition", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\nedition = \"1999\"\n", want: domain.ErrInvalidEdition.Error()},
		{name: "empty dep", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[dependencies]\nfoo = {}\n", want: "dependency (foo) must be specified providing a local path, Git repository, or version to use"},
		{name: "ambiguous dep", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[dependencies]\nfoo = { git = \"https://x.com/foo\", path = \"foo\" }\n", want: "only one of `git` or `path` is allowed"},
		{name: "branch without git", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[dependencies]\nfoo = { version = \"1\", branch = \"main\" }\n", want: "is non-Git, but provides `branch`, `tag` or `rev`"},
		{name: "undefined feature", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[features]\nx = [\"y\"]\n", want: "feature `x` is dependent on `y` which is not defined"},
		{name: "missing inheritance", content: "[package]\nname = \"a\"\nversion.workspace = true\n", want: domain.ErrWorkspaceInheritance.Error()},
		{name: "reserved lib kind", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[[target.lib]]\n", want: "target kind `lib` is reserved"},
		{name: "bad profile inherits", content: "[package]\nname = \"a\"\nversion = \"0.1.0\"\n[profile.x]\ninherits = \"y\"\n", want: "profile can inherit from `dev` or `release` only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, domain.ManifestFileName)
			writeFile(t, path, tt.content)

			_, err := newLoader(t).LoadWorkspace(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadWorkspace_NotFound(t *testing.T) {
	_, err := newLoader(t).LoadWorkspace("")
	assert.ErrorIs(t, err, domain.ErrManifestNotFound)

	_, err = newLoader(t).LoadWorkspace(filepath.Join(t.TempDir(), domain.ManifestFileName))
	assert.ErrorContains(t, err, domain.ErrManifestNotFound.Error())
}

func TestReadPackage_KeepsNonPathSource(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, domain.ManifestFileName)
	writeFile(t, path, "[package]\nname = \"foo\"\nversion = \"1.0.0\"\n\n[[target.starknet-contract]]\nsierra = true\n")

	pkg, err := newLoader(t).ReadPackage(path, domain.DefaultRegistrySourceID())
	require.NoError(t, err)
	assert.True(t, pkg.ID.Source.IsDefaultRegistry())
	require.Len(t, pkg.Manifest.Targets, 1)
	assert.Equal(t, domain.TargetKindStarknetContract, pkg.Manifest.Targets[0].Kind)
	assert.Equal(t, "foo", pkg.Manifest.Targets[0].Name)
	assert.Equal(t, true, pkg.Manifest.Targets[0].Params["sierra"])
}
