package packager_test

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/adapters/tarball"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.trai.ch/scarb/internal/engine/packager"
	"go.uber.org/mock/gomock"
)

const origManifest = `[package]
name = "hello"
version = "0.1.0"
readme = "README.md"
license-file = "docs/LICENSE.txt"

[dependencies]
foo = "^1.0.0"
bar = { path = "../bar", version = "^0.2.0" }

[dev-dependencies]
snforge = { version = "^0.30.0", default-features = false }
`

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

// helloPackage lays out a package directory with files that must and must not be archived.
func helloPackage(t *testing.T) *domain.Package {
	t.Helper()
	root := t.TempDir()
	manifestPath := write(t, root, domain.ManifestFileName, origManifest)
	write(t, root, domain.LockfileFileName, "version = 1\n")
	write(t, root, domain.CairoProjectFileName, "[crate_roots]\n")
	write(t, root, domain.ScarbIgnoreFileName, "# scratch files\n*.tmp\n")
	write(t, root, "notes.tmp", "scratch")
	write(t, root, "README.md", "# hello\n")
	license := write(t, root, "docs/LICENSE.txt", "MIT\n")
	lib := write(t, root, "src/lib.cairo", "mod foo;\n")
	write(t, root, "src/foo.cairo", "fn foo() {}\n")
	write(t, root, "target/dev/hello.sierra.json", "{}")
	write(t, root, "nested/Scarb.toml", "[package]\nname = \"nested\"\n")
	write(t, root, "nested/src/lib.cairo", "")
	write(t, root, ".git/HEAD", "ref: refs/heads/main\n")

	src, err := domain.NewPathSourceID(root)
	require.NoError(t, err)
	barSrc, err := domain.NewPathSourceID(filepath.Join(filepath.Dir(root), "bar"))
	require.NoError(t, err)

	foo := domain.NewManifestDependency("foo", domain.ReqDependencyReq(domain.MustParseVersionReq("^1.0.0")), domain.DefaultRegistrySourceID())
	bar := domain.NewManifestDependency("bar", domain.ReqDependencyReq(domain.MustParseVersionReq("^0.2.0")), barSrc)
	snforge := domain.NewManifestDependency("snforge", domain.ReqDependencyReq(domain.MustParseVersionReq("^0.30.0")), domain.DefaultRegistrySourceID())
	snforge.Kind = domain.DevDep()
	snforge.DefaultFeatures = false

	id := domain.NewPackageID("hello", domain.MustParseVersion("0.1.0"), src)
	return domain.NewPackage(id, manifestPath, &domain.Manifest{
		Summary: domain.Summary{PackageID: id, Dependencies: []domain.ManifestDependency{foo, bar, snforge}},
		Targets: []domain.Target{
			{Kind: domain.TargetKindLib, Name: "hello", SourcePath: lib, Params: map[string]any{"sierra": true}},
			{Kind: domain.TargetKindExecutable, Name: "hello_exe", SourcePath: lib, Params: map[string]any{}},
			{Kind: domain.TargetKindTest, Name: "hello_unittest", SourcePath: lib, GroupID: "hello_unittest"},
		},
		Edition: domain.Edition2024_07,
		Metadata: domain.PackageMetadata{
			Description: "hello world",
			Readme:      filepath.Join(root, "README.md"),
			LicenseFile: license,
		},
		Features: domain.FeaturesDefinition{"default": {"extra"}, "extra": {}},
	})
}

func newPackager(t *testing.T) (*packager.Packager, *mocks.MockReporter) {
	t.Helper()
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockReporter(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	return packager.New(tarball.NewArchiver(), fs.NewWalker(), reporter, logger), reporter
}

func TestPackager_List(t *testing.T) {
	p, _ := newPackager(t)

	files, err := p.List(helloPackage(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"VERSION",
		".scarbignore",
		"LICENSE.txt",
		"README.md",
		"Scarb.orig.toml",
		"Scarb.toml",
		"src/foo.cairo",
		"src/lib.cairo",
	}, files)
}

func TestPackager_ListRejectsReservedNames(t *testing.T) {
	p, _ := newPackager(t)
	pkg := helloPackage(t)
	write(t, pkg.Root(), domain.VersionFileName, "2\n")

	_, err := p.List(pkg)
	require.ErrorIs(t, err, domain.ErrTarballReservedName)
	assert.Contains(t, err.Error(), "VERSION")
}

func TestPackager_Package(t *testing.T) {
	p, reporter := newPackager(t)
	pkg := helloPackage(t)
	targetDir := filepath.Join(pkg.Root(), domain.TargetDirName)
	reporter.EXPECT().Status("Packaging", pkg.ID.String())
	reporter.EXPECT().Status("Packaged", gomock.Any()).Do(func(_, msg string) {
		assert.True(t, strings.HasPrefix(msg, "8 files, "), msg)
	})

	res, err := p.Package(context.Background(), pkg, targetDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(targetDir, "package", "hello-0.1.0.tar.zst"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), res.Checksum.String())
	assert.Len(t, res.Files, 8)

	t.Run("entries", func(t *testing.T) {
		dec, err := zstd.NewReader(strings.NewReader(string(data)))
		require.NoError(t, err)
		defer dec.Close()
		tr := tar.NewReader(dec)
		var names []string
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			names = append(names, hdr.Name)
			assert.Equal(t, int64(1), hdr.ModTime.Unix(), hdr.Name)
		}
		require.NotEmpty(t, names)
		assert.Equal(t, "hello-0.1.0/VERSION", names[0])
		assert.NotContains(t, names, "hello-0.1.0/notes.tmp")
		assert.NotContains(t, names, "hello-0.1.0/nested/src/lib.cairo")
	})

	dest := t.TempDir()
	require.NoError(t, tarball.NewArchiver().Unpack(res.Path, "hello-0.1.0", dest))

	t.Run("original manifest", func(t *testing.T) {
		orig, err := os.ReadFile(filepath.Join(dest, domain.OriginalManifestFileName))
		require.NoError(t, err)
		assert.Equal(t, origManifest, string(orig))
	})

	t.Run("normalized manifest", func(t *testing.T) {
		raw, err := os.ReadFile(filepath.Join(dest, domain.ManifestFileName))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(raw), "# Code generated by scarb package. DO NOT EDIT."))

		var m map[string]any
		require.NoError(t, toml.Unmarshal(raw, &m))

		pkgTable := m["package"].(map[string]any)
		assert.Equal(t, "hello", pkgTable["name"])
		assert.Equal(t, "0.1.0", pkgTable["version"])
		assert.Equal(t, "2024_07", pkgTable["edition"])
		assert.Equal(t, "README.md", pkgTable["readme"])
		assert.Equal(t, "LICENSE.txt", pkgTable["license-file"])

		assert.Equal(t, map[string]any{
			"foo": map[string]any{"version": "^1.0.0"},
			"bar": map[string]any{"version": "^0.2.0"},
		}, m["dependencies"])
		assert.Equal(t, map[string]any{
			"snforge": map[string]any{"version": "^0.30.0", "default-features": false},
		}, m["dev-dependencies"])

		assert.Equal(t, map[string]any{"name": "hello", "source-path": "src/lib.cairo", "sierra": true}, m["lib"])
		assert.Equal(t, map[string]any{
			"executable": []any{map[string]any{"name": "hello_exe", "source-path": "src/lib.cairo"}},
		}, m["target"])
		assert.NotContains(t, m, "test")
	})
}

func TestPackager_PackageRejectsUnversionedPathDependency(t *testing.T) {
	p, reporter := newPackager(t)
	pkg := helloPackage(t)
	src, err := domain.NewPathSourceID(filepath.Join(pkg.Root(), "..", "baz"))
	require.NoError(t, err)
	pkg.Manifest.Summary.Dependencies = append(pkg.Manifest.Summary.Dependencies,
		domain.NewManifestDependency("baz", domain.AnyDependencyReq(), src))
	reporter.EXPECT().Status("Packaging", gomock.Any())

	_, err = p.List(pkg)
	require.NoError(t, err)

	_, err = p.Package(context.Background(), pkg, filepath.Join(pkg.Root(), domain.TargetDirName))
	require.ErrorIs(t, err, domain.ErrUnpublishableDependency)
	assert.NoFileExists(t, filepath.Join(pkg.Root(), domain.TargetDirName, "package", "hello-0.1.0.tar.zst"))
}
