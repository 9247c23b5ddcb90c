package sources_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/adapters/manifest"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/adapters/sources"
	"go.trai.ch/scarb/internal/adapters/tarball"
	"go.trai.ch/scarb/internal/adapters/telemetry"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const commit = "0123456789abcdef0123456789abcdef01234567"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func packageManifest(name, version string) string {
	return "[package]\nname = \"" + name + "\"\nversion = \"" + version + "\"\n"
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

type fixture struct {
	ctrl    *gomock.Controller
	git     *mocks.MockGitClient
	builder *sources.Builder
	cfg     *domain.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := quietLogger(ctrl)
	git := mocks.NewMockGitClient(ctrl)
	return &fixture{
		ctrl: ctrl,
		git:  git,
		builder: &sources.Builder{
			Loader:     manifest.NewLoader(log),
			Git:        git,
			Registries: registry.NewFactory(log),
			Archiver:   tarball.NewArchiver(),
			Walker:     fs.NewWalker(),
			Tracer:     telemetry.NewNoOpTracer(),
			Logger:     log,
		},
		cfg: &domain.Config{CacheDir: t.TempDir()},
	}
}

func TestPathSource(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, domain.ManifestFileName), packageManifest("foo", "1.2.0"))
	source, err := domain.NewPathSourceID(dir)
	require.NoError(t, err)

	m := f.builder.SourceMap(f.cfg)
	ctx := context.Background()

	dep := domain.NewManifestDependency("foo", domain.ReqDependencyReq(domain.MustParseVersionReq("^1")), source)
	summaries, err := m.Query(ctx, dep)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "1.2.0", summaries[0].PackageID.Version.String())

	none, err := m.Query(ctx, domain.NewManifestDependency("foo", domain.ReqDependencyReq(domain.MustParseVersionReq("^2")), source))
	require.NoError(t, err)
	assert.Empty(t, none)

	pkg, err := m.Download(ctx, summaries[0].PackageID)
	require.NoError(t, err)
	assert.Equal(t, dir, pkg.Root())
}

func expectFetch(t *testing.T, f *fixture, ref domain.GitReference) {
	f.git.EXPECT().InitBare(gomock.Any(), gomock.Any()).Return(nil)
	f.git.EXPECT().Fetch(gomock.Any(), gomock.Any(), "https://example.com/dep1.git", ref).Return(nil)
	f.git.EXPECT().ResolveReference(gomock.Any(), gomock.Any(), ref).Return(commit, nil)
	f.git.EXPECT().
		Checkout(gomock.Any(), gomock.Any(), commit, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, dest string) error {
			writeFile(t, filepath.Join(dest, domain.ManifestFileName), packageManifest("dep1", "0.1.0"))
			writeFile(t, filepath.Join(dest, "nested", "dep2", domain.ManifestFileName), packageManifest("dep2", "0.2.0"))
			writeFile(t, filepath.Join(dest, domain.TargetDirName, "x", domain.ManifestFileName), packageManifest("ignored", "0.1.0"))
			return nil
		})
}

func TestGitSource_FetchesOnce(t *testing.T) {
	f := newFixture(t)
	ref := domain.GitReference{Kind: domain.GitBranch, Value: "foo"}
	source, err := domain.NewGitSourceID("https://example.com/dep1.git", ref)
	require.NoError(t, err)
	expectFetch(t, f, ref)

	m := f.builder.SourceMap(f.cfg)
	ctx := context.Background()

	for _, name := range []domain.PackageName{"dep1", "dep2", "ignored"} {
		summaries, err := m.Query(ctx, domain.NewManifestDependency(name, domain.AnyDependencyReq(), source))
		require.NoError(t, err)
		if name == "ignored" {
			assert.Empty(t, summaries)
			continue
		}
		require.Len(t, summaries, 1)
		assert.Equal(t, commit, summaries[0].PackageID.Source.Precise())
	}

	src, err := m.Source(source)
	require.NoError(t, err)
	got, err := src.(*sources.GitSource).Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, commit, got)
}

func TestGitSource_LockedCheckoutSkipsFetch(t *testing.T) {
	f := newFixture(t)
	ref := domain.GitReference{Kind: domain.GitBranch, Value: "foo"}
	source, err := domain.NewGitSourceID("https://example.com/dep1.git", ref)
	require.NoError(t, err)
	expectFetch(t, f, ref)

	ctx := context.Background()
	_, err = f.builder.SourceMap(f.cfg).Query(ctx, domain.NewManifestDependency("dep1", domain.AnyDependencyReq(), source))
	require.NoError(t, err)

	offline := *f.cfg
	offline.Offline = true
	locked := source.WithPrecise(commit)
	summaries, err := f.builder.SourceMap(&offline).Query(ctx, domain.NewManifestDependency("dep1", domain.AnyDependencyReq(), locked))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestGitSource_Offline(t *testing.T) {
	f := newFixture(t)
	f.cfg.Offline = true
	source, err := domain.NewGitSourceID("https://example.com/dep1.git", domain.GitReference{})
	require.NoError(t, err)

	_, err = f.builder.SourceMap(f.cfg).Query(context.Background(), domain.NewManifestDependency("dep1", domain.AnyDependencyReq(), source))
	assert.ErrorContains(t, err, domain.ErrOffline.Error())
}

func TestRegistrySource_LocalRegistry(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	source, err := domain.NewRegistrySourceID("file://" + filepath.ToSlash(root))
	require.NoError(t, err)

	archive, err := tarball.NewArchiver().PackBytes("foo-1.1.0", []tarball.File{
		{ArchivePath: domain.ManifestFileName, Content: []byte(packageManifest("foo", "1.1.0"))},
		{ArchivePath: "src/lib.cairo", Content: []byte("fn foo() {}\n")},
	})
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "dl", "foo-1.1.0.tar.zst"), string(archive))

	sum := sha256.Sum256(archive)
	records := []map[string]any{
		{"v": "1.0.0", "deps": []any{}, "cksum": "sha256:" + hex.EncodeToString(make([]byte, 32))},
		{"v": "1.1.0", "deps": []map[string]string{{"name": "bar", "req": "^0.3"}}, "cksum": "sha256:" + hex.EncodeToString(sum[:]), "audited": true},
		{"v": "2.0.0", "deps": []any{}, "cksum": "sha256:" + hex.EncodeToString(make([]byte, 32))},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "index", "3", "f", "foo.json"), string(data))

	m := f.builder.SourceMap(f.cfg)
	ctx := context.Background()

	summaries, err := m.Query(ctx, domain.NewManifestDependency("foo", domain.ReqDependencyReq(domain.MustParseVersionReq("^1")), source))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "1.1.0", summaries[0].PackageID.Version.String())
	assert.True(t, summaries[0].Audited)
	require.Len(t, summaries[0].Dependencies, 1)
	assert.Equal(t, source, summaries[0].Dependencies[0].SourceID)

	pkg, err := m.Download(ctx, summaries[0].PackageID)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(pkg.Root(), "src", "lib.cairo"))
	assert.FileExists(t, filepath.Join(pkg.Root(), domain.OkFileName))

	_, err = m.Download(ctx, summaries[1].PackageID)
	assert.ErrorContains(t, err, domain.ErrPackageNotFound.Error())
}

func TestStdSource_MissingCorelib(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder.SourceMap(f.cfg).Query(context.Background(), domain.ImplicitCoreDependency(domain.MustParseVersion("2.9.0")))
	assert.ErrorContains(t, err, domain.ErrPackageNotFound.Error())
}

func TestSourceMap_Memoizes(t *testing.T) {
	f := newFixture(t)
	m := f.builder.SourceMap(f.cfg)

	a, err := m.Source(domain.StdSourceID())
	require.NoError(t, err)
	b, err := m.Source(domain.StdSourceID())
	require.NoError(t, err)
	assert.Same(t, a, b)

	err = a.Publish(context.Background(), domain.PackageID{}, "")
	assert.ErrorContains(t, err, domain.ErrPublishUnsupported.Error())
}
