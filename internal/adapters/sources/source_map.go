package sources

import (
	"context"
	"sync"

	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/adapters/tarball"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.PackageRegistry = (*SourceMap)(nil)

// Builder holds the config-independent collaborators of every source.
type Builder struct {
	Loader     ports.ManifestLoader
	Git        ports.GitClient
	Registries *registry.Factory
	Archiver   *tarball.Archiver
	Walker     *fs.Walker
	Tracer     ports.Tracer
	Logger     ports.Logger
}

// SourceMap creates the source map of one invocation.
func (b *Builder) SourceMap(cfg *domain.Config) *SourceMap {
	return &SourceMap{builder: b, cfg: cfg, sources: make(map[domain.SourceID]ports.Source)}
}

// SourceMap memoizes one Source per source id and dispatches registry operations to it.
type SourceMap struct {
	builder *Builder
	cfg     *domain.Config

	group   singleflight.Group
	mu      sync.Mutex
	sources map[domain.SourceID]ports.Source
}

// Query dispatches to the source of dep.
func (m *SourceMap) Query(ctx context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	src, err := m.Source(dep.SourceID)
	if err != nil {
		return nil, err
	}
	return src.Query(ctx, dep)
}

// Download dispatches to the source of id.
func (m *SourceMap) Download(ctx context.Context, id domain.PackageID) (*domain.Package, error) {
	src, err := m.Source(id.Source)
	if err != nil {
		return nil, err
	}
	return src.Download(ctx, id)
}

// Source returns the memoized source for id.
func (m *SourceMap) Source(id domain.SourceID) (ports.Source, error) {
	m.mu.Lock()
	if src, ok := m.sources[id]; ok {
		m.mu.Unlock()
		return src, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(id.PrettyURL(), func() (any, error) {
		src, err := m.create(id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sources[id] = src
		m.mu.Unlock()
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ports.Source), nil
}

func (m *SourceMap) create(id domain.SourceID) (ports.Source, error) {
	b := m.builder
	switch id.Kind() {
	case domain.SourceKindPath:
		return NewPathSource(id, b.Loader), nil
	case domain.SourceKindGit:
		return NewGitSource(id, b.Git, b.Loader, b.Walker, b.Tracer, b.Logger, GitOptions{
			GitDir:  m.cfg.GitCacheDir(),
			Offline: m.cfg.Offline,
		}), nil
	case domain.SourceKindRegistry:
		cache, err := b.Registries.Cache(id, m.cfg)
		if err != nil {
			return nil, err
		}
		return NewRegistrySource(id, cache, b.Archiver, b.Loader, b.Tracer, m.cfg.RegistryCacheDir()), nil
	case domain.SourceKindStd:
		return NewStdSource(m.cfg.CorelibPath, b.Loader), nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedSourceKind, ""), "source", id.String())
	}
}
