package sources

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/scarb/internal/adapters/flock"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/adapters/tarball"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*RegistrySource)(nil)

// RegistrySource serves packages published to a registry.
// Archives are unpacked into <registry>/src/<ident>/<name>-<version>.
type RegistrySource struct {
	id       domain.SourceID
	cache    *registry.Cache
	archiver *tarball.Archiver
	loader   ports.ManifestLoader
	tracer   ports.Tracer
	srcDir   string

	mu       sync.Mutex
	packages map[domain.PackageID]*domain.Package
}

// NewRegistrySource creates a source for a registry source id.
func NewRegistrySource(id domain.SourceID, cache *registry.Cache, archiver *tarball.Archiver, loader ports.ManifestLoader, tracer ports.Tracer, registryDir string) *RegistrySource {
	return &RegistrySource{
		id:       id,
		cache:    cache,
		archiver: archiver,
		loader:   loader,
		tracer:   tracer,
		srcDir:   filepath.Join(registryDir, "src", id.Ident()),
		packages: make(map[domain.PackageID]*domain.Package),
	}
}

// ID returns the source id.
func (s *RegistrySource) ID() domain.SourceID { return s.id }

// Query returns every indexed version satisfying dep, newest first.
func (s *RegistrySource) Query(ctx context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	records, err := s.cache.Records(ctx, dep.Name)
	if err != nil {
		return nil, err
	}

	var out []domain.Summary
	for _, r := range records {
		if !dep.VersionReq.Matches(r.Version) {
			continue
		}
		summary, err := s.summary(dep.Name, r)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b domain.Summary) int {
		return b.PackageID.Version.Compare(a.PackageID.Version)
	})
	return out, nil
}

// Download fetches, verifies and unpacks the archive of id.
func (s *RegistrySource) Download(ctx context.Context, id domain.PackageID) (*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pkg, ok := s.packages[id]; ok {
		return pkg, nil
	}

	prefix := string(id.Name) + "-" + id.Version.String()
	dest := flock.New(filepath.Join(s.srcDir, prefix), nil)
	if !dest.IsOK() {
		if err := s.unpack(ctx, id, prefix, dest); err != nil {
			return nil, err
		}
	}

	pkg, err := s.loader.ReadPackage(dest.Join(domain.ManifestFileName), s.id)
	if err != nil {
		return nil, err
	}
	s.packages[id] = pkg
	return pkg, nil
}

// SupportsPublish reports whether the registry advertises an upload endpoint.
func (s *RegistrySource) SupportsPublish() bool {
	return s.cache.Client().SupportsPublish()
}

// Publish is unsupported: the upload wire format is not implemented.
func (s *RegistrySource) Publish(context.Context, domain.PackageID, string) error {
	return zerr.With(zerr.Wrap(domain.ErrPublishUnsupported, ""), "source", s.id.String())
}

func (s *RegistrySource) unpack(ctx context.Context, id domain.PackageID, prefix string, dest *flock.Filesystem) error {
	ctx, span := s.tracer.Start(ctx, id.String(), ports.WithStatus("Downloading"))
	defer span.End()

	archive, err := s.cache.Archive(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := dest.Recreate(); err != nil {
		return err
	}
	if err := s.archiver.Unpack(archive, prefix, dest.PathUnchecked()); err != nil {
		return zerr.With(err, "package", id.String())
	}
	return dest.MarkOK()
}

func (s *RegistrySource) summary(name domain.PackageName, r domain.IndexRecord) (domain.Summary, error) {
	id := domain.NewPackageID(name, r.Version, s.id)
	deps := make([]domain.ManifestDependency, 0, len(r.Deps))
	for _, d := range r.Deps {
		req, err := domain.ParseVersionReq(d.Req)
		if err != nil {
			return domain.Summary{}, zerr.With(zerr.With(err, "package", id.String()), "dependency", string(d.Name))
		}
		source := s.id
		if d.Source != "" {
			source, err = domain.ParseSourceID(d.Source)
			if err != nil {
				return domain.Summary{}, zerr.With(zerr.With(err, "package", id.String()), "dependency", string(d.Name))
			}
		}
		deps = append(deps, domain.NewManifestDependency(d.Name, domain.ReqDependencyReq(req), source))
	}
	return domain.Summary{
		PackageID:    id,
		Dependencies: deps,
		Checksum:     r.Checksum,
		Audited:      r.Audited,
		Yanked:       r.Yanked,
		NoCore:       r.NoCore,
	}, nil
}
