// Package sources implements the backends packages are queried from and downloaded by.
package sources

import (
	"context"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*PathSource)(nil)

// PathSource serves the single package whose manifest sits at the source directory.
type PathSource struct {
	id     domain.SourceID
	loader ports.ManifestLoader

	once sync.Once
	pkg  *domain.Package
	err  error
}

// NewPathSource creates a source for a path source id.
func NewPathSource(id domain.SourceID, loader ports.ManifestLoader) *PathSource {
	return &PathSource{id: id, loader: loader}
}

// ID returns the source id.
func (s *PathSource) ID() domain.SourceID { return s.id }

// Query returns the package at the path if it matches dep.
func (s *PathSource) Query(_ context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	pkg, err := s.load()
	if err != nil {
		return nil, err
	}
	return matching([]*domain.Package{pkg}, dep), nil
}

// Download returns the package at the path.
func (s *PathSource) Download(_ context.Context, id domain.PackageID) (*domain.Package, error) {
	pkg, err := s.load()
	if err != nil {
		return nil, err
	}
	if pkg.ID != id {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "path source does not contain package"), "package", id.String())
	}
	return pkg, nil
}

// SupportsPublish is false.
func (s *PathSource) SupportsPublish() bool { return false }

// Publish is unsupported.
func (s *PathSource) Publish(context.Context, domain.PackageID, string) error {
	return zerr.With(zerr.Wrap(domain.ErrPublishUnsupported, ""), "source", s.id.String())
}

func (s *PathSource) load() (*domain.Package, error) {
	s.once.Do(func() {
		s.pkg, s.err = s.loader.ReadPackage(filepath.Join(s.id.Path(), domain.ManifestFileName), s.id)
	})
	return s.pkg, s.err
}

// matching returns the summaries of pkgs satisfying dep.
func matching(pkgs []*domain.Package, dep domain.ManifestDependency) []domain.Summary {
	var out []domain.Summary
	for _, p := range pkgs {
		if dep.MatchesSummary(p.Manifest.Summary) {
			out = append(out, p.Manifest.Summary)
		}
	}
	return out
}
