package sources

import (
	"context"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*StdSource)(nil)

// StdSource serves the core library shipped with the compiler.
type StdSource struct {
	corelib string
	loader  ports.ManifestLoader

	once sync.Once
	pkg  *domain.Package
	err  error
}

// NewStdSource creates the std source reading the core library package at corelib.
func NewStdSource(corelib string, loader ports.ManifestLoader) *StdSource {
	return &StdSource{corelib: corelib, loader: loader}
}

// ID returns the std source id.
func (s *StdSource) ID() domain.SourceID { return domain.StdSourceID() }

// Query returns the core library if it matches dep.
func (s *StdSource) Query(_ context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	pkg, err := s.load()
	if err != nil {
		return nil, err
	}
	return matching([]*domain.Package{pkg}, dep), nil
}

// Download returns the core library.
func (s *StdSource) Download(_ context.Context, id domain.PackageID) (*domain.Package, error) {
	pkg, err := s.load()
	if err != nil {
		return nil, err
	}
	if pkg.ID != id {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "bundled core library has a different version"), "package", id.String())
	}
	return pkg, nil
}

// SupportsPublish is false.
func (s *StdSource) SupportsPublish() bool { return false }

// Publish is unsupported.
func (s *StdSource) Publish(context.Context, domain.PackageID, string) error {
	return zerr.With(zerr.Wrap(domain.ErrPublishUnsupported, ""), "source", "std")
}

func (s *StdSource) load() (*domain.Package, error) {
	s.once.Do(func() {
		if s.corelib == "" {
			s.err = zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "could not find the core library"), "hint", "set "+domain.EnvCorelibPath)
			return
		}
		s.pkg, s.err = s.loader.ReadPackage(filepath.Join(s.corelib, domain.ManifestFileName), domain.StdSourceID())
	})
	return s.pkg, s.err
}
