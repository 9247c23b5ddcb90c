package sources

import (
	"context"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/adapters/flock"
	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Source = (*GitSource)(nil)

// shortCommitLen is the length of the commit prefix naming a checkout directory.
const shortCommitLen = 7

// GitSource serves the packages found in one commit of a git repository.
//
// The repository is mirrored into <git>/db/<ident> and the commit is checked out
// into <git>/checkouts/<ident>/<short commit>, marked complete with .scarb-ok.
type GitSource struct {
	id      domain.SourceID
	client  ports.GitClient
	loader  ports.ManifestLoader
	walker  *fs.Walker
	tracer  ports.Tracer
	logger  ports.Logger
	gitDir  string
	offline bool

	mu     sync.Mutex
	loaded bool
	pkgs   []*domain.Package
	commit string
}

// GitOptions configures a GitSource.
type GitOptions struct {
	// GitDir is the git cache directory.
	GitDir  string
	Offline bool
}

// NewGitSource creates a source for a git source id.
func NewGitSource(id domain.SourceID, client ports.GitClient, loader ports.ManifestLoader, walker *fs.Walker, tracer ports.Tracer, logger ports.Logger, opts GitOptions) *GitSource {
	return &GitSource{
		id:      id,
		client:  client,
		loader:  loader,
		walker:  walker,
		tracer:  tracer,
		logger:  logger,
		gitDir:  opts.GitDir,
		offline: opts.Offline,
	}
}

// ID returns the source id.
func (s *GitSource) ID() domain.SourceID { return s.id }

// Query returns the packages of the checkout satisfying dep.
func (s *GitSource) Query(ctx context.Context, dep domain.ManifestDependency) ([]domain.Summary, error) {
	pkgs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return matching(pkgs, dep), nil
}

// Download returns the checked out package with id.
func (s *GitSource) Download(ctx context.Context, id domain.PackageID) (*domain.Package, error) {
	pkgs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pkgs {
		if p.ID.Name == id.Name && p.ID.Version.Compare(id.Version) == 0 {
			return p, nil
		}
	}
	return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "git repository does not contain package"), "package", id.String())
}

// SupportsPublish is false.
func (s *GitSource) SupportsPublish() bool { return false }

// Publish is unsupported.
func (s *GitSource) Publish(context.Context, domain.PackageID, string) error {
	return zerr.With(zerr.Wrap(domain.ErrPublishUnsupported, ""), "source", s.id.String())
}

// Commit returns the commit the source is locked to, fetching if needed.
func (s *GitSource) Commit(ctx context.Context) (string, error) {
	if _, err := s.load(ctx); err != nil {
		return "", err
	}
	return s.commit, nil
}

func (s *GitSource) load(ctx context.Context) ([]*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.pkgs, nil
	}

	checkout, commit, err := s.ensureCheckout(ctx)
	if err != nil {
		return nil, err
	}

	locked := s.id.WithPrecise(commit)
	pkgs, err := discoverPackages(s.walker, s.loader, checkout.PathUnchecked(), locked, s.logger)
	if err != nil {
		return nil, err
	}

	s.pkgs, s.commit, s.loaded = pkgs, commit, true
	return pkgs, nil
}

func (s *GitSource) ensureCheckout(ctx context.Context) (*flock.Filesystem, string, error) {
	ident := s.id.Ident()
	db := filepath.Join(s.gitDir, "db", ident)
	checkouts := flock.New(filepath.Join(s.gitDir, "checkouts", ident), nil)

	if precise := s.id.Precise(); precise != "" {
		if co := checkouts.Child(shortCommit(precise)); co.IsOK() {
			return co, precise, nil
		}
	}

	if s.offline {
		return nil, "", zerr.With(zerr.Wrap(domain.ErrOffline, "cannot fetch git repository"), "url", s.id.URL())
	}

	commit, err := s.fetch(ctx, db)
	if err != nil {
		return nil, "", err
	}

	co := checkouts.Child(shortCommit(commit))
	if co.IsOK() {
		return co, commit, nil
	}
	if err := co.Recreate(); err != nil {
		return nil, "", err
	}
	if err := s.client.Checkout(ctx, db, commit, co.PathUnchecked()); err != nil {
		return nil, "", zerr.With(err, "url", s.id.URL())
	}
	if err := co.MarkOK(); err != nil {
		return nil, "", err
	}
	return co, commit, nil
}

func (s *GitSource) fetch(ctx context.Context, db string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "git repository "+s.id.URL(), ports.WithStatus("Updating"))
	defer span.End()

	commit, err := s.fetchCommit(ctx, db)
	if err != nil {
		span.RecordError(err)
		return "", zerr.With(err, "url", s.id.URL())
	}
	return commit, nil
}

func (s *GitSource) fetchCommit(ctx context.Context, db string) (string, error) {
	ref := s.id.GitReference()
	if err := s.client.InitBare(ctx, db); err != nil {
		return "", err
	}
	if err := s.client.Fetch(ctx, db, s.id.URL(), ref); err != nil {
		return "", err
	}

	precise := s.id.Precise()
	if precise == "" {
		return s.client.ResolveReference(ctx, db, ref)
	}

	rev := domain.GitReference{Kind: domain.GitRev, Value: precise}
	if commit, err := s.client.ResolveReference(ctx, db, rev); err == nil {
		return commit, nil
	}
	if err := s.client.Fetch(ctx, db, s.id.URL(), rev); err != nil {
		return "", err
	}
	return s.client.ResolveReference(ctx, db, rev)
}

func shortCommit(commit string) string {
	if len(commit) > shortCommitLen {
		return commit[:shortCommitLen]
	}
	return commit
}
