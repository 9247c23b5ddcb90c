package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.trai.ch/scarb/internal/adapters/flock" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// session is the loaded workspace of one invocation.
type session struct {
	cfg     *domain.Config
	ws      *domain.Workspace
	members []*domain.Package
}

// ResolveOptions tune dependency resolution.
type ResolveOptions struct {
	Update resolver.UpdateOptions
}

// open loads the workspace and selects the members the packages filter names.
// The returned session carries a copy of cfg with the default target directory filled in.
func (a *App) open(cfg *domain.Config) (*session, error) {
	if cfg.ManifestPath == "" {
		return nil, domain.ErrManifestNotFound
	}
	ws, err := a.manifests.LoadWorkspace(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	c := *cfg
	if c.TargetDir == "" {
		c.TargetDir = filepath.Join(ws.Root(), domain.TargetDirName)
	}

	members, err := selectMembers(ws, &c)
	if err != nil {
		return nil, err
	}
	return &session{cfg: &c, ws: ws, members: members}, nil
}

// selectMembers applies the packages filter. Without a filter the package whose manifest
// was found is selected, or every member when that manifest only declares the workspace.
func selectMembers(ws *domain.Workspace, cfg *domain.Config) ([]*domain.Package, error) {
	if cfg.PackagesFilter == "" {
		for _, m := range ws.Members {
			if m.ManifestPath == cfg.ManifestPath {
				return []*domain.Package{m}, nil
			}
		}
		return ws.Members, nil
	}

	var out []*domain.Package
	for _, m := range ws.Members {
		if domain.MatchesPackagesFilter(cfg.PackagesFilter, m.ID.Name) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoMatchingPackage, ""), "filter", cfg.PackagesFilter)
	}
	return out, nil
}

// resolve runs dependency resolution and refreshes Scarb.lock. With download set every
// package of the resolve is materialized as well. The package cache is locked throughout.
func (a *App) resolve(ctx context.Context, s *session, opts ResolveOptions, download bool) (*domain.ResolvedWorkspace, error) {
	ctx, span := a.tracer.Start(ctx, "resolve")
	defer span.End()

	guard, err := a.cacheLock(s.cfg).Acquire(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to lock package cache")
	}
	defer func() {
		_ = guard.Release()
	}()

	lockPath := s.ws.LockfilePath()
	lock, err := a.lockfiles.Read(lockPath)
	if err != nil {
		return nil, err
	}

	registry := a.registryFor(s.cfg)
	res, err := resolver.New(registry, a.logger).Resolve(ctx, s.ws, resolver.Options{
		Lockfile:    lock,
		Update:      opts.Update,
		CoreVersion: &s.cfg.CairoVersion,
		Jobs:        s.cfg.Jobs,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("packages", len(res.Summaries))

	changed, err := a.lockfiles.Write(lockPath, res.ToLockfile())
	if err != nil {
		return nil, err
	}
	if changed {
		a.logger.Debug("updated " + lockPath)
	}

	rw := &domain.ResolvedWorkspace{Workspace: s.ws, Resolve: res}
	if !download {
		return rw, nil
	}
	if rw.Packages, err = a.download(ctx, s, registry, res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rw, nil
}

// download materializes every non-member package of res.
func (a *App) download(ctx context.Context, s *session, registry ports.PackageRegistry, res *domain.Resolve) (map[domain.PackageID]*domain.Package, error) {
	ids := res.PackageIDs()
	packages := make(map[domain.PackageID]*domain.Package, len(ids))
	for _, m := range s.ws.Members {
		packages[m.ID] = m
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Jobs, 1))
	for _, id := range ids {
		if _, ok := packages[id]; ok {
			continue
		}
		g.Go(func() error {
			pkg, err := registry.Download(ctx, id)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to download package"), "package", id.String())
			}
			mu.Lock()
			packages[id] = pkg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Debug(fmt.Sprintf("%d packages available", len(packages)))
	return packages, nil
}

func (a *App) cacheLock(cfg *domain.Config) *flock.AdvisoryLock {
	return flock.New(cfg.CacheDir, a.reporter).AdvisoryLock(domain.PackageCacheLockFileName, "package cache")
}

func (a *App) targetLock(cfg *domain.Config) *flock.AdvisoryLock {
	return flock.NewOutputDir(cfg.TargetDir, a.reporter).AdvisoryLock(domain.TargetLockFileName, "build directory")
}

// Resolve resolves the workspace dependencies and writes Scarb.lock.
func (a *App) Resolve(ctx context.Context, cfg *domain.Config, opts ResolveOptions) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	_, err = a.resolve(ctx, s, opts, false)
	return err
}

// Fetch resolves the workspace dependencies and downloads every package.
func (a *App) Fetch(ctx context.Context, cfg *domain.Config, opts ResolveOptions) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	_, err = a.resolve(ctx, s, opts, true)
	return err
}
