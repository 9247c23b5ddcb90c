package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.trai.ch/scarb/internal/adapters/flock" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// PackageOptions configuration for the Package method.
type PackageOptions struct {
	// List prints the files that would be archived instead of writing archives.
	List bool
}

type packageFiles struct {
	Package string   `json:"package"`
	Files   []string `json:"files"`
}

// Package writes the publishable archive of every selected member into the target directory.
func (a *App) Package(ctx context.Context, cfg *domain.Config, opts PackageOptions) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	if opts.List {
		return a.listPackages(s)
	}

	guard, err := a.targetLock(s.cfg).Acquire(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to lock build directory")
	}
	defer func() {
		_ = guard.Release()
	}()

	for _, m := range s.members {
		res, err := a.packager.Package(ctx, m, s.cfg.TargetDir)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to package"), "package", m.ID.String())
		}
		a.logger.Debug(fmt.Sprintf("%s %s", res.Checksum, res.Path))
	}
	return nil
}

func (a *App) listPackages(s *session) error {
	for _, m := range s.members {
		files, err := a.packager.List(m)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to list package files"), "package", m.ID.String())
		}
		if s.cfg.JSON {
			if err := a.reporter.Data(packageFiles{Package: m.ID.String(), Files: files}); err != nil {
				return err
			}
			continue
		}
		if len(s.members) > 1 {
			a.reporter.Print(m.ID.String() + ":")
		}
		for _, f := range files {
			a.reporter.Print(f)
		}
	}
	return nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Cache also removes the global package cache.
	Cache bool
}

// Clean removes the target directory of the workspace.
func (a *App) Clean(ctx context.Context, cfg *domain.Config, options CleanOptions) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}

	var errs error
	remove := func(dir *flock.Filesystem, lock *flock.AdvisoryLock, name string) {
		if !dir.Exists() {
			return
		}
		guard, err := lock.Acquire(ctx)
		if err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to lock %s", name)))
			return
		}
		defer func() {
			_ = guard.Release()
		}()

		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(dir.PathUnchecked()); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	remove(flock.NewOutputDir(s.cfg.TargetDir, a.reporter), a.targetLock(s.cfg), "target directory")
	if options.Cache {
		remove(flock.New(s.cfg.CacheDir, a.reporter), a.cacheLock(s.cfg), "package cache")
	}
	return errs
}
