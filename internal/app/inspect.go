package app

import (
	"context"

	"go.trai.ch/scarb/internal/build"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/metadata"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.trai.ch/scarb/internal/engine/tree"
)

// MetadataOptions configuration for the Metadata method.
type MetadataOptions struct {
	FormatVersion int
	NoDeps        bool
}

// Metadata prints the machine readable description of the workspace.
func (a *App) Metadata(ctx context.Context, cfg *domain.Config, opts MetadataOptions) error {
	if err := metadata.CheckFormatVersion(opts.FormatVersion); err != nil {
		return err
	}
	s, err := a.open(cfg)
	if err != nil {
		return err
	}

	in := metadata.Input{
		Config:    s.cfg,
		Workspace: s.ws,
		AppExe:    s.cfg.ScarbPath,
		Version:   metadata.NewVersionInfo(build.Version, build.Commit, build.Date, build.CairoVersion),
	}
	if !opts.NoDeps {
		rw, err := a.resolve(ctx, s, ResolveOptions{}, true)
		if err != nil {
			return err
		}
		units, err := a.planner.Plan(rw, s.ws.Members, planner.Options{
			Profile:            s.cfg.Profile,
			Features:           s.cfg.Features,
			Targets:            planner.TargetFilter{All: true},
			LoadPrebuilt:       true,
			CairoVersion:       &s.cfg.CairoVersion,
			IgnoreCairoVersion: true,
		})
		if err != nil {
			return err
		}
		in.Resolved = rw
		in.Units = units
	}

	md, err := metadata.Collect(in, metadata.Options{FormatVersion: opts.FormatVersion, NoDeps: opts.NoDeps})
	if err != nil {
		return err
	}
	return a.reporter.Data(md)
}

// Tree prints the dependency graph of the selected members.
func (a *App) Tree(ctx context.Context, cfg *domain.Config, opts tree.Options) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	rw, err := a.resolve(ctx, s, ResolveOptions{}, false)
	if err != nil {
		return err
	}

	roots := make([]domain.PackageID, 0, len(s.members))
	for _, m := range s.members {
		roots = append(roots, m.ID)
	}
	forest := tree.Build(rw.Resolve, roots, opts)
	if s.cfg.JSON {
		return a.reporter.Data(forest)
	}
	a.reporter.Print(forest.String())
	return nil
}
