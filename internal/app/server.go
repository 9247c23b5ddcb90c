package app

import (
	"context"
	"io"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/engine/driver"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.trai.ch/scarb/internal/engine/pmserver"
	"go.trai.ch/zerr"
)

// ProcMacroServer builds the procedural macros of the whole workspace with every feature
// enabled and answers expansion requests read from in until in is closed.
// Status output goes to status so that out only carries responses.
func (a *App) ProcMacroServer(ctx context.Context, cfg *domain.Config, in io.Reader, out, status io.Writer) error {
	a.redirectStatus(status)

	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	rw, err := a.resolve(ctx, s, ResolveOptions{}, true)
	if err != nil {
		return err
	}
	units, err := a.planner.Plan(rw, s.ws.Members, planner.Options{
		Profile:            s.cfg.Profile,
		Features:           domain.FeaturesOpts{AllFeatures: true},
		Targets:            planner.TargetFilter{All: true},
		LoadPrebuilt:       true,
		CairoVersion:       &s.cfg.CairoVersion,
		IgnoreCairoVersion: true,
	})
	if err != nil {
		return err
	}

	srv, err := a.loadServer(ctx, s, units)
	if err != nil {
		return err
	}
	a.logger.Debug("proc-macro server ready")
	return srv.Serve(ctx, in, out)
}

// loadServer builds the plugins under the target lock. The lock is released before serving.
func (a *App) loadServer(ctx context.Context, s *session, units []domain.CompilationUnit) (*pmserver.Server, error) {
	guard, err := a.targetLock(s.cfg).Acquire(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to lock build directory")
	}
	defer func() {
		_ = guard.Release()
	}()

	tc := driver.Toolchain{Builder: a.toolchain.PluginBuilder(s.cfg)}
	plugins, err := a.driver.LoadPlugins(ctx, s.cfg, tc, units)
	if err != nil {
		return nil, err
	}
	return pmserver.FromUnits(units, plugins, a.logger)
}
