package app

import (
	"context"

	"go.trai.ch/scarb/internal/adapters/compiler"  //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/procmacro" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/driver"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.trai.ch/zerr"
)

// Toolchain creates the executables of one invocation.
type Toolchain interface {
	Compiler(cfg *domain.Config) (ports.Compiler, error)
	PluginBuilder(cfg *domain.Config) ports.PluginBuilder
}

// execToolchain runs the configured Cairo compiler and cargo.
type execToolchain struct {
	compilers *compiler.Factory
	builders  *procmacro.BuilderFactory
}

func (t execToolchain) Compiler(cfg *domain.Config) (ports.Compiler, error) {
	return t.compilers.For(cfg)
}

func (t execToolchain) PluginBuilder(cfg *domain.Config) ports.PluginBuilder {
	return t.builders.For(cfg)
}

// CompileOptions select what Build, Check and Lint compile.
type CompileOptions struct {
	Targets planner.TargetFilter
	// DenyWarnings fails the build when any unit produced warnings.
	DenyWarnings bool
	// IgnoreCairoVersion downgrades cairo-version mismatches to warnings.
	IgnoreCairoVersion bool
}

// Build compiles the selected members and writes their artifacts.
func (a *App) Build(ctx context.Context, cfg *domain.Config, opts CompileOptions) error {
	return a.compile(ctx, cfg, opts, driver.ModeBuild, false)
}

// Check compiles the selected members without writing artifacts.
func (a *App) Check(ctx context.Context, cfg *domain.Config, opts CompileOptions) error {
	return a.compile(ctx, cfg, opts, driver.ModeCheck, false)
}

// Lint runs the linter over the selected members.
func (a *App) Lint(ctx context.Context, cfg *domain.Config, opts CompileOptions) error {
	return a.compile(ctx, cfg, opts, driver.ModeCheck, true)
}

func (a *App) compile(ctx context.Context, cfg *domain.Config, opts CompileOptions, mode driver.Mode, lint bool) error {
	s, err := a.open(cfg)
	if err != nil {
		return err
	}
	rw, err := a.resolve(ctx, s, ResolveOptions{}, true)
	if err != nil {
		return err
	}

	units, err := a.planner.Plan(rw, s.members, planner.Options{
		Profile:            s.cfg.Profile,
		Features:           s.cfg.Features,
		Targets:            opts.Targets,
		Lint:               lint,
		LoadPrebuilt:       true,
		CairoVersion:       &s.cfg.CairoVersion,
		IgnoreCairoVersion: opts.IgnoreCairoVersion,
	})
	if err != nil {
		return err
	}

	comp, err := a.toolchain.Compiler(s.cfg)
	if err != nil {
		return err
	}
	tc := driver.Toolchain{Compiler: comp, Builder: a.toolchain.PluginBuilder(s.cfg)}

	guard, err := a.targetLock(s.cfg).Acquire(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to lock build directory")
	}
	defer func() {
		_ = guard.Release()
	}()

	_, err = a.driver.Build(ctx, s.cfg, tc, units, driver.Options{
		Mode:         mode,
		DenyWarnings: opts.DenyWarnings,
		Jobs:         s.cfg.Jobs,
	})
	return err
}
