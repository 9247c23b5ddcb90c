// Package app implements the application layer for scarb.
package app

import (
	"io"

	"github.com/spf13/pflag"
	"go.trai.ch/scarb/internal/adapters/compiler"  //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/procmacro" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/sources"   //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/driver"
	"go.trai.ch/scarb/internal/engine/packager"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.trai.ch/zerr"
)

// RegistryFunc returns the package registry of one invocation.
type RegistryFunc func(cfg *domain.Config) ports.PackageRegistry

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	manifests    ports.ManifestLoader
	lockfiles    ports.LockfileStore
	planner      *planner.Planner
	driver       *driver.Driver
	packager     *packager.Packager
	reporter     ports.Reporter
	tracer       ports.Tracer
	logger       ports.Logger

	registryFor RegistryFunc
	toolchain   Toolchain
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	manifests ports.ManifestLoader,
	lockfiles ports.LockfileStore,
	srcs *sources.Builder,
	plan *planner.Planner,
	drv *driver.Driver,
	pkgr *packager.Packager,
	compilers *compiler.Factory,
	builders *procmacro.BuilderFactory,
	reporter ports.Reporter,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		manifests:    manifests,
		lockfiles:    lockfiles,
		planner:      plan,
		driver:       drv,
		packager:     pkgr,
		reporter:     reporter,
		tracer:       tracer,
		logger:       log,
		registryFor: func(cfg *domain.Config) ports.PackageRegistry {
			return srcs.SourceMap(cfg)
		},
		toolchain: execToolchain{compilers: compilers, builders: builders},
	}
}

// WithRegistry replaces the source map used to query and download packages.
// This is primarily used for testing to avoid network and cache access.
func (a *App) WithRegistry(fn RegistryFunc) *App {
	a.registryFor = fn
	return a
}

// WithToolchain replaces the compiler and plugin builder.
// This is primarily used for testing without a Cairo compiler installed.
func (a *App) WithToolchain(tc Toolchain) *App {
	a.toolchain = tc
	return a
}

// Config loads the configuration of this invocation and applies its output settings.
func (a *App) Config(flags *pflag.FlagSet) (*domain.Config, error) {
	cfg, err := a.configLoader.Load(flags)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	a.configure(cfg)
	return cfg, nil
}

type configurable interface {
	Configure(jsonMode bool, verbosity domain.Verbosity)
}

type jsonLogger interface {
	SetJSON(enable bool)
	SetVerbosity(v domain.Verbosity)
}

type redirectable interface {
	SetOutput(w io.Writer)
}

func (a *App) configure(cfg *domain.Config) {
	if r, ok := a.reporter.(configurable); ok {
		r.Configure(cfg.JSON, cfg.Verbosity)
	}
	if l, ok := a.logger.(jsonLogger); ok {
		l.SetJSON(cfg.JSON)
		l.SetVerbosity(cfg.Verbosity)
	}
}

// redirectStatus moves status output off stdout when stdout carries a protocol.
func (a *App) redirectStatus(w io.Writer) {
	if r, ok := a.reporter.(redirectable); ok {
		r.SetOutput(w)
	}
}
