// Package driver compiles the units produced by the planner.
//
// Procedural macro units are built and loaded first. Every Cairo unit waits for the plugins
// it uses, then is either replayed from the incremental cache or handed to the compiler
// together with the files expanded by its macro host. Once every unit succeeded, the
// plugins that took part in an expansion are post-processed.
package driver

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/fingerprint"
	"go.trai.ch/scarb/internal/engine/host"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Mode selects what the driver produces.
type Mode uint8

const (
	// ModeBuild compiles units and writes their artifacts.
	ModeBuild Mode = iota
	// ModeCheck runs the compiler frontend only and writes nothing.
	ModeCheck
)

// Options tune one driver run.
type Options struct {
	Mode Mode
	// DenyWarnings fails a unit that produced warnings.
	DenyWarnings bool
	// Jobs bounds the number of units compiled at once. Zero means the number of CPUs.
	Jobs int
}

// Toolchain holds the per-invocation executables used by the driver.
type Toolchain struct {
	Compiler ports.Compiler
	Builder  ports.PluginBuilder
}

// SourceWalker enumerates source files of a component.
type SourceWalker interface {
	WalkExtension(root, ext string, ignores []string) iter.Seq[string]
}

// FileVerifier checks that files are present on disk.
type FileVerifier interface {
	Exists(dir string, names []string) (bool, error)
}

// Result reports what happened to every unit of a run.
type Result struct {
	Statuses map[string]JobStatus
}

// Driver compiles compilation units.
type Driver struct {
	fingerprinter *fingerprint.Fingerprinter
	loader        ports.PluginLoader
	artifacts     ports.ArtifactStore
	walker        SourceWalker
	verifier      FileVerifier
	reporter      ports.Reporter
	tracer        ports.Tracer
	logger        ports.Logger
	now           func() time.Time
}

// New creates a Driver.
func New(
	fingerprinter *fingerprint.Fingerprinter,
	loader ports.PluginLoader,
	artifacts ports.ArtifactStore,
	walker SourceWalker,
	verifier FileVerifier,
	reporter ports.Reporter,
	tracer ports.Tracer,
	logger ports.Logger,
) *Driver {
	return &Driver{
		fingerprinter: fingerprinter,
		loader:        loader,
		artifacts:     artifacts,
		walker:        walker,
		verifier:      verifier,
		reporter:      reporter,
		tracer:        tracer,
		logger:        logger,
		now:           time.Now,
	}
}

// builtPlugin is a loaded plugin library.
type builtPlugin struct {
	plugin ports.Plugin
	path   string
}

// postProcess is a host waiting for the unit-wide post-processing step.
type postProcess struct {
	unit    string
	host    *host.Host
	markers []domain.FullPathMarker
}

// build is the state of one Build call.
type build struct {
	*Driver
	cfg  *domain.Config
	tc   Toolchain
	opts Options
	// used lists the plugin packages some Cairo unit expands with.
	used map[domain.PackageID]bool

	mu      sync.Mutex
	plugins map[domain.PackageID]builtPlugin
	post    []postProcess
}

// Build compiles units. Units that are not Cairo or procedural macro units are ignored.
func (d *Driver) Build(ctx context.Context, cfg *domain.Config, tc Toolchain, units []domain.CompilationUnit, opts Options) (*Result, error) {
	start := d.now()
	b := &build{
		Driver:  d,
		cfg:     cfg,
		tc:      tc,
		opts:    opts,
		used:    make(map[domain.PackageID]bool),
		plugins: make(map[domain.PackageID]builtPlugin),
	}

	jobs, err := b.jobs(units)
	if err != nil {
		return nil, err
	}

	s := newScheduler(jobs)
	runErr := s.run(ctx, parallelism(opts.Jobs))
	res := &Result{Statuses: make(map[string]JobStatus, len(jobs))}
	for _, j := range jobs {
		res.Statuses[j.id] = s.Status(j.id)
	}
	if runErr != nil {
		return res, runErr
	}

	slices.SortFunc(b.post, func(x, y postProcess) int { return strings.Compare(x.unit, y.unit) })
	for _, p := range b.post {
		d.logger.Debug(fmt.Sprintf("post-processing plugins of %s", p.unit))
		if err := p.host.PostProcess(p.markers); err != nil {
			return res, zerr.With(err, "unit", p.unit)
		}
	}

	d.reporter.Status("Finished", fmt.Sprintf("`%s` profile target(s) in %s", cfg.Profile, elapsed(d.now().Sub(start))))
	return res, nil
}

// LoadPlugins builds every procedural macro unit in units and loads its library, keyed by
// the plugin package.
func (d *Driver) LoadPlugins(ctx context.Context, cfg *domain.Config, tc Toolchain, units []domain.CompilationUnit) (map[domain.PackageID]ports.Plugin, error) {
	b := &build{
		Driver:  d,
		cfg:     cfg,
		tc:      tc,
		used:    make(map[domain.PackageID]bool),
		plugins: make(map[domain.PackageID]builtPlugin),
	}
	var pending []*domain.ProcMacroCompilationUnit
	for _, unit := range units {
		if u, ok := unit.(*domain.ProcMacroCompilationUnit); ok {
			b.used[u.MainPackageID()] = true
			pending = append(pending, u)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism(0))
	for _, u := range pending {
		g.Go(func() error { return b.buildPlugin(ctx, u) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.PackageID]ports.Plugin, len(b.plugins))
	for id, p := range b.plugins {
		out[id] = p.plugin
	}
	return out, nil
}

// jobs turns units into scheduler jobs. Cairo units depend on the plugin units they use.
func (b *build) jobs(units []domain.CompilationUnit) ([]*job, error) {
	pluginUnits := make(map[domain.PackageID]string)
	for _, unit := range units {
		if u, ok := unit.(*domain.ProcMacroCompilationUnit); ok {
			pluginUnits[u.MainPackageID()] = u.ID()
		}
	}

	var jobs []*job
	for _, unit := range units {
		switch u := unit.(type) {
		case *domain.ProcMacroCompilationUnit:
			jobs = append(jobs, &job{id: u.ID(), run: func(ctx context.Context) error {
				return b.buildPlugin(ctx, u)
			}})
		case *domain.CairoCompilationUnit:
			var deps []string
			for _, ref := range u.CairoPlugins {
				if ref.Builtin {
					continue
				}
				id, ok := pluginUnits[ref.Package.ID]
				if !ok {
					return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginBuildFailed, "plugin is not part of the build"),
						"plugin", ref.Package.ID.String()), "unit", u.ID())
				}
				b.used[ref.Package.ID] = true
				deps = append(deps, id)
			}
			jobs = append(jobs, &job{id: u.ID(), deps: deps, run: func(ctx context.Context) error {
				return b.compile(ctx, u)
			}})
		}
	}
	return jobs, nil
}

// buildPlugin builds the library of a procedural macro unit and loads it when a Cairo unit uses it.
func (b *build) buildPlugin(ctx context.Context, u *domain.ProcMacroCompilationUnit) error {
	pkg := u.MainComponent().Package
	path, err := b.tc.Builder.Build(ctx, u)
	if err != nil {
		return err
	}
	if !b.used[pkg.ID] {
		return nil
	}

	plugin, err := b.loader.Load(path)
	if err != nil {
		return zerr.With(err, "package", pkg.ID.String())
	}
	b.logger.Debug(fmt.Sprintf("loaded plugin %s from %s", pkg.ID, path))

	b.mu.Lock()
	b.plugins[pkg.ID] = builtPlugin{plugin: plugin, path: path}
	b.mu.Unlock()
	return nil
}

// pluginsOf returns the loaded plugins of a Cairo unit.
func (b *build) pluginsOf(u *domain.CairoCompilationUnit) []host.LoadedPlugin {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []host.LoadedPlugin
	for _, ref := range u.CairoPlugins {
		if p, ok := b.plugins[ref.Package.ID]; ok && !ref.Builtin {
			out = append(out, host.LoadedPlugin{Package: ref.Package.ID, Plugin: p.plugin})
		}
	}
	return out
}

// libraries returns the plugin libraries mixed into fingerprints.
func (b *build) libraries(u *domain.CairoCompilationUnit) map[domain.ComponentID]fingerprint.PluginLibrary {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[domain.ComponentID]fingerprint.PluginLibrary)
	for _, ref := range u.CairoPlugins {
		if p, ok := b.plugins[ref.Package.ID]; ok && !ref.Builtin {
			out[ref.ComponentID] = fingerprint.PluginLibrary{Path: p.path, Fingerprint: p.plugin.Fingerprint()}
		}
	}
	return out
}

func (b *build) schedulePostProcess(unit string, h *host.Host, markers []domain.FullPathMarker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.post = append(b.post, postProcess{unit: unit, host: h, markers: markers})
}

func parallelism(jobs int) int {
	if jobs > 0 {
		return jobs
	}
	return runtime.NumCPU()
}

// elapsed renders d the way the finish line shows it, e.g. "1.25s" or "3m 2s".
func elapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm %ds", int(d/time.Minute), int(d%time.Minute/time.Second))
}
