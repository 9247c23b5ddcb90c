package fingerprint

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const sourceExtension = ".cairo"

// PluginLibrary describes a built plugin library consumed by a unit.
type PluginLibrary struct {
	Path        string
	Fingerprint uint64
}

// Options carries the invocation-wide inputs of every fingerprint.
type Options struct {
	ScarbPath    string
	ScarbVersion string
	// Plugins maps plugin components to their built libraries. Builtin plugins have no entry.
	Plugins map[domain.ComponentID]PluginLibrary
}

// Unit holds the fingerprints of every component of one compilation unit.
type Unit struct {
	main       *Component
	components map[domain.ComponentID]*Component
}

// Main returns the fingerprint of the main component.
func (u *Unit) Main() *Component { return u.main }

// Component returns the fingerprint of the component with id.
func (u *Unit) Component(id domain.ComponentID) (*Component, bool) {
	c, ok := u.components[id]
	return c, ok
}

// Fingerprinter computes unit fingerprints and checks them against the ones stored on disk.
type Fingerprinter struct {
	hasher ports.FileHasher
	store  ports.FingerprintStore
	logger ports.Logger
}

// New creates a Fingerprinter.
func New(hasher ports.FileHasher, store ports.FingerprintStore, logger ports.Logger) *Fingerprinter {
	return &Fingerprinter{hasher: hasher, store: store, logger: logger}
}

// Enabled reports whether incremental caching applies to unit.
func Enabled(cfg *domain.Config, unit *domain.CairoCompilationUnit) bool {
	return cfg.Incremental && unit.CompilerConfig.Incremental
}

// ForUnit fingerprints every component and plugin of unit.
func (f *Fingerprinter) ForUnit(
	ctx context.Context,
	unit *domain.CairoCompilationUnit,
	opts Options,
) (*Unit, error) {
	out := &Unit{components: make(map[domain.ComponentID]*Component, len(unit.Components)+len(unit.CairoPlugins))}

	libs := make([]*Component, 0, len(unit.Components))
	for _, c := range unit.Components {
		fp, err := libraryComponent(unit, c, opts)
		if err != nil {
			return nil, err
		}
		out.components[c.ID] = fp
		libs = append(libs, fp)
	}
	out.main = libs[0]

	var plugins []*Component
	for _, ref := range unit.CairoPlugins {
		if _, ok := out.components[ref.ComponentID]; ok {
			continue
		}
		fp := pluginComponent(unit, ref, opts)
		out.components[ref.ComponentID] = fp
		plugins = append(plugins, fp)
	}

	for i, c := range unit.Components {
		for _, dep := range c.Dependencies {
			if target, ok := out.components[dep.ID]; ok {
				libs[i].deps = append(libs[i].deps, target)
			}
		}
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i, c := range unit.Components {
		fp := libs[i]
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			sum, err := f.hashSources(c)
			if err != nil {
				return err
			}
			fp.local = sum
			return nil
		})
	}
	for _, fp := range plugins {
		lib, ok := opts.Plugins[fp.key]
		if !ok || lib.Path == "" {
			continue
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			sum, err := f.hasher.ComputeFileHash(lib.Path)
			if err != nil {
				return err
			}
			fp.local = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFingerprintFailed.Error()), "unit", unit.ID())
	}

	f.logger.Debug(fmt.Sprintf("fingerprinted %s: id %s", unit.ID(), out.main.ID()))
	return out, nil
}

// hashSources combines the source hashes of every distinct target source root.
// Roots are hashed relative to the package root.
func (f *Fingerprinter) hashSources(c *domain.CompilationUnitComponent) (uint64, error) {
	var roots []string
	for _, t := range c.Targets {
		roots = append(roots, t.SourceRoot())
	}
	slices.Sort(roots)
	roots = slices.Compact(roots)

	h := domain.NewStableHasher()
	for _, root := range roots {
		sum, err := f.hasher.ComputeSourcesHash(root, sourceExtension)
		if err != nil {
			return 0, err
		}
		h.WriteString(relativeTo(c.Package.Root(), root))
		h.WriteUint64(sum)
	}
	return h.Sum64(), nil
}

// IsFresh reports whether the stored digest of c under dir matches its current digest.
func (f *Fingerprinter) IsFresh(dir string, c *Component, targetName string) (bool, error) {
	fresh, err := f.store.IsFresh(filepath.Join(dir, c.DirName(), targetName), c.Digest())
	if err != nil {
		return false, err
	}
	if !fresh {
		f.logger.Debug(fmt.Sprintf("fingerprint of %s is stale", c.DirName()))
	}
	return fresh, nil
}

// Save stores the current digest of c under dir.
func (f *Fingerprinter) Save(dir string, c *Component, targetName string) error {
	return f.store.Write(filepath.Join(dir, c.DirName(), targetName), c.Digest())
}

func libraryComponent(
	unit *domain.CairoCompilationUnit,
	c *domain.CompilationUnitComponent,
	opts Options,
) (*Component, error) {
	sourcePaths := make([]string, 0, len(c.Targets))
	for _, p := range c.SourcePaths() {
		sourcePaths = append(sourcePaths, relativeTo(c.Package.Root(), p))
	}

	deps := make([]string, 0, len(c.Dependencies))
	for _, d := range c.Dependencies {
		deps = append(deps, fmt.Sprintf("%d:%s", d.Kind, discriminator(d.ID)))
	}

	cfgSet := c.CfgSet
	if cfgSet == nil {
		cfgSet = unit.CfgSet
	}

	in := libraryInputs{
		scarbPath:            opts.ScarbPath,
		scarbVersion:         opts.ScarbVersion,
		profile:              unit.Profile,
		cairoName:            c.CairoName,
		edition:              c.Package.Manifest.Edition,
		discriminator:        discriminator(c.ID),
		sourcePaths:          sourcePaths,
		compilerConfig:       unit.CompilerConfig,
		cfgSet:               cfgSet,
		experimentalFeatures: c.ExperimentalFeatures,
		dependencies:         deps,
	}
	if in.cairoName == "" {
		return nil, zerr.With(zerr.Wrap(domain.ErrFingerprintFailed, "component has no crate name"), "component", c.ID.String())
	}
	return &Component{
		key:       c.ID,
		cairoName: c.CairoName,
		id:        in.id(),
	}, nil
}

func pluginComponent(unit *domain.CairoCompilationUnit, ref domain.CairoPluginRef, opts Options) *Component {
	in := pluginInputs{
		scarbVersion: opts.ScarbVersion,
		profile:      unit.Profile,
		pkg:          discriminator(ref.ComponentID),
		builtin:      ref.Builtin,
		prebuilt:     ref.Prebuilt,
		fingerprint:  opts.Plugins[ref.ComponentID].Fingerprint,
	}
	return &Component{
		key:       ref.ComponentID,
		cairoName: string(ref.ComponentID.Package.Name),
		id:        in.id(),
	}
}

// discriminator distinguishes components like ComponentID.Discriminator, except that
// path sources contribute only their kind so moving a workspace keeps its fingerprints.
func discriminator(id domain.ComponentID) string {
	if id.Package.IsCore() {
		return ""
	}
	source := id.Package.Source.String()
	if id.Package.Source.IsPath() {
		source = id.Package.Source.Kind().String()
	}
	return domain.ShortHash(string(id.Package.Name), id.Package.Version.String(), source, string(id.Kind), id.Group)
}

// relativeTo renders path relative to root with forward slashes, falling back to the base name.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
