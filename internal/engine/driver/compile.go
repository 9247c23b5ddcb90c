package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/fingerprint"
	"go.trai.ch/scarb/internal/engine/host"
	"go.trai.ch/scarb/internal/engine/planner"
	"go.trai.ch/zerr"
)

const sourceExtension = ".cairo"

// compile runs one Cairo unit.
func (b *build) compile(ctx context.Context, u *domain.CairoCompilationUnit) error {
	main := u.MainComponent()
	h, err := host.New(b.pluginsOf(u), b.logger)
	if err != nil {
		return zerr.With(err, "package", main.Package.ID.String())
	}

	var fp *fingerprint.Unit
	incremental := b.opts.Mode == ModeBuild && fingerprint.Enabled(b.cfg, u)
	if incremental {
		fp, err = b.fingerprinter.ForUnit(ctx, u, fingerprint.Options{
			ScarbPath:    b.cfg.ScarbPath,
			ScarbVersion: b.cfg.ScarbVersion,
			Plugins:      b.libraries(u),
		})
		if err != nil {
			return err
		}
		replayed, err := b.replay(u, fp.Main())
		if err != nil {
			return err
		}
		if replayed {
			return errFresh
		}
	}

	ctx, span := b.tracer.Start(ctx, label(u), ports.WithStatus(b.verb(u)))
	defer span.End()

	req, expansion, err := b.request(u, h)
	if err != nil {
		span.RecordError(err)
		return err
	}
	b.report(expansion)
	if hasErrors(expansion) {
		return b.failed(span, main)
	}

	res, err := b.tc.Compiler.Compile(ctx, req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	b.report(res.Diagnostics)
	warnings := append(severity(expansion, domain.SeverityWarning), res.Warnings()...)
	if res.HasErrors() || b.denies(u, warnings) {
		return b.failed(span, main)
	}
	if b.opts.Mode == ModeCheck {
		return nil
	}

	if err := writeArtifacts(req.OutputDir, res.Artifacts); err != nil {
		span.RecordError(err)
		return err
	}
	if incremental {
		if err := b.store(u, fp.Main(), res.Artifacts, warnings); err != nil {
			span.RecordError(err)
			return err
		}
	}
	if !h.IsEmpty() {
		b.schedulePostProcess(u.ID(), h, res.FullPathMarkers)
	}
	return nil
}

// replay restores the outputs of a fresh unit from the incremental cache.
// It reports false when the unit has to be compiled.
func (b *build) replay(u *domain.CairoCompilationUnit, c *fingerprint.Component) (bool, error) {
	main := u.MainComponent()
	fresh, err := b.fingerprinter.IsFresh(domain.FingerprintDir(b.cfg.TargetDir, u.Profile), c, main.TargetName())
	if err != nil || !fresh {
		return false, err
	}
	// The store keeps entries in memory, so a cache removed by clean must be noticed on disk.
	dir := domain.IncrementalDir(b.cfg.TargetDir, u.Profile)
	present, err := b.verifier.Exists(dir, []string{incrementalFile(c)})
	if err != nil {
		return false, err
	}
	if !present {
		b.logger.Debug(fmt.Sprintf("incremental cache of %s is missing", u.ID()))
		return false, nil
	}
	cached, err := b.artifacts.Get(b.incrementalPath(u, c))
	if err != nil {
		return false, err
	}
	if cached == nil || cached.Digest != c.Digest() || cached.UnitID != u.ID() {
		b.logger.Debug(fmt.Sprintf("no reusable artifacts for %s", u.ID()))
		return false, nil
	}

	b.logger.Debug(fmt.Sprintf("%s is fresh", u.ID()))
	b.report(cached.Warnings)
	if b.denies(u, cached.Warnings) {
		return false, compileError(main)
	}
	if err := writeArtifacts(domain.ProfileDir(b.cfg.TargetDir, u.Profile), cached.Artifacts); err != nil {
		return false, err
	}
	return true, nil
}

// store persists the outputs of a compiled unit and then its fingerprint.
func (b *build) store(u *domain.CairoCompilationUnit, c *fingerprint.Component, artifacts []domain.CompiledArtifact, warnings []domain.Diagnostic) error {
	err := b.artifacts.Put(b.incrementalPath(u, c), &domain.IncrementalArtifact{
		UnitID:    u.ID(),
		Digest:    c.Digest(),
		Artifacts: artifacts,
		Warnings:  warnings,
	})
	if err != nil {
		return err
	}
	dir := domain.FingerprintDir(b.cfg.TargetDir, u.Profile)
	if err := b.fingerprinter.Save(dir, c, u.MainComponent().TargetName()); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFingerprintWriteFailed.Error()), "unit", u.ID())
	}
	return nil
}

func (b *build) incrementalPath(u *domain.CairoCompilationUnit, c *fingerprint.Component) string {
	return filepath.Join(domain.IncrementalDir(b.cfg.TargetDir, u.Profile), incrementalFile(c))
}

func incrementalFile(c *fingerprint.Component) string {
	return c.DirName() + ".bin"
}

// request describes u to the compiler and expands the sources of components using plugins.
func (b *build) request(u *domain.CairoCompilationUnit, h *host.Host) (*domain.CompileRequest, []domain.Diagnostic, error) {
	main := u.MainComponent()
	target := main.FirstTarget()
	req := &domain.CompileRequest{
		UnitID:               u.ID(),
		MainCrate:            main.CairoName,
		TargetKind:           target.Kind,
		TargetName:           main.TargetName(),
		TargetParams:         target.Params,
		CompilerConfig:       u.CompilerConfig,
		ExecutableAttributes: h.ExecutableAttributes(),
		OutputDir:            domain.ProfileDir(b.cfg.TargetDir, u.Profile),
		Lint:                 u.Lint,
		CheckOnly:            b.opts.Mode == ModeCheck,
	}

	var diags []domain.Diagnostic
	for _, c := range u.Components {
		req.Crates = append(req.Crates, crateRoot(u, c))
		if vf, ok := planner.VirtualLibFile(c); ok {
			req.VirtualFiles = append(req.VirtualFiles, vf)
		}
		if h.IsEmpty() || !usesPlugins(u, c) {
			continue
		}
		files, d, err := b.expand(c, h)
		if err != nil {
			return nil, nil, err
		}
		req.VirtualFiles = append(req.VirtualFiles, files...)
		diags = append(diags, d...)
	}
	return req, diags, nil
}

// expand runs the macro host over every source file of c.
func (b *build) expand(c *domain.CompilationUnitComponent, h *host.Host) ([]domain.VirtualFile, []domain.Diagnostic, error) {
	var files []domain.VirtualFile
	var diags []domain.Diagnostic
	for path := range b.walker.WalkExtension(c.FirstTarget().SourceRoot(), sourceExtension, nil) {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
		}
		exp, err := h.ExpandFile(path, string(content), c.Package.Manifest.Edition)
		if err != nil {
			return nil, nil, zerr.With(err, "package", c.Package.ID.String())
		}
		if exp.File != nil {
			files = append(files, *exp.File)
		}
		diags = append(diags, exp.Diagnostics...)
	}
	return files, diags, nil
}

func crateRoot(u *domain.CairoCompilationUnit, c *domain.CompilationUnitComponent) domain.CrateRoot {
	settings := domain.CrateSettings{
		Name:                 c.CairoName,
		Discriminator:        c.Discriminator(),
		Edition:              c.Package.Manifest.Edition,
		Version:              c.Package.ID.Version.String(),
		CfgSet:               cfgSetOf(u, c).Strings(),
		ExperimentalFeatures: c.ExperimentalFeatures,
	}
	for _, dep := range c.Dependencies {
		switch dep.Kind {
		case domain.EdgeComponent:
			if d, ok := u.Component(dep.ID); ok {
				settings.Dependencies = append(settings.Dependencies, d.CairoName)
			}
		case domain.EdgePlugin:
			for _, ref := range u.CairoPlugins {
				if ref.ComponentID == dep.ID && ref.Builtin {
					settings.BuiltinPlugins = append(settings.BuiltinPlugins, ref.Package.ID.Name.String())
				}
			}
		}
	}
	slices.Sort(settings.Dependencies)
	settings.Dependencies = slices.Compact(settings.Dependencies)
	slices.Sort(settings.BuiltinPlugins)
	return domain.CrateRoot{Name: c.CairoName, Root: c.FirstTarget().SourceRoot(), Crate: settings}
}

func cfgSetOf(u *domain.CairoCompilationUnit, c *domain.CompilationUnitComponent) domain.CfgSet {
	if c.CfgSet != nil {
		return c.CfgSet
	}
	return u.CfgSet
}

// usesPlugins reports whether c depends on a plugin that is not builtin.
func usesPlugins(u *domain.CairoCompilationUnit, c *domain.CompilationUnitComponent) bool {
	for _, id := range c.PluginDependencies() {
		for _, ref := range u.CairoPlugins {
			if ref.ComponentID == id && !ref.Builtin {
				return true
			}
		}
	}
	return false
}

func (b *build) verb(u *domain.CairoCompilationUnit) string {
	switch {
	case u.Lint:
		return "Linting"
	case b.opts.Mode == ModeCheck:
		return "Checking"
	default:
		return "Compiling"
	}
}

// label renders the unit for status lines, e.g. "hello v0.1.0 (/ws/Scarb.toml)".
func label(u *domain.CairoCompilationUnit) string {
	main := u.MainComponent()
	pkg := main.Package
	s := fmt.Sprintf("%s v%s (%s)", pkg.ID.Name, pkg.ID.Version, pkg.ManifestPath)
	if t := main.FirstTarget(); t.IsTest() {
		s = fmt.Sprintf("test(%s) %s", main.TargetName(), s)
	}
	return s
}

// denies reports whether warnings fail the unit.
func (b *build) denies(u *domain.CairoCompilationUnit, warnings []domain.Diagnostic) bool {
	return len(warnings) > 0 && (b.opts.DenyWarnings || !u.CompilerConfig.AllowWarnings)
}

func (b *build) failed(span ports.Span, main *domain.CompilationUnitComponent) error {
	err := compileError(main)
	span.RecordError(err)
	return err
}

func compileError(main *domain.CompilationUnitComponent) error {
	return zerr.With(zerr.Wrap(domain.ErrCompilationFailed, ""), "package", main.Package.ID.Name.String())
}

// report prints diagnostics in the order the compiler produced them.
func (b *build) report(diags []domain.Diagnostic) {
	for _, d := range diags {
		msg := d.Message
		if d.File != "" {
			msg = fmt.Sprintf("%s\n --> %s", msg, d.File)
		}
		if d.Severity == domain.SeverityError {
			b.reporter.Error(msg)
		} else {
			b.reporter.Warn(msg)
		}
	}
}

func hasErrors(diags []domain.Diagnostic) bool {
	return len(severity(diags, domain.SeverityError)) > 0
}

func severity(diags []domain.Diagnostic, s domain.Severity) []domain.Diagnostic {
	var out []domain.Diagnostic
	for _, d := range diags {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

func writeArtifacts(dir string, artifacts []domain.CompiledArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Content, domain.FilePerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write artifact"), "path", path)
		}
	}
	return nil
}
