package procmacro

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
)

// CargoManifestFileName is the Rust manifest every plugin package ships.
const CargoManifestFileName = "Cargo.toml"

// pluginDir is where plugin libraries live relative to a target directory.
var pluginDir = filepath.Join("scarb", "cairo-plugin")

var _ ports.PluginBuilder = (*CargoBuilder)(nil)

// CargoBuilder compiles plugin packages with cargo, or locates their prebuilt libraries.
type CargoBuilder struct {
	runner    *shell.Runner
	targetDir string
	offline   bool
}

// BuilderFactory creates CargoBuilders for one invocation's configuration.
type BuilderFactory struct {
	runner *shell.Runner
}

// NewBuilderFactory creates a BuilderFactory.
func NewBuilderFactory(runner *shell.Runner) *BuilderFactory {
	return &BuilderFactory{runner: runner}
}

// For returns a builder writing into the target directory of cfg.
func (f *BuilderFactory) For(cfg *domain.Config) *CargoBuilder {
	return &CargoBuilder{runner: f.runner, targetDir: cfg.TargetDir, offline: cfg.Offline}
}

// Build compiles the plugin of unit and returns the library path.
func (b *CargoBuilder) Build(ctx context.Context, unit *domain.ProcMacroCompilationUnit) (string, error) {
	if unit.Prebuilt {
		return b.LibraryPath(unit)
	}

	pkg := unit.MainComponent().Package
	args := []string{
		"build", "--release",
		"--manifest-path", filepath.Join(pkg.Root(), CargoManifestFileName),
		"--target-dir", filepath.Join(b.targetDir, pluginDir),
	}
	if b.offline {
		args = append(args, "--offline")
	}
	if err := b.runner.Run(ctx, shell.Command{
		Name: "cargo",
		Args: args,
		Dir:  pkg.Root(),
		Env:  map[string]string{"CARGO_TERM_COLOR": "never"},
	}); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrPluginBuildFailed.Error()), "package", pkg.ID.String())
	}

	lib, err := b.LibraryPath(unit)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(lib); err != nil {
		return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginBuildFailed, "cargo did not produce the plugin library"), "package", pkg.ID.String()), "path", lib)
	}
	return lib, nil
}

// LibraryPath returns where the library of unit is found.
func (b *CargoBuilder) LibraryPath(unit *domain.ProcMacroCompilationUnit) (string, error) {
	pkg := unit.MainComponent().Package
	if !unit.Prebuilt {
		return filepath.Join(b.targetDir, pluginDir, "release", LibraryFileName(string(pkg.Name()))), nil
	}

	path := filepath.Join(pkg.Root(), domain.TargetDirName, pluginDir, PrebuiltFileName(pkg.ID))
	if _, err := os.Stat(path); err != nil {
		return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrPluginLoadFailed, "prebuilt plugin library not found"), "package", pkg.ID.String()), "path", path)
	}
	return path, nil
}

// LibraryFileName returns the platform file name of a cargo cdylib.
func LibraryFileName(crate string) string {
	switch runtime.GOOS {
	case "windows":
		return crate + ".dll"
	case "darwin":
		return "lib" + crate + ".dylib"
	default:
		return "lib" + crate + ".so"
	}
}

// PrebuiltFileName returns the name of a prebuilt library shipped inside a package:
// <name>_v<version>_<target triple>.<ext>.
func PrebuiltFileName(id domain.PackageID) string {
	ext := ".so"
	switch runtime.GOOS {
	case "windows":
		ext = ".dll"
	case "darwin":
		ext = ".dylib"
	}
	return string(id.Name) + "_v" + id.Version.String() + "_" + targetTriple() + ext
}

func targetTriple() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	switch runtime.GOOS {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + runtime.GOOS + "-gnu"
	}
}
