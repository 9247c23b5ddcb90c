package domain

import (
	"os"
	"path/filepath"
)

const (
	// ManifestFileName is the name of the package manifest file.
	ManifestFileName = "Scarb.toml"

	// LockfileFileName is the name of the lockfile written next to the workspace manifest.
	LockfileFileName = "Scarb.lock"

	// OriginalManifestFileName is the byte copy of the manifest stored inside package tarballs.
	OriginalManifestFileName = "Scarb.orig.toml"

	// VersionFileName is the tarball format marker, always the first archive entry.
	VersionFileName = "VERSION"

	// OkFileName marks a directory as completely and consistently populated.
	OkFileName = ".scarb-ok"

	// CacheDirTagFileName is the standard cache directory tag written into output directories.
	CacheDirTagFileName = "CACHEDIR.TAG"

	// TargetDirName is the default name of the build output directory.
	TargetDirName = "target"

	// FingerprintDirName holds the per-component digest files.
	FingerprintDirName = ".fingerprint"

	// IncrementalDirName holds the reusable per-component artifacts.
	IncrementalDirName = "incremental"

	// TargetLockFileName is the advisory lock guarding a workspace target directory.
	TargetLockFileName = ".scarb-lock"

	// PackageCacheLockFileName is the advisory lock guarding the global package cache.
	PackageCacheLockFileName = ".package-cache.lock"

	// RegistryDirName is the cache subdirectory for registry data.
	RegistryDirName = "registry"

	// GitDirName is the cache subdirectory for git data.
	GitDirName = "git"

	// ConfigFileName is the user configuration file inside the config directory.
	ConfigFileName = "config.yaml"

	// PackageDirName holds package archives inside the target directory.
	PackageDirName = "package"

	// ScarbIgnoreFileName lists file name patterns excluded from package archives.
	ScarbIgnoreFileName = ".scarbignore"

	// CairoProjectFileName is the legacy project file that is never packaged.
	CairoProjectFileName = "cairo_project.toml"

	// TarballExtension is the file extension of package archives.
	TarballExtension = ".tar.zst"

	// TarballFormatVersion is the content of the VERSION entry.
	TarballFormatVersion = "1"

	// LockfileFormatVersion is the version written into Scarb.lock.
	LockfileFormatVersion = 1

	// MetadataFormatVersion is the only supported metadata envelope version.
	MetadataFormatVersion = 1

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// Environment variables consumed by scarb.
const (
	EnvScarb          = "SCARB"
	EnvCache          = "SCARB_CACHE"
	EnvConfig         = "SCARB_CONFIG"
	EnvTargetDir      = "SCARB_TARGET_DIR"
	EnvProfile        = "SCARB_PROFILE"
	EnvManifestPath   = "SCARB_MANIFEST_PATH"
	EnvUIVerbosity    = "SCARB_UI_VERBOSITY"
	EnvAllFeatures    = "SCARB_ALL_FEATURES"
	EnvPackagesFilter = "SCARB_PACKAGES_FILTER"
	EnvIncremental    = "SCARB_INCREMENTAL"
	EnvOffline        = "SCARB_OFFLINE"
	EnvCorelibPath    = "SCARB_CORELIB_PATH"
	EnvCairoCompiler  = "SCARB_CAIRO_COMPILER"
	EnvLog            = "SCARB_LOG"
)

// DefaultCacheDir returns the cache directory used when SCARB_CACHE is not set.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "scarb")
	}
	return filepath.Join(os.TempDir(), "scarb-cache")
}

// DefaultConfigDir returns the config directory used when SCARB_CONFIG is not set.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scarb")
	}
	return filepath.Join(os.TempDir(), "scarb-config")
}

// ProfileDir returns target/<profile>.
func ProfileDir(targetDir, profile string) string {
	return filepath.Join(targetDir, profile)
}

// FingerprintDir returns target/<profile>/.fingerprint.
func FingerprintDir(targetDir, profile string) string {
	return filepath.Join(targetDir, profile, FingerprintDirName)
}

// IncrementalDir returns target/<profile>/incremental.
func IncrementalDir(targetDir, profile string) string {
	return filepath.Join(targetDir, profile, IncrementalDirName)
}

// PackageDir returns target/package.
func PackageDir(targetDir string) string {
	return filepath.Join(targetDir, PackageDirName)
}
