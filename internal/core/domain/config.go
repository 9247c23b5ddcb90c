package domain

import (
	"path/filepath"
	"time"
)

// Verbosity controls how much status output is printed.
type Verbosity string

// Verbosity levels.
const (
	VerbosityQuiet   Verbosity = "quiet"
	VerbosityNormal  Verbosity = "normal"
	VerbosityVerbose Verbosity = "verbose"
)

// Config is the fully layered configuration of one invocation.
// It is built once by the config loader and never mutated afterwards.
type Config struct {
	ManifestPath   string
	TargetDir      string
	CacheDir       string
	ConfigDir      string
	Profile        string
	Offline        bool
	Verbosity      Verbosity
	JSON           bool
	Features       FeaturesOpts
	PackagesFilter string
	ScarbPath      string
	CorelibPath    string
	CompilerPath   string
	CairoVersion   Version
	ScarbVersion   string
	Incremental    bool
	NetworkRetries int
	NetworkTimeout time.Duration
	Jobs           int
	Registries     map[string]string
}

// RegistryCacheDir returns <cache>/registry.
func (c *Config) RegistryCacheDir() string {
	return filepath.Join(c.CacheDir, RegistryDirName)
}

// GitCacheDir returns <cache>/git.
func (c *Config) GitCacheDir() string {
	return filepath.Join(c.CacheDir, GitDirName)
}
