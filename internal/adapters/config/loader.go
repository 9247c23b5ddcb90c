// Package config layers defaults, the user config file, SCARB_* variables
// and command-line flags into a domain.Config.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.trai.ch/scarb/internal/build"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader with viper.
type Loader struct {
	getwd func() (string, error)
}

// NewLoader creates a Loader resolving relative paths against the working directory.
func NewLoader() *Loader {
	return &Loader{getwd: os.Getwd}
}

// Load builds the configuration of one invocation.
func (l *Loader) Load(flags *pflag.FlagSet) (*domain.Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	configDir := v.GetString(KeyConfigDir)
	if err := mergeUserConfig(v, filepath.Join(configDir, domain.ConfigFileName)); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cwd, err := l.getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}

	cairoVersion, err := domain.ParseVersion(build.CairoVersion)
	if err != nil {
		return nil, err
	}

	cfg := &domain.Config{
		ManifestPath:   v.GetString(KeyManifestPath),
		TargetDir:      absolute(cwd, v.GetString(KeyTargetDir)),
		CacheDir:       absolute(cwd, v.GetString(KeyCacheDir)),
		ConfigDir:      absolute(cwd, configDir),
		Profile:        profile(v, flags),
		Offline:        v.GetBool(KeyOffline),
		Verbosity:      verbosity(v, flags),
		JSON:           v.GetBool(KeyJSON),
		PackagesFilter: v.GetString(KeyPackagesFilter),
		ScarbPath:      v.GetString(KeyScarbPath),
		CorelibPath:    absolute(cwd, v.GetString(KeyCorelib)),
		CompilerPath:   v.GetString(KeyCompiler),
		CairoVersion:   cairoVersion,
		ScarbVersion:   build.Version,
		Incremental:    v.GetBool(KeyIncremental),
		NetworkRetries: v.GetInt(KeyNetRetries),
		NetworkTimeout: v.GetDuration(KeyNetTimeout),
		Jobs:           v.GetInt(KeyJobs),
		Features: domain.FeaturesOpts{
			Features:          splitList(v.GetStringSlice(KeyFeatures)),
			AllFeatures:       v.GetBool(KeyAllFeatures),
			NoDefaultFeatures: v.GetBool(KeyNoDefaultFeatures),
		},
	}

	if cfg.ScarbPath == "" {
		if exe, err := os.Executable(); err == nil {
			cfg.ScarbPath = exe
		}
	}
	if cfg.Jobs <= 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	manifest, err := resolveManifestPath(cwd, cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	cfg.ManifestPath = manifest

	if regs := v.GetStringMapString("registries"); len(regs) > 0 {
		cfg.Registries = regs
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyCacheDir, domain.DefaultCacheDir())
	v.SetDefault(KeyConfigDir, domain.DefaultConfigDir())
	v.SetDefault(KeyProfile, domain.ProfileDev)
	v.SetDefault(KeyVerbosity, string(domain.VerbosityNormal))
	v.SetDefault(KeyIncremental, true)
	v.SetDefault(KeyNetRetries, 1)
	v.SetDefault(KeyNetTimeout, 30*time.Second)
	v.SetDefault(KeyCompiler, "cairo-compile-unit")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		KeyManifestPath:   domain.EnvManifestPath,
		KeyTargetDir:      domain.EnvTargetDir,
		KeyCacheDir:       domain.EnvCache,
		KeyConfigDir:      domain.EnvConfig,
		KeyProfile:        domain.EnvProfile,
		KeyOffline:        domain.EnvOffline,
		KeyVerbosity:      domain.EnvUIVerbosity,
		KeyAllFeatures:    domain.EnvAllFeatures,
		KeyPackagesFilter: domain.EnvPackagesFilter,
		KeyScarbPath:      domain.EnvScarb,
		KeyCorelib:        domain.EnvCorelibPath,
		KeyCompiler:       domain.EnvCairoCompiler,
		KeyIncremental:    domain.EnvIncremental,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to bind environment variable"), "env", env)
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		KeyManifestPath:      KeyManifestPath,
		KeyTargetDir:         KeyTargetDir,
		KeyProfile:           KeyProfile,
		KeyOffline:           KeyOffline,
		KeyJSON:              KeyJSON,
		KeyFeatures:          KeyFeatures,
		KeyAllFeatures:       KeyAllFeatures,
		KeyNoDefaultFeatures: KeyNoDefaultFeatures,
		KeyPackagesFilter:    FlagPackage,
		KeyJobs:              KeyJobs,
	}
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to bind flag"), "flag", name)
		}
	}
	return nil
}

// mergeUserConfig strictly decodes the user config file, if present.
func mergeUserConfig(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user's config dir
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var cfg UserConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}

	m := cfg.toMap()
	if len(cfg.Registries) > 0 {
		regs := make(map[string]any, len(cfg.Registries))
		for k, url := range cfg.Registries {
			regs[k] = url
		}
		m["registries"] = regs
	}
	return v.MergeConfigMap(m)
}

func profile(v *viper.Viper, flags *pflag.FlagSet) string {
	if flagSet(flags, FlagRelease) {
		return domain.ProfileRelease
	}
	if flagSet(flags, FlagDev) {
		return domain.ProfileDev
	}
	return v.GetString(KeyProfile)
}

func verbosity(v *viper.Viper, flags *pflag.FlagSet) domain.Verbosity {
	switch {
	case flagSet(flags, FlagQuiet):
		return domain.VerbosityQuiet
	case flagSet(flags, FlagVerbose):
		return domain.VerbosityVerbose
	}
	switch domain.Verbosity(strings.ToLower(v.GetString(KeyVerbosity))) {
	case domain.VerbosityQuiet:
		return domain.VerbosityQuiet
	case domain.VerbosityVerbose:
		return domain.VerbosityVerbose
	default:
		return domain.VerbosityNormal
	}
}

func flagSet(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed && f.Value.String() == "true"
}

// resolveManifestPath accepts a manifest file or a directory containing one.
// Without an explicit path it searches upwards from cwd; an empty result means
// no manifest was found.
func resolveManifestPath(cwd, explicit string) (string, error) {
	if explicit != "" {
		path := absolute(cwd, explicit)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, domain.ManifestFileName)
		}
		return path, nil
	}

	for dir := cwd; ; {
		candidate := filepath.Join(dir, domain.ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func absolute(cwd, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}
