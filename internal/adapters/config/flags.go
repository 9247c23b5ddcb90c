package config

import "github.com/spf13/pflag"

// Configuration keys. Flags and SCARB_* variables are bound to these.
const (
	KeyManifestPath      = "manifest-path"
	KeyTargetDir         = "target-dir"
	KeyCacheDir          = "cache"
	KeyConfigDir         = "config"
	KeyProfile           = "profile"
	KeyOffline           = "offline"
	KeyVerbosity         = "ui-verbosity"
	KeyJSON              = "json"
	KeyFeatures          = "features"
	KeyAllFeatures       = "all-features"
	KeyNoDefaultFeatures = "no-default-features"
	KeyPackagesFilter    = "packages-filter"
	KeyScarbPath         = "scarb-path"
	KeyCorelib           = "corelib-path"
	KeyCompiler          = "cairo-compiler"
	KeyIncremental       = "incremental"
	KeyNetRetries        = "net-retries"
	KeyNetTimeout        = "net-timeout"
	KeyJobs              = "jobs"
)

// Flag names that do not map one-to-one onto keys.
const (
	FlagRelease = "release"
	FlagDev     = "dev"
	FlagVerbose = "verbose"
	FlagQuiet   = "quiet"
	FlagPackage = "package"
)

// RegisterFlags declares the global flags understood by the loader.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyManifestPath, "", "Override path to a directory containing a Scarb.toml file")
	fs.String(KeyTargetDir, "", "Directory for all generated artifacts")
	fs.StringP(KeyProfile, "P", "", "Specify profile to use by name")
	fs.Bool(FlagRelease, false, "Use release profile")
	fs.Bool(FlagDev, false, "Use dev profile")
	fs.Bool(KeyOffline, false, "Run without accessing the network")
	fs.BoolP(FlagVerbose, "v", false, "Use verbose output")
	fs.BoolP(FlagQuiet, "q", false, "Do not print any status output")
	fs.Bool(KeyJSON, false, "Print machine-readable output in NDJSON format")
	fs.StringSliceP(KeyFeatures, "F", nil, "Comma separated list of features to activate")
	fs.Bool(KeyAllFeatures, false, "Activate all available features")
	fs.Bool(KeyNoDefaultFeatures, false, "Do not activate the `default` feature")
	fs.StringP(FlagPackage, "p", "", "Packages to run this command on, can be a concrete package name or a glob")
	fs.IntP(KeyJobs, "j", 0, "Number of parallel jobs, defaults to the number of CPUs")
}
