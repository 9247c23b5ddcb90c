// Package build holds build-time information.
package build

// Version is the application version.
// It defaults to "dev" and can be overwritten by linker flags.
var Version = "dev"

// Commit is the git commit the binary was built from.
var Commit = "none"

// Date is the build timestamp.
var Date = "unknown"

// CairoVersion is the version of the bundled Cairo language the engine targets.
// It selects the core package version and is compared against plugin requirements.
var CairoVersion = "2.12.0"
