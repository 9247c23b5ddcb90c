// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/scarb/internal/adapters/cas"
	_ "go.trai.ch/scarb/internal/adapters/compiler"
	_ "go.trai.ch/scarb/internal/adapters/config"
	_ "go.trai.ch/scarb/internal/adapters/fs"
	_ "go.trai.ch/scarb/internal/adapters/git"
	_ "go.trai.ch/scarb/internal/adapters/lockfile"
	_ "go.trai.ch/scarb/internal/adapters/logger"
	_ "go.trai.ch/scarb/internal/adapters/manifest"
	_ "go.trai.ch/scarb/internal/adapters/procmacro"
	_ "go.trai.ch/scarb/internal/adapters/registry"
	_ "go.trai.ch/scarb/internal/adapters/shell"
	_ "go.trai.ch/scarb/internal/adapters/sources"
	_ "go.trai.ch/scarb/internal/adapters/tarball"
	_ "go.trai.ch/scarb/internal/adapters/telemetry"
	_ "go.trai.ch/scarb/internal/adapters/ui"
	// Register app and engine nodes.
	_ "go.trai.ch/scarb/internal/app"
	_ "go.trai.ch/scarb/internal/engine/driver"
	_ "go.trai.ch/scarb/internal/engine/fingerprint"
	_ "go.trai.ch/scarb/internal/engine/packager"
	_ "go.trai.ch/scarb/internal/engine/planner"
)
