package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/compiler"  //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/lockfile"  //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/manifest"  //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/procmacro" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/sources"   //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/adapters/ui"        //nolint:depguard // Wired in app layer
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/driver"
	"go.trai.ch/scarb/internal/engine/packager"
	"go.trai.ch/scarb/internal/engine/planner"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			manifest.NodeID,
			lockfile.NodeID,
			sources.NodeID,
			planner.NodeID,
			driver.NodeID,
			packager.NodeID,
			compiler.NodeID,
			procmacro.BuilderNodeID,
			ui.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}
	lockfiles, err := graft.Dep[ports.LockfileStore](ctx)
	if err != nil {
		return nil, err
	}
	srcs, err := graft.Dep[*sources.Builder](ctx)
	if err != nil {
		return nil, err
	}
	plan, err := graft.Dep[*planner.Planner](ctx)
	if err != nil {
		return nil, err
	}
	drv, err := graft.Dep[*driver.Driver](ctx)
	if err != nil {
		return nil, err
	}
	pkgr, err := graft.Dep[*packager.Packager](ctx)
	if err != nil {
		return nil, err
	}
	compilers, err := graft.Dep[*compiler.Factory](ctx)
	if err != nil {
		return nil, err
	}
	builders, err := graft.Dep[*procmacro.BuilderFactory](ctx)
	if err != nil {
		return nil, err
	}
	reporter, err := graft.Dep[ports.Reporter](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, manifests, lockfiles, srcs, plan, drv, pkgr, compilers, builders, reporter, tracer, log), nil
}
