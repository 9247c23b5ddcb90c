package driver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/procmacro" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/ui"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/engine/fingerprint"
)

// NodeID is the unique identifier for the driver Graft node.
const NodeID graft.ID = "engine.driver"

func init() {
	graft.Register(graft.Node[*Driver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fingerprint.NodeID,
			procmacro.LoaderNodeID,
			cas.NodeID,
			fs.WalkerNodeID,
			fs.VerifierNodeID,
			ui.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Driver, error) {
			fingerprinter, err := graft.Dep[*fingerprint.Fingerprinter](ctx)
			if err != nil {
				return nil, err
			}

			loader, err := graft.Dep[ports.PluginLoader](ctx)
			if err != nil {
				return nil, err
			}

			artifacts, err := graft.Dep[ports.ArtifactStore](ctx)
			if err != nil {
				return nil, err
			}

			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}

			verifier, err := graft.Dep[*fs.Verifier](ctx)
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

			return New(fingerprinter, loader, artifacts, walker, verifier, reporter, tracer, log), nil
		},
	})
}
