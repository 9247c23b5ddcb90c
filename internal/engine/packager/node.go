package packager

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/fs"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/logger"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/tarball" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/ui"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/core/ports"
)

// NodeID is the unique identifier for the packager Graft node.
const NodeID graft.ID = "engine.packager"

func init() {
	graft.Register(graft.Node[*Packager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{tarball.NodeID, fs.WalkerNodeID, ui.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Packager, error) {
			archiver, err := graft.Dep[*tarball.Archiver](ctx)
			if err != nil {
				return nil, err
			}

			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}

			reporter, err := graft.Dep[ports.Reporter](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(archiver, walker, reporter, log), nil
		},
	})
}
