package fingerprint

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/cas"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/scarb/internal/core/ports"
)

// NodeID is the unique identifier for the fingerprinter Graft node.
const NodeID graft.ID = "engine.fingerprint"

func init() {
	graft.Register(graft.Node[*Fingerprinter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID, cas.FingerprintNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Fingerprinter, error) {
			hasher, err := graft.Dep[ports.FileHasher](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.FingerprintStore](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(hasher, store, log), nil
		},
	})
}
