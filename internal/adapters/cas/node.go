package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the artifact store Graft node.
	NodeID graft.ID = "adapter.artifact_store"
	// FingerprintNodeID is the unique identifier for the fingerprint store Graft node.
	FingerprintNodeID graft.ID = "adapter.fingerprint_store"
)

func init() {
	graft.Register(graft.Node[ports.ArtifactStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ArtifactStore, error) {
			store, err := NewStore()
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})

	graft.Register(graft.Node[ports.FingerprintStore]{
		ID:        FingerprintNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FingerprintStore, error) {
			return NewFingerprints(), nil
		},
	})
}
