package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the file walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// HasherNodeID is the unique identifier for the file hasher Graft node.
	HasherNodeID graft.ID = "adapter.fs.hasher"
	// VerifierNodeID is the unique identifier for the output verifier Graft node.
	VerifierNodeID graft.ID = "adapter.fs.verifier"
)

func init() {
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.FileHasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.FileHasher, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewHasher(walker), nil
		},
	})

	graft.Register(graft.Node[*Verifier]{
		ID:        VerifierNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Verifier, error) {
			return NewVerifier(), nil
		},
	})
}
