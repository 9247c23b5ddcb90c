package compiler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/shell"
)

// NodeID is the unique identifier for the compiler factory Graft node.
const NodeID graft.ID = "adapter.compiler"

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (*Factory, error) {
			runner, err := graft.Dep[*shell.Runner](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(runner), nil
		},
	})
}
