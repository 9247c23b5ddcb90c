package git

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/ports"
)

// NodeID is the unique identifier for the git client Graft node.
const NodeID graft.ID = "adapter.git"

func init() {
	graft.Register(graft.Node[ports.GitClient]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.GitClient, error) {
			runner, err := graft.Dep[*shell.Runner](ctx)
			if err != nil {
				return nil, err
			}
			return NewClient(runner), nil
		},
	})
}
