package procmacro

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/shell"
	"go.trai.ch/scarb/internal/core/ports"
)

const (
	// LoaderNodeID is the unique identifier for the plugin loader Graft node.
	LoaderNodeID graft.ID = "adapter.procmacro.loader"
	// BuilderNodeID is the unique identifier for the plugin builder factory Graft node.
	BuilderNodeID graft.ID = "adapter.procmacro.builder"
)

func init() {
	graft.Register(graft.Node[ports.PluginLoader]{
		ID:        LoaderNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.PluginLoader, error) {
			return NewLoader(), nil
		},
	})

	graft.Register(graft.Node[*BuilderFactory]{
		ID:        BuilderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (*BuilderFactory, error) {
			runner, err := graft.Dep[*shell.Runner](ctx)
			if err != nil {
				return nil, err
			}
			return NewBuilderFactory(runner), nil
		},
	})
}
