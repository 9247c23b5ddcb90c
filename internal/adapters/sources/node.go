package sources

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/scarb/internal/adapters/fs"
	"go.trai.ch/scarb/internal/adapters/git"
	"go.trai.ch/scarb/internal/adapters/logger"
	"go.trai.ch/scarb/internal/adapters/manifest"
	"go.trai.ch/scarb/internal/adapters/registry"
	"go.trai.ch/scarb/internal/adapters/tarball"
	"go.trai.ch/scarb/internal/adapters/telemetry"
	"go.trai.ch/scarb/internal/core/ports"
)

// NodeID is the unique identifier for the source map builder Graft node.
const NodeID graft.ID = "adapter.sources"

func init() {
	graft.Register(graft.Node[*Builder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.NodeID,
			git.NodeID,
			registry.NodeID,
			tarball.NodeID,
			fs.WalkerNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Builder, error) {
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			gitClient, err := graft.Dep[ports.GitClient](ctx)
			if err != nil {
				return nil, err
			}
			registries, err := graft.Dep[*registry.Factory](ctx)
			if err != nil {
				return nil, err
			}
			archiver, err := graft.Dep[*tarball.Archiver](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*fs.Walker](ctx)
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
			return &Builder{
				Loader:     loader,
				Git:        gitClient,
				Registries: registries,
				Archiver:   archiver,
				Walker:     walker,
				Tracer:     tracer,
				Logger:     log,
			}, nil
		},
	})
}
