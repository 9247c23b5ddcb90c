package tarball

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the archiver Graft node.
const NodeID graft.ID = "adapter.tarball"

func init() {
	graft.Register(graft.Node[*Archiver]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Archiver, error) {
			return NewArchiver(), nil
		},
	})
}
