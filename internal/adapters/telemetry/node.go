package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.opentelemetry.io/otel"
	"go.trai.ch/scarb/internal/adapters/ui"
	"go.trai.ch/scarb/internal/core/ports"
)

// TracerNodeID is the unique identifier for the Telemetry adapter Graft node.
const TracerNodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        TracerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{ui.NodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			reporter, err := graft.Dep[ports.Reporter](ctx)
			if err != nil {
				return nil, err
			}
			tp := NewProvider(reporter)
			otel.SetTracerProvider(tp)
			return NewOTelTracerWithProvider(tp, InstrumentationName), nil
		},
	})
}
