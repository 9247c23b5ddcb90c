package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// StatusAttribute is the span attribute carrying the user-facing status verb.
const StatusAttribute = "scarb.status"

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}

// Span represents a unit of work.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Status is the verb printed when the span starts, e.g. "Compiling".
	// Spans without a status are not reported to the user.
	Status string
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithStatus reports the span to the user with the given status verb.
func WithStatus(verb string) SpanOption {
	return func(c *SpanConfig) {
		c.Status = verb
	}
}
