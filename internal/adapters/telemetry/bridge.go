package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/scarb/internal/core/ports"
	"go.trai.ch/scarb/internal/ui/style"
)

// Bridge implements sdktrace.SpanProcessor, turning spans that carry a status
// attribute into Reporter status lines.
type Bridge struct {
	reporter ports.Reporter
}

// NewBridge returns a new Bridge.
func NewBridge(reporter ports.Reporter) *Bridge {
	return &Bridge{reporter: reporter}
}

func statusOf(s sdktrace.ReadOnlySpan) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == ports.StatusAttribute {
			return kv.Value.AsString()
		}
	}
	return ""
}

// OnStart prints "<Status> <span name>".
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if b.reporter == nil || !s.SpanContext().IsValid() {
		return
	}
	if status := statusOf(s); status != "" {
		b.reporter.Status(status, s.Name())
	}
}

// OnEnd reports the duration of status spans in verbose mode.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.reporter == nil || !s.SpanContext().IsValid() {
		return
	}
	if b.reporter.Verbosity() != domain.VerbosityVerbose || statusOf(s) == "" {
		return
	}
	if s.Status().Code == codes.Error {
		return
	}

	elapsed := s.EndTime().Sub(s.StartTime()).Round(time.Millisecond)
	b.reporter.Print(fmt.Sprintf("%*s %s in %s", style.StatusWidth, "", s.Name(), elapsed))
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}

// NewProvider builds a tracer provider whose only processor is a Bridge to reporter.
func NewProvider(reporter ports.Reporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewBridge(reporter)))
}
