package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordBroadcast does nothing.
func (NoopMetrics) RecordBroadcast(_ context.Context, _ string, _ time.Duration, _ bool, _ int) {}

// RecordListener does nothing.
func (NoopMetrics) RecordListener(_ context.Context, _, _ string, _ time.Duration, _ error) {}

// RecordSuppressed does nothing.
func (NoopMetrics) RecordSuppressed(_ context.Context, _, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartBroadcastSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartBroadcastSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
