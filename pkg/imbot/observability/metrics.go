package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of imbot metrics.
const MeterName = "imbot"

// MetricsRecorder records event pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordBroadcast records one completed broadcast.
	RecordBroadcast(ctx context.Context, eventType string, duration time.Duration, intercepted bool, failures int)

	// RecordListener records one handler invocation.
	RecordListener(ctx context.Context, eventType, priority string, duration time.Duration, err error)

	// RecordSuppressed records an event whose diagnostic log line was suppressed.
	RecordSuppressed(ctx context.Context, eventType, reason string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	broadcasts       metric.Int64Counter
	broadcastLatency metric.Float64Histogram
	invocations      metric.Int64Counter
	listenerLatency  metric.Float64Histogram
	failures         metric.Int64Counter
	suppressed       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(MeterName)

	broadcasts, err := meter.Int64Counter("imbot.event.broadcasts",
		metric.WithDescription("Number of delivered broadcasts"),
	)
	if err != nil {
		return nil, err
	}

	broadcastLatency, err := meter.Float64Histogram("imbot.event.broadcast.latency_ms",
		metric.WithDescription("Broadcast latency in milliseconds, all listeners included"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter("imbot.event.listener.invocations",
		metric.WithDescription("Number of listener invocations"),
	)
	if err != nil {
		return nil, err
	}

	listenerLatency, err := meter.Float64Histogram("imbot.event.listener.latency_ms",
		metric.WithDescription("Listener latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("imbot.event.listener.failures",
		metric.WithDescription("Number of failed listener invocations"),
	)
	if err != nil {
		return nil, err
	}

	suppressed, err := meter.Int64Counter("imbot.event.log.suppressed",
		metric.WithDescription("Number of events whose log line was suppressed"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		broadcasts:       broadcasts,
		broadcastLatency: broadcastLatency,
		invocations:      invocations,
		listenerLatency:  listenerLatency,
		failures:         failures,
		suppressed:       suppressed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder whose instruments
// are created from mp instead of the global provider.
func NewMetricsRecorderWithProvider(mp metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(mp)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// RecordBroadcast records one completed broadcast.
func (m *otelMetrics) RecordBroadcast(ctx context.Context, eventType string, duration time.Duration, intercepted bool, failures int) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("intercepted", intercepted),
		attribute.Bool("failed", failures > 0),
	)
	m.broadcasts.Add(ctx, 1, attrs)
	m.broadcastLatency.Record(ctx, durationMs(duration), attrs)
}

// RecordListener records one handler invocation.
func (m *otelMetrics) RecordListener(ctx context.Context, eventType, priority string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("priority", priority),
	)
	m.invocations.Add(ctx, 1, attrs)
	m.listenerLatency.Record(ctx, durationMs(duration), attrs)

	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

// RecordSuppressed records a suppressed log line.
func (m *otelMetrics) RecordSuppressed(ctx context.Context, eventType, reason string) {
	m.suppressed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("reason", reason),
	))
}
