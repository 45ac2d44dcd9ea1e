package main

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/multierr"

	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

// telemetry keeps the metrics and spans of one simulation in memory so the
// summary can report them.
type telemetry struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	spans  *tracetest.InMemoryExporter
	tracer *sdktrace.TracerProvider

	metrics observability.MetricsRecorder
}

func newTelemetry() (*telemetry, error) {
	t := &telemetry{
		reader: sdkmetric.NewManualReader(),
		spans:  tracetest.NewInMemoryExporter(),
	}
	t.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(t.reader))
	t.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(t.spans))

	rec, err := observability.NewMetricsRecorderWithProvider(t.meters)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	t.metrics = rec
	return t, nil
}

func (t *telemetry) spanManager() observability.SpanManager {
	return observability.NewSpanManagerWithProvider(t.tracer)
}

// counter returns the total of an int64 counter across all attribute sets.
func (t *telemetry) counter(ctx context.Context, name string) (int64, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return 0, fmt.Errorf("collect metrics: %w", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total, nil
}

func (t *telemetry) spanCount() int {
	return len(t.spans.GetSpans())
}

func (t *telemetry) shutdown(ctx context.Context) error {
	return multierr.Combine(t.meters.Shutdown(ctx), t.tracer.Shutdown(ctx))
}
