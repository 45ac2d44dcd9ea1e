// Package observability provides logging, metrics and tracing for the
// imbot event pipeline.
//
// Features:
//   - Structured logging via slog (Go stdlib), optionally bridged to OpenTelemetry logs
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// PipelineLoggerName is the component name of the top-level event logger.
const PipelineLoggerName = "event_pipeline"

// PipelineLogger returns the logger used for events without an owning scope.
func PipelineLogger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("component", PipelineLoggerName))
}

// NewOTelLogger returns a slog logger that emits records through the global
// OpenTelemetry logger provider.
func NewOTelLogger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// EnrichLogger adds bot context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, 10001, "Mock bot")
//	enriched.Info("online") // includes bot_id, bot_nick
func EnrichLogger(logger *slog.Logger, botID int64, nick string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.Int64("bot_id", botID),
		slog.String("bot_nick", nick),
	)
}

// LogEvent writes the diagnostic line for one delivered event.
func LogEvent(logger *slog.Logger, eventType string, evt any) {
	if logger == nil {
		return
	}
	logger.Debug("event",
		slog.String("event_type", eventType),
		slog.Any("event", evt),
	)
}

// LogListenerError logs a listener failure (non-fatal to the broadcast).
func LogListenerError(logger *slog.Logger, eventType, listener, priority string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("listener failed",
		slog.String("event_type", eventType),
		slog.String("listener", listener),
		slog.String("priority", priority),
		slog.String("error", err.Error()),
	)
}

// LogBroadcastFailure logs the aggregated failures of one broadcast.
func LogBroadcastFailure(logger *slog.Logger, eventType string, failures int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("broadcast completed with failures",
		slog.String("event_type", eventType),
		slog.Int("failures", failures),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogBotState logs a bot lifecycle transition.
func LogBotState(logger *slog.Logger, state string) {
	if logger == nil {
		return
	}
	logger.Info("bot state changed",
		slog.String("state", state),
	)
}

// LogStoreError logs a failure of a backing store (non-fatal).
func LogStoreError(logger *slog.Logger, store, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("store operation failed",
		slog.String("store", store),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
