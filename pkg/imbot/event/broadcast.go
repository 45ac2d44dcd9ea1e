package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

// Suppression reasons reported to the metrics recorder.
const (
	reasonExempt         = "exempt"
	reasonMessageReceipt = "message_receipt"
	reasonVerbose        = "verbose"
)

// BroadcasterConfig configures a Broadcaster.
type BroadcasterConfig struct {
	// Registry holds the listeners. Default: a new empty registry.
	Registry *Registry

	// Logger receives diagnostic lines for events without a Scope.
	// Default: slog.Default() tagged with component=event_pipeline.
	Logger *slog.Logger

	// Metrics records broadcast and listener metrics. Default: no-op.
	Metrics observability.MetricsRecorder

	// Spans traces broadcasts. Default: no-op.
	Spans observability.SpanManager

	// Disabled starts the broadcaster with delivery switched off.
	Disabled bool

	// ShowVerboseAlways logs Verbose events regardless of their scope.
	ShowVerboseAlways bool

	// OnError is called for every listener failure, after it was logged.
	OnError func(ctx context.Context, err *ListenerError)
}

// Broadcaster delivers events to the listeners of its registry.
//
// Broadcast runs the whole listener chain on the calling goroutine. Distinct
// event instances may be broadcast concurrently; broadcasts of the same
// instance are serialized.
type Broadcaster struct {
	registry *Registry
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	onError  func(ctx context.Context, err *ListenerError)

	disabled          atomic.Bool
	showVerboseAlways atomic.Bool
}

// NewBroadcaster creates a Broadcaster, filling unset fields with defaults.
func NewBroadcaster(cfg BroadcasterConfig) *Broadcaster {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.PipelineLogger(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Spans == nil {
		cfg.Spans = observability.NoopSpanManager{}
	}

	b := &Broadcaster{
		registry: cfg.Registry,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		spans:    cfg.Spans,
		onError:  cfg.OnError,
	}
	b.disabled.Store(cfg.Disabled)
	b.showVerboseAlways.Store(cfg.ShowVerboseAlways)
	return b
}

// Registry returns the registry listeners are added to.
func (b *Broadcaster) Registry() *Registry {
	return b.registry
}

// Channel returns the root channel of the broadcaster's registry.
func (b *Broadcaster) Channel() Channel[Event] {
	return NewChannel(b.registry)
}

// SetDisabled switches delivery off or back on. Registrations are kept.
func (b *Broadcaster) SetDisabled(disabled bool) {
	b.disabled.Store(disabled)
}

// Disabled reports whether delivery is switched off.
func (b *Broadcaster) Disabled() bool {
	return b.disabled.Load()
}

// SetShowVerboseAlways makes Verbose events logged regardless of their scope.
func (b *Broadcaster) SetShowVerboseAlways(show bool) {
	b.showVerboseAlways.Store(show)
}

// ShowVerboseAlways reports whether Verbose events are always logged.
func (b *Broadcaster) ShowVerboseAlways() bool {
	return b.showVerboseAlways.Load()
}

// Broadcast delivers e to every matching listener and returns it.
//
// The returned error is nil, a *DeliveryError aggregating listener failures,
// or the context error if ctx ended while waiting for another broadcast of
// the same instance. In every case the event is returned.
func (b *Broadcaster) Broadcast(ctx context.Context, e Event) (Event, error) {
	if e == nil {
		return nil, &UsageError{Op: "broadcast", Err: ErrNilEvent}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if gated, ok := e.(BroadcastControllable); ok && !gated.ShouldBroadcast() {
		return e, nil
	}

	base := e.eventBase()
	if err := base.lock(ctx); err != nil {
		return e, err
	}
	defer base.unlock()

	base.intercepted.Store(false)

	if b.disabled.Load() {
		return e, nil
	}

	eventType := TypeName(e)
	b.logEvent(ctx, eventType, e)

	return e, b.deliver(ctx, eventType, e)
}

func (b *Broadcaster) deliver(ctx context.Context, eventType string, e Event) error {
	done := observability.TimedOperation()
	ctx, span := b.spans.StartBroadcastSpan(ctx, eventType)

	logger := b.loggerFor(e)
	observe := func(ctx context.Context, l *Listener, d time.Duration, lerr *ListenerError) {
		if lerr == nil {
			b.metrics.RecordListener(ctx, eventType, l.priority.String(), d, nil)
			return
		}
		b.metrics.RecordListener(ctx, eventType, l.priority.String(), d, lerr.Err)
		b.spans.AddSpanEvent(ctx, "listener_failed",
			attribute.String("listener", l.String()),
			attribute.String("priority", l.priority.String()),
			attribute.Bool("panicked", lerr.Panicked),
		)
		observability.LogListenerError(logger, eventType, l.String(), l.priority.String(), lerr.Err)
		if b.onError != nil {
			b.onError(ctx, lerr)
		}
	}

	start := time.Now()
	errs := b.registry.dispatch(ctx, e, observe)
	failures := len(multierr.Errors(errs))
	b.metrics.RecordBroadcast(ctx, eventType, time.Since(start), e.IsIntercepted(), failures)

	if errs == nil {
		b.spans.EndSpanWithError(span, nil)
		return nil
	}

	derr := newDeliveryError(e, errs)
	b.spans.EndSpanWithError(span, derr)
	observability.LogBroadcastFailure(logger, eventType, failures, done())
	return derr
}

// loggerFor returns the logger of the event's scope, or the pipeline logger.
func (b *Broadcaster) loggerFor(e Event) *slog.Logger {
	if scoped, ok := e.(Scoped); ok {
		if scope := scoped.Scope(); scope != nil {
			if l := scope.Logger(); l != nil {
				return l
			}
		}
	}
	return b.logger
}

// logEvent writes the diagnostic line unless a suppression rule applies.
func (b *Broadcaster) logEvent(ctx context.Context, eventType string, e Event) {
	if reason, suppressed := b.suppression(e); suppressed {
		if reason != "" {
			b.metrics.RecordSuppressed(ctx, eventType, reason)
		}
		return
	}
	observability.LogEvent(b.loggerFor(e), eventType, e)
}

// suppression evaluates the suppression rules in order. NeverLogged events
// leave no trace, so their reason is empty.
func (b *Broadcaster) suppression(e Event) (reason string, suppressed bool) {
	if _, ok := e.(NeverLogged); ok {
		return "", true
	}
	if _, ok := e.(LogExempt); ok {
		return reasonExempt, true
	}
	if _, ok := e.(MessageReceipt); ok {
		return reasonMessageReceipt, true
	}
	if _, ok := e.(Verbose); ok && !b.verboseVisible(e) {
		return reasonVerbose, true
	}
	return "", false
}

func (b *Broadcaster) verboseVisible(e Event) bool {
	if b.showVerboseAlways.Load() {
		return true
	}
	if scoped, ok := e.(Scoped); ok {
		if scope := scoped.Scope(); scope != nil {
			return scope.ShowVerboseEventLog()
		}
	}
	return false
}

// Broadcast is the typed form of (*Broadcaster).Broadcast.
//
//	evt, err := event.Broadcast(ctx, b, &FriendAddEvent{...})
//	// evt is *FriendAddEvent
func Broadcast[E Event](ctx context.Context, b *Broadcaster, e E) (E, error) {
	_, err := b.Broadcast(ctx, e)
	return e, err
}

var defaultBroadcaster = sync.OnceValue(func() *Broadcaster {
	return NewBroadcaster(BroadcasterConfig{
		Metrics: observability.NewMetricsRecorder(),
		Spans:   observability.NewSpanManager(),
	})
})

// Default returns the process-wide broadcaster. Its metrics and spans go to
// the global OpenTelemetry providers.
func Default() *Broadcaster {
	return defaultBroadcaster()
}

// GlobalChannel returns the root channel of the default broadcaster.
func GlobalChannel() Channel[Event] {
	return Default().Channel()
}

// BroadcastDefault broadcasts e through the default broadcaster.
func BroadcastDefault[E Event](ctx context.Context, e E) (E, error) {
	return Broadcast(ctx, Default(), e)
}

// IsDeliveryError reports whether err carries listener failures.
func IsDeliveryError(err error) bool {
	var derr *DeliveryError
	return errors.As(err, &derr)
}
