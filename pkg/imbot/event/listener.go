package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is returned by a handler to say whether its listener stays registered.
type Status int

const (
	// Continue keeps the listener registered.
	Continue Status = iota

	// Stop removes the listener after this invocation.
	Stop
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Concurrency controls whether one listener may run for several events at once.
type Concurrency int

const (
	// ConcurrencyConcurrent lets concurrent broadcasts of distinct events
	// invoke the listener in parallel.
	ConcurrencyConcurrent Concurrency = iota

	// ConcurrencyLocked serializes invocations of the listener. A listener
	// completed while a caller waits for the lock is skipped by that caller.
	ConcurrencyLocked
)

// String returns the concurrency name.
func (c Concurrency) String() string {
	switch c {
	case ConcurrencyConcurrent:
		return "concurrent"
	case ConcurrencyLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Handler handles values delivered through a Channel[T].
type Handler[T any] func(ctx context.Context, v T) (Status, error)

// ListenerOption configures a subscription.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	priority    Priority
	concurrency Concurrency
	timeout     time.Duration
	name        string
}

func defaultListenerConfig() listenerConfig {
	return listenerConfig{
		priority:    PriorityNormal,
		concurrency: ConcurrencyConcurrent,
	}
}

// WithPriority sets the priority bucket. Default: PriorityNormal.
func WithPriority(p Priority) ListenerOption {
	return func(c *listenerConfig) {
		c.priority = p
	}
}

// WithConcurrency sets the concurrency kind. Default: ConcurrencyConcurrent.
// Once subscriptions are always locked.
func WithConcurrency(kind Concurrency) ListenerOption {
	return func(c *listenerConfig) {
		c.concurrency = kind
	}
}

// WithTimeout gives each handler invocation a context deadline.
// The deadline is cooperative: a handler that ignores its context still
// holds up the broadcast.
func WithTimeout(d time.Duration) ListenerOption {
	return func(c *listenerConfig) {
		c.timeout = d
	}
}

// WithName labels the listener in logs and errors.
func WithName(name string) ListenerOption {
	return func(c *listenerConfig) {
		c.name = name
	}
}

// Listener is one registered subscription.
type Listener struct {
	id          string
	name        string
	priority    Priority
	concurrency Concurrency
	timeout     time.Duration
	once        bool

	// match applies the channel chain; handle invokes the user handler.
	match  func(Event) (any, bool)
	handle func(context.Context, any) (Status, error)

	mu        sync.Mutex // held during invocation when locked
	completed atomic.Bool
	registry  *Registry
	stopScope atomic.Pointer[func() bool]
}

func newListener(r *Registry, cfg listenerConfig, once bool) *Listener {
	l := &Listener{
		id:          uuid.NewString(),
		name:        cfg.name,
		priority:    cfg.priority,
		concurrency: cfg.concurrency,
		timeout:     cfg.timeout,
		once:        once,
		registry:    r,
	}
	if once {
		l.concurrency = ConcurrencyLocked
	}
	return l
}

// ID returns the unique listener identifier.
func (l *Listener) ID() string {
	return l.id
}

// Name returns the listener name given with WithName.
func (l *Listener) Name() string {
	return l.name
}

// Priority returns the listener's priority bucket.
func (l *Listener) Priority() Priority {
	return l.priority
}

// Concurrency returns the listener's concurrency kind.
func (l *Listener) Concurrency() Concurrency {
	return l.concurrency
}

// IsOnce reports whether the listener was created by SubscribeOnce.
func (l *Listener) IsOnce() bool {
	return l.once
}

// IsCompleted reports whether the listener has been removed.
func (l *Listener) IsCompleted() bool {
	return l.completed.Load()
}

// Complete removes the listener. It returns false if it was already removed.
// Safe to call from inside the listener's own handler.
func (l *Listener) Complete() bool {
	if !l.completed.CompareAndSwap(false, true) {
		return false
	}
	if stop := l.stopScope.Load(); stop != nil {
		(*stop)()
	}
	l.registry.remove(l)
	return true
}

// bindScope completes the listener when ctx ends.
func (l *Listener) bindScope(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() {
		l.Complete()
	})
	l.stopScope.Store(&stop)
	if l.completed.Load() {
		stop()
	}
}

// String identifies the listener in logs.
func (l *Listener) String() string {
	if l.name != "" {
		return fmt.Sprintf("%s(%s)", l.name, l.id)
	}
	return l.id
}

// invoke delivers e to the listener if its channel chain matches.
// It reports whether the handler ran.
//
// The channel chain runs before the listener lock is taken, so a locked
// listener may broadcast events it does not match from inside its handler.
func (l *Listener) invoke(ctx context.Context, e Event) (bool, *ListenerError) {
	if l.completed.Load() {
		return false, nil
	}

	v, ok, err := l.safeMatch(e)
	if err != nil {
		return true, l.failure(e, true, err)
	}
	if !ok {
		return false, nil
	}

	if l.concurrency == ConcurrencyLocked {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.completed.Load() {
			return false, nil
		}
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	status, panicked, err := l.call(ctx, v)
	if status == Stop || l.once {
		l.Complete()
	}
	if err == nil {
		return true, nil
	}
	return true, l.failure(e, panicked, err)
}

func (l *Listener) failure(e Event, panicked bool, err error) *ListenerError {
	return &ListenerError{
		EventType: TypeName(e),
		Listener:  l.id,
		Name:      l.name,
		Priority:  l.priority,
		Panicked:  panicked,
		Err:       err,
	}
}

// safeMatch runs the channel chain; a panicking filter or transform is a failure.
func (l *Listener) safeMatch(e Event) (v any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, ok, err = nil, false, recovered(r)
		}
	}()
	v, ok = l.match(e)
	return v, ok, nil
}

func (l *Listener) call(ctx context.Context, v any) (status Status, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			status, panicked, err = Continue, true, recovered(r)
		}
	}()
	status, err = l.handle(ctx, v)
	return status, false, err
}

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
