package event

import (
	"context"
	"errors"
)

// ErrDetachedChannel indicates a zero Channel that is not bound to a registry.
var ErrDetachedChannel = errors.New("channel is not bound to a registry")

// Channel is a view over the events flowing through a Registry.
//
// A Channel owns no events and no storage. Derived channels compose a chain
// of filters and transforms over their parent; subscribing through a derived
// channel registers one listener on the root registry that runs the whole
// chain before calling the handler. Channels are values and cheap to derive.
type Channel[T any] struct {
	registry *Registry
	project  func(Event) (T, bool)
}

// NewChannel returns the root channel of r, which sees every event.
func NewChannel(r *Registry) Channel[Event] {
	return Channel[Event]{
		registry: r,
		project: func(e Event) (Event, bool) {
			return e, true
		},
	}
}

// Registry returns the registry subscriptions of this channel are added to.
func (c Channel[T]) Registry() *Registry {
	return c.registry
}

// Filter returns a channel that only passes values for which keep returns true.
func (c Channel[T]) Filter(keep func(T) bool) Channel[T] {
	parent := c.project
	return Channel[T]{
		registry: c.registry,
		project: func(e Event) (T, bool) {
			v, ok := parent(e)
			if !ok || !keep(v) {
				var zero T
				return zero, false
			}
			return v, true
		},
	}
}

// FilterByType narrows c to values of type U.
//
//	joins := event.FilterByType[*imbot.MemberJoinEvent](event.GlobalChannel())
func FilterByType[U, T any](c Channel[T]) Channel[U] {
	parent := c.project
	return Channel[U]{
		registry: c.registry,
		project: func(e Event) (U, bool) {
			v, ok := parent(e)
			if !ok {
				var zero U
				return zero, false
			}
			u, ok := any(v).(U)
			return u, ok
		},
	}
}

// Map transforms every value passing through c.
func Map[T, U any](c Channel[T], fn func(T) U) Channel[U] {
	parent := c.project
	return Channel[U]{
		registry: c.registry,
		project: func(e Event) (U, bool) {
			v, ok := parent(e)
			if !ok {
				var zero U
				return zero, false
			}
			return fn(v), true
		},
	}
}

// Subscribe registers h. The listener stays registered until h returns Stop,
// Complete is called, or ctx ends.
func (c Channel[T]) Subscribe(ctx context.Context, h Handler[T], opts ...ListenerOption) (*Listener, error) {
	return c.subscribe(ctx, h, false, opts)
}

// SubscribeAlways registers fn until Complete is called or ctx ends.
func (c Channel[T]) SubscribeAlways(ctx context.Context, fn func(ctx context.Context, v T) error, opts ...ListenerOption) (*Listener, error) {
	if fn == nil {
		return nil, &UsageError{Op: "subscribe", Err: ErrNilHandler}
	}
	return c.subscribe(ctx, func(ctx context.Context, v T) (Status, error) {
		return Continue, fn(ctx, v)
	}, false, opts)
}

// SubscribeOnce registers fn for a single invocation. The listener is removed
// after fn runs, whether or not it failed. Once listeners are locked, so fn
// runs at most once even when distinct events are broadcast concurrently.
func (c Channel[T]) SubscribeOnce(ctx context.Context, fn func(ctx context.Context, v T) error, opts ...ListenerOption) (*Listener, error) {
	if fn == nil {
		return nil, &UsageError{Op: "subscribe once", Err: ErrNilHandler}
	}
	return c.subscribe(ctx, func(ctx context.Context, v T) (Status, error) {
		return Stop, fn(ctx, v)
	}, true, opts)
}

func (c Channel[T]) subscribe(ctx context.Context, h Handler[T], once bool, opts []ListenerOption) (*Listener, error) {
	if c.registry == nil {
		return nil, &UsageError{Op: "subscribe", Err: ErrDetachedChannel}
	}
	if h == nil {
		return nil, &UsageError{Op: "subscribe", Err: ErrNilHandler}
	}

	cfg := defaultListenerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.priority.Valid() {
		return nil, &UsageError{
			Op:  "subscribe",
			Msg: cfg.priority.String(),
			Err: ErrInvalidPriority,
		}
	}

	project := c.project
	l := newListener(c.registry, cfg, once)
	l.match = func(e Event) (any, bool) {
		return project(e)
	}
	l.handle = func(ctx context.Context, v any) (Status, error) {
		tv, _ := v.(T) // nil interface values arrive as the zero T
		return h(ctx, tv)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	c.registry.add(l)
	l.bindScope(ctx)
	return l, nil
}
