package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Event is the contract every broadcastable value satisfies.
//
// Events are only satisfiable by embedding Base (or CancellableBase), which
// carries the per-instance broadcast lock and the interception flag. Events
// are always used by pointer.
type Event interface {
	// Intercept stops delivery to every listener that has not yet run for
	// the current broadcast. Monitor-tier listeners should not call it.
	Intercept()

	// IsIntercepted reports whether the in-flight broadcast was intercepted.
	// Always false before a broadcast starts.
	IsIntercepted() bool

	eventBase() *Base
}

// Cancellable events carry a cancellation flag observed by the code that
// produced them. Cancelling does not stop delivery.
type Cancellable interface {
	Event

	// Cancel marks the represented action as not to be performed.
	Cancel()

	// IsCancelled reports whether Cancel has been called.
	IsCancelled() bool
}

// BroadcastControllable lets a producer suppress delivery entirely.
// ShouldBroadcast is evaluated once per Broadcast call, before any lock is taken.
type BroadcastControllable interface {
	Event
	ShouldBroadcast() bool
}

// NeverLogged events are never written to the diagnostic log.
type NeverLogged interface {
	NeverLogged()
}

// LogExempt events are not written to the diagnostic log but still count
// towards broadcast metrics. Used by transport-level events that have their
// own logging.
type LogExempt interface {
	LogExempt()
}

// MessageReceipt marks events that report an incoming message. The transport
// layer logs those itself.
type MessageReceipt interface {
	MessageReceipt()
}

// Verbose events are only logged when verbose event logging is enabled,
// either globally or by the scope the event belongs to.
type Verbose interface {
	Verbose()
}

// Scope is the owning context of an event, typically a bot.
type Scope interface {
	// Logger returns the logger diagnostic lines for this scope go to.
	Logger() *slog.Logger

	// ShowVerboseEventLog reports whether verbose events of this scope are logged.
	ShowVerboseEventLog() bool
}

// Scoped events belong to a Scope.
type Scoped interface {
	Scope() Scope
}

// Base is embedded by every event type.
//
//	type FriendAdded struct {
//	    event.Base
//	    FriendID int64
//	}
//
// The zero value is ready to use. A Base must not be copied after first use.
type Base struct {
	semOnce sync.Once
	sem     chan struct{}

	intercepted atomic.Bool
}

// Intercept implements Event.
func (b *Base) Intercept() {
	b.intercepted.Store(true)
}

// IsIntercepted implements Event.
func (b *Base) IsIntercepted() bool {
	return b.intercepted.Load()
}

func (b *Base) eventBase() *Base {
	return b
}

// lock acquires the per-instance broadcast lock, giving up when ctx ends.
func (b *Base) lock(ctx context.Context) error {
	b.semOnce.Do(func() {
		b.sem = make(chan struct{}, 1)
	})

	// Prefer the lock over an already-cancelled context when both are ready.
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Base) unlock() {
	<-b.sem
}

// CancellableBase is embedded by events that support cancellation.
type CancellableBase struct {
	Base

	cancelled atomic.Bool
}

// Cancel implements Cancellable.
func (b *CancellableBase) Cancel() {
	b.cancelled.Store(true)
}

// IsCancelled implements Cancellable.
func (b *CancellableBase) IsCancelled() bool {
	return b.cancelled.Load()
}

// Cancel cancels e. It returns ErrUnsupportedOperation if e does not
// implement Cancellable.
func Cancel(e Event) error {
	c, ok := e.(Cancellable)
	if !ok {
		return &UsageError{
			Op:  "cancel",
			Msg: fmt.Sprintf("event %s is not cancellable", TypeName(e)),
			Err: ErrUnsupportedOperation,
		}
	}
	c.Cancel()
	return nil
}

// IsCancelled reports whether e has been cancelled. Events that cannot be
// cancelled are never cancelled.
func IsCancelled(e Event) bool {
	if c, ok := e.(Cancellable); ok {
		return c.IsCancelled()
	}
	return false
}

// TypeName returns the short type name of an event, e.g. "imbot.BotOnlineEvent".
func TypeName(e any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", e), "*")
}
