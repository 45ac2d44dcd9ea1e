// Package event implements the imbot event broadcast pipeline.
//
// # Overview
//
// One produced event value is delivered, in a well-defined order, to a
// dynamically changing set of listeners:
//
//   - Broadcaster is the sole entry point producers use
//   - Registry holds listeners in priority buckets
//   - Channel derives filtered and mapped subscription views
//   - Listener is one subscription, removable at any time
//
// # Events
//
// Every event embeds Base (or CancellableBase for cancellable events) and is
// used by pointer:
//
//	type FriendAddEvent struct {
//	    event.Base
//	    FriendID int64
//	}
//
// Optional capabilities are plain interfaces checked at broadcast time:
// Cancellable, BroadcastControllable, and the log suppression markers
// NeverLogged, LogExempt, MessageReceipt and Verbose. Events implementing
// Scoped log to their scope's logger.
//
// # Dispatch Order
//
// Listeners run highest priority first, in registration order within a
// bucket. PriorityMonitor runs last and is meant for observers that must not
// intercept.
//
//	b := event.NewBroadcaster(event.BroadcasterConfig{})
//
//	b.Channel().SubscribeAlways(ctx, func(ctx context.Context, e event.Event) error {
//	    e.Intercept() // listeners below this one are skipped
//	    return nil
//	}, event.WithPriority(event.PriorityHigh))
//
// Interception is checked after every listener. Cancellation is only a flag:
// a cancelled event still reaches every listener.
//
// # Channels
//
// Derived channels wrap their parent without copying any state. Subscribing
// through a derived channel adds one listener to the root registry that runs
// the chain before calling the handler:
//
//	joins := event.FilterByType[*imbot.MemberJoinEvent](b.Channel())
//	names := event.Map(joins, func(e *imbot.MemberJoinEvent) string {
//	    return e.Member.NameCard
//	})
//	names.SubscribeAlways(ctx, greet)
//
// # Listener Lifetime
//
// A listener stays registered until its handler returns Stop, Complete is
// called, or the context passed to Subscribe ends. SubscribeOnce listeners
// are removed after their first invocation, even if it failed.
//
// # Concurrency
//
// Broadcast runs the listener chain on the calling goroutine. Broadcasts of
// distinct event instances may run concurrently; broadcasts of the same
// instance are serialized by a lock embedded in Base. Registration and
// removal are safe during a broadcast: dispatch walks a snapshot of each
// bucket.
//
// # Failures
//
// A failing or panicking listener never stops the broadcast. Failures are
// returned after dispatch as a *DeliveryError wrapping one *ListenerError
// per failure; the event is returned alongside.
package event
