package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

func TestDispatch_PriorityOrder(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	rec := &recorder{}

	// Registered lowest first to show registration order does not matter across buckets.
	subscribe(t, b, rec, "monitor", event.PriorityMonitor, nil)
	subscribe(t, b, rec, "low", event.PriorityLow, nil)
	subscribe(t, b, rec, "normal", event.PriorityNormal, nil)
	subscribe(t, b, rec, "high", event.PriorityHigh, nil)
	subscribe(t, b, rec, "highest", event.PriorityHighest, nil)
	subscribe(t, b, rec, "lowest", event.PriorityLowest, nil)

	_, err := b.Broadcast(context.Background(), &testEvent{})
	require.NoError(t, err)

	assert.Equal(t, []string{"highest", "high", "normal", "low", "lowest", "monitor"}, rec.get())
}

func TestDispatch_RegistrationOrderWithinBucket(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	rec := &recorder{}

	for _, label := range []string{"a", "b", "c", "d"} {
		subscribe(t, b, rec, label, event.PriorityNormal, nil)
	}

	_, err := b.Broadcast(context.Background(), &testEvent{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.get())
}

func TestDispatch_Intercept(t *testing.T) {
	t.Run("high priority intercept skips lower buckets", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}

		subscribe(t, b, rec, "high", event.PriorityHigh, func(e event.Event) error {
			e.Intercept()
			return nil
		})
		subscribe(t, b, rec, "normal", event.PriorityNormal, nil)
		subscribe(t, b, rec, "low", event.PriorityLow, nil)
		subscribe(t, b, rec, "monitor", event.PriorityMonitor, nil)

		e, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.True(t, e.IsIntercepted())
		assert.Equal(t, []string{"high"}, rec.get())
	})

	t.Run("intercept skips the rest of the same bucket", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}

		subscribe(t, b, rec, "first", event.PriorityNormal, nil)
		subscribe(t, b, rec, "interceptor", event.PriorityNormal, func(e event.Event) error {
			e.Intercept()
			return nil
		})
		subscribe(t, b, rec, "third", event.PriorityNormal, nil)

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "interceptor"}, rec.get())
	})

	t.Run("failing interceptor still intercepts", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}

		subscribe(t, b, rec, "high", event.PriorityHigh, func(e event.Event) error {
			e.Intercept()
			return errors.New("after intercept")
		})
		subscribe(t, b, rec, "low", event.PriorityLow, nil)

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.Error(t, err)
		assert.Equal(t, []string{"high"}, rec.get())
	})

	t.Run("flag is reset on the next broadcast", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}
		var intercept atomic.Bool
		intercept.Store(true)

		subscribe(t, b, rec, "high", event.PriorityHigh, func(e event.Event) error {
			if intercept.Load() {
				e.Intercept()
			}
			return nil
		})
		subscribe(t, b, rec, "low", event.PriorityLow, nil)

		e := &testEvent{}
		_, err := b.Broadcast(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, e.IsIntercepted())

		intercept.Store(false)
		_, err = b.Broadcast(context.Background(), e)
		require.NoError(t, err)
		assert.False(t, e.IsIntercepted())
		assert.Equal(t, []string{"high", "high", "low"}, rec.get())
	})
}

func TestDispatch_CancelDoesNotStopDelivery(t *testing.T) {
	b, _ := newTestBroadcaster(t)

	var sawCancelled atomic.Bool
	_, err := b.Channel().SubscribeAlways(context.Background(), func(_ context.Context, e event.Event) error {
		return event.Cancel(e)
	}, event.WithPriority(event.PriorityHigh))
	require.NoError(t, err)

	_, err = b.Channel().SubscribeAlways(context.Background(), func(_ context.Context, e event.Event) error {
		sawCancelled.Store(event.IsCancelled(e))
		return nil
	}, event.WithPriority(event.PriorityMonitor))
	require.NoError(t, err)

	e, err := event.Broadcast(context.Background(), b, &cancellableEvent{})
	require.NoError(t, err)

	assert.True(t, e.IsCancelled())
	assert.False(t, e.IsIntercepted())
	assert.True(t, sawCancelled.Load(), "monitor listener should observe cancellation")
}

func TestDispatch_InterceptWinsOverMonitor(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	rec := &recorder{}

	subscribe(t, b, rec, "high", event.PriorityHigh, func(e event.Event) error {
		if err := event.Cancel(e); err != nil {
			return err
		}
		e.Intercept()
		return nil
	})
	subscribe(t, b, rec, "monitor", event.PriorityMonitor, nil)

	e, err := event.Broadcast(context.Background(), b, &cancellableEvent{})
	require.NoError(t, err)

	assert.True(t, e.IsCancelled())
	assert.True(t, e.IsIntercepted())
	assert.Equal(t, []string{"high"}, rec.get())
}

func TestDispatch_Once(t *testing.T) {
	t.Run("invoked at most once", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		var calls atomic.Int32

		l, err := b.Channel().SubscribeOnce(context.Background(), func(context.Context, event.Event) error {
			calls.Add(1)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, l.IsOnce())
		assert.Equal(t, event.ConcurrencyLocked, l.Concurrency())

		for i := 0; i < 5; i++ {
			_, err := b.Broadcast(context.Background(), &testEvent{Value: i})
			require.NoError(t, err)
		}

		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, l.IsCompleted())
		assert.False(t, b.Registry().Contains(l))
		assert.Equal(t, 0, b.Registry().Len())
	})

	t.Run("removed even when the handler fails", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		var calls atomic.Int32

		l, err := b.Channel().SubscribeOnce(context.Background(), func(context.Context, event.Event) error {
			calls.Add(1)
			return errors.New("first and last")
		})
		require.NoError(t, err)

		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.Error(t, err)
		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)

		assert.Equal(t, int32(1), calls.Load())
		assert.False(t, b.Registry().Contains(l))
	})

	t.Run("removed even when the handler panics", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)

		l, err := b.Channel().SubscribeOnce(context.Background(), func(context.Context, event.Event) error {
			panic("once")
		})
		require.NoError(t, err)

		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.Error(t, err)
		assert.False(t, b.Registry().Contains(l))
	})

	t.Run("concurrent broadcasts of distinct events", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		var calls atomic.Int32

		_, err := b.Channel().SubscribeOnce(context.Background(), func(context.Context, event.Event) error {
			calls.Add(1)
			return nil
		})
		require.NoError(t, err)

		var g errgroup.Group
		for i := 0; i < 64; i++ {
			g.Go(func() error {
				_, err := b.Broadcast(context.Background(), &testEvent{Value: i})
				return err
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestDispatch_StopStatus(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	var calls atomic.Int32

	l, err := b.Channel().Subscribe(context.Background(), func(_ context.Context, e event.Event) (event.Status, error) {
		if calls.Add(1) == 3 {
			return event.Stop, nil
		}
		return event.Continue, nil
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, l.IsCompleted())
}

func TestDispatch_RemovalDuringIteration(t *testing.T) {
	t.Run("self removal does not skip siblings", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}

		var self *event.Listener
		self = subscribe(t, b, rec, "self", event.PriorityNormal, func(event.Event) error {
			self.Complete()
			return nil
		})
		subscribe(t, b, rec, "sibling", event.PriorityNormal, nil)

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)

		assert.Equal(t, []string{"self", "sibling", "sibling"}, rec.get())
	})

	t.Run("listener completed by an earlier one is skipped", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}

		var victim *event.Listener
		subscribe(t, b, rec, "killer", event.PriorityNormal, func(event.Event) error {
			victim.Complete()
			return nil
		})
		victim = subscribe(t, b, rec, "victim", event.PriorityNormal, nil)
		subscribe(t, b, rec, "bystander", event.PriorityNormal, nil)

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"killer", "bystander"}, rec.get())
	})

	t.Run("listener added during dispatch waits for the next broadcast", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}
		var added atomic.Bool

		subscribe(t, b, rec, "adder", event.PriorityNormal, func(event.Event) error {
			if added.CompareAndSwap(false, true) {
				subscribe(t, b, rec, "late", event.PriorityNormal, nil)
			}
			return nil
		})

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"adder"}, rec.get())

		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"adder", "adder", "late"}, rec.get())
	})

	t.Run("listener added to a lower bucket during dispatch waits for the next broadcast", func(t *testing.T) {
		b, _ := newTestBroadcaster(t)
		rec := &recorder{}
		var added atomic.Bool

		subscribe(t, b, rec, "adder", event.PriorityHigh, func(event.Event) error {
			if added.CompareAndSwap(false, true) {
				subscribe(t, b, rec, "late", event.PriorityLow, nil)
			}
			return nil
		})
		subscribe(t, b, rec, "monitor", event.PriorityMonitor, nil)

		_, err := b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"adder", "monitor"}, rec.get())

		_, err = b.Broadcast(context.Background(), &testEvent{})
		require.NoError(t, err)
		assert.Equal(t, []string{"adder", "monitor", "adder", "late", "monitor"}, rec.get())
	})
}

func TestRegistry_Accessors(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	r := b.Registry()
	rec := &recorder{}

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Contains(nil))

	low := subscribe(t, b, rec, "low", event.PriorityLow, nil)
	high := subscribe(t, b, rec, "high", event.PriorityHigh, nil)
	normal := subscribe(t, b, rec, "normal", event.PriorityNormal, nil)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 1, r.LenPriority(event.PriorityHigh))
	assert.Equal(t, 0, r.LenPriority(event.PriorityMonitor))
	assert.Equal(t, 0, r.LenPriority(event.Priority(99)))
	assert.True(t, r.Contains(high))
	assert.Equal(t, []*event.Listener{high, normal, low}, r.Listeners())

	assert.True(t, normal.Complete())
	assert.False(t, normal.Complete(), "second complete is a no-op")
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.Contains(normal))

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.True(t, low.IsCompleted())
	assert.True(t, high.IsCompleted())
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	b, _ := newTestBroadcaster(t)
	ctx := context.Background()

	var keep atomic.Int32
	_, err := b.Channel().SubscribeAlways(ctx, func(context.Context, event.Event) error {
		keep.Add(1)
		return nil
	}, event.WithPriority(event.PriorityMonitor))
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			l, err := b.Channel().SubscribeAlways(ctx, func(context.Context, event.Event) error {
				return nil
			}, event.WithPriority(event.Priorities[i%len(event.Priorities)]))
			if err != nil {
				return err
			}
			if _, err := b.Broadcast(ctx, &testEvent{Value: i}); err != nil {
				return err
			}
			l.Complete()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(32), keep.Load())
	assert.Equal(t, 1, b.Registry().Len())
}
