package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// Registry holds listeners bucketed by priority.
//
// Each bucket is a copy-on-write slice: writers build a new slice under a
// mutex and publish it atomically. Dispatch loads every bucket when the
// broadcast starts, so a listener added during a broadcast, at any priority,
// first runs on the next one. Removal takes effect at once because completed
// listeners are skipped.
type Registry struct {
	mu      sync.Mutex // serializes writers
	buckets [priorityCount]atomic.Pointer[[]*Listener]
	size    atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) add(l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := &r.buckets[l.priority]
	var next []*Listener
	if cur := bucket.Load(); cur != nil {
		next = make([]*Listener, len(*cur), len(*cur)+1)
		copy(next, *cur)
	}
	next = append(next, l)
	bucket.Store(&next)
	r.size.Add(1)
}

func (r *Registry) remove(l *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := &r.buckets[l.priority]
	cur := bucket.Load()
	if cur == nil {
		return false
	}

	idx := -1
	for i, existing := range *cur {
		if existing == l {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	next := make([]*Listener, 0, len(*cur)-1)
	next = append(next, (*cur)[:idx]...)
	next = append(next, (*cur)[idx+1:]...)
	bucket.Store(&next)
	r.size.Add(-1)
	return true
}

// snapshot returns the current listeners of a bucket. The slice must not be modified.
func (r *Registry) snapshot(p Priority) []*Listener {
	if cur := r.buckets[p].Load(); cur != nil {
		return *cur
	}
	return nil
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// LenPriority returns the number of listeners in one priority bucket.
func (r *Registry) LenPriority(p Priority) int {
	if !p.Valid() {
		return 0
	}
	return len(r.snapshot(p))
}

// Contains reports whether l is currently registered.
func (r *Registry) Contains(l *Listener) bool {
	if l == nil || !l.priority.Valid() {
		return false
	}
	for _, existing := range r.snapshot(l.priority) {
		if existing == l {
			return true
		}
	}
	return false
}

// Listeners returns every listener in dispatch order.
func (r *Registry) Listeners() []*Listener {
	var out []*Listener
	for _, p := range Priorities {
		out = append(out, r.snapshot(p)...)
	}
	return out
}

// Clear completes every registered listener.
func (r *Registry) Clear() {
	for _, l := range r.Listeners() {
		l.Complete()
	}
}

// listenerObserver is told about every handler that actually ran.
type listenerObserver func(ctx context.Context, l *Listener, d time.Duration, err *ListenerError)

// dispatch walks the buckets highest first, in registration order within a
// bucket, and stops as soon as the event is intercepted. Listener failures
// are accumulated and returned combined; they never stop the walk.
func (r *Registry) dispatch(ctx context.Context, e Event, observe listenerObserver) error {
	var buckets [priorityCount][]*Listener
	for _, p := range Priorities {
		buckets[p] = r.snapshot(p)
	}

	var errs error
	for _, bucket := range buckets {
		for _, l := range bucket {
			if err := ctx.Err(); err != nil {
				return multierr.Append(errs, err)
			}

			start := time.Now()
			ran, lerr := l.invoke(ctx, e)
			if ran && observe != nil {
				observe(ctx, l, time.Since(start), lerr)
			}
			if lerr != nil {
				errs = multierr.Append(errs, lerr)
			}

			if e.IsIntercepted() {
				return errs
			}
		}
	}
	return errs
}
