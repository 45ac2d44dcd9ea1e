package registry

import "sync"

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Registry is a thread-safe, insertion-ordered registry of values indexed by key.
// It uses sync.RWMutex for read-heavy workloads such as contact lookups.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	index   map[K]int
	entries []entry[K, V]
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		index: make(map[K]int),
	}
}

// Put adds or replaces the value for key. A replaced value keeps its position.
func (r *Registry[K, V]) Put(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[key]; ok {
		r.entries[i].value = value
		return
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, entry[K, V]{key: key, value: value})
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[key]; ok {
		return r.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[key]
	return ok
}

// Delete removes key and returns the value it held.
func (r *Registry[K, V]) Delete(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(key, nil)
}

// DeleteIf removes key only if match accepts its current value. The check
// and the removal happen under one write lock.
func (r *Registry[K, V]) DeleteIf(key K, match func(V) bool) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(key, match)
}

func (r *Registry[K, V]) deleteLocked(key K, match func(V) bool) (V, bool) {
	i, ok := r.index[key]
	if !ok || (match != nil && !match(r.entries[i].value)) {
		var zero V
		return zero, false
	}
	removed := r.entries[i].value

	delete(r.index, key)
	copy(r.entries[i:], r.entries[i+1:])
	r.entries[len(r.entries)-1] = entry[K, V]{}
	r.entries = r.entries[:len(r.entries)-1]
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].key] = j
	}
	return removed, true
}

// GetOrCreate returns the value for key, creating it with factory if it does
// not exist. The factory runs at most once per key, even under concurrent
// access. created reports whether this call stored the value.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) (v V, created bool) {
	r.mu.RLock()
	i, ok := r.index[key]
	if ok {
		v = r.entries[i].value
	}
	r.mu.RUnlock()
	if ok {
		return v, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if i, ok := r.index[key]; ok {
		return r.entries[i].value, false
	}
	v = factory()
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, entry[K, V]{key: key, value: v})
	return v, true
}

// Keys returns all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.key
	}
	return keys
}

// Values returns all values in insertion order.
func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make([]V, len(r.entries))
	for i, e := range r.entries {
		values[i] = e.value
	}
	return values
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes every entry.
func (r *Registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[K]int)
	r.entries = nil
}

// Range calls fn for each entry in insertion order until fn returns false.
//
// Range iterates over a snapshot of the registry, so it is safe
// to call Put or Delete during iteration without affecting
// the current iteration.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.RLock()
	snapshot := make([]entry[K, V], len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	for _, e := range snapshot {
		if !fn(e.key, e.value) {
			return
		}
	}
}
