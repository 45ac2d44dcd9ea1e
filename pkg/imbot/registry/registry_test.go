package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[int64, string]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
	assert.Empty(t, r.Values())
}

func TestPutAndGet(t *testing.T) {
	r := New[int64, string]()

	r.Put(1, "alice")
	r.Put(2, "bob")

	v, ok := r.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	v, ok = r.Get(3)
	assert.False(t, ok)
	assert.Equal(t, "", v) // zero value
	assert.True(t, r.Has(2))
	assert.False(t, r.Has(3))
}

func TestPutReplaceKeepsPosition(t *testing.T) {
	r := New[int64, string]()
	r.Put(1, "a")
	r.Put(2, "b")
	r.Put(1, "a2")

	assert.Equal(t, []int64{1, 2}, r.Keys())
	assert.Equal(t, []string{"a2", "b"}, r.Values())
}

func TestInsertionOrder(t *testing.T) {
	r := New[int64, int]()
	for _, k := range []int64{5, 3, 9, 1} {
		r.Put(k, int(k)*10)
	}

	assert.Equal(t, []int64{5, 3, 9, 1}, r.Keys())
	assert.Equal(t, []int{50, 30, 90, 10}, r.Values())
}

func TestDelete(t *testing.T) {
	r := New[int64, string]()
	r.Put(1, "a")
	r.Put(2, "b")
	r.Put(3, "c")

	v, ok := r.Delete(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, []int64{1, 3}, r.Keys())

	// Index stays consistent after compaction
	got, ok := r.Get(3)
	require.True(t, ok)
	assert.Equal(t, "c", got)

	_, ok = r.Delete(2)
	assert.False(t, ok)

	r.Put(2, "b2")
	assert.Equal(t, []int64{1, 3, 2}, r.Keys(), "re-added keys go to the end")
}

func TestDeleteIf(t *testing.T) {
	r := New[int64, string]()
	r.Put(1, "a")
	r.Put(2, "b")

	_, ok := r.DeleteIf(1, func(v string) bool { return v == "stale" })
	assert.False(t, ok)
	assert.True(t, r.Has(1), "rejected match keeps the entry")

	v, ok := r.DeleteIf(1, func(v string) bool { return v == "a" })
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, []int64{2}, r.Keys())

	_, ok = r.DeleteIf(9, func(string) bool { return true })
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	r := New[int64, string]()
	r.Put(1, "a")
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Has(1))

	r.Put(2, "b")
	assert.Equal(t, []int64{2}, r.Keys())
}

func TestRange(t *testing.T) {
	r := New[int64, int]()
	for i := int64(1); i <= 5; i++ {
		r.Put(i, int(i))
	}

	var seen []int64
	r.Range(func(k int64, _ int) bool {
		seen = append(seen, k)
		return k < 3
	})
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestRangeAllowsMutation(t *testing.T) {
	r := New[int64, int]()
	r.Put(1, 1)
	r.Put(2, 2)

	var visited int
	r.Range(func(k int64, _ int) bool {
		visited++
		r.Delete(k)
		r.Put(k+100, 0)
		return true
	})

	assert.Equal(t, 2, visited, "snapshot is not affected by mutation")
	assert.Equal(t, []int64{101, 102}, r.Keys())
}

func TestGetOrCreate(t *testing.T) {
	r := New[int64, string]()

	v, created := r.GetOrCreate(1, func() string { return "first" })
	assert.True(t, created)
	assert.Equal(t, "first", v)

	v, created = r.GetOrCreate(1, func() string {
		t.Fatal("factory must not run for an existing key")
		return ""
	})
	assert.False(t, created)
	assert.Equal(t, "first", v)
}

// Thread-safety tests

func TestConcurrentPut(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup
	n := 1000

	for i := range n {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			r.Put(val, val*2)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, r.Len())
	for i := range n {
		v, ok := r.Get(i)
		assert.True(t, ok)
		assert.Equal(t, i*2, v)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, int]()
	var calls atomic.Int32
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := r.GetOrCreate("shared", func() int {
				calls.Add(1)
				return 42
			})
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentDeleteAndRange(t *testing.T) {
	r := New[int, int]()
	for i := range 500 {
		r.Put(i, i)
	}

	var wg sync.WaitGroup
	for i := range 500 {
		wg.Add(2)
		go func(k int) {
			defer wg.Done()
			r.Delete(k)
		}(i)
		go func() {
			defer wg.Done()
			r.Range(func(k, v int) bool {
				assert.Equal(t, k, v)
				return true
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
