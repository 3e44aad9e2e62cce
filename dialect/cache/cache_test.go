package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/memory"
)

// countingAdapter counts the Get calls reaching storage.
type countingAdapter struct {
	dialect.Adapter
	gets atomic.Int64
}

func (c *countingAdapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	c.gets.Add(1)
	return c.Adapter.Get(ctx, table, key, fields)
}

func newCached(t *testing.T) (*Adapter, *countingAdapter, *LRU) {
	t.Helper()
	lru, err := NewLRU(16)
	require.NoError(t, err)
	next := &countingAdapter{Adapter: memory.New()}
	return New(next, lru, WithTTL(time.Minute)), next, lru
}

// =============================================================================
// LRU
// =============================================================================

func TestLRU(t *testing.T) {
	t.Parallel()
	c, err := NewLRU(2)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a:1", []byte("x"), 0))
	require.NoError(t, c.Set(ctx, "a:2", []byte("y"), time.Second))
	v, err := c.Get(ctx, "a:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)

	now = now.Add(2 * time.Second)
	v, err = c.Get(ctx, "a:2")
	require.NoError(t, err)
	assert.Nil(t, v, "expired")

	require.NoError(t, c.Set(ctx, "b:1", []byte("z"), 0))
	require.NoError(t, c.Set(ctx, "b:2", []byte("w"), 0))
	v, _ = c.Get(ctx, "a:1")
	assert.Nil(t, v, "evicted")

	require.NoError(t, c.DeletePrefix(ctx, "b:"))
	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.Set(ctx, "c:1", []byte("z"), 0))
	require.NoError(t, c.Delete(ctx, "c:1"))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())

	_, err = NewLRU(0)
	require.Error(t, err)
}

// =============================================================================
// Adapter
// =============================================================================

func TestAdapter_ReadThrough(t *testing.T) {
	t.Parallel()
	a, next, _ := newCached(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, a.Insert(ctx, "orders", map[string]any{"id": int64(1), "total": 9.5, "placed": at, "note": nil}, []string{"id"}))

	fields := []string{"total", "placed", "note", "id"}
	for range 3 {
		row, err := a.Get(ctx, "orders", map[string]any{"id": int64(1)}, fields)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": int64(1), "total": 9.5, "placed": at, "note": nil}, row)
	}
	assert.EqualValues(t, 1, next.gets.Load())
	hits, misses := a.Stats()
	assert.EqualValues(t, 2, hits)
	assert.EqualValues(t, 1, misses)

	// A different field list is a different entry.
	_, err := a.Get(ctx, "orders", map[string]any{"id": int64(1)}, []string{"total"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.gets.Load())
}

// blockingAdapter holds every Get until release is closed or the
// context of the read is done.
type blockingAdapter struct {
	dialect.Adapter
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAdapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.Adapter.Get(ctx, table, key, fields)
}

// A caller that gives up does not fail the callers sharing its read.
func TestAdapter_SharedReadSurvivesCancel(t *testing.T) {
	t.Parallel()
	lru, err := NewLRU(16)
	require.NoError(t, err)
	mem := memory.New()
	require.NoError(t, mem.Insert(context.Background(), "orders", map[string]any{"id": int64(1), "total": 9.5}, []string{"id"}))
	next := &blockingAdapter{Adapter: mem, started: make(chan struct{}), release: make(chan struct{})}
	a := New(next, lru)

	type result struct {
		row map[string]any
		err error
	}
	get := func(ctx context.Context) <-chan result {
		ch := make(chan result, 1)
		go func() {
			row, err := a.Get(ctx, "orders", map[string]any{"id": int64(1)}, []string{"total"})
			ch <- result{row, err}
		}()
		return ch
	}

	first, cancel := context.WithCancel(context.Background())
	defer cancel()
	res1 := get(first)
	<-next.started
	res2 := get(context.Background())
	require.Eventually(t, func() bool {
		_, misses := a.Stats()
		return misses == 2
	}, 5*time.Second, time.Millisecond)

	cancel()
	r1 := <-res1
	assert.ErrorIs(t, r1.err, context.Canceled)

	close(next.release)
	r2 := <-res2
	require.NoError(t, r2.err)
	assert.Equal(t, map[string]any{"total": 9.5}, r2.row)
}

func TestAdapter_NotFoundNotCached(t *testing.T) {
	t.Parallel()
	a, next, _ := newCached(t)
	ctx := context.Background()
	for range 2 {
		_, err := a.Get(ctx, "orders", map[string]any{"id": int64(7)}, []string{"total"})
		require.True(t, relmap.IsNotFound(err))
	}
	assert.EqualValues(t, 2, next.gets.Load())

	require.NoError(t, a.Insert(ctx, "orders", map[string]any{"id": int64(7), "total": 1.0}, []string{"id"}))
	row, err := a.Get(ctx, "orders", map[string]any{"id": int64(7)}, []string{"total"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, row["total"])
}

func TestAdapter_InsertInvalidates(t *testing.T) {
	t.Parallel()
	a, _, lru := newCached(t)
	ctx := context.Background()
	require.NoError(t, a.Insert(ctx, "orders", map[string]any{"id": int64(1)}, []string{"id"}))
	require.NoError(t, a.Insert(ctx, "items", map[string]any{"id": int64(1)}, []string{"id"}))
	_, err := a.Get(ctx, "orders", map[string]any{"id": int64(1)}, []string{"id"})
	require.NoError(t, err)
	_, err = a.Get(ctx, "items", map[string]any{"id": int64(1)}, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, 2, lru.Len())

	require.NoError(t, a.Insert(ctx, "orders", map[string]any{"id": int64(2)}, []string{"id"}))
	assert.Equal(t, 1, lru.Len())

	err = a.Insert(ctx, "orders", map[string]any{"id": int64(2)}, []string{"id"})
	require.True(t, relmap.IsDuplicateKey(err))
	assert.False(t, a.ReferentialIntegrity())
}

type brokenCache struct{ relmap.Cache }

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}

func TestAdapter_CacheFailure(t *testing.T) {
	t.Parallel()
	next := memory.New()
	a := New(next, brokenCache{})
	ctx := context.Background()
	require.NoError(t, next.Insert(ctx, "orders", map[string]any{"id": int64(1), "total": 2.0}, []string{"id"}))
	row, err := a.Get(ctx, "orders", map[string]any{"id": int64(1)}, []string{"total"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, row["total"])
}
