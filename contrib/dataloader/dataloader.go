// Package dataloader provides memoized, deduplicated loading of values by key.
//
// A Loader wraps a load function. Loading the same key twice, even from
// concurrent goroutines, calls the function once and shares the result.
// Sessions use one Loader per call so that an entity reachable through
// several links is read from storage only once.
//
// # Basic Usage
//
//	loader := dataloader.New(func(ctx context.Context, sku string) (relmap.Entity, error) {
//	    return sess.Get(ctx, "Product", relmap.Entity{"sku": sku}, nil)
//	})
//	p, err := loader.Load(ctx, "P-1")
//
// # Many Keys
//
// LoadMany returns one Result per key, in key order:
//
//	for i, r := range loader.LoadMany(ctx, skus, 4) {
//	    if r.Err != nil {
//	        log.Printf("%s: %v", skus[i], r.Err)
//	    }
//	}
package dataloader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LoadFunc loads the value of one key.
type LoadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Result is the outcome of loading one key.
type Result[V any] struct {
	Value V
	Err   error
}

// NewResult creates a new Result.
func NewResult[V any](value V, err error) Result[V] {
	return Result[V]{Value: value, Err: err}
}

// Results converts separate value and error slices into a Result slice.
func Results[V any](values []V, errs []error) []Result[V] {
	results := make([]Result[V], len(values))
	for i := range values {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		results[i] = Result[V]{Value: values[i], Err: err}
	}
	return results
}

// call is one load in flight or done.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Loader memoizes the results of a LoadFunc. It is safe for concurrent use.
// Errors are memoized like values.
type Loader[K comparable, V any] struct {
	fn    LoadFunc[K, V]
	mu    sync.Mutex
	calls map[K]*call[V]
}

// New returns a Loader calling fn.
func New[K comparable, V any](fn LoadFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{fn: fn, calls: make(map[K]*call[V])}
}

// Load returns the value of key, calling the load function at most once
// per key. A caller waiting on another caller's load returns early if its
// context is done.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	if c, ok := l.calls[key]; ok {
		l.mu.Unlock()
		select {
		case <-c.done:
			return c.value, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	c := &call[V]{done: make(chan struct{})}
	l.calls[key] = c
	l.mu.Unlock()

	c.value, c.err = l.fn(ctx, key)
	close(c.done)
	return c.value, c.err
}

// LoadMany loads keys with at most parallelism loads running at once, and
// returns their results in key order. A parallelism below 1 means 1.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K, parallelism int) []Result[V] {
	results := make([]Result[V], len(keys))
	var g errgroup.Group
	g.SetLimit(max(parallelism, 1))
	for i, key := range keys {
		g.Go(func() error {
			v, err := l.Load(ctx, key)
			results[i] = Result[V]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Prime stores a known value for key, unless key was already loaded.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.calls[key]; ok {
		return
	}
	c := &call[V]{done: make(chan struct{}), value: value}
	close(c.done)
	l.calls[key] = c
}

// Clear forgets the result of key.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.calls, key)
}

// Len returns the number of memoized keys.
func (l *Loader[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}
