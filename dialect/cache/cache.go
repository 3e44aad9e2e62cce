// Package cache provides a read-through cache in front of a storage adapter.
//
// Rows are cached per table, key and field list, encoded with msgpack.
// Concurrent misses on the same row share one storage call. Missing rows
// are never cached, and an insert drops every cached row of its table.
//
//	lru, err := cache.NewLRU(10_000)
//	if err != nil {
//	    return err
//	}
//	a := cache.New(adapter, lru, cache.WithTTL(time.Minute))
package cache

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

// Adapter caches the rows read through another adapter.
type Adapter struct {
	next  dialect.Adapter
	cache relmap.Cache
	ttl   time.Duration
	log   *zap.Logger
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTTL sets how long rows stay cached. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(a *Adapter) {
		a.ttl = ttl
	}
}

// WithLogger sets the logger used to report cache failures.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// New returns an adapter that reads through c.
func New(next dialect.Adapter, c relmap.Cache, opts ...Option) *Adapter {
	a := &Adapter{next: next, cache: c, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("cache")
	return a
}

// Get implements dialect.Adapter.
func (a *Adapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	enc, err := encodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("cache: %s: %w", table, err)
	}
	ck := relmap.CacheKey{Table: table, Key: enc, Fields: fields}.String()
	data, err := a.cache.Get(ctx, ck)
	if err != nil {
		a.log.Warn("cache get failed", zap.String("table", table), zap.Error(err))
	}
	if data != nil {
		row, err := decodeRow(data)
		if err == nil {
			a.hits.Add(1)
			return row, nil
		}
		a.log.Warn("dropping undecodable row", zap.String("table", table), zap.Error(err))
		_ = a.cache.Delete(ctx, ck)
	}
	a.misses.Add(1)
	// The shared read outlives a canceled caller; every caller stops
	// waiting on its own context.
	fctx := context.WithoutCancel(ctx)
	ch := a.group.DoChan(ck, func() (any, error) {
		row, err := a.next.Get(fctx, table, key, fields)
		if err != nil {
			return nil, err
		}
		data, err := msgpack.Marshal(row)
		if err != nil {
			a.log.Warn("encode row", zap.String("table", table), zap.Error(err))
			return row, nil
		}
		if err := a.cache.Set(fctx, ck, data, a.ttl); err != nil {
			a.log.Warn("cache set failed", zap.String("table", table), zap.Error(err))
		}
		return data, nil
	})
	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}
	// Callers sharing a flight each decode their own copy.
	if data, ok := v.([]byte); ok {
		return decodeRow(data)
	}
	return maps.Clone(v.(map[string]any)), nil
}

// Insert implements dialect.Adapter.
func (a *Adapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	if err := a.next.Insert(ctx, table, values, keyFields); err != nil {
		return err
	}
	if err := a.cache.DeletePrefix(ctx, relmap.CacheKey{Table: table}.Prefix()); err != nil {
		a.log.Warn("cache invalidation failed", zap.String("table", table), zap.Error(err))
	}
	return nil
}

// ReferentialIntegrity implements dialect.Adapter.
func (a *Adapter) ReferentialIntegrity() bool { return a.next.ReferentialIntegrity() }

// Stats returns the number of cache hits and misses.
func (a *Adapter) Stats() (hits, misses int64) {
	return a.hits.Load(), a.misses.Load()
}

// encodeKey encodes the key values sorted by field name.
func encodeKey(key map[string]any) (string, error) {
	names := slices.Sorted(maps.Keys(key))
	pairs := make([]any, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, name, key[name])
	}
	b, err := msgpack.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// decodeRow decodes a cached row. Integers decode as int64 and times as UTC.
func decodeRow(data []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	for k, v := range row {
		switch v := v.(type) {
		case uint64:
			if v <= 1<<63-1 {
				row[k] = int64(v)
			}
		case time.Time:
			row[k] = v.UTC()
		}
	}
	if row == nil {
		row = map[string]any{}
	}
	return row, nil
}

var _ dialect.Adapter = (*Adapter)(nil)
