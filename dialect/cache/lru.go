package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/relmap"
)

type entry struct {
	data    []byte
	expires time.Time // zero for no expiry
}

// LRU is a size bounded in-memory relmap.Cache.
type LRU struct {
	lru *lru.Cache[string, entry]
	now func() time.Time
}

// NewLRU returns an LRU cache holding at most size values.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &LRU{lru: c, now: time.Now}, nil
}

// Get implements relmap.Cache.
func (c *LRU) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return nil, nil
	}
	return e.data, nil
}

// Set implements relmap.Cache.
func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{data: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Delete implements relmap.Cache.
func (c *LRU) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// DeletePrefix implements relmap.Cache.
func (c *LRU) DeletePrefix(_ context.Context, prefix string) error {
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Clear implements relmap.Cache.
func (c *LRU) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}

// Len returns the number of cached values, expired ones included.
func (c *LRU) Len() int { return c.lru.Len() }

var _ relmap.Cache = (*LRU)(nil)
