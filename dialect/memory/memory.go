// Package memory provides an in-process storage adapter.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

// Adapter stores rows in memory. The zero value is not usable; use New.
type Adapter struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]any
}

// New returns an empty in-memory adapter.
func New() *Adapter {
	return &Adapter{tables: make(map[string]map[string]map[string]any)}
}

// Get implements dialect.Adapter. Fields the row never received are
// returned as nil.
func (a *Adapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := encodeKey(key, slices.Sorted(maps.Keys(key)))
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	row, ok := a.tables[table][k]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", table, relmap.ErrNotFound)
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = row[f]
	}
	return out, nil
}

// Insert implements dialect.Adapter.
func (a *Adapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keyFields) == 0 {
		return fmt.Errorf("memory: insert into %s: no key fields", table)
	}
	k, err := encodeKey(values, slices.Sorted(slices.Values(keyFields)))
	if err != nil {
		return fmt.Errorf("memory: insert into %s: %w", table, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, ok := a.tables[table]
	if !ok {
		rows = make(map[string]map[string]any)
		a.tables[table] = rows
	}
	if _, ok := rows[k]; ok {
		return relmap.NewDuplicateKeyError(table, nil)
	}
	rows[k] = maps.Clone(values)
	return nil
}

// ReferentialIntegrity implements dialect.Adapter.
func (*Adapter) ReferentialIntegrity() bool { return false }

// Len returns the number of rows in the table.
func (a *Adapter) Len(table string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tables[table])
}

// Reset drops every row.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.tables)
}

// encodeKey encodes the named values of m in the given order.
func encodeKey(m map[string]any, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("%w: empty key", relmap.ErrInvalidRequest)
	}
	var b strings.Builder
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: missing value for key field %q", relmap.ErrInvalidRequest, name)
		}
		fmt.Fprintf(&b, "%s=%T:%v;", name, v, v)
	}
	return b.String(), nil
}

var _ dialect.Adapter = (*Adapter)(nil)
