// Package bolt provides a storage adapter backed by a bbolt file.
//
// Every table is a bucket. A row is stored under the BSON encoding of its
// key fields, sorted by name, and holds the BSON document of all its fields.
package bolt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

const fileMode = 0o600

// Adapter stores rows in a bbolt database.
type Adapter struct {
	db      *bolt.DB
	log     *zap.Logger
	timeout time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithTimeout sets how long Open waits for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = d
	}
}

// Open opens or creates the database file at path.
func Open(path string, opts ...Option) (*Adapter, error) {
	a := newAdapter(opts)
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: a.timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	a.db = db
	a.log.Debug("opened", zap.String("path", path))
	return a, nil
}

// New returns an adapter on an open database. Closing the adapter closes db.
func New(db *bolt.DB, opts ...Option) *Adapter {
	a := newAdapter(opts)
	a.db = db
	return a
}

func newAdapter(opts []Option) *Adapter {
	a := &Adapter{log: zap.NewNop(), timeout: time.Second}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("bolt")
	return a
}

// DB returns the underlying database.
func (a *Adapter) DB() *bolt.DB { return a.db }

// Close closes the database.
func (a *Adapter) Close() error { return a.db.Close() }

// Get implements dialect.Adapter. Fields the row never received are
// returned as nil. Time values come back as BSON date times, truncated to
// milliseconds.
func (a *Adapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := encodeKey(key, slices.Sorted(maps.Keys(key)))
	if err != nil {
		return nil, fmt.Errorf("bolt: get from %s: %w", table, err)
	}
	var row bson.M
	err = a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return relmap.ErrNotFound
		}
		v := b.Get(k)
		if v == nil {
			return relmap.ErrNotFound
		}
		return bson.Unmarshal(v, &row)
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: get from %s: %w", table, err)
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
		return fmt.Errorf("bolt: insert into %s: no key fields", table)
	}
	k, err := encodeKey(values, slices.Sorted(slices.Values(keyFields)))
	if err != nil {
		return fmt.Errorf("bolt: insert into %s: %w", table, err)
	}
	doc, err := bson.Marshal(values)
	if err != nil {
		return fmt.Errorf("bolt: encode row of %s: %w", table, err)
	}
	err = a.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		if b.Get(k) != nil {
			return relmap.NewDuplicateKeyError(table, nil)
		}
		return b.Put(k, doc)
	})
	if err != nil {
		if relmap.IsDuplicateKey(err) {
			return err
		}
		return fmt.Errorf("bolt: insert into %s: %w", table, err)
	}
	a.log.Debug("insert", zap.String("table", table), zap.Int("size", len(doc)))
	return nil
}

// ReferentialIntegrity implements dialect.Adapter.
func (*Adapter) ReferentialIntegrity() bool { return false }

// encodeKey encodes the named values of m in the given order as a BSON document.
func encodeKey(m map[string]any, names []string) ([]byte, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty key", relmap.ErrInvalidRequest)
	}
	d := make(bson.D, 0, len(names))
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: missing value for key field %q", relmap.ErrInvalidRequest, name)
		}
		d = append(d, bson.E{Key: name, Value: v})
	}
	return bson.Marshal(d)
}

var _ dialect.Adapter = (*Adapter)(nil)
