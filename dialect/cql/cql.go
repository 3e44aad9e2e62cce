// Package cql provides a storage adapter for Cassandra and ScyllaDB.
//
// Tables must exist with the key fields as primary key. Reads select one
// row by its full key; inserts are lightweight transactions
// (INSERT ... IF NOT EXISTS) so an existing key is reported as a
// duplicate instead of being overwritten.
package cql

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

// executor runs single statements. It is implemented on a gocql session.
type executor interface {
	MapScan(ctx context.Context, stmt string, args []any, dest map[string]any) error
	MapScanCAS(ctx context.Context, stmt string, args []any, dest map[string]any) (bool, error)
	Close()
}

// Adapter is a dialect.Adapter on a gocql session.
type Adapter struct {
	exec executor
	log  *zap.Logger
}

// Option configures an Adapter.
type Option func(*options)

type options struct {
	log         *zap.Logger
	consistency gocql.Consistency
	timeout     time.Duration
}

// WithLogger sets the adapter logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithConsistency sets the consistency level of every statement.
func WithConsistency(c gocql.Consistency) Option {
	return func(o *options) {
		o.consistency = c
	}
}

// WithTimeout sets the cluster connect and query timeout used by Open.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func buildOptions(opts []Option) *options {
	o := &options{log: zap.NewNop(), consistency: gocql.Quorum, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open connects to the cluster and returns an adapter on keyspace.
func Open(hosts []string, keyspace string, opts ...Option) (*Adapter, error) {
	o := buildOptions(opts)
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = o.consistency
	cluster.Timeout = o.timeout
	cluster.ConnectTimeout = o.timeout
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cql: connect to %v: %w", hosts, err)
	}
	return newAdapter(&session{s: s, consistency: o.consistency}, o), nil
}

// New returns an adapter on an open session.
func New(s *gocql.Session, opts ...Option) *Adapter {
	o := buildOptions(opts)
	return newAdapter(&session{s: s, consistency: o.consistency}, o)
}

func newAdapter(exec executor, o *options) *Adapter {
	return &Adapter{exec: exec, log: o.log.Named("cql")}
}

// Close closes the session.
func (a *Adapter) Close() { a.exec.Close() }

// Get implements dialect.Adapter. An empty field list checks the row exists.
func (a *Adapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("cql: select from %s: %w: empty key", table, relmap.ErrInvalidRequest)
	}
	names := slices.Sorted(maps.Keys(key))
	args := make([]any, len(names))
	for i, name := range names {
		if key[name] == nil {
			return nil, fmt.Errorf("cql: select from %s: %w: nil value for key field %q", table, relmap.ErrInvalidRequest, name)
		}
		args[i] = key[name]
	}
	query, err := newStmt(table, fields, names).selectOne()
	if err != nil {
		return nil, err
	}
	a.log.Debug("query", zap.String("table", table), zap.String("cql", query))
	row := make(map[string]any, len(fields))
	if err := a.exec.MapScan(ctx, query, args, row); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, fmt.Errorf("cql: %s: %w", table, relmap.ErrNotFound)
		}
		return nil, fmt.Errorf("cql: select from %s: %w", table, err)
	}
	if len(fields) == 0 {
		// COUNT(*) on a full key: zero means no row.
		if n, ok := row["count"].(int64); ok && n == 0 {
			return nil, fmt.Errorf("cql: %s: %w", table, relmap.ErrNotFound)
		}
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = scanned(row[f])
	}
	return out, nil
}

// Insert implements dialect.Adapter.
func (a *Adapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	for _, f := range keyFields {
		if values[f] == nil {
			return fmt.Errorf("cql: insert into %s: %w: missing value for key field %q", table, relmap.ErrInvalidRequest, f)
		}
	}
	columns := slices.Sorted(maps.Keys(values))
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = values[c]
	}
	s := newStmt(table, columns, nil)
	s.IfNotExists = true
	query, err := s.insert()
	if err != nil {
		return err
	}
	a.log.Debug("exec", zap.String("table", table), zap.String("cql", query))
	applied, err := a.exec.MapScanCAS(ctx, query, args, map[string]any{})
	if err != nil {
		return fmt.Errorf("cql: insert into %s: %w", table, err)
	}
	if !applied {
		return relmap.NewDuplicateKeyError(table, nil)
	}
	return nil
}

// ReferentialIntegrity implements dialect.Adapter.
func (*Adapter) ReferentialIntegrity() bool { return false }

// scanned converts driver specific values to their storage form.
func scanned(v any) any {
	switch v := v.(type) {
	case gocql.UUID:
		return v.String()
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

// session runs statements on a gocql session.
type session struct {
	s           *gocql.Session
	consistency gocql.Consistency
}

func (s *session) MapScan(ctx context.Context, stmt string, args []any, dest map[string]any) error {
	return s.s.Query(stmt, args...).WithContext(ctx).Consistency(s.consistency).MapScan(dest)
}

func (s *session) MapScanCAS(ctx context.Context, stmt string, args []any, dest map[string]any) (bool, error) {
	q := s.s.Query(stmt, args...).WithContext(ctx).Consistency(s.consistency)
	q.SerialConsistency(gocql.LocalSerial)
	return q.MapScanCAS(dest)
}

func (s *session) Close() { s.s.Close() }

var _ dialect.Adapter = (*Adapter)(nil)
