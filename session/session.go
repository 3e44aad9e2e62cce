package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/contrib/dataloader"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/privacy"
	"github.com/syssam/relmap/propset"
)

// Session runs get and insert operations of a compiled schema against an
// adapter. It is safe for concurrent use.
type Session struct {
	schema      *rel.Schema
	adapter     dialect.Adapter
	log         *zap.Logger
	parallelism int
	policy      privacy.Policy
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Adapter calls are logged at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log.Named("session")
		}
	}
}

// WithParallelism sets how many sibling links of one entity are fetched at
// once, and how many keys GetMany fetches at once. The default is 1.
func WithParallelism(n int) Option {
	return func(s *Session) {
		s.parallelism = max(n, 1)
	}
}

// WithPolicy sets the privacy policy evaluated before every entity read
// and insert.
func WithPolicy(p privacy.Policy) Option {
	return func(s *Session) {
		s.policy = p
	}
}

// New returns a session of the schema backed by the adapter.
func New(s *rel.Schema, a dialect.Adapter, opts ...Option) *Session {
	sess := &Session{
		schema:      s,
		adapter:     a,
		log:         zap.NewNop(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Schema returns the compiled schema of the session.
func (s *Session) Schema() *rel.Schema { return s.schema }

// Adapter returns the storage adapter of the session.
func (s *Session) Adapter() dialect.Adapter { return s.adapter }

// Get fetches the entity of class with the given key. ps selects the
// properties to return and the links to expand; nil means the default set.
// Request errors are reported before any storage call.
func (s *Session) Get(ctx context.Context, class string, key relmap.Entity, ps propset.PropSet) (relmap.Entity, error) {
	p, err := s.plan(class, ps)
	if err != nil {
		return nil, err
	}
	fk, keyFields, err := p.fetchKey(key)
	if err != nil {
		return nil, err
	}
	c := s.newCall()
	c.register(fk, key, keyFields)
	e, err := c.loader.Load(ctx, fk)
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// GetMany fetches the entities of class with the given keys, and returns
// one result per key in key order. Entities shared between the trees are
// read once. A request error in ps is reported in every result.
func (s *Session) GetMany(ctx context.Context, class string, keys []relmap.Entity, ps propset.PropSet) []dataloader.Result[relmap.Entity] {
	results := make([]dataloader.Result[relmap.Entity], len(keys))
	p, err := s.plan(class, ps)
	if err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results
	}
	var (
		c     = s.newCall()
		fks   []fetchKey
		index []int
	)
	for i, key := range keys {
		fk, keyFields, err := p.fetchKey(key)
		if err != nil {
			results[i].Err = err
			continue
		}
		c.register(fk, key, keyFields)
		fks = append(fks, fk)
		index = append(index, i)
	}
	for j, r := range c.loader.LoadMany(ctx, fks, s.parallelism) {
		if r.Err == nil {
			r.Value = r.Value.Clone()
		}
		results[index[j]] = r
	}
	return results
}

// Insert stores one entity of class. Link values hold the key of their
// target, or the target entity itself; only the key is stored. The adapter
// reports duplicate keys.
func (s *Session) Insert(ctx context.Context, class string, values relmap.Entity) error {
	cls := s.schema.Class(class)
	if cls == nil {
		return relmap.NewRequestError(class, "", relmap.ErrUnknownClass)
	}
	if !cls.HasKey() {
		return relmap.NewRequestError(class, "", fmt.Errorf("%w: class has no primary key", relmap.ErrInvalidRequest))
	}
	fields, err := cls.PropsToFields(values)
	if err != nil {
		return err
	}
	keyFields, err := cls.FieldNames(cls.Key)
	if err != nil {
		return err
	}
	for _, f := range keyFields {
		if fields[f] == nil {
			return relmap.NewRequestError(class, "", fmt.Errorf("%w: missing value for key field %q", relmap.ErrInvalidKeyPath, f))
		}
	}
	if err := s.policy.EvalMutation(ctx, &privacy.Mutation{Class: class, Values: values}); err != nil {
		return relmap.NewPrivacyError(class, "insert", err.Error())
	}
	s.log.Debug("insert",
		zap.String("class", class),
		zap.String("table", cls.Table),
		zap.Strings("keys", keyFields),
	)
	if err := s.adapter.Insert(ctx, cls.Table, fields, keyFields); err != nil {
		return relmap.NewMutationError(class, "insert", err)
	}
	return nil
}

// isNotFound reports if err is a not-found outcome rather than a failure.
func isNotFound(err error) bool {
	var nf *relmap.NotFoundError
	return errors.As(err, &nf)
}
