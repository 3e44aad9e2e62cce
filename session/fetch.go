package session

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/contrib/dataloader"
	"github.com/syssam/relmap/privacy"
)

// call holds the state of one Get or GetMany call.
type call struct {
	s      *Session
	loader *dataloader.Loader[fetchKey, relmap.Entity]

	mu   sync.Mutex
	keys map[fetchKey]target
}

// target is the key of a registered fetch.
type target struct {
	key    relmap.Entity
	fields map[string]any
	prop   string // link that led to the fetch, empty for roots
	depth  int
}

func (s *Session) newCall() *call {
	c := &call{s: s, keys: make(map[fetchKey]target)}
	c.loader = dataloader.New(c.fetch)
	return c
}

func (c *call) register(fk fetchKey, key relmap.Entity, fields map[string]any) {
	c.registerLink(fk, target{key: key, fields: fields})
}

func (c *call) registerLink(fk fetchKey, t target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[fk]; !ok {
		c.keys[fk] = t
	}
}

func (c *call) target(fk fetchKey) target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[fk]
}

// fetch reads one entity and expands its links. It returns a
// *relmap.NotFoundError if the entity has no row.
func (c *call) fetch(ctx context.Context, fk fetchKey) (relmap.Entity, error) {
	var (
		p   = fk.plan
		t   = c.target(fk)
		cls = p.cls
	)
	q := &privacy.Query{Class: cls.Name, Key: t.key, Prop: t.prop, Depth: t.depth}
	if err := c.s.policy.EvalQuery(ctx, q); err != nil {
		return nil, relmap.NewPrivacyError(cls.Name, "get", err.Error())
	}
	c.s.log.Debug("get",
		zap.String("class", cls.Name),
		zap.String("table", cls.Table),
		zap.Strings("fields", p.fields),
		zap.Int("depth", t.depth),
	)
	row, err := c.s.adapter.Get(ctx, cls.Table, t.fields, p.fields)
	switch {
	case errors.Is(err, relmap.ErrNotFound):
		return nil, relmap.NewNotFoundErrorWithKey(cls.Name, t.key)
	case err != nil:
		return nil, &relmap.QueryError{Entity: cls.Name, Op: "get", Prop: t.prop, Err: err}
	}
	e, err := cls.FieldsToProps(p.names, row)
	if err != nil {
		return nil, &relmap.QueryError{Entity: cls.Name, Op: "get", Prop: t.prop, Err: err}
	}
	if err := c.expand(ctx, e, p, t.depth); err != nil {
		return nil, err
	}
	return e, nil
}

// expand replaces the keys held by the expanded links of e with their
// target entities. A target without a row keeps its key.
func (c *call) expand(ctx context.Context, e relmap.Entity, p *plan, depth int) error {
	if len(p.links) == 0 {
		return nil
	}
	found := make([]relmap.Entity, len(p.links))
	var g errgroup.Group
	g.SetLimit(c.s.parallelism)
	for i, l := range p.links {
		key, ok := relmap.AsEntity(e[l.prop])
		if !ok {
			continue
		}
		g.Go(func() error {
			fk, fields, err := l.target.fetchKey(key)
			if err != nil {
				return &relmap.QueryError{Entity: l.target.cls.Name, Op: "get", Prop: l.prop, Err: err}
			}
			if len(c.s.policy.Query) > 0 {
				fk.via = l.prop + "@" + strconv.Itoa(depth+1)
			}
			c.registerLink(fk, target{key: key, fields: fields, prop: l.prop, depth: depth + 1})
			v, err := c.loader.Load(ctx, fk)
			switch {
			case isNotFound(err):
				c.s.log.Debug("link target not found",
					zap.String("class", p.cls.Name),
					zap.String("prop", l.prop),
					zap.String("target", l.target.cls.Name),
				)
				return nil
			case err != nil:
				return err
			}
			found[i] = v.Clone()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, l := range p.links {
		if found[i] != nil {
			e[l.prop] = found[i]
		}
	}
	return nil
}
