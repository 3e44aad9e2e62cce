package session

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/propset"
)

type (
	// plan is a resolved property set of one class: the properties to
	// return, the fields to read and the links to expand.
	plan struct {
		cls    *rel.Class
		names  []string
		fields []string
		links  []*link
	}

	// link is an expanded link property and the plan of its target.
	link struct {
		prop   string
		target *plan
	}

	// planner shares identical plans between the branches of one request.
	planner struct {
		schema *rel.Schema
		plans  map[string]*plan
	}
)

// plan resolves ps against class and its expanded link targets. Every
// request error of the tree is found here, before any storage call.
func (s *Session) plan(class string, ps propset.PropSet) (*plan, error) {
	pl := &planner{schema: s.schema, plans: make(map[string]*plan)}
	return pl.build(class, ps)
}

func (pl *planner) build(class string, ps propset.PropSet) (*plan, error) {
	cls := pl.schema.Class(class)
	if cls == nil {
		return nil, relmap.NewRequestError(class, "", relmap.ErrUnknownClass)
	}
	if !cls.HasKey() {
		return nil, relmap.NewRequestError(class, "", fmt.Errorf("%w: class has no primary key", relmap.ErrInvalidRequest))
	}
	reqs, err := propset.Resolve(cls, ps)
	if err != nil {
		return nil, err
	}
	names := propset.RequestNames(reqs)
	fields, err := cls.FieldNames(names)
	if err != nil {
		return nil, err
	}
	p := &plan{cls: cls, names: names, fields: fields}
	for _, r := range reqs {
		if !r.Expand {
			continue
		}
		target, err := pl.build(cls.Prop(r.Name).Target, r.Nested)
		if err != nil {
			return nil, err
		}
		p.links = append(p.links, &link{prop: r.Name, target: target})
	}
	sig := p.signature()
	if shared, ok := pl.plans[sig]; ok {
		return shared, nil
	}
	pl.plans[sig] = p
	return p, nil
}

// signature identifies plans reading the same entity shape. Child plans
// are already shared, so their addresses stand for their shape.
func (p *plan) signature() string {
	var b strings.Builder
	b.WriteString(p.cls.Name)
	b.WriteByte('|')
	b.WriteString(strings.Join(p.names, ","))
	for _, l := range p.links {
		fmt.Fprintf(&b, "|%s=%p", l.prop, l.target)
	}
	return b.String()
}

// fetchKey identifies one entity read within a call. via holds the link
// and depth of the read when a query policy needs them, so that reads of
// one entity through different links are evaluated separately.
type fetchKey struct {
	plan *plan
	key  string
	via  string
}

// fetchKey validates key and returns its memo key and key field values.
func (p *plan) fetchKey(key relmap.Entity) (fetchKey, map[string]any, error) {
	fields, err := p.cls.KeyToFields(key)
	if err != nil {
		return fetchKey{}, nil, err
	}
	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, "%s=%#v;", name, fields[name])
	}
	return fetchKey{plan: p, key: b.String()}, fields, nil
}
