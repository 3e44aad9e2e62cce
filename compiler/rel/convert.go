package rel

import (
	"fmt"
	"slices"

	"github.com/syssam/relmap"
)

// PropsToFields flattens entity values into field values. Link values are
// walked along each link field chain to their scalar leaves; multilink
// values are skipped. Values are normalized with ToStorage.
func (c *Class) PropsToFields(e relmap.Entity) (map[string]any, error) {
	fields := make(map[string]any, len(e))
	for _, name := range e.Names() {
		p := c.props[name]
		if p == nil {
			return nil, relmap.NewRequestError(c.Name, name, relmap.ErrPropNotFound)
		}
		v := e[name]
		switch p.Kind {
		case KindScalar:
			sv, err := ToStorage(p.Def, v)
			if err != nil {
				return nil, relmap.NewRequestError(c.Name, name, err)
			}
			fields[p.Field.Name] = sv
		case KindLink:
			if v == nil {
				for _, l := range p.Links {
					fields[l.Name] = nil
				}
				continue
			}
			for _, l := range p.Links {
				leaf, err := walk(v, l.Chain[1:])
				if err != nil {
					return nil, relmap.NewRequestError(c.Name, name, err)
				}
				sv, err := ToStorage(l.Leaf, leaf)
				if err != nil {
					return nil, relmap.NewRequestError(c.Name, name, err)
				}
				fields[l.Name] = sv
			}
		}
	}
	return fields, nil
}

// FieldsToProps rebuilds the named properties from field values. Link
// values are rebuilt as nested key entities; a link whose fields are all
// nil is nil. Properties whose fields are absent are left out, and
// multilinks are skipped. Values are normalized with FromStorage.
func (c *Class) FieldsToProps(names []string, fields map[string]any) (relmap.Entity, error) {
	e := make(relmap.Entity, len(names))
	for _, name := range names {
		p := c.props[name]
		if p == nil {
			return nil, relmap.NewRequestError(c.Name, name, relmap.ErrPropNotFound)
		}
		switch p.Kind {
		case KindScalar:
			v, ok := fields[p.Field.Name]
			if !ok {
				continue
			}
			pv, err := FromStorage(p.Def, v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: field %q: %w", c.Name, name, p.Field.Name, err)
			}
			e[name] = pv
		case KindLink:
			var (
				key      = relmap.Entity{}
				present  bool
				nonempty bool
			)
			for _, l := range p.Links {
				v, ok := fields[l.Name]
				if !ok {
					continue
				}
				present = true
				if v == nil {
					continue
				}
				nonempty = true
				pv, err := FromStorage(l.Leaf, v)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: field %q: %w", c.Name, name, l.Name, err)
				}
				place(key, l.Chain[1:], pv)
			}
			switch {
			case !present:
			case !nonempty:
				e[name] = nil
			default:
				e[name] = key
			}
		}
	}
	return e, nil
}

// FieldNames expands property names into the physical field names needed
// to fetch them, without duplicates. Multilinks expand to nothing.
func (c *Class) FieldNames(names []string) ([]string, error) {
	fields := make([]string, 0, len(names))
	for _, name := range names {
		p := c.props[name]
		if p == nil {
			return nil, relmap.NewRequestError(c.Name, name, relmap.ErrPropNotFound)
		}
		for _, f := range p.FieldNames() {
			if !slices.Contains(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	return fields, nil
}

// KeyToFields flattens a key entity into key field values. The key must
// hold every key property with a non-nil value and nothing else.
func (c *Class) KeyToFields(key relmap.Entity) (map[string]any, error) {
	if !c.HasKey() {
		return nil, relmap.NewRequestError(c.Name, "", fmt.Errorf("%w: class has no primary key", relmap.ErrInvalidRequest))
	}
	for _, name := range key.Names() {
		if c.props[name] == nil {
			return nil, relmap.NewRequestError(c.Name, name, relmap.ErrPropNotFound)
		}
		if !c.Def.IsKey(name) {
			return nil, relmap.NewRequestError(c.Name, name, fmt.Errorf("%w: not a key property", relmap.ErrInvalidRequest))
		}
	}
	for _, name := range c.Key {
		if _, ok := key[name]; !ok {
			return nil, relmap.NewRequestError(c.Name, name, fmt.Errorf("%w: missing key property", relmap.ErrInvalidKeyPath))
		}
	}
	fields, err := c.PropsToFields(key)
	if err != nil {
		return nil, err
	}
	for _, f := range c.keyFields {
		if fields[f] == nil {
			return nil, relmap.NewRequestError(c.Name, "", fmt.Errorf("%w: nil value for key field %q", relmap.ErrInvalidKeyPath, f))
		}
	}
	return fields, nil
}

// KeyOf extracts the key entity of the class from a full entity.
func (c *Class) KeyOf(e relmap.Entity) relmap.Entity {
	key := make(relmap.Entity, len(c.Key))
	for _, name := range c.Key {
		if v, ok := e[name]; ok {
			key[name] = v
		}
	}
	return key
}

// walk follows the chain into v and returns the leaf value.
func walk(v any, chain []string) (any, error) {
	cur := v
	for i, name := range chain {
		m, ok := relmap.AsEntity(cur)
		if !ok {
			return nil, fmt.Errorf("%w: expect an entity at %q, got %T", relmap.ErrInvalidKeyPath, name, cur)
		}
		if cur, ok = m[name]; !ok {
			return nil, fmt.Errorf("%w: missing %q at depth %d", relmap.ErrInvalidKeyPath, name, i+1)
		}
	}
	if _, ok := relmap.AsEntity(cur); ok {
		return nil, fmt.Errorf("%w: expect a scalar leaf, got %T", relmap.ErrInvalidKeyPath, cur)
	}
	return cur, nil
}

// place sets v at the end of the chain, creating nested entities as needed.
func place(e relmap.Entity, chain []string, v any) {
	for _, name := range chain[:len(chain)-1] {
		next, ok := e[name].(relmap.Entity)
		if !ok {
			next = relmap.Entity{}
			e[name] = next
		}
		e = next
	}
	e[chain[len(chain)-1]] = v
}
