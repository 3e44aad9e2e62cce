// Package propset describes which properties of an entity, and of the
// entities it links to, a fetch retrieves.
//
// A PropSet is one of:
//
//   - Default(): every stored property of the class, links unexpanded.
//   - All(): the wildcard. At the top level it selects the default set; as
//     the nested spec of a link it expands the link with the target's
//     default set.
//   - Names(...): exactly the named properties.
//   - Obj(...): named properties with optional nested specs for links,
//     merged over an optional base set.
//
// From converts JSON-like values into a PropSet and Parse reads the textual
// form "order{id,customer},product{*},price".
package propset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/relmap"
)

// BaseKey is the reserved object key holding the base set in From.
const BaseKey = "$base"

// PropSet is a retrieval specification.
type PropSet interface {
	fmt.Stringer
	propSet()
}

type (
	defaultSet struct{}
	allSet     struct{}

	// NameSet selects exactly the listed properties.
	NameSet []string

	// Object selects the properties of its entries, each with an optional
	// nested spec, over a base set. Entries win over base duplicates.
	Object struct {
		Base    PropSet
		Entries []Entry
	}

	// Entry is one property of an Object. A nil Nested includes the
	// property without expanding it.
	Entry struct {
		Name   string
		Nested PropSet
	}
)

func (defaultSet) propSet() {}
func (allSet) propSet()     {}
func (NameSet) propSet()    {}
func (*Object) propSet()    {}

// Default returns the default set.
func Default() PropSet { return defaultSet{} }

// All returns the wildcard set.
func All() PropSet { return allSet{} }

// Names returns a set of the given property names.
func Names(names ...string) PropSet { return NameSet(names) }

// Split returns a set of the names in s separated by sep. Blank names are
// dropped; an empty list yields the default set.
func Split(s, sep string) PropSet {
	var names []string
	for _, n := range strings.Split(s, sep) {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return Default()
	}
	return NameSet(names)
}

// Obj returns an object set of the given entries.
func Obj(entries ...Entry) *Object {
	return &Object{Entries: entries}
}

// Include returns an entry including the property without a nested spec.
func Include(name string) Entry { return Entry{Name: name} }

// Nest returns an entry including the link property and expanding it with
// the nested spec. A nil or empty spec expands with the target's default set.
func Nest(name string, nested PropSet) Entry {
	if nested == nil {
		nested = Default()
	}
	return Entry{Name: name, Nested: nested}
}

// WithBase sets the base set of the object.
func (o *Object) WithBase(base PropSet) *Object {
	o.Base = base
	return o
}

// IsDefault reports if ps selects the default set without expansion.
func IsDefault(ps PropSet) bool {
	switch ps.(type) {
	case nil, defaultSet:
		return true
	default:
		return false
	}
}

// isEmpty reports if ps is an object or name list selecting nothing. Such
// sets stand for the default set.
func isEmpty(ps PropSet) bool {
	switch ps := ps.(type) {
	case NameSet:
		return len(ps) == 0
	case *Object:
		return ps != nil && len(ps.Entries) == 0 && IsDefault(ps.Base)
	default:
		return false
	}
}

// IsAll reports if ps is the wildcard.
func IsAll(ps PropSet) bool {
	_, ok := ps.(allSet)
	return ok
}

func (defaultSet) String() string { return "" }
func (allSet) String() string     { return "*" }
func (s NameSet) String() string  { return strings.Join(s, ",") }

// String returns the textual form accepted by Parse.
func (o *Object) String() string {
	var parts []string
	if o.Base != nil && !IsDefault(o.Base) {
		parts = append(parts, o.Base.String())
	}
	for _, e := range o.Entries {
		switch {
		case e.Nested == nil:
			parts = append(parts, e.Name)
		case IsDefault(e.Nested), isEmpty(e.Nested):
			parts = append(parts, e.Name+"{}")
		default:
			parts = append(parts, e.Name+"{"+e.Nested.String()+"}")
		}
	}
	return strings.Join(parts, ",")
}

// From converts a JSON-like value into a PropSet:
//
//	nil                      default set
//	"*"                      wildcard
//	"a,b" / []string / []any names (a string with braces is parsed with Parse)
//	map[string]any           object; BaseKey holds the base, values nil or
//	                         true include, false exclude, anything else is
//	                         the nested spec
func From(v any) (PropSet, error) {
	switch v := v.(type) {
	case nil:
		return Default(), nil
	case PropSet:
		return v, nil
	case string:
		switch s := strings.TrimSpace(v); {
		case s == "*":
			return All(), nil
		case strings.ContainsAny(s, "{}"):
			return Parse(s)
		default:
			return Split(s, ","), nil
		}
	case []string:
		return NameSet(slices.Clone(v)), nil
	case []any:
		return fromList(v)
	case relmap.Entity:
		return fromMap(v)
	case map[string]any:
		return fromMap(v)
	case bool:
		if v {
			return All(), nil
		}
		return nil, invalid("false is not a property set")
	default:
		return nil, invalid(fmt.Sprintf("unexpected property set type %T", v))
	}
}

func fromList(list []any) (PropSet, error) {
	var (
		names []string
		obj   *Object
	)
	for _, item := range list {
		switch item := item.(type) {
		case string:
			if item == "*" {
				return nil, invalid("wildcard inside a name list")
			}
			names = append(names, item)
		case map[string]any, relmap.Entity:
			ps, err := From(item)
			if err != nil {
				return nil, err
			}
			o := ps.(*Object)
			if obj == nil {
				obj = &Object{}
			}
			obj.Entries = append(obj.Entries, o.Entries...)
		default:
			return nil, invalid(fmt.Sprintf("unexpected list item type %T", item))
		}
	}
	if obj == nil {
		return NameSet(names), nil
	}
	if len(names) > 0 {
		obj.Base = NameSet(names)
	}
	return obj, nil
}

func fromMap(m map[string]any) (PropSet, error) {
	o := &Object{}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := m[k]
		if k == BaseKey {
			base, err := From(v)
			if err != nil {
				return nil, err
			}
			if _, ok := base.(*Object); ok {
				return nil, invalid(BaseKey + " must be a name list or a wildcard")
			}
			o.Base = base
			continue
		}
		switch v := v.(type) {
		case nil:
			o.Entries = append(o.Entries, Include(k))
		case bool:
			if v {
				o.Entries = append(o.Entries, Include(k))
			}
		default:
			nested, err := From(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			o.Entries = append(o.Entries, Nest(k, nested))
		}
	}
	return o, nil
}

func invalid(msg string) error {
	return relmap.NewRequestError("", "", fmt.Errorf("%w: %s", relmap.ErrInvalidRequest, msg))
}
