package propset

import (
	"fmt"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/compiler/rel"
)

// Request is one property to fetch. Expand is set for links whose target
// is fetched with the Nested spec. An entry with any nested set expands its
// link; an empty one fetches the target's default set.
type Request struct {
	Name   string
	Nested PropSet
	Expand bool
}

// Resolve normalizes ps into the ordered list of properties to fetch for
// the class. The default set holds every stored property in declaration
// order; multilinks are never part of it, and requesting one explicitly
// fails with relmap.ErrMultilinkUnsupported.
func Resolve(cls *rel.Class, ps PropSet) ([]Request, error) {
	if isEmpty(ps) {
		return defaults(cls), nil
	}
	switch ps := ps.(type) {
	case nil, defaultSet, allSet:
		return defaults(cls), nil
	case NameSet:
		reqs := make([]Request, 0, len(ps))
		for _, name := range ps {
			if err := check(cls, name); err != nil {
				return nil, err
			}
			if index(reqs, name) < 0 {
				reqs = append(reqs, Request{Name: name})
			}
		}
		return reqs, nil
	case *Object:
		var reqs []Request
		if ps.Base != nil {
			if _, ok := ps.Base.(*Object); ok {
				return nil, relmap.NewRequestError(cls.Name, "", fmt.Errorf("%w: object base set", relmap.ErrInvalidRequest))
			}
			base, err := Resolve(cls, ps.Base)
			if err != nil {
				return nil, err
			}
			reqs = base
		}
		for _, e := range ps.Entries {
			r, err := entry(cls, e)
			if err != nil {
				return nil, err
			}
			if i := index(reqs, r.Name); i >= 0 {
				reqs[i] = r
				continue
			}
			reqs = append(reqs, r)
		}
		return reqs, nil
	default:
		return nil, relmap.NewRequestError(cls.Name, "", fmt.Errorf("%w: unexpected property set %T", relmap.ErrInvalidRequest, ps))
	}
}

// DefaultNames returns the names of the default set of the class.
func DefaultNames(cls *rel.Class) []string {
	return RequestNames(defaults(cls))
}

// RequestNames returns the property names of the requests.
func RequestNames(reqs []Request) []string {
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}

func defaults(cls *rel.Class) []Request {
	var reqs []Request
	for _, p := range cls.Props() {
		if p.Stored() {
			reqs = append(reqs, Request{Name: p.Name()})
		}
	}
	return reqs
}

func entry(cls *rel.Class, e Entry) (Request, error) {
	if err := check(cls, e.Name); err != nil {
		return Request{}, err
	}
	if e.Nested == nil {
		return Request{Name: e.Name}, nil
	}
	p := cls.Prop(e.Name)
	if p.Kind != rel.KindLink {
		return Request{}, relmap.NewRequestError(cls.Name, e.Name, fmt.Errorf("%w: nested property set on a %s property", relmap.ErrInvalidRequest, p.Kind))
	}
	if IsDefault(e.Nested) || IsAll(e.Nested) || isEmpty(e.Nested) {
		return Request{Name: e.Name, Nested: Default(), Expand: true}, nil
	}
	return Request{Name: e.Name, Nested: e.Nested, Expand: true}, nil
}

func check(cls *rel.Class, name string) error {
	p := cls.Prop(name)
	switch {
	case p == nil:
		return relmap.NewRequestError(cls.Name, name, relmap.ErrPropNotFound)
	case p.Kind == rel.KindMultilink:
		return relmap.NewRequestError(cls.Name, name, relmap.ErrMultilinkUnsupported)
	}
	return nil
}

func index(reqs []Request, name string) int {
	for i, r := range reqs {
		if r.Name == name {
			return i
		}
	}
	return -1
}
