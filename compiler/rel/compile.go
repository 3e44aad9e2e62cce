package rel

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"
)

// Compile compiles the schema definition into a table and field layout.
// Hints may be nil. A failed compile returns a *relmap.SchemaError and no
// schema.
//
// Compilation runs in two passes. The first pass lays out tables and the
// fields of every stored non-link property; the second pass flattens every
// link into the key fields of its target, following chained keys down to
// their scalar leaves.
func Compile(def *schema.Def, hints *Hints) (*Schema, error) {
	if def == nil {
		return nil, relmap.NewSchemaError("", "", "nil schema definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := checkHints(def, hints); err != nil {
		return nil, err
	}
	s := &Schema{
		def:     def,
		classes: make(map[string]*Class, len(def.Classes)),
		order:   make([]*Class, 0, len(def.Classes)),
	}
	for _, cd := range def.Classes {
		c := &Class{
			Name:  cd.Name,
			Table: tableName(hints, cd.Name),
			Def:   cd,
			Key:   slices.Clone(cd.Key),
			props: make(map[string]*Prop, len(cd.Props)),
			order: make([]*Prop, 0, len(cd.Props)),
		}
		ch := hints.Class(cd.Name)
		for _, pd := range cd.Props {
			p := &Prop{Def: pd}
			switch {
			case pd.Type.IsMultilink():
				p.Kind, p.Target = KindMultilink, pd.Class
			case pd.Type.IsLink():
				p.Kind, p.Target = KindLink, pd.Class
			case pd.Type.IsScalar(), pd.Type.IsOpaque():
				ph := ch.Prop(pd.Name)
				p.Kind = KindScalar
				p.Field = &Field{Name: pd.Name, Type: storageType(hints, ph, pd)}
				if ph != nil && ph.Field != "" {
					p.Field.Name = ph.Field
				}
			default:
				return nil, relmap.NewSchemaError(cd.Name, pd.Name, fmt.Sprintf("unexpected data type %q", pd.Type))
			}
			c.props[pd.Name] = p
			c.order = append(c.order, p)
		}
		s.classes[c.Name] = c
		s.order = append(s.order, c)
	}
	for _, c := range s.order {
		ch := hints.Class(c.Name)
		for _, p := range c.order {
			if p.Kind == KindMultilink {
				if err := s.checkReverse(c, p); err != nil {
					return nil, err
				}
				continue
			}
			if p.Kind != KindLink {
				continue
			}
			ph := ch.Prop(p.Name())
			prefix := p.Name()
			if ph != nil && ph.Field != "" {
				prefix = ph.Field
			}
			l := &linker{schema: s, owner: c, prop: p}
			links, err := l.resolve(p.Target, []string{p.Name()}, prefix, ph, nil)
			if err != nil {
				return nil, err
			}
			p.Links = links
		}
	}
	for _, c := range s.order {
		if err := c.layout(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// checkReverse checks that the target of multilink p exists and holds
// the reverse property as a link back to owner.
func (s *Schema) checkReverse(owner *Class, p *Prop) error {
	tc := s.classes[p.Target]
	if tc == nil {
		return relmap.NewSchemaError(owner.Name, p.Name(), fmt.Sprintf("unknown class %q", p.Target))
	}
	rp := tc.props[p.Def.Reverse]
	switch {
	case rp == nil:
		return relmap.NewSchemaError(owner.Name, p.Name(), fmt.Sprintf("reverse property %q not defined on class %q", p.Def.Reverse, tc.Name))
	case rp.Kind != KindLink || rp.Target != owner.Name:
		return relmap.NewSchemaError(owner.Name, p.Name(), fmt.Sprintf("reverse property %s.%s is not a link to %q", tc.Name, rp.Name(), owner.Name))
	}
	return nil
}

// MustCompile is like Compile but panics on failure.
func MustCompile(def *schema.Def, hints *Hints) *Schema {
	s, err := Compile(def, hints)
	if err != nil {
		panic(err)
	}
	return s
}

// linker flattens the key of a link target into link fields.
type linker struct {
	schema *Schema
	owner  *Class
	prop   *Prop
}

// resolve returns the link fields for the key of the target class. The
// chain holds the property names traversed so far, prefix the field name
// prefix, and stack the classes whose keys are being resolved.
func (l *linker) resolve(target string, chain []string, prefix string, ph *PropHints, stack []string) ([]*LinkField, error) {
	tc := l.schema.classes[target]
	switch {
	case tc == nil:
		return nil, l.errorf("unknown link target class %q", target)
	case !tc.HasKey():
		return nil, l.errorf("link target class %q has no primary key", target)
	case slices.Contains(stack, target):
		return nil, l.errorf("cyclic key chain %s -> %s", strings.Join(stack, " -> "), target)
	}
	if ph != nil {
		for _, name := range sortedKeys(ph.Keys) {
			if !tc.Def.IsKey(name) {
				return nil, l.errorf("hint for %q: not a key property of %q", strings.Join(append(slices.Clone(chain), name), "."), target)
			}
		}
	}
	stack = append(stack, target)
	var links []*LinkField
	for _, name := range tc.Key {
		kp := tc.props[name]
		kh := ph.Key(name)
		kchain := append(slices.Clone(chain), name)
		kprefix := prefix + "_" + name
		if kh != nil && kh.Field != "" {
			kprefix = kh.Field
		}
		switch kp.Kind {
		case KindScalar:
			if kp.Def.Type.IsOpaque() {
				return nil, l.errorf("key chain %s passes through %s property", strings.Join(kchain, "."), kp.Def.Type)
			}
			if len(kh.keys()) > 0 {
				return nil, l.errorf("hint for %s: scalar key property has no keys", strings.Join(kchain, "."))
			}
			lf := &LinkField{
				Field: Field{Name: kprefix, Type: kp.Field.Type},
				Chain: kchain,
				Leaf:  kp.Def,
			}
			if kh != nil && kh.Type != "" {
				lf.Type = kh.Type
			}
			links = append(links, lf)
		case KindLink:
			if kh != nil && kh.Type != "" {
				return nil, l.errorf("hint for %s: link key property has no storage type", strings.Join(kchain, "."))
			}
			nested, err := l.resolve(kp.Target, kchain, kprefix, kh, stack)
			if err != nil {
				return nil, err
			}
			links = append(links, nested...)
		default:
			return nil, l.errorf("key chain %s passes through %s property", strings.Join(kchain, "."), kp.Def.Type)
		}
	}
	return links, nil
}

func (l *linker) errorf(format string, args ...any) error {
	return relmap.NewSchemaError(l.owner.Name, l.prop.Name(), fmt.Sprintf(format, args...))
}

func (h *PropHints) keys() map[string]*PropHints {
	if h == nil {
		return nil
	}
	return h.Keys
}

// layout collects the physical fields of the class and checks they are unique.
func (c *Class) layout() error {
	seen := make(map[string]string)
	for _, p := range c.order {
		var fields []*Field
		switch p.Kind {
		case KindScalar:
			fields = []*Field{p.Field}
		case KindLink:
			for _, l := range p.Links {
				fields = append(fields, &l.Field)
			}
		}
		for _, f := range fields {
			if other, ok := seen[f.Name]; ok {
				return relmap.NewSchemaError(c.Name, p.Name(), fmt.Sprintf("field %q is already used by property %q", f.Name, other))
			}
			seen[f.Name] = p.Name()
			c.fields = append(c.fields, f)
		}
	}
	for _, name := range c.Key {
		c.keyFields = append(c.keyFields, c.props[name].FieldNames()...)
	}
	return nil
}

// tableName resolves the table of a class: explicit hint, then the hints
// hook, then the class name.
func tableName(h *Hints, class string) string {
	if ch := h.Class(class); ch != nil && ch.Table != "" {
		return ch.Table
	}
	if h != nil && h.TableName != nil {
		if t := h.TableName(class); t != "" {
			return t
		}
	}
	return class
}

// checkHints reports hints on classes or properties the schema does not
// define, and field hints on properties that have no storage.
func checkHints(def *schema.Def, h *Hints) error {
	if h == nil {
		return nil
	}
	for _, class := range sortedKeys(h.Classes) {
		cd := def.Class(class)
		if cd == nil {
			return relmap.NewSchemaError(class, "", "hints for an unknown class")
		}
		ch := h.Classes[class]
		if ch == nil {
			continue
		}
		for _, prop := range sortedKeys(ch.Props) {
			pd := cd.Prop(prop)
			if pd == nil {
				return relmap.NewSchemaError(class, prop, "hints for an unknown property")
			}
			ph := ch.Props[prop]
			if ph == nil {
				continue
			}
			switch {
			case pd.Type.IsMultilink() && (ph.Field != "" || ph.Type != "" || len(ph.Keys) > 0):
				return relmap.NewSchemaError(class, prop, "hints for a multilink property, which has no storage")
			case pd.Type.IsLink() && ph.Type != "":
				return relmap.NewSchemaError(class, prop, "storage type hint on a link property; hint its keys instead")
			case !pd.Type.IsLink() && len(ph.Keys) > 0:
				return relmap.NewSchemaError(class, prop, "key hints on a property that is not a link")
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
