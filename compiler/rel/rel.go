package rel

import (
	"slices"

	"github.com/syssam/relmap/schema"
)

// Kind tells how a property is stored.
type Kind uint8

// Property kinds.
const (
	// KindScalar properties are stored in one field. Structures and arrays
	// are scalar for storage purposes.
	KindScalar Kind = iota + 1
	// KindLink properties are stored as the flattened key of their target.
	KindLink
	// KindMultilink properties have no storage.
	KindMultilink
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindLink:
		return "link"
	case KindMultilink:
		return "multilink"
	default:
		return "invalid"
	}
}

type (
	// Schema is a compiled schema. It is immutable and safe for concurrent use.
	Schema struct {
		def     *schema.Def
		classes map[string]*Class
		order   []*Class
	}

	// Class is the table layout of a class.
	Class struct {
		Name  string
		Table string
		Def   *schema.ClassDef
		Key   []string // key property names

		props     map[string]*Prop
		order     []*Prop
		fields    []*Field // every physical field, declaration order
		keyFields []string
	}

	// Prop is the storage layout of one property.
	Prop struct {
		Def    *schema.PropDef
		Kind   Kind
		Field  *Field       // KindScalar only
		Links  []*LinkField // KindLink only, target key order
		Target string       // KindLink and KindMultilink
	}

	// Field is a physical field.
	Field struct {
		Name string
		Type string
	}

	// LinkField is one physical field backing a link. Chain lists the
	// property names from the owning link down to the scalar leaf of the
	// target key, e.g. ["order", "id"].
	LinkField struct {
		Field
		Chain []string
		Leaf  *schema.PropDef
	}
)

// Def returns the schema definition the schema was compiled from.
func (s *Schema) Def() *schema.Def { return s.def }

// Class returns the named class, or nil.
func (s *Schema) Class(name string) *Class { return s.classes[name] }

// Classes returns the classes in declaration order.
func (s *Schema) Classes() []*Class { return slices.Clone(s.order) }

// Prop returns the named property, or nil.
func (c *Class) Prop(name string) *Prop { return c.props[name] }

// Props returns the properties in declaration order.
func (c *Class) Props() []*Prop { return slices.Clone(c.order) }

// Fields returns every physical field of the class in declaration order.
func (c *Class) Fields() []*Field { return slices.Clone(c.fields) }

// KeyFields returns the physical fields backing the primary key.
func (c *Class) KeyFields() []string { return slices.Clone(c.keyFields) }

// HasKey reports if the class has a primary key.
func (c *Class) HasKey() bool { return len(c.Key) > 0 }

// Name returns the property name.
func (p *Prop) Name() string { return p.Def.Name }

// Stored reports if the property has physical fields.
func (p *Prop) Stored() bool { return p.Kind != KindMultilink }

// FieldNames returns the names of the physical fields backing the property.
func (p *Prop) FieldNames() []string {
	switch p.Kind {
	case KindScalar:
		return []string{p.Field.Name}
	case KindLink:
		names := make([]string, len(p.Links))
		for i, l := range p.Links {
			names[i] = l.Name
		}
		return names
	default:
		return nil
	}
}

// FieldMap returns the link fields keyed by physical field name.
func (p *Prop) FieldMap() map[string]*LinkField {
	if p.Kind != KindLink {
		return nil
	}
	m := make(map[string]*LinkField, len(p.Links))
	for _, l := range p.Links {
		m[l.Name] = l
	}
	return m
}
