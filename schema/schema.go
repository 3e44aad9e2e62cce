package schema

import (
	"fmt"
	"slices"

	"github.com/syssam/relmap"
)

// PropDef describes a property of a class or structure.
type PropDef struct {
	Name      string
	Type      DataType
	MaxLen    int      // string length bound; 0 means unbounded
	Precision int      // decimal precision
	Scale     int      // decimal scale
	Class     string   // link and multilink target class
	Reverse   string   // multilink: property on Class pointing back
	Struct    string   // struct: structure name; array: element structure name
	Items     DataType // array element type
	Optional  bool
	Comment   string
}

// Kind returns a short description of the property shape used in errors.
func (p *PropDef) Kind() string {
	switch p.Type {
	case TypeLink, TypeMultilink:
		return fmt.Sprintf("%s(%s)", p.Type, p.Class)
	case TypeStruct:
		return fmt.Sprintf("struct(%s)", p.Struct)
	default:
		return p.Type.String()
	}
}

// ClassDef describes a class: its properties and its primary key.
type ClassDef struct {
	Name    string
	Props   []*PropDef
	Key     []string
	Comment string
}

// Prop returns the property with the given name, or nil.
func (c *ClassDef) Prop(name string) *PropDef {
	for _, p := range c.Props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// HasKey reports if the class declares a primary key.
func (c *ClassDef) HasKey() bool {
	return len(c.Key) > 0
}

// IsKey reports if the named property is part of the primary key.
func (c *ClassDef) IsKey(name string) bool {
	return slices.Contains(c.Key, name)
}

// StructDef describes a reusable structure. Structures are values and have
// no key and no table.
type StructDef struct {
	Name  string
	Props []*PropDef
}

// Prop returns the property with the given name, or nil.
func (s *StructDef) Prop(name string) *PropDef {
	for _, p := range s.Props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Def is a namespace of classes and structures.
type Def struct {
	Classes []*ClassDef
	Structs []*StructDef
}

// New returns a definition holding the given classes.
func New(classes ...*ClassDef) *Def {
	return &Def{Classes: classes}
}

// WithStructs adds structure definitions to the namespace.
func (d *Def) WithStructs(structs ...*StructDef) *Def {
	d.Structs = append(d.Structs, structs...)
	return d
}

// Class returns the class with the given name, or nil.
func (d *Def) Class(name string) *ClassDef {
	for _, c := range d.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Struct returns the structure with the given name, or nil.
func (d *Def) Struct(name string) *StructDef {
	for _, s := range d.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ClassNames returns the class names in declaration order.
func (d *Def) ClassNames() []string {
	names := make([]string, len(d.Classes))
	for i, c := range d.Classes {
		names[i] = c.Name
	}
	return names
}

// Validate checks the namespace for local consistency: names are unique,
// every key name exists among the class properties, and every property
// carries the attributes its type requires. Cross-class checks (link
// targets, key chains) are done by the relational compiler.
func (d *Def) Validate() error {
	seen := make(map[string]bool, len(d.Classes)+len(d.Structs))
	for _, c := range d.Classes {
		if c.Name == "" {
			return relmap.NewSchemaError("", "", "class without a name")
		}
		if seen[c.Name] {
			return relmap.NewSchemaError(c.Name, "", "duplicate class or structure name")
		}
		seen[c.Name] = true
		if err := validateProps(c.Name, c.Props, d); err != nil {
			return err
		}
		keys := make(map[string]bool, len(c.Key))
		for _, k := range c.Key {
			p := c.Prop(k)
			if p == nil {
				return relmap.NewSchemaError(c.Name, k, "key property is not defined")
			}
			if keys[k] {
				return relmap.NewSchemaError(c.Name, k, "key property listed twice")
			}
			keys[k] = true
			if !p.Type.IsScalar() && !p.Type.IsLink() {
				return relmap.NewSchemaError(c.Name, k, fmt.Sprintf("%s property cannot be part of a key", p.Type))
			}
		}
	}
	for _, s := range d.Structs {
		if s.Name == "" {
			return relmap.NewSchemaError("", "", "structure without a name")
		}
		if seen[s.Name] {
			return relmap.NewSchemaError(s.Name, "", "duplicate class or structure name")
		}
		seen[s.Name] = true
		if err := validateProps(s.Name, s.Props, d); err != nil {
			return err
		}
		for _, p := range s.Props {
			if p.Type.IsLink() || p.Type.IsMultilink() {
				return relmap.NewSchemaError(s.Name, p.Name, "structures cannot hold links")
			}
		}
	}
	return nil
}

func validateProps(owner string, props []*PropDef, d *Def) error {
	names := make(map[string]bool, len(props))
	for _, p := range props {
		switch {
		case p.Name == "":
			return relmap.NewSchemaError(owner, "", "property without a name")
		case names[p.Name]:
			return relmap.NewSchemaError(owner, p.Name, "duplicate property name")
		case !p.Type.Valid():
			return relmap.NewSchemaError(owner, p.Name, "invalid data type")
		case (p.Type.IsLink() || p.Type.IsMultilink()) && p.Class == "":
			return relmap.NewSchemaError(owner, p.Name, fmt.Sprintf("%s property without a target class", p.Type))
		case p.Type.IsMultilink() && p.Reverse == "":
			return relmap.NewSchemaError(owner, p.Name, "multilink property without a reverse property")
		case p.Type == TypeStruct && d.Struct(p.Struct) == nil:
			return relmap.NewSchemaError(owner, p.Name, fmt.Sprintf("unknown structure %q", p.Struct))
		case p.Type == TypeArray && p.Struct == "" && !p.Items.IsScalar():
			return relmap.NewSchemaError(owner, p.Name, "array property without a scalar item type or structure")
		case p.Type == TypeArray && p.Struct != "" && d.Struct(p.Struct) == nil:
			return relmap.NewSchemaError(owner, p.Name, fmt.Sprintf("unknown structure %q", p.Struct))
		case p.MaxLen < 0:
			return relmap.NewSchemaError(owner, p.Name, "negative max length")
		}
		names[p.Name] = true
	}
	return nil
}
