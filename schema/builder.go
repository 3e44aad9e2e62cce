package schema

// Prop is a property builder.
type Prop struct {
	desc *PropDef
}

// String returns a new string property.
func String(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeString}}
}

// Int16 returns a new 16-bit integer property.
func Int16(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeInt16}}
}

// Int returns a new integer property.
func Int(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeInt32}}
}

// BigInt returns a new 64-bit integer property.
func BigInt(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeInt64}}
}

// Float returns a new single precision property.
func Float(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeFloat32}}
}

// Real returns a new double precision property.
func Real(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeFloat64}}
}

// Decimal returns a new decimal property. Zero precision means unconstrained.
func Decimal(name string, precision, scale int) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeDecimal, Precision: precision, Scale: scale}}
}

// Bool returns a new boolean property.
func Bool(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeBool}}
}

// Time returns a new timestamp property.
func Time(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeTime}}
}

// Date returns a new date property.
func Date(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeDate}}
}

// UUID returns a new UUID property.
func UUID(name string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeUUID}}
}

// Link returns a new single-valued link to the given class.
func Link(name, class string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeLink, Class: class}}
}

// Multilink returns a new multi-valued link to the given class, backed by
// the reverse link property on that class.
func Multilink(name, class, reverse string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeMultilink, Class: class, Reverse: reverse, Optional: true}}
}

// Struct returns a new property holding a structure value.
func Struct(name, structName string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeStruct, Struct: structName}}
}

// Array returns a new property holding a list of scalar items.
func Array(name string, items DataType) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeArray, Items: items}}
}

// StructArray returns a new property holding a list of structure values.
func StructArray(name, structName string) *Prop {
	return &Prop{&PropDef{Name: name, Type: TypeArray, Items: TypeStruct, Struct: structName}}
}

// MaxLen bounds the length of a string property.
func (p *Prop) MaxLen(n int) *Prop {
	p.desc.MaxLen = n
	return p
}

// Optional marks the property as not required.
func (p *Prop) Optional() *Prop {
	p.desc.Optional = true
	return p
}

// Comment sets the property comment.
func (p *Prop) Comment(c string) *Prop {
	p.desc.Comment = c
	return p
}

// Descriptor implements the PropBuilder interface.
func (p *Prop) Descriptor() *PropDef {
	return p.desc
}

// PropBuilder is implemented by property builders.
type PropBuilder interface {
	Descriptor() *PropDef
}

// Class returns a new class definition with the given properties.
func Class(name string, props ...PropBuilder) *ClassDef {
	c := &ClassDef{Name: name, Props: make([]*PropDef, 0, len(props))}
	for _, p := range props {
		c.Props = append(c.Props, p.Descriptor())
	}
	return c
}

// WithKey sets the primary key of the class.
func (c *ClassDef) WithKey(names ...string) *ClassDef {
	c.Key = names
	return c
}

// WithComment sets the class comment.
func (c *ClassDef) WithComment(comment string) *ClassDef {
	c.Comment = comment
	return c
}

// StructType returns a new structure definition.
func StructType(name string, props ...PropBuilder) *StructDef {
	s := &StructDef{Name: name, Props: make([]*PropDef, 0, len(props))}
	for _, p := range props {
		s.Props = append(s.Props, p.Descriptor())
	}
	return s
}
