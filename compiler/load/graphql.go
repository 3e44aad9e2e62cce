package load

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/schema"
)

// scalars maps GraphQL scalar names to property types.
var scalars = map[string]schema.DataType{
	"String":   schema.TypeString,
	"ID":       schema.TypeString,
	"Int":      schema.TypeInt32,
	"BigInt":   schema.TypeInt64,
	"Float":    schema.TypeFloat64,
	"Decimal":  schema.TypeDecimal,
	"Boolean":  schema.TypeBool,
	"DateTime": schema.TypeTime,
	"Time":     schema.TypeTime,
	"Date":     schema.TypeDate,
	"UUID":     schema.TypeUUID,
}

// operation types are not classes.
var operations = map[string]bool{"Query": true, "Mutation": true, "Subscription": true}

// GraphQL loads a schema from a GraphQL SDL document:
//
//	type Order @key(fields: ["id"]) @table(name: "orders") {
//	    id: Int!
//	    customer: String @length(max: 64)
//	    items: [Item!]! @reverse(prop: "order")
//	}
//
// Object types are classes and input types are structures. Fields typed
// with an object type are links, lists of object types marked @reverse are
// multilinks, and lists of scalars or input types are arrays. Nullable
// fields are optional. Enum fields are strings. @field(name, type)
// overrides the field name and storage type, and @decimal(precision, scale)
// sets the decimal bounds.
func GraphQL(src string) (*schema.Def, *rel.Hints, error) {
	return graphQL("schema.graphql", src)
}

func graphQL(name, src string) (*schema.Def, *rel.Hints, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: src})
	if err != nil {
		return nil, nil, fmt.Errorf("load: parse graphql: %w", err)
	}
	l := &sdlLoader{kinds: make(map[string]ast.DefinitionKind), hints: &rel.Hints{}}
	for _, d := range doc.Definitions {
		l.kinds[d.Name] = d.Kind
	}
	def := &schema.Def{}
	for _, d := range doc.Definitions {
		switch {
		case d.Kind == ast.Object && !operations[d.Name]:
			c, err := l.class(d)
			if err != nil {
				return nil, nil, err
			}
			def.Classes = append(def.Classes, c)
		case d.Kind == ast.InputObject:
			s := &schema.StructDef{Name: d.Name}
			for _, f := range d.Fields {
				p, err := l.prop(d.Name, f, false)
				if err != nil {
					return nil, nil, err
				}
				s.Props = append(s.Props, p)
			}
			def.Structs = append(def.Structs, s)
		}
	}
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}
	return def, l.hints, nil
}

type sdlLoader struct {
	kinds map[string]ast.DefinitionKind
	hints *rel.Hints
}

func (l *sdlLoader) class(d *ast.Definition) (*schema.ClassDef, error) {
	c := &schema.ClassDef{Name: d.Name, Comment: d.Description}
	if k := d.Directives.ForName("key"); k != nil {
		fields, err := stringList(argument(k, "fields"))
		if err != nil {
			return nil, fmt.Errorf("load: %s @key: %w", d.Name, err)
		}
		c.Key = fields
	}
	if t := d.Directives.ForName("table"); t != nil {
		name, _ := argument(t, "name").(string)
		if name == "" {
			return nil, fmt.Errorf("load: %s @table: missing name", d.Name)
		}
		l.hints.SetClass(d.Name, name)
	}
	for _, f := range d.Fields {
		p, err := l.prop(d.Name, f, true)
		if err != nil {
			return nil, err
		}
		c.Props = append(c.Props, p)
	}
	return c, nil
}

func (l *sdlLoader) prop(owner string, f *ast.FieldDefinition, class bool) (*schema.PropDef, error) {
	p := &schema.PropDef{Name: f.Name, Optional: !f.Type.NonNull, Comment: f.Description}
	named, list := f.Type.NamedType, false
	if f.Type.Elem != nil {
		named, list = f.Type.Elem.NamedType, true
		if f.Type.Elem.Elem != nil {
			return nil, fmt.Errorf("load: %s.%s: nested lists are not supported", owner, f.Name)
		}
	}
	base, err := l.baseType(named)
	if err != nil {
		return nil, fmt.Errorf("load: %s.%s: %w", owner, f.Name, err)
	}
	switch {
	case list && base == schema.TypeLink:
		r := f.Directives.ForName("reverse")
		if r == nil {
			return nil, fmt.Errorf("load: %s.%s: list of %s needs @reverse(prop:)", owner, f.Name, named)
		}
		p.Type, p.Class = schema.TypeMultilink, named
		p.Reverse, _ = argument(r, "prop").(string)
	case list && base == schema.TypeStruct:
		p.Type, p.Struct = schema.TypeArray, named
	case list:
		p.Type, p.Items = schema.TypeArray, base
	case base == schema.TypeLink:
		p.Type, p.Class = schema.TypeLink, named
	case base == schema.TypeStruct:
		p.Type, p.Struct = schema.TypeStruct, named
	default:
		p.Type = base
	}
	if d := f.Directives.ForName("length"); d != nil {
		n, ok := argument(d, "max").(int64)
		if !ok || n <= 0 {
			return nil, fmt.Errorf("load: %s.%s @length: max must be a positive integer", owner, f.Name)
		}
		p.MaxLen = int(n)
	}
	if d := f.Directives.ForName("decimal"); d != nil {
		precision, _ := argument(d, "precision").(int64)
		scale, _ := argument(d, "scale").(int64)
		p.Precision, p.Scale = int(precision), int(scale)
	}
	if d := f.Directives.ForName("field"); d != nil {
		if !class {
			return nil, fmt.Errorf("load: %s.%s: @field is not allowed on structure properties", owner, f.Name)
		}
		ph := &rel.PropHints{}
		ph.Field, _ = argument(d, "name").(string)
		ph.Type, _ = argument(d, "type").(string)
		l.hints.SetProp(owner, f.Name, ph)
	}
	return p, nil
}

// baseType returns the scalar type of named, or TypeLink for object types
// and TypeStruct for input types.
func (l *sdlLoader) baseType(named string) (schema.DataType, error) {
	if t, ok := scalars[named]; ok {
		return t, nil
	}
	switch l.kinds[named] {
	case ast.Object:
		return schema.TypeLink, nil
	case ast.InputObject:
		return schema.TypeStruct, nil
	case ast.Enum:
		return schema.TypeString, nil
	default:
		return schema.TypeInvalid, fmt.Errorf("unknown type %q", named)
	}
}

// argument returns the constant value of a directive argument, or nil.
// Directives are not declared in the document, so values are read as
// written.
func argument(d *ast.Directive, name string) any {
	a := d.Arguments.ForName(name)
	if a == nil || a.Value == nil {
		return nil
	}
	v, err := a.Value.Value(nil)
	if err != nil {
		return nil
	}
	return v
}

func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expect a list of names, got %T", e)
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("expect a list of names, got %T", v)
	}
}
