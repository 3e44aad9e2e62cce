package rel

// Layout is a serializable description of a compiled class.
type Layout struct {
	Class  string        `yaml:"class" json:"class"`
	Table  string        `yaml:"table" json:"table"`
	Key    []string      `yaml:"key,omitempty" json:"key,omitempty"`
	Fields []FieldLayout `yaml:"fields,omitempty" json:"fields,omitempty"`
	Refs   []RefLayout   `yaml:"multilinks,omitempty" json:"multilinks,omitempty"`
}

// FieldLayout describes one physical field.
type FieldLayout struct {
	Name  string   `yaml:"name" json:"name"`
	Type  string   `yaml:"type" json:"type"`
	Prop  string   `yaml:"prop" json:"prop"`
	Chain []string `yaml:"chain,omitempty" json:"chain,omitempty"`
	Key   bool     `yaml:"key,omitempty" json:"key,omitempty"`
}

// RefLayout describes a multilink, which has no fields.
type RefLayout struct {
	Prop    string `yaml:"prop" json:"prop"`
	Class   string `yaml:"class" json:"class"`
	Reverse string `yaml:"reverse" json:"reverse"`
}

// Describe returns the layout of every class in declaration order.
func (s *Schema) Describe() []Layout {
	layouts := make([]Layout, 0, len(s.order))
	for _, c := range s.order {
		layouts = append(layouts, c.Describe())
	}
	return layouts
}

// Describe returns the layout of the class.
func (c *Class) Describe() Layout {
	l := Layout{Class: c.Name, Table: c.Table, Key: c.Key}
	for _, p := range c.order {
		key := c.Def.IsKey(p.Name())
		switch p.Kind {
		case KindScalar:
			l.Fields = append(l.Fields, FieldLayout{Name: p.Field.Name, Type: p.Field.Type, Prop: p.Name(), Key: key})
		case KindLink:
			for _, lf := range p.Links {
				l.Fields = append(l.Fields, FieldLayout{Name: lf.Name, Type: lf.Type, Prop: p.Name(), Chain: lf.Chain, Key: key})
			}
		case KindMultilink:
			l.Refs = append(l.Refs, RefLayout{Prop: p.Name(), Class: p.Target, Reverse: p.Def.Reverse})
		}
	}
	return l
}
