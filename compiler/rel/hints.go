package rel

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/syssam/relmap/schema"
)

// Hints override the default table and field layout.
type Hints struct {
	// TableName derives a table name from a class name. It is used for
	// classes without an explicit table hint; nil keeps the class name.
	TableName func(class string) string
	// StorageType derives the storage type of a scalar property. An empty
	// result falls back to DefaultStorageType.
	StorageType func(t schema.DataType, p *schema.PropDef) string
	// Classes holds per-class overrides keyed by class name.
	Classes map[string]*ClassHints
}

// ClassHints override the layout of one class.
type ClassHints struct {
	Table string                `yaml:"table,omitempty"`
	Props map[string]*PropHints `yaml:"props,omitempty"`
}

// PropHints override the layout of one property.
//
// For scalar properties, Field and Type replace the field name and storage
// type. For link properties, Field replaces the link name as the prefix of
// the derived key field names, and Keys holds the hints of the target's key
// properties, recursively for chained keys.
type PropHints struct {
	Field string                `yaml:"field,omitempty"`
	Type  string                `yaml:"type,omitempty"`
	Keys  map[string]*PropHints `yaml:"keys,omitempty"`
}

// Class returns the hints of the named class, or nil.
func (h *Hints) Class(name string) *ClassHints {
	if h == nil {
		return nil
	}
	return h.Classes[name]
}

// Prop returns the hints of the named property, or nil.
func (h *ClassHints) Prop(name string) *PropHints {
	if h == nil {
		return nil
	}
	return h.Props[name]
}

// Key returns the hints of the named key property of a link target, or nil.
func (h *PropHints) Key(name string) *PropHints {
	if h == nil {
		return nil
	}
	return h.Keys[name]
}

// SetClass records a table override for the class.
func (h *Hints) SetClass(class, table string) *ClassHints {
	if h.Classes == nil {
		h.Classes = make(map[string]*ClassHints)
	}
	ch := h.Classes[class]
	if ch == nil {
		ch = &ClassHints{}
		h.Classes[class] = ch
	}
	if table != "" {
		ch.Table = table
	}
	return ch
}

// SetProp records property hints for the class.
func (h *Hints) SetProp(class, prop string, ph *PropHints) {
	ch := h.SetClass(class, "")
	if ch.Props == nil {
		ch.Props = make(map[string]*PropHints)
	}
	ch.Props[prop] = ph
}

// SnakeTables derives snake_case table names: "OrderItem" -> "order_item".
func SnakeTables(class string) string {
	return snake(class)
}

// PluralTables derives plural snake_case table names: "OrderItem" -> "order_items".
func PluralTables(class string) string {
	s := snake(class)
	i := strings.LastIndexByte(s, '_')
	return s[:i+1] + inflect.Pluralize(s[i+1:])
}

// snake converts the given identifier to snake case.
func snake(s string) string {
	var (
		b     strings.Builder
		runes = []rune(s)
	)
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) || i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
