package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/dialect"
)

// TableOption configures the tables built from a compiled schema.
type TableOption func(*tableConfig)

type tableConfig struct {
	foreignKeys bool
	dialect     string
}

// WithForeignKeys adds a foreign key from the fields of every link to the
// key fields of its target table.
func WithForeignKeys(enabled bool) TableOption {
	return func(c *tableConfig) {
		c.foreignKeys = enabled
	}
}

// WithDialect adjusts column types to the given dialect. Types are kept as
// written when no dialect is set.
func WithDialect(name string) TableOption {
	return func(c *tableConfig) {
		c.dialect = name
	}
}

// Tables maps the classes of a compiled schema to atlas tables. Key fields
// form the primary key and are NOT NULL; every other field is nullable.
func Tables(s *rel.Schema, opts ...TableOption) ([]*schema.Table, error) {
	cfg := &tableConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var (
		classes = s.Classes()
		tables  = make([]*schema.Table, 0, len(classes))
		byClass = make(map[string]*schema.Table, len(classes))
	)
	for _, c := range classes {
		t := &schema.Table{Name: c.Table}
		keys := make(map[string]bool)
		for _, k := range c.KeyFields() {
			keys[k] = true
		}
		for _, f := range c.Fields() {
			ct, err := columnType(f.Type, cfg.dialect)
			if err != nil {
				return nil, fmt.Errorf("table %q field %q: %w", c.Table, f.Name, err)
			}
			ct.Null = !keys[f.Name]
			t.Columns = append(t.Columns, &schema.Column{Name: f.Name, Type: ct})
		}
		if c.HasKey() {
			pk := &schema.Index{Table: t}
			for i, k := range c.KeyFields() {
				col, ok := t.Column(k)
				if !ok {
					return nil, fmt.Errorf("table %q: missing key column %q", c.Table, k)
				}
				pk.Parts = append(pk.Parts, &schema.IndexPart{SeqNo: i, C: col})
			}
			t.PrimaryKey = pk
		}
		tables = append(tables, t)
		byClass[c.Name] = t
	}
	if !cfg.foreignKeys {
		return tables, nil
	}
	for _, c := range classes {
		t := byClass[c.Name]
		for _, p := range c.Props() {
			if p.Kind != rel.KindLink {
				continue
			}
			ref := byClass[p.Target]
			refFields := s.Class(p.Target).KeyFields()
			fk := &schema.ForeignKey{
				Symbol:   foreignKeySymbol(c.Table, p.Name()),
				Table:    t,
				RefTable: ref,
				OnUpdate: schema.NoAction,
				OnDelete: schema.NoAction,
			}
			for i, l := range p.Links {
				col, _ := t.Column(l.Name)
				refCol, ok := ref.Column(refFields[i])
				if !ok {
					return nil, fmt.Errorf("table %q: missing referenced column %q", ref.Name, refFields[i])
				}
				fk.Columns = append(fk.Columns, col)
				fk.RefColumns = append(fk.RefColumns, refCol)
			}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	return tables, nil
}

// foreignKeySymbol returns the constraint name of a link, within the
// 64 character limit of MySQL.
func foreignKeySymbol(table, prop string) string {
	sym := table + "_" + prop + "_fk"
	if len(sym) > 64 {
		sym = sym[:64]
	}
	return sym
}

var typeRe = regexp.MustCompile(`^([a-z ]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?$`)

// columnType parses a storage type such as "varchar(20)" or
// "decimal(10,2)" into an atlas column type.
func columnType(raw, dialectName string) (*schema.ColumnType, error) {
	m := typeRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw)))
	if m == nil {
		return nil, fmt.Errorf("invalid storage type %q", raw)
	}
	var (
		name    = m[1]
		size, _ = strconv.Atoi(m[2])
		scale   = 0
		t       schema.Type
	)
	if m[3] != "" {
		scale, _ = strconv.Atoi(m[3])
	}
	switch name {
	case "varchar", "char", "character varying":
		if size == 0 {
			size = rel.MaxVarcharLen
		}
		t = &schema.StringType{T: name, Size: size}
	case "text":
		t = &schema.StringType{T: "text"}
		if dialectName == dialect.MySQL && size > 65535 {
			t = &schema.StringType{T: "longtext"}
		}
	case "smallint", "integer", "int", "bigint":
		t = &schema.IntegerType{T: name}
	case "real", "float":
		t = &schema.FloatType{T: name}
	case "double precision", "double":
		t = &schema.FloatType{T: "double precision"}
		if dialectName == dialect.MySQL {
			t = &schema.FloatType{T: "double"}
		}
	case "decimal", "numeric":
		t = &schema.DecimalType{T: name, Precision: size, Scale: scale}
	case "timestamp", "datetime":
		t = &schema.TimeType{T: name}
		switch dialectName {
		case dialect.MySQL:
			t = &schema.TimeType{T: "datetime"}
		case dialect.Postgres:
			t = &schema.TimeType{T: "timestamp"}
		}
	case "date":
		t = &schema.TimeType{T: "date"}
	case "boolean", "bool":
		t = &schema.BoolType{T: "boolean"}
	default:
		t = &schema.UnsupportedType{T: raw}
	}
	return &schema.ColumnType{Raw: raw, Type: t}, nil
}
