// Package load reads schema definitions and layout hints from YAML files
// and GraphQL SDL documents.
package load

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/schema"
)

type (
	// document is the YAML form of a schema.
	document struct {
		Tables  string      `yaml:"tables,omitempty"`
		Classes []classDoc  `yaml:"classes"`
		Structs []structDoc `yaml:"structs,omitempty"`
	}

	classDoc struct {
		Name    string    `yaml:"name"`
		Table   string    `yaml:"table,omitempty"`
		Key     []string  `yaml:"key,omitempty"`
		Comment string    `yaml:"comment,omitempty"`
		Props   []propDoc `yaml:"props"`
	}

	structDoc struct {
		Name  string    `yaml:"name"`
		Props []propDoc `yaml:"props"`
	}

	propDoc struct {
		Name      string `yaml:"name"`
		Type      string `yaml:"type"`
		Class     string `yaml:"class,omitempty"`
		Reverse   string `yaml:"reverse,omitempty"`
		Struct    string `yaml:"struct,omitempty"`
		Items     string `yaml:"items,omitempty"`
		MaxLen    int    `yaml:"maxlen,omitempty"`
		Precision int    `yaml:"precision,omitempty"`
		Scale     int    `yaml:"scale,omitempty"`
		Optional  bool   `yaml:"optional,omitempty"`
		Comment   string `yaml:"comment,omitempty"`

		// Layout hints.
		Field   string                    `yaml:"field,omitempty"`
		Storage string                    `yaml:"storage,omitempty"`
		Keys    map[string]*rel.PropHints `yaml:"keys,omitempty"`
	}
)

// File loads a schema from path. Files ending in .graphql or .gql are read
// as GraphQL SDL, anything else as YAML.
func File(path string) (*schema.Def, *rel.Hints, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".graphql", ".gql":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load: %w", err)
		}
		return graphQL(filepath.Base(path), string(src))
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load: %w", err)
		}
		defer f.Close()
		return YAML(f)
	}
}

// YAML loads a schema from its YAML form. Unknown keys are rejected.
func YAML(r io.Reader) (*schema.Def, *rel.Hints, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("load: empty schema document")
		}
		return nil, nil, fmt.Errorf("load: decode yaml: %w", err)
	}
	return doc.build()
}

func (d *document) build() (*schema.Def, *rel.Hints, error) {
	hints := &rel.Hints{}
	switch d.Tables {
	case "":
	case "snake":
		hints.TableName = rel.SnakeTables
	case "plural":
		hints.TableName = rel.PluralTables
	default:
		return nil, nil, fmt.Errorf("load: unknown table naming %q, expect snake or plural", d.Tables)
	}
	def := &schema.Def{}
	for _, cd := range d.Classes {
		c := &schema.ClassDef{Name: cd.Name, Key: cd.Key, Comment: cd.Comment}
		if cd.Table != "" {
			hints.SetClass(cd.Name, cd.Table)
		}
		for _, pd := range cd.Props {
			p, err := pd.def(cd.Name)
			if err != nil {
				return nil, nil, err
			}
			c.Props = append(c.Props, p)
			if pd.Field != "" || pd.Storage != "" || len(pd.Keys) > 0 {
				hints.SetProp(cd.Name, pd.Name, &rel.PropHints{Field: pd.Field, Type: pd.Storage, Keys: pd.Keys})
			}
		}
		def.Classes = append(def.Classes, c)
	}
	for _, sd := range d.Structs {
		s := &schema.StructDef{Name: sd.Name}
		for _, pd := range sd.Props {
			if pd.Field != "" || pd.Storage != "" || len(pd.Keys) > 0 {
				return nil, nil, fmt.Errorf("load: structure %s.%s: layout hints are not allowed on structure properties", sd.Name, pd.Name)
			}
			p, err := pd.def(sd.Name)
			if err != nil {
				return nil, nil, err
			}
			s.Props = append(s.Props, p)
		}
		def.Structs = append(def.Structs, s)
	}
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}
	return def, hints, nil
}

func (pd *propDoc) def(owner string) (*schema.PropDef, error) {
	t, err := schema.ParseDataType(pd.Type)
	if err != nil {
		return nil, fmt.Errorf("load: %s.%s: %w", owner, pd.Name, err)
	}
	p := &schema.PropDef{
		Name:      pd.Name,
		Type:      t,
		MaxLen:    pd.MaxLen,
		Precision: pd.Precision,
		Scale:     pd.Scale,
		Class:     pd.Class,
		Reverse:   pd.Reverse,
		Struct:    pd.Struct,
		Optional:  pd.Optional,
		Comment:   pd.Comment,
	}
	if pd.Items != "" {
		if p.Items, err = schema.ParseDataType(pd.Items); err != nil {
			return nil, fmt.Errorf("load: %s.%s items: %w", owner, pd.Name, err)
		}
	}
	return p, nil
}
