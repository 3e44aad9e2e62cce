package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/tools/imports"

	"github.com/syssam/relmap/compiler/rel"
)

// FileName is the name of the file written by WriteFile.
const FileName = "relmap_gen.go"

// acronyms are rendered in upper case in identifiers.
var acronyms = map[string]bool{
	"id": true, "uuid": true, "url": true, "sku": true, "api": true, "ip": true, "json": true,
}

// Generate renders the layout constants of s as the Go source of package pkg.
func Generate(s *rel.Schema, pkg string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("gen: nil schema")
	}
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("gen: invalid package name %q", pkg)
	}
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by relmap. DO NOT EDIT.")

	seen := make(map[string]string)
	ident := func(owner string, parts ...string) (string, error) {
		id := pascal(append([]string{owner}, parts...)...)
		if !token.IsIdentifier(id) {
			return "", fmt.Errorf("gen: %s: cannot derive an identifier from %q", owner, strings.Join(parts, "."))
		}
		what := owner + "." + strings.Join(parts, ".")
		if other, ok := seen[id]; ok {
			return "", fmt.Errorf("gen: identifier %s is derived from both %s and %s", id, other, what)
		}
		seen[id] = what
		return id, nil
	}

	tables := make([]jen.Code, 0, len(s.Classes()))
	for _, c := range s.Classes() {
		var (
			consts []jen.Code
			vars   []jen.Code
		)
		table, err := ident(c.Name, "Table")
		if err != nil {
			return nil, err
		}
		consts = append(consts,
			jen.Commentf("%s is the table of the %s class.", table, c.Name),
			jen.Id(table).Op("=").Lit(c.Table),
		)
		tables = append(tables, jen.Id(table))
		for _, p := range c.Props() {
			switch p.Kind {
			case rel.KindScalar:
				id, err := ident(c.Name, p.Name(), "Field")
				if err != nil {
					return nil, err
				}
				consts = append(consts,
					jen.Commentf("%s holds the %s property (%s).", id, p.Name(), p.Field.Type),
					jen.Id(id).Op("=").Lit(p.Field.Name),
				)
			case rel.KindLink:
				id, err := ident(c.Name, p.Name(), "Fields")
				if err != nil {
					return nil, err
				}
				vars = append(vars,
					jen.Commentf("%s hold the key of the %s linked by %s.", id, p.Target, p.Name()),
					jen.Id(id).Op("=").Add(stringSlice(p.FieldNames())),
				)
			}
		}
		if c.HasKey() {
			id, err := ident(c.Name, "KeyFields")
			if err != nil {
				return nil, err
			}
			vars = append(vars,
				jen.Commentf("%s are the primary key fields of %s.", id, c.Name),
				jen.Id(id).Op("=").Add(stringSlice(c.KeyFields())),
			)
		}
		f.Comment(c.Name + " layout.")
		f.Const().Defs(consts...)
		if len(vars) > 0 {
			f.Var().Defs(vars...)
		}
	}
	f.Comment("Tables lists the table of every class in declaration order.")
	f.Var().Id("Tables").Op("=").Index().String().Values(tables...)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("gen: render: %w", err)
	}
	out, err := imports.Process(FileName, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("gen: format: %w", err)
	}
	return out, nil
}

// WriteFile generates the layout of s into dir/relmap_gen.go, creating dir
// if needed, and returns the written path.
func WriteFile(s *rel.Schema, dir, pkg string) (string, error) {
	src, err := Generate(s, pkg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("gen: create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", fmt.Errorf("gen: write %s: %w", path, err)
	}
	return path, nil
}

func stringSlice(values []string) *jen.Statement {
	lits := make([]jen.Code, len(values))
	for i, v := range values {
		lits[i] = jen.Lit(v)
	}
	return jen.Index().String().Values(lits...)
}

// pascal joins the words of parts in PascalCase: ("Item", "order_id") ->
// "ItemOrderID".
func pascal(parts ...string) string {
	var (
		b     strings.Builder
		title = cases.Title(language.English, cases.NoLower)
	)
	for _, part := range parts {
		for _, w := range words(part) {
			if acronyms[strings.ToLower(w)] {
				b.WriteString(strings.ToUpper(w))
				continue
			}
			b.WriteString(title.String(w))
		}
	}
	return b.String()
}

// words splits s on separators and lower to upper case transitions.
func words(s string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && len(cur) > 0 && !unicode.IsUpper(cur[len(cur)-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}
