package propset

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/syssam/relmap"
)

type specAST struct {
	Items []*itemAST `parser:"@@ ( ',' @@ )*"`
}

type itemAST struct {
	Name   string   `parser:"@( Ident | '*' )"`
	Open   bool     `parser:"( @'{'"`
	Nested *specAST `parser:"  @@? '}' )?"`
}

var specParser = participle.MustBuild[specAST](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[*,{}]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
)

// Parse parses the textual form of a property set:
//
//	price                      one property
//	order,product,price        a name list
//	*                          the wildcard
//	order{id,customer},price   nested specs for links
//	*,product{*}               the default set plus an expanded link
//	order{}                    same as order{*}
//
// An empty expression is the default set.
func Parse(expr string) (PropSet, error) {
	if strings.TrimSpace(expr) == "" {
		return Default(), nil
	}
	ast, err := specParser.ParseString("", expr)
	if err != nil {
		return nil, relmap.NewRequestError("", "", fmt.Errorf("%w: parse %q: %w", relmap.ErrInvalidRequest, expr, err))
	}
	return ast.propSet()
}

// MustParse is like Parse but panics on failure.
func MustParse(expr string) PropSet {
	ps, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return ps
}

func (s *specAST) propSet() (PropSet, error) {
	if s == nil {
		return Default(), nil
	}
	var (
		base    PropSet
		names   []string
		entries []Entry
		nested  bool
	)
	for _, it := range s.Items {
		if it.Name == "*" {
			if it.Open {
				return nil, invalid("wildcard cannot have a nested spec")
			}
			base = All()
			continue
		}
		names = append(names, it.Name)
		e := Include(it.Name)
		if it.Open {
			ps, err := it.Nested.propSet()
			if err != nil {
				return nil, err
			}
			e.Nested, nested = ps, true
		}
		entries = append(entries, e)
	}
	switch {
	case base != nil && len(entries) == 0:
		return All(), nil
	case base == nil && !nested:
		return NameSet(names), nil
	default:
		return &Object{Base: base, Entries: entries}, nil
	}
}
