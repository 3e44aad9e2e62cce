package propset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/propset"
	"github.com/syssam/relmap/schema"
)

func shop(t *testing.T) *rel.Schema {
	t.Helper()
	s, err := rel.Compile(schema.New(
		schema.Class("Order",
			schema.Int("id"),
			schema.String("customer"),
			schema.Multilink("items", "Item", "order"),
		).WithKey("id"),
		schema.Class("Product", schema.String("code"), schema.Real("weight")).WithKey("code"),
		schema.Class("Item",
			schema.Link("order", "Order"),
			schema.Link("product", "Product"),
			schema.Real("price"),
			schema.Array("tags", schema.TypeString).Optional(),
		).WithKey("order", "product"),
	), nil)
	require.NoError(t, err)
	return s
}

// =============================================================================
// From / Parse
// =============================================================================

func TestFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want propset.PropSet
	}{
		{"Nil", nil, propset.Default()},
		{"Wildcard", "*", propset.All()},
		{"True", true, propset.All()},
		{"Name", "price", propset.Names("price")},
		{"CSV", "order, product,price", propset.Names("order", "product", "price")},
		{"Strings", []string{"order", "price"}, propset.Names("order", "price")},
		{"List", []any{"order", "price"}, propset.Names("order", "price")},
		{"PropSet", propset.Names("x"), propset.Names("x")},
		{
			"Object",
			map[string]any{
				"$base":   "*",
				"order":   map[string]any{"customer": nil},
				"product": "*",
				"price":   nil,
				"tags":    true,
				"skip":    false,
			},
			propset.Obj(
				propset.Nest("order", propset.Obj(propset.Include("customer"))),
				propset.Include("price"),
				propset.Nest("product", propset.All()),
				propset.Include("tags"),
			).WithBase(propset.All()),
		},
		{
			"ListWithObject",
			[]any{"price", map[string]any{"order": "id,customer"}},
			propset.Obj(propset.Nest("order", propset.Names("id", "customer"))).WithBase(propset.Names("price")),
		},
		{"Braces", "order{id},price", propset.Obj(propset.Nest("order", propset.Names("id")), propset.Include("price"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := propset.From(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromErrors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]any{
		"Number":       42,
		"False":        false,
		"ListWildcard": []any{"a", "*"},
		"ListNumber":   []any{"a", 1},
		"ObjectBase":   map[string]any{"$base": map[string]any{"a": nil}},
		"NestedNumber": map[string]any{"order": 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := propset.From(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, relmap.ErrInvalidRequest)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want propset.PropSet
	}{
		{"", propset.Default()},
		{"*", propset.All()},
		{"price", propset.Names("price")},
		{"order, product ,price", propset.Names("order", "product", "price")},
		{"order{id},product{*},price", propset.Obj(
			propset.Nest("order", propset.Names("id")),
			propset.Nest("product", propset.All()),
			propset.Include("price"),
		)},
		{"*,order{customer}", propset.Obj(
			propset.Nest("order", propset.Names("customer")),
		).WithBase(propset.All())},
		{"item{order{id},price}", propset.Obj(
			propset.Nest("item", propset.Obj(
				propset.Nest("order", propset.Names("id")),
				propset.Include("price"),
			)),
		)},
		{"order{}", propset.Obj(propset.Nest("order", propset.Default()))},
		{"order{},price", propset.Obj(
			propset.Nest("order", propset.Default()),
			propset.Include("price"),
		)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := propset.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, in := range []string{"order{", "a,,b", "*{id}", "a b", "1abc"} {
		_, err := propset.Parse(in)
		assert.Error(t, err, in)
		assert.ErrorIs(t, err, relmap.ErrInvalidRequest, in)
	}
	assert.Panics(t, func() { propset.MustParse("{") })
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", propset.Default().String())
	assert.Equal(t, "*", propset.All().String())
	assert.Equal(t, "a,b", propset.Names("a", "b").String())
	assert.Equal(t, "a,b", propset.Split(" a ,, b", ",").String())
	assert.Equal(t, propset.Default(), propset.Split(" , ", ","))

	for _, expr := range []string{"order{id},product{*},price", "*,order{customer}", "item{order{id},price}", "order{},price"} {
		ps := propset.MustParse(expr)
		assert.Equal(t, expr, ps.String())
		again, err := propset.Parse(ps.String())
		require.NoError(t, err)
		assert.Equal(t, ps, again)
	}
}

// =============================================================================
// Resolve
// =============================================================================

func TestResolveDefault(t *testing.T) {
	t.Parallel()

	s := shop(t)
	for _, ps := range []propset.PropSet{nil, propset.Default(), propset.All()} {
		reqs, err := propset.Resolve(s.Class("Item"), ps)
		require.NoError(t, err)
		assert.Equal(t, []propset.Request{
			{Name: "order"}, {Name: "product"}, {Name: "price"}, {Name: "tags"},
		}, reqs)
	}
}

// The default set never includes a multilink.
func TestResolveDefaultExcludesMultilinks(t *testing.T) {
	t.Parallel()

	s := shop(t)
	for _, cls := range s.Classes() {
		for _, ps := range []propset.PropSet{nil, propset.All(), propset.Obj().WithBase(propset.All())} {
			reqs, err := propset.Resolve(cls, ps)
			require.NoError(t, err)
			for _, r := range reqs {
				assert.NotEqual(t, rel.KindMultilink, cls.Prop(r.Name).Kind, "%s.%s", cls.Name, r.Name)
			}
		}
	}
	assert.Equal(t, []string{"id", "customer"}, propset.DefaultNames(s.Class("Order")))
}

func TestResolveNames(t *testing.T) {
	t.Parallel()

	s := shop(t)
	reqs, err := propset.Resolve(s.Class("Item"), propset.Names("price", "order", "price"))
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "order"}, propset.RequestNames(reqs))
	for _, r := range reqs {
		assert.False(t, r.Expand)
	}
}

func TestResolveObject(t *testing.T) {
	t.Parallel()

	s := shop(t)
	reqs, err := propset.Resolve(s.Class("Item"), propset.MustParse("*,order{customer},product{*}"))
	require.NoError(t, err)
	assert.Equal(t, []propset.Request{
		{Name: "order", Nested: propset.Names("customer"), Expand: true},
		{Name: "product", Nested: propset.Default(), Expand: true},
		{Name: "price"},
		{Name: "tags"},
	}, reqs)

	reqs, err = propset.Resolve(s.Class("Item"), propset.Obj(
		propset.Include("price"),
		propset.Include("order"),
	).WithBase(propset.Names("order", "product")))
	require.NoError(t, err)
	assert.Equal(t, []propset.Request{{Name: "order"}, {Name: "product"}, {Name: "price"}}, reqs)
}

// An empty nested set expands the link with the target's default set, in
// every form it can be written.
func TestResolveEmptyNested(t *testing.T) {
	t.Parallel()

	s := shop(t)
	want := []propset.Request{
		{Name: "order", Nested: propset.Default(), Expand: true},
		{Name: "price"},
	}
	fromMap, err := propset.From(map[string]any{"order": map[string]any{}, "price": nil})
	require.NoError(t, err)
	fromEmptyList, err := propset.From(map[string]any{"order": []any{}, "price": true})
	require.NoError(t, err)
	for name, ps := range map[string]propset.PropSet{
		"Map":       fromMap,
		"EmptyList": fromEmptyList,
		"Parse":     propset.MustParse("order{},price"),
		"Default":   propset.Obj(propset.Nest("order", propset.Default()), propset.Include("price")),
		"Nil":       propset.Obj(propset.Nest("order", nil), propset.Include("price")),
		"Wildcard":  propset.MustParse("order{*},price"),
	} {
		reqs, err := propset.Resolve(s.Class("Item"), ps)
		require.NoError(t, err, name)
		assert.Equal(t, want, reqs, name)
	}

	// At the top level an empty set is the default set.
	for _, ps := range []propset.PropSet{propset.Obj(), propset.Names()} {
		reqs, err := propset.Resolve(s.Class("Item"), ps)
		require.NoError(t, err)
		assert.Equal(t, propset.DefaultNames(s.Class("Item")), propset.RequestNames(reqs))
	}
	assert.Equal(t, "order{},price", fromMap.String())
}

func TestResolveErrors(t *testing.T) {
	t.Parallel()

	s := shop(t)
	tests := []struct {
		name  string
		class string
		ps    propset.PropSet
		err   error
		prop  string
	}{
		{"Unknown", "Item", propset.Names("colour"), relmap.ErrPropNotFound, "colour"},
		{"UnknownEntry", "Item", propset.MustParse("colour{id}"), relmap.ErrPropNotFound, "colour"},
		{"UnknownBase", "Item", propset.Obj().WithBase(propset.Names("x")), relmap.ErrPropNotFound, "x"},
		{"Multilink", "Order", propset.Names("items"), relmap.ErrMultilinkUnsupported, "items"},
		{"MultilinkNested", "Order", propset.MustParse("items{*}"), relmap.ErrMultilinkUnsupported, "items"},
		{"NestedOnScalar", "Item", propset.MustParse("price{id}"), relmap.ErrInvalidRequest, "price"},
		{"WildcardOnScalar", "Item", propset.Obj(propset.Nest("tags", propset.All())), relmap.ErrInvalidRequest, "tags"},
		{"ObjectBase", "Item", propset.Obj().WithBase(propset.Obj()), relmap.ErrInvalidRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := propset.Resolve(s.Class(tt.class), tt.ps)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			var re *relmap.RequestError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.class, re.Class)
			assert.Equal(t, tt.prop, re.Prop)
		})
	}
}
