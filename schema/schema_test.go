package schema_test

import (
	"testing"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want schema.DataType
	}{
		{"string", schema.TypeString},
		{"text", schema.TypeString},
		{"int16", schema.TypeInt16},
		{"int", schema.TypeInt32},
		{"integer", schema.TypeInt32},
		{"bigint", schema.TypeInt64},
		{"int64", schema.TypeInt64},
		{"float", schema.TypeFloat32},
		{"real", schema.TypeFloat64},
		{"double", schema.TypeFloat64},
		{"decimal", schema.TypeDecimal},
		{"Boolean", schema.TypeBool},
		{"datetime", schema.TypeTime},
		{"timestamp", schema.TypeTime},
		{"date", schema.TypeDate},
		{"uuid", schema.TypeUUID},
		{"link", schema.TypeLink},
		{"multilink", schema.TypeMultilink},
		{"struct", schema.TypeStruct},
		{" array ", schema.TypeArray},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := schema.ParseDataType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := schema.ParseDataType("blob")
	require.Error(t, err)
	assert.Equal(t, "invalid", schema.DataType(200).String())
	assert.False(t, schema.TypeInvalid.Valid())
}

func TestDataTypePredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, schema.TypeString.IsScalar())
	assert.True(t, schema.TypeUUID.IsScalar())
	assert.False(t, schema.TypeLink.IsScalar())
	assert.False(t, schema.TypeStruct.IsScalar())
	assert.True(t, schema.TypeLink.IsLink())
	assert.True(t, schema.TypeMultilink.IsMultilink())
	assert.True(t, schema.TypeStruct.IsOpaque())
	assert.True(t, schema.TypeArray.IsOpaque())
	assert.True(t, schema.TypeDecimal.IsNumeric())
	assert.False(t, schema.TypeBool.IsNumeric())
	assert.True(t, schema.TypeDate.IsTemporal())
}

func TestDataTypeText(t *testing.T) {
	t.Parallel()

	b, err := schema.TypeInt32.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "int", string(b))

	var dt schema.DataType
	require.NoError(t, dt.UnmarshalText([]byte("real")))
	assert.Equal(t, schema.TypeFloat64, dt)
	require.Error(t, dt.UnmarshalText([]byte("nope")))

	_, err = schema.TypeInvalid.MarshalText()
	require.Error(t, err)
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	p := schema.String("name").MaxLen(64).Optional().Comment("display name").Descriptor()
	assert.Equal(t, "name", p.Name)
	assert.Equal(t, schema.TypeString, p.Type)
	assert.Equal(t, 64, p.MaxLen)
	assert.True(t, p.Optional)
	assert.Equal(t, "display name", p.Comment)

	d := schema.Decimal("amount", 10, 2).Descriptor()
	assert.Equal(t, 10, d.Precision)
	assert.Equal(t, 2, d.Scale)

	m := schema.Multilink("items", "Item", "order").Descriptor()
	assert.Equal(t, schema.TypeMultilink, m.Type)
	assert.Equal(t, "Item", m.Class)
	assert.Equal(t, "order", m.Reverse)
	assert.Equal(t, "multilink(Item)", m.Kind())

	a := schema.StructArray("lines", "Line").Descriptor()
	assert.Equal(t, schema.TypeArray, a.Type)
	assert.Equal(t, schema.TypeStruct, a.Items)

	c := schema.Class("Item",
		schema.Link("order", "Order"),
		schema.Link("product", "Product"),
		schema.Real("price"),
	).WithKey("order", "product").WithComment("order line")
	assert.True(t, c.HasKey())
	assert.True(t, c.IsKey("order"))
	assert.False(t, c.IsKey("price"))
	assert.Equal(t, schema.TypeFloat64, c.Prop("price").Type)
	assert.Nil(t, c.Prop("colour"))
	assert.Equal(t, "order line", c.Comment)
}

func TestDef(t *testing.T) {
	t.Parallel()

	def := schema.New(
		schema.Class("Order", schema.Int("id"), schema.Struct("ship", "Address")).WithKey("id"),
		schema.Class("Product", schema.String("code")).WithKey("code"),
	).WithStructs(schema.StructType("Address", schema.String("city")))

	require.NoError(t, def.Validate())
	assert.Equal(t, []string{"Order", "Product"}, def.ClassNames())
	assert.NotNil(t, def.Class("Order"))
	assert.Nil(t, def.Class("Item"))
	require.NotNil(t, def.Struct("Address"))
	assert.NotNil(t, def.Struct("Address").Prop("city"))
}

func TestDefValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		def   *schema.Def
		class string
		prop  string
	}{
		{
			name: "DuplicateClass",
			def: schema.New(
				schema.Class("Order", schema.Int("id")),
				schema.Class("Order", schema.Int("id")),
			),
			class: "Order",
		},
		{
			name:  "DuplicateProp",
			def:   schema.New(schema.Class("Order", schema.Int("id"), schema.String("id"))),
			class: "Order",
			prop:  "id",
		},
		{
			name:  "MissingKey",
			def:   schema.New(schema.Class("Order", schema.Int("id")).WithKey("code")),
			class: "Order",
			prop:  "code",
		},
		{
			name:  "KeyOnMultilink",
			def:   schema.New(schema.Class("Order", schema.Multilink("items", "Item", "order")).WithKey("items")),
			class: "Order",
			prop:  "items",
		},
		{
			name:  "LinkWithoutClass",
			def:   schema.New(schema.Class("Item", schema.Link("order", ""))),
			class: "Item",
			prop:  "order",
		},
		{
			name:  "MultilinkWithoutReverse",
			def:   schema.New(schema.Class("Order", schema.Multilink("items", "Item", ""))),
			class: "Order",
			prop:  "items",
		},
		{
			name:  "UnknownStruct",
			def:   schema.New(schema.Class("Order", schema.Struct("ship", "Address"))),
			class: "Order",
			prop:  "ship",
		},
		{
			name:  "ArrayWithoutItems",
			def:   schema.New(schema.Class("Order", schema.Array("tags", schema.TypeLink))),
			class: "Order",
			prop:  "tags",
		},
		{
			name:  "LinkInStruct",
			def:   schema.New().WithStructs(schema.StructType("Address", schema.Link("city", "City"))),
			class: "Address",
			prop:  "city",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, relmap.ErrInvalidSchema)
			var se *relmap.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.class, se.Class)
			assert.Equal(t, tt.prop, se.Prop)
		})
	}
}
