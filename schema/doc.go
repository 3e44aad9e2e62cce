// Package schema describes domain models: classes, their typed properties
// and their primary keys.
//
// A class is built from property builders:
//
//	order := schema.Class("Order", schema.Int("id")).WithKey("id")
//	product := schema.Class("Product", schema.String("code").MaxLen(32)).WithKey("code")
//	item := schema.Class("Item",
//	    schema.Link("order", "Order"),
//	    schema.Link("product", "Product"),
//	    schema.Real("price"),
//	).WithKey("order", "product")
//	def := schema.New(order, product, item)
//
// Links are single-valued references stored as the target's key. Multilinks
// are reverse collections and are never stored on the owning side.
// Structures and arrays are opaque values stored in one field.
//
// Definitions are plain data; package compiler/rel compiles them into a
// table and field layout.
package schema
