// Package gen generates Go constants describing the storage layout of a
// compiled schema: one table constant per class, one field constant per
// scalar property, and field lists for links and keys.
//
// Given the Order/Product/Item schema, the generated file holds:
//
//	const (
//	    ItemTable      = "items"
//	    ItemPriceField = "price"
//	    ...
//	)
//
//	var (
//	    ItemOrderFields = []string{"order_id"}
//	    ItemKeyFields   = []string{"order_id", "product_code"}
//	    ...
//	)
package gen
