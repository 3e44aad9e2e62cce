// Package rel compiles schema definitions into table and field layouts
// and converts entity values to and from flat field values.
//
// Every class maps to a table. Scalar properties map to one field each.
// A link property maps to the key fields of its target class: one field
// per scalar leaf of the target key, named after the chain of property
// names leading to it. For the schema
//
//	Order{id int, key=[id]}
//	Product{code string, key=[code]}
//	Item{order link(Order), product link(Product), price real, key=[order, product]}
//	Shipment{item link(Item), key=[item]}
//
// the Shipment table holds the fields item_order_id and item_product_code,
// with the chains [item order id] and [item product code].
//
// Multilink properties have no fields. Structures and arrays are stored
// as JSON text in one field.
package rel
