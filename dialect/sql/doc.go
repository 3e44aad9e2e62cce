// Package sql implements the storage adapter for SQL databases.
//
// Each class table is read with a single-row SELECT on its key fields and
// written with a plain INSERT. Identifiers are quoted per dialect:
//
//	// PostgreSQL
//	SELECT "qty", "order_id" FROM "items" WHERE "order_id" = $1 AND "pos" = $2
//
//	// MySQL and SQLite
//	SELECT `qty`, `order_id` FROM `items` WHERE `order_id` = ? AND `pos` = ?
//
// # Usage
//
//	drv, err := sql.Open(dialect.SQLite, "file:shop.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	a := sql.NewAdapter(drv, sql.WithForeignKeys(true))
//
// Tables are created from a compiled schema by the migrate package in
// dialect/sql/schema.
package sql
