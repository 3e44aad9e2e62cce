// Package schema creates SQL tables for a compiled relmap schema using atlas.
//
// Tables maps every class to an atlas table: one column per physical field,
// the key fields as primary key, and optionally one foreign key per link.
// Migrate inspects the live database, diffs it with those tables and applies
// the additive part of the diff:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	m := schema.NewMigrate(drv, schema.WithTableOptions(schema.WithForeignKeys(true)))
//	if err := m.Create(ctx, compiled); err != nil {
//	    return err
//	}
package schema
