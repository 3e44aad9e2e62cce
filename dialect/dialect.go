package dialect

import (
	"context"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Bolt     = "bolt"
	CQL      = "cql"
	Memory   = "memory"
)

// Adapter is the storage boundary: point lookups and inserts of flat rows
// keyed by table name and field values. Adapters must be safe for
// concurrent use.
type Adapter interface {
	// Get returns the named fields of the row whose key fields equal key.
	// It returns an error matching relmap.ErrNotFound if there is no such row.
	Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error)

	// Insert stores a new row. keyFields names the fields of values that
	// form the row key. An existing row with the same key is reported as a
	// relmap.ConstraintError wrapping relmap.ErrDuplicateKey.
	Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error

	// ReferentialIntegrity reports if the storage enforces that link fields
	// reference existing rows. It is informational.
	ReferentialIntegrity() bool
}

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for SQL
// based adapters.
type Driver interface {
	ExecQuerier
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}
