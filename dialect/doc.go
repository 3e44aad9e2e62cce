// Package dialect defines the storage boundary of relmap.
//
// # Adapter Interface
//
// Sessions read and write rows through the Adapter interface:
//
//	type Adapter interface {
//	    Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error)
//	    Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error
//	    ReferentialIntegrity() bool
//	}
//
// Get returns relmap.ErrNotFound for a missing row. Insert reports an
// existing key as a relmap.ConstraintError wrapping relmap.ErrDuplicateKey.
//
// # Implementations
//
//   - dialect/memory: in-process maps, for tests and embedding
//   - dialect/sql: SQLite, PostgreSQL and MySQL through database/sql
//   - dialect/bolt: bbolt files, one bucket per table
//   - dialect/cql: Cassandra through gocql
//   - dialect/cache: a read-through cache in front of any adapter
//
// # Decorators
//
// NewStats counts calls and reports slow ones, NewDebug logs every call:
//
//	a := dialect.NewStats(adapter,
//	    dialect.WithSlowThreshold(50*time.Millisecond),
//	    dialect.WithSlowLog(logger),
//	)
//	fmt.Println(a.Stats())
package dialect
