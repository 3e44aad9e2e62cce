package sql

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
)

// Adapter is a dialect.Adapter on top of a SQL driver.
type Adapter struct {
	drv         dialect.Driver
	foreignKeys bool
	log         *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithForeignKeys declares that the tables were created with foreign keys
// on link fields, and that the database enforces them.
func WithForeignKeys(enabled bool) AdapterOption {
	return func(a *Adapter) {
		a.foreignKeys = enabled
	}
}

// WithLogger sets the logger used to trace statements at debug level.
func WithLogger(log *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAdapter returns an adapter executing statements on drv.
func NewAdapter(drv dialect.Driver, opts ...AdapterOption) *Adapter {
	a := &Adapter{drv: drv, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("sql")
	return a
}

// Driver returns the underlying driver.
func (a *Adapter) Driver() dialect.Driver { return a.drv }

// Get implements dialect.Adapter. An empty field list checks the row exists.
func (a *Adapter) Get(ctx context.Context, table string, key map[string]any, fields []string) (map[string]any, error) {
	query, args, err := a.selectQuery(table, key, fields)
	if err != nil {
		return nil, err
	}
	a.log.Debug("query", zap.String("table", table), zap.String("sql", query), zap.Any("args", args))
	rows := &Rows{}
	if err := a.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("dialect/sql: %s: %w", table, err)
		}
		return nil, fmt.Errorf("dialect/sql: %s: %w", table, relmap.ErrNotFound)
	}
	out := make(map[string]any, len(fields))
	if len(fields) == 0 {
		var one any
		if err := rows.Scan(&one); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan %s: %w", table, err)
		}
		return out, rows.Err()
	}
	values := make([]any, len(fields))
	dest := make([]any, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("dialect/sql: scan %s: %w", table, err)
	}
	for i, f := range fields {
		out[f] = scanned(values[i])
	}
	return out, rows.Err()
}

// Insert implements dialect.Adapter.
func (a *Adapter) Insert(ctx context.Context, table string, values map[string]any, keyFields []string) error {
	for _, f := range keyFields {
		if values[f] == nil {
			return fmt.Errorf("dialect/sql: insert into %s: %w: missing value for key field %q", table, relmap.ErrInvalidRequest, f)
		}
	}
	query, args, err := a.insertQuery(table, values)
	if err != nil {
		return err
	}
	a.log.Debug("exec", zap.String("table", table), zap.String("sql", query), zap.Any("args", args))
	if err := a.drv.Exec(ctx, query, args, nil); err != nil {
		if IsUniqueConstraintError(err) {
			return relmap.NewDuplicateKeyError(table, err)
		}
		if IsForeignKeyConstraintError(err) {
			return relmap.NewConstraintError(fmt.Sprintf("foreign key in %q", table), err)
		}
		return fmt.Errorf("dialect/sql: insert into %s: %w", table, err)
	}
	return nil
}

// ReferentialIntegrity implements dialect.Adapter.
func (a *Adapter) ReferentialIntegrity() bool { return a.foreignKeys }

func (a *Adapter) selectQuery(table string, key map[string]any, fields []string) (string, []any, error) {
	if len(key) == 0 {
		return "", nil, fmt.Errorf("dialect/sql: select from %s: %w: empty key", table, relmap.ErrInvalidRequest)
	}
	names := slices.Sorted(maps.Keys(key))
	if err := checkIdents(table, names, fields); err != nil {
		return "", nil, err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(fields) == 0 {
		b.WriteString("1")
	}
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.quote(f))
	}
	b.WriteString(" FROM ")
	b.WriteString(a.quote(table))
	b.WriteString(" WHERE ")
	args := make([]any, 0, len(names))
	for i, name := range names {
		if key[name] == nil {
			return "", nil, fmt.Errorf("dialect/sql: select from %s: %w: nil value for key field %q", table, relmap.ErrInvalidRequest, name)
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(a.quote(name))
		b.WriteString(" = ")
		b.WriteString(a.placeholder(i + 1))
		args = append(args, key[name])
	}
	return b.String(), args, nil
}

func (a *Adapter) insertQuery(table string, values map[string]any) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("dialect/sql: insert into %s: %w: no values", table, relmap.ErrInvalidRequest)
	}
	columns := slices.Sorted(maps.Keys(values))
	if err := checkIdents(table, columns, nil); err != nil {
		return "", nil, err
	}
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		quoted[i] = a.quote(c)
		marks[i] = a.placeholder(i + 1)
		args[i] = values[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		a.quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	return query, args, nil
}

// quote quotes an identifier for the dialect of the driver.
func (a *Adapter) quote(ident string) string {
	if a.drv.Dialect() == dialect.Postgres {
		return strconv.Quote(ident)
	}
	return "`" + ident + "`"
}

// placeholder returns the i-th (1-based) argument placeholder.
func (a *Adapter) placeholder(i int) string {
	if a.drv.Dialect() == dialect.Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// checkIdents rejects table and field names outside the identifier charset.
func checkIdents(table string, lists ...[]string) error {
	if !isValidIdentifier(table) {
		return fmt.Errorf("dialect/sql: %w: invalid table name %q", relmap.ErrInvalidRequest, table)
	}
	for _, names := range lists {
		for _, name := range names {
			if !isValidIdentifier(name) {
				return fmt.Errorf("dialect/sql: %w: invalid field name %q in %s", relmap.ErrInvalidRequest, name, table)
			}
		}
	}
	return nil
}

// scanned copies driver owned byte slices into strings.
func scanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

var _ dialect.Adapter = (*Adapter)(nil)
