package schema

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"go.uber.org/zap"

	"github.com/syssam/relmap/compiler/rel"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
)

// Migrate creates and extends the tables of a compiled schema on a live
// database. It never drops or alters existing tables and columns.
type Migrate struct {
	drv     *sql.Driver
	tables  []TableOption
	log     *zap.Logger
	atlasFn func(*sql.Driver) (migrate.Driver, error)
}

// MigrateOption configures a Migrate.
type MigrateOption func(*Migrate)

// WithTableOptions sets the options used to build the tables.
func WithTableOptions(opts ...TableOption) MigrateOption {
	return func(m *Migrate) {
		m.tables = append(m.tables, opts...)
	}
}

// WithLogger sets the logger used to report planned changes.
func WithLogger(log *zap.Logger) MigrateOption {
	return func(m *Migrate) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMigrate returns a Migrate for the given driver.
func NewMigrate(drv *sql.Driver, opts ...MigrateOption) *Migrate {
	m := &Migrate{drv: drv, log: zap.NewNop(), atlasFn: atlasDriver}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("migrate")
	return m
}

// Create applies the changes computed by Diff.
func (m *Migrate) Create(ctx context.Context, s *rel.Schema) error {
	drv, err := m.atlasFn(m.drv)
	if err != nil {
		return err
	}
	changes, err := m.diff(ctx, drv, s)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		m.log.Debug("schema is up to date")
		return nil
	}
	if err := drv.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("sql/schema: apply changes: %w", err)
	}
	return nil
}

// Diff returns the changes needed to bring the live schema up to date:
// missing tables and missing nullable columns.
func (m *Migrate) Diff(ctx context.Context, s *rel.Schema) ([]schema.Change, error) {
	drv, err := m.atlasFn(m.drv)
	if err != nil {
		return nil, err
	}
	return m.diff(ctx, drv, s)
}

func (m *Migrate) diff(ctx context.Context, drv migrate.Driver, s *rel.Schema) ([]schema.Change, error) {
	opts := append([]TableOption{WithDialect(m.drv.Dialect())}, m.tables...)
	tables, err := Tables(s, opts...)
	if err != nil {
		return nil, fmt.Errorf("sql/schema: %w", err)
	}
	if err := ValidateTables(tables).Err(); err != nil {
		return nil, fmt.Errorf("sql/schema: %w", err)
	}
	current, err := drv.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("sql/schema: inspect: %w", err)
	}
	res := ValidateDiff(current.Tables, tables)
	for _, w := range res.Warnings {
		m.log.Warn("unmapped column", zap.String("table", w.Table), zap.String("column", w.Column))
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("sql/schema: %w", err)
	}
	desired := &schema.Schema{Name: current.Name, Realm: current.Realm, Attrs: current.Attrs}
	for _, t := range tables {
		t.Schema = desired
	}
	desired.Tables = tables
	changes, err := drv.SchemaDiff(current, desired)
	if err != nil {
		return nil, fmt.Errorf("sql/schema: diff: %w", err)
	}
	changes = additive(changes)
	for _, c := range changes {
		m.log.Info("planned change", zap.String("change", Describe(c)))
	}
	return changes, nil
}

// additive keeps the changes that create tables or add columns.
func additive(changes []schema.Change) []schema.Change {
	var out []schema.Change
	for _, c := range changes {
		switch c := c.(type) {
		case *schema.AddTable:
			out = append(out, c)
		case *schema.ModifyTable:
			var keep []schema.Change
			for _, mc := range c.Changes {
				if ac, ok := mc.(*schema.AddColumn); ok {
					keep = append(keep, ac)
				}
			}
			if len(keep) > 0 {
				out = append(out, &schema.ModifyTable{T: c.T, Changes: keep})
			}
		}
	}
	return out
}

// Describe returns a one line summary of a change planned by Diff.
func Describe(c schema.Change) string {
	switch c := c.(type) {
	case *schema.AddTable:
		return "add table " + c.T.Name
	case *schema.ModifyTable:
		return fmt.Sprintf("add %d column(s) to %s", len(c.Changes), c.T.Name)
	default:
		return fmt.Sprintf("%T", c)
	}
}

// atlasDriver opens the atlas driver matching the dialect of drv.
func atlasDriver(drv *sql.Driver) (migrate.Driver, error) {
	switch drv.Dialect() {
	case dialect.SQLite:
		return sqlite.Open(drv.DB())
	case dialect.Postgres:
		return postgres.Open(drv.DB())
	case dialect.MySQL:
		return mysql.Open(drv.DB())
	default:
		return nil, fmt.Errorf("sql/schema: unsupported dialect %q", drv.Dialect())
	}
}
