package sql_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "relmap.db") + "?_pragma=foreign_keys(1)"
	drv, err := sql.Open(dialect.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	ctx := context.Background()
	for _, ddl := range []string{
		"CREATE TABLE `orders` (`id` varchar(20) NOT NULL, `placed` timestamp, PRIMARY KEY (`id`))",
		"CREATE TABLE `items` (`order_id` varchar(20) NOT NULL, `pos` integer NOT NULL, `qty` integer, `gift` smallint, " +
			"PRIMARY KEY (`order_id`, `pos`), FOREIGN KEY (`order_id`) REFERENCES `orders` (`id`))",
	} {
		require.NoError(t, drv.Exec(ctx, ddl, []any{}, nil))
	}
	return drv
}

func TestSQLite_RoundTrip(t *testing.T) {
	t.Parallel()
	a := sql.NewAdapter(openSQLite(t), sql.WithForeignKeys(true))
	ctx := context.Background()
	placed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	require.NoError(t, a.Insert(ctx, "orders", map[string]any{"id": "A-1", "placed": placed}, []string{"id"}))
	require.NoError(t, a.Insert(ctx, "items",
		map[string]any{"order_id": "A-1", "pos": int64(1), "qty": int64(4), "gift": int64(1)},
		[]string{"order_id", "pos"}))

	row, err := a.Get(ctx, "items", map[string]any{"order_id": "A-1", "pos": int64(1)}, []string{"qty", "gift", "order_id"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"qty": int64(4), "gift": int64(1), "order_id": "A-1"}, row)

	row, err = a.Get(ctx, "orders", map[string]any{"id": "A-1"}, []string{"placed"})
	require.NoError(t, err)
	require.NotNil(t, row["placed"])

	_, err = a.Get(ctx, "items", map[string]any{"order_id": "A-1", "pos": int64(2)}, []string{"qty"})
	require.True(t, relmap.IsNotFound(err))

	err = a.Insert(ctx, "orders", map[string]any{"id": "A-1"}, []string{"id"})
	require.True(t, relmap.IsDuplicateKey(err), "got %v", err)

	err = a.Insert(ctx, "items", map[string]any{"order_id": "B-9", "pos": int64(1)}, []string{"order_id", "pos"})
	require.True(t, relmap.IsConstraintError(err), "got %v", err)
	require.False(t, relmap.IsDuplicateKey(err))
}
