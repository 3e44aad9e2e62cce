package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/syssam/relmap"
)

const ordersYAML = `
tables: plural
classes:
  - name: Order
    key: [id]
    props:
      - {name: id, type: int}
      - {name: customer, type: string, maxlen: 64, optional: true}
  - name: Item
    key: [order, line]
    props:
      - {name: order, type: link, class: Order}
      - {name: line, type: int}
      - {name: price, type: real}
`

func writeSchema(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// compile / gen
// =============================================================================

func TestCompile(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	out, err := run(t, "compile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "class: Order")
	assert.Contains(t, out, "table: orders")
	assert.Contains(t, out, "table: items")
	assert.Contains(t, out, "name: order_id")

	_, err = run(t, "compile")
	require.ErrorIs(t, err, ErrInvalidNumberOfArguments)
	_, err = run(t, "compile", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestGen(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	dir := t.TempDir()
	out, err := run(t, "gen", path, "--out", dir, "--package", "orders")
	require.NoError(t, err)
	file := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(file))
	src, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package orders")
	assert.Contains(t, string(src), "OrderTable")
}

// =============================================================================
// watch
// =============================================================================

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	w, err := newWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	c := &cli{log: zaptest.NewLogger(t)}
	ctx, cancel := context.WithCancel(context.Background())
	var out, errOut lockedBuffer
	done := make(chan error, 1)
	go func() { done <- c.watch(ctx, w, path, &out, &errOut) }()

	require.NoError(t, os.WriteFile(path, []byte("classes: [{name: Broken"), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(errOut.String(), "compile:")
	}, 5*time.Second, 10*time.Millisecond)

	renamed := strings.ReplaceAll(ordersYAML, "tables: plural", "tables: snake")
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "table: order\n")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// =============================================================================
// migrate / insert / get
// =============================================================================

func TestSQLite(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	dsn := filepath.Join(t.TempDir(), "orders.db")
	storage := []string{"--driver", "sqlite", "--dsn", dsn}

	out, err := run(t, append([]string{"migrate", path, "--dry-run"}, storage...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "add table orders")
	assert.Contains(t, out, "add table items")

	// The dry run left the database empty.
	out, err = run(t, append([]string{"migrate", path}, storage...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "add table orders")

	out, err = run(t, append([]string{"migrate", path}, storage...)...)
	require.NoError(t, err)
	assert.Empty(t, out)

	testEntities(t, path, storage)
}

func TestBolt(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	storage := []string{"--driver", "bolt", "--dsn", filepath.Join(t.TempDir(), "orders.bolt")}
	testEntities(t, path, storage)
}

func testEntities(t *testing.T, path string, storage []string) {
	t.Helper()
	cmd := func(args ...string) (string, error) {
		return run(t, append(args, storage...)...)
	}
	_, err := cmd("insert", path, "Order", `{"id": 1, "customer": "ann"}`)
	require.NoError(t, err)
	_, err = cmd("insert", path, "Item", `{"order": {"id": 1}, "line": 2, "price": 7.5}`)
	require.NoError(t, err)
	_, err = cmd("insert", path, "Order", `{"id": 1}`)
	require.True(t, relmap.IsDuplicateKey(err), "got %v", err)

	out, err := cmd("get", path, "Order", `{"id": 1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 1, "customer": "ann"}`, out)

	out, err = cmd("get", path, "Item", `{"order": {"id": 1}, "line": 2}`, "--props", "order{*},price")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order": {"id": 1, "customer": "ann"}, "price": 7.5}`, out)

	out, err = cmd("get", path, "Item", `{"order": {"id": 1}, "line": 2}`, "--cache-size", "16")
	require.NoError(t, err)
	assert.JSONEq(t, `{"order": {"id": 1}, "line": 2, "price": 7.5}`, out)

	_, err = cmd("get", path, "Order", `{"id": 9}`)
	require.True(t, relmap.IsNotFound(err), "got %v", err)
	_, err = cmd("get", path, "Order", `{"id": 1}`, "--props", "nope")
	require.True(t, relmap.IsRequestError(err), "got %v", err)
	_, err = cmd("get", path, "Order", `[1]`)
	require.Error(t, err)
	_, err = cmd("get", path, "Order")
	require.ErrorIs(t, err, ErrInvalidNumberOfArguments)
}

func TestStorageFlags(t *testing.T) {
	t.Parallel()
	path := writeSchema(t, ordersYAML)
	_, err := run(t, "get", path, "Order", `{"id": 1}`)
	require.Error(t, err)
	_, err = run(t, "migrate", path, "--driver", "bolt", "--dsn", "x")
	require.ErrorContains(t, err, "unsupported SQL driver")
}
