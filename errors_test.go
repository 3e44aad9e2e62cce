package relmap_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := relmap.NewNotFoundError("Order")
		assert.Equal(t, "relmap: Order not found", err.Error())
	})

	t.Run("ErrorWithKey", func(t *testing.T) {
		err := relmap.NewNotFoundErrorWithKey("Order", relmap.Entity{"id": 1})
		assert.Equal(t, "relmap: Order not found (key=map[id:1])", err.Error())
		assert.Equal(t, relmap.Entity{"id": 1}, err.Key())
		assert.Equal(t, "Order", err.Class())
	})

	t.Run("Is", func(t *testing.T) {
		err := relmap.NewNotFoundError("Product")
		assert.True(t, errors.Is(err, relmap.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := relmap.NewNotFoundError("Item")
		assert.True(t, relmap.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, relmap.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, relmap.IsNotFound(relmap.ErrNotFound))

		// Non-matching error
		assert.False(t, relmap.IsNotFound(errors.New("other error")))
		assert.False(t, relmap.IsNotFound(nil))
	})
}

func TestSchemaError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := relmap.NewSchemaError("Item", "order", "unknown target class \"Ordr\"")
		assert.Equal(t, `relmap: schema error on class Item property order: unknown target class "Ordr"`, err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := relmap.NewSchemaError("Item", "", "no key")
		assert.True(t, errors.Is(err, relmap.ErrInvalidSchema))
		assert.True(t, relmap.IsSchemaError(fmt.Errorf("compile: %w", err)))
		assert.False(t, relmap.IsSchemaError(nil))
	})

	t.Run("Cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := &relmap.SchemaError{Class: "Item", Message: "bad hint", Cause: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestRequestError(t *testing.T) {
	err := relmap.NewRequestError("Item", "colour", relmap.ErrPropNotFound)
	assert.Equal(t, "relmap: Item.colour: relmap: property not found", err.Error())
	assert.ErrorIs(t, err, relmap.ErrInvalidRequest)
	assert.ErrorIs(t, err, relmap.ErrPropNotFound)
	assert.True(t, relmap.IsRequestError(err))

	err = relmap.NewRequestError("Ghost", "", relmap.ErrUnknownClass)
	assert.Equal(t, "relmap: Ghost: relmap: unknown class", err.Error())
	assert.False(t, relmap.IsRequestError(errors.New("other")))
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := relmap.NewConstraintError("unique constraint", nil)
		assert.Equal(t, "relmap: constraint failed: unique constraint", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		inner := errors.New("inner error")
		err := relmap.NewConstraintError("test", inner)
		assert.ErrorIs(t, err, inner)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		driverErr := errors.New("UNIQUE constraint failed: products.code")
		err := relmap.NewDuplicateKeyError("products", driverErr)
		require.True(t, relmap.IsConstraintError(err))
		assert.True(t, relmap.IsDuplicateKey(err))
		assert.ErrorIs(t, err, driverErr)
		assert.True(t, relmap.IsDuplicateKey(relmap.NewDuplicateKeyError("products", nil)))
		assert.False(t, relmap.IsDuplicateKey(relmap.NewConstraintError("fk", nil)))
	})
}

func TestQueryError(t *testing.T) {
	inner := errors.New("connection reset")
	err := relmap.NewQueryError("Order", "get", inner)
	assert.Equal(t, "relmap: querying Order (get): connection reset", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, relmap.IsQueryError(fmt.Errorf("wrap: %w", err)))

	err.Prop = "order"
	assert.Equal(t, "relmap: querying order -> Order (get): connection reset", err.Error())
}

func TestMutationError(t *testing.T) {
	inner := relmap.NewDuplicateKeyError("products", nil)
	err := relmap.NewMutationError("Product", "insert", inner)
	assert.Equal(t, `relmap: insert Product: relmap: constraint failed: duplicate key in "products"`, err.Error())
	assert.True(t, relmap.IsMutationError(err))
	assert.True(t, relmap.IsConstraintError(err))
	assert.True(t, relmap.IsDuplicateKey(err))
}

func TestPrivacyError(t *testing.T) {
	err := relmap.NewPrivacyError("Order", "get", "DenyAnonymous")
	assert.Equal(t, "relmap: privacy denied get on Order (rule: DenyAnonymous)", err.Error())
	assert.True(t, relmap.IsPrivacyError(err))

	err = relmap.NewPrivacyError("Order", "insert", "")
	assert.Equal(t, "relmap: privacy denied insert on Order", err.Error())
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		relmap.ErrNotFound,
		relmap.ErrInvalidSchema,
		relmap.ErrInvalidRequest,
		relmap.ErrUnknownClass,
		relmap.ErrPropNotFound,
		relmap.ErrInvalidKeyPath,
		relmap.ErrMultilinkUnsupported,
		relmap.ErrDuplicateKey,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}

func TestEntity(t *testing.T) {
	t.Parallel()

	e := relmap.Entity{
		"price":   7.5,
		"order":   map[string]any{"id": int64(123)},
		"product": relmap.Entity{"code": "123"},
	}
	assert.Equal(t, []string{"order", "price", "product"}, e.Names())

	order, ok := e.Nested("order")
	require.True(t, ok)
	assert.Equal(t, int64(123), order["id"])
	_, ok = e.Nested("price")
	assert.False(t, ok)

	c := e.Clone()
	c["price"] = 1.0
	nested, _ := c.Nested("product")
	nested["code"] = "changed"
	assert.Equal(t, 7.5, e["price"])
	assert.Equal(t, "123", e["product"].(relmap.Entity)["code"])
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	k := relmap.CacheKey{Table: "items", Key: "abc", Fields: []string{"order_id", "price"}}
	assert.Equal(t, "items:", k.Prefix())
	assert.Equal(t, "items:abc:order_id,price", k.String())
}
