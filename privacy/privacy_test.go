package privacy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
)

// =============================================================================
// Decision helpers
// =============================================================================

func TestDecisionf(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Allowf("admin %s", "bob"), Allow)
	assert.ErrorIs(t, Denyf("blocked"), Deny)
	assert.ErrorIs(t, Skipf("n/a"), Skip)
	assert.Equal(t, "admin bob: relmap/privacy: allow rule", Allowf("admin %s", "bob").Error())
}

func TestDecisionContext(t *testing.T) {
	t.Parallel()

	t.Run("Skip", func(t *testing.T) {
		t.Parallel()
		ctx := DecisionContext(context.Background(), Skip)
		_, ok := DecisionFromContext(ctx)
		assert.False(t, ok)
	})

	t.Run("Allow", func(t *testing.T) {
		t.Parallel()
		ctx := DecisionContext(context.Background(), Allow)
		decision, ok := DecisionFromContext(ctx)
		assert.True(t, ok)
		assert.NoError(t, decision)
	})

	t.Run("Deny", func(t *testing.T) {
		t.Parallel()
		ctx := DecisionContext(context.Background(), Deny)
		decision, ok := DecisionFromContext(ctx)
		assert.True(t, ok)
		assert.ErrorIs(t, decision, Deny)
	})

	t.Run("OverridesPolicy", func(t *testing.T) {
		t.Parallel()
		ctx := DecisionContext(context.Background(), Allow)
		p := Policy{Query: QueryPolicy{AlwaysDenyRule()}}
		assert.NoError(t, p.EvalQuery(ctx, &Query{Class: "Order"}))
	})
}

// =============================================================================
// Policy evaluation
// =============================================================================

func TestQueryPolicy(t *testing.T) {
	t.Parallel()

	var calls int
	count := QueryRuleFunc(func(context.Context, *Query) error {
		calls++
		return Skip
	})
	tests := []struct {
		name   string
		policy QueryPolicy
		deny   bool
	}{
		{name: "Empty", policy: nil},
		{name: "AllSkip", policy: QueryPolicy{count, count}},
		{name: "NilIsSkip", policy: QueryPolicy{QueryRuleFunc(func(context.Context, *Query) error { return nil })}},
		{name: "AllowStops", policy: QueryPolicy{AlwaysAllowRule(), AlwaysDenyRule()}},
		{name: "DenyStops", policy: QueryPolicy{AlwaysDenyRule(), AlwaysAllowRule()}, deny: true},
	}
	for _, tt := range tests {
		err := tt.policy.EvalQuery(context.Background(), &Query{Class: "Order"})
		if tt.deny {
			assert.ErrorIs(t, err, Deny, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
	assert.Equal(t, 2, calls)
}

func TestMutationPolicy(t *testing.T) {
	t.Parallel()

	custom := errors.New("custom failure")
	p := MutationPolicy{
		MutationRuleFunc(func(_ context.Context, m *Mutation) error {
			if _, ok := m.Field("locked"); ok {
				return custom
			}
			return Skip
		}),
		AlwaysAllowRule(),
	}
	ctx := context.Background()
	require.NoError(t, p.EvalMutation(ctx, &Mutation{Class: "Order", Values: relmap.Entity{"id": int64(1)}}))
	err := p.EvalMutation(ctx, &Mutation{Class: "Order", Values: relmap.Entity{"locked": true}})
	assert.ErrorIs(t, err, custom)
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := &Query{Class: "Order"}
	m := &Mutation{Class: "Order"}

	allowFirst := Policies{
		{Query: QueryPolicy{AlwaysAllowRule()}, Mutation: MutationPolicy{AlwaysAllowRule()}},
		{Query: QueryPolicy{AlwaysDenyRule()}, Mutation: MutationPolicy{AlwaysDenyRule()}},
	}
	assert.NoError(t, allowFirst.EvalQuery(ctx, q))
	assert.NoError(t, allowFirst.EvalMutation(ctx, m))

	skipThenDeny := Policies{
		{},
		{Query: QueryPolicy{AlwaysDenyRule()}, Mutation: MutationPolicy{AlwaysDenyRule()}},
	}
	assert.ErrorIs(t, skipThenDeny.EvalQuery(ctx, q), Deny)
	assert.ErrorIs(t, skipThenDeny.EvalMutation(ctx, m), Deny)

	assert.True(t, Policy{}.Empty())
	assert.False(t, skipThenDeny[1].Empty())
}

func TestOnClasses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rule := DenyClassRule("AuditLog", "Secret")
	assert.ErrorIs(t, rule.EvalQuery(ctx, &Query{Class: "AuditLog"}), Deny)
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{Class: "Secret"}), Deny)
	assert.ErrorIs(t, rule.EvalQuery(ctx, &Query{Class: "Order"}), Skip)
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{Class: "Order"}), Skip)

	insert := AllowClassInsertRule("Order")
	assert.ErrorIs(t, insert.EvalMutation(ctx, &Mutation{Class: "Order"}), Allow)
	assert.ErrorIs(t, insert.EvalMutation(ctx, &Mutation{Class: "Item"}), Skip)
}

func TestContextQueryMutationRule(t *testing.T) {
	t.Parallel()

	type flag struct{}
	rule := ContextQueryMutationRule(func(ctx context.Context) error {
		if ctx.Value(flag{}) != nil {
			return Allow
		}
		return Skip
	})
	ctx := context.WithValue(context.Background(), flag{}, true)
	assert.ErrorIs(t, rule.EvalQuery(ctx, &Query{}), Allow)
	assert.ErrorIs(t, rule.EvalMutation(context.Background(), &Mutation{}), Skip)
}
