package privacy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/relmap"
)

// =============================================================================
// Viewer rules
// =============================================================================

func TestViewerContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ViewerFromContext(context.Background()))
	v := &SimpleViewer{UserID: "u1", Roles: []string{"user"}, TenantID: "t1"}
	ctx := WithViewer(context.Background(), v)
	got := ViewerFromContext(ctx)
	assert.Equal(t, "u1", got.GetID())
	assert.Equal(t, []string{"user"}, got.GetRoles())
	assert.Equal(t, "t1", got.GetTenantID())
}

func TestDenyIfNoViewer(t *testing.T) {
	t.Parallel()

	rule := DenyIfNoViewer()
	assert.ErrorIs(t, rule.EvalQuery(context.Background(), &Query{}), Deny)
	ctx := WithViewer(context.Background(), &SimpleViewer{UserID: "u1"})
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{}), Skip)
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	admin := WithViewer(context.Background(), &SimpleViewer{UserID: "a", Roles: []string{"admin"}})
	user := WithViewer(context.Background(), &SimpleViewer{UserID: "u", Roles: []string{"user"}})

	assert.ErrorIs(t, HasRole("admin").EvalQuery(admin, &Query{}), Allow)
	assert.ErrorIs(t, HasRole("admin").EvalQuery(user, &Query{}), Skip)
	assert.ErrorIs(t, HasRole("admin").EvalQuery(context.Background(), &Query{}), Skip)
	assert.ErrorIs(t, HasAnyRole("moderator", "user").EvalMutation(user, &Mutation{}), Allow)
	assert.ErrorIs(t, HasAnyRole("moderator").EvalMutation(user, &Mutation{}), Skip)
}

func TestIsOwner(t *testing.T) {
	t.Parallel()

	ctx := WithViewer(context.Background(), &SimpleViewer{UserID: "42"})
	rule := IsOwner("owner")
	tests := []struct {
		name   string
		values relmap.Entity
		want   error
	}{
		{name: "String", values: relmap.Entity{"owner": "42"}, want: Allow},
		{name: "Int64", values: relmap.Entity{"owner": int64(42)}, want: Allow},
		{name: "Int", values: relmap.Entity{"owner": 42}, want: Allow},
		{name: "LinkKey", values: relmap.Entity{"owner": relmap.Entity{"id": int64(42)}}, want: Allow},
		{name: "Other", values: relmap.Entity{"owner": "7"}, want: Skip},
		{name: "Missing", values: relmap.Entity{}, want: Skip},
	}
	for _, tt := range tests {
		err := rule.EvalMutation(ctx, &Mutation{Class: "Order", Values: tt.values})
		assert.ErrorIs(t, err, tt.want, tt.name)
	}
	assert.ErrorIs(t, rule.EvalMutation(context.Background(), &Mutation{Values: relmap.Entity{"owner": "42"}}), Skip)
}

func TestTenantRule(t *testing.T) {
	t.Parallel()

	ctx := WithViewer(context.Background(), &SimpleViewer{UserID: "u", TenantID: "acme"})
	rule := TenantRule("tenant")
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{Values: relmap.Entity{"tenant": "acme"}}), Allow)
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{Values: relmap.Entity{"tenant": "other"}}), Deny)
	assert.ErrorIs(t, rule.EvalMutation(ctx, &Mutation{Values: relmap.Entity{}}), Skip)

	noTenant := WithViewer(context.Background(), &SimpleViewer{UserID: "u"})
	assert.ErrorIs(t, rule.EvalMutation(noTenant, &Mutation{Values: relmap.Entity{"tenant": "acme"}}), Skip)
}

func TestQueryGuards(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, OwnerQueryRule().EvalQuery(context.Background(), &Query{}), Deny)
	assert.ErrorIs(t, TenantQueryRule().EvalQuery(context.Background(), &Query{}), Deny)

	noTenant := WithViewer(context.Background(), &SimpleViewer{UserID: "u"})
	assert.ErrorIs(t, OwnerQueryRule().EvalQuery(noTenant, &Query{}), Skip)
	assert.ErrorIs(t, TenantQueryRule().EvalQuery(noTenant, &Query{}), Deny)

	tenant := WithViewer(context.Background(), &SimpleViewer{UserID: "u", TenantID: "acme"})
	assert.ErrorIs(t, TenantQueryRule().EvalQuery(tenant, &Query{}), Skip)
}
