// Package privacy provides policy rules evaluated by sessions before entities
// are read from or written to storage.
//
// # Core Concepts
//
// The privacy layer is built around three main concepts:
//
//   - Policy: A collection of rules that determine access to entities
//   - Rule: A function that returns Allow, Deny, or Skip decisions
//   - Viewer: An interface representing the current user/context
//
// # Defining Policies
//
// A policy is attached to a session:
//
//	s := session.New(compiled, adapter, session.WithPolicy(privacy.Policy{
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.IsOwner("owner"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	    Query: privacy.QueryPolicy{
//	        privacy.DenyClassRule("AuditLog"),
//	    },
//	}))
//
// Query rules run once per entity read, including the nested reads of
// expanded links. Mutation rules run once per inserted entity.
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: Grants access and stops evaluation
//   - Deny: Denies access and stops evaluation
//   - Skip: Continues to the next rule
//
// If all rules return Skip, access is granted. End a policy with
// AlwaysDenyRule to deny by default.
//
// # Viewer Interface
//
// The viewer is stored in context and retrieved during policy evaluation:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//	order, err := s.Get(ctx, "Order", key, nil)
//
// # Error Handling
//
// Sessions report a denial as a *relmap.PrivacyError:
//
//	if relmap.IsPrivacyError(err) {
//	    ...
//	}
package privacy
