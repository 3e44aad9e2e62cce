// Package session fetches and inserts entity trees through a storage adapter.
//
// A Session pairs a compiled schema with a dialect.Adapter. Get reads one
// entity by key and expands the links named in its property set, one
// storage lookup per entity node:
//
//	s := session.New(compiled, memory.New())
//	item, err := s.Get(ctx, "Item", relmap.Entity{
//	    "order":   relmap.Entity{"id": int64(123)},
//	    "product": relmap.Entity{"code": "123"},
//	}, propset.MustParse("order{*},price"))
//
// Within one call, an entity reachable through several links is read once.
// A nested entity that has no row leaves the bare link key in place; a
// missing root entity is reported as a *relmap.NotFoundError.
package session
