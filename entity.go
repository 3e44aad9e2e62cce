// Package relmap maps classes of linked entities onto flat storage rows.
//
// A schema of classes (see package schema) is compiled once into a
// relational layout (see package compiler/rel): each class gets a table,
// each scalar property a field, and each link property the flattened key
// fields of its target class, following chained keys down to their scalar
// leaves. Sessions (see package session) use that layout to insert entity
// trees and to fetch them back, expanding nested links on request.
package relmap

import (
	"maps"
	"slices"
)

// Entity is a nested value tree keyed by property names.
// A link property holds either the target's key (an Entity with the key
// properties only) or, once expanded, the target entity itself.
type Entity map[string]any

// Names returns the property names present in the entity, sorted.
func (e Entity) Names() []string {
	return slices.Sorted(maps.Keys(e))
}

// Nested returns the value of prop as an Entity.
// It accepts both Entity and map[string]any values.
func (e Entity) Nested(prop string) (Entity, bool) {
	return AsEntity(e[prop])
}

// Clone returns a deep copy of the entity. Nested entities and maps are
// copied; other values are shared.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	c := make(Entity, len(e))
	for k, v := range e {
		if n, ok := AsEntity(v); ok {
			c[k] = n.Clone()
			continue
		}
		c[k] = v
	}
	return c
}

// AsEntity converts v to an Entity if it is map shaped.
func AsEntity(v any) (Entity, bool) {
	switch v := v.(type) {
	case Entity:
		return v, v != nil
	case map[string]any:
		return Entity(v), v != nil
	default:
		return nil, false
	}
}
