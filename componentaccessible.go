package archon

import "github.com/ninthtower/archon/table"

// AccessibleComponent extends a base Component with table-based
// accessibility, giving typed pointer access to a component's value
// from a cursor position or an entity handle.
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T]
}

// GetFromCursor retrieves the component value for the entity at the
// cursor's current position. Panics if the current archetype has no
// column for T; callers iterating a query that required this
// component never hit that path.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(cursor.entityIndex-1, cursor.currentArchetype.table)
}

// GetFromCursorSafe is GetFromCursor's optional-column counterpart: it
// reports whether the component is present before dereferencing,
// supporting queries built with Query.Optional.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.Accessor.Check(cursor.currentArchetype.table) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether the component is present in the
// archetype at the cursor's current position.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.currentArchetype.table)
}

// GetFromEntity retrieves the component value for the given entity,
// independent of any cursor.
func (c AccessibleComponent[T]) GetFromEntity(entity Entity) *T {
	return c.Get(entity.Index(), entity.Table())
}
