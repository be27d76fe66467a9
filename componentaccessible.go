package warehouse

import "github.com/TheBitDrifter/table"

// AccessibleComponent extends a base Component with table-based accessibility
// It provides methods to retrieve components using different access patterns
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T] // concrete.
}

// GetFromCursor retrieves a component value for the entity at the cursor position
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(
		cursor.entityIndex-1,
		cursor.currentArchetype.table,
	)
}

// GetFromCursorSafe safely retrieves a component value, checking if the component exists
// Returns a boolean indicating success and the component pointer if found
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	ok := c.Accessor.Check(cursor.currentArchetype.table)
	if ok {
		return true, c.GetFromCursor(cursor)
	}
	return false, nil
}

// CheckCursor determines if the component exists in the archetype at the cursor position
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.currentArchetype.table)
}

// GetFromEntity retrieves a component value for the specified entity
func (c AccessibleComponent[T]) GetFromEntity(entity Entity) *T {
	return c.Get(entity.Index(), entity.Table())
}

// GetMutFromCursor returns a pointer to the component value at the cursor
// position and stamps the cell's changed-tick against the storage's current
// tick, so a subsequent Changed[T] query observes this write.
func (c AccessibleComponent[T]) GetMutFromCursor(cursor *Cursor) *T {
	rowIndex := cursor.storage.RowIndexFor(c.Component)
	cursor.currentArchetype.markChanged(rowIndex, cursor.entityIndex-1, cursor.storage.currentTick())
	return c.GetFromCursor(cursor)
}

// AddedSinceCursor reports whether the component at the cursor position was
// added to its archetype cell at or after sinceTick.
func (c AccessibleComponent[T]) AddedSinceCursor(cursor *Cursor, sinceTick uint32) bool {
	rowIndex := cursor.storage.RowIndexFor(c.Component)
	return cursor.currentArchetype.addedTick(rowIndex, cursor.entityIndex-1) >= sinceTick
}

// ChangedSinceCursor reports whether the component at the cursor position
// was written (added or mutated) at or after sinceTick.
func (c AccessibleComponent[T]) ChangedSinceCursor(cursor *Cursor, sinceTick uint32) bool {
	rowIndex := cursor.storage.RowIndexFor(c.Component)
	return cursor.currentArchetype.changedTick(rowIndex, cursor.entityIndex-1) >= sinceTick
}

// OptionalComponent wraps an AccessibleComponent for terms added via
// QueryBuilder.Optional: presence never affects which archetypes a Query
// matches, so callers must always use the Safe/Check accessors instead of
// assuming the cursor's current archetype carries it.
type OptionalComponent[T any] struct {
	AccessibleComponent[T]
}

// NewOptionalComponent wraps c for optional-term access.
func NewOptionalComponent[T any](c AccessibleComponent[T]) OptionalComponent[T] {
	return OptionalComponent[T]{AccessibleComponent: c}
}

// GetFromCursor returns the component value at the cursor position and
// whether the current archetype carries it at all.
func (c OptionalComponent[T]) GetFromCursor(cursor *Cursor) (*T, bool) {
	ok, v := c.AccessibleComponent.GetFromCursorSafe(cursor)
	return v, ok
}
