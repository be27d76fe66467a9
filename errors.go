package warehouse

import (
	"fmt"
	"strings"
)

type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return fmt.Sprintf("storage is currently locked")
}

type EntityRelationError struct {
	child, parent Entity
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("child (%v) already has parent %v", e.child, e.parent)
}

type ComponentExistsError struct {
	Component Component
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity: %T", e.Component)
}

type ComponentNotFoundError struct {
	Component Component
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: %T", e.Component)
}

// KindAlreadyRegisteredWithDifferentLayoutError is returned when a component
// type is registered twice with conflicting size/alignment/storage class.
type KindAlreadyRegisteredWithDifferentLayoutError struct {
	TypeName string
}

func (e KindAlreadyRegisteredWithDifferentLayoutError) Error() string {
	return fmt.Sprintf("component kind %q already registered with a different layout", e.TypeName)
}

// RegistryLockedError is returned by Registry.RegisterType when a new
// component kind is registered while the registry is locked.
type RegistryLockedError struct{}

func (e RegistryLockedError) Error() string {
	return "component registry is locked during iteration"
}

// EntityIndexInUseError reports that a requested entity index is already
// occupied by a live entity. No function in this package returns it.
type EntityIndexInUseError struct {
	Index int
}

func (e EntityIndexInUseError) Error() string {
	return fmt.Sprintf("entity index %d is already in use", e.Index)
}

// EntityStaleError reports that an entity handle no longer matches the live
// occupant of its slot. No function in this package returns it.
type EntityStaleError struct {
	Entity Entity
}

func (e EntityStaleError) Error() string {
	return fmt.Sprintf("entity %v is stale", e.Entity)
}

// RowInvalidatedError reports a row index retained across an archetype
// move. No function in this package returns it.
type RowInvalidatedError struct{}

func (e RowInvalidatedError) Error() string {
	return "row index invalidated by an archetype transition"
}

// ConflictingAccessError is returned at query build time when two terms
// declare write access to the same component. Schedule.Build does not
// return it; the multi-threaded executor runs systems with overlapping
// writes in separate batches instead.
type ConflictingAccessError struct {
	Detail string
}

func (e ConflictingAccessError) Error() string {
	return fmt.Sprintf("conflicting access: %s", e.Detail)
}

// NotUniqueError describes a match set that is not exactly one entity.
// Query.Single reports that case as ok=false and does not return this
// error.
type NotUniqueError struct {
	Count int
}

func (e NotUniqueError) Error() string {
	if e.Count == 0 {
		return "query matched no entities, want exactly one"
	}
	return fmt.Sprintf("query matched %d entities, want exactly one", e.Count)
}

// StaleIterationError is returned when the world's archetype generation
// advances during an in-progress iteration.
type StaleIterationError struct{}

func (e StaleIterationError) Error() string {
	return "archetype generation advanced during iteration"
}

// CycleInScheduleError is returned by Schedule.Build when system/set edges
// form a cycle. Path names the offending chain of nodes.
type CycleInScheduleError struct {
	Path []string
}

func (e CycleInScheduleError) Error() string {
	return fmt.Sprintf("cycle in schedule: %s", strings.Join(e.Path, " -> "))
}
