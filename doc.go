/*
Package warehouse provides an Entity-Component-System (ECS) runtime built on
archetype-based storage.

Warehouse keeps entities with the same component set together in a single
table so systems iterating over them get contiguous, cache-friendly access.
On top of archetype storage it layers the pieces a scheduled simulation
needs: a resource store for singleton state, a double-buffered message bus,
a change-tick engine for Added/Changed queries, a schedule graph that orders
systems and inserts apply-deferred barriers, and an executor that runs
systems single- or multi-threaded according to their declared access.

Core Concepts:

  - Entity: a stable identifier for a bag of components.
  - Component: a registered data type attachable to entities.
  - Archetype: the set of component kinds shared by a cohort of entities,
    and the column storage backing them.
  - Query: a way to find entities with specific component combinations,
    optionally filtered by Added/Changed.
  - Resource: a singleton value keyed by type.
  - Message: a value pushed into a per-type double-buffered queue and read
    by cursor-carrying readers.
  - System / Schedule: a function with declared access, ordered against
    other systems by a schedule graph and run by an executor.

Basic Usage:

	schema := table.Factory.NewSchema()
	storage := warehouse.Factory.NewStorage(schema)

	position := warehouse.FactoryNewComponent[Position]()
	velocity := warehouse.FactoryNewComponent[Velocity]()

	entities, _ := storage.NewEntities(100, position, velocity)

	query := warehouse.Factory.NewQuery()
	queryNode := query.And(position, velocity)
	cursor := warehouse.Factory.NewCursor(queryNode, storage)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Scheduled systems, resources, messages and sub-worlds are built on the same
storage and are introduced incrementally in world.go, schedule.go,
executor.go, resource.go, message.go and subworld.go.
*/
package warehouse
