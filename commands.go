package warehouse

// CommandBuffer accumulates structural mutations (spawns, despawns, typed
// component and resource edits) a system wants applied at the next schedule
// barrier instead of immediately, so a system iterating a Cursor never
// invalidates its own archetype out from under it mid-pass.
type CommandBuffer struct {
	world *World
	ops   []WorldOperation
}

// NewCommandBuffer returns an empty buffer bound to w.
func NewCommandBuffer(w *World) *CommandBuffer {
	return &CommandBuffer{world: w}
}

// EntityBuilder accumulates the components for one pending spawn.
type EntityBuilder struct {
	cmds       *CommandBuffer
	components []Component
}

// Spawn starts building a new entity; call Observe to create it immediately
// or Enqueue to defer creation until the buffer is applied.
func (b *CommandBuffer) Spawn(components ...Component) *EntityBuilder {
	return &EntityBuilder{cmds: b, components: components}
}

// Observe creates the entity right away and returns its handle, for callers
// that need a live Entity within the same system call (e.g. to store it in
// another component written later in the same pass).
func (b *EntityBuilder) Observe() (Entity, error) {
	return Spawn(b.cmds.world, b.components...)
}

// Enqueue defers the spawn until the owning CommandBuffer is applied.
func (b *EntityBuilder) Enqueue() {
	b.cmds.ops = append(b.cmds.ops, spawnOperation{components: b.components})
}

// Despawn defers destroying e.
func (b *CommandBuffer) Despawn(e Entity) {
	b.ops = append(b.ops, despawnOperation{entity: e})
}

// SetDeferred defers setting e's value for component type T.
func SetDeferred[T any](b *CommandBuffer, e Entity, v T) {
	b.ops = append(b.ops, SetComponentOperation[T]{entity: e, value: v})
}

// RemoveDeferred defers removing component type T from e.
func RemoveDeferred[T any](b *CommandBuffer, e Entity) {
	b.ops = append(b.ops, RemoveComponentDeferredOperation[T]{entity: e})
}

// InsertResourceDeferred defers installing v as the world's resource value
// for type T.
func InsertResourceDeferred[T any](b *CommandBuffer, v T) {
	b.ops = append(b.ops, InsertResourceOperation[T]{value: v})
}

// RemoveResourceDeferred defers removing the world's resource value for
// type T.
func RemoveResourceDeferred[T any](b *CommandBuffer) {
	b.ops = append(b.ops, RemoveResourceOperation[T]{})
}

// Apply runs every queued operation against w, in enqueue order, and clears
// the buffer. An error aborts the remaining operations.
func (b *CommandBuffer) Apply(w *World) error {
	ops := b.ops
	b.ops = nil
	for _, op := range ops {
		if err := op.Apply(w); err != nil {
			return err
		}
	}
	return nil
}

// Clear discards any queued operations without applying them.
func (b *CommandBuffer) Clear() {
	b.ops = nil
}
