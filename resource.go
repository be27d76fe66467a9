package warehouse

import (
	"reflect"
	"sync"
)

// ResourceID is a stable small integer assigned to a resource kind on first
// insertion.
type ResourceID uint32

// resourceSlot holds a single world-global value of some resource kind,
// alongside the ticks it was inserted and last mutated at.
type resourceSlot struct {
	value       any
	addedTick   uint32
	changedTick uint32
}

// ResourceStore holds at most one value per registered type, the same
// pattern the cache.go machinery uses for component metadata, applied here
// to singleton world state (time, input, asset tables) instead of per-entity
// data.
type ResourceStore struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ResourceID
	slots  []*resourceSlot
	tickFn func() uint32
}

// NewResourceStore creates an empty resource store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		byType: make(map[reflect.Type]ResourceID),
		tickFn: func() uint32 { return 0 },
	}
}

func (rs *ResourceStore) setTickProvider(fn func() uint32) {
	if fn == nil {
		fn = func() uint32 { return 0 }
	}
	rs.tickFn = fn
}

func resourceType[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

func (rs *ResourceStore) slotFor(t reflect.Type) (*resourceSlot, ResourceID, bool) {
	id, ok := rs.byType[t]
	if !ok {
		return nil, 0, false
	}
	return rs.slots[id-1], id, true
}

// InsertResource stores v as the world's value for type T, overwriting any
// previous value. A first insertion stamps both ticks to the current tick;
// an overwrite stamps only the changed-tick. The value is
// boxed as *T internally so ReadHandle/WriteHandle always observe the same
// backing storage.
func InsertResource[T any](rs *ResourceStore, v T) ResourceID {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	t := resourceType[T]()
	tick := rs.tickFn()
	boxed := new(T)
	*boxed = v
	if slot, id, ok := rs.slotFor(t); ok {
		slot.value = boxed
		slot.changedTick = tick
		return id
	}
	rs.slots = append(rs.slots, &resourceSlot{value: boxed, addedTick: tick, changedTick: tick})
	id := ResourceID(len(rs.slots))
	rs.byType[t] = id
	return id
}

// InitResource inserts the zero value of T if none is present yet, and
// returns the resulting id either way. Mirrors the idempotent registration
// style of Register.
func InitResource[T any](rs *ResourceStore) ResourceID {
	rs.mu.Lock()
	t := resourceType[T]()
	if id, ok := rs.byType[t]; ok {
		rs.mu.Unlock()
		return id
	}
	rs.mu.Unlock()
	var zero T
	return InsertResource(rs, zero)
}

// RemoveResource deletes the value for T, if present.
func RemoveResource[T any](rs *ResourceStore) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	t := resourceType[T]()
	if id, ok := rs.byType[t]; ok {
		rs.slots[id-1] = nil
		delete(rs.byType, t)
	}
}

// ReadHandle is a read-only view onto a stored resource value.
type ReadHandle[T any] struct {
	ptr *T
}

// Get returns the resource's current value.
func (h ReadHandle[T]) Get() T {
	return *h.ptr
}

// GetResource returns a read handle for T, or ok=false if it was never
// inserted.
func GetResource[T any](rs *ResourceStore) (ReadHandle[T], bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	slot, _, ok := rs.slotFor(resourceType[T]())
	if !ok || slot == nil {
		return ReadHandle[T]{}, false
	}
	return ReadHandle[T]{ptr: slot.value.(*T)}, true
}

// WriteHandle is a mutable view onto a stored resource value; Get marks the
// resource changed at the tick the handle was issued.
type WriteHandle[T any] struct {
	slot *resourceSlot
	tick uint32
}

// Get returns a pointer to the live value and stamps the resource's
// changed-tick.
func (h WriteHandle[T]) Get() *T {
	h.slot.changedTick = h.tick
	return h.slot.value.(*T)
}

// GetResourceMut returns a write handle for T, or ok=false if it was never
// inserted.
func GetResourceMut[T any](rs *ResourceStore) (WriteHandle[T], bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	slot, _, ok := rs.slotFor(resourceType[T]())
	if !ok || slot == nil {
		return WriteHandle[T]{}, false
	}
	return WriteHandle[T]{slot: slot, tick: rs.tickFn()}, true
}

// ResourceAdded reports whether T's resource was inserted at or after
// sinceTick.
func ResourceAdded[T any](rs *ResourceStore, sinceTick uint32) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	slot, _, ok := rs.slotFor(resourceType[T]())
	return ok && slot != nil && slot.addedTick >= sinceTick
}

// ResourceChanged reports whether T's resource was written at or after
// sinceTick.
func ResourceChanged[T any](rs *ResourceStore, sinceTick uint32) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	slot, _, ok := rs.slotFor(resourceType[T]())
	return ok && slot != nil && slot.changedTick >= sinceTick
}

// rebase subtracts delta from every slot's stored ticks, used by the tick
// engine's wraparound maintenance pass.
func (rs *ResourceStore) rebase(delta uint32) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, slot := range rs.slots {
		if slot == nil {
			continue
		}
		if slot.addedTick > delta {
			slot.addedTick -= delta
		} else {
			slot.addedTick = 0
		}
		if slot.changedTick > delta {
			slot.changedTick -= delta
		} else {
			slot.changedTick = 0
		}
	}
}
