package warehouse

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// StorageClass distinguishes value-typed components, stored inline in a
// dense column, from reference-typed components, stored as an opaque
// handle in a sparse column.
type StorageClass int

const (
	// StorageDense stores the component value inline in the archetype's
	// column.
	StorageDense StorageClass = iota
	// StorageSparse stores an opaque handle and defers to the handle's
	// owning type for cleanup.
	StorageSparse
)

// ComponentMeta describes a registered component kind: its size (0 for a
// tag component), its alignment, whether it is reference-typed, and its
// storage class.
type ComponentMeta struct {
	ID            ComponentID
	TypeName      string
	Size          uintptr
	Align         uintptr
	ReferenceType bool
	StorageClass  StorageClass
	Drop          func(any)
}

// ComponentID is a stable small integer assigned to a component kind on
// first use. Kinds are immutable once registered.
type ComponentID uint32

// Registry assigns stable ids to component kinds and carries their layout
// metadata. A Registry is safe for concurrent Describe calls; Register
// calls are serialized and new kinds are rejected while the registry is
// locked. Nothing in the package calls lock, so query iteration does not
// lock the registry.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ComponentID
	cache  Cache[ComponentMeta]
	locked bool
}

// NewRegistry creates an empty component registry with room for up to
// capacity distinct component kinds.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		byType: make(map[reflect.Type]ComponentID),
		cache:  FactoryNewCache[ComponentMeta](capacity),
	}
}

// lock prevents further registration for the duration of an iteration that
// must not observe new component kinds mid-scan.
func (r *Registry) lock() {
	r.mu.Lock()
	r.locked = true
	r.mu.Unlock()
}

func (r *Registry) unlock() {
	r.mu.Lock()
	r.locked = false
	r.mu.Unlock()
}

// RegisterType registers a component kind described by a reflect.Type,
// returning its stable id. Idempotent: a second call with the same type
// returns the same id. dropFn may be nil for value-typed components with
// no external resource to release.
func (r *Registry) RegisterType(t reflect.Type, referenceType bool, class StorageClass, dropFn func(any)) (ComponentID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byType[t]; ok {
		existing := r.cache.GetItem32(uint32(id))
		if existing.ReferenceType != referenceType || existing.StorageClass != class {
			return 0, KindAlreadyRegisteredWithDifferentLayoutError{TypeName: t.String()}
		}
		return id, nil
	}
	if r.locked {
		return 0, RegistryLockedError{}
	}

	size := t.Size()
	align := uintptr(t.Align())
	meta := ComponentMeta{
		TypeName:      t.String(),
		Size:          size,
		Align:         align,
		ReferenceType: referenceType,
		StorageClass:  class,
		Drop:          dropFn,
	}
	idx, err := r.cache.Register(t.String(), meta)
	if err != nil {
		return 0, fmt.Errorf("warehouse: registering component %s: %w", t.String(), err)
	}
	id := ComponentID(idx)
	meta.ID = id
	*r.cache.GetItem(idx) = meta
	r.byType[t] = id
	return id, nil
}

// Register registers the zero value's type of T, inferring storage class
// from its kind (pointer/interface-shaped -> sparse, else dense).
func Register[T any](r *Registry) (ComponentID, error) {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	class := StorageDense
	ref := false
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Chan, reflect.Func:
		class = StorageSparse
		ref = true
	}
	return r.RegisterType(t, ref, class, nil)
}

// Describe returns the metadata for a previously registered id.
func (r *Registry) Describe(id ComponentID) (ComponentMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.byType) {
		return ComponentMeta{}, false
	}
	return *r.cache.GetItem32(uint32(id)), true
}

// Size returns sizeof(T) the same way the registry would compute it,
// exposed for callers building column storage by hand.
func Size[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}
