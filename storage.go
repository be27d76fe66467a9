package warehouse

import (
	"fmt"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// Ensure storage implements Storage interface
var _ Storage = &storage{}

// Storage defines the interface for entity storage and manipulation
type Storage interface {
	Entity(id int) (Entity, error)
	NewEntities(int, ...Component) ([]Entity, error)
	NewOrExistingArchetype(components ...Component) (Archetype, error)
	EnqueueNewEntities(int, ...Component) error
	DestroyEntities(...Entity) error
	EnqueueDestroyEntities(...Entity) error
	RowIndexFor(Component) uint32
	Locked() bool
	AddLock()
	PopLock()
	Register(...Component)
	tableFor(...Component) (table.Table, error)

	TransferEntities(target Storage, entities ...Entity) error
	Enqueue(EntityOperation)
	Archetypes() []*ArchetypeImpl

	// Generation counts archetypes ever created in this storage, so a
	// cursor that cached a match set can detect it went stale mid-scan.
	Generation() uint64

	entryIndexFor() table.EntryIndex
	currentTick() uint32
	setTickProvider(func() uint32)
	archetypeForTable(table.Table) *ArchetypeImpl
}

// storage implements the Storage interface
type storage struct {
	lockCount      int
	schema         table.Schema
	archetypes     *archetypes
	operationQueue EntityOperationsQueue
	entryIndex     table.EntryIndex
	entities       []entity
	generation     uint64
	tickFn         func() uint32
}

// archetypes manages archetype collections and identification
type archetypes struct {
	nextID           archetypeID
	asSlice          []*ArchetypeImpl
	idsGroupedByMask map[mask.Mask]archetypeID
}

// newStorage creates a new Storage implementation with the given schema
func newStorage(schema table.Schema) Storage {
	archetypes := &archetypes{
		nextID:           1,
		idsGroupedByMask: make(map[mask.Mask]archetypeID),
	}
	return &storage{
		archetypes:     archetypes,
		schema:         schema,
		operationQueue: &entityOperationsQueue{},
		entryIndex:     table.Factory.NewEntryIndex(),
		tickFn:         func() uint32 { return 0 },
	}
}

// Entity retrieves an entity by ID
func (sto *storage) Entity(id int) (Entity, error) {
	if id <= 0 || id > len(sto.entities) {
		return nil, fmt.Errorf("no entity with id %d", id)
	}
	return &sto.entities[id-1], nil
}

func (sto *storage) entryIndexFor() table.EntryIndex { return sto.entryIndex }

func (sto *storage) currentTick() uint32 { return sto.tickFn() }

func (sto *storage) setTickProvider(fn func() uint32) {
	if fn == nil {
		fn = func() uint32 { return 0 }
	}
	sto.tickFn = fn
}

// Generation returns the number of archetypes ever created in this storage.
func (sto *storage) Generation() uint64 { return sto.generation }

// NewOrExistingArchetype gets an existing archetype matching the component signature or creates a new one
func (sto *storage) NewOrExistingArchetype(components ...Component) (Archetype, error) {
	var entityMask mask.Mask
	for _, component := range components {
		sto.schema.Register(component)
		bit := sto.schema.RowIndexFor(component)
		entityMask.Mark(bit)
	}
	id, archetypeFound := sto.archetypes.idsGroupedByMask[entityMask]
	if archetypeFound {
		return sto.archetypes.asSlice[id-1], nil
	}

	created, err := newArchetype(sto.schema, sto.entryIndex, sto.archetypes.nextID, components...)
	if err != nil {
		return nil, err
	}
	sto.archetypes.asSlice = append(sto.archetypes.asSlice, &created)
	sto.archetypes.idsGroupedByMask[entityMask] = created.id
	sto.archetypes.nextID++
	sto.generation++
	return &created, nil
}

// NewEntities creates n new entities with the specified components
func (sto *storage) NewEntities(n int, components ...Component) ([]Entity, error) {
	if sto.Locked() {
		return nil, LockedStorageError{}
	}
	var entityMask mask.Mask
	for _, component := range components {
		sto.schema.Register(component)
		bit := sto.schema.RowIndexFor(component)
		entityMask.Mark(bit)
	}
	var entityArchetype *ArchetypeImpl
	id, archetypeFound := sto.archetypes.idsGroupedByMask[entityMask]
	if archetypeFound {
		entityArchetype = sto.archetypes.asSlice[id-1]
	} else {
		created, err := sto.NewOrExistingArchetype(components...)
		if err != nil {
			return nil, err
		}
		entityArchetype = created.(*ArchetypeImpl)
	}
	entries, err := entityArchetype.table.NewEntries(n)
	if err != nil {
		return nil, err
	}
	entityArchetype.markCreated(n, sto.currentTick())

	currentLen := len(sto.entities)
	neededCap := currentLen + n
	if cap(sto.entities) < neededCap {
		newCap := max(neededCap, 2*cap(sto.entities))
		newEntities := make([]entity, currentLen, newCap)
		copy(newEntities, sto.entities)
		sto.entities = newEntities
	}
	sto.entities = sto.entities[:neededCap]

	entities := make([]Entity, n)
	for i, entry := range entries {
		en := &entity{
			Entry:      entry,
			sto:        sto,
			id:         entry.ID(),
			components: append([]Component{}, components...),
		}
		entities[i] = en
		sto.entities[currentLen+i] = *en
	}

	return entities, nil
}

// RowIndexFor returns the bit index for a component in the schema
func (sto *storage) RowIndexFor(c Component) uint32 {
	return sto.schema.RowIndexFor(c)
}

// Locked checks if the storage is currently locked
func (sto *storage) Locked() bool {
	return sto.lockCount > 0
}

// AddLock acquires an additional iteration lock, deferring any structural
// mutation requested while one is held.
func (sto *storage) AddLock() {
	sto.lockCount++
}

// PopLock releases one iteration lock and, once none remain, drains the
// operations queued while locked.
func (sto *storage) PopLock() {
	if sto.lockCount > 0 {
		sto.lockCount--
	}
	if sto.lockCount == 0 {
		if err := sto.operationQueue.ProcessAll(sto); err != nil {
			panic(fmt.Errorf("warehouse: error processing queued operations: %w", err))
		}
	}
}

// EnqueueNewEntities either creates entities immediately or queues creation if storage is locked
func (s *storage) EnqueueNewEntities(count int, components ...Component) error {
	if !s.Locked() {
		_, err := s.NewEntities(count, components...)
		if err != nil {
			return fmt.Errorf("failed to create entities directly: %w", err)
		}
		return nil
	}
	s.operationQueue.Enqueue(
		NewEntityOperation{
			count:      count,
			components: components,
		},
	)
	return nil
}

// DestroyEntities removes entities from storage
func (s *storage) DestroyEntities(entities ...Entity) error {
	if s.Locked() {
		return LockedStorageError{}
	}
	tableGroups := make(map[table.Table][]int)
	for _, entity := range entities {
		if entity == nil {
			continue
		}
		tableGroups[entity.Table()] = append(tableGroups[entity.Table()], int(entity.ID()))
	}
	for tbl, ids := range tableGroups {
		if arche := s.archetypeForTable(tbl); arche != nil {
			for _, id := range ids {
				if e, err := s.Entity(id); err == nil {
					arche.markRemoved(e.Index())
				}
			}
		}
		if _, err := tbl.DeleteEntries(ids...); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
	}
	for _, en := range entities {
		if en == nil {
			continue
		}
		index := en.ID() - 1
		if int(index) < len(s.entities) {
			s.entities[index] = entity{}
		}
	}
	return nil
}

// archetypeForTable finds the archetype backed by a given table, used to
// keep tick columns aligned with a swap-remove performed at the table level.
func (s *storage) archetypeForTable(tbl table.Table) *ArchetypeImpl {
	for _, a := range s.archetypes.asSlice {
		if a.table == tbl {
			return a
		}
	}
	return nil
}

// EnqueueDestroyEntities either destroys entities immediately or queues destruction if storage is locked
func (s *storage) EnqueueDestroyEntities(entities ...Entity) error {
	if !s.Locked() {
		return s.DestroyEntities(entities...)
	}
	for _, en := range entities {
		s.operationQueue.Enqueue(
			DestroyEntityOperation{
				entity:   en,
				recycled: en.Recycled(),
			})
	}
	return nil
}

// TransferEntities moves entities from this storage to the target storage
func (s *storage) TransferEntities(target Storage, entities ...Entity) error {
	if s.Locked() {
		return LockedStorageError{}
	}
	for _, en := range entities {
		comps := en.Components()
		target.Register(comps...)
		targetTbl, err := target.tableFor(comps...)
		if err != nil {
			return err
		}

		err = en.Table().TransferEntries(targetTbl, en.Index())
		if err != nil {
			return err
		}
		en.SetStorage(target)
	}
	return nil
}

// Register adds components to the storage schema
func (s *storage) Register(comps ...Component) {
	ets := make([]table.ElementType, len(comps))
	for i, c := range comps {
		ets[i] = c
	}
	s.schema.Register(ets...)
}

// Enqueue adds an operation to the queue
func (s *storage) Enqueue(op EntityOperation) {
	s.operationQueue.Enqueue(op)
}

// Archetypes returns all archetypes in this storage
func (s *storage) Archetypes() []*ArchetypeImpl {
	return s.archetypes.asSlice
}

// tableFor gets or creates a table for the given component set
func (s *storage) tableFor(comps ...Component) (table.Table, error) {
	archeMask := mask.Mask{}
	for _, c := range comps {
		bit := s.RowIndexFor(c)
		archeMask.Mark(bit)
	}

	id, ok := s.archetypes.idsGroupedByMask[archeMask]
	if !ok {
		created, err := s.NewOrExistingArchetype(comps...)
		if err != nil {
			return nil, err
		}
		return created.Table(), nil
	}
	arche := s.archetypes.asSlice[id-1]
	return arche.table, nil
}
