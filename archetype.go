package warehouse

import "github.com/TheBitDrifter/table"

// archetypeID uniquely identifies an archetype within a storage. IDs start
// at 1; 0 is never assigned and can be used as a "no archetype" sentinel.
type archetypeID uint32

// Archetype is the public view of a cohort of entities sharing a component
// set: its id and the column storage backing it.
type Archetype interface {
	ID() uint32
	Table() table.Table
}

// ArchetypeImpl is the concrete Archetype implementation. Beyond the
// table.Table the teacher library already provides, it tracks per-column
// added/changed ticks used by Added<T>/Changed<T> queries. Add/remove
// adjacency is not memoized: every transition looks up its target
// archetype by component mask in Storage.NewOrExistingArchetype.
type ArchetypeImpl struct {
	id    archetypeID
	table table.Table

	// addEdges and removeEdges are allocated by newArchetype but nothing
	// fills or reads them.
	addEdges    map[uint32]archetypeID
	removeEdges map[uint32]archetypeID

	// transitionGen increments every time rows in this archetype are
	// created or removed. No accessor compares against it, so a row index
	// a caller captured earlier is not detected as invalidated.
	transitionGen uint64

	// ticks holds one tickColumn per registered component row index,
	// parallel to the table's own row order. Rows are grown/shrunk in
	// lockstep with entity creation/destruction/transfer so that
	// ticks[rowIndex][entityRow] always describes the same cell the table
	// itself is holding.
	ticks map[uint32]*tickColumn
}

// tickColumn tracks per-row added/changed ticks for one component column.
type tickColumn struct {
	added   []uint32
	changed []uint32
}

func newTickColumn() *tickColumn {
	return &tickColumn{}
}

func (tc *tickColumn) grow(n int, tick uint32) {
	for i := 0; i < n; i++ {
		tc.added = append(tc.added, tick)
		tc.changed = append(tc.changed, tick)
	}
}

// swapRemove drops row idx, backfilling it with the tail element (mirrors
// the table's own swap-remove so tick rows stay aligned with data rows).
func (tc *tickColumn) swapRemove(idx int) {
	last := len(tc.added) - 1
	if idx != last {
		tc.added[idx] = tc.added[last]
		tc.changed[idx] = tc.changed[last]
	}
	tc.added = tc.added[:last]
	tc.changed = tc.changed[:last]
}

// rebase subtracts delta from every stored tick, clamping at zero, so ticks
// stay comparable after the engine wraps its counter back down.
func (tc *tickColumn) rebase(delta uint32) {
	for i, v := range tc.added {
		if v > delta {
			tc.added[i] = v - delta
		} else {
			tc.added[i] = 0
		}
	}
	for i, v := range tc.changed {
		if v > delta {
			tc.changed[i] = v - delta
		} else {
			tc.changed[i] = 0
		}
	}
}

func newArchetype(schema table.Schema, entryIndex table.EntryIndex, id archetypeID, components ...Component) (ArchetypeImpl, error) {
	elementTypes := make([]table.ElementType, len(components))
	for i, comp := range components {
		elementTypes[i] = comp
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(elementTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return ArchetypeImpl{}, err
	}

	// Every component this archetype is built with gets a tick column up
	// front, so the very first markCreated call (run by NewEntities right
	// after this constructor returns) stamps real added-ticks instead of
	// silently growing nothing because tickColumnFor never got called yet.
	ticks := make(map[uint32]*tickColumn, len(components))
	for _, comp := range components {
		ticks[schema.RowIndexFor(comp)] = newTickColumn()
	}

	return ArchetypeImpl{
		table:       tbl,
		id:          id,
		addEdges:    make(map[uint32]archetypeID),
		removeEdges: make(map[uint32]archetypeID),
		ticks:       ticks,
	}, nil
}

// ID returns the archetype's unique identifier.
func (a ArchetypeImpl) ID() uint32 {
	return uint32(a.id)
}

// Table returns the underlying column storage.
func (a ArchetypeImpl) Table() table.Table {
	return a.table
}

// tickColumnFor returns (creating if needed) the tick column for a
// component's schema row index.
func (a *ArchetypeImpl) tickColumnFor(rowIndex uint32) *tickColumn {
	tc, ok := a.ticks[rowIndex]
	if !ok {
		tc = newTickColumn()
		n := a.table.Length()
		tc.grow(n, 0)
		a.ticks[rowIndex] = tc
	}
	return tc
}

// markCreated grows every tracked tick column by n rows stamped at tick,
// and bumps the transition generation. Called whenever NewEntries grows
// the table.
func (a *ArchetypeImpl) markCreated(n int, tick uint32) {
	for _, tc := range a.ticks {
		tc.grow(n, tick)
	}
	a.transitionGen++
}

// markRemoved mirrors a table-level swap-remove of row idx across every
// tracked tick column, and bumps the transition generation.
func (a *ArchetypeImpl) markRemoved(idx int) {
	for _, tc := range a.ticks {
		if idx < len(tc.added) {
			tc.swapRemove(idx)
		}
	}
	a.transitionGen++
}

// markChanged stamps the changed-tick for rowIndex/entityRow to tick.
func (a *ArchetypeImpl) markChanged(rowIndex uint32, entityRow int, tick uint32) {
	tc := a.tickColumnFor(rowIndex)
	if entityRow >= 0 && entityRow < len(tc.changed) {
		tc.changed[entityRow] = tick
	}
}

// addedTick returns the added-tick for rowIndex/entityRow, or 0 if untracked.
func (a *ArchetypeImpl) addedTick(rowIndex uint32, entityRow int) uint32 {
	tc, ok := a.ticks[rowIndex]
	if !ok || entityRow < 0 || entityRow >= len(tc.added) {
		return 0
	}
	return tc.added[entityRow]
}

// changedTick returns the changed-tick for rowIndex/entityRow, or 0 if
// untracked.
func (a *ArchetypeImpl) changedTick(rowIndex uint32, entityRow int) uint32 {
	tc, ok := a.ticks[rowIndex]
	if !ok || entityRow < 0 || entityRow >= len(tc.changed) {
		return 0
	}
	return tc.changed[entityRow]
}

// recordArchetypeTransition keeps tick columns aligned with a
// TransferEntries call (AddComponent/RemoveComponent moving a row to a
// different archetype): the vacated slot in the origin archetype is
// swap-removed the same way DestroyEntities does, and the row appended to
// dest is stamped as added at the current tick, matching how a freshly
// created row is marked by markCreated.
func recordArchetypeTransition(sto Storage, originTable table.Table, oldIndex int, dest Archetype) {
	if origin := sto.archetypeForTable(originTable); origin != nil {
		origin.markRemoved(oldIndex)
	}
	if destImpl, ok := dest.(*ArchetypeImpl); ok {
		destImpl.markCreated(1, sto.currentTick())
	}
}

// rebaseTicks applies a tick-engine rebase across every tracked column.
func (a *ArchetypeImpl) rebaseTicks(delta uint32) {
	for _, tc := range a.ticks {
		tc.rebase(delta)
	}
}
