package warehouse

// AccessMode distinguishes a query term that only reads a component from one
// that intends to mutate it, so the Executor can tell disjoint-access
// systems apart from conflicting ones.
type AccessMode int

const (
	// AccessRead declares read-only access to a component.
	AccessRead AccessMode = iota
	// AccessWrite declares mutable access to a component.
	AccessWrite
)

// AccessSummary is the set of row indices a built Query reads and writes,
// consulted by the Executor (executor.go) when batching systems that can run
// concurrently without stepping on each other's columns.
type AccessSummary struct {
	Reads          []uint32
	Writes         []uint32
	ResourceReads  []ResourceID
	ResourceWrites []ResourceID

	// Exclusive marks a system that must never run concurrently with any
	// other system in its schedule, regardless of declared component or
	// resource access (spec's exclusive-world system).
	Exclusive bool
}

type requiredTerm struct {
	component Component
	mode      AccessMode
}

// changeFilter records a per-component Added/Changed constraint a built
// Query checks against a caller-supplied sinceTick when MatchesRow is
// called for the cursor's current row.
type changeFilter struct {
	component Component
	kind      changeFilterKind
}

type changeFilterKind int

const (
	filterAdded changeFilterKind = iota
	filterChanged
)

// QueryBuilder accumulates Required/Forbidden/Optional terms and compiles
// them into a Query expression tree plus its AccessSummary.
type QueryBuilder struct {
	required      []requiredTerm
	forbidden     []Component
	optional      []Component
	changeFilters []changeFilter
}

// NewQueryBuilder starts an empty query.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{}
}

// Required adds components that must be present, under the given access
// mode.
func (b *QueryBuilder) Required(mode AccessMode, c ...Component) *QueryBuilder {
	for _, comp := range c {
		b.required = append(b.required, requiredTerm{component: comp, mode: mode})
	}
	return b
}

// Forbidden adds components that must be absent for an archetype to match.
func (b *QueryBuilder) Forbidden(c ...Component) *QueryBuilder {
	b.forbidden = append(b.forbidden, c...)
	return b
}

// Optional adds components whose presence does not affect matching. They
// carry no access mode here; read callers fetch them per-row via
// OptionalComponent[T] (componentaccessible.go).
func (b *QueryBuilder) Optional(c ...Component) *QueryBuilder {
	b.optional = append(b.optional, c...)
	return b
}

// Added restricts matching rows (via Query.MatchesRow, checked per-row
// during iteration, not per-archetype) to ones where c was added to the
// entity at or after the tick passed to MatchesRow. c must also be named in
// a Required call, or its row index will not resolve to anything meaningful.
func (b *QueryBuilder) Added(c Component) *QueryBuilder {
	b.changeFilters = append(b.changeFilters, changeFilter{component: c, kind: filterAdded})
	return b
}

// Changed is like Added but matches rows written (added or mutated) at or
// after the tick.
func (b *QueryBuilder) Changed(c Component) *QueryBuilder {
	b.changeFilters = append(b.changeFilters, changeFilter{component: c, kind: filterChanged})
	return b
}

// Build compiles the accumulated terms against world w, registering every
// named component with w's schema so row indices exist for mask comparison,
// and fails fast if two required terms claim write access to the same
// underlying row.
func (b *QueryBuilder) Build(w *World) (*Query, error) {
	all := make([]Component, 0, len(b.required)+len(b.forbidden)+len(b.optional))
	for _, t := range b.required {
		all = append(all, t.component)
	}
	all = append(all, b.forbidden...)
	all = append(all, b.optional...)
	w.storage.Register(all...)

	writeBits := make(map[uint32]bool)
	summary := AccessSummary{}
	for _, t := range b.required {
		bit := w.storage.RowIndexFor(t.component)
		switch t.mode {
		case AccessWrite:
			if writeBits[bit] {
				return nil, ConflictingAccessError{Detail: "multiple required terms claim write access to the same component"}
			}
			writeBits[bit] = true
			summary.Writes = append(summary.Writes, bit)
		default:
			summary.Reads = append(summary.Reads, bit)
		}
	}

	expr := newQuery()
	var requiredItems []interface{}
	for _, t := range b.required {
		requiredItems = append(requiredItems, t.component)
	}
	var root QueryNode
	if len(requiredItems) > 0 {
		root = expr.And(requiredItems...)
	}
	if len(b.forbidden) > 0 {
		var forbiddenItems []interface{}
		for _, c := range b.forbidden {
			forbiddenItems = append(forbiddenItems, c)
		}
		notNode := expr.Not(forbiddenItems...)
		if root == nil {
			root = notNode
		} else {
			root = expr.And(root, notNode)
		}
	}
	if root == nil {
		// No required or forbidden terms at all: match every archetype,
		// including the empty one (spec boundary behavior).
		root = expr.Not()
	}

	return &Query{
		root:          root,
		access:        summary,
		optional:      append([]Component{}, b.optional...),
		changeFilters: append([]changeFilter{}, b.changeFilters...),
	}, nil
}

// Query is a compiled, reusable query: a term tree plus the access summary
// the Executor consults, and the small convenience surface Iterate/Count/
// Single/Contains layer on top of the teacher's Cursor.
type Query struct {
	root          QueryNode
	access        AccessSummary
	optional      []Component
	changeFilters []changeFilter
}

// MatchesRow reports whether the cursor's current row satisfies every
// Added/Changed filter this query declared, given sinceTick as the boundary
// (typically the system's lastRunTick). Archetype matching never depends on
// change filters, so callers iterate normally and call MatchesRow per row:
//
//	cursor := q.Iterate(w)
//	for cursor.Next() {
//		if !q.MatchesRow(w, cursor, lastRunTick) { continue }
//		...
//	}
func (q *Query) MatchesRow(w *World, cursor *Cursor, sinceTick uint32) bool {
	for _, f := range q.changeFilters {
		rowIndex := w.storage.RowIndexFor(f.component)
		switch f.kind {
		case filterAdded:
			if cursor.currentArchetype.addedTick(rowIndex, cursor.entityIndex-1) < sinceTick {
				return false
			}
		case filterChanged:
			if cursor.currentArchetype.changedTick(rowIndex, cursor.entityIndex-1) < sinceTick {
				return false
			}
		}
	}
	return true
}

// Access returns the read/write footprint computed at Build time.
func (q *Query) Access() AccessSummary {
	return q.access
}

// Iterate returns a fresh Cursor over w's entities matching this query.
func (q *Query) Iterate(w *World) *Cursor {
	return Factory.NewCursor(q.root, w.storage)
}

// Count returns the number of entities currently matching this query,
// independent of any in-flight Cursor (spec.md's Open Question 2:
// count() and Iterate() never share cursor state).
func (q *Query) Count(w *World) int {
	return Factory.NewCursor(q.root, w.storage).TotalMatched()
}

// Single returns the query's one matching entity, or ok=false if the match
// set is not exactly one (never panics; callers that need the distinction
// between zero and multiple matches should use Count).
func (q *Query) Single(w *World) (Entity, bool) {
	cursor := Factory.NewCursor(q.root, w.storage)
	var found Entity
	matches := 0
	for cursor.Next() {
		e, err := cursor.CurrentEntity()
		if err != nil {
			continue
		}
		found = e
		matches++
		if matches > 1 {
			// Stop early, but release the iteration lock Initialize took;
			// only a cursor drained to exhaustion does this on its own.
			cursor.Reset()
			break
		}
	}
	if matches != 1 {
		return nil, false
	}
	return found, true
}

// Contains reports whether e's archetype matches this query.
func (q *Query) Contains(w *World, e Entity) bool {
	arche := w.storage.archetypeForTable(e.Table())
	if arche == nil {
		return false
	}
	return q.root.Evaluate(arche, w.storage)
}
