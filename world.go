package warehouse

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/TheBitDrifter/table"
)

// World ties together the archetype storage, the component registry, the
// resource store, the message bus, and the tick engine, and hosts the
// primary Schedule plus any attached sub-worlds. It is the unit RunFrame
// operates on and the handle every public generic function (Spawn, Set, Get,
// ...) takes as its first argument.
type World struct {
	cfg       WorldConfig
	storage   Storage
	registry  *Registry
	resources *ResourceStore
	messages  *MessageBus
	tick      *tickEngine

	namesMu sync.RWMutex
	names   map[table.EntryID]string

	componentCache sync.Map // reflect.Type -> boxed AccessibleComponent[T]

	schedule  *Schedule
	executor  Executor
	subworlds []*SubWorld
}

// NewWorld builds a World from the given config, validating it first.
func NewWorld(cfg WorldConfig) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schema := table.Factory.NewSchema()
	w := &World{
		cfg:       cfg,
		storage:   Factory.NewStorage(schema),
		registry:  NewRegistry(4096),
		resources: NewResourceStore(),
		messages:  NewMessageBus(),
		tick:      newTickEngine(cfg.TickMaintenanceThreshold),
		names:     make(map[table.EntryID]string),
		schedule:  NewSchedule(),
	}
	switch cfg.ExecutorKind {
	case ExecutorMultiThreaded:
		w.executor = NewMultiThreadedExecutor(cfg.WorkerCount)
	default:
		w.executor = NewSingleThreadedExecutor()
	}
	w.storage.setTickProvider(w.tick.Current)
	w.resources.setTickProvider(w.tick.Current)
	return w, nil
}

// Schedule returns the world's primary schedule, for system registration.
func (w *World) Schedule() *Schedule { return w.schedule }

// Resources returns the world's resource store.
func (w *World) Resources() *ResourceStore { return w.resources }

// Messages returns the world's message bus.
func (w *World) Messages() *MessageBus { return w.messages }

// Tick returns the current change-detection tick.
func (w *World) Tick() uint32 { return w.tick.Current() }

// AdvanceFrame increments the tick engine and, if it crosses the configured
// maintenance threshold, rebases every stored tick in the world so ongoing
// Added/Changed comparisons stay valid.
func (w *World) AdvanceFrame() uint32 {
	tick, delta := w.tick.Advance()
	if delta > 0 {
		for _, a := range w.storage.Archetypes() {
			a.rebaseTicks(delta)
		}
		w.resources.rebase(delta)
		for _, n := range w.schedule.systems {
			if n.lastRunTick > delta {
				n.lastRunTick -= delta
			} else {
				n.lastRunTick = 0
			}
		}
	}
	return tick
}

// RunFrame advances the tick, runs the primary schedule, then gives every
// attached sub-world a chance to extract from the primary, apply its pending
// sync records, and run its own schedule, before rotating the message bus
// for the next frame.
func (w *World) RunFrame() RunResult {
	w.AdvanceFrame()

	result := w.executor.RunSchedule(w, w.schedule)
	if result.Status != StatusOK {
		return result
	}

	for _, sw := range w.subworlds {
		if err := runExtract(w, sw); err != nil {
			return RunResult{Status: StatusError, Err: err}
		}
		if err := sw.ApplyPending(); err != nil {
			return RunResult{Status: StatusError, Err: err}
		}
		subResult := sw.executor.RunSchedule(sw.World, sw.schedule)
		if subResult.Status != StatusOK {
			return subResult
		}
	}

	w.messages.RotateFrame()
	return RunResult{Status: StatusOK}
}

// runExtract invokes sw's extract closure, recovering a panic into an error
// so one misbehaving sub-world cannot take down the primary's RunFrame.
func runExtract(w *World, sw *SubWorld) (err error) {
	if sw.extract == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			w.cfg.logger().WithField("subworld", sw.Name).WithField("panic", r).Error("sub-world extract panicked")
			err = fmt.Errorf("warehouse: sub-world %q extract panicked: %v", sw.Name, r)
		}
	}()
	sw.extract(sw)
	return nil
}

func componentType[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

// componentFor returns (creating and registering on first use) the
// AccessibleComponent for T, shared across every Set/Get/Has/Remove call on
// this world so repeated calls hit the same column.
func componentFor[T any](w *World) AccessibleComponent[T] {
	t := componentType[T]()
	if v, ok := w.componentCache.Load(t); ok {
		return v.(AccessibleComponent[T])
	}
	c := FactoryNewComponent[T]()
	actual, _ := w.componentCache.LoadOrStore(t, c)
	if _, err := Register[T](w.registry); err != nil {
		w.cfg.logger().WithError(err).WithField("component", t.String()).Warn("component registration conflict")
	}
	return actual.(AccessibleComponent[T])
}

// Spawn creates a new entity carrying the given components.
func Spawn(w *World, components ...Component) (Entity, error) {
	entities, err := w.storage.NewEntities(1, components...)
	if err != nil {
		return nil, err
	}
	return entities[0], nil
}

// Despawn destroys e.
func Despawn(w *World, e Entity) error {
	return w.storage.DestroyEntities(e)
}

// IsAlive reports whether e still refers to a live entity.
func IsAlive(w *World, e Entity) bool {
	if e == nil || !e.Valid() {
		return false
	}
	stored, err := w.storage.Entity(int(e.ID()))
	return err == nil && stored.Valid()
}

// SetName attaches a debug-facing name to e, independent of its components.
func SetName(w *World, e Entity, name string) {
	w.namesMu.Lock()
	defer w.namesMu.Unlock()
	w.names[e.ID()] = name
}

// Name returns e's debug name, if one was set.
func Name(w *World, e Entity) (string, bool) {
	w.namesMu.RLock()
	defer w.namesMu.RUnlock()
	n, ok := w.names[e.ID()]
	return n, ok
}

// Set stores v as e's value for component type T, adding the component (and
// moving e to a new archetype) if e did not already carry it, and stamping
// the cell's changed-tick either way.
func Set[T any](w *World, e Entity, v T) error {
	c := componentFor[T](w)
	if e.Table().Contains(c) {
		*c.GetFromEntity(e) = v
		w.markChanged(e, c)
		return nil
	}
	if err := e.AddComponentWithValue(c, v); err != nil {
		return err
	}
	w.markChanged(e, c)
	return nil
}

// Get returns e's current value for T, or ok=false if e does not carry it.
func Get[T any](w *World, e Entity) (T, bool) {
	c := componentFor[T](w)
	if !e.Table().Contains(c) {
		var zero T
		return zero, false
	}
	return *c.GetFromEntity(e), true
}

// Has reports whether e carries a value for T.
func Has[T any](w *World, e Entity) bool {
	c := componentFor[T](w)
	return e.Table().Contains(c)
}

// Remove strips T from e, if present.
func Remove[T any](w *World, e Entity) error {
	c := componentFor[T](w)
	return e.RemoveComponent(c)
}

// markChanged stamps the changed-tick for e's cell of component c, used by
// Set and by WriteHandle-style mutation paths.
func (w *World) markChanged(e Entity, c Component) {
	arche := w.storage.archetypeForTable(e.Table())
	if arche == nil {
		return
	}
	rowIndex := w.storage.RowIndexFor(c)
	arche.markChanged(rowIndex, e.Index(), w.tick.Current())
}
