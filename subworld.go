package warehouse

import "reflect"

// ExtractFunc reads whatever state a sub-world's systems need from the
// primary world and stages it via SyncComponent; ApplyPending resolves the
// staged records against the sub-world's mirrored entities.
type ExtractFunc func(sw *SubWorld)

type syncRecord struct {
	primary Entity
	value   any
	apply   func(secondary Entity, value any) error
}

// SubWorld is a secondary World that mirrors a whitelisted slice of a
// primary World's component state. It runs its own Schedule against its own
// Executor once per primary RunFrame, after extraction.
type SubWorld struct {
	Name    string
	World   *World
	Primary *World

	extract  ExtractFunc
	executor Executor
	schedule *Schedule

	whitelist map[reflect.Type]bool
	backRefs  map[Entity]Entity
	pending   []syncRecord
}

// CreateSubWorld builds a new secondary World under cfg, registers it on
// primary so RunFrame extracts and runs it every frame, and returns the
// handle used to register sync policy and build its schedule.
func CreateSubWorld(name string, primary *World, cfg WorldConfig, extract ExtractFunc) (*SubWorld, error) {
	secondary, err := NewWorld(cfg)
	if err != nil {
		return nil, err
	}
	sw := &SubWorld{
		Name:      name,
		World:     secondary,
		Primary:   primary,
		extract:   extract,
		executor:  secondary.executor,
		schedule:  secondary.schedule,
		whitelist: make(map[reflect.Type]bool),
		backRefs:  make(map[Entity]Entity),
	}
	primary.subworlds = append(primary.subworlds, sw)
	return sw, nil
}

// Schedule returns the sub-world's own schedule, for system registration.
func (sw *SubWorld) Schedule() *Schedule { return sw.schedule }

// RegisterExtractPolicy allows (or, with allow=false, explicitly forbids)
// component type T to cross from the primary world into this sub-world via
// SyncComponent. The policy defaults to forbidden for every type that is
// never registered: sub-worlds only ever see what they opt into.
func RegisterExtractPolicy[T any](sw *SubWorld, allow bool) {
	sw.whitelist[componentType[T]()] = allow
}

func (sw *SubWorld) allowed(t reflect.Type) bool {
	return sw.whitelist[t]
}

// Mirror returns the sub-world entity backing primaryEntity, spawning a bare
// one on first reference.
func (sw *SubWorld) Mirror(primaryEntity Entity) (Entity, error) {
	if e, ok := sw.backRefs[primaryEntity]; ok && e.Valid() {
		return e, nil
	}
	e, err := Spawn(sw.World)
	if err != nil {
		return nil, err
	}
	sw.backRefs[primaryEntity] = e
	return e, nil
}

// Unmirror drops the back-reference for primaryEntity and despawns its
// mirror, for use when extract observes the primary entity has gone away.
func (sw *SubWorld) Unmirror(primaryEntity Entity) error {
	e, ok := sw.backRefs[primaryEntity]
	if !ok {
		return nil
	}
	delete(sw.backRefs, primaryEntity)
	if !e.Valid() {
		return nil
	}
	return Despawn(sw.World, e)
}

// SyncComponent reads primaryEntity's current T value and stages it for
// ApplyPending to write onto the entity's mirror, provided T has been
// allowed by RegisterExtractPolicy. A type never registered, or registered
// with allow=false, is silently skipped.
func SyncComponent[T any](sw *SubWorld, primaryEntity Entity) {
	if !sw.allowed(componentType[T]()) {
		return
	}
	v, ok := Get[T](sw.Primary, primaryEntity)
	if !ok {
		return
	}
	sw.pending = append(sw.pending, syncRecord{
		primary: primaryEntity,
		value:   v,
		apply: func(secondary Entity, value any) error {
			return Set[T](sw.World, secondary, value.(T))
		},
	})
}

// ApplyPending resolves every record SyncComponent staged this frame against
// the sub-world's mirrored entities, creating mirrors as needed, and clears
// the queue.
func (sw *SubWorld) ApplyPending() error {
	pending := sw.pending
	sw.pending = nil
	for _, rec := range pending {
		secondary, err := sw.Mirror(rec.primary)
		if err != nil {
			return err
		}
		if err := rec.apply(secondary, rec.value); err != nil {
			return err
		}
	}
	return nil
}
