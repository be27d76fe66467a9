package warehouse

// tickEngine tracks the monotonically increasing change-detection tick
// stamped on every component write, and decides when the accumulated added
// and changed ticks held across the world need rebasing to stay comparable
// as the counter approaches uint32's range.
type tickEngine struct {
	current   uint32
	threshold uint32
}

// newTickEngine builds an engine that rebases once the current tick reaches
// threshold. A zero threshold disables rebasing.
func newTickEngine(threshold uint32) *tickEngine {
	return &tickEngine{threshold: threshold}
}

// Advance moves to the next tick. When the returned delta is nonzero, every
// stored added/changed tick in the world must be reduced by delta (clamped
// at zero) so it stays ordered relative to the new current tick.
func (e *tickEngine) Advance() (tick uint32, delta uint32) {
	e.current++
	if e.threshold > 0 && e.current >= e.threshold {
		delta = e.current - 1
		e.current -= delta
	}
	return e.current, delta
}

// Current returns the last tick returned by Advance, or 0 before the first
// call.
func (e *tickEngine) Current() uint32 {
	return e.current
}
