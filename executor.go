package warehouse

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunStatus classifies how a RunSchedule call ended.
type RunStatus int

const (
	// StatusOK means every system ran to completion with no error and no
	// exit request.
	StatusOK RunStatus = iota
	// StatusExit means an ExitRequested message was written during the run;
	// the schedule still ran to completion and its commands were applied.
	StatusExit
	// StatusError means a system returned an error.
	StatusError
)

// RunResult reports how a schedule run ended, plus the error and stopping
// system name when applicable.
type RunResult struct {
	Status     RunStatus
	Err        error
	StoppedAt  string
}

// ExitRequested is checked on the world's message bus once a schedule run
// has finished; an instance written during the run makes the executor
// return StatusExit instead of StatusOK.
type ExitRequested struct{ Reason string }

// Executor walks a built Schedule's plan against a World, applying deferred
// command buffers at barrier steps.
type Executor interface {
	RunSchedule(w *World, s *Schedule) RunResult
}

func ensureBuilt(s *Schedule) error {
	if s.built {
		return nil
	}
	return s.Build()
}

// SingleThreadedExecutor runs every system in the schedule's topological
// order, one at a time, applying the world's command buffer at each barrier
// step.
type SingleThreadedExecutor struct{}

// NewSingleThreadedExecutor returns an Executor that runs systems
// sequentially.
func NewSingleThreadedExecutor() *SingleThreadedExecutor { return &SingleThreadedExecutor{} }

func (e *SingleThreadedExecutor) RunSchedule(w *World, s *Schedule) RunResult {
	if err := ensureBuilt(s); err != nil {
		w.cfg.logger().WithError(err).Error("schedule build failed")
		return RunResult{Status: StatusError, Err: err}
	}
	exitReader := NewReader[ExitRequested](w.messages)
	cmds := NewCommandBuffer(w)

	for _, step := range s.plan {
		switch step.kind {
		case stepBarrier:
			if err := cmds.Apply(w); err != nil {
				return RunResult{Status: StatusError, Err: err}
			}
		case stepSystem:
			node := s.systems[step.system]
			if err := node.fn(w, cmds); err != nil {
				return RunResult{Status: StatusError, Err: err, StoppedAt: step.system}
			}
			node.lastRunTick = w.tick.Current()
		}
	}
	if err := cmds.Apply(w); err != nil {
		return RunResult{Status: StatusError, Err: err}
	}
	if len(exitReader.Peek()) > 0 {
		return RunResult{Status: StatusExit}
	}
	return RunResult{Status: StatusOK}
}

// MultiThreadedExecutor batches consecutive systems between barrier steps
// that declare disjoint AccessSummary footprints and runs each batch
// concurrently, bounded by workerCount, using an errgroup the way
// coordinator.go drives a worker pool with a WaitGroup and channel.
type MultiThreadedExecutor struct {
	workerCount int
}

// NewMultiThreadedExecutor returns an Executor that runs access-disjoint
// systems within a barrier-free span concurrently, up to workerCount at a
// time. workerCount <= 0 means unbounded.
func NewMultiThreadedExecutor(workerCount int) *MultiThreadedExecutor {
	return &MultiThreadedExecutor{workerCount: workerCount}
}

func (e *MultiThreadedExecutor) RunSchedule(w *World, s *Schedule) RunResult {
	if err := ensureBuilt(s); err != nil {
		w.cfg.logger().WithError(err).Error("schedule build failed")
		return RunResult{Status: StatusError, Err: err}
	}
	exitReader := NewReader[ExitRequested](w.messages)
	cmds := NewCommandBuffer(w)

	i := 0
	for i < len(s.plan) {
		step := s.plan[i]
		if step.kind == stepBarrier {
			if err := cmds.Apply(w); err != nil {
				return RunResult{Status: StatusError, Err: err}
			}
			i++
			continue
		}

		batch := []*systemNode{s.systems[step.system]}
		j := i + 1
		for j < len(s.plan) && s.plan[j].kind == stepSystem {
			candidate := s.systems[s.plan[j].system]
			if accessConflicts(batch, candidate) {
				w.cfg.logger().WithFields(map[string]interface{}{
					"system": candidate.name,
					"batch":  batchNames(batch),
				}).Debug("access conflict, starting new concurrent batch")
				break
			}
			batch = append(batch, candidate)
			j++
		}

		ctx := context.Background()
		g, ctx := errgroup.WithContext(ctx)
		if e.workerCount > 0 {
			g.SetLimit(e.workerCount)
		}
		for _, node := range batch {
			node := node
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				return node.fn(w, cmds)
			})
		}
		if err := g.Wait(); err != nil {
			return RunResult{Status: StatusError, Err: err}
		}
		for _, node := range batch {
			node.lastRunTick = w.tick.Current()
		}
		i = j
	}
	if err := cmds.Apply(w); err != nil {
		return RunResult{Status: StatusError, Err: err}
	}
	if len(exitReader.Peek()) > 0 {
		return RunResult{Status: StatusExit}
	}
	return RunResult{Status: StatusOK}
}

// accessConflicts reports whether candidate's declared access overlaps any
// write in batch, or batch holds a write candidate also touches. Resource
// reads/writes are checked the same way as component reads/writes, and an
// exclusive system conflicts with everything regardless of its declared
// component/resource footprint.
func accessConflicts(batch []*systemNode, candidate *systemNode) bool {
	if candidate.access.Exclusive {
		return len(batch) > 0
	}

	cw := toSet(candidate.access.Writes)
	cr := toSet(candidate.access.Reads)
	crw := toSet32(candidate.access.ResourceWrites)
	crr := toSet32(candidate.access.ResourceReads)
	for _, n := range batch {
		if n.access.Exclusive {
			return true
		}
		nw := toSet(n.access.Writes)
		nr := toSet(n.access.Reads)
		nrw := toSet32(n.access.ResourceWrites)
		nrr := toSet32(n.access.ResourceReads)
		for bit := range cw {
			if nw[bit] || nr[bit] {
				return true
			}
		}
		for bit := range nw {
			if cw[bit] || cr[bit] {
				return true
			}
		}
		for id := range crw {
			if nrw[id] || nrr[id] {
				return true
			}
		}
		for id := range nrw {
			if crw[id] || crr[id] {
				return true
			}
		}
	}
	return false
}

func toSet(bits []uint32) map[uint32]bool {
	s := make(map[uint32]bool, len(bits))
	for _, b := range bits {
		s[b] = true
	}
	return s
}

func toSet32(ids []ResourceID) map[ResourceID]bool {
	s := make(map[ResourceID]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func batchNames(batch []*systemNode) []string {
	names := make([]string, len(batch))
	for i, n := range batch {
		names[i] = n.name
	}
	return names
}
