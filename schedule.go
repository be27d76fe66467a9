package warehouse

import (
	"fmt"
	"sort"
)

// SystemFunc is one unit of scheduled work. It receives the world it runs
// against and a CommandBuffer it should route structural mutations through
// rather than calling Spawn/Despawn/Set directly, so the Executor can apply
// them at a controlled barrier instead of mid-iteration.
type SystemFunc func(w *World, cmds *CommandBuffer) error

type systemNode struct {
	name         string
	fn           SystemFunc
	access       AccessSummary
	sets         map[string]bool
	lastRunTick  uint32
	declareOrder int
}

type setNode struct {
	name    string
	members []string
}

type edgeKind int

const (
	edgeBefore edgeKind = iota
	edgeAfter
	edgeBeforeNoBarrier
	edgeAfterNoBarrier
)

type rawEdge struct {
	from, to string // from runs before to
	barrier  bool
}

// Schedule is a graph of systems and sets with ordering edges, compiled by
// Build into a flat, barrier-annotated execution plan an Executor can run.
type Schedule struct {
	systems      map[string]*systemNode
	declareOrder []string
	sets         map[string]*setNode
	rawEdges     []rawEdge

	built        bool
	plan         []scheduleStep
	systemsOrder []string // topological order, systems only
}

type stepKind int

const (
	stepSystem stepKind = iota
	stepBarrier
)

type scheduleStep struct {
	kind   stepKind
	system string
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{
		systems: make(map[string]*systemNode),
		sets:    make(map[string]*setNode),
	}
}

// AddSystem registers fn under name with the given declared access summary.
// Re-registering an existing name replaces it and invalidates any prior
// Build.
func (s *Schedule) AddSystem(name string, fn SystemFunc, access AccessSummary) *Schedule {
	if _, exists := s.systems[name]; !exists {
		s.declareOrder = append(s.declareOrder, name)
	}
	s.systems[name] = &systemNode{name: name, fn: fn, access: access, sets: make(map[string]bool)}
	s.built = false
	return s
}

// AddSet names a group of systems so ordering edges can target the whole
// group at once.
func (s *Schedule) AddSet(name string, members ...string) *Schedule {
	s.sets[name] = &setNode{name: name, members: members}
	for _, m := range members {
		if n, ok := s.systems[m]; ok {
			n.sets[name] = true
		}
	}
	s.built = false
	return s
}

func (s *Schedule) addEdge(kind edgeKind, a, b string) *Schedule {
	barrier := kind == edgeBefore || kind == edgeAfter
	from, to := a, b
	if kind == edgeAfter || kind == edgeAfterNoBarrier {
		from, to = b, a
	}
	s.rawEdges = append(s.rawEdges, rawEdge{from: from, to: to, barrier: barrier})
	s.built = false
	return s
}

// Before declares that a (a system or set name) must run before b, with a
// command-buffer barrier between them.
func (s *Schedule) Before(a, b string) *Schedule { return s.addEdge(edgeBefore, a, b) }

// After declares that a must run after b, with a barrier between them.
func (s *Schedule) After(a, b string) *Schedule { return s.addEdge(edgeAfter, a, b) }

// BeforeNoBarrier is like Before but does not force a deferred-command
// barrier between the two systems.
func (s *Schedule) BeforeNoBarrier(a, b string) *Schedule { return s.addEdge(edgeBeforeNoBarrier, a, b) }

// AfterNoBarrier is like After but does not force a barrier.
func (s *Schedule) AfterNoBarrier(a, b string) *Schedule { return s.addEdge(edgeAfterNoBarrier, a, b) }

// namesFor expands id, which may be a system or a set, into its constituent
// system names.
func (s *Schedule) namesFor(id string) []string {
	if set, ok := s.sets[id]; ok {
		return set.members
	}
	if _, ok := s.systems[id]; ok {
		return []string{id}
	}
	return nil
}

// Build expands set edges into system edges, checks for cycles, computes a
// stable topological order, and annotates it with barrier steps.
func (s *Schedule) Build() error {
	adjacency := make(map[string]map[string]bool)
	barrierEdge := make(map[string]map[string]bool)
	for name := range s.systems {
		adjacency[name] = make(map[string]bool)
		barrierEdge[name] = make(map[string]bool)
	}

	for _, e := range s.rawEdges {
		froms := s.namesFor(e.from)
		tos := s.namesFor(e.to)
		for _, f := range froms {
			for _, t := range tos {
				if f == t {
					continue
				}
				adjacency[f][t] = true
				if e.barrier {
					barrierEdge[f][t] = true
				}
			}
		}
	}

	if path := s.findCycle(adjacency); path != nil {
		return CycleInScheduleError{Path: path}
	}

	order, err := s.kahnOrder(adjacency)
	if err != nil {
		return err
	}

	needsBarrierAfter := make(map[string]bool)
	for from, tos := range barrierEdge {
		for to := range tos {
			_ = to
			needsBarrierAfter[from] = true
		}
	}

	plan := make([]scheduleStep, 0, len(order)*2)
	for i, name := range order {
		plan = append(plan, scheduleStep{kind: stepSystem, system: name})
		if needsBarrierAfter[name] && i != len(order)-1 {
			plan = append(plan, scheduleStep{kind: stepBarrier})
		}
	}

	s.systemsOrder = order
	s.plan = plan
	s.built = true
	return nil
}

// findCycle runs a DFS with a recursion stack, returning the cycle's node
// path (for the error message) or nil if the graph is acyclic.
func (s *Schedule) findCycle(adjacency map[string]map[string]bool) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(adjacency))
	var path []string

	var visit func(node string) []string
	visit = func(node string) []string {
		color[node] = gray
		path = append(path, node)
		neighbors := make([]string, 0, len(adjacency[node]))
		for n := range adjacency[node] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		for _, next := range neighbors {
			switch color[next] {
			case white:
				if cyc := visit(next); cyc != nil {
					return cyc
				}
			case gray:
				cycleStart := 0
				for i, n := range path {
					if n == next {
						cycleStart = i
						break
					}
				}
				cycle := append(append([]string{}, path[cycleStart:]...), next)
				return cycle
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return nil
	}

	names := make([]string, 0, len(adjacency))
	for n := range adjacency {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

// kahnOrder computes a topological order, breaking ties by declaration order
// rather than map iteration order so Build is deterministic across runs.
func (s *Schedule) kahnOrder(adjacency map[string]map[string]bool) ([]string, error) {
	inDegree := make(map[string]int, len(adjacency))
	for n := range adjacency {
		inDegree[n] = 0
	}
	for _, tos := range adjacency {
		for t := range tos {
			inDegree[t]++
		}
	}

	declarePos := make(map[string]int, len(s.declareOrder))
	for i, n := range s.declareOrder {
		declarePos[n] = i
	}

	var ready []string
	for _, n := range s.declareOrder {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return declarePos[ready[i]] < declarePos[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		targets := make([]string, 0, len(adjacency[next]))
		for t := range adjacency[next] {
			targets = append(targets, t)
		}
		sort.Slice(targets, func(i, j int) bool { return declarePos[targets[i]] < declarePos[targets[j]] })
		for _, t := range targets {
			inDegree[t]--
			if inDegree[t] == 0 {
				ready = append(ready, t)
			}
		}
	}

	if len(order) != len(adjacency) {
		return nil, fmt.Errorf("warehouse: schedule build produced %d of %d systems; graph may be disconnected from a cycle missed by detection", len(order), len(adjacency))
	}
	return order, nil
}
