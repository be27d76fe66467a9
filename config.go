package warehouse

import (
	"fmt"
	"math"
	"runtime"

	"github.com/TheBitDrifter/table"
	"github.com/sirupsen/logrus"
)

// Config holds global configuration for the table system
var Config config = config{}

type config struct {
	tableEvents table.TableEvents
}

// SetTableEvents configures the table event callbacks
func (c *config) SetTableEvents(te table.TableEvents) {
	c.tableEvents = te
}

// ExecutorKind selects which Executor implementation a World runs schedules with.
type ExecutorKind int

const (
	// ExecutorSingleThreaded runs systems one at a time in topological order.
	ExecutorSingleThreaded ExecutorKind = iota
	// ExecutorMultiThreaded runs access-disjoint systems concurrently.
	ExecutorMultiThreaded
)

// WorldConfig is the recognized set of environment options for a World, per
// the options named in the public contract: chunk capacity, chunk
// hysteresis, tick maintenance threshold, and executor selection.
type WorldConfig struct {
	// ArchetypeChunkCapacity is the fixed row capacity per chunk. Must be a
	// positive power of two. table.Table owns its own chunk geometry
	// internally and the builder in archetype.go does not expose a knob for
	// it, so this field is validated for the documented contract but is not
	// threaded into table.NewTableBuilder; chunking itself is delegated to
	// table's own implementation.
	ArchetypeChunkCapacity int

	// ChunkHysteresisFraction controls how empty a chunk must be, relative
	// to capacity, before it is eligible for release. Must be in (0, 1].
	// Same delegation note as ArchetypeChunkCapacity above: table.Table
	// manages chunk release on its own.
	ChunkHysteresisFraction float64

	// TickMaintenanceThreshold is the tick distance that triggers a rebase
	// of all stored ticks.
	TickMaintenanceThreshold uint32

	// ExecutorKind selects single- or multi-threaded execution.
	ExecutorKind ExecutorKind

	// WorkerCount bounds concurrency for the multi-threaded executor.
	WorkerCount int

	// Logger receives structured diagnostics from the schedule builder and
	// executor. Defaults to the standard logrus logger.
	Logger *logrus.Entry
}

// DefaultConfig returns a WorldConfig with the documented defaults.
func DefaultConfig() WorldConfig {
	return WorldConfig{
		ArchetypeChunkCapacity:   4096,
		ChunkHysteresisFraction:  0.5,
		TickMaintenanceThreshold: math.MaxUint32/2 - 16,
		ExecutorKind:             ExecutorSingleThreaded,
		WorkerCount:              max(1, runtime.NumCPU()),
		Logger:                   logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Validate checks that the config's numeric fields are within the
// documented constraints.
func (c WorldConfig) Validate() error {
	if c.ArchetypeChunkCapacity <= 0 || c.ArchetypeChunkCapacity&(c.ArchetypeChunkCapacity-1) != 0 {
		return fmt.Errorf("warehouse: archetype_chunk_capacity must be a positive power of two, got %d", c.ArchetypeChunkCapacity)
	}
	if c.ChunkHysteresisFraction <= 0 || c.ChunkHysteresisFraction > 1 {
		return fmt.Errorf("warehouse: chunk_hysteresis_fraction must be in (0, 1], got %v", c.ChunkHysteresisFraction)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("warehouse: worker_count must be positive, got %d", c.WorkerCount)
	}
	return nil
}

func (c WorldConfig) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
