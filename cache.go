package warehouse

import "fmt"

var _ Cache[any] = &SimpleCache[any]{}

// Cache maps string keys to stable 1-based indices into a bounded item list.
type Cache[T any] interface {
	GetIndex(key string) (int, bool)
	GetItem(index int) *T
	GetItem32(index uint32) *T
	Register(key string, item T) (int, error)
}

// SimpleCache is the slice-backed Cache implementation.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// GetIndex returns the 1-based index registered under key, and whether it
// was found. Index 0 is never assigned, so it is safe to use as an
// "unregistered" sentinel.
func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

// GetItem returns a pointer to the item at the given 1-based index.
func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index-1]
}

// GetItem32 returns a pointer to the item at the given 1-based index.
func (c *SimpleCache[T]) GetItem32(index uint32) *T {
	return &c.items[index-1]
}

// Register stores item under key and returns its 1-based index. Returns an
// error once the cache has reached its configured maximum capacity.
func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if len(c.itemIndices) >= c.maxCapacity {
		return 0, fmt.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}

	c.items = append(c.items, item)
	idx := len(c.items)
	c.itemIndices[key] = idx

	return idx, nil
}

// Clear empties the cache, preserving its configured capacity.
func (c *SimpleCache[T]) Clear() {
	c.items = make([]T, 0, c.maxCapacity)
	c.itemIndices = make(map[string]int)
}
