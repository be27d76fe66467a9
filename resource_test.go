package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameCounter struct{ N int }

func TestResourceStoreInsertAndGet(t *testing.T) {
	rs := NewResourceStore()

	InsertResource(rs, frameCounter{N: 1})

	handle, ok := GetResource[frameCounter](rs)
	require.True(t, ok)
	assert.Equal(t, 1, handle.Get().N)
}

func TestResourceStoreMissingTypeNotFound(t *testing.T) {
	rs := NewResourceStore()

	_, ok := GetResource[frameCounter](rs)
	assert.False(t, ok)
}

func TestResourceStoreInitResourceIsIdempotent(t *testing.T) {
	rs := NewResourceStore()

	id1 := InitResource[frameCounter](rs)
	handle, _ := GetResourceMut[frameCounter](rs)
	handle.Get().N = 42

	id2 := InitResource[frameCounter](rs)
	assert.Equal(t, id1, id2)

	readBack, ok := GetResource[frameCounter](rs)
	require.True(t, ok)
	assert.Equal(t, 42, readBack.Get().N)
}

func TestResourceStoreWriteHandleMutatesSharedStorage(t *testing.T) {
	rs := NewResourceStore()
	InsertResource(rs, frameCounter{N: 0})

	w, ok := GetResourceMut[frameCounter](rs)
	require.True(t, ok)
	w.Get().N++
	w.Get().N++

	read, ok := GetResource[frameCounter](rs)
	require.True(t, ok)
	assert.Equal(t, 2, read.Get().N)
}

func TestResourceStoreRemove(t *testing.T) {
	rs := NewResourceStore()
	InsertResource(rs, frameCounter{N: 7})
	RemoveResource[frameCounter](rs)

	_, ok := GetResource[frameCounter](rs)
	assert.False(t, ok)
}

func TestResourceAddedAndChangedTicks(t *testing.T) {
	rs := NewResourceStore()
	tick := uint32(0)
	rs.setTickProvider(func() uint32 { return tick })

	tick = 5
	InsertResource(rs, frameCounter{N: 1})
	assert.True(t, ResourceAdded[frameCounter](rs, 5))
	assert.False(t, ResourceAdded[frameCounter](rs, 6))

	tick = 9
	w, _ := GetResourceMut[frameCounter](rs)
	w.Get().N = 2
	assert.True(t, ResourceChanged[frameCounter](rs, 9))
	assert.True(t, ResourceChanged[frameCounter](rs, 5))
	assert.False(t, ResourceChanged[frameCounter](rs, 10))
}

func TestResourceStoreRebaseClampsAtZero(t *testing.T) {
	rs := NewResourceStore()
	tick := uint32(3)
	rs.setTickProvider(func() uint32 { return tick })
	InsertResource(rs, frameCounter{N: 1})

	rs.rebase(10)

	assert.True(t, ResourceAdded[frameCounter](rs, 0))
	assert.False(t, ResourceAdded[frameCounter](rs, 1))
}
