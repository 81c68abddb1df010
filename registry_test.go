package spanalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryInsertAndLookup(t *testing.T) {
	var r registry
	h := &Heap{id: 42}
	r.insert(h)

	require.Same(t, h, r.lookup(42))
	require.Nil(t, r.lookup(7))
}

func TestRegistryOrphanPushPopIsLIFO(t *testing.T) {
	var r registry
	a, b := &Heap{id: 1}, &Heap{id: 2}

	r.pushOrphan(a)
	r.pushOrphan(b)

	require.Same(t, b, r.popOrphan(), "expected LIFO pop to return b first")
	require.Same(t, a, r.popOrphan(), "expected LIFO pop to return a second")
	require.Nil(t, r.popOrphan(), "expected an empty orphan list")
}

func TestRegistryEachVisitsEveryInsertedHeap(t *testing.T) {
	var r registry
	ids := map[uint32]bool{}
	for i := uint32(1); i <= 5; i++ {
		r.insert(&Heap{id: i})
	}
	r.each(func(h *Heap) { ids[h.id] = true })

	require.Len(t, ids, 5)
}
