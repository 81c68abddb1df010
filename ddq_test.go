package spanalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPushDeferredThenDrainReturnsMostRecentFirst(t *testing.T) {
	setupTest(t)
	h := newHeap(1)

	// pushDeferred writes the link into *blockAddr, so each address
	// must point at real, writable memory; borrow the stack.
	var bufA, bufB, bufC uintptr
	a, b, c := uintptr(unsafe.Pointer(&bufA)), uintptr(unsafe.Pointer(&bufB)), uintptr(unsafe.Pointer(&bufC))

	pushDeferred(h, a)
	pushDeferred(h, b)
	pushDeferred(h, c)

	var seen []uintptr
	walkDeferred(drainDeferred(h), func(addr uintptr) {
		seen = append(seen, addr)
	})

	require.Equal(t, []uintptr{c, b, a}, seen, "expected LIFO drain order")
}

func TestDrainDeferredOnEmptyQueueYieldsNothing(t *testing.T) {
	setupTest(t)
	h := newHeap(1)
	count := 0
	walkDeferred(drainDeferred(h), func(uintptr) { count++ })
	require.Zero(t, count)
}
