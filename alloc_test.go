package spanalloc

import (
	"testing"
	"unsafe"
)

func TestAllocateAlignmentAndFit(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	for _, n := range []uintptr{1, 15, 16, 17, 500, 4096, 70000} {
		p := Allocate(n, AllocOpts{})
		if p == nil {
			t.Fatalf("Allocate(%d) returned nil", n)
		}
		if uintptr(p)%blockAlignment != 0 {
			t.Errorf("Allocate(%d) = %p is not %d-byte aligned", n, p, blockAlignment)
		}
		if got := UsableSize(p); got < n {
			t.Errorf("UsableSize(Allocate(%d)) = %d, want >= %d", n, got, n)
		}
		Deallocate(p)
	}
}

// TestAllocateMediumClassBlocksStayAligned allocates several blocks of
// a medium (geometrically stepped) size class from the same span and
// checks every one of them, not just the first, for blockAlignment:
// nextBlockSize's growth step does not land on a 16-byte multiple on
// its own, and blockPtr's base+headerSize+idx*blockSize arithmetic
// only keeps every block aligned if blockSize itself is.
func TestAllocateMediumClassBlocksStayAligned(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	const size = uintptr(2200) // above smallClassLimit, in the medium range
	const count = 4
	ptrs := make([]unsafe.Pointer, count)
	for i := range ptrs {
		ptrs[i] = Allocate(size, AllocOpts{})
		if ptrs[i] == nil {
			t.Fatalf("Allocate(%d) returned nil at block %d", size, i)
		}
		if uintptr(ptrs[i])%blockAlignment != 0 {
			t.Fatalf("block %d = %p is not %d-byte aligned", i, ptrs[i], blockAlignment)
		}
	}
	for _, p := range ptrs {
		Deallocate(p)
	}
}

func TestAllocateDisjointness(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	const n = 200
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptrs[i] = Allocate(500, AllocOpts{})
		if ptrs[i] == nil {
			t.Fatalf("Allocate failed at iteration %d", i)
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if overlaps(ptrs[i], UsableSize(ptrs[i]), ptrs[j], UsableSize(ptrs[j])) {
				t.Fatalf("pointers %p and %p overlap", ptrs[i], ptrs[j])
			}
		}
	}
	for _, p := range ptrs {
		Deallocate(p)
	}
}

func overlaps(a unsafe.Pointer, aLen uintptr, b unsafe.Pointer, bLen uintptr) bool {
	aStart, aEnd := uintptr(a), uintptr(a)+aLen
	bStart, bEnd := uintptr(b), uintptr(b)+bLen
	return aStart < bEnd && bStart < aEnd
}

func TestZeroInitFillsEveryByte(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	p := Allocate(500, AllocOpts{})
	pattern := unsafe.Slice((*byte)(p), 500)
	for i := range pattern {
		pattern[i] = 0xAB
	}
	Deallocate(p)

	q := Allocate(500, AllocOpts{ZeroInit: true})
	b := unsafe.Slice((*byte)(q), 500)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, v)
		}
	}
	Deallocate(q)
}

func TestReallocatePreservesContent(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	p := Allocate(64, AllocOpts{})
	b := unsafe.Slice((*byte)(p), 64)
	for i := range b {
		b[i] = byte(i)
	}

	q := Reallocate(p, 256, AllocOpts{})
	if q == nil {
		t.Fatalf("Reallocate returned nil")
	}
	nb := unsafe.Slice((*byte)(q), 64)
	for i := range nb {
		if nb[i] != byte(i) {
			t.Fatalf("byte %d not preserved: got %#x want %#x", i, nb[i], byte(i))
		}
	}
	Deallocate(q)
}

func TestReallocateNoPreserveSkipsCopy(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	p := Allocate(64, AllocOpts{})
	q := Reallocate(p, 256, AllocOpts{NoPreserve: true})
	if q == nil {
		t.Fatalf("Reallocate returned nil")
	}
	Deallocate(q)
}

func TestReallocateNilActsLikeAllocate(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	p := Reallocate(nil, 64, AllocOpts{})
	if p == nil {
		t.Fatalf("Reallocate(nil, ...) returned nil")
	}
	Deallocate(p)
}

func TestReallocateToZeroFreesAndReturnsNil(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	p := Allocate(64, AllocOpts{})
	q := Reallocate(p, 0, AllocOpts{})
	if q != nil {
		t.Fatalf("Reallocate(p, 0, ...) = %p, want nil", q)
	}
}

func TestDeallocateNilIsNoOp(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)
	Deallocate(nil)
}

func TestSpanOwnershipRecovery(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	h := ThreadInitialize()
	p := Allocate(32, AllocOpts{})
	s := spanOf(p)
	if s.heapID.Load() != h.id {
		t.Fatalf("span heap id %d, want %d", s.heapID.Load(), h.id)
	}
	idx, _, ok := table.Lookup(32)
	if !ok || int(s.sizeClass) != idx {
		t.Fatalf("span size class %d, want %d", s.sizeClass, idx)
	}
	Deallocate(p)
}

func TestNoLeakUnderBalancedOperation(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	before := Stats().MappedBytes
	for i := 0; i < 64; i++ {
		sz := uintptr(16 + (i%200)*16)
		p := Allocate(sz, AllocOpts{})
		Deallocate(p)
	}
	ThreadFinalize()
	// Every block is freed, so every span is cached somewhere Finalize
	// unmaps; Finalize does not reset the counter, Initialize does.
	Finalize()
	after := Stats().MappedBytes
	if after != before {
		t.Fatalf("expected mapped bytes to return to %d after balanced operation, got %d", before, after)
	}
	if err := Initialize(nil); err != nil {
		t.Fatalf("re-Initialize failed: %v", err)
	}
}
