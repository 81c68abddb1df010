package spanalloc

import (
	"testing"
	"unsafe"
)

func TestOversizeAllocateAlignAndFree(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	const size = uintptr(2 * 1024 * 1024) // > medium_limit (256KiB in this test's config)
	before := Stats().MappedBytes

	p := Allocate(size, AllocOpts{})
	if p == nil {
		t.Fatalf("oversize Allocate returned nil")
	}
	if uintptr(p)%blockAlignment != 0 {
		t.Fatalf("oversize pointer %p is not %d-byte aligned", p, blockAlignment)
	}
	s := spanOf(p)
	if !s.oversize() {
		t.Fatalf("expected the oversize sentinel on a %d-byte request", size)
	}
	if got := UsableSize(p); got < size {
		t.Fatalf("UsableSize = %d, want >= %d", got, size)
	}

	b := unsafe.Slice((*byte)(p), int(size))
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		if b[i] != byte(i) {
			t.Fatalf("byte %d corrupted", i)
		}
	}

	Deallocate(p)
	if got := Stats().MappedBytes; got != before {
		t.Fatalf("expected mapped bytes to return to baseline %d, got %d", before, got)
	}
}

func TestOversizeDeallocateRoutesWithoutAHeap(t *testing.T) {
	setupTest(t)

	p := Allocate(4*1024*1024, AllocOpts{})
	if p == nil {
		t.Fatalf("oversize Allocate returned nil")
	}
	// No ThreadInitialize/ThreadFinalize in this test: oversize
	// dealloc never consults a heap.
	Deallocate(p)
}
