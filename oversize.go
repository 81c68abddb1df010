package spanalloc

import (
	"unsafe"

	"github.com/prataprc/spanalloc/api"
)

// allocateOversize handles requests larger than a single span can
// hold: they bypass every heap and go straight to the VMM, with a span
// header identical in shape to a heap-owned span's except for the
// size-class sentinel and the dedicated page-count field.
func allocateOversize(n uintptr, flags api.AllocFlags) unsafe.Pointer {
	pages := oversizePageCount(int64(n))
	base, ok := mapper.Map(pages)
	if !ok {
		return nil
	}
	recordMapped(pages)
	recordOversize(1)

	s := spanAt(base)
	*s = Span{
		sizeClass: sizeClassOversize,
		pageCount: int32(pages),
		base:      base,
	}

	p := unsafe.Pointer(base + headerSize)
	if flags.Has(api.FlagZeroInit) {
		zeroFill(p, pages*pageSize-int64(headerSize))
	}
	return p
}

// deallocateOversize is the other half of the oversize path: recovery
// is via the same mask-and-inspect test as a heap-owned span, so
// Deallocate in alloc.go routes here the instant it sees the oversize
// sentinel, without ever consulting a heap.
func deallocateOversize(s *Span) {
	recordUnmapped(int64(s.pageCount))
	recordOversize(-1)
	mapper.Unmap(s.base, int64(s.pageCount))
}

// oversizePageCount is ceil((n + header) / page_size).
func oversizePageCount(n int64) int64 {
	total := n + int64(headerSize)
	return (total + pageSize - 1) / pageSize
}
