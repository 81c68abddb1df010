package spanalloc

import (
	"sync/atomic"
	"unsafe"
)

// sizeClassOversize marks a span mapped directly by the oversize path
// (oversize.go) rather than carved into size-class blocks.
const sizeClassOversize = int32(-1)

// noBlock is the freeListHead sentinel meaning "the free list is
// empty."
const noBlock = ^uint32(0)

// spanOffset is a signed count of granularity units between two span
// bases: intrusive-list neighbours expressed as a signed offset in
// multiples of the span granularity, not a raw pointer. Zero means "no
// neighbour": no legitimate link ever points a span at itself.
type spanOffset int32

// headerSize is the, alignment-rounded, footprint of Span itself. Every
// span's usable block area starts at base+headerSize.
var headerSize = alignUp(unsafe.Sizeof(Span{}), blockAlignment)

// Span is the header every mapped span begins with, a struct that sits
// at byte 0 of the mapped region it describes. Everything else in the
// span — the header itself plus
// blockCount*blockSize bytes of block storage — lives in the same OS
// mapping; Span never points off to a separately allocated structure.
type Span struct {
	heapID atomic.Uint32

	sizeClass int32 // size-class table index, or sizeClassOversize
	pageCount int32 // OS pages this span occupies; also serves as the
	// oversize path's dedicated page-count field

	prevOffset spanOffset
	nextOffset spanOffset

	blockSize  int64
	blockCount uint32

	// freeListHead is the head of the true intrusive free list: blocks
	// that have been allocated and returned at least once, each
	// threading to the next via a uint32 block index in its first four
	// bytes. noBlock
	// means the list is empty.
	freeListHead uint32

	// nextUntouched is the auto-link terminator watermark: blocks
	// [0, nextUntouched) have been handed out at
	// least once and therefore may carry a free-list link in their
	// first four bytes; blocks at or past it have never been touched and
	// need no threading to be handed out.
	nextUntouched uint32

	freeCount uint32 // blocks currently not allocated, by either path
	listCount uint32 // length of the span chain this span heads, while cached

	base uintptr // address of this Span header; base == &Span itself
}

func spanAt(base uintptr) *Span {
	return (*Span)(unsafe.Pointer(base))
}

// spanOf recovers the owning span's header from any byte inside it by
// masking to the granularity boundary: the span base is recoverable
// from any interior pointer by masking with G-1.
func spanOf(p unsafe.Pointer) *Span {
	base := uintptr(p) &^ (uintptr(granularity) - 1)
	return spanAt(base)
}

func newSpanAt(base uintptr, pageCount int64, sizeClass int, blockSize int64, blockCount uint32) *Span {
	s := spanAt(base)
	*s = Span{
		sizeClass:     int32(sizeClass),
		pageCount:     int32(pageCount),
		blockSize:     blockSize,
		blockCount:    blockCount,
		freeListHead:  noBlock,
		nextUntouched: 0,
		freeCount:     blockCount,
		base:          base,
	}
	return s
}

func (s *Span) oversize() bool {
	return s.sizeClass == sizeClassOversize
}

func (s *Span) blockPtr(idx uint32) unsafe.Pointer {
	return unsafe.Pointer(s.base + headerSize + uintptr(idx)*uintptr(s.blockSize))
}

func (s *Span) blockIndex(p unsafe.Pointer) uint32 {
	off := uintptr(p) - s.base - headerSize
	return uint32(off / uintptr(s.blockSize))
}

// allocBlock pops one block: prefer a returned block off the explicit
// free list, otherwise hand out the next never-touched block. Caller
// must have already verified freeCount > 0.
func (s *Span) allocBlock() unsafe.Pointer {
	if s.freeListHead != noBlock {
		idx := s.freeListHead
		s.freeListHead = *(*uint32)(s.blockPtr(idx))
		s.freeCount--
		return s.blockPtr(idx)
	}
	idx := s.nextUntouched
	s.nextUntouched++
	s.freeCount--
	return s.blockPtr(idx)
}

// freeBlock links the returned block onto the span's own freelist.
func (s *Span) freeBlock(p unsafe.Pointer) {
	idx := s.blockIndex(p)
	*(*uint32)(s.blockPtr(idx)) = s.freeListHead
	s.freeListHead = idx
	s.freeCount++
}

func (s *Span) full() bool {
	return s.freeCount == 0
}

func (s *Span) empty() bool {
	return s.freeCount == s.blockCount
}

func (s *Span) next() *Span {
	if s.nextOffset == 0 {
		return nil
	}
	return spanAt(s.base + uintptr(int64(s.nextOffset)*granularity))
}

func (s *Span) prev() *Span {
	if s.prevOffset == 0 {
		return nil
	}
	return spanAt(s.base + uintptr(int64(s.prevOffset)*granularity))
}

func (s *Span) setNext(n *Span) {
	if n == nil {
		s.nextOffset = 0
		return
	}
	s.nextOffset = spanOffset((int64(n.base) - int64(s.base)) / granularity)
}

func (s *Span) setPrev(p *Span) {
	if p == nil {
		s.prevOffset = 0
		return
	}
	s.prevOffset = spanOffset((int64(p.base) - int64(s.base)) / granularity)
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
