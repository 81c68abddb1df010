package spanalloc

import (
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/spanalloc/api"
	"github.com/prataprc/spanalloc/sizeclass"
)

// heapSpanCacheHighwater bounds a heap's per-class span cache: once it
// exceeds this mark, half is released to the global cache. Set from
// the "heap.span.cache.highwater" config key at Initialize.
var heapSpanCacheHighwater int

// spanCacheList is one page-count class's worth of empty spans cached
// by a single heap, for reuse without a round trip through the global
// cache. It is only ever touched by the owning goroutine, so it
// carries no synchronization of its own.
type spanCacheList struct {
	head  *Span
	count int
}

func (l *spanCacheList) push(s *Span) {
	s.setNext(l.head)
	s.setPrev(nil)
	if l.head != nil {
		l.head.setPrev(s)
	}
	l.head = s
	l.count++
}

func (l *spanCacheList) pop() *Span {
	s := l.head
	if s == nil {
		return nil
	}
	l.head = s.next()
	if l.head != nil {
		l.head.setPrev(nil)
	}
	s.setNext(nil)
	l.count--
	return s
}

// Heap is the Thread Heap: the per-goroutine allocator state that owns
// the partial-span lists and the empty-span cache. It is created
// lazily on a goroutine's first allocation and never freed — only
// orphaned and re-adopted.
type Heap struct {
	id uint32

	registryNext atomic.Pointer[Heap]
	orphanNext   atomic.Pointer[Heap]

	// deferred is the DDQ head: a foreign goroutine CASes a freed
	// block's address here (ddq.go); the owning heap drains it with
	// an atomic swap at the top of its own allocation path.
	deferred atomic.Uintptr

	partial   []*Span         // indexed by size-class index
	spanCache []spanCacheList // indexed by page-count-class index

	// pending is the optional "one rescued span" slot of the
	// pending-superblock optimization, gated by
	// heap_pending_superblock. See DESIGN.md for how this repository
	// resolves the optimization's single-owner-heap semantics.
	pending *Span

	allocCount atomic.Uint64
	freeCount  atomic.Uint64
}

func newHeap(id uint32) *Heap {
	return &Heap{
		id:        id,
		partial:   make([]*Span, table.Len()),
		spanCache: make([]spanCacheList, len(pageCountsList)),
	}
}

// allocate serves an allocation from this heap. The caller (Allocate
// in alloc.go) has already routed requests above the medium limit to
// the oversize path and ensured a heap is bound.
func (h *Heap) allocate(n int64, flags api.AllocFlags) unsafe.Pointer {
	h.drainDeferred()

	idx, cls, ok := table.Lookup(n)
	if !ok {
		// n is within the medium limit but the table has no class for
		// it (e.g. a gap the packing procedure left); oversize is the
		// only path left that can still serve it.
		return allocateOversize(uintptr(n), flags)
	}

	if s := h.partial[idx]; s != nil {
		return h.allocFromSpan(idx, s)
	}

	s := h.takeSpanForClass(idx, cls)
	if s == nil {
		return nil
	}
	return h.allocFromSpan(idx, s)
}

// allocFromSpan pops one block from s (already installed, or about to
// be installed, as the partial-list head for idx) and maintains
// partial-list membership: a span that becomes full unlinks itself.
func (h *Heap) allocFromSpan(idx int, s *Span) unsafe.Pointer {
	p := s.allocBlock()
	h.allocCount.Add(1)
	if s.full() {
		assertTransition(statePartial, stateFull)
		h.unlinkPartial(idx, s)
	}
	return p
}

// takeSpanForClass consults this heap's span cache for the class's
// page count, then the pending slot, then the global cache, then maps
// fresh pages. Whichever span is found is
// published (heap id stored with release ordering) and installed into
// the class's partial list if the class has more than one block, so
// that at least one block is still free after the first allocation.
func (h *Heap) takeSpanForClass(idx int, cls sizeclass.Class) *Span {
	pcIdx := classPageIdx[cls.PageCount]

	var s *Span
	var from spanState
	switch {
	case h.spanCache[pcIdx].count > 0:
		s = h.spanCache[pcIdx].pop()
		from = stateEmptyInHeapCache
	case pendingSuperblock && h.pending != nil && int64(h.pending.pageCount) == cls.PageCount:
		s = h.pending
		h.pending = nil
		from = stateFreeCached
	default:
		if batch := globalGSC.extractBatch(pcIdx, globalGSC.batch); len(batch) > 0 {
			s = batch[0]
			rest := batch[1:]
			// Stash one spare in the pending slot instead of the
			// spanCache list, so the very next allocation into this
			// class skips the linked-list push/pop.
			if pendingSuperblock && h.pending == nil && len(rest) > 0 {
				h.pending = rest[0]
				rest = rest[1:]
			}
			for _, r := range rest {
				h.spanCache[pcIdx].push(r)
			}
		} else {
			base, ok := mapper.Map(cls.PageCount)
			if !ok {
				return nil
			}
			recordMapped(cls.PageCount)
			s = newSpanAt(base, cls.PageCount, idx, cls.BlockSize, uint32(cls.BlockCount))
		}
		from = stateFreeCached
	}

	to := statePartial
	if cls.BlockCount <= 1 {
		to = stateFull
	}
	assertTransition(from, to)

	s.sizeClass = int32(idx)
	s.blockSize = cls.BlockSize
	s.blockCount = uint32(cls.BlockCount)
	s.freeListHead = noBlock
	s.nextUntouched = 0
	s.freeCount = uint32(cls.BlockCount)
	s.setNext(nil)
	s.setPrev(nil)

	// Publish ownership with release ordering: any goroutine that
	// later loads heapID with acquire ordering before
	// dereferencing this span's freelist fields observes a
	// fully-initialized header.
	s.heapID.Store(h.id)

	if cls.BlockCount > 1 {
		h.installPartial(idx, s)
	}
	return s
}

func (h *Heap) installPartial(idx int, s *Span) {
	old := h.partial[idx]
	s.setNext(old)
	if old != nil {
		old.setPrev(s)
	}
	s.setPrev(nil)
	h.partial[idx] = s
}

func (h *Heap) unlinkPartial(idx int, s *Span) {
	prev, next := s.prev(), s.next()
	if prev != nil {
		prev.setNext(next)
	} else {
		h.partial[idx] = next
	}
	if next != nil {
		next.setPrev(prev)
	}
	s.setNext(nil)
	s.setPrev(nil)
}

// deallocateLocal is the local dealloc path: push the block back onto
// its span's intrusive freelist, then react to the resulting state
// transition.
func (h *Heap) deallocateLocal(s *Span, p unsafe.Pointer) {
	wasFull := s.full()
	idx := int(s.sizeClass)

	s.freeBlock(p)
	h.freeCount.Add(1)

	if wasFull {
		assertTransition(stateFull, statePartial)
		if s.empty() {
			// A single-block class (cls.BlockCount == 1): the span was
			// never actually linked
			// into the partial list on the full->partial edge above, it
			// just shed its one block, so route it straight to the
			// empty-span cache instead of installing-then-immediately-
			// unlinking it.
			assertTransition(statePartial, stateEmptyInHeapCache)
			h.cacheEmptySpan(s)
			return
		}
		h.installPartial(idx, s)
		return
	}
	if s.empty() {
		assertTransition(statePartial, stateEmptyInHeapCache)
		h.unlinkPartial(idx, s)
		h.cacheEmptySpan(s)
	}
}

// cacheEmptySpan pushes the now-empty span onto this heap's
// per-page-count cache, flushing half of it to the global cache when
// the heap-local highwater mark is exceeded.
func (h *Heap) cacheEmptySpan(s *Span) {
	pcIdx := classPageIdx[int64(s.pageCount)]
	list := &h.spanCache[pcIdx]
	list.push(s)
	if list.count > heapSpanCacheHighwater {
		h.flushSpanCacheHalf(pcIdx)
	}
}

func (h *Heap) flushSpanCacheHalf(pcIdx int) {
	list := &h.spanCache[pcIdx]
	n := int64(list.count / 2)
	if n == 0 {
		return
	}
	head := list.pop()
	tail := head
	for i := int64(1); i < n; i++ {
		s := list.pop()
		tail.setNext(s)
		s.setPrev(tail)
		tail = s
	}
	tail.setNext(nil)
	assertTransition(stateEmptyInHeapCache, stateFreeCached)
	globalGSC.insertBatch(pcIdx, head, n)
}

// drainDeferred atomically swaps this heap's DDQ head to empty, then
// routes every block on it through the local dealloc path, exactly as
// if the owning goroutine had freed it itself.
func (h *Heap) drainDeferred() {
	head := drainDeferred(h)
	walkDeferred(head, func(blockAddr uintptr) {
		p := unsafe.Pointer(blockAddr)
		s := spanOf(p)
		h.deallocateLocal(s, p)
	})
}

// drainSpanCachesToGlobal is ThreadFinalize's contribution: give back
// every cached empty span so another goroutine's heap (or a future
// orphan-adopter) is not starved just because this one is exiting.
func (h *Heap) drainSpanCachesToGlobal() {
	for pcIdx := range h.spanCache {
		list := &h.spanCache[pcIdx]
		for list.count > 0 {
			s := list.pop()
			assertTransition(stateEmptyInHeapCache, stateFreeCached)
			globalGSC.insertOne(pcIdx, s)
		}
	}
	if h.pending != nil {
		pcIdx := classPageIdx[int64(h.pending.pageCount)]
		globalGSC.insertOne(pcIdx, h.pending)
		h.pending = nil
	}
}

// releaseAllSpans is Finalize's per-heap contribution: everything a
// heap still owns — partial spans and cached empty spans — is unmapped
// directly, since Finalize's contract guarantees no operation is
// concurrently in flight.
func (h *Heap) releaseAllSpans() {
	for idx, s := range h.partial {
		for s != nil {
			next := s.next()
			unmapSpan(s)
			s = next
		}
		h.partial[idx] = nil
	}
	for pcIdx := range h.spanCache {
		list := &h.spanCache[pcIdx]
		for list.count > 0 {
			unmapSpan(list.pop())
		}
	}
	if h.pending != nil {
		unmapSpan(h.pending)
		h.pending = nil
	}
}

func unmapSpan(s *Span) {
	recordUnmapped(int64(s.pageCount))
	mapper.Unmap(s.base, int64(s.pageCount))
}
