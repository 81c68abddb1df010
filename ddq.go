package spanalloc

import "unsafe"

// pushDeferred links blockAddr onto h's deferred-deallocation queue: a
// lock-free stack a foreign thread uses to hand a block back to its
// owning heap without ever touching that heap's heap-confined partial
// lists or span cache. The block's own first
// machine word carries the link, exactly as Span.freeBlock reuses a
// block's first word for the span-local free list — the same trick,
// one level up.
func pushDeferred(h *Heap, blockAddr uintptr) {
	for {
		old := h.deferred.Load()
		*(*uintptr)(unsafe.Pointer(blockAddr)) = old
		if h.deferred.CompareAndSwap(old, blockAddr) {
			return
		}
	}
}

// drainDeferred atomically detaches the whole queue in one step — an
// atomic swap, not a compare-and-swap — so it carries no ABA hazard:
// the owning thread takes the entire queue with a single atomic
// exchange, never a piecemeal pop.
func drainDeferred(h *Heap) uintptr {
	return h.deferred.Swap(0)
}

// walkDeferred calls fn with each block address in a list returned by
// drainDeferred, in reverse push order (most recently pushed first).
func walkDeferred(head uintptr, fn func(blockAddr uintptr)) {
	for addr := head; addr != 0; {
		next := *(*uintptr)(unsafe.Pointer(addr))
		fn(addr)
		addr = next
	}
}
