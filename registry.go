package spanalloc

import "sync/atomic"

// registryBuckets is the width of the heap registry's hash table. It
// is a compile-time constant rather than a config knob because the
// registry holds, at most, one entry per OS thread ever seen by the
// process — hundreds, not millions.
const registryBuckets = 4096

// registry is the Heap Registry & Orphan List: an
// array-of-atomic-pointer hash table keyed by heap id modulo
// registryBuckets, with per-bucket chaining, plus a separate lock-free
// stack of heaps that ThreadFinalize has orphaned. Heaps are never freed (see DESIGN.md's resolution of
// the never-freed-heaps question), so both structures are safe to walk
// without any reclamation scheme.
type registry struct {
	buckets    [registryBuckets]atomic.Pointer[Heap]
	nextID     atomic.Uint32
	orphanHead atomic.Pointer[Heap]
}

var globalRegistry registry

func (r *registry) newHeapID() uint32 {
	return r.nextID.Add(1)
}

// insert adds h to its bucket via a lock-free CAS-retry push.
func (r *registry) insert(h *Heap) {
	bucket := &r.buckets[h.id%registryBuckets]
	for {
		head := bucket.Load()
		h.registryNext.Store(head)
		if bucket.CompareAndSwap(head, h) {
			return
		}
	}
}

func (r *registry) lookup(id uint32) *Heap {
	bucket := &r.buckets[id%registryBuckets]
	for h := bucket.Load(); h != nil; h = h.registryNext.Load() {
		if h.id == id {
			return h
		}
	}
	return nil
}

// pushOrphan enqueues h for adoption by a future ThreadInitialize
// call. Heaps are never freed, so the usual lock-free-stack ABA
// hazard — an address getting reused for an unrelated object between a
// reader's load and its CAS — cannot occur here: a "stale" read always
// still names a live, valid Heap.
func (r *registry) pushOrphan(h *Heap) {
	for {
		head := r.orphanHead.Load()
		h.orphanNext.Store(head)
		if r.orphanHead.CompareAndSwap(head, h) {
			return
		}
	}
}

// popOrphan adopts the most recently orphaned heap, if any.
func (r *registry) popOrphan() *Heap {
	for {
		head := r.orphanHead.Load()
		if head == nil {
			return nil
		}
		next := head.orphanNext.Load()
		if r.orphanHead.CompareAndSwap(head, next) {
			return head
		}
	}
}

// each walks every registered heap. Used by Finalize to unmap the
// spans every heap still holds, and by stats.go to sum per-heap
// counters.
func (r *registry) each(fn func(*Heap)) {
	for i := range r.buckets {
		for h := r.buckets[i].Load(); h != nil; h = h.registryNext.Load() {
			fn(h)
		}
	}
}

func (r *registry) reset() {
	for i := range r.buckets {
		r.buckets[i].Store(nil)
	}
	r.nextID.Store(0)
	r.orphanHead.Store(nil)
}
