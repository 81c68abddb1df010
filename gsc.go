package spanalloc

import "sync/atomic"

// gscLockSentinel marks a class's word as "an extraction is in
// progress"; a lock sentinel value protects multi-step reads. No
// legitimate packed word can equal it: a real head address is always
// span-granularity aligned, so its low bits (where the count lives)
// can never all be set along with every address bit above them.
const gscLockSentinel = ^uint64(0)

// gscClass is one page-count class's head: a single word packs
// (head span pointer, count). The low log2(granularity) bits of a span
// address are always zero, so they carry the count; the word holds no
// separate ABA tag.
type gscClass struct {
	word atomic.Uint64
}

// gsc is the Global Span Cache: one lock-free stack per page-count
// class, shared by every heap in the process.
type gsc struct {
	classes    []gscClass
	highWater  int64
	batch      int64
}

func newGSC(nClasses int, highWater, batch int64) *gsc {
	return &gsc{
		classes:   make([]gscClass, nClasses),
		highWater: highWater,
		batch:     batch,
	}
}

func gscPack(base uintptr, count int64) uint64 {
	return uint64(base&^uintptr(granularity-1)) | uint64(count)
}

func gscUnpack(word uint64) (base uintptr, count int64) {
	base = uintptr(word) &^ uintptr(granularity-1)
	count = int64(word) & (granularity - 1)
	return base, count
}

// insertOne is insertBatch for a single span: drainSpanCachesToGlobal
// (ThreadFinalize) hands spans back here one at a time, while a heap
// whose span cache exceeds its high-water mark releases half of it
// through insertBatch directly.
func (g *gsc) insertOne(pcIdx int, s *Span) {
	g.insertBatch(pcIdx, s, 1)
}

// insertBatch chains the n spans headed by head (already linked via
// setNext, as heap.go's flushSpanCacheHalf prepares them) onto the
// class's stack in one CAS: the inserted list's tail links to the
// prior head, then the word CASes to (new head, count + inserted). If
// the resulting count would exceed the high-water mark, the spans past
// the mark are the overflow and are unmapped instead of cached — but
// only once the CAS that drops them from the batch has actually won;
// a losing CAS relinks the batch back to its original shape and
// retries against the fresh word, so a span is never unmapped until
// this call is provably the one that took it out of circulation.
func (g *gsc) insertBatch(pcIdx int, head *Span, n int64) {
	if n <= 0 {
		return
	}
	cls := &g.classes[pcIdx]
	for {
		old := cls.word.Load()
		if old == gscLockSentinel {
			continue
		}
		oldBase, oldCount := gscUnpack(old)

		keep := n
		if over := oldCount + n - g.highWater; over > 0 {
			keep = n - over
			if keep < 0 {
				keep = 0
			}
		}

		var oldHead *Span
		if oldBase != 0 {
			oldHead = spanAt(oldBase)
		}

		if keep <= 0 {
			// The cache is already at or past the high-water mark: none
			// of this batch will be cached, so all of it is overflow.
			unmapChain(head)
			return
		}

		tail := head
		for i := int64(1); i < keep; i++ {
			tail = tail.next()
		}
		overflowHead := tail.next()

		tail.setNext(oldHead)
		if oldHead != nil {
			oldHead.setPrev(tail)
		}
		head.setPrev(nil)

		newWord := gscPack(head.base, oldCount+keep)
		if cls.word.CompareAndSwap(old, newWord) {
			unmapChain(overflowHead)
			return
		}

		// Lost the race: undo the relink before the next iteration
		// recomputes keep against a fresh word. Nothing has been
		// unmapped yet, so the whole chain is still intact to retry.
		tail.setNext(overflowHead)
		if overflowHead != nil {
			overflowHead.setPrev(tail)
		}
		if oldHead != nil {
			oldHead.setPrev(nil)
		}
	}
}

// unmapChain unmaps every span in a nil-terminated chain linked via
// setNext.
func unmapChain(head *Span) {
	for head != nil {
		next := head.next()
		unmapSpan(head)
		head = next
	}
}

// extractOne is extractBatch for the common single-span pull.
func (g *gsc) extractOne(pcIdx int) *Span {
	batch := g.extractBatch(pcIdx, 1)
	if len(batch) == 0 {
		return nil
	}
	return batch[0]
}

// extractBatch takes out up to max spans in one call, e.g. a fixed
// batch of 16 spans at a time rather than one CAS per span. Locking
// the class word for the duration of the walk (rather than CASing
// per-span) keeps the walk itself simple and bounded, at the cost of a
// short window where concurrent inserters on this class spin —
// acceptable since the cache only promises lock-freedom, not
// wait-freedom.
func (g *gsc) extractBatch(pcIdx int, max int64) []*Span {
	cls := &g.classes[pcIdx]
	for {
		old := cls.word.Load()
		if old == 0 {
			return nil
		}
		if old == gscLockSentinel {
			continue
		}
		if !cls.word.CompareAndSwap(old, gscLockSentinel) {
			continue
		}

		base, count := gscUnpack(old)
		head := spanAt(base)
		take := max
		if take > count {
			take = count
		}

		out := make([]*Span, 0, take)
		cur := head
		for i := int64(0); i < take; i++ {
			out = append(out, cur)
			cur = cur.next()
		}

		var newWord uint64
		if cur != nil {
			cur.setPrev(nil)
			newWord = gscPack(cur.base, count-take)
		}
		cls.word.Store(newWord)

		for _, s := range out {
			s.setNext(nil)
			s.setPrev(nil)
		}
		return out
	}
}

// releaseAll drains every class and unmaps every span in it; used
// only by Finalize, under the same "nothing else is running" contract
// as the rest of the allocator's termination semantics.
func (g *gsc) releaseAll() {
	for pcIdx := range g.classes {
		for {
			batch := g.extractBatch(pcIdx, g.highWater+1)
			if len(batch) == 0 {
				break
			}
			for _, s := range batch {
				unmapSpan(s)
			}
		}
	}
}
