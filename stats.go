package spanalloc

import (
	"sync/atomic"

	"github.com/prataprc/spanalloc/api"
)

// detailedStats gates the per-class utilization accounting the
// enable_detailed_statistics flag controls; the coarse counters below
// (mapped/unmapped bytes, oversize count) are always kept since a
// "no leak under balanced operation" test needs MappedBytes regardless
// of the flag.
var detailedStats bool

var (
	mappedPages   atomic.Int64
	oversizeCount atomic.Int64
)

func resetStats() {
	mappedPages.Store(0)
	oversizeCount.Store(0)
}

func recordMapped(pages int64) {
	mappedPages.Add(pages)
}

func recordUnmapped(pages int64) {
	mappedPages.Add(-pages)
}

func recordOversize(delta int64) {
	oversizeCount.Add(delta)
}

// Stats returns a point-in-time snapshot of allocator accounting, the
// optional statistics counters, realized as the api.Stats shape.
// ClassUtilization is only populated when enable_detailed_statistics
// was set at Initialize.
func Stats() api.Stats {
	st := api.Stats{
		MappedBytes:   mappedPages.Load() * pageSize,
		OversizeCount: oversizeCount.Load(),
	}
	if !detailedStats || table == nil {
		return st
	}

	st.ClassUtilization = make(map[int]float64, table.Len())
	globalRegistry.each(func(h *Heap) {
		st.SpanCount += int64(len(h.partial))
		for idx, s := range h.partial {
			for cur := s; cur != nil; cur = cur.next() {
				st.AllocatedBytes += int64(cur.blockCount-cur.freeCount) * cur.blockSize
				cls := table.ByIndex(idx)
				if cls.BlockCount > 0 {
					st.ClassUtilization[idx] = float64(cur.blockCount-cur.freeCount) / float64(cur.blockCount)
				}
			}
		}
	})
	return st
}
