package spanalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prataprc/spanalloc/config"
)

func newTestGSC(t *testing.T, highWater, batch int64) *gsc {
	t.Helper()
	withGranularity(t, 64*1024)
	return newGSC(1, highWater, batch)
}

func TestGSCInsertThenExtractRoundTrips(t *testing.T) {
	g := newTestGSC(t, 32, 16)
	s := newSpanAt(mapTestSpan(t), 1, 0, 32, 4)

	g.insertOne(0, s)
	require.Same(t, s, g.extractOne(0))
	require.Nil(t, g.extractOne(0), "expected an empty class after extracting its only span")
}

func TestGSCExtractBatchRespectsMax(t *testing.T) {
	g := newTestGSC(t, 32, 16)
	spans := make([]*Span, 5)
	for i := range spans {
		spans[i] = newSpanAt(mapTestSpan(t), 1, 0, 32, 4)
		g.insertOne(0, spans[i])
	}

	batch := g.extractBatch(0, 3)
	require.Len(t, batch, 3)
	rest := g.extractBatch(0, 10)
	require.Len(t, rest, 2)
}

func TestGSCOverflowUnmapsExcessRatherThanCaching(t *testing.T) {
	g := newTestGSC(t, 2, 16)
	spans := make([]*Span, 4)
	for i := range spans {
		spans[i] = newSpanAt(mapTestSpan(t), 1, 0, 32, 4)
	}

	head := spans[0]
	for i := 1; i < len(spans); i++ {
		spans[i-1].setNext(spans[i])
		spans[i].setPrev(spans[i-1])
	}

	// All four spans go in against a high-water mark of two: the first
	// two are kept in the class word and the other two are the overflow,
	// which insertBatch hands to unmapChain instead of caching.
	g.insertBatch(0, head, 4)
	_, count := gscUnpack(g.classes[0].word.Load())
	require.EqualValues(t, 2, count)
}

// TestGSCConcurrentOverflowUnderContention drives many goroutines
// through repeated allocate/free churn against a deliberately tiny
// global-cache high-water mark, so heap.go's flushSpanCacheHalf calls
// insertBatch with a batch that overflows on nearly every call while
// other goroutines are racing the same class word. insertBatch used to
// unmap the overflow before its CAS won, which a losing CAS would then
// walk through freed memory; a real mapper here means that bug
// reliably corrupts or crashes this test instead of merely miscounting
// a word, unlike TestGSCOverflowUnmapsExcessRatherThanCaching's
// no-mapper setup.
func TestGSCConcurrentOverflowUnderContention(t *testing.T) {
	if err := Initialize(config.Default().Mixin(config.Config{
		"span.granularity":            int64(64 * 1024),
		"medium.limit":                int64(256 * 1024),
		"global.span.cache.highwater": int64(4),
		"global.span.cache.batch":     int64(2),
	})); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(Finalize)

	const goroutines = 16
	const perGoroutine = 200
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ThreadInitialize()
			defer ThreadFinalize()
			for i := 0; i < perGoroutine; i++ {
				p := Allocate(32, AllocOpts{})
				if p == nil {
					t.Errorf("allocate returned nil")
					return
				}
				Deallocate(p)
			}
		}()
	}
	wg.Wait()
}
