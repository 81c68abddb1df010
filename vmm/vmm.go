package vmm

import "sync/atomic"

// PageSize is the OS page size this process was started with. It is
// read once at package init and never changes afterward.
var PageSize = pageSize()

// addressHintBase is a starting point, well clear of the heap and
// typical shared-library mappings on 64-bit platforms, for the
// monotonic address-hint mapping strategy.
const addressHintBase = uintptr(0x0000700000000000)

// Mapper maps and unmaps spans of OS virtual memory, always aligning
// the returned base to `granularity` bytes. A Mapper is safe for
// concurrent use: the only mutable field, the address hint, is advanced
// with an atomic add.
type Mapper struct {
	granularity int64
	addressHint bool
	hint        uintptr
}

// New creates a Mapper that aligns every mapped span to granularity
// bytes. When addressHintFallback is true, alignment is achieved by
// retrying with a monotonically advancing address hint instead of
// over-mapping and trimming, which is cheaper on platforms where
// repeated trims thrash the VMA table.
func New(granularity int64, addressHintFallback bool) *Mapper {
	return &Mapper{
		granularity: granularity,
		addressHint: addressHintFallback,
		hint:        addressHintBase,
	}
}

// Map requests pageCount pages, aligned to the mapper's granularity.
// Returns ok=false on OS map failure; the caller must not retry
// automatically.
func (m *Mapper) Map(pageCount int64) (base uintptr, ok bool) {
	size := pageCount * int64(PageSize)
	if m.addressHint {
		return m.mapWithHint(size)
	}
	return m.mapAndTrim(size)
}

// Unmap returns pageCount pages at base back to the OS.
func (m *Mapper) Unmap(base uintptr, pageCount int64) {
	size := pageCount * int64(PageSize)
	unmap(base, size)
}

func (m *Mapper) mapAndTrim(size int64) (uintptr, bool) {
	// Over-map by one granularity unit so there is always room to trim
	// down to an aligned base, then give back the unused head/tail.
	overSize := size + m.granularity
	base, ok := mapAnon(overSize)
	if !ok {
		return 0, false
	}
	aligned := alignUp(base, uintptr(m.granularity))
	if head := aligned - base; head > 0 {
		trimRange(base, int64(head))
	}
	tailStart := aligned + uintptr(size)
	tailEnd := base + uintptr(overSize)
	if tailEnd > tailStart {
		trimRange(tailStart, int64(tailEnd-tailStart))
	}
	return aligned, true
}

func (m *Mapper) mapWithHint(size int64) (uintptr, bool) {
	for attempt := 0; attempt < 8; attempt++ {
		hint := m.nextHint(size)
		base, ok := mapAnonAt(hint, size)
		if !ok {
			return 0, false
		}
		if base%uintptr(m.granularity) == 0 {
			return base, true
		}
		unmap(base, size)
	}
	// Hint exhausted its luck; fall back to over-map-and-trim rather
	// than fail an allocation outright.
	return m.mapAndTrim(size)
}

func (m *Mapper) nextHint(size int64) uintptr {
	aligned := alignUp(uintptr(size), uintptr(m.granularity))
	advanced := atomic.AddUintptr(&m.hint, aligned)
	return advanced - aligned
}

func alignUp(v, align uintptr) uintptr {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
