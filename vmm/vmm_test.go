package vmm

import "testing"

func TestMapUnmapAligned(t *testing.T) {
	granularity := int64(64 * 1024)
	m := New(granularity, false)
	pageCount := granularity / int64(PageSize)

	bases := make([]uintptr, 0, 32)
	for i := 0; i < 32; i++ {
		base, ok := m.Map(pageCount)
		if !ok {
			t.Fatalf("map %d failed", i)
		}
		if base%uintptr(granularity) != 0 {
			t.Fatalf("base %#x not aligned to %#x", base, granularity)
		}
		bases = append(bases, base)
	}
	for _, base := range bases {
		m.Unmap(base, pageCount)
	}
}

func TestMapWithAddressHint(t *testing.T) {
	granularity := int64(64 * 1024)
	m := New(granularity, true)
	pageCount := granularity / int64(PageSize)

	base, ok := m.Map(pageCount)
	if !ok {
		t.Fatalf("map failed")
	}
	if base%uintptr(granularity) != 0 {
		t.Fatalf("base %#x not aligned to %#x", base, granularity)
	}
	m.Unmap(base, pageCount)
}
