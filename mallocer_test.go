package spanalloc

import (
	"testing"

	"github.com/prataprc/spanalloc/api"
)

func TestAllocatorSatisfiesMallocer(t *testing.T) {
	setupTest(t)
	t.Cleanup(ThreadFinalize)

	var m api.Mallocer = Allocator{}

	p := m.Allocate(64, api.FlagZeroInit)
	if p == nil {
		t.Fatalf("Allocator.Allocate returned nil")
	}
	if got := m.UsableSize(p); got < 64 {
		t.Fatalf("Allocator.UsableSize = %d, want >= 64", got)
	}

	q := m.Reallocate(p, 128, 0)
	if q == nil {
		t.Fatalf("Allocator.Reallocate returned nil")
	}

	m.Deallocate(q)

	if st := m.Stats(); st.MappedBytes < 0 {
		t.Fatalf("Allocator.Stats returned negative MappedBytes: %d", st.MappedBytes)
	}
}
