// Package api defines the types shared between the allocator's public
// shim and anything that wants to plug in as, or consume, a custom
// memory manager (statistics collectors, drop-in compatible callers
// migrating off the platform allocator).
package api

import "unsafe"

// AllocFlags requested by a caller of Allocate/Reallocate.
type AllocFlags uint8

const (
	// FlagZeroInit requests that every byte of the returned region be
	// zeroed before the pointer is handed back.
	FlagZeroInit AllocFlags = 1 << iota
	// FlagNoPreserve tells Reallocate it need not preserve the
	// contents of the old block in the returned one.
	FlagNoPreserve
)

// Has reports whether flag is set.
func (f AllocFlags) Has(flag AllocFlags) bool {
	return f&flag != 0
}

// Mallocer is the interface a pluggable memory manager exposes. It is
// the allocator-facing analogue of the four operations in the public
// shim: allocate, reallocate, deallocate, usable_size, plus the
// lifecycle and accounting calls a caller needs to manage the
// manager's footprint.
type Mallocer interface {
	// Allocate a naturally aligned chunk of `n` bytes.
	Allocate(n uintptr, flags AllocFlags) unsafe.Pointer

	// Reallocate a previously allocated chunk to a new size, always via
	// an allocate/copy/free sequence regardless of which heap owns the
	// old pointer. old may be nil, behaving like Allocate.
	Reallocate(old unsafe.Pointer, n uintptr, flags AllocFlags) unsafe.Pointer

	// Deallocate releases ptr. A nil pointer is a no-op.
	Deallocate(ptr unsafe.Pointer)

	// UsableSize returns the actual size of the block backing ptr,
	// which may be larger than what was originally requested.
	UsableSize(ptr unsafe.Pointer) uintptr

	// Stats returns a snapshot of accounting counters for this
	// manager: bytes currently mapped from the OS, bytes handed to
	// callers, and the per-size-class utilization.
	Stats() Stats
}

// Stats is a point-in-time snapshot of allocator accounting. Detailed
// per-class fields are only populated when the allocator was
// initialized with "enable_detailed_statistics" set.
type Stats struct {
	MappedBytes    int64
	AllocatedBytes int64
	SpanCount      int64
	OversizeCount  int64
	ClassUtilization map[int]float64
}
