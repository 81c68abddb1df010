package spanalloc

import (
	"unsafe"

	"github.com/prataprc/spanalloc/api"
)

// Allocator adapts the package-level Allocate/Reallocate/Deallocate/
// UsableSize/Stats functions to api.Mallocer, the interface a caller
// migrating off a hand-rolled or platform allocator plugs in against
// rather than calling this package's funcs by name directly — the
// same role bnclabs-gostore/malloc.Arena plays for its own api.Mallocer.
// It carries no state of its own: every method forwards to the
// process-wide singletons Initialize brought up.
type Allocator struct{}

var _ api.Mallocer = Allocator{}

func (Allocator) Allocate(n uintptr, flags api.AllocFlags) unsafe.Pointer {
	return Allocate(n, optsFromFlags(flags))
}

func (Allocator) Reallocate(old unsafe.Pointer, n uintptr, flags api.AllocFlags) unsafe.Pointer {
	return Reallocate(old, n, optsFromFlags(flags))
}

func (Allocator) Deallocate(ptr unsafe.Pointer) {
	Deallocate(ptr)
}

func (Allocator) UsableSize(ptr unsafe.Pointer) uintptr {
	return UsableSize(ptr)
}

func (Allocator) Stats() api.Stats {
	return Stats()
}

func optsFromFlags(flags api.AllocFlags) AllocOpts {
	return AllocOpts{
		ZeroInit:   flags.Has(api.FlagZeroInit),
		NoPreserve: flags.Has(api.FlagNoPreserve),
	}
}
