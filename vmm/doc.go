// Package vmm is the allocator's Virtual-Memory Mapper: it maps and
// unmaps page-aligned, span-aligned regions from the OS. Every
// allocation above the medium threshold, and every new span beneath it,
// originates here. Map failures are reported by returning ok=false;
// this package never panics on a failed map, so the failure can
// propagate to Allocate/Reallocate as a nil pointer: fail locally,
// return null.
package vmm
