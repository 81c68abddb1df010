// Package spanalloc is a general-purpose, multi-threaded, lock-free
// dynamic memory allocator: a drop-in replacement for the platform's
// default allocator, exposing allocate/reallocate/deallocate/
// usable_size plus process and per-thread lifecycle hooks.
//
// Size-class selection, per-thread heap state (heap.go), two-tier span
// caching (gsc.go and the heap's own span cache in heap.go), block
// freelist management inside spans (span.go), cross-thread
// deallocation handoff (ddq.go), and OS virtual-memory mapping (the
// vmm package) are THE CORE. Everything else — the public shim
// (alloc.go), optional statistics (stats.go), configuration
// (the config package) and logging (the log package) — is ambient
// infrastructure around it.
//
// Call Initialize once per process, ThreadInitialize once per
// goroutine that will call Allocate/Deallocate/Reallocate, and the
// matching Finalize/ThreadFinalize hooks at the corresponding ends of
// those lifetimes. See the package-level Allocate, Reallocate,
// Deallocate and UsableSize functions for the operation contract.
package spanalloc
