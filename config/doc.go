// Package config carries the allocator's build/initialize-time
// settings: the runtime tunables (enable_detailed_statistics,
// use_full_address_range, heap_pending_superblock) plus the sizing
// knobs a deployment needs to pick (span granularity, medium/oversize
// boundary, VMM fallback mode).
package config
