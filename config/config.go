package config

import s "github.com/prataprc/gosettings"

// Config is the settings bag Initialize takes, an alias for
// gosettings.Settings the same way bnclabs-gostore's malloc and llrb
// packages pass s.Settings straight through instead of wrapping it in
// a package-local type: Int64/Bool/Mixin below are gosettings' own
// methods, not reimplementations.
type Config = s.Settings

// Default returns the allocator's default configuration. Applications
// typically start from this and Mixin overrides.
//
// max.pages.per.span is chosen so that, at the default 4KiB OS page
// size, no packed span (page_count*page_size) can exceed
// span.granularity: 16 pages * 4096 bytes = 65536 bytes == the default
// granularity. sizeclass.Build clamps further at runtime against the
// actual OS page size, but the shipped default is safe on its own.
func Default() Config {
	return Config{
		"span.granularity":            int64(64 * 1024),
		"medium.limit":                int64(2 * 1024 * 1024),
		"max.pages.per.span":          int64(16),
		"heap.span.cache.highwater":   int64(32),
		"global.span.cache.highwater": int64(4096),
		"global.span.cache.batch":     int64(16),
		"enable_detailed_statistics":  false,
		"use_full_address_range":      true,
		"heap_pending_superblock":     true,
		"vmm_address_hint_fallback":   false,
	}
}
