//go:build !debug

package spanalloc

// debugFatalf is a no-op in production builds: internal assertions are
// a debug-build-only concern and must not cost anything on the hot
// path when they are compiled out.
func debugFatalf(format string, v ...interface{}) {}

const debugBuild = false
