//go:build debug

package spanalloc

import "github.com/prataprc/spanalloc/log"

// debugFatalf reports a violated invariant through the diagnostic
// logger and panics, the debug-build counterpart of debug_assert.go.
// Built with -tags debug, the same convention gostore/malloc uses to
// split its own production.go/debug.go pair.
func debugFatalf(format string, v ...interface{}) {
	log.Fatalf(format, v...)
	panic("spanalloc: invariant violated, see log for detail")
}

const debugBuild = true
