// Package gls emulates a thread-local slot for the current heap
// pointer. Go goroutines are not OS threads and have no native thread-local
// storage, so this package keys a small registry off a goroutine
// identity string parsed out of runtime.Stack — the standard, if
// inelegant, workaround the Go ecosystem reaches for when it needs
// goroutine affinity (the same trick underlies several well known
// goroutine-local-storage shims). No dependency in the example pack
// offers genuine OS-thread affinity, so this is implemented on the
// standard library alone; see the repository's DESIGN.md for the
// grounding note.
package gls
