package gls

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var (
	mu   sync.RWMutex
	slot = map[int64]interface{}{}
)

// goroutineID parses the numeric id out of the header line runtime.Stack
// always writes first: "goroutine 123 [running]:\n...". It is the
// standard workaround for the absence of a runtime-exposed goroutine id.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		panic("gls: could not parse goroutine id: " + err.Error())
	}
	return id
}

// Set binds value to the calling goroutine's slot.
func Set(value interface{}) {
	id := goroutineID()
	mu.Lock()
	slot[id] = value
	mu.Unlock()
}

// Get returns the calling goroutine's bound value, if any.
func Get() (interface{}, bool) {
	id := goroutineID()
	mu.RLock()
	v, ok := slot[id]
	mu.RUnlock()
	return v, ok
}

// Clear removes the calling goroutine's binding.
func Clear() {
	id := goroutineID()
	mu.Lock()
	delete(slot, id)
	mu.Unlock()
}

// Len reports the number of goroutines currently bound. Exposed for
// tests verifying that ThreadFinalize actually clears the slot.
func Len() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(slot)
}
