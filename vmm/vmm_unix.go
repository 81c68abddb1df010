//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package vmm

import "unsafe"

import "golang.org/x/sys/unix"

func pageSize() int {
	return unix.Getpagesize()
}

// mapAnon asks the kernel for an anonymous, read-write mapping of size
// bytes at whatever address it chooses.
func mapAnon(size int64) (uintptr, bool) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, false
	}
	return uintptr(unsafe.Pointer(&data[0])), true
}

// mapAnonAt is the address-hint strategy's building block. The
// golang.org/x/sys/unix Mmap wrapper does not expose MAP_FIXED or an
// address hint, so on unix this is equivalent to mapAnon; callers that
// asked for the address-hint strategy still get correct (if not
// necessarily contiguous) behavior because the mapWithHint retry loop
// falls back to map-and-trim whenever the kernel hands back a
// misaligned base.
func mapAnonAt(hint uintptr, size int64) (uintptr, bool) {
	return mapAnon(size)
}

func unmap(base uintptr, size int64) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(base)), int(size))
	unix.Munmap(b)
}

// trimRange discards a sub-range of a larger mapping, used while
// aligning an over-mapped region to the span granularity. munmap
// supports unmapping an arbitrary sub-range, so this is just unmap.
func trimRange(base uintptr, size int64) {
	unmap(base, size)
}
