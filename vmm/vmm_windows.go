//go:build windows
// +build windows

package vmm

import "golang.org/x/sys/windows"

func pageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int(info.PageSize)
}

func mapAnon(size int64) (uintptr, bool) {
	return mapAnonAt(0, size)
}

// mapAnonAt reserves and commits size bytes at address, or wherever the
// system chooses when address is 0. Unlike mmap, VirtualAlloc honors a
// non-zero address as a hard requirement (equivalent to MAP_FIXED), so
// the address-hint strategy is fully functional on Windows.
func mapAnonAt(address uintptr, size int64) (uintptr, bool) {
	base, err := windows.VirtualAlloc(
		address, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, false
	}
	return base, true
}

func unmap(base uintptr, size int64) {
	windows.VirtualFree(base, uintptr(size), windows.MEM_RELEASE)
}

// trimRange discards a sub-range of a larger reservation while aligning
// an over-mapped region. VirtualFree(MEM_RELEASE) only accepts the
// whole of an original reservation, not an arbitrary sub-range, so the
// best this platform can do here is decommit the pages: they stop
// costing physical memory immediately, at the cost of leaving a sliver
// of reserved (but inert) address space behind until the process exits.
func trimRange(base uintptr, size int64) {
	windows.VirtualFree(base, uintptr(size), windows.MEM_DECOMMIT)
}
