package spanalloc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/spanalloc/api"
	"github.com/prataprc/spanalloc/config"
	"github.com/prataprc/spanalloc/internal/gls"
	"github.com/prataprc/spanalloc/lib"
	"github.com/prataprc/spanalloc/log"
	"github.com/prataprc/spanalloc/sizeclass"
	"github.com/prataprc/spanalloc/vmm"
)

// blockAlignment is the alignment every returned block gets, whatever
// size class serves it: span bases, headerSize and every class's block
// size are all multiples of it.
const blockAlignment = 16

// process-wide state: a process-global value created at library
// bring-up and never dropped until finalize. initLock serializes
// Initialize/Finalize against each other; it is never held on the
// allocation/deallocation fast path.
var (
	initLock sync.Mutex
	inited   atomic.Bool

	granularity    int64
	mediumLimit    int64
	pageSize       int64
	table          *sizeclass.Table
	mapper         *vmm.Mapper
	classPageIdx   map[int64]int
	pageCountsList []int64

	globalGSC *gsc

	pendingSuperblock bool
	fullAddressRange  bool
)

// AllocOpts carries the per-call flags an allocation or reallocation
// may request: the alignment hint (accepted but unused below natural
// 16-byte alignment), and the zero-init / no-preserve flags.
type AllocOpts struct {
	Alignment  uintptr
	ZeroInit   bool
	NoPreserve bool
}

func (o AllocOpts) flags() api.AllocFlags {
	var f api.AllocFlags
	if o.ZeroInit {
		f |= api.FlagZeroInit
	}
	if o.NoPreserve {
		f |= api.FlagNoPreserve
	}
	return f
}

// Initialize brings up the process-wide singletons: the size-class
// table, the VMM mapper, and the global span cache. Calling it twice
// without an intervening Finalize returns config.ErrAlreadyInitialized.
// Returns config.ErrMapFailed if the VMM cannot be reached at all.
func Initialize(cfg config.Config) error {
	initLock.Lock()
	defer initLock.Unlock()

	if inited.Load() {
		return config.ErrAlreadyInitialized
	}

	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg = config.Default().Mixin(cfg)
	}

	granularity = cfg.Int64("span.granularity")
	mediumLimit = cfg.Int64("medium.limit")
	maxPages := cfg.Int64("max.pages.per.span")
	pendingSuperblock = cfg.Bool("heap_pending_superblock")
	fullAddressRange = cfg.Bool("use_full_address_range")
	detailedStats = cfg.Bool("enable_detailed_statistics")
	heapSpanCacheHighwater = int(cfg.Int64("heap.span.cache.highwater"))

	mapper = vmm.New(granularity, cfg.Bool("vmm_address_hint_fallback"))
	pageSize = int64(vmm.PageSize)

	table = sizeclass.Build(pageSize, int64(headerSize), mediumLimit, maxPages, granularity)

	pageCountsList = table.PageCounts()
	classPageIdx = make(map[int64]int, len(pageCountsList))
	for i, pc := range pageCountsList {
		classPageIdx[pc] = i
	}

	globalGSC = newGSC(len(pageCountsList),
		cfg.Int64("global.span.cache.highwater"),
		cfg.Int64("global.span.cache.batch"))

	globalRegistry.reset()
	resetStats()

	// Touch the VMM once at bring-up so a misconfigured environment
	// fails Initialize instead of the first caller's Allocate.
	probe, ok := mapper.Map(1)
	if !ok {
		return config.ErrMapFailed
	}
	mapper.Unmap(probe, 1)

	inited.Store(true)
	return nil
}

// Finalize walks the heap registry and unmaps every span held on a
// heap's partial lists, span caches or pending slot, then every span in
// the global cache. Spans with no free block and live oversize mappings
// are on none of those lists and stay mapped. The caller must
// guarantee no allocator operation is in
// flight. It is not itself concurrency-safe against
// Allocate/Deallocate — only against a later Initialize.
func Finalize() {
	initLock.Lock()
	defer initLock.Unlock()

	if !inited.Load() {
		return
	}

	globalRegistry.each(func(h *Heap) {
		h.releaseAllSpans()
	})
	globalGSC.releaseAll()
	globalRegistry.reset()
	gls.Clear()

	inited.Store(false)
}

// ThreadInitialize binds a heap to the calling goroutine: an adopted
// orphan if one is waiting, otherwise a freshly registered one. It is
// optional — Allocate calls it lazily — but callers that want a
// literal "N OS threads" model call runtime.LockOSThread before
// calling this, since Go gives no OS-thread-exit hook for a goroutine
// (see DESIGN.md).
func ThreadInitialize() *Heap {
	if h, ok := currentHeap(); ok {
		return h
	}
	h := globalRegistry.popOrphan()
	if h == nil {
		h = newHeap(globalRegistry.newHeapID())
		globalRegistry.insert(h)
	}
	gls.Set(h)
	return h
}

// ThreadFinalize drains the calling goroutine's heap — flushing its
// per-class span caches to the global cache — and orphans it for
// adoption by the next caller without a heap.
func ThreadFinalize() {
	h, ok := currentHeap()
	if !ok {
		return
	}
	h.drainSpanCachesToGlobal()
	globalRegistry.pushOrphan(h)
	gls.Clear()
}

func currentHeap() (*Heap, bool) {
	v, ok := gls.Get()
	if !ok {
		return nil, false
	}
	h, ok := v.(*Heap)
	return h, ok
}

// Allocate is the allocate operation: SCT lookup, then thread heap
// fast path, or the oversize path for requests beyond the medium
// limit.
func Allocate(size uintptr, opts AllocOpts) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	if int64(size) > mediumLimit {
		return allocateOversize(size, opts.flags())
	}
	h := ThreadInitialize()
	p := h.allocate(int64(size), opts.flags())
	if p == nil {
		return nil
	}
	if opts.ZeroInit {
		zeroFill(p, int64(UsableSize(p)))
	}
	return p
}

// Reallocate always goes via allocate/copy/free: regardless of which
// heap owns old, the calling goroutine never needs to own it.
func Reallocate(old unsafe.Pointer, size uintptr, opts AllocOpts) unsafe.Pointer {
	if old == nil {
		return Allocate(size, opts)
	}
	if size == 0 {
		Deallocate(old)
		return nil
	}

	oldSize := UsableSize(old)
	newPtr := Allocate(size, AllocOpts{Alignment: opts.Alignment, ZeroInit: false})
	if newPtr == nil {
		return nil
	}
	if !opts.NoPreserve {
		n := oldSize
		if uintptr(size) < n {
			n = uintptr(size)
		}
		lib.Memcpy(newPtr, old, int(n))
	}
	if opts.ZeroInit && uintptr(size) > oldSize {
		zeroFill(unsafe.Pointer(uintptr(newPtr)+oldSize), int64(uintptr(size)-oldSize))
	}
	Deallocate(old)
	return newPtr
}

// Deallocate: a nil pointer is a no-op; oversize spans unmap directly;
// heap-owned spans free locally or defer to the owning heap.
func Deallocate(p unsafe.Pointer) {
	if p == nil {
		return
	}
	s := spanOf(p)
	if s.oversize() {
		deallocateOversize(s)
		return
	}

	h, ok := currentHeap()
	heapID := s.heapID.Load()
	if ok && h.id == heapID {
		h.deallocateLocal(s, p)
		return
	}
	target := globalRegistry.lookup(heapID)
	if target == nil {
		debugFatalf("spanalloc: deallocate: owning heap %d not found", heapID)
		return
	}
	pushDeferred(target, uintptr(p))
}

// UsableSize returns the block size of the class serving p, or the
// oversize span's page-rounded capacity.
func UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	s := spanOf(p)
	if s.oversize() {
		return uintptr(s.pageCount)*uintptr(pageSize) - headerSize
	}
	return uintptr(s.blockSize)
}

// SetLogger installs logger as the allocator's diagnostic sink,
// mirroring gostore/log.SetLogger's signature.
func SetLogger(logger log.Logger, setts map[string]interface{}) log.Logger {
	return log.SetLogger(logger, setts)
}

func zeroFill(p unsafe.Pointer, n int64) {
	b := unsafe.Slice((*byte)(p), int(n))
	for i := range b {
		b[i] = 0
	}
}
