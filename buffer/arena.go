package buffer

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/abi"
	"github.com/wippyai/ffi-bridge/errors"
)

// nullGuard keeps offset 0 out of a region that starts at the bottom of
// an empty address space.
const nullGuard = 8

type span struct {
	addr uint32
	size uint32
}

func (s span) end() uint32 { return s.addr + s.size }

// Arena allocates owned buffers inside a growable address space. It only
// hands out memory from regions it grew itself, so it can share a guest's
// linear memory with the guest's own allocator.
//
// Free blocks are kept sorted by address and coalesced on release.
// Releasing a pointer the arena did not hand out, or releasing it twice,
// is reported as KindUnknownPointer and otherwise ignored.
type Arena struct {
	mem       ffibridge.GrowableMemory
	live      map[uint32]span
	free      []span
	liveBytes uint64
	minPages  uint32
	regions   int
	mu        sync.Mutex
}

// NewArena creates an arena over mem. Each growth step adds at least
// minPages pages.
func NewArena(mem ffibridge.GrowableMemory, minPages uint32) *Arena {
	if minPages == 0 {
		minPages = 1
	}
	return &Arena{
		mem:      mem,
		live:     make(map[uint32]span),
		minPages: minPages,
	}
}

// Memory returns the address space the arena allocates in.
func (a *Arena) Memory() ffibridge.GrowableMemory {
	return a.mem
}

// Alloc returns the address of size bytes aligned to align. A size of zero
// allocates one byte so the result is still a unique non-null pointer.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Detail("alignment %d is not a power of two", align).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if ptr, ok := a.take(size, align); ok {
		return ptr, nil
	}
	if err := a.grow(size, align); err != nil {
		return 0, err
	}
	if ptr, ok := a.take(size, align); ok {
		return ptr, nil
	}
	return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
}

// take carves size bytes out of the first free block that fits.
func (a *Arena) take(size, align uint32) (uint32, bool) {
	for i, blk := range a.free {
		start := abi.AlignUp(blk.addr, align)
		if uint64(start)+uint64(size) > uint64(blk.end()) {
			continue
		}

		var rest []span
		if start > blk.addr {
			rest = append(rest, span{addr: blk.addr, size: start - blk.addr})
		}
		if tail := blk.end() - (start + size); tail > 0 {
			rest = append(rest, span{addr: start + size, size: tail})
		}
		a.free = append(a.free[:i], append(rest, a.free[i+1:]...)...)

		a.live[start] = span{addr: start, size: size}
		a.liveBytes += uint64(size)
		return start, true
	}
	return 0, false
}

func (a *Arena) grow(size, align uint32) error {
	need := uint64(size) + uint64(align)
	pages := uint32((need + ffibridge.PageSize - 1) / ffibridge.PageSize)
	if pages < a.minPages {
		pages = a.minPages
	}

	cur := uint64(a.mem.Size())
	if cur+uint64(pages)*ffibridge.PageSize > math.MaxUint32 {
		return errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}

	prev, ok := a.mem.Grow(pages)
	if !ok {
		Logger().Debug("arena grow refused",
			zap.Uint32("pages", pages),
			zap.Uint32("size", size))
		return errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}

	region := span{
		addr: uint32(uint64(prev) * ffibridge.PageSize),
		size: uint32(uint64(pages) * ffibridge.PageSize),
	}
	if region.addr == 0 {
		region.addr += nullGuard
		region.size -= nullGuard
	}
	a.regions++
	a.insertFree(region)

	Logger().Debug("arena grew",
		zap.Uint32("addr", region.addr),
		zap.Uint32("pages", pages))
	return nil
}

// insertFree adds blk to the sorted free list and merges it with
// adjacent neighbours.
func (a *Arena) insertFree(blk span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].addr > blk.addr })

	if i > 0 && a.free[i-1].end() == blk.addr {
		a.free[i-1].size += blk.size
		if i < len(a.free) && a.free[i-1].end() == a.free[i].addr {
			a.free[i-1].size += a.free[i].size
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
		return
	}
	if i < len(a.free) && blk.end() == a.free[i].addr {
		a.free[i].addr = blk.addr
		a.free[i].size += blk.size
		return
	}

	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = blk
}

// Release frees the allocation at ptr regardless of its size. Null is a no-op.
func (a *Arena) Release(ptr uint32) error {
	if ptr == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blk, ok := a.live[ptr]
	if !ok {
		return errors.UnknownPointer(ptr)
	}
	delete(a.live, ptr)
	a.liveBytes -= uint64(blk.size)
	a.insertFree(blk)
	return nil
}

// ReleaseSized frees the allocation at ptr after checking that size matches
// what was allocated. Null is a no-op.
func (a *Arena) ReleaseSized(ptr, size uint32) error {
	if ptr == 0 {
		return nil
	}
	if size == 0 {
		size = 1
	}

	a.mu.Lock()
	blk, ok := a.live[ptr]
	a.mu.Unlock()

	if !ok {
		return errors.UnknownPointer(ptr)
	}
	if blk.size != size {
		return errors.New(errors.PhaseRelease, errors.KindInvalidInput).
			Value(ptr).
			Detail("release of %d bytes at %#x, allocation holds %d", size, ptr, blk.size).
			Build()
	}
	return a.Release(ptr)
}

// Free implements ffibridge.Allocator. Contract violations are logged.
func (a *Arena) Free(ptr, size, align uint32) {
	if err := a.ReleaseSized(ptr, size); err != nil {
		Logger().Warn("arena free ignored", zap.Error(err))
	}
}

// SizeOf returns the size of the live allocation at ptr.
func (a *Arena) SizeOf(ptr uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	blk, ok := a.live[ptr]
	return blk.size, ok
}

// Live returns the number of outstanding allocations.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// LiveBytes returns the number of outstanding bytes.
func (a *Arena) LiveBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.liveBytes
}

// Regions returns how many times the arena has grown the address space.
func (a *Arena) Regions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regions
}
