package buffer

import (
	"slices"
	"sync"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// Region is one buffer handed out by an Allocator.
type Region struct {
	Ptr, Size, Align uint32
}

// Scratch collects the argument buffers a single call allocates so they
// can all be given back once the call returns, whether it succeeded or
// not. A Scratch must not be used after Drop.
type Scratch struct {
	regions []Region
}

// scratchCap keeps oversized lists out of the pool.
const scratchCap = 64

var scratchPool = sync.Pool{
	New: func() any { return &Scratch{regions: make([]Region, 0, 8)} },
}

// NewScratch takes an empty Scratch from the pool.
func NewScratch() *Scratch {
	return scratchPool.Get().(*Scratch)
}

// Track records a region to be freed by Drop.
func (s *Scratch) Track(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	s.regions = append(s.regions, Region{Ptr: ptr, Size: size, Align: align})
}

// Len reports how many regions are tracked.
func (s *Scratch) Len() int { return len(s.regions) }

// Drop frees the tracked regions, newest first, and returns s to the
// pool. A nil allocator only recycles s.
func (s *Scratch) Drop(alloc ffibridge.Allocator) {
	if alloc != nil {
		for _, r := range slices.Backward(s.regions) {
			alloc.Free(r.Ptr, r.Size, r.Align)
		}
	}
	s.regions = s.regions[:0]
	if cap(s.regions) <= scratchCap {
		scratchPool.Put(s)
	}
}
