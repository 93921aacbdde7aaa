package hs

import "sync/atomic"

// HandleAllocator hands out index-handle IDs for one coordinated scope.
// Handle IDs are caller-assigned small integers with no server-side
// collision detection beyond rejecting a reopen, so callers sharing a
// channel across several owners must draw their IDs from one allocator
// (or coordinate externally). There is no ambient package-level counter.
//
// Thread-safety: Next uses atomic operations and may be called from any
// goroutine.
type HandleAllocator struct {
	next atomic.Int64
}

// NewHandleAllocator creates an allocator whose first Next returns first.
func NewHandleAllocator(first int) *HandleAllocator {
	a := &HandleAllocator{}
	a.next.Store(int64(first) - 1)
	return a
}

// Next returns a handle ID never handed out before by this allocator.
func (a *HandleAllocator) Next() int {
	return int(a.next.Add(1))
}
