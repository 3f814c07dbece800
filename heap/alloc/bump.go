package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// BumpAllocator is a single-arena, monotonic allocator.
//
// Key characteristics:
//   - O(1) allocation: align the bump pointer, check the end, advance
//   - No per-region bookkeeping: only a count of live regions
//   - Deallocate of anything but the last live region is a no-op on the
//     pointer; once the count drops to zero the whole arena is reclaimed
//
// This allocator suits phase-structured workloads where everything allocated
// in a phase is freed together. It is not safe for concurrent use; wrap it
// with NewLocked for that.
type BumpAllocator struct {
	arena *arena

	// heapStart and heapEnd bound the arena; next is the bump pointer.
	// heapStart <= next <= heapEnd always holds.
	heapStart int
	heapEnd   int
	next      int

	// live counts regions allocated and not yet deallocated.
	// live == 0 implies next == heapStart.
	live int

	stats allocatorStats
}

// NewBump maps capacity bytes and returns an allocator over them.
//
// A capacity of zero fails with ErrZeroCapacity. When the OS refuses the
// mapping the error matches both ErrOutOfMemory and vmem.ErrMapping.
func NewBump(capacity int, opts *Options) (*BumpAllocator, error) {
	a, err := newArena("bump", capacity, opts)
	if err != nil {
		return nil, err
	}
	return &BumpAllocator{
		arena:     a,
		heapStart: 0,
		heapEnd:   a.size(),
		next:      0,
	}, nil
}

// Allocate carves l.Size bytes at the next address aligned to l.Align.
func (ba *BumpAllocator) Allocate(l Layout) (Region, []byte, error) {
	ba.arena.mustOpen("Allocate")
	ba.stats.AllocCalls++

	if !l.valid() {
		ba.stats.FailedAllocs++
		return Region{}, nil, fmt.Errorf("%w: %v", ErrBadLayout, l)
	}

	start, ok := ba.arena.alignOffset(ba.next, l.Align)
	if !ok {
		return ba.fail(l)
	}
	end, ok := buf.AddOverflowSafe(start, l.Size)
	if !ok || end > ba.heapEnd {
		return ba.fail(l)
	}

	ba.next = end
	ba.live++
	ba.stats.BytesAllocated += int64(l.Size)

	r := Region{Start: start, End: end}
	return r, ba.arena.bytes(r), nil
}

func (ba *BumpAllocator) fail(l Layout) (Region, []byte, error) {
	ba.stats.FailedAllocs++
	ba.arena.log.Debug("allocation failed",
		"layout", l.String(),
		"next", ba.next,
		"remaining", ba.heapEnd-ba.next)
	return Region{}, nil, fmt.Errorf("%w: %v with %d of %d bytes left",
		ErrOutOfMemory, l, ba.heapEnd-ba.next, ba.heapEnd-ba.heapStart)
}

// Deallocate records that one live region has been returned. off and l are
// only sanity-checked; the arena is reclaimed as a whole when the last live
// region goes away.
//
// Deallocating more regions than were allocated panics.
func (ba *BumpAllocator) Deallocate(off int, l Layout) {
	ba.arena.mustOpen("Deallocate")
	if ba.live == 0 {
		panic("alloc: bump deallocate with no live allocations")
	}
	if off < ba.heapStart || off > ba.next {
		panic(fmt.Sprintf("alloc: bump deallocate of offset 0x%X outside [0x%X, 0x%X)",
			off, ba.heapStart, ba.next))
	}

	ba.live--
	ba.stats.FreeCalls++
	ba.stats.BytesFreed += int64(l.Size)
	if ba.live == 0 {
		ba.next = ba.heapStart
		ba.stats.Resets++
	}
}

// Grow extends the arena in place by extra bytes. It fails with
// ErrOutOfMemory when the OS cannot extend the mapping where it lies; the
// allocator is unchanged in that case.
func (ba *BumpAllocator) Grow(extra int) error {
	if _, err := ba.arena.grow(extra); err != nil {
		return err
	}
	ba.heapEnd = ba.arena.size()
	ba.stats.GrowCalls++
	return nil
}

// Capacity returns the arena size in bytes.
func (ba *BumpAllocator) Capacity() int { return ba.heapEnd - ba.heapStart }

// Remaining returns the bytes between the bump pointer and the end of the
// arena. An aligned request may be able to use fewer of them.
func (ba *BumpAllocator) Remaining() int { return ba.heapEnd - ba.next }

// Live returns the number of regions not yet deallocated.
func (ba *BumpAllocator) Live() int { return ba.live }

// Stats returns a snapshot of usage counters.
func (ba *BumpAllocator) Stats() Stats {
	s := ba.stats.snapshot()
	s.Capacity = ba.Capacity()
	s.InUse = ba.next - ba.heapStart
	s.Live = ba.live
	s.FreeBytes = ba.Remaining()
	if s.FreeBytes > 0 {
		s.FreeRegions = 1
	}
	return s
}

// Close releases the arena. Release failures are logged and returned; the
// allocator is unusable afterwards either way.
func (ba *BumpAllocator) Close() error {
	return ba.arena.release()
}
