// Package alloc provides arena allocators backed directly by OS virtual memory.
//
// # Overview
//
// Each allocator owns exactly one arena: a single anonymous mapping obtained
// from a vmem.Source when the allocator is constructed and released when it
// is closed. Allocations are offsets into that arena. No Go-heap memory is
// handed out, and nothing here is reclaimed by the garbage collector.
//
// # Allocator Interface
//
// The core abstraction is the Allocator interface:
//
//   - Allocate(layout): Reserve a region for a (size, align) request
//   - Deallocate(off, layout): Return a region with the layout it was allocated with
//   - Stats(): Snapshot usage counters
//   - Close(): Release the arena
//
// # Implementations
//
// BumpAllocator: monotonic pointer bump
//
//   - O(1) allocation, no search, no fragmentation tracking
//   - Individual frees only decrement a live count
//   - When the live count reaches zero the whole arena is reusable again
//
// FreeListAllocator: first-fit free list
//
//   - Free regions live in a table linked by index, pushed at the head
//   - First node that fits wins; leftover space past the block is re-inserted
//   - Adjacent free regions are never merged
//
// Locked: either allocator behind a spin lock, safe for concurrent use.
//
// # Usage Example
//
//	fl, err := alloc.NewLockedFreeList(1<<20, nil)
//	if err != nil {
//	    return err
//	}
//	defer fl.Close()
//
//	layout := alloc.Layout{Size: 256, Align: 16}
//	r, buf, err := fl.Allocate(layout)
//	if err != nil {
//	    return err // errors.Is(err, alloc.ErrOutOfMemory)
//	}
//	copy(buf, payload)
//
//	// Later, with the same layout
//	fl.Deallocate(r.Start, layout)
//
// # Block Sizes
//
// The free-list allocator reserves more than requested so every block can
// become a free node again once returned:
//
//	size'  = roundup(max(size, NodeSize), max(align, NodeAlign))
//	align' = max(align, NodeAlign)
//
// With NodeSize = NodeAlign = 8, a 1-byte request reserves 8 bytes and a
// 25-byte request reserves 32. Deallocate recomputes the block size from the
// layout it is given, so it must be the layout passed to Allocate.
//
// A node is skipped when using it would leave a tail smaller than NodeSize.
// Alignment padding in front of a block is not returned to the list.
//
// # Capacity
//
// A capacity of zero fails construction with ErrZeroCapacity. Arenas are
// limited to MaxArenaSize bytes. Grow extends an arena in place when the OS
// allows it; it never relocates, since outstanding slices point into the
// current mapping.
//
// # Errors
//
// Recoverable failures are returned: ErrOutOfMemory when the arena is
// exhausted or the OS refuses memory (IsMappingFailure separates the two),
// ErrBadLayout for an invalid request. Broken caller contracts panic:
// deallocating more than was allocated, freeing a misaligned or out-of-range
// block, or using an allocator after Close.
//
// # Thread Safety
//
// BumpAllocator and FreeListAllocator are not thread-safe. Use Locked, or
// synchronize externally.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/vmem: OS mapping source
//   - github.com/joshuapare/heapkit/heap/spin: spin lock behind Locked
package alloc
