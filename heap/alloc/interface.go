package alloc

// Allocator is the surface a container uses to obtain and return backing
// storage.
//
// Implementations:
//   - BumpAllocator: monotonic, reclaims everything once the last region is freed
//   - FreeListAllocator: first-fit over a list of free regions
//   - Locked: either of the above behind a spin lock
type Allocator interface {
	// Allocate reserves a region satisfying l and returns it together with
	// the arena bytes it covers. The slice holds at least l.Size bytes and
	// its capacity ends at the region's end.
	Allocate(l Layout) (Region, []byte, error)

	// Deallocate returns the region starting at off. l must be the layout the
	// region was allocated with; anything else corrupts allocator state and
	// may panic.
	Deallocate(off int, l Layout)

	// Stats returns a snapshot of usage counters.
	Stats() Stats

	// Close releases the arena back to the OS. Slices handed out by Allocate
	// must not be touched afterwards.
	Close() error
}

// Compile-time interface checks
var (
	_ Allocator = (*BumpAllocator)(nil)
	_ Allocator = (*FreeListAllocator)(nil)
	_ Allocator = (*Locked[*BumpAllocator])(nil)
	_ Allocator = (*Locked[*FreeListAllocator])(nil)
)
