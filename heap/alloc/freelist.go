package alloc

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/joshuapare/heapkit/internal/align"
	"github.com/joshuapare/heapkit/internal/buf"
)

// nilNode terminates the free list.
const nilNode int32 = -1

// freeNode is one free region. It models a {size, next} header that would
// sit at the start of the region; the header is kept in a side table instead
// of in the free bytes, so free memory is never reinterpreted.
type freeNode struct {
	start int32 // arena offset, NodeAlign-aligned
	size  int32 // >= NodeSize
	next  int32 // table index of the next node, or nilNode
}

func (n freeNode) begin() int { return int(n.start) }
func (n freeNode) end() int   { return int(n.start) + int(n.size) }

// fit returns where an allocation of size bytes would start inside n, or
// ok = false if n cannot host it. alignTo maps an offset to the next offset
// at a suitably aligned address.
//
// A node is rejected when the allocation would leave a tail that is nonzero
// but too small to be a free node itself.
func (n freeNode) fit(size int, alignTo func(int) (int, bool)) (int, bool) {
	allocStart, ok := alignTo(n.begin())
	if !ok {
		return 0, false
	}
	allocEnd, ok := buf.AddOverflowSafe(allocStart, size)
	if !ok || allocEnd > n.end() {
		return 0, false
	}
	if excess := n.end() - allocEnd; excess > 0 && excess < NodeSize {
		return 0, false
	}
	return allocStart, true
}

// FreeListAllocator is a first-fit allocator over a singly linked list of
// free regions inside one arena.
//
// Key characteristics:
//   - O(1) insertion: freed regions are pushed at the head (LIFO order)
//   - O(n) allocation: the first node that fits wins, not the smallest
//   - Every granted block is large enough to become a free node again
//   - No coalescing: adjacent free regions stay separate nodes
//   - Alignment padding in front of a granted block is not reclaimed
//
// It is not safe for concurrent use; wrap it with NewLocked for that.
type FreeListAllocator struct {
	arena *arena

	// nodes is the free-region table; spare holds indexes of unlinked
	// entries so insertion reuses them instead of growing the table.
	nodes []freeNode
	spare []int32
	head  int32
	count int // nodes reachable from head

	live  int
	stats allocatorStats
}

// NewFreeList maps capacity bytes and seeds the free list with the whole
// arena as a single node.
//
// A capacity of zero fails with ErrZeroCapacity, a capacity below NodeSize
// with ErrTooSmall. When the OS refuses the mapping the error matches both
// ErrOutOfMemory and vmem.ErrMapping.
func NewFreeList(capacity int, opts *Options) (*FreeListAllocator, error) {
	if capacity > 0 && capacity < NodeSize {
		return nil, fmt.Errorf("%w: %d < %d bytes", ErrTooSmall, capacity, NodeSize)
	}
	a, err := newArena("freelist", capacity, opts)
	if err != nil {
		return nil, err
	}
	fl := &FreeListAllocator{
		arena: a,
		nodes: make([]freeNode, 0, 16),
		head:  nilNode,
	}
	fl.addFreeRegion(0, a.size())
	return fl, nil
}

// addFreeRegion pushes [off, off+size) at the head of the list.
//
// Panics if the region cannot hold a node header, is misaligned for one, or
// lies outside the arena.
func (fl *FreeListAllocator) addFreeRegion(off, size int) {
	if size < NodeSize {
		panic(fmt.Sprintf("alloc: free region of %d bytes at 0x%X is smaller than a node (%d)", size, off, NodeSize))
	}
	if off%NodeAlign != 0 {
		panic(fmt.Sprintf("alloc: free region at 0x%X is not %d-byte aligned", off, NodeAlign))
	}
	if !buf.Within(fl.arena.size(), off, size) {
		panic(fmt.Sprintf("alloc: free region [0x%X, 0x%X) outside %d byte arena", off, off+size, fl.arena.size()))
	}

	var idx int32
	if n := len(fl.spare); n > 0 {
		idx = fl.spare[n-1]
		fl.spare = fl.spare[:n-1]
	} else {
		idx = int32(len(fl.nodes))
		fl.nodes = append(fl.nodes, freeNode{})
	}
	fl.nodes[idx] = freeNode{start: int32(off), size: int32(size), next: fl.head}
	fl.head = idx
	fl.count++
}

// findRegion walks the list from the head and unlinks the first node that
// can host size bytes at alignment. It returns the node and the allocation
// start inside it.
func (fl *FreeListAllocator) findRegion(size, alignment int) (freeNode, int, bool) {
	alignTo := func(off int) (int, bool) { return fl.arena.alignOffset(off, alignment) }
	prev := nilNode
	for i := fl.head; i != nilNode; i = fl.nodes[i].next {
		n := fl.nodes[i]
		if start, ok := n.fit(size, alignTo); ok {
			// Splice prev -> n.next and recycle the slot.
			if prev == nilNode {
				fl.head = n.next
			} else {
				fl.nodes[prev].next = n.next
			}
			fl.nodes[i] = freeNode{}
			fl.spare = append(fl.spare, i)
			fl.count--
			return n, start, true
		}
		prev = i
	}
	return freeNode{}, 0, false
}

// blockSize returns the size and alignment actually reserved for l.
func blockSize(l Layout) (int, int) {
	return align.SizeAlignFor(l.Size, l.Align, NodeSize, NodeAlign)
}

// Allocate reserves a block for l from the first free node that fits. The
// block is l.Size rounded up so that it can later be a free node itself; the
// returned Region and slice cover the whole block.
func (fl *FreeListAllocator) Allocate(l Layout) (Region, []byte, error) {
	fl.arena.mustOpen("Allocate")
	fl.stats.AllocCalls++

	if !l.valid() {
		fl.stats.FailedAllocs++
		return Region{}, nil, fmt.Errorf("%w: %v", ErrBadLayout, l)
	}
	if l.Size > fl.arena.size() {
		return fl.fail(l)
	}

	size, alignment := blockSize(l)
	node, start, ok := fl.findRegion(size, alignment)
	if !ok {
		return fl.fail(l)
	}

	end := start + size
	if excess := node.end() - end; excess > 0 {
		fl.addFreeRegion(end, excess)
		fl.stats.SplitCount++
	}
	if pad := start - node.begin(); pad > 0 {
		fl.stats.Forfeited += int64(pad)
	}

	fl.live++
	fl.stats.BytesAllocated += int64(l.Size)

	r := Region{Start: start, End: end}
	return r, fl.arena.bytes(r), nil
}

func (fl *FreeListAllocator) fail(l Layout) (Region, []byte, error) {
	fl.stats.FailedAllocs++
	fl.arena.log.Debug("allocation failed",
		"layout", l.String(),
		"free_regions", fl.count)
	return Region{}, nil, fmt.Errorf("%w: no free region fits %v", ErrOutOfMemory, l)
}

// Deallocate pushes the block at off back onto the list. l must match the
// layout passed to Allocate: the block size is recomputed from it, and a
// mismatch corrupts the list.
//
// Panics if the recomputed block is misaligned or outside the arena, or if
// nothing is live.
func (fl *FreeListAllocator) Deallocate(off int, l Layout) {
	fl.arena.mustOpen("Deallocate")
	if !l.valid() {
		panic(fmt.Sprintf("alloc: deallocate with invalid layout %v", l))
	}
	if fl.live == 0 {
		panic("alloc: free-list deallocate with no live allocations")
	}
	size, _ := blockSize(l)
	fl.addFreeRegion(off, size)
	fl.live--
	fl.stats.FreeCalls++
	fl.stats.BytesFreed += int64(l.Size)
}

// Grow extends the arena in place by extra bytes and pushes the new tail as
// a free node. It is not merged with a free node that ended at the old
// boundary. Fails with ErrOutOfMemory when the OS cannot extend the mapping
// where it lies.
func (fl *FreeListAllocator) Grow(extra int) error {
	old, err := fl.arena.grow(extra)
	if err != nil {
		return err
	}
	fl.stats.GrowCalls++

	tail := align.To(old, NodeAlign)
	if n := fl.arena.size() - tail; n >= NodeSize {
		fl.addFreeRegion(tail, n)
		fl.stats.Forfeited += int64(tail - old)
	} else {
		fl.stats.Forfeited += int64(fl.arena.size() - old)
	}
	return nil
}

// FreeRegions returns the free list in list order, head first.
func (fl *FreeListAllocator) FreeRegions() []Region {
	out := make([]Region, 0, fl.count)
	for i := fl.head; i != nilNode; i = fl.nodes[i].next {
		n := fl.nodes[i]
		out = append(out, Region{Start: n.begin(), End: n.end()})
	}
	return out
}

// Verify walks the free list and checks every node: it must be in bounds,
// aligned, at least NodeSize, disjoint from every other node, and the list
// must be acyclic. Violations wrap ErrCorrupt.
func (fl *FreeListAllocator) Verify() error {
	size := fl.arena.size()
	regions := make([]Region, 0, fl.count)
	steps := 0
	for i := fl.head; i != nilNode; i = fl.nodes[i].next {
		if i < 0 || int(i) >= len(fl.nodes) {
			return fmt.Errorf("%w: link to slot %d outside table of %d", ErrCorrupt, i, len(fl.nodes))
		}
		steps++
		if steps > len(fl.nodes) {
			return fmt.Errorf("%w: cycle after %d nodes", ErrCorrupt, len(fl.nodes))
		}
		n := fl.nodes[i]
		r := Region{Start: n.begin(), End: n.end()}
		switch {
		case int(n.size) < NodeSize:
			return fmt.Errorf("%w: node %v smaller than %d bytes", ErrCorrupt, r, NodeSize)
		case n.begin()%NodeAlign != 0:
			return fmt.Errorf("%w: node %v not %d-byte aligned", ErrCorrupt, r, NodeAlign)
		case !buf.Within(size, n.begin(), int(n.size)):
			return fmt.Errorf("%w: node %v outside %d byte arena", ErrCorrupt, r, size)
		}
		regions = append(regions, r)
	}
	if steps != fl.count {
		return fmt.Errorf("%w: %d nodes linked, %d recorded", ErrCorrupt, steps, fl.count)
	}

	slices.SortFunc(regions, func(a, b Region) int { return cmp.Compare(a.Start, b.Start) })
	for i := 1; i < len(regions); i++ {
		if regions[i-1].Overlaps(regions[i]) {
			return fmt.Errorf("%w: nodes %v and %v overlap", ErrCorrupt, regions[i-1], regions[i])
		}
	}
	return nil
}

// Capacity returns the arena size in bytes.
func (fl *FreeListAllocator) Capacity() int { return fl.arena.size() }

// Live returns the number of blocks not yet deallocated.
func (fl *FreeListAllocator) Live() int { return fl.live }

// Stats returns a snapshot of usage counters. Walking the list makes this
// O(n) in the number of free regions.
func (fl *FreeListAllocator) Stats() Stats {
	s := fl.stats.snapshot()
	s.Capacity = fl.arena.size()
	for i := fl.head; i != nilNode; i = fl.nodes[i].next {
		s.FreeBytes += int(fl.nodes[i].size)
	}
	s.FreeRegions = fl.count
	s.InUse = s.Capacity - s.FreeBytes
	s.Live = fl.live
	return s
}

// Close releases the arena. Release failures are logged and returned; the
// allocator is unusable afterwards either way.
func (fl *FreeListAllocator) Close() error {
	err := fl.arena.release()
	fl.nodes, fl.spare, fl.head, fl.count = nil, nil, nilNode, 0
	return err
}
