package alloc

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// allocatorStats holds counters maintained on every call.
type allocatorStats struct {
	AllocCalls     int   // Total Allocate() calls
	FailedAllocs   int   // Allocate() calls that returned an error
	FreeCalls      int   // Total Deallocate() calls
	GrowCalls      int   // Successful Grow() calls
	BytesAllocated int64 // Sum of requested sizes handed out
	BytesFreed     int64 // Sum of sizes passed back to Deallocate()
	SplitCount     int   // Free-list allocations that left a tail node behind
	Forfeited      int64 // Bytes lost to alignment padding, never reclaimed
	Resets         int   // Times the bump pointer returned to the arena start
}

func (s allocatorStats) snapshot() Stats {
	return Stats{
		AllocCalls:     s.AllocCalls,
		FailedAllocs:   s.FailedAllocs,
		FreeCalls:      s.FreeCalls,
		GrowCalls:      s.GrowCalls,
		BytesAllocated: s.BytesAllocated,
		BytesFreed:     s.BytesFreed,
		Splits:         s.SplitCount,
		Forfeited:      s.Forfeited,
		Resets:         s.Resets,
	}
}

// Stats is a point-in-time view of an allocator.
type Stats struct {
	Capacity    int // Arena size in bytes
	InUse       int // Bytes not available for allocation
	FreeBytes   int // Bytes available, possibly split over several regions
	FreeRegions int // Number of free regions
	Live        int // Regions allocated and not yet deallocated

	AllocCalls     int
	FailedAllocs   int
	FreeCalls      int
	GrowCalls      int
	BytesAllocated int64
	BytesFreed     int64
	Splits         int
	Forfeited      int64
	Resets         int
}

// String renders the snapshot on one line with human-readable sizes.
func (s Stats) String() string {
	return fmt.Sprintf(
		"capacity=%s in-use=%s free=%s in %d regions, live=%d, allocs=%d (failed %d), frees=%d, grows=%d, forfeited=%s",
		humanize.Bytes(uint64(s.Capacity)),
		humanize.Bytes(uint64(s.InUse)),
		humanize.Bytes(uint64(s.FreeBytes)),
		s.FreeRegions,
		s.Live,
		s.AllocCalls,
		s.FailedAllocs,
		s.FreeCalls,
		s.GrowCalls,
		humanize.Bytes(uint64(s.Forfeited)),
	)
}
