package alloc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/heap/vmem"
)

var (
	// ErrOutOfMemory indicates the arena cannot satisfy a request, or that the
	// OS refused to provide the arena in the first place.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadLayout indicates a negative size or an alignment that is not a power of two.
	ErrBadLayout = errors.New("alloc: invalid layout")

	// ErrZeroCapacity is returned when an allocator is constructed with no
	// capacity. It matches ErrOutOfMemory under errors.Is.
	ErrZeroCapacity = fmt.Errorf("%w: zero capacity", ErrOutOfMemory)

	// ErrTooSmall indicates a free-list arena that cannot hold a single free node.
	ErrTooSmall = errors.New("alloc: capacity below minimum free node size")

	// ErrTooLarge indicates a capacity or growth beyond MaxArenaSize.
	ErrTooLarge = errors.New("alloc: arena larger than MaxArenaSize")

	// ErrClosed is returned by Close on an allocator that was already closed.
	ErrClosed = errors.New("alloc: allocator closed")

	// ErrCorrupt is wrapped by Verify when a free-list invariant does not hold.
	ErrCorrupt = errors.New("alloc: free list corrupt")
)

// IsMappingFailure reports whether err was caused by the OS mapping call
// itself rather than by an exhausted arena. Both kinds match ErrOutOfMemory.
func IsMappingFailure(err error) bool {
	return errors.Is(err, vmem.ErrMapping)
}
