// Package align holds the address arithmetic shared by the allocators.
//
// Every alignment passed to this package must be a power of two. Passing
// anything else is a programming error and panics rather than returning an
// error, because a bad alignment reaching this layer means an allocator
// invariant is already broken.
package align

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// IsPowerOfTwo reports whether x is a positive power of two.
func IsPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// To returns the smallest multiple of align that is >= addr.
//
// Example:
//
//	To(2, 8)    = 8
//	To(8, 8)    = 8
//	To(11, 8)   = 16
//	To(257, 64) = 320
//
// Panics if align is not a power of two or the result does not fit in an int.
func To(addr, align int) int {
	aligned, ok := CheckedTo(addr, align)
	if !ok {
		panic(fmt.Sprintf("align: aligning %d to %d overflows", addr, align))
	}
	return aligned
}

// CheckedTo is To with ok = false instead of a panic when the aligned value
// would overflow. A non power of two align still panics.
func CheckedTo(addr, align int) (int, bool) {
	mustPow2(align)
	mask := align - 1
	bumped, ok := buf.AddOverflowSafe(addr, mask)
	if !ok {
		return 0, false
	}
	return bumped &^ mask, true
}

// Padding returns how many bytes To(addr, align) skips past addr.
func Padding(addr, align int) int {
	return To(addr, align) - addr
}

// SizeAlignFor enlarges a (size, align) request so the granted block can
// later hold one metadata record of metaSize bytes at metaAlign alignment.
// The returned align is max(align, metaAlign) and the returned size is
// max(size, metaSize) rounded up to a multiple of it.
func SizeAlignFor(size, align, metaSize, metaAlign int) (int, int) {
	mustPow2(align)
	mustPow2(metaAlign)
	a := max(align, metaAlign)
	return To(max(size, metaSize), a), a
}

func mustPow2(align int) {
	if !IsPowerOfTwo(align) {
		panic(fmt.Sprintf("align: %d is not a power of two", align))
	}
}
