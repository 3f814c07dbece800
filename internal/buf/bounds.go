// Package buf contains overflow-safe arithmetic and bounds-checked slicing
// over arena memory.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
// The capacity of the result is clipped to its length so appends can never
// spill into the bytes that follow it.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}

// Within reports whether [off, off+n) lies inside [0, size).
// It is Has for callers that track a length rather than hold a slice.
func Within(size, off, n int) bool {
	if off < 0 || n < 0 || off > size {
		return false
	}
	end, ok := AddOverflowSafe(off, n)
	return ok && end <= size
}
