//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package vmem

import "fmt"

// Resize relocates b into a new mapping. These platforms have no mremap, so
// an in-place request only succeeds when the size is unchanged.
func (o OS) Resize(b []byte, newSize int, mayRelocate bool) ([]byte, error) {
	if newSize <= 0 {
		return nil, ErrInvalidLength
	}
	if newSize == len(b) {
		return b, nil
	}
	if !mayRelocate {
		return nil, fmt.Errorf("%w: %d -> %d bytes", ErrNoInPlace, len(b), newSize)
	}
	return relocate(o, b, newSize)
}
