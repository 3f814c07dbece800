//go:build linux

package vmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Resize remaps b with mremap. Without mayRelocate the kernel must extend or
// shrink the mapping where it lies; ENOMEM then means the neighbouring
// address range is taken.
func (OS) Resize(b []byte, newSize int, mayRelocate bool) ([]byte, error) {
	if newSize <= 0 {
		return nil, ErrInvalidLength
	}
	if newSize == len(b) {
		return b, nil
	}
	flags := 0
	if mayRelocate {
		flags = unix.MREMAP_MAYMOVE
	}
	nb, err := unix.Mremap(b, newSize, flags)
	if err != nil {
		if !mayRelocate && errors.Is(err, unix.ENOMEM) {
			return nil, fmt.Errorf("%w: %d -> %d bytes", ErrNoInPlace, len(b), newSize)
		}
		return nil, fmt.Errorf("%w: mremap %d -> %d bytes: %w", ErrMapping, len(b), newSize, err)
	}
	return nb, nil
}
