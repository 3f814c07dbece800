//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package vmem

import (
	"fmt"
	"os"
)

// Acquire returns a Go-heap slice when no mmap is available. The bytes are
// zeroed but only aligned as strictly as the Go allocator aligns them.
func (OS) Acquire(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	return make([]byte, n), nil
}

// Release drops the slice; the garbage collector reclaims it.
func (OS) Release([]byte) error { return nil }

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

func (OS) PageSize() int { return os.Getpagesize() }
