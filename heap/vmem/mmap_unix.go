//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package vmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Acquire maps n bytes of private anonymous memory.
func (OS) Acquire(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	// MAP_ANON memory is zero-filled and never shared with another process.
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrMapping, n, err)
	}
	return b, nil
}

// Release unmaps b. b must be the exact slice returned by Acquire or Resize.
func (OS) Release(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("%w: munmap %d bytes: %w", ErrMapping, len(b), err)
	}
	return nil
}

func (OS) PageSize() int { return unix.Getpagesize() }
