//go:build windows

package vmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Acquire reserves and commits n bytes with VirtualAlloc. Committed pages
// are zero-filled.
func (OS) Acquire(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("%w: VirtualAlloc %d bytes: %w", ErrMapping, n, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

// Release frees the whole reservation backing b.
func (OS) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("%w: VirtualFree %d bytes: %w", ErrMapping, len(b), err)
	}
	return nil
}

// Resize only relocates; reservations cannot be extended in place.
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

func (OS) PageSize() int { return windows.Getpagesize() }
