// Package vmem provisions raw memory for allocator arenas straight from the
// operating system.
//
// # Overview
//
// A Source hands out private, zero-filled, read/write anonymous mappings and
// takes them back. The slices it returns are the mappings themselves, not
// copies: the arena built on top of them owns the bytes until Release.
//
// # Contract
//
// Release and Resize must be given exactly the slice that Acquire (or a
// previous Resize) returned. Passing a sub-slice or a slice from a different
// Source is undefined at the OS boundary; on unix the x/sys mapper rejects it
// with EINVAL, which surfaces here as ErrMapping.
//
// # Platforms
//
//   - linux: mmap/munmap, Resize uses mremap and can grow in place
//   - darwin and the BSDs: mmap/munmap, Resize only relocates
//   - windows: VirtualAlloc/VirtualFree, Resize only relocates
//   - anything else: Go-heap slices, so the package still builds
package vmem

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidLength indicates a non-positive mapping length.
	ErrInvalidLength = errors.New("vmem: mapping length must be positive")

	// ErrMapping indicates that the OS mapping call itself failed.
	ErrMapping = errors.New("vmem: os mapping call failed")

	// ErrNoInPlace indicates that a mapping could not be resized without moving it.
	ErrNoInPlace = errors.New("vmem: mapping cannot be resized in place")
)

// Source acquires and releases the backing memory of an arena.
type Source interface {
	// Acquire maps exactly n zero-filled bytes. Placement is chosen by the OS.
	Acquire(n int) ([]byte, error)

	// Release unmaps b, which must be a slice returned by Acquire or Resize.
	Release(b []byte) error

	// Resize changes the length of mapping b to newSize.
	//
	// When mayRelocate is false the mapping either grows or shrinks where it
	// is, or an error wrapping ErrNoInPlace is returned and b stays valid.
	// When mayRelocate is true the result may live at a different address;
	// the first min(len(b), newSize) bytes are preserved and b must no longer
	// be used.
	Resize(b []byte, newSize int, mayRelocate bool) ([]byte, error)

	// PageSize returns the granularity of the underlying mappings.
	PageSize() int
}

// OS is the Source backed by the platform's virtual memory calls.
type OS struct{}

// Default is the Source used when none is configured.
var Default Source = OS{}

// relocate moves b into a fresh mapping of newSize bytes.
func relocate(s Source, b []byte, newSize int) ([]byte, error) {
	nb, err := s.Acquire(newSize)
	if err != nil {
		return nil, err
	}
	copy(nb, b)
	if err := s.Release(b); err != nil {
		_ = s.Release(nb)
		return nil, err
	}
	return nb, nil
}

// Counting wraps a Source, tracking live mappings and optionally injecting
// failures. It is safe for concurrent use.
type Counting struct {
	Inner Source

	mu          sync.Mutex
	mappings    int
	bytes       int
	acquires    int
	releases    int
	failAcquire int
	failRelease int
	failResize  int
}

// NewCounting wraps inner, or Default when inner is nil.
func NewCounting(inner Source) *Counting {
	if inner == nil {
		inner = Default
	}
	return &Counting{Inner: inner}
}

// FailAcquire makes the next n Acquire calls fail with ErrMapping.
func (c *Counting) FailAcquire(n int) {
	c.mu.Lock()
	c.failAcquire = n
	c.mu.Unlock()
}

// FailRelease makes the next n Release calls fail with ErrMapping. The
// mapping is left in place.
func (c *Counting) FailRelease(n int) {
	c.mu.Lock()
	c.failRelease = n
	c.mu.Unlock()
}

// FailResize makes the next n Resize calls fail with ErrNoInPlace.
func (c *Counting) FailResize(n int) {
	c.mu.Lock()
	c.failResize = n
	c.mu.Unlock()
}

// Live returns the number of mappings currently held and their total size.
func (c *Counting) Live() (mappings, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mappings, c.bytes
}

// Calls returns how many Acquire and Release calls reached the inner Source.
func (c *Counting) Calls() (acquires, releases int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquires, c.releases
}

func (c *Counting) Acquire(n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAcquire > 0 {
		c.failAcquire--
		return nil, fmt.Errorf("%w: injected acquire failure (%d bytes)", ErrMapping, n)
	}
	b, err := c.Inner.Acquire(n)
	if err != nil {
		return nil, err
	}
	c.acquires++
	c.mappings++
	c.bytes += len(b)
	return b, nil
}

func (c *Counting) Release(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRelease > 0 {
		c.failRelease--
		return fmt.Errorf("%w: injected release failure (%d bytes)", ErrMapping, len(b))
	}
	if err := c.Inner.Release(b); err != nil {
		return err
	}
	c.releases++
	c.mappings--
	c.bytes -= len(b)
	return nil
}

func (c *Counting) Resize(b []byte, newSize int, mayRelocate bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failResize > 0 {
		c.failResize--
		return nil, fmt.Errorf("%w: injected resize failure", ErrNoInPlace)
	}
	oldLen := len(b)
	nb, err := c.Inner.Resize(b, newSize, mayRelocate)
	if err != nil {
		return nil, err
	}
	c.bytes += len(nb) - oldLen
	return nb, nil
}

func (c *Counting) PageSize() int { return c.Inner.PageSize() }
