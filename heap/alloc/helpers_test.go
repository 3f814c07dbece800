package alloc

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/vmem"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestBump creates an OS-backed bump allocator closed at test cleanup.
func newTestBump(t testing.TB, capacity int) *BumpAllocator {
	t.Helper()
	ba, err := NewBump(capacity, nil)
	require.NoError(t, err, "NewBump(%d)", capacity)
	t.Cleanup(func() { _ = ba.Close() })
	return ba
}

// newTestFreeList creates an OS-backed free-list allocator closed at test cleanup.
func newTestFreeList(t testing.TB, capacity int) *FreeListAllocator {
	t.Helper()
	fl, err := NewFreeList(capacity, nil)
	require.NoError(t, err, "NewFreeList(%d)", capacity)
	t.Cleanup(func() { _ = fl.Close() })
	return fl
}

// requireVerified fails the test if the free list is inconsistent.
func requireVerified(t testing.TB, fl *FreeListAllocator) {
	t.Helper()
	require.NoError(t, fl.Verify())
}

// captureLogger returns options that log at debug level into the returned buffer.
func captureLogger(name string) (*Options, *bytes.Buffer) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &Options{Logger: logger, Name: name}, &out
}

// sliceSource is a deterministic vmem.Source over one preallocated Go slice.
// Every Acquire returns a prefix of the backing slice and every Resize
// succeeds in place up to its length.
type sliceSource struct {
	backing []byte
}

func newSliceSource(limit int) *sliceSource {
	return &sliceSource{backing: make([]byte, limit)}
}

func (s *sliceSource) Acquire(n int) ([]byte, error) {
	if n <= 0 {
		return nil, vmem.ErrInvalidLength
	}
	if n > len(s.backing) {
		return nil, fmt.Errorf("%w: %d > %d", vmem.ErrMapping, n, len(s.backing))
	}
	return s.backing[:n:n], nil
}

func (s *sliceSource) Release([]byte) error { return nil }

func (s *sliceSource) Resize(b []byte, newSize int, _ bool) ([]byte, error) {
	if newSize > len(s.backing) {
		return nil, fmt.Errorf("%w: %d > %d", vmem.ErrNoInPlace, newSize, len(s.backing))
	}
	return s.backing[:newSize:newSize], nil
}

func (s *sliceSource) PageSize() int { return 4096 }

// byteVec is a minimal growable byte vector that gets its storage from an
// Allocator: capacity doubles, never below minVecCap, and the old block is
// freed after the contents are copied over.
type byteVec struct {
	a   Allocator
	off int
	buf []byte // len is the vector length, cap its capacity
}

const minVecCap = 8

func (v *byteVec) layout() Layout { return LayoutOf(cap(v.buf)) }

// TryReserve makes room for at least extra more bytes.
func (v *byteVec) TryReserve(extra int) error {
	need := len(v.buf) + extra
	if need <= cap(v.buf) {
		return nil
	}
	return v.grow(max(need, 2*cap(v.buf), minVecCap))
}

func (v *byteVec) grow(newCap int) error {
	r, mem, err := v.a.Allocate(LayoutOf(newCap))
	if err != nil {
		return err
	}
	next := mem[:len(v.buf):newCap]
	copy(next, v.buf)
	if cap(v.buf) > 0 {
		v.a.Deallocate(v.off, v.layout())
	}
	v.off, v.buf = r.Start, next
	return nil
}

func (v *byteVec) Push(b byte) error {
	if err := v.TryReserve(1); err != nil {
		return err
	}
	v.buf = append(v.buf, b)
	return nil
}

func (v *byteVec) Free() {
	if cap(v.buf) > 0 {
		v.a.Deallocate(v.off, v.layout())
	}
	v.buf = nil
}
