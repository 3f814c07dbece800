package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBump_VecPushes: three pushes into a vector backed by a 24-byte bump arena.
func TestBump_VecPushes(t *testing.T) {
	ba := newTestBump(t, 24)
	v := &byteVec{a: ba}

	for _, b := range []byte{2, 3, 4} {
		require.NoError(t, v.Push(b))
	}
	assert.Equal(t, []byte{2, 3, 4}, v.buf)
	v.Free()
	assert.Zero(t, ba.Live())
}

// TestBump_AdjacentSingleBytes: 1-byte, 1-aligned requests are packed back to back.
func TestBump_AdjacentSingleBytes(t *testing.T) {
	ba := newTestBump(t, 24)

	var regions []Region
	for i, val := range []byte{2, 3, 4} {
		r, mem, err := ba.Allocate(LayoutOf(1))
		require.NoError(t, err, "Allocate %d", i)
		require.Len(t, mem, 1)
		mem[0] = val
		regions = append(regions, r)
	}
	assert.Equal(t, Region{0, 1}, regions[0])
	assert.Equal(t, Region{1, 2}, regions[1])
	assert.Equal(t, Region{2, 3}, regions[2])
	assert.Equal(t, []byte{2, 3, 4}, ba.arena.mem[:3])
}

func TestBump_ReserveToTotalCapacity(t *testing.T) {
	ba := newTestBump(t, 24)
	v := &byteVec{a: ba}
	require.NoError(t, v.TryReserve(24))
	assert.Equal(t, 24, cap(v.buf))
}

func TestBump_ReserveBeyondCapacity(t *testing.T) {
	ba := newTestBump(t, 24)
	v := &byteVec{a: ba}
	err := v.TryReserve(25)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Zero(t, cap(v.buf), "failed reserve must not change the vector")
}

// TestFreeList_VecPushes: five pushes into a vector backed by a 24-byte
// free-list arena stay readable, and a 64-byte reservation then fails.
func TestFreeList_VecPushes(t *testing.T) {
	fl := newTestFreeList(t, 24)
	v := &byteVec{a: fl}

	want := []byte{5, 6, 9, 11, 122}
	for _, b := range want {
		require.NoError(t, v.Push(b))
	}
	assert.Equal(t, want, v.buf)
	for i, b := range want {
		assert.Equal(t, b, v.buf[i], "element %d", i)
	}
	requireVerified(t, fl)

	err := v.TryReserve(64)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, want, v.buf, "failed reserve must leave contents intact")
	requireVerified(t, fl)
}

func TestFreeList_ReserveMoreThanCapacity(t *testing.T) {
	fl := newTestFreeList(t, 24)
	v := &byteVec{a: fl}
	require.ErrorIs(t, v.TryReserve(64), ErrOutOfMemory)
}

// TestZeroCapacity: both allocators refuse an empty arena at construction.
func TestZeroCapacity(t *testing.T) {
	_, err := NewBump(0, nil)
	require.ErrorIs(t, err, ErrZeroCapacity)
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, err = NewFreeList(0, nil)
	require.ErrorIs(t, err, ErrZeroCapacity)
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, err = NewLockedBump(0, nil)
	require.ErrorIs(t, err, ErrZeroCapacity)
}

// TestExactCapacityBoundary: a request equal to what is left succeeds and one
// byte more fails.
func TestExactCapacityBoundary(t *testing.T) {
	t.Run("bump", func(t *testing.T) {
		ba := newTestBump(t, 24)
		_, _, err := ba.Allocate(LayoutOf(25))
		require.ErrorIs(t, err, ErrOutOfMemory)
		_, _, err = ba.Allocate(LayoutOf(24))
		require.NoError(t, err)
		_, _, err = ba.Allocate(LayoutOf(1))
		require.ErrorIs(t, err, ErrOutOfMemory)
	})

	t.Run("bump after partial use", func(t *testing.T) {
		ba := newTestBump(t, 24)
		_, _, err := ba.Allocate(LayoutOf(8))
		require.NoError(t, err)
		_, _, err = ba.Allocate(LayoutOf(17))
		require.ErrorIs(t, err, ErrOutOfMemory)
		_, _, err = ba.Allocate(LayoutOf(16))
		require.NoError(t, err)
		assert.Zero(t, ba.Remaining())
	})

	t.Run("freelist", func(t *testing.T) {
		fl := newTestFreeList(t, 24)
		_, _, err := fl.Allocate(LayoutOf(25))
		require.ErrorIs(t, err, ErrOutOfMemory)
		r, _, err := fl.Allocate(LayoutOf(24))
		require.NoError(t, err)
		assert.Equal(t, Region{0, 24}, r)
		assert.Empty(t, fl.FreeRegions())
	})
}
