package vmem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireZeroFilledReadWrite(t *testing.T) {
	var src OS
	b, err := src.Acquire(3 * src.PageSize())
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Release(b)) }()

	require.Len(t, b, 3*src.PageSize())
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = 0x%x, want zero-filled mapping", i, v)
		}
	}

	b[0], b[len(b)-1] = 0xAB, 0xCD
	assert.Equal(t, byte(0xAB), b[0])
	assert.Equal(t, byte(0xCD), b[len(b)-1])
}

func TestAcquireRejectsNonPositiveLength(t *testing.T) {
	var src OS
	for _, n := range []int{0, -1} {
		_, err := src.Acquire(n)
		require.ErrorIs(t, err, ErrInvalidLength, "Acquire(%d)", n)
	}
}

func TestAcquireOddLength(t *testing.T) {
	var src OS
	b, err := src.Acquire(24)
	require.NoError(t, err)
	assert.Len(t, b, 24)
	require.NoError(t, src.Release(b))
}

func TestResizeRelocatePreservesContents(t *testing.T) {
	var src OS
	page := src.PageSize()
	b, err := src.Acquire(page)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i)
	}

	grown, err := src.Resize(b, 4*page, true)
	require.NoError(t, err)
	require.Len(t, grown, 4*page)
	for i := range page {
		if grown[i] != byte(i) {
			t.Fatalf("byte %d lost across relocation: 0x%x", i, grown[i])
		}
	}
	assert.Zero(t, grown[4*page-1], "grown tail should be zero-filled")

	shrunk, err := src.Resize(grown, page/2, true)
	require.NoError(t, err)
	require.Len(t, shrunk, page/2)
	assert.Equal(t, byte(7), shrunk[7])
	require.NoError(t, src.Release(shrunk))
}

// TestResizeInPlace accepts either outcome: whether the kernel can extend a
// mapping in place depends on what else lives in the address space.
func TestResizeInPlace(t *testing.T) {
	var src OS
	page := src.PageSize()
	b, err := src.Acquire(2 * page)
	require.NoError(t, err)
	b[0] = 42

	grown, err := src.Resize(b, 8*page, false)
	if err != nil {
		require.ErrorIs(t, err, ErrNoInPlace)
		// The original mapping must still be usable and releasable.
		assert.Equal(t, byte(42), b[0])
		require.NoError(t, src.Release(b))
		return
	}
	assert.Equal(t, &b[0], &grown[0], "in-place resize must not move the mapping")
	assert.Equal(t, byte(42), grown[0])
	require.NoError(t, src.Release(grown))
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	var src OS
	b, err := src.Acquire(src.PageSize())
	require.NoError(t, err)
	same, err := src.Resize(b, len(b), false)
	require.NoError(t, err)
	assert.Equal(t, &b[0], &same[0])
	_, err = src.Resize(b, 0, true)
	require.ErrorIs(t, err, ErrInvalidLength)
	require.NoError(t, src.Release(same))
}

func TestCountingTracksMappings(t *testing.T) {
	c := NewCounting(nil)
	a, err := c.Acquire(4096)
	require.NoError(t, err)
	b, err := c.Acquire(8192)
	require.NoError(t, err)

	mappings, bytes := c.Live()
	assert.Equal(t, 2, mappings)
	assert.Equal(t, 4096+8192, bytes)

	b, err = c.Resize(b, 4096, true)
	require.NoError(t, err)
	_, bytes = c.Live()
	assert.Equal(t, 8192, bytes)

	require.NoError(t, c.Release(a))
	require.NoError(t, c.Release(b))
	mappings, bytes = c.Live()
	assert.Zero(t, mappings)
	assert.Zero(t, bytes)

	acquires, releases := c.Calls()
	assert.Equal(t, 2, acquires)
	assert.Equal(t, 2, releases)
}

func TestCountingInjectedFailures(t *testing.T) {
	c := NewCounting(nil)

	c.FailAcquire(1)
	_, err := c.Acquire(4096)
	require.ErrorIs(t, err, ErrMapping)

	b, err := c.Acquire(4096)
	require.NoError(t, err, "only the first acquire should fail")

	c.FailResize(1)
	_, err = c.Resize(b, 8192, false)
	require.ErrorIs(t, err, ErrNoInPlace)

	c.FailRelease(1)
	err = c.Release(b)
	require.ErrorIs(t, err, ErrMapping)
	mappings, _ := c.Live()
	assert.Equal(t, 1, mappings, "a failed release leaves the mapping live")

	require.NoError(t, c.Release(b))
	assert.False(t, errors.Is(ErrMapping, ErrNoInPlace))
}
