package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_AllocAlignedAndNonNull(t *testing.T) {
	h := NewHeap(1024, 0)
	seen := map[uint32]bool{}
	for _, n := range []int{0, 1, 7, 8, 13, 100} {
		p, err := h.Alloc(n)
		require.NoError(t, err)
		assert.NotZero(t, p)
		assert.Zero(t, p%heapAlign)
		assert.False(t, seen[p], "address reused while live")
		seen[p] = true
	}
	assert.Equal(t, 6, h.Live())
}

func TestHeap_FreeTwice(t *testing.T) {
	h := NewHeap(1024, 0)
	p, err := h.Alloc(32)
	require.NoError(t, err)
	require.NoError(t, h.Free(p))
	assert.ErrorIs(t, h.Free(p), ErrDoubleFree)
	assert.ErrorIs(t, h.Free(12345), ErrDoubleFree)
	assert.NoError(t, h.Free(0))
}

func TestHeap_ReusesFreedSpace(t *testing.T) {
	h := NewHeap(1024, 0)
	a, _ := h.Alloc(64)
	b, _ := h.Alloc(64)
	_, _ = h.Alloc(64)
	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(b))

	// a and b coalesce into one 128-byte span.
	c, err := h.Alloc(120)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestHeap_ZeroesReusedMemory(t *testing.T) {
	h := NewHeap(1024, 0)
	p, _ := h.Alloc(16)
	require.NoError(t, h.Write(p, []byte{1, 2, 3, 4}))
	require.NoError(t, h.Free(p))
	q, _ := h.Alloc(16)
	assert.Equal(t, make([]byte, 16), h.Bytes()[q:q+16])
}

func TestHeap_GrowsAndLimits(t *testing.T) {
	h := NewHeap(64, 256)
	p, err := h.Alloc(200)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(h.Bytes()), int(p)+200)

	_, err = h.Alloc(200)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	_, err = h.Alloc(-1)
	assert.Error(t, err)
}

func TestHeap_BoundsChecks(t *testing.T) {
	h := NewHeap(64, 64)
	assert.ErrorIs(t, h.Write(60, []byte{1, 2, 3, 4, 5}), ErrOutOfBounds)
	assert.ErrorIs(t, h.PutWord(62, 1), ErrOutOfBounds)
	assert.NoError(t, h.PutWord(16, 0xdeadbeef))
}
