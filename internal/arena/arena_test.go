package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(a *Arena[int], s Span, base int) {
	for i, p := 0, a.View(s); i < len(p); i++ {
		p[i] = base + i
	}
}

func requirePrefix(t *testing.T, a *Arena[int], s Span, base, n int) {
	t.Helper()
	view := a.View(s)
	require.GreaterOrEqual(t, len(view), n)
	for i := 0; i < n; i++ {
		require.Equal(t, base+i, view[i], "element %d", i)
	}
}

func TestAllocBumpsWithinBlock(t *testing.T) {
	a := New[int](64 * 8)
	s1 := a.Alloc(10)
	s2 := a.Alloc(20)

	assert.Equal(t, 10, s1.Len())
	assert.Equal(t, 20, s2.Len())
	assert.Equal(t, s1.block, s2.block)
	assert.Equal(t, s1.off+s1.n, s2.off)

	st := a.Stats()
	assert.Equal(t, 1, st.Blocks)
	assert.Equal(t, 30, st.Used)
	assert.Equal(t, 64, st.Capacity)
}

func TestAllocGrowsByLargerOfRequestAndLastBlock(t *testing.T) {
	a := New[int](16 * 8)
	a.Alloc(16)
	s := a.Alloc(100)

	st := a.Stats()
	require.Equal(t, 2, st.Blocks)
	assert.Equal(t, 116, st.Capacity)
	assert.Equal(t, 1, s.block)

	a.Alloc(1)
	// The new block copies the capacity of the last block.
	assert.Equal(t, 216, a.Stats().Capacity)
}

func TestAllocZeroIsEmpty(t *testing.T) {
	a := New[int](0)
	s := a.Alloc(0)
	assert.True(t, s.Empty())
	assert.Nil(t, a.View(s))
	assert.Equal(t, 0, a.Stats().Blocks)
}

func TestReallocInPlaceNeverMoves(t *testing.T) {
	a := New[int](64 * 8)
	s := a.Alloc(8)
	fill(a, s, 100)

	grown := a.Realloc(s, 40)
	assert.Equal(t, s.block, grown.block)
	assert.Equal(t, s.off, grown.off)
	assert.Equal(t, 1, a.Stats().InPlace)
	requirePrefix(t, a, grown, 100, 8)
}

func TestReallocStrategiesPreservePrefix(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *Arena[int]) Span
		grow  int
		check func(t *testing.T, st Stats)
	}{
		{
			name: "split when allocation is a quarter of its block",
			setup: func(a *Arena[int]) Span {
				s := a.Alloc(20)
				a.Alloc(1) // pins s so it is not the last allocation
				return s
			},
			grow: 30,
			check: func(t *testing.T, st Stats) {
				assert.Equal(t, 1, st.Split)
				assert.Equal(t, 1, st.Blocks, "split must stay in the owning block")
				assert.Equal(t, 51, st.Used)
			},
		},
		{
			name: "large allocation without room in its block moves out",
			setup: func(a *Arena[int]) Span {
				s := a.Alloc(20)
				a.Alloc(40) // leaves a tail of 4
				return s
			},
			grow: 30,
			check: func(t *testing.T, st Stats) {
				assert.Equal(t, 0, st.Split)
				assert.Equal(t, 1, st.New)
			},
		},
		{
			name: "fit into another block with room",
			setup: func(a *Arena[int]) Span {
				s := a.Alloc(4)
				a.Alloc(50) // first block keeps a tail of 10
				a.Alloc(20) // does not fit that tail, opens a second block
				return s
			},
			grow:  7,
			check: func(t *testing.T, st Stats) { assert.Equal(t, 1, st.Fit) },
		},
		{
			name: "new block when nothing fits",
			setup: func(a *Arena[int]) Span {
				s := a.Alloc(4)
				a.Alloc(60)
				return s
			},
			grow:  10,
			check: func(t *testing.T, st Stats) { assert.Equal(t, 1, st.New) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New[int](64 * 8)
			s := tt.setup(a)
			fill(a, s, 7)

			grown := a.Realloc(s, tt.grow)
			require.Equal(t, tt.grow, grown.Len())
			requirePrefix(t, a, grown, 7, s.Len())
			tt.check(t, a.Stats())
		})
	}
}

func TestReallocShrinkKeepsPrefixAndReturnsTail(t *testing.T) {
	a := New[int](64 * 8)
	s := a.Alloc(32)
	fill(a, s, 0)

	shrunk := a.Realloc(s, 8)
	assert.Equal(t, s.off, shrunk.off)
	requirePrefix(t, a, shrunk, 0, 8)
	assert.Equal(t, 8, a.Stats().Used)

	// The tail is reusable by the next allocation.
	next := a.Alloc(4)
	assert.Equal(t, shrunk.off+8, next.off)
	for _, v := range a.View(next) {
		assert.Zero(t, v)
	}
}

func TestAdoptedBlocksAreDetachedOnFree(t *testing.T) {
	buf := make([]int, 16)
	a := New[int](8 * 8)
	a.Adopt(buf)

	s := a.Alloc(16)
	fill(a, s, 1)
	require.Equal(t, 1, buf[0], "allocation should land in the adopted block")

	a.Free()
	assert.Equal(t, 0, a.Stats().Blocks)
	assert.Equal(t, 1, buf[0], "adopted memory must not be cleared")
	assert.Equal(t, 16, buf[15])
}

func TestFreeClearsOwnedBlocks(t *testing.T) {
	a := New[*int](0)
	v := 3
	s := a.Alloc(1)
	a.View(s)[0] = &v
	blk := a.blocks[0]

	a.Free()
	assert.Nil(t, blk.buf[0])
	assert.Equal(t, Stats{}, a.Stats())
}
