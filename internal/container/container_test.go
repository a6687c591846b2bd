package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheBitDrifter/depot/internal/arena"
)

func TestArrayGrowthDoubles(t *testing.T) {
	a := NewArray[int](nil, 0)
	caps := []int{}
	for i := 0; i < 9; i++ {
		a.Append(i)
		caps = append(caps, a.Cap())
	}
	assert.Equal(t, []int{1, 2, 4, 4, 8, 8, 8, 8, 16}, caps)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, a.Slice())
}

func TestArrayShrinksOnlyAtQuarterOccupancy(t *testing.T) {
	a := NewArray[int](nil, 0)
	for i := 0; i < 16; i++ {
		a.Append(i)
	}
	require.Equal(t, 16, a.Cap())

	for a.Len() > 5 {
		a.Pop()
	}
	assert.Equal(t, 16, a.Cap(), "above a quarter, capacity is kept")

	a.Pop()
	// 4 of 16 is a quarter; halve until at least half full.
	assert.Equal(t, 8, a.Cap())

	a.Pop()
	assert.Equal(t, 8, a.Cap())
	a.Pop()
	assert.Equal(t, 4, a.Cap())
	assert.Equal(t, []int{0, 1}, a.Slice())
}

func TestArrayRespectsMinimumCapacity(t *testing.T) {
	a := NewArray[int](nil, 8)
	for i := 0; i < 32; i++ {
		a.Append(i)
	}
	a.Clear()
	assert.Equal(t, 8, a.Cap())
	assert.Equal(t, 0, a.Len())
}

func TestArrayInsertRemove(t *testing.T) {
	a := NewArray[string](nil, 0)
	a.Append("a", "d")
	a.Insert(1, "b", "c")
	assert.Equal(t, []string{"a", "b", "c", "d"}, a.Slice())

	a.InsertFill(0, 2, "_")
	assert.Equal(t, []string{"_", "_", "a", "b", "c", "d"}, a.Slice())

	a.RemoveRange(0, 2)
	assert.Equal(t, "b", a.Remove(1))
	assert.Equal(t, []string{"a", "c", "d"}, a.Slice())

	assert.Equal(t, "a", a.RemoveSwapLast(0))
	assert.Equal(t, []string{"d", "c"}, a.Slice())

	a.AppendFill(2, "z")
	assert.Equal(t, []string{"d", "c", "z", "z"}, a.Slice())
}

func TestArrayPanicsOutOfRange(t *testing.T) {
	a := NewArray[int](nil, 0)
	a.Append(1)
	assert.Panics(t, func() { a.Get(1) })
	assert.Panics(t, func() { a.Remove(-1) })
	assert.Panics(t, func() { a.Truncate(2) })
}

func TestArraysShareAnArena(t *testing.T) {
	mem := arena.New[int](64 * 8)
	a := MakeArray(mem, 0)
	b := MakeArray(mem, 0)
	for i := 0; i < 20; i++ {
		a.Append(i)
		b.Append(-i)
	}
	for i := 0; i < 20; i++ {
		require.Equal(t, i, a.Get(i))
		require.Equal(t, -i, b.Get(i))
	}
	assert.GreaterOrEqual(t, mem.Stats().Used, 40)
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int](nil, 0)
	for i := 0; i < 10; i++ {
		q.PushLast(i)
	}
	for i := 0; i < 10; i++ {
		v, ok := q.PopFirst()
		require.True(t, ok)
		require.Equal(t, i, v)
		assert.Equal(t, 9-i, q.Len())
	}
	_, ok := q.PopFirst()
	assert.False(t, ok)
}

func TestQueueCompactsConsumedPrefix(t *testing.T) {
	q := NewQueue[int](nil, 0)
	for i := 0; i < 8; i++ {
		q.PushLast(i)
	}
	q.PopFirst()
	q.PopFirst()
	assert.Equal(t, 2, q.head, "2 consumed of 6 live stays uncompacted")

	q.PopFirst()
	assert.Equal(t, 0, q.head, "3 consumed of 5 live triggers compaction")
	assert.Equal(t, 5, q.Len())
	v, _ := q.PeekFirst()
	assert.Equal(t, 3, v)
}

func TestQueueBothEnds(t *testing.T) {
	q := NewQueue[int](nil, 0)
	q.PushLast(2)
	q.PushFirst(1)
	q.PushLast(3)
	q.PushFirst(0)
	require.Equal(t, 4, q.Len())
	for i := 0; i < 4; i++ {
		assert.Equal(t, i, q.At(i))
	}

	v, ok := q.PopLast()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	q.PopFirst()
	q.PushFirst(9)
	v, _ = q.PeekFirst()
	assert.Equal(t, 9, v)

	q.Clear()
	assert.Equal(t, 0, q.Len())
}
