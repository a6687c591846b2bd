package sparse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplacedWindow(t *testing.T) {
	d := NewDisplaced[int](nil, -1)
	assert.True(t, d.Set(100, 1))
	start, end := d.Window()
	assert.Equal(t, uint64(100), start)
	assert.Equal(t, uint64(101), end)

	d.Set(90, 2)
	d.Set(104, 3)
	start, end = d.Window()
	assert.Equal(t, uint64(90), start, "window grows by prepending")
	assert.Equal(t, uint64(105), end, "and by appending")
	assert.False(t, d.Has(95))

	first, last, ok := d.Bounds()
	require.True(t, ok)
	assert.Equal(t, uint32(90), first)
	assert.Equal(t, uint32(104), last)

	v, ok := d.Remove(90)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	start, _ = d.Window()
	assert.Equal(t, uint64(100), start, "live keys under half the window compacts")
	first, _, _ = d.Bounds()
	assert.Equal(t, uint32(100), first)

	got := map[uint32]int{}
	for k, v := range d.All() {
		got[k] = v
	}
	assert.Equal(t, map[uint32]int{100: 1, 104: 3}, got)
}

func TestDisplacedRejectsAbsentValue(t *testing.T) {
	d := NewDisplaced[int](nil, -1)
	assert.Panics(t, func() { d.Set(1, -1) })
}

func TestDisplacedExpandToInclude(t *testing.T) {
	d := NewDisplaced[uint32](nil, absentIndex)
	d.ExpandToInclude(20, 10)
	start, end := d.Window()
	assert.Equal(t, uint64(10), start)
	assert.Equal(t, uint64(21), end)
	assert.Equal(t, 0, d.Len())
	_, ok := d.Get(15)
	assert.False(t, ok)
}

func TestSetRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	s := NewSet[uint32, int](0)
	want := map[uint32]int{}
	for i := 0; i < 10000; i++ {
		k := uint32(r.Intn(500))
		if r.Intn(3) == 0 {
			v, ok := s.Remove(k)
			wv, existed := want[k]
			require.Equal(t, existed, ok)
			if existed {
				require.Equal(t, wv, v)
			}
			delete(want, k)
		} else {
			v := r.Int()
			_, existed := want[k]
			require.Equal(t, !existed, s.Set(k, v))
			want[k] = v
		}
		require.Equal(t, len(want), s.Len())
	}
	for k, v := range want {
		got, ok := s.Value(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	for i, k := range s.Keys() {
		idx, ok := s.Index(k)
		require.True(t, ok)
		require.Equal(t, i, idx)
	}
}

func TestSetSwapRemoval(t *testing.T) {
	s := NewSet[uint32, string](0)
	for i, k := range []uint32{7, 3, 9, 12} {
		s.Set(k, string(rune('a'+i)))
	}
	before := map[uint32]int{}
	for _, k := range s.Keys() {
		before[k], _ = s.Index(k)
	}

	v, ok := s.Remove(3)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	idx, _ := s.Index(12)
	assert.Equal(t, before[3], idx, "last key takes the removed slot")
	for _, k := range []uint32{7, 9} {
		idx, _ := s.Index(k)
		assert.Equal(t, before[k], idx, "key %d keeps its slot", k)
	}
	assert.Equal(t, []uint32{7, 12, 9}, s.Keys())
	assert.Equal(t, []string{"a", "d", "c"}, s.Values())
	assert.Nil(t, s.Get(3))
}

func TestIntSet(t *testing.T) {
	s := NewIntSet[uint32](0)
	assert.True(t, s.Add(4))
	assert.False(t, s.Add(4))
	assert.True(t, s.AddValue(8, 8))
	assert.Panics(t, func() { s.AddValue(9, 10) })
	assert.True(t, s.Remove(4))
	assert.False(t, s.Has(4))
	assert.Equal(t, []uint32{8}, s.Keys())
}

func TestPagedSetFarApartKeys(t *testing.T) {
	s := NewPagedSet[uint64, int](0)
	keys := []uint64{1, 1 << 40, 1<<40 + 1, 1 << 62, 4097}
	for i, k := range keys {
		assert.True(t, s.Set(k, i))
	}
	assert.Equal(t, 4, s.Pages())
	for i, k := range keys {
		v, ok := s.Value(k)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, i, v)
	}

	s.Remove(1 << 40)
	assert.Equal(t, 4, s.Pages(), "page still holds 1<<40+1")
	s.Remove(1<<40 + 1)
	assert.Equal(t, 3, s.Pages(), "empty pages are dropped")
	assert.False(t, s.Has(1<<40))
	assert.Equal(t, 3, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Pages())
	assert.Equal(t, 0, s.Len())
}
