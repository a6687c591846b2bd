package flatmap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketCountIsPowerOfTwoMinusOne(t *testing.T) {
	m := New[uint32, int](0)
	assert.Equal(t, 7, m.Buckets())

	m = New[uint32, int](100)
	n := m.Buckets() + 1
	assert.Zero(t, n&(n-1), "buckets+1 is a power of two")
	assert.GreaterOrEqual(t, m.Buckets()*7/8, 100)
}

func TestMatchesBuiltinMap(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	m := New[uint64, uint64](0)
	want := map[uint64]uint64{}

	for i := 0; i < 20000; i++ {
		// A narrow key range keeps removals and reinsertions frequent.
		k := uint64(r.Intn(2048))
		switch r.Intn(3) {
		case 0, 1:
			v := r.Uint64()
			_, existed := want[k]
			require.Equal(t, !existed, m.Set(k, v), "set %d", k)
			want[k] = v
		case 2:
			got, ok := m.Remove(k)
			wv, existed := want[k]
			require.Equal(t, existed, ok, "remove %d", k)
			if existed {
				require.Equal(t, wv, got)
			}
			delete(want, k)
		}
		require.Equal(t, len(want), m.Len())
	}

	for k, v := range want {
		got, ok := m.Get(k)
		require.True(t, ok, "key %d", k)
		require.Equal(t, v, got)
	}
	seen := 0
	for k, v := range m.All() {
		require.Equal(t, want[k], v)
		seen++
	}
	assert.Equal(t, len(want), seen)
}

func TestTombstonesKeepChainsReachable(t *testing.T) {
	m := New[uint32, uint32](64)
	for i := uint32(0); i < 50; i++ {
		m.Set(i, i*10)
	}
	buckets := m.Buckets()
	// Removing every other key leaves tombstones in the middle of chains.
	for i := uint32(0); i < 50; i += 2 {
		_, ok := m.Remove(i)
		require.True(t, ok)
	}
	for i := uint32(1); i < 50; i += 2 {
		v, ok := m.Get(i)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, i*10, v)
	}
	for i := uint32(0); i < 50; i += 2 {
		assert.False(t, m.Has(i))
	}
	assert.Equal(t, buckets, m.Buckets())
}

func TestGrowsAndShrinks(t *testing.T) {
	m := New[uint32, struct{}](0)
	for i := uint32(0); i < 1000; i++ {
		m.Set(i*7919, struct{}{})
	}
	grown := m.Buckets()
	assert.GreaterOrEqual(t, grown*7, 1000*8)

	for i := uint32(0); i < 990; i++ {
		m.Remove(i * 7919)
	}
	assert.Less(t, m.Buckets(), grown)
	assert.Equal(t, 10, m.Len())
	for i := uint32(990); i < 1000; i++ {
		assert.True(t, m.Has(i*7919))
	}
}

func TestPtrWritesThrough(t *testing.T) {
	m := New[uint32, [2]int](0)
	m.Set(5, [2]int{1, 2})
	p := m.Ptr(5)
	require.NotNil(t, p)
	p[1] = 9
	v, _ := m.Get(5)
	assert.Equal(t, [2]int{1, 9}, v)
	assert.Nil(t, m.Ptr(6))
}

func TestClear(t *testing.T) {
	m := New[uint32, int](500)
	for i := uint32(0); i < 400; i++ {
		m.Set(i, int(i))
	}
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 7, m.Buckets())
	assert.False(t, m.Has(1))
	m.Set(1, 1)
	assert.True(t, m.Has(1))
}

func TestIncrementOrSet(t *testing.T) {
	m := New[uint64, int](0)
	assert.Equal(t, 1, IncrementOrSet(m, 42, 1))
	assert.Equal(t, 2, IncrementOrSet(m, 42, 1))
	assert.Equal(t, 1, Decrement(m, 42))
	assert.True(t, m.Has(42))
	assert.Equal(t, 0, Decrement(m, 42))
	assert.False(t, m.Has(42), "a count reaching zero removes the entry")

	assert.Equal(t, 0, IncrementOrSet(m, 7, -3))
	assert.False(t, m.Has(7), "non-positive deltas never create entries")
}
