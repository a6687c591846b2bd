// Package flatmap implements an open-addressing hash map for integer keys.
//
// Every slot carries a control pair: a fragment byte (empty, deleted, or the
// low 7 bits of the hash with the high bit set) and a next byte giving the
// forward distance to the following slot of its collision chain. A chain
// starts at hash % buckets and may pass through slots whose home is
// elsewhere; removal leaves a tombstone that keeps its link so chains stay
// intact. The bucket count is always 2^n-1.
package flatmap

import (
	"encoding/binary"
	"iter"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/container"
)

// Key is the set of key types a Map accepts.
type Key interface {
	~uint32 | ~uint64
}

const (
	fragEmpty   uint8 = 0
	fragDeleted uint8 = 1
	fragUsed    uint8 = 0x80

	// maxNext is the longest link a next byte can encode.
	maxNext = 255

	minShift = 3
)

type slot[K Key, V any] struct {
	frag uint8
	next uint8
	hash uint64
	key  K
	val  V
}

// Map is a flat open-addressing map. The zero value is not usable; use New.
type Map[K Key, V any] struct {
	mem     *arena.Arena[slot[K, V]]
	slots   container.Array[slot[K, V]]
	shift   uint
	live    int
	deleted int
}

// New returns an empty map with room for at least capacity entries.
func New[K Key, V any](capacity int) *Map[K, V] {
	m := &Map[K, V]{}
	shift := uint(minShift)
	for bucketsFor(shift)*7/8 < capacity {
		shift++
	}
	m.reset(shift)
	return m
}

func bucketsFor(shift uint) int { return 1<<shift - 1 }

// Hash returns the 64-bit hash used for k.
func Hash[K Key](k K) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	return xxhash.Sum64(buf[:])
}

func fragment(h uint64) uint8 { return fragUsed | uint8(h&0x7f) }

func (m *Map[K, V]) Len() int { return m.live }

// Buckets returns the current bucket count.
func (m *Map[K, V]) Buckets() int { return m.slots.Len() }

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if i := m.find(k, Hash(k)); i >= 0 {
		return m.slots.Get(i).val, true
	}
	var zero V
	return zero, false
}

// Ptr returns a pointer to the value stored under k, or nil. The pointer is
// invalidated by the next insertion or removal.
func (m *Map[K, V]) Ptr(k K) *V {
	if i := m.find(k, Hash(k)); i >= 0 {
		return &m.slots.At(i).val
	}
	return nil
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	return m.find(k, Hash(k)) >= 0
}

// Set stores v under k and reports whether k was newly added.
func (m *Map[K, V]) Set(k K, v V) bool {
	h := Hash(k)
	if i := m.find(k, h); i >= 0 {
		m.slots.At(i).val = v
		return false
	}
	if (m.live+m.deleted+1)*8 > m.slots.Len()*7 {
		m.rehash(m.shift + 1)
	}
	for !m.insert(k, h, v) {
		m.rehash(m.shift + 1)
	}
	m.live++
	return true
}

// Remove deletes k and reports whether it was present.
func (m *Map[K, V]) Remove(k K) (V, bool) {
	var zero V
	i := m.find(k, Hash(k))
	if i < 0 {
		return zero, false
	}
	s := m.slots.At(i)
	v := s.val
	s.frag = fragDeleted
	s.key, s.val = 0, zero
	m.live--
	m.deleted++

	switch {
	case m.shift > minShift && m.live*8 < m.slots.Len():
		m.rehash(m.shift - 1)
	case m.deleted*2 > m.slots.Len():
		m.rehash(m.shift)
	}
	return v, true
}

// Clear removes every entry and shrinks the table to its minimum size.
func (m *Map[K, V]) Clear() {
	old := m.mem
	m.reset(minShift)
	old.Free()
}

// All yields every entry in slot order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := 0; i < m.slots.Len(); i++ {
			s := m.slots.Get(i)
			if s.frag&fragUsed == 0 {
				continue
			}
			if !yield(s.key, s.val) {
				return
			}
		}
	}
}

func (m *Map[K, V]) find(k K, h uint64) int {
	n := m.slots.Len()
	i := int(h % uint64(n))
	f := fragment(h)
	for {
		s := m.slots.At(i)
		if s.frag == fragEmpty {
			return -1
		}
		if s.frag == f && s.hash == h && s.key == k {
			return i
		}
		if s.next == 0 {
			return -1
		}
		i = (i + int(s.next)) % n
	}
}

// insert places a key known to be absent. It reuses the first tombstone on
// the chain, otherwise links the first empty slot within maxNext of the
// chain's tail. It reports false when the chain cannot be extended.
func (m *Map[K, V]) insert(k K, h uint64, v V) bool {
	n := m.slots.Len()
	i := int(h % uint64(n))
	for {
		s := m.slots.At(i)
		switch s.frag {
		case fragEmpty:
			*s = slot[K, V]{frag: fragment(h), hash: h, key: k, val: v}
			return true
		case fragDeleted:
			s.frag, s.hash, s.key, s.val = fragment(h), h, k, v
			m.deleted--
			return true
		}
		if s.next == 0 {
			break
		}
		i = (i + int(s.next)) % n
	}
	tail := i
	for d := 1; d <= maxNext && d < n; d++ {
		j := (tail + d) % n
		s := m.slots.At(j)
		if s.frag != fragEmpty {
			continue
		}
		*s = slot[K, V]{frag: fragment(h), hash: h, key: k, val: v}
		m.slots.At(tail).next = uint8(d)
		return true
	}
	return false
}

// rehash rebuilds the table with 2^shift-1 buckets, reinserting every live
// entry. A fresh arena backs the new table and the old one is freed whole.
func (m *Map[K, V]) rehash(shift uint) {
	if shift < minShift {
		shift = minShift
	}
	old, oldMem := m.slots, m.mem
	for {
		m.reset(shift)
		if m.reinsert(&old) {
			break
		}
		m.mem.Free()
		shift++
	}
	oldMem.Free()
}

func (m *Map[K, V]) reinsert(old *container.Array[slot[K, V]]) bool {
	for i := 0; i < old.Len(); i++ {
		s := old.Get(i)
		if s.frag&fragUsed == 0 {
			continue
		}
		if !m.insert(s.key, s.hash, s.val) {
			return false
		}
		m.live++
	}
	return true
}

func (m *Map[K, V]) reset(shift uint) {
	n := bucketsFor(shift)
	var zero slot[K, V]
	// One block sized to the table; the arena lives exactly as long as it.
	m.mem = arena.New[slot[K, V]](n * int(unsafe.Sizeof(zero)))
	m.slots = container.MakeArray(m.mem, n)
	m.slots.AppendFill(n, zero)
	m.shift = shift
	m.live = 0
	m.deleted = 0
}
