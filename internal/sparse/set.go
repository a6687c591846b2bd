package sparse

import (
	"fmt"
	"iter"

	"github.com/TheBitDrifter/depot/internal/container"
	"github.com/TheBitDrifter/depot/internal/flatmap"
)

// absentIndex marks an empty slot in a key to dense index table.
const absentIndex = ^uint32(0)

// index maps keys to dense positions.
type index[K any] interface {
	lookup(k K) (uint32, bool)
	store(k K, i uint32)
	drop(k K)
	clear()
}

// dense holds the packed key list shared by every sparse set flavour. Keys
// are kept contiguous by moving the last key into a removed key's slot.
type dense[K comparable] struct {
	idx  index[K]
	keys container.Array[K]
}

func (d *dense[K]) position(k K) (int, bool) {
	i, ok := d.idx.lookup(k)
	return int(i), ok
}

// add appends k and returns its position, or returns the existing position.
func (d *dense[K]) add(k K) (int, bool) {
	if i, ok := d.position(k); ok {
		return i, false
	}
	i := d.keys.Len()
	d.keys.Append(k)
	d.idx.store(k, uint32(i))
	return i, true
}

// remove drops k and returns the position it vacated along with the position
// the last key moved from. moved == removed when k was last.
func (d *dense[K]) remove(k K) (removed, moved int, ok bool) {
	i, ok := d.position(k)
	if !ok {
		return 0, 0, false
	}
	last := d.keys.Len() - 1
	if i != last {
		tail := d.keys.Get(last)
		d.keys.Set(i, tail)
		d.idx.store(tail, uint32(i))
	}
	d.keys.Truncate(last)
	d.idx.drop(k)
	return i, last, true
}

func (d *dense[K]) clear() {
	d.keys.Clear()
	d.idx.clear()
}

type displacedIndex[K ~uint32] struct{ set *DisplacedSet[uint32] }

func (x displacedIndex[K]) lookup(k K) (uint32, bool) { return x.set.Get(uint32(k)) }
func (x displacedIndex[K]) store(k K, i uint32)       { x.set.Set(uint32(k), i) }
func (x displacedIndex[K]) drop(k K)                  { x.set.Remove(uint32(k)) }
func (x displacedIndex[K]) clear()                    { x.set.Clear() }

// Set is a sparse set: a key to dense index table plus packed key and value
// arrays. Removal swaps the last entry into the vacated slot, so positions
// are stable only until the next removal.
type Set[K ~uint32, V any] struct {
	dense[K]
	values container.Array[V]
}

// NewSet returns an empty sparse set sized for capacity entries.
func NewSet[K ~uint32, V any](capacity int) *Set[K, V] {
	return &Set[K, V]{
		dense: dense[K]{
			idx:  displacedIndex[K]{NewDisplaced[uint32](nil, absentIndex)},
			keys: container.MakeArray[K](nil, capacity),
		},
		values: container.MakeArray[V](nil, capacity),
	}
}

// Len returns the number of entries.
func (s *Set[K, V]) Len() int { return s.keys.Len() }

// Has reports whether k is present.
func (s *Set[K, V]) Has(k K) bool {
	_, ok := s.position(k)
	return ok
}

// Index returns the dense position of k.
func (s *Set[K, V]) Index(k K) (int, bool) { return s.position(k) }

// Set stores v under k and reports whether k was newly added.
func (s *Set[K, V]) Set(k K, v V) bool {
	i, added := s.add(k)
	if added {
		s.values.Append(v)
	} else {
		s.values.Set(i, v)
	}
	return added
}

// Get returns a pointer to the value stored under k, or nil. The pointer is
// invalidated by the next insertion or removal.
func (s *Set[K, V]) Get(k K) *V {
	i, ok := s.position(k)
	if !ok {
		return nil
	}
	return s.values.At(i)
}

// Value returns a copy of the value stored under k.
func (s *Set[K, V]) Value(k K) (V, bool) {
	if p := s.Get(k); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// Remove deletes k and returns the value it held.
func (s *Set[K, V]) Remove(k K) (V, bool) {
	removed, moved, ok := s.remove(k)
	if !ok {
		var zero V
		return zero, false
	}
	v := s.values.Get(removed)
	if removed != moved {
		s.values.Set(removed, s.values.Get(moved))
	}
	s.values.Truncate(moved)
	return v, true
}

// At returns the key and value at dense position i.
func (s *Set[K, V]) At(i int) (K, *V) { return s.keys.Get(i), s.values.At(i) }

// Keys returns the packed keys. The slice aliases the set.
func (s *Set[K, V]) Keys() []K { return s.keys.Slice() }

// Values returns the packed values, parallel to Keys. The slice aliases the set.
func (s *Set[K, V]) Values() []V { return s.values.Slice() }

// All yields every key with a pointer to its value, in dense order.
func (s *Set[K, V]) All() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		for i := 0; i < s.keys.Len(); i++ {
			if !yield(s.keys.Get(i), s.values.At(i)) {
				return
			}
		}
	}
}

// Clear removes every entry.
func (s *Set[K, V]) Clear() {
	s.clear()
	s.values.Clear()
}

// IntSet is a sparse set whose keys are their own values.
type IntSet[K ~uint32] struct {
	dense[K]
}

// NewIntSet returns an empty integer set sized for capacity keys.
func NewIntSet[K ~uint32](capacity int) *IntSet[K] {
	return &IntSet[K]{dense[K]{
		idx:  displacedIndex[K]{NewDisplaced[uint32](nil, absentIndex)},
		keys: container.MakeArray[K](nil, capacity),
	}}
}

func (s *IntSet[K]) Len() int { return s.keys.Len() }

// Add inserts k and reports whether it was newly added.
func (s *IntSet[K]) Add(k K) bool {
	_, added := s.add(k)
	return added
}

// AddValue inserts k with the value v, which must equal k.
func (s *IntSet[K]) AddValue(k, v K) bool {
	if k != v {
		panic(fmt.Sprintf("sparse: integer set value %d differs from key %d", v, k))
	}
	return s.Add(k)
}

func (s *IntSet[K]) Has(k K) bool {
	_, ok := s.position(k)
	return ok
}

// Index returns the dense position of k.
func (s *IntSet[K]) Index(k K) (int, bool) { return s.position(k) }

// Remove deletes k and reports whether it was present.
func (s *IntSet[K]) Remove(k K) bool {
	_, _, ok := s.remove(k)
	return ok
}

// Keys returns the packed keys. The slice aliases the set.
func (s *IntSet[K]) Keys() []K { return s.keys.Slice() }

// All yields every key in dense order.
func (s *IntSet[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for i := 0; i < s.keys.Len(); i++ {
			if !yield(s.keys.Get(i)) {
				return
			}
		}
	}
}

func (s *IntSet[K]) Clear() { s.clear() }

const (
	pageBits = 12
	pageMask = 1<<pageBits - 1
)

// pagedIndex splits keys into pages of 2^pageBits keys, each page a
// DisplacedSet reached through a flatmap keyed by page number.
type pagedIndex[K ~uint32 | ~uint64] struct {
	pages *flatmap.Map[uint64, *DisplacedSet[uint32]]
}

func split[K ~uint32 | ~uint64](k K) (page uint64, local uint32) {
	return uint64(k) >> pageBits, uint32(uint64(k) & pageMask)
}

func (x pagedIndex[K]) lookup(k K) (uint32, bool) {
	page, local := split(k)
	p, ok := x.pages.Get(page)
	if !ok {
		return 0, false
	}
	return p.Get(local)
}

func (x pagedIndex[K]) store(k K, i uint32) {
	page, local := split(k)
	p, ok := x.pages.Get(page)
	if !ok {
		p = NewDisplaced[uint32](nil, absentIndex)
		x.pages.Set(page, p)
	}
	p.Set(local, i)
}

func (x pagedIndex[K]) drop(k K) {
	page, local := split(k)
	p, ok := x.pages.Get(page)
	if !ok {
		return
	}
	p.Remove(local)
	if p.Len() == 0 {
		x.pages.Remove(page)
	}
}

func (x pagedIndex[K]) clear() { x.pages.Clear() }

// PagedSet is a sparse set for wide key spaces. Its index is paged so far
// apart keys do not force one contiguous index window.
type PagedSet[K ~uint32 | ~uint64, V any] struct {
	dense[K]
	pages  *flatmap.Map[uint64, *DisplacedSet[uint32]]
	values container.Array[V]
}

// NewPagedSet returns an empty paged set sized for capacity entries.
func NewPagedSet[K ~uint32 | ~uint64, V any](capacity int) *PagedSet[K, V] {
	pages := flatmap.New[uint64, *DisplacedSet[uint32]](0)
	return &PagedSet[K, V]{
		dense: dense[K]{
			idx:  pagedIndex[K]{pages},
			keys: container.MakeArray[K](nil, capacity),
		},
		pages:  pages,
		values: container.MakeArray[V](nil, capacity),
	}
}

func (s *PagedSet[K, V]) Len() int { return s.keys.Len() }

// Pages returns the number of index pages in use.
func (s *PagedSet[K, V]) Pages() int { return s.pages.Len() }

func (s *PagedSet[K, V]) Has(k K) bool {
	_, ok := s.position(k)
	return ok
}

// Set stores v under k and reports whether k was newly added.
func (s *PagedSet[K, V]) Set(k K, v V) bool {
	i, added := s.add(k)
	if added {
		s.values.Append(v)
	} else {
		s.values.Set(i, v)
	}
	return added
}

// Get returns a pointer to the value stored under k, or nil.
func (s *PagedSet[K, V]) Get(k K) *V {
	i, ok := s.position(k)
	if !ok {
		return nil
	}
	return s.values.At(i)
}

// Value returns a copy of the value stored under k.
func (s *PagedSet[K, V]) Value(k K) (V, bool) {
	if p := s.Get(k); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

// Remove deletes k and returns the value it held.
func (s *PagedSet[K, V]) Remove(k K) (V, bool) {
	removed, moved, ok := s.remove(k)
	if !ok {
		var zero V
		return zero, false
	}
	v := s.values.Get(removed)
	if removed != moved {
		s.values.Set(removed, s.values.Get(moved))
	}
	s.values.Truncate(moved)
	return v, true
}

func (s *PagedSet[K, V]) Keys() []K   { return s.keys.Slice() }
func (s *PagedSet[K, V]) Values() []V { return s.values.Slice() }

// All yields every key with a pointer to its value, in dense order.
func (s *PagedSet[K, V]) All() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		for i := 0; i < s.keys.Len(); i++ {
			if !yield(s.keys.Get(i), s.values.At(i)) {
				return
			}
		}
	}
}

func (s *PagedSet[K, V]) Clear() {
	s.clear()
	s.values.Clear()
}
