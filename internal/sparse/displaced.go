// Package sparse implements keyed stores over integer keys: an offset-addressed
// array (DisplacedSet) and sparse sets built on it, with a paged variant for
// far-apart keys.
package sparse

import (
	"fmt"
	"iter"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/container"
)

// DisplacedSet is an array addressed by key - start. Its window grows to
// include every key stored and narrows again once fewer than half of its
// slots are live. Slots holding the absent value are empty.
type DisplacedSet[T comparable] struct {
	absent T
	start  uint64
	vals   container.Array[T]

	// first and last bound the live keys; meaningful only while live > 0.
	first, last uint64
	live        int
}

// NewDisplaced returns an empty set allocating from mem. A nil mem gives the
// set a private arena.
func NewDisplaced[T comparable](mem *arena.Arena[T], absent T) *DisplacedSet[T] {
	return &DisplacedSet[T]{absent: absent, vals: container.MakeArray(mem, 0)}
}

// Len returns the number of live keys.
func (d *DisplacedSet[T]) Len() int { return d.live }

// Window returns the addressable key range [start, end).
func (d *DisplacedSet[T]) Window() (start, end uint64) {
	return d.start, d.start + uint64(d.vals.Len())
}

// Bounds returns the smallest and largest live key.
func (d *DisplacedSet[T]) Bounds() (first, last uint32, ok bool) {
	if d.live == 0 {
		return 0, 0, false
	}
	return uint32(d.first), uint32(d.last), true
}

func (d *DisplacedSet[T]) slot(k uint32) (int, bool) {
	key := uint64(k)
	if key < d.start || key-d.start >= uint64(d.vals.Len()) {
		return 0, false
	}
	return int(key - d.start), true
}

// Get returns the value stored under k.
func (d *DisplacedSet[T]) Get(k uint32) (T, bool) {
	if i, ok := d.slot(k); ok {
		if v := d.vals.Get(i); v != d.absent {
			return v, true
		}
	}
	return d.absent, false
}

// Has reports whether k holds a value.
func (d *DisplacedSet[T]) Has(k uint32) bool {
	_, ok := d.Get(k)
	return ok
}

// ExpandToInclude widens the window to cover [lo, hi], filling new slots with
// the absent value.
func (d *DisplacedSet[T]) ExpandToInclude(lo, hi uint32) {
	if lo > hi {
		lo, hi = hi, lo
	}
	from, to := uint64(lo), uint64(hi)+1
	n := uint64(d.vals.Len())
	if n == 0 {
		d.start = from
		d.vals.AppendFill(int(to-from), d.absent)
		return
	}
	if from < d.start {
		d.vals.InsertFill(0, int(d.start-from), d.absent)
		d.start = from
		n = uint64(d.vals.Len())
	}
	if end := d.start + n; to > end {
		d.vals.AppendFill(int(to-end), d.absent)
	}
}

// Set stores v under k and reports whether k was newly added. Storing the
// absent value panics.
func (d *DisplacedSet[T]) Set(k uint32, v T) bool {
	if v == d.absent {
		panic(fmt.Sprintf("sparse: storing the absent value under key %d", k))
	}
	d.ExpandToInclude(k, k)
	i, _ := d.slot(k)
	p := d.vals.At(i)
	added := *p == d.absent
	*p = v
	if !added {
		return false
	}
	key := uint64(k)
	if d.live == 0 {
		d.first, d.last = key, key
	} else {
		d.first = min(d.first, key)
		d.last = max(d.last, key)
	}
	d.live++
	return true
}

// Remove clears k and returns the value it held.
func (d *DisplacedSet[T]) Remove(k uint32) (T, bool) {
	i, ok := d.slot(k)
	if !ok {
		return d.absent, false
	}
	p := d.vals.At(i)
	v := *p
	if v == d.absent {
		return d.absent, false
	}
	*p = d.absent
	d.live--

	key := uint64(k)
	switch {
	case d.live == 0:
		d.first, d.last = 0, 0
	case key == d.first:
		for d.vals.Get(int(d.first-d.start)) == d.absent {
			d.first++
		}
	case key == d.last:
		for d.vals.Get(int(d.last-d.start)) == d.absent {
			d.last--
		}
	}
	if d.live*2 < d.vals.Len() {
		d.compact()
	}
	return v, true
}

// compact narrows the window to [first, last].
func (d *DisplacedSet[T]) compact() {
	if d.live == 0 {
		d.vals.Clear()
		d.start = 0
		return
	}
	d.vals.Truncate(int(d.last-d.start) + 1)
	if lead := int(d.first - d.start); lead > 0 {
		d.vals.RemoveRange(0, lead)
		d.start = d.first
	}
}

// All yields every live key and value in ascending key order.
func (d *DisplacedSet[T]) All() iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		if d.live == 0 {
			return
		}
		for key := d.first; key <= d.last; key++ {
			v := d.vals.Get(int(key - d.start))
			if v == d.absent {
				continue
			}
			if !yield(uint32(key), v) {
				return
			}
		}
	}
}

// Clear removes every key.
func (d *DisplacedSet[T]) Clear() {
	d.vals.Clear()
	d.start, d.first, d.last, d.live = 0, 0, 0, 0
}
