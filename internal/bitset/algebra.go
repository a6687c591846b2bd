package bitset

import "github.com/TheBitDrifter/depot/internal/arena"

// Intersection returns a new bitset with the bits set in every operand.
// It drives from the sparsest operand and lets the others skip it forward
// over runs they prove unset.
func Intersection(mem *arena.Arena[uint64], sets ...*Bitset) *Bitset {
	out := New(mem)
	if len(sets) == 0 {
		return out
	}
	driver := sparsest(sets)
	if driver.Empty() {
		return out
	}
	for i, ok := driver.NextSet(0); ok; {
		pos, all := uint64(i), true
		for _, s := range sets {
			if s == driver {
				continue
			}
			set, skip := s.IsSetSkipUnset(i)
			if !set {
				all = false
				pos += skip
				break
			}
		}
		if all {
			out.Set(i)
			pos++
		}
		i, ok = driver.NextSet(pos)
	}
	return out
}

// Union returns a new bitset with the bits set in any operand.
func Union(mem *arena.Arena[uint64], sets ...*Bitset) *Bitset {
	out := New(mem)
	out.Join(sets...)
	return out
}

// Difference returns a new bitset with the bits of a that are unset in every
// one of subtrahends.
func Difference(mem *arena.Arena[uint64], a *Bitset, subtrahends ...*Bitset) *Bitset {
	out := New(mem)
	if a == nil || a.Empty() {
		return out
	}
	for i, ok := a.NextSet(0); ok; {
		pos, keep := uint64(i), true
		for _, s := range subtrahends {
			if s.IsSet(i) {
				keep = false
				break
			}
		}
		if keep {
			out.Set(i)
		}
		pos++
		i, ok = a.NextSet(pos)
	}
	return out
}

// Intersect keeps only the bits of b that are also set in every one of
// others.
func (b *Bitset) Intersect(others ...*Bitset) *Bitset {
	if b.Empty() {
		return b
	}
	for _, o := range others {
		if o == nil || o.Empty() {
			b.Clear()
			return b
		}
	}
	for i, ok := b.NextSet(0); ok; {
		pos := uint64(i) + 1
		for _, o := range others {
			if set, skip := o.IsSetSkipUnset(i); !set {
				b.unsetRun(uint64(i), skip)
				pos = uint64(i) + skip
				break
			}
		}
		i, ok = b.NextSet(pos)
	}
	return b
}

// Join sets every bit that is set in any of others.
func (b *Bitset) Join(others ...*Bitset) *Bitset {
	for _, o := range others {
		if o == nil || o == b {
			continue
		}
		for i := range o.All() {
			b.Set(i)
		}
	}
	return b
}

// Subtract unsets every bit that is set in any of others. Each pass walks
// whichever side has fewer bits.
func (b *Bitset) Subtract(others ...*Bitset) *Bitset {
	for _, o := range others {
		if o == nil || b.Empty() {
			continue
		}
		if o == b {
			b.Clear()
			continue
		}
		if o.Len() < b.Len() {
			for i := range o.All() {
				b.Unset(i)
			}
			continue
		}
		for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(uint64(i) + 1) {
			if o.IsSet(i) {
				b.Unset(i)
			}
		}
	}
	return b
}

// Equal reports whether a and b have the same bits set.
func Equal(a, b *Bitset) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.All() {
		if !b.IsSet(i) {
			return false
		}
	}
	return true
}

// unsetRun clears every set bit in [from, from+n).
func (b *Bitset) unsetRun(from, n uint64) {
	end := from + n
	for i, ok := b.NextSet(from); ok && uint64(i) < end; i, ok = b.NextSet(uint64(i) + 1) {
		b.Unset(i)
	}
}

func sparsest(sets []*Bitset) *Bitset {
	best := sets[0]
	for _, s := range sets[1:] {
		if s.Len() < best.Len() {
			best = s
		}
	}
	return best
}
