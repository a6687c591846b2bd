// Package bitset implements a hierarchical presence index over 32-bit keys.
//
// Layer 0 holds one bit per key. Every layer above holds one bit per word of
// the layer below, set iff that word is non-zero, so a zero word at layer l
// proves that 64^(l+1) consecutive keys are unset. Each layer stores only the
// window of words that has ever been touched.
package bitset

import (
	"iter"
	"math/bits"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/container"
)

const (
	wordShift = 6
	wordBits  = 1 << wordShift
	wordMask  = wordBits - 1

	keyBits = 32

	// Layers is the number of layers needed for the top layer to fit in a
	// single word.
	Layers = (keyBits + wordShift - 1) / wordShift

	// Limit is one past the largest key.
	Limit = uint64(1) << keyBits
)

type layer struct {
	base  uint64
	words container.Array[uint64]
}

func (l *layer) word(w uint64) uint64 {
	if w < l.base || w-l.base >= uint64(l.words.Len()) {
		return 0
	}
	return l.words.Get(int(w - l.base))
}

// ensure widens the window to include word w and returns a pointer to it.
func (l *layer) ensure(w uint64) *uint64 {
	n := uint64(l.words.Len())
	switch {
	case n == 0:
		l.base = w
		l.words.Append(0)
	case w < l.base:
		l.words.InsertFill(0, int(l.base-w), 0)
		l.base = w
	case w-l.base >= n:
		l.words.AppendFill(int(w-l.base-n+1), 0)
	}
	return l.words.At(int(w - l.base))
}

// trim drops zero words from both ends of the window. Leading words are only
// dropped once they make up half the window, so repeated unsets at the front
// do not shift the whole window each time.
func (l *layer) trim() {
	n := l.words.Len()
	end := n
	for end > 0 && l.words.Get(end-1) == 0 {
		end--
	}
	if end < n {
		l.words.Truncate(end)
	}
	if end == 0 {
		l.base = 0
		return
	}
	lead := 0
	for lead < end && l.words.Get(lead) == 0 {
		lead++
	}
	if lead > 0 && lead*2 >= end {
		l.words.RemoveRange(0, lead)
		l.base += uint64(lead)
	}
}

// Bitset is a hierarchical bitset. The zero value is not usable; use New.
type Bitset struct {
	mem    *arena.Arena[uint64]
	layers [Layers]layer
	count  int
}

// New returns an empty bitset that allocates its words from mem. A nil mem
// gives the bitset a private arena.
func New(mem *arena.Arena[uint64]) *Bitset {
	if mem == nil {
		mem = arena.New[uint64](0)
	}
	b := &Bitset{mem: mem}
	for i := range b.layers {
		b.layers[i].words = container.MakeArray(mem, 0)
	}
	return b
}

// Arena returns the arena the bitset allocates from.
func (b *Bitset) Arena() *arena.Arena[uint64] { return b.mem }

// Len returns the number of set bits.
func (b *Bitset) Len() int { return b.count }

// Empty reports whether no bit is set.
func (b *Bitset) Empty() bool { return b.count == 0 }

// Set sets bit i and reports whether it was previously unset.
func (b *Bitset) Set(i uint32) bool {
	idx := uint64(i)
	for l := 0; l < Layers; l++ {
		w := idx >> wordShift
		p := b.layers[l].ensure(w)
		bit := uint64(1) << (idx & wordMask)
		if l == 0 && *p&bit != 0 {
			return false
		}
		wasZero := *p == 0
		*p |= bit
		if !wasZero {
			break
		}
		idx = w
	}
	b.count++
	return true
}

// Unset clears bit i and reports whether it was previously set. Summary bits
// are cleared bottom up, stopping at the first word that still has other bits.
func (b *Bitset) Unset(i uint32) bool {
	idx := uint64(i)
	for l := 0; l < Layers; l++ {
		ly := &b.layers[l]
		w := idx >> wordShift
		bit := uint64(1) << (idx & wordMask)
		if ly.word(w)&bit == 0 {
			if l == 0 {
				return false
			}
			break
		}
		p := ly.words.At(int(w - ly.base))
		*p &^= bit
		if *p != 0 {
			break
		}
		ly.trim()
		idx = w
	}
	b.count--
	return true
}

// IsSet reports whether bit i is set.
func (b *Bitset) IsSet(i uint32) bool {
	idx := uint64(i)
	return b.layers[0].word(idx>>wordShift)&(uint64(1)<<(idx&wordMask)) != 0
}

// IsSetSkipUnset reports whether bit i is set. When it is not, skip is a
// number of positions starting at i that are provably unset, found by
// walking down from the top layer to the first zero summary.
func (b *Bitset) IsSetSkipUnset(i uint32) (set bool, skip uint64) {
	idx := uint64(i)
	for l := Layers - 1; l >= 0; l-- {
		shift := uint(wordShift * l)
		pos := idx >> shift
		w := pos >> wordShift
		word := b.layers[l].word(w)
		if word == 0 {
			return false, ((w + 1) << (shift + wordShift)) - idx
		}
		if word&(uint64(1)<<(pos&wordMask)) == 0 {
			return false, ((pos + 1) << shift) - idx
		}
	}
	return true, 0
}

// NextSet returns the smallest set bit >= from.
func (b *Bitset) NextSet(from uint64) (uint32, bool) {
	if from >= Limit || b.count == 0 {
		return 0, false
	}
	i, ok := b.next(0, from)
	if !ok || i >= Limit {
		return 0, false
	}
	return uint32(i), true
}

// PrevSet returns the largest set bit <= from.
func (b *Bitset) PrevSet(from uint32) (uint32, bool) {
	if b.count == 0 {
		return 0, false
	}
	i, ok := b.prev(0, uint64(from))
	return uint32(i), ok
}

// First returns the smallest set bit.
func (b *Bitset) First() (uint32, bool) { return b.NextSet(0) }

// Last returns the largest set bit.
func (b *Bitset) Last() (uint32, bool) { return b.PrevSet(^uint32(0)) }

func (b *Bitset) next(l int, idx uint64) (uint64, bool) {
	ly := &b.layers[l]
	top := l == Layers-1
	for {
		w := idx >> wordShift
		if top {
			n := uint64(ly.words.Len())
			if n == 0 || w >= ly.base+n {
				return 0, false
			}
			if w < ly.base {
				w, idx = ly.base, ly.base<<wordShift
			}
		}
		word := ly.word(w) & (^uint64(0) << (idx & wordMask))
		if word != 0 {
			return w<<wordShift + uint64(bits.TrailingZeros64(word)), true
		}
		if top {
			idx = (w + 1) << wordShift
			continue
		}
		nw, ok := b.next(l+1, w+1)
		if !ok {
			return 0, false
		}
		idx = nw << wordShift
	}
}

func (b *Bitset) prev(l int, idx uint64) (uint64, bool) {
	ly := &b.layers[l]
	top := l == Layers-1
	for {
		w := idx >> wordShift
		if top {
			n := uint64(ly.words.Len())
			if n == 0 || w < ly.base {
				return 0, false
			}
			if w >= ly.base+n {
				w = ly.base + n - 1
				idx = w<<wordShift | wordMask
			}
		}
		word := ly.word(w) & ((uint64(2) << (idx & wordMask)) - 1)
		if word != 0 {
			return w<<wordShift + uint64(wordMask-bits.LeadingZeros64(word)), true
		}
		if w == 0 {
			return 0, false
		}
		if top {
			idx = w<<wordShift - 1
			continue
		}
		pw, ok := b.prev(l+1, w-1)
		if !ok {
			return 0, false
		}
		idx = pw<<wordShift | wordMask
	}
}

// All yields every set bit in ascending order.
func (b *Bitset) All() iter.Seq[uint32] {
	return b.Range(0, Limit)
}

// Range yields the set bits in [from, to) in ascending order.
func (b *Bitset) Range(from, to uint64) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for pos := from; pos < to; {
			i, ok := b.NextSet(pos)
			if !ok || uint64(i) >= to {
				return
			}
			if !yield(i) {
				return
			}
			pos = uint64(i) + 1
		}
	}
}

// Backward yields every set bit in descending order.
func (b *Bitset) Backward() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		i, ok := b.Last()
		for ok {
			if !yield(i) || i == 0 {
				return
			}
			i, ok = b.PrevSet(i - 1)
		}
	}
}

// Clear unsets every bit, keeping the arena.
func (b *Bitset) Clear() {
	for i := range b.layers {
		b.layers[i].words.Clear()
		b.layers[i].base = 0
	}
	b.count = 0
}

// Clone copies b into a new bitset allocated from mem.
func (b *Bitset) Clone(mem *arena.Arena[uint64]) *Bitset {
	c := New(mem)
	for l := range b.layers {
		src := &b.layers[l]
		c.layers[l].base = src.base
		c.layers[l].words.Append(src.words.Slice()...)
	}
	c.count = b.count
	return c
}

// Words returns the number of words held across all layers.
func (b *Bitset) Words() int {
	n := 0
	for l := range b.layers {
		n += b.layers[l].words.Len()
	}
	return n
}
