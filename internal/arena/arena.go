// Package arena provides a typed block allocator. An Arena hands out Spans,
// small handles that address a run of Ts inside one of its blocks, instead of
// raw pointers. Individual spans are never freed; containers give memory back
// by reallocating to a smaller size, and the whole arena is released at once
// with Free.
//
// An Arena is not safe for concurrent use.
package arena

import (
	"fmt"
	"unsafe"
)

// DefaultBlockBytes is the capacity of the first block when none is given.
const DefaultBlockBytes = 8 << 10

// Span addresses n consecutive elements starting at off in block.
// The zero Span is empty and owns no memory.
type Span struct {
	block int
	off   int
	n     int
}

// Len returns the number of elements the span covers.
func (s Span) Len() int { return s.n }

// Empty reports whether the span covers no memory.
func (s Span) Empty() bool { return s.n == 0 }

type block[T any] struct {
	buf   []T
	used  int
	owned bool
}

func (b *block[T]) remaining() int { return len(b.buf) - b.used }

// Stats reports the arena's footprint and how reallocations were served.
type Stats struct {
	Blocks   int
	Capacity int
	Used     int
	Bytes    uintptr

	InPlace int
	Split   int
	Fit     int
	New     int
}

// Arena is a bump allocator over a list of blocks.
type Arena[T any] struct {
	blocks   []*block[T]
	blockCap int
	elemSize uintptr
	stats    Stats
}

// New returns an arena whose blocks hold at least blockBytes worth of Ts.
// A non-positive blockBytes selects DefaultBlockBytes.
func New[T any](blockBytes int) *Arena[T] {
	if blockBytes <= 0 {
		blockBytes = DefaultBlockBytes
	}
	var zero T
	size := unsafe.Sizeof(zero)
	elems := blockBytes
	if size > 0 {
		elems = blockBytes / int(size)
	}
	if elems < 1 {
		elems = 1
	}
	return &Arena[T]{blockCap: elems, elemSize: size}
}

// Adopt hands caller-owned memory to the arena as an additional block. The
// block serves allocations like any other but Free detaches it instead of
// clearing it.
func (a *Arena[T]) Adopt(buf []T) {
	if len(buf) == 0 {
		return
	}
	a.blocks = append(a.blocks, &block[T]{buf: buf[:len(buf):len(buf)]})
}

// Alloc reserves n elements. It never fails: when no block has room, a new
// block sized to the larger of n and the last block's capacity is appended.
func (a *Arena[T]) Alloc(n int) Span {
	if n <= 0 {
		return Span{}
	}
	if last := len(a.blocks) - 1; last >= 0 && a.blocks[last].remaining() >= n {
		return a.bump(last, n)
	}
	if idx := a.bestFit(n, -1); idx >= 0 {
		return a.bump(idx, n)
	}
	return a.bump(a.appendBlock(n), n)
}

// Realloc resizes s to n elements, preserving the first min(s.Len(), n)
// elements. The strategies are tried in order: grow in place when s is the
// last allocation of its block and capacity remains; split when s occupies at
// least a quarter of its block and the block's free tail holds n, carving the
// grown span from that tail; fit into the block with the smallest sufficient
// tail; otherwise allocate a new block.
// Shrinking always happens in place.
func (a *Arena[T]) Realloc(s Span, n int) Span {
	if s.Empty() {
		return a.Alloc(n)
	}
	if n <= 0 {
		a.release(s, 0)
		return Span{}
	}
	if n <= s.n {
		a.release(s, n)
		s.n = n
		return s
	}

	b := a.blocks[s.block]
	if b.used == s.off+s.n && s.off+n <= len(b.buf) {
		b.used = s.off + n
		s.n = n
		a.stats.InPlace++
		return s
	}

	var moved Span
	if s.n*4 >= len(b.buf) && b.remaining() >= n {
		// Split the owning block at its bump pointer; the span keeps its block.
		moved = a.bump(s.block, n)
		a.stats.Split++
	} else if idx := a.bestFit(n, s.block); idx >= 0 {
		moved = a.bump(idx, n)
		a.stats.Fit++
	} else {
		moved = a.bump(a.appendBlock(n), n)
		a.stats.New++
	}
	copy(a.View(moved), a.View(s))
	a.release(s, 0)
	return moved
}

// View returns the elements addressed by s. The slice is capped at s.Len()
// and stays valid until the arena is freed.
func (a *Arena[T]) View(s Span) []T {
	if s.Empty() {
		return nil
	}
	buf := a.blocks[s.block].buf
	return buf[s.off : s.off+s.n : s.off+s.n]
}

// Free releases every block. Owned blocks are cleared so the collector can
// reclaim what they reference; adopted blocks are detached untouched. Every
// span handed out before Free is invalid afterwards.
func (a *Arena[T]) Free() {
	for _, b := range a.blocks {
		if b.owned {
			clear(b.buf)
		}
	}
	a.blocks = nil
	a.stats = Stats{}
}

// Stats returns a snapshot of the arena's usage.
func (a *Arena[T]) Stats() Stats {
	st := a.stats
	st.Blocks = len(a.blocks)
	st.Capacity, st.Used = 0, 0
	for _, b := range a.blocks {
		st.Capacity += len(b.buf)
		st.Used += b.used
	}
	st.Bytes = uintptr(st.Capacity) * a.elemSize
	return st
}

func (a *Arena[T]) String() string {
	st := a.Stats()
	return fmt.Sprintf("arena{blocks: %d, used: %d/%d}", st.Blocks, st.Used, st.Capacity)
}

func (a *Arena[T]) bump(idx, n int) Span {
	b := a.blocks[idx]
	s := Span{block: idx, off: b.used, n: n}
	b.used += n
	return s
}

// bestFit returns the block with the smallest tail that still holds n
// elements, skipping the block at skip. It returns -1 when none fits.
func (a *Arena[T]) bestFit(n, skip int) int {
	best, bestRem := -1, 0
	for i, b := range a.blocks {
		if i == skip {
			continue
		}
		rem := b.remaining()
		if rem >= n && (best < 0 || rem < bestRem) {
			best, bestRem = i, rem
		}
	}
	return best
}

func (a *Arena[T]) appendBlock(n int) int {
	size := a.blockCap
	if last := len(a.blocks) - 1; last >= 0 && len(a.blocks[last].buf) > size {
		size = len(a.blocks[last].buf)
	}
	if n > size {
		size = n
	}
	a.blocks = append(a.blocks, &block[T]{buf: make([]T, size), owned: true})
	return len(a.blocks) - 1
}

// release gives back the tail of s beyond keep elements. Only the last
// allocation of a block can return memory to the bump pointer; elsewhere the
// released elements are just zeroed.
func (a *Arena[T]) release(s Span, keep int) {
	b := a.blocks[s.block]
	clear(b.buf[s.off+keep : s.off+s.n])
	if b.used == s.off+s.n {
		b.used = s.off + keep
	}
}
