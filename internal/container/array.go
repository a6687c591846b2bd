// Package container holds the growable buffers every other structure in the
// module is built from. Both allocate exclusively through an arena.
package container

import (
	"fmt"

	"github.com/TheBitDrifter/depot/internal/arena"
)

// Array is a contiguous growable buffer of Ts. Capacity doubles on growth and
// is halved once occupancy falls to a quarter, always through arena Realloc.
//
// Pointers and slices obtained from an Array are valid until its next
// structural change.
type Array[T any] struct {
	mem    *arena.Arena[T]
	span   arena.Span
	n      int
	minCap int
}

// MakeArray returns an empty Array backed by mem. A nil mem gives the array
// a private arena. capacity is reserved up front and is also the floor below
// which the array never shrinks.
func MakeArray[T any](mem *arena.Arena[T], capacity int) Array[T] {
	if mem == nil {
		mem = arena.New[T](0)
	}
	a := Array[T]{mem: mem, minCap: capacity}
	if capacity > 0 {
		a.span = mem.Alloc(capacity)
	}
	return a
}

// NewArray is MakeArray returning a pointer.
func NewArray[T any](mem *arena.Arena[T], capacity int) *Array[T] {
	a := MakeArray(mem, capacity)
	return &a
}

func (a *Array[T]) Len() int { return a.n }

func (a *Array[T]) Cap() int { return a.span.Len() }

// Slice returns the live elements.
func (a *Array[T]) Slice() []T {
	return a.arena().View(a.span)[:a.n]
}

// At returns a pointer to element i.
func (a *Array[T]) At(i int) *T {
	a.check(i)
	return &a.arena().View(a.span)[i]
}

func (a *Array[T]) Get(i int) T {
	a.check(i)
	return a.arena().View(a.span)[i]
}

func (a *Array[T]) Set(i int, v T) {
	a.check(i)
	a.arena().View(a.span)[i] = v
}

// Last returns the final element and false when the array is empty.
func (a *Array[T]) Last() (T, bool) {
	if a.n == 0 {
		var zero T
		return zero, false
	}
	return a.Get(a.n - 1), true
}

// Append adds vs at the end.
func (a *Array[T]) Append(vs ...T) {
	a.Reserve(a.n + len(vs))
	copy(a.arena().View(a.span)[a.n:], vs)
	a.n += len(vs)
}

// AppendFill adds count copies of v at the end.
func (a *Array[T]) AppendFill(count int, v T) {
	if count <= 0 {
		return
	}
	a.Reserve(a.n + count)
	buf := a.arena().View(a.span)[a.n : a.n+count]
	for i := range buf {
		buf[i] = v
	}
	a.n += count
}

// Insert places vs at index i, shifting the tail up.
func (a *Array[T]) Insert(i int, vs ...T) {
	if i == a.n {
		a.Append(vs...)
		return
	}
	a.check(i)
	a.Reserve(a.n + len(vs))
	buf := a.arena().View(a.span)
	copy(buf[i+len(vs):], buf[i:a.n])
	copy(buf[i:], vs)
	a.n += len(vs)
}

// InsertFill places count copies of v at index i, shifting the tail up.
func (a *Array[T]) InsertFill(i, count int, v T) {
	if count <= 0 {
		return
	}
	if i != a.n {
		a.check(i)
	}
	a.Reserve(a.n + count)
	buf := a.arena().View(a.span)
	copy(buf[i+count:], buf[i:a.n])
	for j := i; j < i+count; j++ {
		buf[j] = v
	}
	a.n += count
}

// Remove deletes element i, keeping order.
func (a *Array[T]) Remove(i int) T {
	a.check(i)
	buf := a.arena().View(a.span)
	v := buf[i]
	copy(buf[i:], buf[i+1:a.n])
	a.truncate(a.n - 1)
	return v
}

// RemoveRange deletes elements [i, j), keeping order.
func (a *Array[T]) RemoveRange(i, j int) {
	if i == j {
		return
	}
	if i < 0 || j > a.n || i > j {
		panic(fmt.Sprintf("container: range [%d:%d] out of bounds for length %d", i, j, a.n))
	}
	buf := a.arena().View(a.span)
	copy(buf[i:], buf[j:a.n])
	a.truncate(a.n - (j - i))
}

// RemoveSwapLast deletes element i by moving the last element into its slot.
func (a *Array[T]) RemoveSwapLast(i int) T {
	a.check(i)
	buf := a.arena().View(a.span)
	v := buf[i]
	buf[i] = buf[a.n-1]
	a.truncate(a.n - 1)
	return v
}

// Pop removes and returns the last element.
func (a *Array[T]) Pop() (T, bool) {
	v, ok := a.Last()
	if ok {
		a.truncate(a.n - 1)
	}
	return v, ok
}

// Truncate drops every element from n on.
func (a *Array[T]) Truncate(n int) {
	if n < 0 || n > a.n {
		panic(fmt.Sprintf("container: truncate to %d out of bounds for length %d", n, a.n))
	}
	a.truncate(n)
}

// Clear empties the array and releases capacity down to its floor.
func (a *Array[T]) Clear() {
	a.truncate(0)
}

// Reserve makes room for at least n elements, doubling the capacity.
func (a *Array[T]) Reserve(n int) {
	c := a.Cap()
	if n <= c {
		return
	}
	if c == 0 {
		c = 1
	}
	for c < n {
		c *= 2
	}
	a.span = a.arena().Realloc(a.span, c)
}

// Free gives the array's memory back to its arena and empties it.
func (a *Array[T]) Free() {
	if a.mem != nil {
		a.span = a.mem.Realloc(a.span, 0)
	}
	a.n = 0
}

func (a *Array[T]) truncate(n int) {
	buf := a.arena().View(a.span)
	clear(buf[n:a.n])
	a.n = n
	a.shrink()
}

// shrink halves the capacity until occupancy is back to at least half, but
// only once it has dropped to a quarter.
func (a *Array[T]) shrink() {
	c := a.Cap()
	if c <= a.minCap || a.n > c/4 {
		return
	}
	for a.n*2 < c && c/2 >= a.minCap && c > 1 {
		c /= 2
	}
	if a.n == 0 && a.minCap == 0 {
		c = 0
	}
	a.span = a.arena().Realloc(a.span, c)
}

func (a *Array[T]) arena() *arena.Arena[T] {
	if a.mem == nil {
		a.mem = arena.New[T](0)
	}
	return a.mem
}

func (a *Array[T]) check(i int) {
	if i < 0 || i >= a.n {
		panic(fmt.Sprintf("container: index %d out of range for length %d", i, a.n))
	}
}
