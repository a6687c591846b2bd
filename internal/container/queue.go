package container

import "github.com/TheBitDrifter/depot/internal/arena"

// Queue is a double-ended queue over an Array. PopFirst advances a read
// cursor instead of shifting, and compacts once the consumed prefix grows
// past half of the live elements.
type Queue[T any] struct {
	items Array[T]
	head  int
}

// NewQueue returns an empty queue backed by mem.
func NewQueue[T any](mem *arena.Arena[T], capacity int) *Queue[T] {
	return &Queue[T]{items: MakeArray(mem, capacity)}
}

func (q *Queue[T]) Len() int { return q.items.Len() - q.head }

// PushLast appends v at the back.
func (q *Queue[T]) PushLast(v T) {
	q.items.Append(v)
}

// PushFirst puts v at the front, reusing consumed slots when there are any.
func (q *Queue[T]) PushFirst(v T) {
	if q.head > 0 {
		q.head--
		q.items.Set(q.head, v)
		return
	}
	q.items.Insert(0, v)
}

// PopFirst removes and returns the front element.
func (q *Queue[T]) PopFirst() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	v := q.items.Get(q.head)
	q.items.Set(q.head, zero)
	q.head++
	if q.head > q.Len()/2 {
		q.compact()
	}
	return v, true
}

// PopLast removes and returns the back element.
func (q *Queue[T]) PopLast() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	v, _ := q.items.Pop()
	if q.Len() == 0 {
		q.compact()
	}
	return v, true
}

// PeekFirst returns the front element without removing it.
func (q *Queue[T]) PeekFirst() (T, bool) {
	if q.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Get(q.head), true
}

// At returns the i-th live element counting from the front.
func (q *Queue[T]) At(i int) T {
	return q.items.Get(q.head + i)
}

// Clear drops every element.
func (q *Queue[T]) Clear() {
	q.items.Clear()
	q.head = 0
}

func (q *Queue[T]) compact() {
	q.items.RemoveRange(0, q.head)
	q.head = 0
}
