package depot

import (
	"github.com/TheBitDrifter/depot/internal/arena"
)

var (
	_ Component    = AccessibleComponent[int]{}
	_ Component    = Tag{}
	_ storageMaker = AccessibleComponent[int]{}
	_ storageMaker = Tag{}
)

// AccessibleComponent extends a base Component with typed access to its
// payload in any World.
type AccessibleComponent[T any] struct {
	Component
}

func (c AccessibleComponent[T]) makeStorage(id ComponentID, words *arena.Arena[uint64], capacity int) componentStorage {
	return newSparseStorage[T](id, words, capacity)
}

func (c AccessibleComponent[T]) base() Component { return c.Component }

// IDIn returns the component's ID in w.
func (c AccessibleComponent[T]) IDIn(w *World) ComponentID {
	return w.ComponentID(c)
}

// Get returns e's value, or nil when e does not hold the component. The
// pointer is invalidated by the next structural change to this component.
func (c AccessibleComponent[T]) Get(w *World, e EntityID) *T {
	st, err := typedStorage[T](w, c.IDIn(w))
	if err != nil {
		return nil
	}
	return st.get(e)
}

// GetFromEntity is Get, kept for callers holding only an entity.
func (c AccessibleComponent[T]) GetFromEntity(w *World, e EntityID) *T {
	return c.Get(w, e)
}

// Has reports whether e holds the component.
func (c AccessibleComponent[T]) Has(w *World, e EntityID) bool {
	return w.Has(e, c.IDIn(w))
}

// Set stores v on e. While the world is locked only existing values may be
// overwritten.
func (c AccessibleComponent[T]) Set(w *World, e EntityID, v T) error {
	id := c.IDIn(w)
	st, err := typedStorage[T](w, id)
	if err != nil {
		return err
	}
	if w.locked && st.has(e) && !w.Flags(e).Has(FlagImmutable) {
		*st.get(e) = v
		return nil
	}
	if err := w.structural(e); err != nil {
		return err
	}
	if st.set(e, v) {
		w.attached(e, id)
	}
	return nil
}

// Remove removes the component from e.
func (c AccessibleComponent[T]) Remove(w *World, e EntityID) error {
	return w.RemoveComponentID(e, c.IDIn(w))
}

// EnqueueSet is Set, deferred until the world unlocks when it is locked.
func (c AccessibleComponent[T]) EnqueueSet(w *World, e EntityID, v T) error {
	if !w.locked {
		return c.Set(w, e, v)
	}
	w.opQueue.EnqueueComponentOp(opSetComponent, e, c.IDIn(w), func(w *World) error {
		return c.Set(w, e, v)
	})
	return nil
}

// EnqueueRemove is Remove, deferred until the world unlocks when it is
// locked.
func (c AccessibleComponent[T]) EnqueueRemove(w *World, e EntityID) error {
	if !w.locked {
		return c.Remove(w, e)
	}
	id := c.IDIn(w)
	w.opQueue.EnqueueComponentOp(opRemoveComponent, e, id, func(w *World) error {
		return w.RemoveComponentID(e, id)
	})
	return nil
}

// GetFromCursor returns the value for the cursor's current entity, or nil.
// Components fetched by the cursor's query are resolved once per step.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	id := c.IDIn(cursor.world)
	if p, ok := cursor.resolved(id); ok {
		if p == nil {
			return nil
		}
		return p.(*T)
	}
	return c.Get(cursor.world, cursor.current)
}

// GetFromCursorSafe reports whether the cursor's current entity holds the
// component along with its value.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	p := c.GetFromCursor(cursor)
	return p != nil, p
}

// CheckCursor reports whether the cursor's current entity holds the
// component.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Has(cursor.world, cursor.current)
}

// SetRange stores values on the contiguous entities first, first+1, ... All
// of them must be alive; nothing is written otherwise.
func (c AccessibleComponent[T]) SetRange(w *World, first EntityID, values []T) error {
	id := c.IDIn(w)
	st, err := typedStorage[T](w, id)
	if err != nil {
		return err
	}
	for i := range values {
		if err := w.structural(first + EntityID(i)); err != nil {
			return err
		}
	}
	for i, v := range values {
		e := first + EntityID(i)
		if st.set(e, v) {
			w.attached(e, id)
		}
	}
	return nil
}

// GetRange returns the values of the n contiguous entities starting at
// first, with nil for entities that do not hold the component.
func (c AccessibleComponent[T]) GetRange(w *World, first EntityID, n int) []*T {
	out := make([]*T, n)
	st, err := typedStorage[T](w, c.IDIn(w))
	if err != nil {
		return out
	}
	for i := range out {
		out[i] = st.get(first + EntityID(i))
	}
	return out
}

// Tag is a zero-size component: presence is its only content.
type Tag struct {
	Component
}

func (t Tag) makeStorage(id ComponentID, words *arena.Arena[uint64], _ int) componentStorage {
	return newTagStorage(id, words)
}

func (t Tag) base() Component { return t.Component }

// IDIn returns the tag's ID in w.
func (t Tag) IDIn(w *World) ComponentID { return w.ComponentID(t) }

// Add tags e.
func (t Tag) Add(w *World, e EntityID) error {
	return w.AddComponents(e, t)
}

func (t Tag) Remove(w *World, e EntityID) error {
	return w.RemoveComponentID(e, t.IDIn(w))
}

func (t Tag) Has(w *World, e EntityID) bool {
	return w.Has(e, t.IDIn(w))
}

// EnqueueAdd is Add, deferred until the world unlocks when it is locked.
func (t Tag) EnqueueAdd(w *World, e EntityID) error {
	if !w.locked {
		return t.Add(w, e)
	}
	w.opQueue.EnqueueComponentOp(opSetComponent, e, t.IDIn(w), func(w *World) error {
		return t.Add(w, e)
	})
	return nil
}

// EnqueueRemove is Remove, deferred until the world unlocks when it is
// locked.
func (t Tag) EnqueueRemove(w *World, e EntityID) error {
	if !w.locked {
		return t.Remove(w, e)
	}
	id := t.IDIn(w)
	w.opQueue.EnqueueComponentOp(opRemoveComponent, e, id, func(w *World) error {
		return w.RemoveComponentID(e, id)
	})
	return nil
}
