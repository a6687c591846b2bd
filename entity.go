package depot

import (
	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/bitset"
	"github.com/TheBitDrifter/depot/internal/container"
	"github.com/TheBitDrifter/depot/internal/sparse"
)

// entityRegistry tracks live IDs. Removed IDs wait in a FIFO queue and are
// handed out again oldest first.
type entityRegistry struct {
	alive *sparse.IntSet[EntityID]
	bits  *bitset.Bitset
	free  *container.Queue[EntityID]
	next  EntityID
}

func newEntityRegistry(words *arena.Arena[uint64], capacity int) entityRegistry {
	return entityRegistry{
		alive: sparse.NewIntSet[EntityID](capacity),
		bits:  bitset.New(words),
		free:  container.NewQueue[EntityID](nil, 0),
	}
}

func (r *entityRegistry) create() EntityID {
	e, ok := r.free.PopFirst()
	if !ok {
		e = r.next
		r.next++
	}
	r.alive.AddValue(e, e)
	r.bits.Set(uint32(e))
	return e
}

func (r *entityRegistry) release(e EntityID) {
	r.alive.Remove(e)
	r.bits.Unset(uint32(e))
	r.free.PushLast(e)
}

func (r *entityRegistry) clear() {
	r.alive.Clear()
	r.bits.Clear()
	r.free.Clear()
	r.next = 0
}

// Alive reports whether e exists.
func (w *World) Alive(e EntityID) bool {
	return !w.freed && w.entities.alive.Has(e)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int { return w.entities.alive.Len() }

// Entities returns the live IDs in creation order, modulo removals. The slice
// aliases the registry and is invalidated by the next entity change.
func (w *World) Entities() []EntityID { return w.entities.alive.Keys() }

// NewEntity creates an entity with no components.
func (w *World) NewEntity() (EntityID, error) {
	switch {
	case w.freed:
		return 0, ErrWorldFreed
	case w.locked:
		return 0, LockedWorldError{}
	}
	return w.entities.create(), nil
}

// NewEntities creates n entities holding a zero value of each component.
func (w *World) NewEntities(n int, components ...Component) ([]EntityID, error) {
	switch {
	case w.freed:
		return nil, ErrWorldFreed
	case w.locked:
		return nil, LockedWorldError{}
	}
	ids := make([]ComponentID, len(components))
	storages := make([]componentStorage, len(components))
	for i, c := range components {
		ids[i] = w.ComponentID(c)
		storages[i], _ = w.components.storage(ids[i])
	}
	entities := make([]EntityID, n)
	for i := range entities {
		e := w.entities.create()
		for j, st := range storages {
			if st.addDefault(e) {
				w.components.added(ids[j], e)
			}
		}
		entities[i] = e
	}
	return entities, nil
}

// RemoveEntity runs e's destroy callback, clears every component e holds and
// queues its ID for reuse. Permanent and immutable entities are refused.
func (w *World) RemoveEntity(e EntityID) error {
	switch {
	case w.freed:
		return ErrWorldFreed
	case w.locked:
		return LockedWorldError{}
	case !w.entities.alive.Has(e):
		return EntityNotFoundError{Entity: e}
	}
	flags := w.Flags(e)
	if flags.Has(FlagPermanent) {
		return PermanentEntityError{Entity: e}
	}
	if flags.Has(FlagImmutable) {
		return ImmutableEntityError{Entity: e}
	}
	w.destroy(e)
	return nil
}

// destroy removes e without checking its flags.
func (w *World) destroy(e EntityID) {
	if cb, ok := w.onRemove.Get(e); ok {
		cb(w, e)
	}
	for id, st := range w.components.all() {
		if st.remove(e) {
			w.components.removed(id, e)
		}
	}
	w.onRemove.Remove(e)
	w.onMutate.Remove(e)
	w.entities.release(e)
}

// Instantiate creates an entity holding a copy of every component of
// prefab, except its flags and relation pairs.
func (w *World) Instantiate(prefab EntityID) (EntityID, error) {
	switch {
	case w.freed:
		return 0, ErrWorldFreed
	case w.locked:
		return 0, LockedWorldError{}
	case !w.entities.alive.Has(prefab):
		return 0, EntityNotFoundError{Entity: prefab}
	}
	e := w.entities.create()
	for id, st := range w.components.all() {
		if id == w.flagsID {
			continue
		}
		if st.copyTo(prefab, e) {
			w.components.added(id, e)
		}
	}
	return e, nil
}

// OnRemove registers a callback run when e is removed.
func (w *World) OnRemove(e EntityID, cb EntityDestroyCallback) error {
	if !w.Alive(e) {
		return EntityNotFoundError{Entity: e}
	}
	if err := w.setFlag(e, FlagOnRemove, cb != nil); err != nil {
		return err
	}
	if cb == nil {
		w.onRemove.Remove(e)
	} else {
		w.onRemove.Set(e, cb)
	}
	return nil
}

// OnMutate registers a callback run whenever e gains or loses a component.
func (w *World) OnMutate(e EntityID, cb EntityMutateCallback) error {
	if !w.Alive(e) {
		return EntityNotFoundError{Entity: e}
	}
	if err := w.setFlag(e, FlagOnMutate, cb != nil); err != nil {
		return err
	}
	if cb == nil {
		w.onMutate.Remove(e)
	} else {
		w.onMutate.Set(e, cb)
	}
	return nil
}
