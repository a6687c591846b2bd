package depot

import (
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/depot/internal/flatmap"
)

type operation struct {
	typ      operationType
	amount   int
	comps    []Component
	entities []EntityID
	entity   EntityID
	id       ComponentID
	apply    func(w *World) error
}

type operationType int

const (
	opCreate operationType = iota
	opDestroy
	opSetComponent
	opRemoveComponent
	opCancelled
)

type opKey struct {
	entity EntityID
	id     ComponentID
}

// opQueue holds structural changes requested while the world is locked.
// Creates apply first, then component changes, then destroys.
type opQueue struct {
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy *flatmap.Map[EntityID, struct{}]
	pendingMods    map[opKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: flatmap.New[EntityID, struct{}](0),
		pendingMods:    make(map[opKey]int),
	}
}

func (q *opQueue) empty() bool {
	return len(q.createOps) == 0 && len(q.componentOps) == 0 && len(q.destroyOps) == 0
}

func (q *opQueue) clear() {
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	q.pendingDestroy.Clear()
	clear(q.pendingMods)
}

func (q *opQueue) enqueueCreate(n int, comps []Component) {
	q.createOps = append(q.createOps, operation{typ: opCreate, amount: n, comps: comps})
}

// EnqueueDestroy queues entities for removal. Pending component changes on
// them are cancelled.
func (q *opQueue) EnqueueDestroy(entities []EntityID) {
	var fresh []EntityID
	for _, e := range entities {
		if !q.pendingDestroy.Set(e, struct{}{}) {
			continue
		}
		fresh = append(fresh, e)
		for key, idx := range q.pendingMods {
			if key.entity == e {
				q.componentOps[idx].typ = opCancelled
				delete(q.pendingMods, key)
			}
		}
	}
	if len(fresh) > 0 {
		q.destroyOps = append(q.destroyOps, operation{typ: opDestroy, entities: fresh})
	}
}

// EnqueueComponentOp queues a change of component id on e. A later change to
// the same pair replaces an earlier one.
func (q *opQueue) EnqueueComponentOp(typ operationType, e EntityID, id ComponentID, apply func(w *World) error) {
	if q.pendingDestroy.Has(e) {
		return
	}
	key := opKey{entity: e, id: id}
	if idx, ok := q.pendingMods[key]; ok {
		op := &q.componentOps[idx]
		op.typ = typ
		op.apply = apply
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, operation{
		typ:    typ,
		entity: e,
		id:     id,
		apply:  apply,
	})
}

func (w *World) processOperationQueue() error {
	q := &w.opQueue
	if q.empty() {
		return nil
	}
	defer q.clear()

	destroys := 0
	for _, op := range q.destroyOps {
		destroys += len(op.entities)
	}
	w.log.Debug().
		Int("creates", len(q.createOps)).
		Int("component_ops", len(q.componentOps)).
		Int("destroys", destroys).
		Msg("deferred queue flush")

	for _, op := range q.createOps {
		if _, err := w.NewEntities(op.amount, op.comps...); err != nil {
			return eris.Wrap(err, "failed to process queued entity creation")
		}
	}

	for _, op := range q.componentOps {
		if op.typ == opCancelled {
			continue
		}
		// Entities removed before the queue drained are skipped.
		if !w.Alive(op.entity) {
			continue
		}
		if err := op.apply(w); err != nil {
			return eris.Wrapf(err, "failed to apply queued %s of component %d", op.typ, op.id)
		}
	}

	for _, op := range q.destroyOps {
		for _, e := range op.entities {
			if !w.Alive(e) {
				continue
			}
			if err := w.RemoveEntity(e); err != nil {
				return eris.Wrapf(err, "failed to remove queued entity %d", e)
			}
		}
	}
	return nil
}

func (t operationType) String() string {
	switch t {
	case opCreate:
		return "create"
	case opDestroy:
		return "destroy"
	case opSetComponent:
		return "set"
	case opRemoveComponent:
		return "remove"
	}
	return "cancelled"
}

// EnqueueNewEntities creates n entities now, or when the world unlocks.
func (w *World) EnqueueNewEntities(n int, components ...Component) error {
	if w.freed {
		return ErrWorldFreed
	}
	if !w.locked {
		_, err := w.NewEntities(n, components...)
		return err
	}
	w.opQueue.enqueueCreate(n, components)
	return nil
}

// EnqueueRemoveEntities removes entities now, or when the world unlocks.
func (w *World) EnqueueRemoveEntities(entities ...EntityID) error {
	if w.freed {
		return ErrWorldFreed
	}
	if !w.locked {
		for _, e := range entities {
			if err := w.RemoveEntity(e); err != nil {
				return err
			}
		}
		return nil
	}
	w.opQueue.EnqueueDestroy(entities)
	return nil
}
