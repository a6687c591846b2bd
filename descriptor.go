package depot

import (
	"iter"
	"slices"

	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/bitset"
)

// ErrDescriptorFreed is returned when iterating a freed descriptor.
var ErrDescriptorFreed = eris.New("query descriptor has been freed")

// Descriptor is a Query compiled against one World: a single bitset of
// matching entities plus the components to resolve for each. It is valid only
// while the world's checksum equals the one captured at build time.
//
// A Descriptor owns an iteration arena; Free releases it.
type Descriptor struct {
	world    *World
	mem      *arena.Arena[uint64]
	matched  *bitset.Bitset
	fetch    []ComponentID
	storages []componentStorage
	checksum uint64
	from, to uint64
	freed    bool
}

// Build compiles q against w.
func (q *Query) Build(w *World) (*Descriptor, error) {
	if w.freed {
		return nil, ErrWorldFreed
	}
	mem := arena.New[uint64](w.cfg.Arena.BlockBytes)
	empty := bitset.New(mem)

	// A nil accumulator stands for every live entity.
	var acc *bitset.Bitset
	var fetch []ComponentID
	for _, g := range q.groups {
		ids := w.resolve(g.items)
		if len(ids) == 0 {
			continue
		}
		if g.Op == OpAll {
			fetch = append(fetch, ids...)
		}
		if acc != nil && acc.Empty() {
			switch g.Op {
			case OpAll, OpAndAny, OpNone:
				continue
			}
		}
		sets := w.presenceSets(ids, empty)
		switch g.Op {
		case OpAll:
			if acc == nil {
				acc = bitset.Intersection(mem, sets...)
			} else {
				acc.Intersect(sets...)
			}
		case OpAny:
			if acc == nil {
				acc = bitset.New(mem)
			}
			acc.Join(sets...)
		case OpNone:
			if acc == nil {
				acc = w.entities.bits.Clone(mem)
			}
			acc.Subtract(sets...)
		case OpOrAll:
			if acc == nil {
				acc = bitset.New(mem)
			}
			acc.Join(bitset.Intersection(mem, sets...))
		case OpAndAny:
			union := bitset.Union(mem, sets...)
			if acc == nil {
				acc = union
			} else {
				acc.Intersect(union)
			}
		default:
			mem.Free()
			return nil, eris.Errorf("unknown query op %v", g.Op)
		}
	}
	if acc == nil {
		acc = w.entities.bits.Clone(mem)
	}

	fetch = append(fetch, w.resolve(q.fetch)...)
	slices.Sort(fetch)
	fetch = slices.Compact(fetch)
	d := &Descriptor{
		world:    w,
		mem:      mem,
		matched:  acc,
		fetch:    fetch,
		storages: make([]componentStorage, len(fetch)),
		checksum: w.components.checksum,
		from:     q.from,
		to:       q.to,
	}
	for i, id := range fetch {
		d.storages[i], _ = w.components.storage(id)
	}
	return d, nil
}

// Valid reports whether the descriptor may still be iterated.
func (d *Descriptor) Valid() bool { return d.check() == nil }

func (d *Descriptor) check() error {
	switch {
	case d.freed:
		return ErrDescriptorFreed
	case d.world.freed:
		return ErrWorldFreed
	case d.checksum != d.world.components.checksum:
		d.world.log.Debug().
			Uint64("built", d.checksum).
			Uint64("current", d.world.components.checksum).
			Msg("stale query descriptor rejected")
		return StaleQueryError{Built: d.checksum, Current: d.world.components.checksum}
	}
	return nil
}

// Len returns the number of matching entities within the query's range.
func (d *Descriptor) Len() (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	if d.from == 0 && d.to >= bitset.Limit {
		return d.matched.Len(), nil
	}
	n := 0
	for range d.matched.Range(d.from, d.to) {
		n++
	}
	return n, nil
}

// Fetched returns the IDs the descriptor resolves for every match.
func (d *Descriptor) Fetched() []ComponentID { return d.fetch }

// Cursor returns a cursor over the descriptor. The descriptor stays owned by
// the caller.
func (d *Descriptor) Cursor() *Cursor {
	return &Cursor{world: d.world, desc: d}
}

// Matches yields the matching entities without locking the world. Every step
// rechecks the descriptor; once it is stale or freed the error is yielded
// with a zero entity and iteration stops.
func (d *Descriptor) Matches() iter.Seq2[EntityID, error] {
	return func(yield func(EntityID, error) bool) {
		if err := d.check(); err != nil {
			yield(0, err)
			return
		}
		for i := range d.matched.Range(d.from, d.to) {
			if err := d.check(); err != nil {
				yield(0, err)
				return
			}
			if !yield(EntityID(i), nil) {
				return
			}
		}
	}
}

// matches is Matches without the checks; callers check first.
func (d *Descriptor) matches() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for i := range d.matched.Range(d.from, d.to) {
			if !yield(EntityID(i)) {
				return
			}
		}
	}
}

// Collect returns every matching entity in ascending order.
func (d *Descriptor) Collect() ([]EntityID, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return iter_util.Collect(d.matches()), nil
}

// Free releases the iteration arena.
func (d *Descriptor) Free() {
	if d.freed {
		return
	}
	d.mem.Free()
	d.matched = nil
	d.storages = nil
	d.freed = true
}
