package depot

import (
	"fmt"

	"github.com/TheBitDrifter/depot/internal/bitset"
)

// Op combines one search group into the running match set.
type Op int

const (
	// OpAll intersects the match with every component of the group.
	OpAll Op = iota
	// OpAny unions the match with every component of the group.
	OpAny
	// OpNone removes entities holding any component of the group.
	OpNone
	// OpOrAll unions the match with entities holding every component of the
	// group.
	OpOrAll
	// OpAndAny intersects the match with entities holding any component of
	// the group.
	OpAndAny
)

func (op Op) String() string {
	switch op {
	case OpAll:
		return "all"
	case OpAny:
		return "any"
	case OpNone:
		return "none"
	case OpOrAll:
		return "or_all"
	case OpAndAny:
		return "and_any"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// SearchGroup is one step of a query.
type SearchGroup struct {
	Op    Op
	items []any
}

// Query is an ordered list of search groups, applied left to right, plus
// the components resolved for each match. A Query holds component tokens
// rather than IDs, so one Query serves any number of worlds.
type Query struct {
	groups   []SearchGroup
	fetch    []any
	from, to uint64
}

func newQuery() *Query {
	return &Query{to: bitset.Limit}
}

func (q *Query) add(op Op, items []any) *Query {
	q.groups = append(q.groups, SearchGroup{Op: op, items: items})
	return q
}

// And keeps entities holding every item. Items are Components, slices of
// Components, or ComponentIDs such as relation pairs.
func (q *Query) And(items ...any) *Query { return q.add(OpAll, items) }

// Or adds entities holding any item.
func (q *Query) Or(items ...any) *Query { return q.add(OpAny, items) }

// Not drops entities holding any item.
func (q *Query) Not(items ...any) *Query { return q.add(OpNone, items) }

// OrAll adds entities holding every item.
func (q *Query) OrAll(items ...any) *Query { return q.add(OpOrAll, items) }

// AndAny keeps entities holding at least one item.
func (q *Query) AndAny(items ...any) *Query { return q.add(OpAndAny, items) }

// Fetch names the components a cursor resolves for every match. Components
// from And groups are fetched without being named.
func (q *Query) Fetch(items ...any) *Query {
	q.fetch = append(q.fetch, items...)
	return q
}

// Range bounds iteration to entity IDs in [from, to).
func (q *Query) Range(from, to EntityID) *Query {
	q.from, q.to = uint64(from), uint64(to)
	return q
}

// Groups returns the query's search groups.
func (q *Query) Groups() []SearchGroup { return q.groups }

// resolve maps query items to IDs in w.
func (w *World) resolve(items []any) []ComponentID {
	ids := make([]ComponentID, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case ComponentID:
			ids = append(ids, v)
		case Component:
			ids = append(ids, w.ComponentID(v))
		case []Component:
			for _, c := range v {
				ids = append(ids, w.ComponentID(c))
			}
		case []ComponentID:
			ids = append(ids, v...)
		default:
			panic(fmt.Sprintf("depot: query item of type %T", item))
		}
	}
	return ids
}

// presenceSets gathers each id's presence bitset. Components never stored
// contribute an empty set.
func (w *World) presenceSets(ids []ComponentID, empty *bitset.Bitset) []*bitset.Bitset {
	sets := make([]*bitset.Bitset, len(ids))
	for i, id := range ids {
		if st, ok := w.components.storage(id); ok {
			sets[i] = st.presence()
		} else {
			sets[i] = empty
		}
	}
	return sets
}
