package depot

import (
	"iter"
)

var _ iCursor = &Cursor{}

// Cursor walks the entities matched by a query, holding the world's lock
// while it iterates. Exhausting or resetting the cursor releases the lock and
// applies operations enqueued meanwhile.
type Cursor struct {
	query *Query
	world *World

	desc *Descriptor
	// owned descriptors are rebuilt on every pass and freed on Reset.
	owned bool

	current     EntityID
	pos         uint64
	initialized bool
	values      []any
	err         error
}

func newCursor(query *Query, w *World) *Cursor {
	return &Cursor{
		query: query,
		world: w,
		owned: true,
	}
}

// Next advances to the next match.
func (c *Cursor) Next() bool {
	if !c.initialized && !c.initialize() {
		return false
	}
	if err := c.desc.check(); err != nil {
		c.err = err
		c.Reset()
		return false
	}
	i, ok := c.desc.matched.NextSet(c.pos)
	if !ok || uint64(i) >= c.desc.to {
		c.Reset()
		return false
	}
	c.current = EntityID(i)
	c.pos = uint64(i) + 1
	c.resolve()
	return true
}

func (c *Cursor) initialize() bool {
	c.err = nil
	if c.owned {
		d, err := c.query.Build(c.world)
		if err != nil {
			c.err = err
			return false
		}
		c.desc = d
	}
	if err := c.desc.check(); err != nil {
		c.err = err
		c.release()
		return false
	}
	c.pos = c.desc.from
	c.values = make([]any, len(c.desc.fetch))
	c.world.Lock()
	c.initialized = true
	return true
}

// resolve loads a pointer to every fetched component of the current entity.
func (c *Cursor) resolve() {
	for i, st := range c.desc.storages {
		if st == nil {
			c.values[i] = nil
			continue
		}
		c.values[i] = st.ptr(c.current)
	}
}

// resolved returns the pointer resolved for id at the current entity, and
// whether id is fetched by this cursor at all.
func (c *Cursor) resolved(id ComponentID) (any, bool) {
	if !c.initialized {
		return nil, false
	}
	for i, f := range c.desc.fetch {
		if f == id {
			return c.values[i], true
		}
	}
	return nil, false
}

// Get returns the resolved pointer for a fetched id at the current entity,
// or nil.
func (c *Cursor) Get(id ComponentID) any {
	p, _ := c.resolved(id)
	return p
}

// Entities yields every match with the cursor positioned on it.
func (c *Cursor) Entities() iter.Seq2[EntityID, *Cursor] {
	return func(yield func(EntityID, *Cursor) bool) {
		for c.Next() {
			if !yield(c.current, c) {
				c.Reset()
				return
			}
		}
	}
}

// Entity returns the current entity.
func (c *Cursor) Entity() EntityID { return c.current }

// Err returns the error that ended the last pass, if any.
func (c *Cursor) Err() error { return c.err }

// Reset ends the current pass, releasing the world's lock. An owned
// descriptor is rebuilt on the next call to Next.
func (c *Cursor) Reset() {
	wasIterating := c.initialized
	c.pos = 0
	c.current = 0
	c.values = nil
	c.initialized = false
	c.release()
	if wasIterating {
		if err := c.world.Unlock(); err != nil && c.err == nil {
			c.err = err
		}
	}
}

func (c *Cursor) release() {
	if c.owned && c.desc != nil {
		c.desc.Free()
		c.desc = nil
	}
}

// TotalMatched returns the number of entities the cursor visits in a pass.
func (c *Cursor) TotalMatched() int {
	d := c.desc
	if d == nil {
		built, err := c.query.Build(c.world)
		if err != nil {
			c.err = err
			return 0
		}
		defer built.Free()
		d = built
	}
	n, err := d.Len()
	if err != nil {
		c.err = err
	}
	return n
}
