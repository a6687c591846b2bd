package depot

import (
	"io"

	"github.com/TheBitDrifter/table"
	"github.com/rs/zerolog"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/flatmap"
)

var _ Storage = &World{}

// World owns entities, their components, relations and resources. A World
// is not safe for concurrent use.
type World struct {
	cfg    Config
	log    zerolog.Logger
	logOut io.Writer

	schema         table.Schema
	resourceSchema table.Schema

	// words backs every presence bitset; Free releases it as a unit.
	words *arena.Arena[uint64]

	entities   entityRegistry
	components componentRegistry
	relations  relationRegistry
	resources  resourceRegistry

	flagsID  ComponentID
	onRemove *flatmap.Map[EntityID, EntityDestroyCallback]
	onMutate *flatmap.Map[EntityID, EntityMutateCallback]

	locked    bool
	lockDepth int
	opQueue   opQueue
	freed     bool
}

func newWorld(opts ...Option) *World {
	w := &World{
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	invalid := w.cfg.Validate()
	if invalid != nil {
		w.cfg = DefaultConfig()
	}
	if w.logOut != nil {
		w.log, _ = NewLogger(w.cfg.Logging, w.logOut)
	}
	if invalid != nil {
		w.log.Warn().Err(invalid).Msg("invalid world config, using defaults")
	}
	capacity := w.cfg.Capacity

	w.schema = table.Factory.NewSchema()
	w.resourceSchema = table.Factory.NewSchema()
	w.words = arena.New[uint64](w.cfg.Arena.BlockBytes)
	w.entities = newEntityRegistry(w.words, capacity.Entities)
	w.components = newComponentRegistry(w.words, capacity.Components, capacity.Entities)
	w.relations = newRelationRegistry()
	w.resources = newResourceRegistry(capacity.Resources)
	w.onRemove = flatmap.New[EntityID, EntityDestroyCallback](0)
	w.onMutate = flatmap.New[EntityID, EntityMutateCallback](0)
	w.opQueue = newOpQueue()
	w.flagsID = w.ComponentID(flagsComponent)

	w.log.Debug().
		Int("entities", capacity.Entities).
		Int("components", capacity.Components).
		Int("resources", capacity.Resources).
		Int("block_bytes", w.cfg.Arena.BlockBytes).
		Msg("world created")
	return w
}

// Config returns the configuration the world was built with.
func (w *World) Config() Config { return w.cfg }

// ComponentID returns c's ID in this world, registering c on first use.
func (w *World) ComponentID(c Component) ComponentID {
	token := c
	if b, ok := c.(interface{ base() Component }); ok {
		token = b.base()
	}
	w.schema.Register(token)
	id := ComponentID(w.schema.RowIndexFor(token))
	st, created := w.components.ensure(id, func() componentStorage {
		if m, ok := c.(storageMaker); ok {
			return m.makeStorage(id, w.words, w.cfg.Capacity.Entities)
		}
		return newTagStorage(id, w.words)
	})
	if created {
		w.logStorage(st)
	}
	return id
}

// Register registers every component up front and returns their IDs.
func (w *World) Register(components ...Component) []ComponentID {
	ids := make([]ComponentID, len(components))
	for i, c := range components {
		ids[i] = w.ComponentID(c)
	}
	return ids
}

func (w *World) logStorage(st componentStorage) {
	info := st.info()
	w.log.Debug().
		Uint64("component", uint64(info.id)).
		Stringer("kind", info.kind).
		Uint64("size", uint64(info.size)).
		Msg("component storage created")
}

// Checksum returns the rolling hash over every component presence.
func (w *World) Checksum() uint64 { return w.components.checksum }

func (w *World) Locked() bool { return w.locked }

// Lock rejects structural changes until the matching Unlock. Cursors hold the
// lock while they iterate; locks nest.
func (w *World) Lock() {
	w.lockDepth++
	w.locked = true
}

// Unlock releases one lock. Releasing the outermost lock applies every
// enqueued operation.
func (w *World) Unlock() error {
	if w.lockDepth > 0 {
		w.lockDepth--
	}
	if w.lockDepth > 0 {
		return nil
	}
	w.locked = false
	return w.processOperationQueue()
}

// structural checks that e may gain or lose components.
func (w *World) structural(e EntityID) error {
	switch {
	case w.freed:
		return ErrWorldFreed
	case w.locked:
		return LockedWorldError{}
	case !w.entities.alive.Has(e):
		return EntityNotFoundError{Entity: e}
	case w.Flags(e).Has(FlagImmutable):
		return ImmutableEntityError{Entity: e}
	}
	return nil
}

// attached records that e gained component id.
func (w *World) attached(e EntityID, id ComponentID) {
	w.components.added(id, e)
	w.mutated(e, id)
}

// detached records that e lost component id.
func (w *World) detached(e EntityID, id ComponentID) {
	w.components.removed(id, e)
	w.mutated(e, id)
}

func (w *World) mutated(e EntityID, id ComponentID) {
	if id == w.flagsID {
		return
	}
	if cb, ok := w.onMutate.Get(e); ok {
		cb(w, e, id)
	}
}

// AddComponents gives e a zero value of every component it lacks.
func (w *World) AddComponents(e EntityID, components ...Component) error {
	if err := w.structural(e); err != nil {
		return err
	}
	for _, c := range components {
		id := w.ComponentID(c)
		st, _ := w.components.storage(id)
		if st.addDefault(e) {
			w.attached(e, id)
		}
	}
	return nil
}

// RemoveComponent removes c from e. Removing an absent component is not an
// error.
func (w *World) RemoveComponent(e EntityID, c Component) error {
	return w.RemoveComponentID(e, w.ComponentID(c))
}

// RemoveComponentID removes the component, tag or relation pair id from e.
// Relation pairs are routed through the relation registry.
func (w *World) RemoveComponentID(e EntityID, id ComponentID) error {
	if err := w.structural(e); err != nil {
		return err
	}
	if id.IsPair() {
		return w.removePair(e, id)
	}
	st, ok := w.components.storage(id)
	if !ok {
		return nil
	}
	if st.remove(e) {
		w.detached(e, id)
	}
	return nil
}

// HasComponent reports whether e holds c.
func (w *World) HasComponent(e EntityID, c Component) bool {
	return w.Has(e, w.ComponentID(c))
}

// Has reports whether e holds the component, tag or relation pair id.
func (w *World) Has(e EntityID, id ComponentID) bool {
	st, ok := w.components.storage(id)
	return ok && st.has(e)
}

// Components returns the IDs of everything e holds, flags included.
func (w *World) Components(e EntityID) []ComponentID {
	if !w.Alive(e) {
		return nil
	}
	return w.components.holding(e)
}

// Attach stores arbitrary metadata against a component type, such as a
// buffer handle kept by a renderer.
func (w *World) Attach(id ComponentID, v any) {
	w.components.attachments.Set(id, v)
}

// Attachment returns the metadata attached to id.
func (w *World) Attachment(id ComponentID) (any, bool) {
	return w.components.attachments.Value(id)
}

// Detach drops id's metadata.
func (w *World) Detach(id ComponentID) {
	w.components.attachments.Remove(id)
}

// Stats is a snapshot of a world's size.
type Stats struct {
	Entities   int
	Components int
	Relations  int
	Resources  int
	Checksum   uint64
	Arena      ArenaStats
}

// ArenaStats describes the arena backing presence bitsets.
type ArenaStats struct {
	Blocks   int
	Capacity int
	Used     int
	Bytes    uintptr
}

func (w *World) Stats() Stats {
	a := w.words.Stats()
	return Stats{
		Entities:   w.entities.alive.Len(),
		Components: w.components.storages.Len(),
		Relations:  w.relations.holders.Len(),
		Resources:  w.resources.values.Len(),
		Checksum:   w.components.checksum,
		Arena: ArenaStats{
			Blocks:   a.Blocks,
			Capacity: a.Capacity,
			Used:     a.Used,
			Bytes:    a.Bytes,
		},
	}
}

// Free releases everything the world owns. Pointers obtained from the world
// are invalid afterwards, and every further operation fails.
func (w *World) Free() {
	if w.freed {
		return
	}
	stats := w.Stats()
	w.components.clear()
	w.entities.clear()
	w.relations.clear()
	w.resources.clear()
	w.onRemove.Clear()
	w.onMutate.Clear()
	w.words.Free()
	w.opQueue.clear()
	w.freed = true
	w.locked = false
	w.lockDepth = 0

	w.log.Debug().
		Int("entities", stats.Entities).
		Int("components", stats.Components).
		Int("arena_blocks", stats.Arena.Blocks).
		Uint64("arena_bytes", uint64(stats.Arena.Bytes)).
		Msg("world freed")
}
