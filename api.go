package depot

import (
	"iter"

	"github.com/TheBitDrifter/table"
)

// EntityID identifies an entity within one World. IDs are reused after the
// entity is removed.
type EntityID uint32

// ComponentID identifies a component, tag or relation pair within one World.
// Plain component and tag IDs fit in 32 bits; relation pairs set the top bit.
type ComponentID uint64

// Component is a type token for a stored attribute. Tokens are minted by
// FactoryNewComponent and FactoryNewTag.
type Component interface {
	table.ElementType
}

// EntityDestroyCallback runs just before an entity is removed.
type EntityDestroyCallback func(w *World, e EntityID)

// EntityMutateCallback runs after a component is added to or removed from an
// entity.
type EntityMutateCallback func(w *World, e EntityID, c ComponentID)

// Storage is the structural surface of a World shared by direct and deferred
// callers.
type Storage interface {
	NewEntity() (EntityID, error)
	NewEntities(n int, components ...Component) ([]EntityID, error)
	EnqueueNewEntities(n int, components ...Component) error
	RemoveEntity(e EntityID) error
	EnqueueRemoveEntities(entities ...EntityID) error
	Alive(e EntityID) bool
	ComponentID(c Component) ComponentID
	Locked() bool
	Lock()
	Unlock() error
}

type iCursor interface {
	Entities() iter.Seq2[EntityID, *Cursor]
	Next() bool
	Err() error
}
