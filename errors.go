package depot

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrWorldFreed is returned by every operation on a World after Free.
var ErrWorldFreed = eris.New("world has been freed")

type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is locked for iteration; enqueue the change instead"
}

type EntityNotFoundError struct {
	Entity EntityID
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %d is not alive", e.Entity)
}

type ImmutableEntityError struct {
	Entity EntityID
}

func (e ImmutableEntityError) Error() string {
	return fmt.Sprintf("entity %d is immutable", e.Entity)
}

type PermanentEntityError struct {
	Entity EntityID
}

func (e PermanentEntityError) Error() string {
	return fmt.Sprintf("entity %d is permanent and cannot be removed", e.Entity)
}

// ComponentSizeMismatchError reports a component accessed with a payload
// type other than the one its storage was created for.
type ComponentSizeMismatchError struct {
	Component ComponentID
	Stored    uintptr
	Requested uintptr
}

func (e ComponentSizeMismatchError) Error() string {
	return fmt.Sprintf("component %d stores %d byte payloads, accessed as %d bytes", e.Component, e.Stored, e.Requested)
}

// StaleQueryError reports a descriptor iterated after the world changed.
type StaleQueryError struct {
	Built, Current uint64
}

func (e StaleQueryError) Error() string {
	return fmt.Sprintf("query descriptor is stale: built at checksum %x, world is at %x", e.Built, e.Current)
}

type RelationNotFoundError struct {
	Source    EntityID
	Component ComponentID
	Target    RelationTarget
}

func (e RelationNotFoundError) Error() string {
	return fmt.Sprintf("entity %d has no relation %d to %v", e.Source, e.Component, e.Target)
}

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
