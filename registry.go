package depot

import (
	"encoding/binary"
	"iter"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/sparse"
)

// storageMaker is implemented by component tokens that know their payload
// type. Tokens without one are stored as tags.
type storageMaker interface {
	makeStorage(id ComponentID, words *arena.Arena[uint64], capacity int) componentStorage
}

// componentRegistry maps component IDs to storages and keeps the checksum
// that query descriptors validate against.
type componentRegistry struct {
	words       *arena.Arena[uint64]
	storages    *sparse.PagedSet[ComponentID, componentStorage]
	attachments *sparse.PagedSet[ComponentID, any]
	checksum    uint64
	capacity    int
}

func newComponentRegistry(words *arena.Arena[uint64], components, entities int) componentRegistry {
	return componentRegistry{
		words:       words,
		storages:    sparse.NewPagedSet[ComponentID, componentStorage](components),
		attachments: sparse.NewPagedSet[ComponentID, any](0),
		capacity:    entities,
	}
}

func (r *componentRegistry) storage(id ComponentID) (componentStorage, bool) {
	return r.storages.Value(id)
}

// ensure returns the storage for id, creating it with build when absent.
func (r *componentRegistry) ensure(id ComponentID, build func() componentStorage) (componentStorage, bool) {
	if st, ok := r.storages.Value(id); ok {
		return st, false
	}
	st := build()
	r.storages.Set(id, st)
	return st, true
}

// presenceHash hashes one (component, entity) presence.
func presenceHash(id ComponentID, e EntityID) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(id))
	binary.LittleEndian.PutUint32(buf[8:], uint32(e))
	return xxhash.Sum64(buf[:])
}

// added and removed keep the checksum in step with presence. Adding then
// removing the same pair restores the previous value.
func (r *componentRegistry) added(id ComponentID, e EntityID) {
	r.checksum += presenceHash(id, e)
}

func (r *componentRegistry) removed(id ComponentID, e EntityID) {
	r.checksum -= presenceHash(id, e)
}

// all yields every storage in registration order.
func (r *componentRegistry) all() iter.Seq2[ComponentID, componentStorage] {
	return func(yield func(ComponentID, componentStorage) bool) {
		for id, st := range r.storages.All() {
			if !yield(id, *st) {
				return
			}
		}
	}
}

// holding returns the IDs of every storage in which e is present.
func (r *componentRegistry) holding(e EntityID) []ComponentID {
	var ids []ComponentID
	for id, st := range r.all() {
		if st.has(e) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *componentRegistry) clear() {
	r.storages.Clear()
	r.attachments.Clear()
	r.checksum = 0
}

// typedStorage returns id's storage as a payload storage of T, creating it if
// the component has never been stored.
func typedStorage[T any](w *World, id ComponentID) (*sparseStorage[T], error) {
	if w.freed {
		return nil, ErrWorldFreed
	}
	st, created := w.components.ensure(id, func() componentStorage {
		return newSparseStorage[T](id, w.components.words, w.components.capacity)
	})
	if created {
		w.logStorage(st)
	}
	s, ok := st.(*sparseStorage[T])
	if !ok {
		var zero T
		return nil, ComponentSizeMismatchError{
			Component: id,
			Stored:    st.info().size,
			Requested: unsafe.Sizeof(zero),
		}
	}
	return s, nil
}
