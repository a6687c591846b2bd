package depot

import (
	"unsafe"

	"github.com/TheBitDrifter/depot/internal/arena"
	"github.com/TheBitDrifter/depot/internal/bitset"
	"github.com/TheBitDrifter/depot/internal/sparse"
)

var (
	_ componentStorage = &sparseStorage[int]{}
	_ componentStorage = &tagStorage{}
	_ componentStorage = &indirectStorage{}
)

type storageKind uint8

const (
	kindSparse storageKind = iota
	kindTag
	kindIndirect
)

func (k storageKind) String() string {
	switch k {
	case kindSparse:
		return "sparse"
	case kindTag:
		return "tag"
	case kindIndirect:
		return "indirect"
	}
	return "unknown"
}

type storageInfo struct {
	id   ComponentID
	kind storageKind
	size uintptr
}

// componentStorage is the contract every storage kind satisfies. The
// presence bitset is the single source of truth for has.
type componentStorage interface {
	info() storageInfo
	presence() *bitset.Bitset
	has(e EntityID) bool
	// addDefault gives e a zero payload and reports whether it was absent.
	addDefault(e EntityID) bool
	remove(e EntityID) bool
	// ptr returns e's payload as a typed pointer in an interface, or nil.
	ptr(e EntityID) any
	copyTo(src, dst EntityID) bool
	len() int
}

type sparseStorage[T any] struct {
	id     ComponentID
	bits   *bitset.Bitset
	values *sparse.Set[EntityID, T]
}

func newSparseStorage[T any](id ComponentID, words *arena.Arena[uint64], capacity int) *sparseStorage[T] {
	return &sparseStorage[T]{
		id:     id,
		bits:   bitset.New(words),
		values: sparse.NewSet[EntityID, T](capacity),
	}
}

func (s *sparseStorage[T]) info() storageInfo {
	var zero T
	return storageInfo{id: s.id, kind: kindSparse, size: unsafe.Sizeof(zero)}
}

func (s *sparseStorage[T]) presence() *bitset.Bitset { return s.bits }
func (s *sparseStorage[T]) has(e EntityID) bool     { return s.bits.IsSet(uint32(e)) }
func (s *sparseStorage[T]) len() int                { return s.values.Len() }

func (s *sparseStorage[T]) get(e EntityID) *T {
	if !s.has(e) {
		return nil
	}
	return s.values.Get(e)
}

func (s *sparseStorage[T]) set(e EntityID, v T) bool {
	s.values.Set(e, v)
	return s.bits.Set(uint32(e))
}

func (s *sparseStorage[T]) addDefault(e EntityID) bool {
	if s.has(e) {
		return false
	}
	var zero T
	return s.set(e, zero)
}

func (s *sparseStorage[T]) remove(e EntityID) bool {
	if !s.bits.Unset(uint32(e)) {
		return false
	}
	s.values.Remove(e)
	return true
}

func (s *sparseStorage[T]) ptr(e EntityID) any {
	if p := s.get(e); p != nil {
		return p
	}
	return nil
}

func (s *sparseStorage[T]) copyTo(src, dst EntityID) bool {
	p := s.get(src)
	if p == nil {
		return false
	}
	return s.set(dst, *p)
}

// tagStorage holds presence only.
type tagStorage struct {
	id   ComponentID
	bits *bitset.Bitset
}

func newTagStorage(id ComponentID, words *arena.Arena[uint64]) *tagStorage {
	return &tagStorage{id: id, bits: bitset.New(words)}
}

func (s *tagStorage) info() storageInfo          { return storageInfo{id: s.id, kind: kindTag} }
func (s *tagStorage) presence() *bitset.Bitset   { return s.bits }
func (s *tagStorage) has(e EntityID) bool        { return s.bits.IsSet(uint32(e)) }
func (s *tagStorage) addDefault(e EntityID) bool { return s.bits.Set(uint32(e)) }
func (s *tagStorage) remove(e EntityID) bool     { return s.bits.Unset(uint32(e)) }
func (s *tagStorage) ptr(EntityID) any           { return nil }
func (s *tagStorage) len() int                   { return s.bits.Len() }

func (s *tagStorage) copyTo(src, dst EntityID) bool {
	if !s.has(src) {
		return false
	}
	return s.bits.Set(uint32(dst))
}

// indirectStorage maps each entity to a holder entity whose payload lives in
// the base storage. Relation pairs use it so every source sharing a holder
// reads the same value.
type indirectStorage struct {
	id      ComponentID
	base    componentStorage
	bits    *bitset.Bitset
	holders *sparse.Set[EntityID, EntityID]
}

func newIndirectStorage(id ComponentID, base componentStorage, words *arena.Arena[uint64]) *indirectStorage {
	return &indirectStorage{
		id:      id,
		base:    base,
		bits:    bitset.New(words),
		holders: sparse.NewSet[EntityID, EntityID](0),
	}
}

func (s *indirectStorage) info() storageInfo {
	return storageInfo{id: s.id, kind: kindIndirect, size: s.base.info().size}
}

func (s *indirectStorage) presence() *bitset.Bitset { return s.bits }
func (s *indirectStorage) has(e EntityID) bool     { return s.bits.IsSet(uint32(e)) }
func (s *indirectStorage) len() int                { return s.holders.Len() }

// addDefault cannot invent a holder.
func (s *indirectStorage) addDefault(EntityID) bool { return false }

func (s *indirectStorage) link(e, holder EntityID) bool {
	s.holders.Set(e, holder)
	return s.bits.Set(uint32(e))
}

func (s *indirectStorage) holder(e EntityID) (EntityID, bool) {
	if !s.has(e) {
		return 0, false
	}
	return s.holders.Value(e)
}

func (s *indirectStorage) remove(e EntityID) bool {
	if !s.bits.Unset(uint32(e)) {
		return false
	}
	s.holders.Remove(e)
	return true
}

func (s *indirectStorage) ptr(e EntityID) any {
	h, ok := s.holder(e)
	if !ok {
		return nil
	}
	return s.base.ptr(h)
}

// copyTo is refused: pairs are shared through the relation registry, which
// keeps holder reference counts.
func (s *indirectStorage) copyTo(EntityID, EntityID) bool { return false }
