package depot

import (
	"fmt"
	"iter"

	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/depot/internal/flatmap"
	"github.com/TheBitDrifter/depot/internal/sparse"
)

const (
	pairBit   = ComponentID(1) << 63
	pairShift = 33
	// maxRelationComponent bounds the component IDs a pair can encode.
	maxRelationComponent = ComponentID(1)<<(63-pairShift) - 1
)

// RelationTarget is the far end of a relation: an entity or a tag.
type RelationTarget uint64

const tagTargetBit = RelationTarget(1) << 32

// EntityTarget targets entity e.
func EntityTarget(e EntityID) RelationTarget { return RelationTarget(e) }

// TagTarget targets the tag (or any component type) c as registered in w.
func TagTarget(w *World, c Component) RelationTarget {
	return tagTargetBit | RelationTarget(w.ComponentID(c))
}

// Entity returns the targeted entity.
func (t RelationTarget) Entity() (EntityID, bool) {
	if t&tagTargetBit != 0 {
		return 0, false
	}
	return EntityID(t), true
}

// Tag returns the targeted tag's component ID.
func (t RelationTarget) Tag() (ComponentID, bool) {
	if t&tagTargetBit == 0 {
		return 0, false
	}
	return ComponentID(t &^ tagTargetBit), true
}

func (t RelationTarget) String() string {
	if c, ok := t.Tag(); ok {
		return fmt.Sprintf("tag(%d)", c)
	}
	return fmt.Sprintf("entity(%d)", uint32(t))
}

// Pair returns the ID of relation component c towards target.
func Pair(c ComponentID, target RelationTarget) ComponentID {
	return pairBit | c<<pairShift | ComponentID(target)
}

// IsPair reports whether id names a relation pair.
func (id ComponentID) IsPair() bool { return id&pairBit != 0 }

// PairParts splits a pair ID into its relation component and target.
func (id ComponentID) PairParts() (ComponentID, RelationTarget) {
	return (id &^ pairBit) >> pairShift, RelationTarget(id & (1<<pairShift - 1))
}

type relationLink struct {
	holder EntityID
	pairs  int
}

// relationSource indexes one source entity's relations, by target and by
// pair.
type relationSource struct {
	targets *sparse.PagedSet[RelationTarget, relationLink]
	pairs   *sparse.PagedSet[ComponentID, EntityID]
}

// relationRegistry owns the holder entities behind relations. A holder is
// shared by every source linked to it and is destroyed with its last
// reference; each relation component on it is kept while any source still
// links it.
type relationRegistry struct {
	sources  *flatmap.Map[EntityID, *relationSource]
	holders  *flatmap.Map[EntityID, int]
	payloads *flatmap.Map[uint64, int]
}

func newRelationRegistry() relationRegistry {
	return relationRegistry{
		sources:  flatmap.New[EntityID, *relationSource](0),
		holders:  flatmap.New[EntityID, int](0),
		payloads: flatmap.New[uint64, int](0),
	}
}

func payloadKey(holder EntityID, c ComponentID) uint64 {
	return uint64(holder)<<32 | uint64(c)
}

func (r *relationRegistry) source(e EntityID) (*relationSource, bool) {
	return r.sources.Get(e)
}

func (r *relationRegistry) ensureSource(e EntityID) *relationSource {
	if src, ok := r.sources.Get(e); ok {
		return src
	}
	src := &relationSource{
		targets: sparse.NewPagedSet[RelationTarget, relationLink](0),
		pairs:   sparse.NewPagedSet[ComponentID, EntityID](0),
	}
	r.sources.Set(e, src)
	return src
}

// sourceCount returns the number of relation pairs e holds.
func (r *relationRegistry) sourceCount(e EntityID) int {
	if src, ok := r.sources.Get(e); ok {
		return src.pairs.Len()
	}
	return 0
}

func (r *relationRegistry) holderOf(e EntityID, pair ComponentID) (EntityID, bool) {
	src, ok := r.sources.Get(e)
	if !ok {
		return 0, false
	}
	return src.pairs.Value(pair)
}

func (r *relationRegistry) clear() {
	r.sources.Clear()
	r.holders.Clear()
	r.payloads.Clear()
}

// pairStorage returns the indirect storage behind pair, creating it over the
// relation component's storage.
func (w *World) pairStorage(pair ComponentID) *indirectStorage {
	c, _ := pair.PairParts()
	base, _ := w.components.storage(c)
	st, created := w.components.ensure(pair, func() componentStorage {
		return newIndirectStorage(pair, base, w.words)
	})
	if created {
		w.logStorage(st)
	}
	return st.(*indirectStorage)
}

// linkPair links source to the holder for target under relation component c,
// creating the holder on the first relation from source to target. It
// returns the holder and whether the pair was new.
func (w *World) linkPair(source EntityID, c ComponentID, target RelationTarget) (EntityID, bool, error) {
	if c > maxRelationComponent {
		return 0, false, eris.Errorf("component %d cannot define a relation", c)
	}
	if e, ok := target.Entity(); ok && !w.entities.alive.Has(e) {
		return 0, false, EntityNotFoundError{Entity: e}
	}
	rel := &w.relations
	src := rel.ensureSource(source)
	link, ok := src.targets.Value(target)
	if !ok {
		link.holder = w.entities.create()
		if err := w.setFlag(link.holder, FlagPermanent, true); err != nil {
			return 0, false, err
		}
		w.log.Debug().
			Uint32("source", uint32(source)).
			Stringer("target", target).
			Uint32("holder", uint32(link.holder)).
			Msg("relation holder created")
	}
	pair := Pair(c, target)
	if src.pairs.Has(pair) {
		return link.holder, false, nil
	}
	src.pairs.Set(pair, link.holder)
	link.pairs++
	src.targets.Set(target, link)
	flatmap.IncrementOrSet(rel.holders, link.holder, 1)
	flatmap.IncrementOrSet(rel.payloads, payloadKey(link.holder, c), 1)

	if w.pairStorage(pair).link(source, link.holder) {
		w.attached(source, pair)
	}
	if src.pairs.Len() == 1 {
		if err := w.setFlag(source, FlagPermanent, true); err != nil {
			return 0, false, err
		}
	}
	return link.holder, true, nil
}

// removePair unlinks one relation pair from source. The holder loses the
// relation's payload once no source links it, and is destroyed with its
// last reference.
func (w *World) removePair(source EntityID, pair ComponentID) error {
	rel := &w.relations
	c, target := pair.PairParts()
	src, ok := rel.source(source)
	if !ok {
		return RelationNotFoundError{Source: source, Component: c, Target: target}
	}
	holder, ok := src.pairs.Remove(pair)
	if !ok {
		return RelationNotFoundError{Source: source, Component: c, Target: target}
	}
	if st, ok := w.components.storage(pair); ok && st.remove(source) {
		w.detached(source, pair)
	}
	if link := src.targets.Get(target); link != nil {
		link.pairs--
		if link.pairs == 0 {
			src.targets.Remove(target)
		}
	}
	if flatmap.Decrement(rel.payloads, payloadKey(holder, c)) == 0 {
		if base, ok := w.components.storage(c); ok && base.remove(holder) {
			w.components.removed(c, holder)
		}
	}
	if flatmap.Decrement(rel.holders, holder) == 0 {
		w.destroy(holder)
		w.log.Debug().
			Uint32("source", uint32(source)).
			Stringer("target", target).
			Uint32("holder", uint32(holder)).
			Msg("relation holder destroyed")
	}
	if src.pairs.Len() == 0 {
		rel.sources.Remove(source)
		return w.setFlag(source, FlagPermanent, false)
	}
	return nil
}

// SetRelation relates source to target through relation component c and
// stores value on the relation's holder. Every relation from source to the
// same target shares one holder, and sources sharing a holder share its
// values. It returns the holder.
func SetRelation[T any](w *World, source EntityID, c AccessibleComponent[T], target RelationTarget, value T) (EntityID, error) {
	if err := w.structural(source); err != nil {
		return 0, err
	}
	id := c.IDIn(w)
	st, err := typedStorage[T](w, id)
	if err != nil {
		return 0, err
	}
	holder, _, err := w.linkPair(source, id, target)
	if err != nil {
		return 0, err
	}
	if st.set(holder, value) {
		w.components.added(id, holder)
	}
	return holder, nil
}

// AddRelation relates source to target through c without a value; tags and
// zero values both work. It returns the holder.
func (w *World) AddRelation(source EntityID, c Component, target RelationTarget) (EntityID, error) {
	if err := w.structural(source); err != nil {
		return 0, err
	}
	id := w.ComponentID(c)
	holder, _, err := w.linkPair(source, id, target)
	if err != nil {
		return 0, err
	}
	st, _ := w.components.storage(id)
	if st.addDefault(holder) {
		w.components.added(id, holder)
	}
	return holder, nil
}

// GetRelation returns the value of relation c from source to target.
func GetRelation[T any](w *World, source EntityID, c AccessibleComponent[T], target RelationTarget) (*T, bool) {
	id := c.IDIn(w)
	holder, ok := w.relations.holderOf(source, Pair(id, target))
	if !ok {
		return nil, false
	}
	st, err := typedStorage[T](w, id)
	if err != nil {
		return nil, false
	}
	p := st.get(holder)
	return p, p != nil
}

// RemoveRelation removes relation c from source to target.
func (w *World) RemoveRelation(source EntityID, c Component, target RelationTarget) error {
	if err := w.structural(source); err != nil {
		return err
	}
	return w.removePair(source, Pair(w.ComponentID(c), target))
}

// HasRelation reports whether source relates to target through c.
func (w *World) HasRelation(source EntityID, c Component, target RelationTarget) bool {
	_, ok := w.relations.holderOf(source, Pair(w.ComponentID(c), target))
	return ok
}

// RelationHolder returns the holder entity behind source's relations to
// target.
func (w *World) RelationHolder(source EntityID, target RelationTarget) (EntityID, bool) {
	src, ok := w.relations.source(source)
	if !ok {
		return 0, false
	}
	link, ok := src.targets.Value(target)
	return link.holder, ok
}

// ShareRelations links dst to every relation src has towards target, through
// src's holder. Relations dst already had towards target are replaced.
func (w *World) ShareRelations(dst, src EntityID, target RelationTarget) error {
	if err := w.structural(dst); err != nil {
		return err
	}
	if dst == src {
		return nil
	}
	from, ok := w.relations.source(src)
	if !ok {
		return RelationNotFoundError{Source: src, Target: target}
	}
	var pairs []ComponentID
	for pair := range from.pairs.All() {
		if _, t := pair.PairParts(); t == target {
			pairs = append(pairs, pair)
		}
	}
	if len(pairs) == 0 {
		return RelationNotFoundError{Source: src, Target: target}
	}
	if existing, ok := w.relations.source(dst); ok {
		var stale []ComponentID
		for pair := range existing.pairs.All() {
			if _, t := pair.PairParts(); t == target {
				stale = append(stale, pair)
			}
		}
		for _, pair := range stale {
			if err := w.removePair(dst, pair); err != nil {
				return err
			}
		}
	}

	holder, _ := w.RelationHolder(src, target)
	to := w.relations.ensureSource(dst)
	to.targets.Set(target, relationLink{holder: holder})
	for _, pair := range pairs {
		c, _ := pair.PairParts()
		if _, _, err := w.linkPair(dst, c, target); err != nil {
			return err
		}
	}
	return nil
}

// Relations yields every relation pair of source with its holder.
func (w *World) Relations(source EntityID) iter.Seq2[ComponentID, EntityID] {
	return func(yield func(ComponentID, EntityID) bool) {
		src, ok := w.relations.source(source)
		if !ok {
			return
		}
		for pair, holder := range src.pairs.All() {
			if !yield(pair, *holder) {
				return
			}
		}
	}
}

// RelationTargets returns every target source relates to.
func (w *World) RelationTargets(source EntityID) []RelationTarget {
	src, ok := w.relations.source(source)
	if !ok {
		return nil
	}
	var targets iter.Seq[RelationTarget] = func(yield func(RelationTarget) bool) {
		for target := range src.targets.All() {
			if !yield(target) {
				return
			}
		}
	}
	return iter_util.Collect(targets)
}

// RelationComponent returns the ID of relation c towards target, for use in
// queries.
func (w *World) RelationComponent(c Component, target RelationTarget) ComponentID {
	pair := Pair(w.ComponentID(c), target)
	w.pairStorage(pair)
	return pair
}
