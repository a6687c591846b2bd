package depot

import (
	"errors"
	"testing"
)

type Likes struct {
	Weight int
}

type Fears struct {
	Level int
}

type Team struct{}

func TestRelationHolderReuse(t *testing.T) {
	likes := FactoryNewComponent[Likes]()
	fears := FactoryNewComponent[Fears]()
	team := FactoryNewTag[Team]()
	w := NewWorld()
	defer w.Free()

	a, _ := w.NewEntity()
	target := TagTarget(w, team)

	h1, err := SetRelation(w, a, likes, target, Likes{Weight: 1})
	if err != nil {
		t.Fatalf("SetRelation() error = %v", err)
	}
	h2, err := SetRelation(w, a, fears, target, Fears{Level: 2})
	if err != nil {
		t.Fatalf("SetRelation() error = %v", err)
	}
	if h1 != h2 {
		t.Fatalf("second relation to the same target used holder %d, want %d", h2, h1)
	}
	if holder, ok := w.RelationHolder(a, target); !ok || holder != h1 {
		t.Errorf("RelationHolder() = %d, %v", holder, ok)
	}
	if !w.Flags(a).Has(FlagPermanent) || !w.Flags(h1).Has(FlagPermanent) {
		t.Errorf("source and holder must be permanent")
	}

	v, ok := GetRelation(w, a, likes, target)
	if !ok || v.Weight != 1 {
		t.Errorf("GetRelation(likes) = %v, %v", v, ok)
	}
	if !w.Has(a, Pair(likes.IDIn(w), target)) {
		t.Errorf("source does not hold the pair")
	}

	var permanent PermanentEntityError
	if err := w.RemoveEntity(a); !errors.As(err, &permanent) {
		t.Errorf("RemoveEntity(source) error = %v, want PermanentEntityError", err)
	}

	if err := w.RemoveRelation(a, likes, target); err != nil {
		t.Fatalf("RemoveRelation(likes) error = %v", err)
	}
	if !w.Alive(h1) {
		t.Fatalf("holder removed while a relation still references it")
	}
	if likes.Has(w, h1) {
		t.Errorf("holder kept the payload of a removed relation")
	}
	if w.HasRelation(a, likes, target) || !w.HasRelation(a, fears, target) {
		t.Errorf("wrong relation removed")
	}

	if err := w.RemoveRelation(a, fears, target); err != nil {
		t.Fatalf("RemoveRelation(fears) error = %v", err)
	}
	if w.Alive(h1) {
		t.Errorf("holder survived its last reference")
	}
	if w.Flags(a).Has(FlagPermanent) {
		t.Errorf("source still permanent without relations")
	}

	var missing RelationNotFoundError
	if err := w.RemoveRelation(a, fears, target); !errors.As(err, &missing) {
		t.Errorf("RemoveRelation() twice error = %v, want RelationNotFoundError", err)
	}
	if err := w.RemoveEntity(a); err != nil {
		t.Errorf("RemoveEntity(source) error = %v", err)
	}
}

func TestRelationDistinctTargets(t *testing.T) {
	likes := FactoryNewComponent[Likes]()
	w := NewWorld()
	defer w.Free()

	entities, _ := w.NewEntities(3)
	a, b, c := entities[0], entities[1], entities[2]

	hb, _ := SetRelation(w, a, likes, EntityTarget(b), Likes{Weight: 1})
	hc, _ := SetRelation(w, a, likes, EntityTarget(c), Likes{Weight: 2})
	if hb == hc {
		t.Fatalf("distinct targets share holder %d", hb)
	}

	if got := len(w.RelationTargets(a)); got != 2 {
		t.Errorf("RelationTargets() has %d targets, want 2", got)
	}
	n := 0
	for pair, holder := range w.Relations(a) {
		_, target := pair.PairParts()
		want, _ := w.RelationHolder(a, target)
		if holder != want {
			t.Errorf("Relations() holder for %v = %d, want %d", target, holder, want)
		}
		n++
	}
	if n != 2 {
		t.Errorf("Relations() yielded %d pairs, want 2", n)
	}

	// Removing a target leaves relations pointing at it in place.
	if err := w.RemoveEntity(b); err != nil {
		t.Fatalf("RemoveEntity(target) error = %v", err)
	}
	if !w.HasRelation(a, likes, EntityTarget(b)) {
		t.Errorf("relation dropped with its target")
	}

	var notFound EntityNotFoundError
	if _, err := SetRelation(w, a, likes, EntityTarget(99), Likes{}); !errors.As(err, &notFound) {
		t.Errorf("SetRelation() to a dead entity error = %v, want EntityNotFoundError", err)
	}
}

func TestShareRelations(t *testing.T) {
	likes := FactoryNewComponent[Likes]()
	w := NewWorld()
	defer w.Free()

	entities, _ := w.NewEntities(3)
	alice, bob, carol := entities[0], entities[1], entities[2]
	target := EntityTarget(bob)

	holder, _ := SetRelation(w, alice, likes, target, Likes{Weight: 3})
	if err := w.ShareRelations(carol, alice, target); err != nil {
		t.Fatalf("ShareRelations() error = %v", err)
	}
	if h, _ := w.RelationHolder(carol, target); h != holder {
		t.Errorf("shared holder = %d, want %d", h, holder)
	}

	// Writes through one source are seen by the other.
	v, _ := GetRelation(w, alice, likes, target)
	v.Weight = 7
	if v, _ := GetRelation(w, carol, likes, target); v.Weight != 7 {
		t.Errorf("carol sees weight %d, want 7", v.Weight)
	}

	pair := w.RelationComponent(likes, target)
	cursor := Factory.NewCursor(Factory.NewQuery().And(pair), w)
	if got := cursor.TotalMatched(); got != 2 {
		t.Errorf("query on the pair matched %d, want 2", got)
	}
	for _, c := range cursor.Entities() {
		if p, _ := c.resolved(pair); p.(*Likes).Weight != 7 {
			t.Errorf("cursor resolved %+v through the pair", p)
		}
	}

	w.RemoveRelation(alice, likes, target)
	if !w.Alive(holder) {
		t.Fatalf("shared holder removed while carol references it")
	}
	if v, ok := GetRelation(w, carol, likes, target); !ok || v.Weight != 7 {
		t.Errorf("carol lost the shared value")
	}
	w.RemoveRelation(carol, likes, target)
	if w.Alive(holder) {
		t.Errorf("holder survived its last reference")
	}
}

func TestAddRelationTag(t *testing.T) {
	team := FactoryNewTag[Team]()
	w := NewWorld()
	defer w.Free()

	entities, _ := w.NewEntities(2)
	holder, err := w.AddRelation(entities[0], team, EntityTarget(entities[1]))
	if err != nil {
		t.Fatalf("AddRelation() error = %v", err)
	}
	if !team.Has(w, holder) {
		t.Errorf("holder missing the relation tag")
	}
	if !w.HasRelation(entities[0], team, EntityTarget(entities[1])) {
		t.Errorf("HasRelation() = false")
	}
	if err := w.RemoveComponentID(entities[0], Pair(team.IDIn(w), EntityTarget(entities[1]))); err != nil {
		t.Errorf("RemoveComponentID(pair) error = %v", err)
	}
	if w.Alive(holder) {
		t.Errorf("holder survived removal by pair ID")
	}
}

func TestPairEncoding(t *testing.T) {
	tests := []struct {
		c      ComponentID
		target RelationTarget
	}{
		{0, EntityTarget(0)},
		{7, EntityTarget(1<<32 - 1)},
		{maxRelationComponent, tagTargetBit | 12},
	}
	for _, tt := range tests {
		pair := Pair(tt.c, tt.target)
		if !pair.IsPair() {
			t.Errorf("Pair(%d, %v) is not a pair", tt.c, tt.target)
		}
		c, target := pair.PairParts()
		if c != tt.c || target != tt.target {
			t.Errorf("PairParts() = %d, %v, want %d, %v", c, target, tt.c, tt.target)
		}
	}
	if ComponentID(5).IsPair() {
		t.Errorf("plain component reported as a pair")
	}
	if _, ok := EntityTarget(3).Tag(); ok {
		t.Errorf("entity target reported as a tag")
	}
}
