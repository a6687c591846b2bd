package depot

import "testing"

func BenchmarkQueryBuild(b *testing.B) {
	position := FactoryNewComponent[Position]()
	velocity := FactoryNewComponent[Velocity]()
	health := FactoryNewComponent[Health]()
	w := NewWorld(WithCapacity(10000, 4, 0))
	defer w.Free()

	w.NewEntities(5000, position)
	w.NewEntities(3000, position, velocity)
	w.NewEntities(2000, velocity, health)

	query := Factory.NewQuery().And(position).AndAny(velocity, health).Not(health)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d, err := query.Build(w)
		if err != nil {
			b.Fatal(err)
		}
		d.Free()
	}
}

func BenchmarkSetRemove(b *testing.B) {
	velocity := FactoryNewComponent[Velocity]()
	w := NewWorld()
	defer w.Free()

	entities, _ := w.NewEntities(1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := entities[i%len(entities)]
		velocity.Set(w, e, Velocity{X: 1})
		velocity.Remove(w, e)
	}
}

func BenchmarkRelation(b *testing.B) {
	likes := FactoryNewComponent[Likes]()
	w := NewWorld()
	defer w.Free()

	entities, _ := w.NewEntities(256)
	target := EntityTarget(entities[0])

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := entities[1+i%(len(entities)-1)]
		SetRelation(w, e, likes, target, Likes{Weight: i})
		w.RemoveRelation(e, likes, target)
	}
}
