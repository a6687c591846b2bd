/*
Package depot provides an Entity-Component-System (ECS) store for games and simulations.

Depot keeps every component type in its own sparse storage, paired with a
hierarchical presence bitset. Queries combine those bitsets into a single
match set, so matching costs are proportional to the populated ranges rather
than to the number of entities.

Core Concepts:

  - Entity: a reusable 32-bit ID. Removed IDs are handed out again oldest first.
  - Component: a typed payload or a zero-size Tag attached to entities.
  - Relation: a component attached to an (entity, target) pair, stored on a
    shared holder entity.
  - Resource: a world-wide singleton value.
  - Query: an ordered list of And, Or, Not, OrAll and AndAny groups.
  - Descriptor: a Query compiled against one World, valid until the set of
    component presences changes.

Basic Usage:

	w := depot.NewWorld(depot.WithCapacity(512, 32, 4))
	defer w.Free()

	position := depot.FactoryNewComponent[Position]()
	velocity := depot.FactoryNewComponent[Velocity]()

	entities, _ := w.NewEntities(100, position, velocity)
	velocity.Set(w, entities[0], Velocity{X: 1})

	query := depot.Factory.NewQuery().And(position, velocity)
	cursor := depot.Factory.NewCursor(query, w)
	for range cursor.Entities() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

A cursor locks the world while it iterates. Structural changes requested
through the Enqueue methods during iteration are applied when the cursor
finishes.
*/
package depot
