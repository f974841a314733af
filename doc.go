/*
Package archon provides an archetype-based Entity-Component-System
(ECS) world.

Archon stores heterogeneous components for numeric entity identifiers,
partitions entities into archetypes sharing an identical component
signature, and answers queries of the form "every entity with {A, B},
optionally lacking {X}, optionally carrying {Y}" in time proportional
to the size of the result.

Core Concepts:

  - EntityID: a generation-stamped handle to a world-owned row.
  - Component: a data attribute registered once and attached to entities.
  - Archetype: a columnar storage block for entities sharing a signature.
  - Query: required/excluded/optional component sets resolved to archetypes.
  - Relationship Graph: a labeled multigraph over entity ids.
  - Driver: ticks a set of grouped, ordered systems against a World.

Basic Usage:

	schema := table.NewSchema()
	world := archon.NewWorld(schema)

	position := archon.FactoryNewComponent[Position]()
	velocity := archon.FactoryNewComponent[Velocity]()

	entities, _ := world.NewEntities(100, position, velocity)

	query := archon.Factory.NewQuery()
	node := query.And(position, velocity)
	cursor := archon.Factory.NewCursor(node, world)

	for range cursor.Entities() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
*/
package archon
