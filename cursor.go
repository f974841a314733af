package archon

import (
	"fmt"
	"iter"
)

// iCursor is the minimal shape Cursor satisfies.
type iCursor interface {
	Entities() iter.Seq2[int, *Archetype]
	Next() bool
}

var _ iCursor = &Cursor{}

// Cursor iterates the entities of every archetype matching a Query. It
// holds one of the world's iteration locks from Initialize until
// Reset, during which structural mutations against the world are
// rejected or deferred per §4.5.1.
type Cursor struct {
	query QueryNode
	world *World

	currentArchetype *Archetype
	storageIndex     int
	entityIndex      int
	remaining        int

	initialized       bool
	matchedArchetypes []*Archetype
	lockBit           uint32
}

func newCursor(query QueryNode, world *World) *Cursor {
	return &Cursor{query: query, world: world}
}

// Next advances to the next matching entity, returning false once
// iteration is exhausted (at which point the cursor's lock is
// released).
func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.Initialize()
	}

	for c.storageIndex < len(c.matchedArchetypes) {
		c.currentArchetype = c.matchedArchetypes[c.storageIndex]
		c.remaining = c.currentArchetype.Table().Length()
		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.storageIndex++
		c.entityIndex = 0
	}

	c.Reset()
	return false
}

// Entities returns an iterator over (row, archetype) pairs for every
// entity matching the query.
func (c *Cursor) Entities() iter.Seq2[int, *Archetype] {
	return func(yield func(int, *Archetype) bool) {
		c.Initialize()

		for c.storageIndex < len(c.matchedArchetypes) {
			c.currentArchetype = c.matchedArchetypes[c.storageIndex]
			c.remaining = c.currentArchetype.Table().Length()

			for c.entityIndex < c.remaining {
				c.entityIndex++
				if !yield(c.entityIndex-1, c.currentArchetype) {
					c.Reset()
					return
				}
			}

			c.entityIndex = 0
			c.storageIndex++
		}

		c.Reset()
	}
}

// Initialize takes the world's iteration lock and resolves the set of
// archetypes currently matching the query, consulting the query cache
// when the query is in the cacheable (required, excluded, optional)
// shape.
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}
	c.lockBit = c.world.Lock()

	key, cacheable := canonicalizeQuery(c.query, c.world)

	var matched []*Archetype
	if cacheable {
		if cached, hit := c.world.cache.get(key, c.world.registry.Generation(), c.world.archetypes.Generation()); hit {
			matched = cached
		}
	}
	if matched == nil {
		all := c.world.Archetypes()
		matched = make([]*Archetype, 0, len(all))
		for _, arch := range all {
			if c.query.Evaluate(arch, c.world) {
				matched = append(matched, arch)
			}
		}
		if cacheable {
			c.world.cache.put(key, matched, c.world.registry.Generation(), c.world.archetypes.Generation())
		}
	}

	c.matchedArchetypes = matched
	if len(c.matchedArchetypes) > 0 {
		c.storageIndex = 0
		c.currentArchetype = c.matchedArchetypes[0]
		c.remaining = c.currentArchetype.Table().Length()
	}
	c.initialized = true
}

// Reset clears the cursor's state and releases its iteration lock,
// flushing any operations that were deferred while it was held.
func (c *Cursor) Reset() {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matchedArchetypes = nil
	c.initialized = false
	_ = c.world.Unlock(c.lockBit)
}

// CurrentEntity returns the entity at the cursor's current position.
func (c *Cursor) CurrentEntity() (Entity, error) {
	id, ok := c.currentArchetype.EntityAt(c.entityIndex - 1)
	if !ok {
		return nil, fmt.Errorf("archon: cursor has no current entity")
	}
	return c.world.Entity(id)
}

// EntityAtOffset returns the entity at offset positions from the
// cursor's current position, within the same archetype.
func (c *Cursor) EntityAtOffset(offset int) (Entity, error) {
	id, ok := c.currentArchetype.EntityAt(c.entityIndex - 1 + offset)
	if !ok {
		return nil, fmt.Errorf("archon: no entity at offset %d", offset)
	}
	return c.world.Entity(id)
}

// EntityIndex returns the 1-based count of entities visited so far in
// the current archetype.
func (c *Cursor) EntityIndex() int {
	return c.entityIndex
}

// RemainingInArchetype returns how many entities are left to visit in
// the current archetype.
func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

// TotalMatched returns the total number of entities across every
// archetype matching the query, initializing (and then resetting) the
// cursor if it hasn't run yet.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.Initialize()
	}

	total := 0
	for _, arch := range c.matchedArchetypes {
		total += arch.Table().Length()
	}

	c.Reset()
	return total
}
