package archon

import "github.com/ninthtower/archon/table"

// factory implements the factory pattern for archon components.
type factory struct{}

// Factory is the global factory instance for creating archon values
// whose constructors don't otherwise need a receiver.
var Factory factory

// NewQuery creates a new Query instance.
func (f factory) NewQuery() Query {
	return NewQuery()
}

// NewCursor creates a new Cursor over query, scoped to world.
func (f factory) NewCursor(query QueryNode, world *World) *Cursor {
	return newCursor(query, world)
}

// FactoryNewComponent creates a new AccessibleComponent for type T.
func FactoryNewComponent[T any]() AccessibleComponent[T] {
	iden := table.FactoryNewElementType[T]()
	return AccessibleComponent[T]{
		Component: iden,
		Accessor:  table.FactoryNewAccessor[T](iden),
	}
}

// FactoryNewCache creates a new Cache with the specified capacity.
func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
