package archon

import "github.com/ninthtower/archon/table"

// Component is a data attribute that can be attached to an entity and
// used as a query term. Every AccessibleComponent[T] produced by
// FactoryNewComponent satisfies this.
type Component interface {
	table.ElementType
}
