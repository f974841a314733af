package archon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheBitDrifter/bark"
	"github.com/ninthtower/archon/mask"
)

// Query is a composable filter over archetype signatures: required
// components (And), excluded components (Not), optional components
// (Optional, which never affects matching), composed with Or for
// alternation.
type Query interface {
	QueryNode
	And(items ...any) QueryNode
	Or(items ...any) QueryNode
	Not(items ...any) QueryNode
	Optional(items ...any) QueryNode
}

// QueryNode is a node in a query tree, evaluated against one
// archetype's signature at a time.
type QueryNode interface {
	Evaluate(archetype *Archetype, world *World) bool
}

// QueryOperation is a query tree node's logical role.
type QueryOperation int

const (
	OpAnd      QueryOperation = iota // every component (and child) must match
	OpOr                             // any component or child matching is enough
	OpNot                            // no component (and no child) may match
	OpOptional                       // never affects matching; records intent only
)

// compositeNode is a query tree node: a set of components to test
// together with an operation, plus any nested sub-queries.
type compositeNode struct {
	op         QueryOperation
	children   []QueryNode
	components []Component
}

func newCompositeNode(op QueryOperation, components []Component) *compositeNode {
	return &compositeNode{op: op, components: components}
}

func nodeMaskFor(components []Component, world *World) mask.Mask {
	var m mask.Mask
	for _, c := range components {
		id := world.Register(c)
		m.Mark(uint32(id))
	}
	return m
}

// Evaluate implements QueryNode for compositeNode.
func (n *compositeNode) Evaluate(archetype *Archetype, world *World) bool {
	if n.op == OpOptional {
		return true
	}

	nodeMask := nodeMaskFor(n.components, world)
	archeMask := archetype.Signature()

	switch n.op {
	case OpAnd:
		if !archeMask.ContainsAll(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(archetype, world) {
				return false
			}
		}
		return true
	case OpOr:
		if archeMask.ContainsAny(nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(archetype, world) {
				return true
			}
		}
		return false
	case OpNot:
		if len(n.children) == 0 {
			return archeMask.ContainsNone(nodeMask)
		}
		if len(n.components) > 0 && !archeMask.ContainsNone(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if child.Evaluate(archetype, world) {
				return false
			}
		}
		return true
	}
	return false
}

// query implements Query, building a tree of compositeNodes rooted at
// its first call to And/Or/Not/Optional.
type query struct {
	root QueryNode
}

// NewQuery creates a new empty query.
func NewQuery() Query {
	return &query{}
}

// And creates an AND node requiring every item, recording it as the
// query's root if none is set yet.
func (q *query) And(items ...any) QueryNode {
	return q.addRoot(OpAnd, items...)
}

// Or creates an OR node matching if any item matches.
func (q *query) Or(items ...any) QueryNode {
	return q.addRoot(OpOr, items...)
}

// Not creates a NOT node matching only if no item matches.
func (q *query) Not(items ...any) QueryNode {
	return q.addRoot(OpNot, items...)
}

// Optional creates a node that never affects matching; it exists so a
// query's definition can document which components a cursor expects
// to probe with GetFromCursorSafe.
func (q *query) Optional(items ...any) QueryNode {
	return q.addRoot(OpOptional, items...)
}

func (q *query) addRoot(op QueryOperation, items ...any) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(op, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

// validateQueryItems checks that every item is a shape processItems
// knows how to fold into a query tree.
func (q *query) validateQueryItems(items ...any) error {
	for _, item := range items {
		switch item.(type) {
		case Component, []Component, QueryNode, Query:
			continue
		default:
			return fmt.Errorf("archon: invalid query item type %T, only Component, []Component, or QueryNode are allowed", item)
		}
	}
	return nil
}

// processItems splits items into flat components and nested query
// nodes. Panics (traced) on an invalid item, since a malformed query
// is a programmer error discovered at query-construction time, not a
// runtime condition callers recover from.
func (q *query) processItems(items ...any) ([]Component, []QueryNode) {
	if err := q.validateQueryItems(items...); err != nil {
		panic(bark.AddTrace(err))
	}
	var components []Component
	var children []QueryNode
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}
	return components, children
}

// Evaluate implements QueryNode for the query's root.
func (q *query) Evaluate(archetype *Archetype, world *World) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(archetype, world)
}

// canonicalizeQuery builds queryCache's lookup key for the common
// (required, excluded, optional) triple shape: an And root whose
// direct children are plain Not/Optional leaves with no further
// nesting. Anything richer (nested And/Or, multi-level trees) returns
// ok=false, so the cursor falls back to evaluating the tree directly
// every time rather than caching an incorrect shortcut.
func canonicalizeQuery(node QueryNode, world *World) (key string, ok bool) {
	root, isAnd := node.(*compositeNode)
	if !isAnd || root.op != OpAnd {
		return "", false
	}

	type pair struct {
		id   ComponentTypeID
		role byte
	}
	pairs := make([]pair, 0, len(root.components))
	for _, c := range root.components {
		pairs = append(pairs, pair{id: world.Register(c), role: 'r'})
	}
	for _, child := range root.children {
		cn, isLeaf := child.(*compositeNode)
		if !isLeaf || len(cn.children) > 0 {
			return "", false
		}
		var role byte
		switch cn.op {
		case OpNot:
			role = 'x'
		case OpOptional:
			role = 'o'
		default:
			return "", false
		}
		for _, c := range cn.components {
			pairs = append(pairs, pair{id: world.Register(c), role: role})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].role != pairs[j].role {
			return pairs[i].role < pairs[j].role
		}
		return pairs[i].id < pairs[j].id
	})

	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%c%d;", p.role, p.id)
	}
	return b.String(), true
}
