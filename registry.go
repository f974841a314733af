package archon

import (
	"sync"

	"github.com/ninthtower/archon/mask"
	"github.com/ninthtower/archon/table"
)

// ComponentTypeID is the dense, monotonically assigned index of a
// component type. It doubles as the type's bit position within an
// archetype signature.
type ComponentTypeID uint32

// DynamicValue is the marker Go type a dynamic (schema-defined)
// component type is minted against. Dynamic components never get a
// real table.Table column of this type; it exists only so the shared
// table.Schema can hand out a bit position for them the same way it
// does for static components.
type DynamicValue map[string]any

// ComponentType describes one registered component, static or dynamic.
type ComponentType struct {
	id       ComponentTypeID
	name     string
	elem     table.ElementType
	dynamic  bool
	defaults map[string]any
	owner    string
}

// ID returns the type's dense index / signature bit position.
func (c *ComponentType) ID() ComponentTypeID { return c.id }

// Name returns the type's display name, empty for anonymous static
// components that were never given one.
func (c *ComponentType) Name() string { return c.name }

// IsDynamic reports whether this is a schema-defined, name-addressed
// component rather than a compile-time Go type.
func (c *ComponentType) IsDynamic() bool { return c.dynamic }

// Owner returns the plugin-prefix namespace this type was registered
// under, or "" if none.
func (c *ComponentType) Owner() string { return c.owner }

// Defaults returns the default value map for a dynamic component. Nil
// for static components.
func (c *ComponentType) Defaults() map[string]any { return c.defaults }

// Elem returns the underlying table element type, used internally to
// build archetype tables.
func (c *ComponentType) Elem() table.ElementType { return c.elem }

// ComponentDescriptor is the input to Register: a static component's
// table element identity, an optional display name, and an optional
// plugin owner prefix.
type ComponentDescriptor struct {
	Elem  table.ElementType
	Name  string
	Owner string
}

// ComponentRegistry assigns a stable dense index and bitmask position
// to every component type introduced at runtime, and names dynamic
// (schema-defined) components.
type ComponentRegistry struct {
	mu         sync.RWMutex
	schema     *table.Schema
	byElem     map[table.ElementType]*ComponentType
	byName     map[string]*ComponentType
	byID       []*ComponentType
	generation uint64
}

// NewComponentRegistry creates an empty registry bound to schema; the
// same schema must be shared by every table the resulting component
// types are used to build.
func NewComponentRegistry(schema *table.Schema) *ComponentRegistry {
	return &ComponentRegistry{
		schema: schema,
		byElem: make(map[table.ElementType]*ComponentType),
		byName: make(map[string]*ComponentType),
	}
}

// Register assigns (or returns the existing) ComponentTypeID for a
// component type. Idempotent per ElementType identity (not per
// underlying Go type): FactoryNewComponent mints one ElementType per
// call and the caller is expected to reuse it, exactly as dynamic
// component definitions reuse the single ElementType DefineDynamic
// minted for them despite every dynamic component sharing the same
// underlying Go type.
func (r *ComponentRegistry) Register(desc ComponentDescriptor) ComponentTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ct, ok := r.byElem[desc.Elem]; ok {
		return ct.id
	}

	r.schema.Register(desc.Elem)
	id := ComponentTypeID(r.schema.RowIndexFor(desc.Elem))
	ct := &ComponentType{id: id, name: desc.Name, elem: desc.Elem, owner: desc.Owner}
	r.byElem[desc.Elem] = ct
	if desc.Name != "" {
		r.byName[desc.Name] = ct
	}
	r.put(ct)
	r.generation++
	return id
}

// DefineDynamic registers a new schema-defined, name-addressed
// component. Fails with DuplicateNameError if name is already taken by
// either a static or a dynamic component.
func (r *ComponentRegistry) DefineDynamic(name string, defaults map[string]any) (ComponentTypeID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return 0, DuplicateNameError{Name: name}
	}

	elem := table.FactoryNewElementType[DynamicValue]()
	r.schema.Register(elem)
	id := ComponentTypeID(r.schema.RowIndexFor(elem))
	ct := &ComponentType{id: id, name: name, elem: elem, dynamic: true, defaults: defaults}
	r.byElem[elem] = ct
	r.byName[name] = ct
	r.put(ct)
	r.generation++
	return id, nil
}

func (r *ComponentRegistry) put(ct *ComponentType) {
	if int(ct.id) >= len(r.byID) {
		grown := make([]*ComponentType, ct.id+1)
		copy(grown, r.byID)
		r.byID = grown
	}
	r.byID[ct.id] = ct
}

// LookupByName resolves a registered name (static or dynamic) to its
// type id.
func (r *ComponentRegistry) LookupByName(name string) (ComponentTypeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return ct.id, true
}

// TypeByID resolves a ComponentTypeID back to its descriptor.
func (r *ComponentRegistry) TypeByID(id ComponentTypeID) (*ComponentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.byID) || r.byID[id] == nil {
		return nil, false
	}
	return r.byID[id], true
}

// Generation returns the monotonically increasing counter bumped on
// every new registration, used by the query cache as part of its
// invalidation key.
func (r *ComponentRegistry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Types returns every registered component type, static and dynamic,
// in ascending id order.
func (r *ComponentRegistry) Types() []*ComponentType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ComponentType, 0, len(r.byID))
	for _, ct := range r.byID {
		if ct != nil {
			out = append(out, ct)
		}
	}
	return out
}

// Schema returns the table.Schema this registry's component types are
// registered against, used to construct a World sharing this exact
// registry rather than a fresh one.
func (r *ComponentRegistry) Schema() *table.Schema {
	return r.schema
}

// Mask builds a signature mask from a set of type ids.
func (r *ComponentRegistry) Mask(ids ...ComponentTypeID) mask.Mask {
	var m mask.Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}
