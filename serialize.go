package archon

import (
	"encoding/json"
	"reflect"
)

// Document is the neutral interchange format a world serializes to and
// deserializes from: plain JSON-shaped data with no archon-internal
// pointers, so it can cross a process boundary or be diffed as text.
type Document struct {
	NextEntityID         uint32                   `json:"next_entity_id"`
	ComponentDefinitions []ComponentDefinitionDoc `json:"component_definitions"`
	Entities             []EntityDoc              `json:"entities"`
	Graph                GraphDoc                 `json:"graph"`
}

// ComponentDefinitionDoc describes one dynamic (schema-defined)
// component type.
type ComponentDefinitionDoc struct {
	Name    string         `json:"name"`
	Default map[string]any `json:"default_value_map"`
}

// EntityDoc is one entity's full component set.
type EntityDoc struct {
	ID         uint64         `json:"id"`
	Components []ComponentDoc `json:"components"`
}

// ComponentDoc is one component attached to an entity, named by the
// registry's display name rather than by Go type, since the document
// format carries no language-level type information.
type ComponentDoc struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// GraphDoc is the relationship graph's serialized form.
type GraphDoc struct {
	Kind  string    `json:"kind"`
	Nodes []uint64  `json:"nodes"`
	Edges []EdgeDoc `json:"edges"`
}

// EdgeDoc is one relationship edge.
type EdgeDoc struct {
	U        uint64         `json:"u"`
	V        uint64         `json:"v"`
	Directed bool           `json:"directed"`
	Attrs    map[string]any `json:"attrs"`
}

// Serialize walks every live entity and the relationship graph of w
// into a Document. Component values are read back by their registered
// display name; a static component registered without a name is
// skipped, since the document format has no other way to address it on
// the way back in.
func Serialize(w *World) (*Document, error) {
	doc := &Document{NextEntityID: w.directory.NextIndex()}

	for _, ct := range w.registry.Types() {
		if ct.IsDynamic() {
			doc.ComponentDefinitions = append(doc.ComponentDefinitions, ComponentDefinitionDoc{
				Name:    ct.Name(),
				Default: ct.Defaults(),
			})
		}
	}

	for _, id := range w.LiveEntities() {
		arch, row, ok := w.directory.Resolve(id)
		if !ok {
			continue
		}
		ed := EntityDoc{ID: uint64(id)}
		for _, bit := range arch.Signature().Bits() {
			ct, ok := w.registry.TypeByID(ComponentTypeID(bit))
			if !ok || ct.Name() == "" {
				continue
			}
			data, ok := componentValueAt(arch, row, ct)
			if !ok {
				continue
			}
			ed.Components = append(ed.Components, ComponentDoc{Type: ct.Name(), Data: data})
		}
		doc.Entities = append(doc.Entities, ed)
	}

	doc.Graph = serializeGraph(w.graph)
	return doc, nil
}

func serializeGraph(g *RelationshipGraph) GraphDoc {
	edges := g.AllEdges()
	hasDirected, hasUndirected := false, false
	gd := GraphDoc{}
	for _, id := range g.NodeIDs() {
		gd.Nodes = append(gd.Nodes, uint64(id))
	}
	for _, e := range edges {
		if e.Kind == Directed {
			hasDirected = true
		} else {
			hasUndirected = true
		}
		gd.Edges = append(gd.Edges, EdgeDoc{
			U:        uint64(e.From),
			V:        uint64(e.To),
			Directed: e.Kind == Directed,
			Attrs:    e.Attrs,
		})
	}
	switch {
	case hasDirected && hasUndirected:
		gd.Kind = "mixed"
	case hasUndirected:
		gd.Kind = "undirected"
	default:
		gd.Kind = "directed"
	}
	return gd
}

// Deserialize rebuilds a World from doc, sharing registry rather than
// minting a fresh one. registry must already carry every static
// component type the document references, registered by name — the
// document itself carries no language-level type information, so the
// round-trip contract requires the caller to pre-register exactly
// those types it expects to read back, per the statically-known-types
// caveat. Dynamic component definitions are defined on registry here,
// skipping any name registry already knows about.
func Deserialize(doc *Document, registry *ComponentRegistry) (*World, error) {
	for _, def := range doc.ComponentDefinitions {
		if _, exists := registry.LookupByName(def.Name); exists {
			continue
		}
		if _, err := registry.DefineDynamic(def.Name, def.Default); err != nil {
			return nil, err
		}
	}

	world := NewWorldWithRegistry(registry.Schema(), registry)

	nameToID := make(map[string]ComponentTypeID)
	for _, ct := range registry.Types() {
		if ct.Name() != "" {
			nameToID[ct.Name()] = ct.ID()
		}
	}

	idMap := make(map[uint64]EntityID, len(doc.Entities))
	for _, ed := range doc.Entities {
		entity, err := world.CreateEntity()
		if err != nil {
			return nil, err
		}
		idMap[ed.ID] = entity.ID()

		for _, cd := range ed.Components {
			ctID, ok := nameToID[cd.Type]
			if !ok {
				return nil, UnknownComponentTypeError{Name: cd.Type}
			}
			ct, _ := world.Registry().TypeByID(ctID)

			var value any
			if ct.IsDynamic() {
				m, ok := cd.Data.(map[string]any)
				if !ok && cd.Data != nil {
					return nil, TypeMismatchError{TypeName: cd.Type}
				}
				value = m
			} else {
				decoded, err := decodeStatic(cd.Data, ct.Elem().Type())
				if err != nil {
					return nil, TypeMismatchError{TypeName: cd.Type, Cause: err}
				}
				value = decoded
			}
			if err := entity.AddComponent(ct.Elem(), value); err != nil {
				return nil, err
			}
		}
	}

	for _, ed := range doc.Graph.Edges {
		u, uok := idMap[ed.U]
		v, vok := idMap[ed.V]
		if !uok || !vok {
			continue
		}
		if ed.Directed {
			if _, err := world.Graph().AddDirected(u, v, ed.Attrs); err != nil {
				return nil, err
			}
		} else {
			if _, err := world.Graph().AddUndirected(u, v, ed.Attrs); err != nil {
				return nil, err
			}
		}
	}

	return world, nil
}

// decodeStatic round-trips data (typically a map[string]any produced
// by decoding generic JSON) through the standard library's json
// package into a fresh value of type t, since the document format
// erases the original Go type on the way out.
func decodeStatic(data any, t reflect.Type) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
