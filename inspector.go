package archon

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// WorldStatus is the snapshot world_status() in the inspection
// interface reports.
type WorldStatus struct {
	Tick               uint64
	Delta              float64
	Paused             bool
	EntityCount        int
	ArchetypeCount     int
	ComponentTypeCount int
	SystemCount        int
}

// ComponentTypeInfo is one entry of list_component_types().
type ComponentTypeInfo struct {
	Name  string
	Owner string
}

// ComponentInfo is one entry of entity_components(id), describing a
// single component attached to an entity.
type ComponentInfo struct {
	TypeName  string
	Data      any
	IsDynamic bool
	Owner     string
}

// Inspector is the Go-level surface a REST layer (or any other
// out-of-process driver) would wrap: every call here is safe to expose
// verbatim as an endpoint, since it never panics on caller-supplied
// names or ids — unknown input always comes back as an error or a
// false/empty result rather than a crash.
type Inspector struct {
	world    *World
	driver   *Driver
	services *ServiceTable
}

// NewInspector builds an Inspector over world, driver and an optional
// service table (nil is fine if the host never registers services).
func NewInspector(world *World, driver *Driver, services *ServiceTable) *Inspector {
	return &Inspector{world: world, driver: driver, services: services}
}

// Services returns the inspector's service table, creating one lazily
// with room for 32 entries if none was supplied at construction.
func (insp *Inspector) Services() *ServiceTable {
	if insp.services == nil {
		insp.services = NewServiceTable(32)
	}
	return insp.services
}

// WorldStatus reports the world's current vitals.
func (insp *Inspector) WorldStatus() WorldStatus {
	return WorldStatus{
		Tick:               insp.driver.TickCount(),
		Delta:              insp.driver.LastDelta(),
		Paused:             insp.driver.IsPaused(),
		EntityCount:        insp.world.directory.Len(),
		ArchetypeCount:     len(insp.world.Archetypes()),
		ComponentTypeCount: len(insp.world.Registry().Types()),
		SystemCount:        len(insp.driver.ListSystems()),
	}
}

// ListSystems delegates to the driver.
func (insp *Inspector) ListSystems() []SystemInfo {
	return insp.driver.ListSystems()
}

// EnableSystem delegates to the driver.
func (insp *Inspector) EnableSystem(name string) bool {
	return insp.driver.EnableSystem(name)
}

// DisableSystem delegates to the driver.
func (insp *Inspector) DisableSystem(name string) bool {
	return insp.driver.DisableSystem(name)
}

// ListComponentTypes reports every named component type, static or
// dynamic, in ascending registration order.
func (insp *Inspector) ListComponentTypes() []ComponentTypeInfo {
	types := insp.world.Registry().Types()
	out := make([]ComponentTypeInfo, 0, len(types))
	for _, ct := range types {
		if ct.Name() == "" {
			continue
		}
		out = append(out, ComponentTypeInfo{Name: ct.Name(), Owner: ct.Owner()})
	}
	return out
}

// ListEntities reports every currently live entity id.
func (insp *Inspector) ListEntities() []EntityID {
	return insp.world.LiveEntities()
}

// EntityComponents reports every component attached to id, by name.
// Data is nil for a component that cannot be read back generically
// (e.g. a static type whose value failed to resolve).
func (insp *Inspector) EntityComponents(id EntityID) ([]ComponentInfo, error) {
	arch, row, ok := insp.world.directory.Resolve(id)
	if !ok {
		return nil, StaleEntityError{ID: id}
	}
	var out []ComponentInfo
	for _, bit := range arch.Signature().Bits() {
		ct, ok := insp.world.Registry().TypeByID(ComponentTypeID(bit))
		if !ok || ct.Name() == "" {
			continue
		}
		info := ComponentInfo{TypeName: ct.Name(), IsDynamic: ct.IsDynamic(), Owner: ct.Owner()}
		if value, ok := componentValueAt(arch, row, ct); ok && isJSONSerializable(value) {
			info.Data = value
		}
		out = append(out, info)
	}
	return out, nil
}

// CreateEntity creates a bare entity with no components.
func (insp *Inspector) CreateEntity() (EntityID, error) {
	e, err := insp.world.CreateEntity()
	if err != nil {
		return 0, err
	}
	return e.ID(), nil
}

// DestroyEntity destroys id.
func (insp *Inspector) DestroyEntity(id EntityID) error {
	return insp.world.DestroyEntity(id)
}

// SetComponentByName looks up typeName in the registry and applies
// payload to id, applying the single-field `value` compatibility shim:
// a component whose sole field is named "value" accepts a bare payload
// shaped like that field's own value and wraps it automatically.
func (insp *Inspector) SetComponentByName(id EntityID, typeName string, payload map[string]any) error {
	typeID, ok := insp.world.Registry().LookupByName(typeName)
	if !ok {
		return UnknownComponentTypeError{Name: typeName}
	}
	ct, _ := insp.world.Registry().TypeByID(typeID)

	if ct.IsDynamic() {
		return insp.world.AddComponent(id, ct.Elem(), payload)
	}

	elemType := ct.Elem().Type()
	shimmed := applyValueShim(elemType, payload)
	decoded, err := decodeStatic(shimmed, elemType)
	if err != nil {
		return TypeMismatchError{TypeName: typeName, Cause: err}
	}
	return insp.world.AddComponent(id, ct.Elem(), decoded)
}

// RemoveComponentByName removes typeName from id, reporting false if no
// type by that name is known or the removal fails (e.g. a stale id).
func (insp *Inspector) RemoveComponentByName(id EntityID, typeName string) bool {
	typeID, ok := insp.world.Registry().LookupByName(typeName)
	if !ok {
		return false
	}
	ct, _ := insp.world.Registry().TypeByID(typeID)
	return insp.world.RemoveComponent(id, ct.Elem()) == nil
}

// SetDynamic defines name on first use (with no defaults) and attaches
// payload to id.
func (insp *Inspector) SetDynamic(id EntityID, name string, payload map[string]any) error {
	typeID, ok := insp.world.Registry().LookupByName(name)
	if !ok {
		var err error
		typeID, err = insp.world.Registry().DefineDynamic(name, nil)
		if err != nil {
			return err
		}
	}
	ct, _ := insp.world.Registry().TypeByID(typeID)
	if !ct.IsDynamic() {
		return TypeMismatchError{TypeName: name, Cause: UnknownComponentTypeError{Name: name}}
	}
	return insp.world.AddComponent(id, ct.Elem(), payload)
}

// GetDynamic reads the dynamic component named name on id.
func (insp *Inspector) GetDynamic(id EntityID, name string) (map[string]any, bool) {
	typeID, ok := insp.world.Registry().LookupByName(name)
	if !ok {
		return nil, false
	}
	ct, _ := insp.world.Registry().TypeByID(typeID)
	if !ct.IsDynamic() {
		return nil, false
	}
	arch, row, ok := insp.world.directory.Resolve(id)
	if !ok {
		return nil, false
	}
	return arch.DynamicValue(ct.ID(), row)
}

// RemoveDynamic removes the dynamic component named name from id.
func (insp *Inspector) RemoveDynamic(id EntityID, name string) error {
	typeID, ok := insp.world.Registry().LookupByName(name)
	if !ok {
		return UnknownComponentTypeError{Name: name}
	}
	ct, _ := insp.world.Registry().TypeByID(typeID)
	return insp.world.RemoveComponent(id, ct.Elem())
}

// QueryDynamic returns every entity carrying all of the named dynamic
// components, unknown names simply matching nothing.
func (insp *Inspector) QueryDynamic(names []string) []EntityID {
	if len(names) == 0 {
		return nil
	}
	elems := make([]Component, 0, len(names))
	for _, name := range names {
		typeID, ok := insp.world.Registry().LookupByName(name)
		if !ok {
			return nil
		}
		ct, _ := insp.world.Registry().TypeByID(typeID)
		elems = append(elems, ct.Elem())
	}

	node := NewQuery().And(elems)
	cursor := newCursor(node, insp.world)
	defer cursor.Reset()

	var out []EntityID
	for cursor.Next() {
		entity, err := cursor.CurrentEntity()
		if err != nil {
			continue
		}
		out = append(out, entity.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// applyValueShim wraps payload under a struct's sole field name when
// that field is called "value" (any case) and payload does not already
// carry a key by that name, so `{x,y,z}` can address a component shaped
// `{value: Vec3}` without the caller knowing the wrapper field exists.
func applyValueShim(t reflect.Type, payload map[string]any) map[string]any {
	if t.Kind() != reflect.Struct || t.NumField() != 1 {
		return payload
	}
	field := t.Field(0)
	if !strings.EqualFold(field.Name, "value") {
		return payload
	}
	for k := range payload {
		if strings.EqualFold(k, field.Name) {
			return payload
		}
	}
	return map[string]any{field.Name: payload}
}

func isJSONSerializable(v any) bool {
	_, err := json.Marshal(v)
	return err == nil
}
