package archon

import (
	"fmt"
	"reflect"

	"github.com/ninthtower/archon/mask"
	"github.com/ninthtower/archon/table"
)

// World is the Mutation Engine: the sole writer of archetype state.
// Every structural change — adding or removing a component, creating
// or destroying an entity — goes through one of its methods, which
// enforce the directory/archetype invariants that every other package
// in archon assumes hold.
type World struct {
	schema     *table.Schema
	entryIndex *table.EntryIndex
	registry   *ComponentRegistry
	directory  *EntityDirectory
	archetypes *ArchetypeStore
	events     table.TableEvents

	locks       mask.Mask256
	nextLockBit uint32

	queue *entityOperationsQueue
	cache *queryCache
	graph *RelationshipGraph
}

// NewWorld creates an empty world sharing schema with every table its
// archetypes build. schema should not be reused by a second, unrelated
// World.
func NewWorld(schema *table.Schema) *World {
	return NewWorldWithRegistry(schema, NewComponentRegistry(schema))
}

// NewWorldWithRegistry creates an empty world bound to a caller-supplied
// registry rather than a fresh one, so a registry populated ahead of
// time (every static component type pre-registered by name) can be
// handed to a new World wholesale. Deserialize uses this to restore a
// world whose static component names resolve back to the caller's Go
// types instead of being reconstructed from the document alone.
func NewWorldWithRegistry(schema *table.Schema, registry *ComponentRegistry) *World {
	ei := table.NewEntryIndex()
	archetypes := newArchetypeStore()
	events := Config.tableEvents

	if _, err := archetypes.FindOrCreate(mask.Mask{}, registry, schema, ei, events); err != nil {
		panic("archon: failed to create empty-signature archetype: " + err.Error())
	}

	directory := NewEntityDirectory()
	graph := newRelationshipGraph()
	graph.bindLiveness(directory.Alive)

	return &World{
		schema:     schema,
		entryIndex: ei,
		registry:   registry,
		directory:  directory,
		archetypes: archetypes,
		events:     events,
		queue:      &entityOperationsQueue{},
		cache:      newQueryCache(),
		graph:      graph,
	}
}

// Registry returns the world's component registry.
func (w *World) Registry() *ComponentRegistry { return w.registry }

// Graph returns the world's relationship graph.
func (w *World) Graph() *RelationshipGraph { return w.graph }

// Archetypes returns every archetype currently live in the world.
func (w *World) Archetypes() []*Archetype { return w.archetypes.All() }

// Register assigns (or returns the existing) ComponentTypeID for c.
func (w *World) Register(c Component) ComponentTypeID {
	return w.registry.Register(ComponentDescriptor{Elem: c})
}

// Lock marks one unit of in-progress iteration, returning a token that
// must be passed to Unlock when the iteration completes. While any
// lock is held, structural mutations are rejected with
// ConcurrentMutationError instead of being applied.
func (w *World) Lock() uint32 {
	bit := w.nextLockBit
	w.nextLockBit = (w.nextLockBit + 1) % 256
	w.locks.Mark(bit)
	return bit
}

// Unlock releases a token returned by Lock. Once no lock remains held,
// any operations queued while the world was locked are flushed.
func (w *World) Unlock(bit uint32) error {
	w.locks.Unmark(bit)
	if w.Locked() {
		return nil
	}
	return w.queue.ProcessAll(w)
}

// Locked reports whether any iteration currently holds a lock.
func (w *World) Locked() bool {
	return !w.locks.IsEmpty()
}

// Flush applies every operation enqueued via the Enqueue* methods (a
// CommandBuffer is applied by its own Flush instead). It is a no-op
// (and returns nil) while the world is locked.
func (w *World) Flush() error {
	return w.queue.ProcessAll(w)
}

// CreateEntity registers a new entity in the empty-signature archetype.
// The archetype is resolved via FindOrCreate on every call rather than
// a cached pointer, since the empty-signature archetype can retire
// (RetireIfEmpty, when the last entity in it moves away) and be
// re-minted as a new object; going through FindOrCreate always lands
// on whichever object is currently canonical for mask.Mask{}.
func (w *World) CreateEntity() (Entity, error) {
	if w.Locked() {
		return nil, ConcurrentMutationError{Op: "CreateEntity"}
	}
	arch, err := w.archetypes.FindOrCreate(mask.Mask{}, w.registry, w.schema, w.entryIndex, w.events)
	if err != nil {
		return nil, err
	}
	id := w.directory.Create()
	entry, err := arch.NewRow(id, nil)
	if err != nil {
		return nil, err
	}
	w.directory.SetLocation(id, arch, entry.ID())
	return &entityHandle{id: id, world: w}, nil
}

// NewEntities creates n entities sharing the same initial component
// set, each column left zero-valued. It is a batch convenience on top
// of CreateEntity + AddComponent, avoiding one archetype lookup and
// transfer per entity when the caller already knows the target shape.
func (w *World) NewEntities(n int, components ...Component) ([]Entity, error) {
	if n <= 0 {
		return nil, InvalidArgumentError{Arg: "n", Reason: "must be positive"}
	}
	if w.Locked() {
		return nil, ConcurrentMutationError{Op: "NewEntities"}
	}

	var sig mask.Mask
	for _, c := range components {
		id := w.registry.Register(ComponentDescriptor{Elem: c})
		sig.Mark(uint32(id))
	}
	arch, err := w.archetypes.FindOrCreate(sig, w.registry, w.schema, w.entryIndex, w.events)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, n)
	for i := 0; i < n; i++ {
		id := w.directory.Create()
		entry, err := arch.NewRow(id, nil)
		if err != nil {
			return nil, err
		}
		w.directory.SetLocation(id, arch, entry.ID())
		entities[i] = &entityHandle{id: id, world: w}
	}
	w.cache.invalidateAll()
	return entities, nil
}

// Entity resolves id to a handle, failing if it is stale or unknown.
func (w *World) Entity(id EntityID) (Entity, error) {
	if !w.directory.Alive(id) {
		return nil, StaleEntityError{ID: id}
	}
	return &entityHandle{id: id, world: w}, nil
}

// LiveEntities returns the id of every entity currently alive.
func (w *World) LiveEntities() []EntityID {
	return w.directory.Live()
}

// ComponentsOf returns the component type ids an entity currently
// carries, or nil if id is stale.
func (w *World) ComponentsOf(id EntityID) []ComponentTypeID {
	arch, _, ok := w.directory.Resolve(id)
	if !ok {
		return nil
	}
	bits := arch.Signature().Bits()
	ids := make([]ComponentTypeID, len(bits))
	for i, b := range bits {
		ids[i] = ComponentTypeID(b)
	}
	return ids
}

// DestroyEntity swap-removes the entity's row, bumps its directory
// generation, and detaches it from the relationship graph. Because the
// directory tracks a stable table.EntryID rather than a row number,
// the entity swapped into the vacated row needs no patch at all — its
// own entry id never changed, only its row, which EntityDirectory
// resolves fresh on every call.
func (w *World) DestroyEntity(id EntityID) error {
	arch, row, ok := w.directory.Resolve(id)
	if !ok {
		return StaleEntityError{ID: id}
	}
	if w.Locked() {
		return ConcurrentMutationError{Op: "DestroyEntity"}
	}

	tblEntry, err := arch.Table().Entry(row)
	if err != nil {
		return err
	}
	if _, err := arch.DeleteRow(tblEntry.ID()); err != nil {
		return err
	}

	w.directory.Destroy(id)
	w.graph.Detach(id)
	w.archetypes.RetireIfEmpty(arch)
	w.cache.invalidateAll()
	return nil
}

// AddComponent moves the entity to the archetype with its current
// signature plus c's, carrying over every existing value, and sets
// value into the new column. If the entity already carries c, the
// value is overwritten in place and no row moves. The target
// archetype is resolved and the value's shape validated before any row
// is touched, so a TypeMismatchError never leaves a row half-moved; an
// outer recover guards against any other panic during the value move.
func (w *World) AddComponent(id EntityID, c Component, value any) (err error) {
	arch, row, ok := w.directory.Resolve(id)
	if !ok {
		return StaleEntityError{ID: id}
	}
	if w.Locked() {
		return ConcurrentMutationError{Op: "AddComponent"}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("archon: recovered panic in AddComponent: %v", r)
		}
	}()

	ctID := w.registry.Register(ComponentDescriptor{Elem: c})
	ct, _ := w.registry.TypeByID(ctID)

	if arch.Signature().IsSet(uint32(ctID)) {
		if ct.IsDynamic() {
			dv, derr := asDynamicValue(value)
			if derr != nil {
				return derr
			}
			arch.SetDynamicValue(ctID, row, dv)
			return nil
		}
		return setStaticValue(arch.Table(), ct.Elem(), row, value)
	}

	var newDyn map[ComponentTypeID]map[string]any
	if ct.IsDynamic() {
		dv, derr := asDynamicValue(value)
		if derr != nil {
			return derr
		}
		newDyn = map[ComponentTypeID]map[string]any{ctID: dv}
	} else if value != nil {
		if !reflect.TypeOf(value).AssignableTo(ct.Elem().Type()) {
			return TypeMismatchError{TypeName: ct.Elem().Type().String()}
		}
	}

	var newSig mask.Mask
	for _, b := range arch.Signature().Bits() {
		newSig.Mark(b)
	}
	newSig.Mark(uint32(ctID))

	destArch, derr := w.archetypes.FindOrCreate(newSig, w.registry, w.schema, w.entryIndex, w.events)
	if derr != nil {
		return derr
	}

	tblEntry, terr := arch.Table().Entry(row)
	if terr != nil {
		return terr
	}
	tableID := tblEntry.ID()

	if err := arch.TransferRow(destArch, row, newDyn); err != nil {
		return err
	}
	w.directory.SetLocation(id, destArch, tableID)
	w.archetypes.RetireIfEmpty(arch)
	w.cache.invalidateAll()

	if !ct.IsDynamic() && value != nil {
		newRow, _ := destArch.Table().RowOf(tableID)
		return setStaticValue(destArch.Table(), ct.Elem(), newRow, value)
	}
	return nil
}

// RemoveComponent moves the entity to the archetype with its current
// signature minus c's, carrying over every remaining value. A no-op if
// the entity does not currently carry c.
func (w *World) RemoveComponent(id EntityID, c Component) (err error) {
	arch, row, ok := w.directory.Resolve(id)
	if !ok {
		return StaleEntityError{ID: id}
	}
	if w.Locked() {
		return ConcurrentMutationError{Op: "RemoveComponent"}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("archon: recovered panic in RemoveComponent: %v", r)
		}
	}()

	ctID := w.registry.Register(ComponentDescriptor{Elem: c})
	if !arch.Signature().IsSet(uint32(ctID)) {
		return nil
	}

	var newSig mask.Mask
	for _, b := range arch.Signature().Bits() {
		if b == uint32(ctID) {
			continue
		}
		newSig.Mark(b)
	}

	destArch, derr := w.archetypes.FindOrCreate(newSig, w.registry, w.schema, w.entryIndex, w.events)
	if derr != nil {
		return derr
	}

	tblEntry, terr := arch.Table().Entry(row)
	if terr != nil {
		return terr
	}
	tableID := tblEntry.ID()

	if err := arch.TransferRow(destArch, row, nil); err != nil {
		return err
	}
	w.directory.SetLocation(id, destArch, tableID)
	w.archetypes.RetireIfEmpty(arch)
	w.cache.invalidateAll()
	return nil
}

// EnqueueAddComponent defers an AddComponent call to the next Flush
// (or the next Unlock that fully releases the world), for use from
// inside an active query iteration.
func (w *World) EnqueueAddComponent(id EntityID, c Component, value any) error {
	w.queue.Enqueue(AddComponentOperation{id: id, component: c, value: value})
	return nil
}

// EnqueueRemoveComponent defers a RemoveComponent call, see
// EnqueueAddComponent.
func (w *World) EnqueueRemoveComponent(id EntityID, c Component) error {
	w.queue.Enqueue(RemoveComponentOperation{id: id, component: c})
	return nil
}

// EnqueueDestroyEntity defers a DestroyEntity call, see
// EnqueueAddComponent.
func (w *World) EnqueueDestroyEntity(id EntityID) error {
	w.queue.Enqueue(DestroyEntityOperation{id: id})
	return nil
}

// EnqueueNewEntities defers a NewEntities call, see
// EnqueueAddComponent.
func (w *World) EnqueueNewEntities(n int, components ...Component) error {
	w.queue.Enqueue(NewEntityOperation{count: n, components: components})
	return nil
}

// setStaticValue writes value into elem's column at row, failing with
// TypeMismatchError rather than panicking if value's type does not
// match the column.
func setStaticValue(tbl *table.Table, elem table.ElementType, row int, value any) error {
	col, err := tbl.Row(elem)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().AssignableTo(col.Type().Elem()) {
		return TypeMismatchError{TypeName: elem.Type().String()}
	}
	col.Index(row).Set(v)
	return nil
}

// asDynamicValue coerces a value passed for a dynamic (schema-defined)
// component into its property-bag representation.
func asDynamicValue(value any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, TypeMismatchError{TypeName: "map[string]any"}
	}
	return m, nil
}
