package archon

import (
	"github.com/ninthtower/archon/mask"
	"github.com/ninthtower/archon/table"
)

type archetypeID uint32

// Archetype is a single component-signature's storage block: a
// columnar table.Table for every statically-typed component, plus,
// for archetypes that carry dynamic (schema-defined) components, a
// side table of property-bag columns kept in lockstep with the
// table's row order.
type Archetype struct {
	id        archetypeID
	table     *table.Table
	signature mask.Mask
	dynamic   map[ComponentTypeID][]map[string]any
	dynIDs    []ComponentTypeID
	entities  []EntityID
}

func newArchetype(
	schema *table.Schema,
	ei *table.EntryIndex,
	id archetypeID,
	sig mask.Mask,
	statics []table.ElementType,
	dynIDs []ComponentTypeID,
	events table.TableEvents,
) (*Archetype, error) {
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(ei).
		WithElementTypes(statics...).
		WithEvents(events).
		Build()
	if err != nil {
		return nil, err
	}
	a := &Archetype{id: id, table: tbl, signature: sig, dynIDs: dynIDs}
	if len(dynIDs) > 0 {
		a.dynamic = make(map[ComponentTypeID][]map[string]any, len(dynIDs))
		for _, did := range dynIDs {
			a.dynamic[did] = nil
		}
	}
	return a, nil
}

// ID returns the archetype's process-stable identifier.
func (a *Archetype) ID() uint32 { return uint32(a.id) }

// Table returns the underlying columnar storage for static components.
func (a *Archetype) Table() *table.Table { return a.table }

// Signature returns the archetype's component bitmask.
func (a *Archetype) Signature() mask.Mask { return a.signature }

// HasDynamic reports whether this archetype carries the given dynamic
// component type.
func (a *Archetype) HasDynamic(id ComponentTypeID) bool {
	_, ok := a.dynamic[id]
	return ok
}

// DynamicValue returns the dynamic component value at row for the
// given type id, if present.
func (a *Archetype) DynamicValue(id ComponentTypeID, row int) (map[string]any, bool) {
	col, ok := a.dynamic[id]
	if !ok || row < 0 || row >= len(col) {
		return nil, false
	}
	return col[row], true
}

// SetDynamicValue overwrites the dynamic component value at row.
func (a *Archetype) SetDynamicValue(id ComponentTypeID, row int, value map[string]any) {
	if _, ok := a.dynamic[id]; !ok {
		return
	}
	a.dynSet(id, row, value)
}

func (a *Archetype) dynSet(id ComponentTypeID, row int, value map[string]any) {
	col := a.dynamic[id]
	if row == len(col) {
		a.dynamic[id] = append(col, value)
		return
	}
	for len(col) <= row {
		col = append(col, nil)
	}
	col[row] = value
	a.dynamic[id] = col
}

// NewRow appends one row owned by id, seeding any dynamic component
// columns from dyn (nil entries are left unset).
func (a *Archetype) NewRow(id EntityID, dyn map[ComponentTypeID]map[string]any) (table.Entry, error) {
	entries, err := a.table.NewEntries(1)
	if err != nil {
		return nil, err
	}
	e := entries[0]
	row := e.Index()
	for _, did := range a.dynIDs {
		var v map[string]any
		if dyn != nil {
			v = dyn[did]
		}
		a.dynSet(did, row, v)
	}
	if row == len(a.entities) {
		a.entities = append(a.entities, id)
	} else {
		for len(a.entities) <= row {
			a.entities = append(a.entities, 0)
		}
		a.entities[row] = id
	}
	return e, nil
}

// EntityAt returns the id of the entity occupying row, the owning
// entity handle's counterpart to table.Table.Entry.
func (a *Archetype) EntityAt(row int) (EntityID, bool) {
	if row < 0 || row >= len(a.entities) {
		return 0, false
	}
	return a.entities[row], true
}

// componentValueAt reads ct's value for the entity at row in arch, used
// by both serialization and inspection so the two surfaces agree on
// what a component "looks like" from the outside.
func componentValueAt(arch *Archetype, row int, ct *ComponentType) (any, bool) {
	if ct.IsDynamic() {
		v, ok := arch.DynamicValue(ct.ID(), row)
		return v, ok
	}
	col, err := arch.table.Row(ct.Elem())
	if err != nil {
		return nil, false
	}
	return col.Index(row).Interface(), true
}

// DeleteRow removes the row belonging to id via swap-remove, keeping
// dynamic columns and the owning-entity index in lockstep with the
// underlying table, and reports the entry that moved into id's former
// row, if any.
func (a *Archetype) DeleteRow(id table.EntryID) (*table.MovedEntry, error) {
	row, ok := a.table.RowOf(id)
	if !ok {
		return nil, nil
	}
	lastRow := a.table.Length() - 1

	moved, err := a.table.DeleteEntries(int(id))
	if err != nil {
		return nil, err
	}
	a.swapRemoveSideColumns(row, lastRow)

	if len(moved) > 0 {
		return &moved[0], nil
	}
	return nil, nil
}

func (a *Archetype) swapRemoveSideColumns(row, lastRow int) {
	for _, did := range a.dynIDs {
		col := a.dynamic[did]
		if row >= len(col) {
			continue
		}
		if row != lastRow {
			col[row] = col[lastRow]
		}
		if lastRow < len(col) {
			col = col[:lastRow]
		}
		a.dynamic[did] = col
	}
	if row < len(a.entities) {
		if row != lastRow && lastRow < len(a.entities) {
			a.entities[row] = a.entities[lastRow]
		}
		if lastRow < len(a.entities) {
			a.entities = a.entities[:lastRow]
		}
	}
}

// TransferRow moves the row at the given index into dest, preserving
// overlapping dynamic columns, the owning entity id, and seeding any
// newly-added dynamic component from newDyn.
func (a *Archetype) TransferRow(dest *Archetype, row int, newDyn map[ComponentTypeID]map[string]any) error {
	lastRow := a.table.Length() - 1

	srcDyn := make(map[ComponentTypeID]map[string]any, len(a.dynIDs))
	for _, did := range a.dynIDs {
		if col := a.dynamic[did]; row < len(col) {
			srcDyn[did] = col[row]
		}
	}
	entityID, _ := a.EntityAt(row)

	if err := a.table.TransferEntries(dest.table, row); err != nil {
		return err
	}

	destRow := dest.table.Length() - 1
	for _, did := range dest.dynIDs {
		v, carried := srcDyn[did]
		if !carried && newDyn != nil {
			v = newDyn[did]
		}
		dest.dynSet(did, destRow, v)
	}
	if destRow == len(dest.entities) {
		dest.entities = append(dest.entities, entityID)
	} else {
		for len(dest.entities) <= destRow {
			dest.entities = append(dest.entities, 0)
		}
		dest.entities[destRow] = entityID
	}

	a.swapRemoveSideColumns(row, lastRow)
	return nil
}

// ArchetypeStore owns every archetype in a world, canonicalized by
// signature: two archetypes with equal bitmasks are always the same
// object.
type ArchetypeStore struct {
	nextID     archetypeID
	bySig      map[string]*Archetype
	list       []*Archetype
	generation uint64
}

func newArchetypeStore() *ArchetypeStore {
	return &ArchetypeStore{nextID: 1, bySig: make(map[string]*Archetype)}
}

// FindOrCreate canonicalizes sig and returns its archetype, creating
// one (and splitting its component ids into static table columns vs.
// dynamic side-columns via the registry) if it doesn't exist yet.
// Creation never touches existing archetypes.
func (s *ArchetypeStore) FindOrCreate(
	sig mask.Mask,
	registry *ComponentRegistry,
	schema *table.Schema,
	ei *table.EntryIndex,
	events table.TableEvents,
) (*Archetype, error) {
	key := sig.Key()
	if a, ok := s.bySig[key]; ok {
		return a, nil
	}

	var statics []table.ElementType
	var dynIDs []ComponentTypeID
	for _, bit := range sig.Bits() {
		ctID := ComponentTypeID(bit)
		ct, ok := registry.TypeByID(ctID)
		if !ok {
			continue
		}
		if ct.IsDynamic() {
			dynIDs = append(dynIDs, ctID)
		} else {
			statics = append(statics, ct.Elem())
		}
	}

	arch, err := newArchetype(schema, ei, s.nextID, sig, statics, dynIDs, events)
	if err != nil {
		return nil, err
	}
	s.bySig[key] = arch
	s.list = append(s.list, arch)
	s.nextID++
	s.generation++
	return arch, nil
}

// RetireIfEmpty removes a from the store if it currently holds no
// rows, notifying the query cache via the bumped generation counter.
func (s *ArchetypeStore) RetireIfEmpty(a *Archetype) {
	if a.table.Length() > 0 {
		return
	}
	key := a.signature.Key()
	if _, ok := s.bySig[key]; !ok {
		return
	}
	delete(s.bySig, key)
	for i, x := range s.list {
		if x == a {
			s.list = append(s.list[:i], s.list[i+1:]...)
			break
		}
	}
	s.generation++
}

// All returns every archetype currently live in the store.
func (s *ArchetypeStore) All() []*Archetype {
	return s.list
}

// Generation is bumped on every creation or retirement, used by the
// query cache's invalidation key.
func (s *ArchetypeStore) Generation() uint64 {
	return s.generation
}
