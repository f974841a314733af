package archon

import (
	"github.com/kamstrup/intmap"

	"github.com/ninthtower/archon/table"
)

// EntityID packs a 32-bit index and a 32-bit generation counter into a
// single comparable value; two incarnations of the same index are
// never equal once the generation has advanced.
type EntityID uint64

func packEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

// Index returns the packed row index.
func (id EntityID) Index() uint32 { return uint32(id) }

// Generation returns the packed generation counter.
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }

// entityRecord stores the archetype an entity currently lives in and
// the stable table.EntryID of its row within that archetype's table.
// The row number itself is never stored here — it is resolved on
// demand via the table, which keeps it current across swap-removes
// without the directory having to patch every displaced entity.
type entityRecord struct {
	archetype *Archetype
	tableID   table.EntryID
}

type entitySlot struct {
	generation uint32
	alive      bool
}

// retireThreshold bounds the generation counter; an index that reaches
// it is never recycled again, trading a permanently dead slot for the
// guarantee that generation never wraps and aliases a live handle.
const retireThreshold = 1<<31 - 1

// EntityDirectory maps an EntityID to its current (archetype, row) and
// tracks the per-index generation counter used to reject stale
// handles, backed by an integer-keyed map rather than a built-in Go
// map for the id→location lookup.
type EntityDirectory struct {
	slots   []entitySlot
	free    []uint32
	records *intmap.Map[uint64, entityRecord]
}

// NewEntityDirectory creates an empty directory.
func NewEntityDirectory() *EntityDirectory {
	return &EntityDirectory{records: intmap.New[uint64, entityRecord](256)}
}

// Create allocates a fresh or recycled index and returns its id
// stamped with the index's current generation.
func (d *EntityDirectory) Create() EntityID {
	var index uint32
	if n := len(d.free); n > 0 {
		index = d.free[n-1]
		d.free = d.free[:n-1]
	} else {
		index = uint32(len(d.slots))
		d.slots = append(d.slots, entitySlot{})
	}
	d.slots[index].alive = true
	return packEntityID(index, d.slots[index].generation)
}

// SetLocation records which archetype and table row an entity
// currently occupies.
func (d *EntityDirectory) SetLocation(id EntityID, archetype *Archetype, tableID table.EntryID) {
	d.records.Put(uint64(id), entityRecord{archetype: archetype, tableID: tableID})
}

// Resolve returns the entity's current archetype and row, or ok=false
// if id is stale or unknown. The row is looked up fresh from the
// archetype's table on every call, so it is always correct even after
// an unrelated swap-remove moved the row.
func (d *EntityDirectory) Resolve(id EntityID) (archetype *Archetype, row int, ok bool) {
	if !d.Alive(id) {
		return nil, 0, false
	}
	rec, found := d.records.Get(uint64(id))
	if !found {
		return nil, 0, false
	}
	row, found = rec.archetype.table.RowOf(rec.tableID)
	if !found {
		return nil, 0, false
	}
	return rec.archetype, row, true
}

// TableID returns the stable table.EntryID backing id's current row,
// or ok=false if id is stale or unknown.
func (d *EntityDirectory) TableID(id EntityID) (tableID table.EntryID, ok bool) {
	if !d.Alive(id) {
		return 0, false
	}
	rec, found := d.records.Get(uint64(id))
	if !found {
		return 0, false
	}
	return rec.tableID, true
}

// Alive reports whether id's generation matches the directory's
// current record for its index.
func (d *EntityDirectory) Alive(id EntityID) bool {
	idx := id.Index()
	return int(idx) < len(d.slots) && d.slots[idx].alive && d.slots[idx].generation == id.Generation()
}

// Destroy marks id dead, bumps its index's generation (retiring it
// instead if that would overflow), and drops its location record.
func (d *EntityDirectory) Destroy(id EntityID) {
	idx := id.Index()
	if int(idx) >= len(d.slots) || !d.slots[idx].alive || d.slots[idx].generation != id.Generation() {
		return
	}
	s := &d.slots[idx]
	s.alive = false
	d.records.Del(uint64(id))
	if s.generation < retireThreshold {
		s.generation++
		d.free = append(d.free, idx)
	}
}

// Len returns the number of currently live entities.
func (d *EntityDirectory) Len() int {
	return d.records.Len()
}

// NextIndex returns the index Create would allocate if no recycled
// slot were available, used by serialization to report next_entity_id.
func (d *EntityDirectory) NextIndex() uint32 {
	return uint32(len(d.slots))
}

// Live returns every currently alive entity id.
func (d *EntityDirectory) Live() []EntityID {
	out := make([]EntityID, 0, len(d.slots)-len(d.free))
	for idx, s := range d.slots {
		if s.alive {
			out = append(out, packEntityID(uint32(idx), s.generation))
		}
	}
	return out
}

// EntityDestroyCallback is invoked when an entity is destroyed.
type EntityDestroyCallback func(Entity)

// Entity is a handle to a row owned by a World. All mutation calls are
// thin proxies onto the owning World (the Mutation Engine), so an
// Entity never holds archetype state of its own beyond its id. Index
// and Table mirror table.Entry's shape (without embedding it, since
// its EntryID-typed ID() would collide with EntityID-typed ID() here)
// so a table.Accessor[T] can be driven directly off an Entity.
type Entity interface {
	ID() EntityID
	Index() int
	Table() *table.Table
	Recycled() int

	Valid() bool
	World() *World

	Components() []ComponentTypeID
	AddComponent(c Component, value any) error
	RemoveComponent(c Component) error
	EnqueueAddComponent(c Component, value any) error
	EnqueueRemoveComponent(c Component) error
}

// entityHandle is the concrete Entity implementation returned by World.
type entityHandle struct {
	id    EntityID
	world *World
}

var _ Entity = &entityHandle{}

func (e *entityHandle) ID() EntityID { return e.id }

func (e *entityHandle) Valid() bool { return e.world.directory.Alive(e.id) }

func (e *entityHandle) World() *World { return e.world }

// Index mirrors table.Entry's Index by resolving the entity's current
// row through the owning World's directory.
func (e *entityHandle) Index() int {
	_, row, ok := e.world.directory.Resolve(e.id)
	if !ok {
		return -1
	}
	return row
}

// Recycled mirrors table.Entry's Recycled, reporting the entity id's
// generation.
func (e *entityHandle) Recycled() int {
	return int(e.id.Generation())
}

// Table mirrors table.Entry's Table by resolving the entity's current
// archetype table through the owning World's directory.
func (e *entityHandle) Table() *table.Table {
	arch, _, ok := e.world.directory.Resolve(e.id)
	if !ok {
		return nil
	}
	return arch.table
}

func (e *entityHandle) Components() []ComponentTypeID {
	return e.world.ComponentsOf(e.id)
}

func (e *entityHandle) AddComponent(c Component, value any) error {
	return e.world.AddComponent(e.id, c, value)
}

func (e *entityHandle) RemoveComponent(c Component) error {
	return e.world.RemoveComponent(e.id, c)
}

func (e *entityHandle) EnqueueAddComponent(c Component, value any) error {
	return e.world.EnqueueAddComponent(e.id, c, value)
}

func (e *entityHandle) EnqueueRemoveComponent(c Component) error {
	return e.world.EnqueueRemoveComponent(e.id, c)
}
