package table

import "fmt"

// Entry is a stable handle to a single row somewhere in a table
// family. Index and Table reflect the row's *current* location, which
// changes as swap-removes shuffle rows around; Recycled is the
// generation counter that lets holders of a stale copy detect that
// their slot has since been reused.
type Entry interface {
	ID() EntryID
	Index() int
	Recycled() int
	Table() *Table
}

// EntryID identifies a slot in an EntryIndex. IDs are 1-based so the
// zero value can mean "no entry".
type EntryID uint32

// retireThreshold bounds the recycled counter; a slot that reaches it
// is never handed back out, trading a permanently dead slot for the
// guarantee that generation never wraps and aliases a live handle.
const retireThreshold = 1<<31 - 1

type entrySlot struct {
	recycled int
	table    *Table
	index    int
	alive    bool
}

// EntryIndex is the process-wide directory of entry slots. A single
// EntryIndex is normally shared by every Table in a world, so every
// archetype's table draws row bookkeeping from the same pool.
type EntryIndex struct {
	slots []entrySlot
	free  []uint32
}

// NewEntryIndex creates an empty entry index.
func NewEntryIndex() *EntryIndex {
	return &EntryIndex{}
}

// Allocate claims a slot (recycled if one is free) pointing at the
// given table/row and returns its id.
func (ei *EntryIndex) Allocate(tbl *Table, index int) EntryID {
	if n := len(ei.free); n > 0 {
		slotIdx := ei.free[n-1]
		ei.free = ei.free[:n-1]
		s := &ei.slots[slotIdx]
		s.table = tbl
		s.index = index
		s.alive = true
		return EntryID(slotIdx + 1)
	}
	ei.slots = append(ei.slots, entrySlot{table: tbl, index: index, alive: true})
	return EntryID(len(ei.slots))
}

// Release marks id dead and bumps its generation. Slots that would
// overflow retireThreshold are not returned to the free list.
func (ei *EntryIndex) Release(id EntryID) {
	s := ei.slot(id)
	if s == nil {
		return
	}
	s.alive = false
	s.table = nil
	s.index = -1
	if s.recycled < retireThreshold {
		s.recycled++
		ei.free = append(ei.free, uint32(id-1))
	}
}

// SetLocation updates where a live entry currently resides, used when
// a swap-remove or transfer moves a row.
func (ei *EntryIndex) SetLocation(id EntryID, tbl *Table, index int) {
	s := ei.slot(id)
	if s == nil {
		return
	}
	s.table = tbl
	s.index = index
}

func (ei *EntryIndex) slot(id EntryID) *entrySlot {
	if id == 0 || int(id) > len(ei.slots) {
		return nil
	}
	return &ei.slots[id-1]
}

// Entry resolves id to a live handle, or an error if id is out of
// range or has been destroyed (and possibly recycled into a different
// incarnation).
func (ei *EntryIndex) Entry(id EntryID) (Entry, error) {
	s := ei.slot(id)
	if s == nil || !s.alive {
		return nil, fmt.Errorf("table: entry %d is not alive", id)
	}
	return &entry{id: id, ei: ei}, nil
}

// Recycled reports the current generation counter for id without
// requiring the entry to still be alive, used to validate stale
// handles presented by a caller (e.g. entities that hold on to an old
// Entry after destruction).
func (ei *EntryIndex) Recycled(id EntryID) int {
	s := ei.slot(id)
	if s == nil {
		return -1
	}
	return s.recycled
}

// Alive reports whether id currently resolves to a live row.
func (ei *EntryIndex) Alive(id EntryID) bool {
	s := ei.slot(id)
	return s != nil && s.alive
}

type entry struct {
	id EntryID
	ei *EntryIndex
}

func (e *entry) ID() EntryID { return e.id }

func (e *entry) Index() int {
	s := e.ei.slot(e.id)
	if s == nil {
		return -1
	}
	return s.index
}

func (e *entry) Recycled() int {
	s := e.ei.slot(e.id)
	if s == nil {
		return -1
	}
	return s.recycled
}

func (e *entry) Table() *Table {
	s := e.ei.slot(e.id)
	if s == nil {
		return nil
	}
	return s.table
}
