// Package table implements dense, columnar storage for archetype rows:
// one reflect-backed slice per component type, a packed row->entry and
// entry->row mapping, and classic swap-with-last removal so deleting a
// row never shifts any row but the one that used to be last.
package table

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ninthtower/archon/mask"
)

// Row is a single column's backing storage, exposed so callers can
// iterate or splice values directly. It is a type alias for
// reflect.Value rather than a defined type so
// reflect.Value's own method set (Type, Index, Len, ...) is usable on
// a Row without an explicit conversion.
type Row = reflect.Value

// TableEvents are optional hooks fired as rows are created/destroyed.
type TableEvents struct {
	OnCreate func(Entry)
	OnDelete func(Entry)
}

type column struct {
	elem ElementType
	data reflect.Value
}

func newColumn(e ElementType) *column {
	return &column{elem: e, data: reflect.MakeSlice(reflect.SliceOf(e.Type()), 0, 0)}
}

func (c *column) appendZero() {
	c.data = reflect.Append(c.data, reflect.Zero(c.data.Type().Elem()))
}

func (c *column) copyFrom(src *column, srcIndex int) {
	c.data = reflect.Append(c.data, src.data.Index(srcIndex))
}

// swapRemove moves the value at `last` into `i` (a no-op if i == last)
// and then shrinks the column by one element.
func (c *column) swapRemove(i, last int) {
	if i != last {
		c.data.Index(i).Set(c.data.Index(last))
	}
	c.data = c.data.Slice(0, last)
}

// Table is a single archetype's columnar storage.
type Table struct {
	schema     *Schema
	ei         *EntryIndex
	events     TableEvents
	elemTypes  []ElementType
	columns    map[uint64]*column
	rowEntries []EntryID
	rowOf      map[EntryID]int
	sig        mask.Mask
}

// TableBuilder constructs a Table from a schema, a shared entry index,
// and the set of component types the table will hold columns for.
type TableBuilder struct {
	schema *Schema
	ei     *EntryIndex
	types  []ElementType
	events TableEvents
}

// NewTableBuilder starts a new builder.
func NewTableBuilder() *TableBuilder { return &TableBuilder{} }

// WithSchema sets the shared schema used to assign signature bits.
func (b *TableBuilder) WithSchema(s *Schema) *TableBuilder { b.schema = s; return b }

// WithEntryIndex sets the shared entry directory the table's rows
// register into.
func (b *TableBuilder) WithEntryIndex(ei *EntryIndex) *TableBuilder { b.ei = ei; return b }

// WithElementTypes sets the component types this table has columns
// for.
func (b *TableBuilder) WithElementTypes(types ...ElementType) *TableBuilder {
	b.types = types
	return b
}

// WithEvents attaches lifecycle hooks.
func (b *TableBuilder) WithEvents(e TableEvents) *TableBuilder { b.events = e; return b }

// Build finalizes the table.
func (b *TableBuilder) Build() (*Table, error) {
	if b.schema == nil {
		return nil, errors.New("table: WithSchema is required")
	}
	if b.ei == nil {
		return nil, errors.New("table: WithEntryIndex is required")
	}
	b.schema.Register(b.types...)

	t := &Table{
		schema:    b.schema,
		ei:        b.ei,
		events:    b.events,
		elemTypes: append([]ElementType(nil), b.types...),
		columns:   make(map[uint64]*column, len(b.types)),
		rowOf:     make(map[EntryID]int),
	}
	for _, et := range b.types {
		t.columns[et.elementTypeID()] = newColumn(et)
		t.sig.Mark(b.schema.RowIndexFor(et))
	}
	return t, nil
}

// NewEntries appends n zero-valued rows and returns their entries.
func (t *Table) NewEntries(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("table: NewEntries count must be positive, got %d", n)
	}
	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		for _, col := range t.columns {
			col.appendZero()
		}
		row := len(t.rowEntries)
		id := t.ei.Allocate(t, row)
		t.rowEntries = append(t.rowEntries, id)
		t.rowOf[id] = row

		e := &entry{id: id, ei: t.ei}
		entries[i] = e
		if t.events.OnCreate != nil {
			t.events.OnCreate(e)
		}
	}
	return entries, nil
}

// MovedEntry reports that an entry's row changed during a delete or
// transfer so callers who track row positions independently (none do
// in this package; the EntryIndex is patched automatically) can react.
type MovedEntry struct {
	ID       EntryID
	NewIndex int
}

// DeleteEntries removes the rows belonging to the given entry ids
// (not row indices) via swap-remove, releasing each id back to the
// shared EntryIndex.
func (t *Table) DeleteEntries(ids ...int) ([]MovedEntry, error) {
	var moved []MovedEntry
	for _, raw := range ids {
		id := EntryID(raw)
		row, ok := t.rowOf[id]
		if !ok {
			continue
		}
		last := len(t.rowEntries) - 1
		movedID := t.rowEntries[last]

		for _, col := range t.columns {
			col.swapRemove(row, last)
		}

		if row != last {
			t.rowEntries[row] = movedID
			t.rowOf[movedID] = row
			t.ei.SetLocation(movedID, t, row)
			moved = append(moved, MovedEntry{ID: movedID, NewIndex: row})
		}
		t.rowEntries = t.rowEntries[:last]
		delete(t.rowOf, id)

		if e, err := t.ei.Entry(id); err == nil && t.events.OnDelete != nil {
			t.events.OnDelete(e)
		}
		t.ei.Release(id)
	}
	return moved, nil
}

// TransferEntries moves the row at the given index into dest,
// preserving the entry id, copying values for every column the two
// tables have in common, and zero-initializing any column dest has
// that this table doesn't.
func (t *Table) TransferEntries(dest *Table, index int) error {
	if index < 0 || index >= len(t.rowEntries) {
		return fmt.Errorf("table: transfer index %d out of range", index)
	}
	id := t.rowEntries[index]

	for typeID, destCol := range dest.columns {
		if srcCol, ok := t.columns[typeID]; ok {
			destCol.copyFrom(srcCol, index)
		} else {
			destCol.appendZero()
		}
	}
	newRow := len(dest.rowEntries)
	dest.rowEntries = append(dest.rowEntries, id)
	dest.rowOf[id] = newRow

	last := len(t.rowEntries) - 1
	movedID := t.rowEntries[last]
	for _, col := range t.columns {
		col.swapRemove(index, last)
	}
	if index != last {
		t.rowEntries[index] = movedID
		t.rowOf[movedID] = index
		t.ei.SetLocation(movedID, t, index)
	}
	t.rowEntries = t.rowEntries[:last]
	delete(t.rowOf, id)

	t.ei.SetLocation(id, dest, newRow)
	return nil
}

// Contains reports whether this table has a column for c.
func (t *Table) Contains(c ElementType) bool {
	_, ok := t.columns[c.elementTypeID()]
	return ok
}

// Rows returns every column's backing slice, in no particular but
// stable order.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.elemTypes))
	for _, et := range t.elemTypes {
		rows = append(rows, t.columns[et.elementTypeID()].data)
	}
	return rows
}

// Row returns the backing slice for a single component type.
func (t *Table) Row(c ElementType) (Row, error) {
	col, ok := t.columns[c.elementTypeID()]
	if !ok {
		return Row{}, fmt.Errorf("table: column not present for type %v", c.Type())
	}
	return col.data, nil
}

// RowOf returns the current row index for id, if id presently has a
// row in this table.
func (t *Table) RowOf(id EntryID) (int, bool) {
	row, ok := t.rowOf[id]
	return row, ok
}

// Length returns the number of rows currently stored.
func (t *Table) Length() int {
	return len(t.rowEntries)
}

// Entry resolves a row index to its entry handle.
func (t *Table) Entry(index int) (Entry, error) {
	if index < 0 || index >= len(t.rowEntries) {
		return nil, fmt.Errorf("table: row index %d out of range", index)
	}
	return t.ei.Entry(t.rowEntries[index])
}

// Mask returns the table's component signature.
func (t *Table) Mask() mask.Mask {
	return t.sig
}

// ElementTypes returns the component types this table holds columns
// for, in registration order.
func (t *Table) ElementTypes() []ElementType {
	return append([]ElementType(nil), t.elemTypes...)
}
