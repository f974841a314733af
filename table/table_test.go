package table

import "testing"

type position struct{ X, Y float64 }
type velocity struct{ DX, DY float64 }

func newTestTable(t *testing.T, schema *Schema, ei *EntryIndex, types ...ElementType) *Table {
	t.Helper()
	tbl, err := NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(ei).
		WithElementTypes(types...).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tbl
}

func TestNewEntriesAssignsDenseRows(t *testing.T) {
	posType := FactoryNewElementType[position]()
	schema := NewSchema()
	ei := NewEntryIndex()
	tbl := newTestTable(t, schema, ei, posType)

	entries, err := tbl.NewEntries(3)
	if err != nil {
		t.Fatalf("NewEntries: %v", err)
	}
	for i, e := range entries {
		if e.Index() != i {
			t.Fatalf("entry %d has row %d, want %d", i, e.Index(), i)
		}
		if e.Table() != tbl {
			t.Fatalf("entry %d not bound to its table", i)
		}
	}
	if tbl.Length() != 3 {
		t.Fatalf("Length() = %d, want 3", tbl.Length())
	}
}

func TestDeleteEntriesSwapRemovesLastRow(t *testing.T) {
	posType := FactoryNewElementType[position]()
	schema := NewSchema()
	ei := NewEntryIndex()
	tbl := newTestTable(t, schema, ei, posType)
	posAcc := FactoryNewAccessor[position](posType)

	entries, _ := tbl.NewEntries(3)
	for i, e := range entries {
		*posAcc.Get(e.Index(), tbl) = position{X: float64(i)}
	}

	middle := entries[1]
	last := entries[2]

	moved, err := tbl.DeleteEntries(int(middle.ID()))
	if err != nil {
		t.Fatalf("DeleteEntries: %v", err)
	}
	if tbl.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", tbl.Length())
	}
	if len(moved) != 1 || moved[0].ID != last.ID() {
		t.Fatalf("expected last entry %d reported moved, got %+v", last.ID(), moved)
	}
	if last.Index() != 1 {
		t.Fatalf("last entry should now occupy row 1, got %d", last.Index())
	}
	if got := posAcc.Get(last.Index(), tbl).X; got != 2 {
		t.Fatalf("row 1 should hold the formerly-last value 2, got %v", got)
	}
	if ei.Alive(middle.ID()) {
		t.Fatalf("deleted entry should no longer be alive")
	}
}

func TestDeleteLastRowNoMove(t *testing.T) {
	posType := FactoryNewElementType[position]()
	schema := NewSchema()
	ei := NewEntryIndex()
	tbl := newTestTable(t, schema, ei, posType)

	entries, _ := tbl.NewEntries(2)
	moved, err := tbl.DeleteEntries(int(entries[1].ID()))
	if err != nil {
		t.Fatalf("DeleteEntries: %v", err)
	}
	if len(moved) != 0 {
		t.Fatalf("deleting the last row should report no moves, got %+v", moved)
	}
	if tbl.Length() != 1 {
		t.Fatalf("Length() = %d, want 1", tbl.Length())
	}
}

func TestTransferEntriesPreservesOverlapAndZeroesNew(t *testing.T) {
	posType := FactoryNewElementType[position]()
	velType := FactoryNewElementType[velocity]()
	schema := NewSchema()
	ei := NewEntryIndex()

	src := newTestTable(t, schema, ei, posType)
	dest := newTestTable(t, schema, ei, posType, velType)

	posAcc := FactoryNewAccessor[position](posType)
	velAcc := FactoryNewAccessor[velocity](velType)

	entries, _ := src.NewEntries(2)
	*posAcc.Get(entries[0].Index(), src) = position{X: 7, Y: 8}
	moving := entries[0]

	if err := src.TransferEntries(dest, moving.Index()); err != nil {
		t.Fatalf("TransferEntries: %v", err)
	}
	if moving.Table() != dest {
		t.Fatalf("entry should now resolve to dest table")
	}
	if got := posAcc.Get(moving.Index(), dest).X; got != 7 {
		t.Fatalf("position should carry over, got %v", got)
	}
	if got := velAcc.Get(moving.Index(), dest); *got != (velocity{}) {
		t.Fatalf("velocity should be zero-valued on a fresh column, got %+v", got)
	}
	if src.Length() != 1 {
		t.Fatalf("src.Length() = %d, want 1", src.Length())
	}
}

func TestAccessorCheckReflectsColumnPresence(t *testing.T) {
	posType := FactoryNewElementType[position]()
	velType := FactoryNewElementType[velocity]()
	schema := NewSchema()
	ei := NewEntryIndex()
	tbl := newTestTable(t, schema, ei, posType)

	posAcc := FactoryNewAccessor[position](posType)
	velAcc := FactoryNewAccessor[velocity](velType)

	if !posAcc.Check(tbl) {
		t.Fatalf("position column should be present")
	}
	if velAcc.Check(tbl) {
		t.Fatalf("velocity column should not be present")
	}
}

func TestTableMaskMatchesRegisteredTypes(t *testing.T) {
	posType := FactoryNewElementType[position]()
	velType := FactoryNewElementType[velocity]()
	schema := NewSchema()
	ei := NewEntryIndex()
	tbl := newTestTable(t, schema, ei, posType, velType)

	sig := tbl.Mask()
	if !sig.IsSet(schema.RowIndexFor(posType)) || !sig.IsSet(schema.RowIndexFor(velType)) {
		t.Fatalf("table signature should have both registered bits set")
	}
}
