package table

import "reflect"

// Accessor is a type-safe window onto one component type's column. It
// carries no table reference of its own; callers pass the table (and
// row index) explicitly, which is what lets a single Accessor[T] be
// reused across every table that happens to hold a column for T.
type Accessor[T any] struct {
	elem ElementType
}

// FactoryNewAccessor builds an Accessor[T] bound to the given element
// type. T must be the same Go type the ElementType was minted for;
// mismatches panic on first use rather than at construction.
func FactoryNewAccessor[T any](e ElementType) Accessor[T] {
	return Accessor[T]{elem: e}
}

// Check reports whether tbl has a column for this accessor's type.
func (a Accessor[T]) Check(tbl *Table) bool {
	return tbl.Contains(a.elem)
}

// Get returns a pointer into the live column storage at index, so
// mutations through the pointer are visible to every other holder of
// the same row.
func (a Accessor[T]) Get(index int, tbl *Table) *T {
	col, ok := tbl.columns[a.elem.elementTypeID()]
	if !ok {
		panic("table: accessor type not present in this table")
	}
	return col.data.Index(index).Addr().Interface().(*T)
}

// Set overwrites the value at index.
func (a Accessor[T]) Set(index int, tbl *Table, value T) {
	col, ok := tbl.columns[a.elem.elementTypeID()]
	if !ok {
		panic("table: accessor type not present in this table")
	}
	col.data.Index(index).Set(reflect.ValueOf(value))
}
