package sheetq

import (
	"context"
	"fmt"
)

// Table is an opaque handle to one named table inside a Grid. Handles are
// produced by Grid.Lookup and are only meaningful to the grid that issued
// them.
type Table interface {
	// Name returns the table name the handle was resolved from.
	Name() string
}

// Grid is the tabular data source a Builder operates against. Rows and
// columns are 1-based throughout.
//
// Implementations must return rectangular data from ReadAll: every row
// slice has exactly the reported column count, with unpopulated cells
// filled with empty strings. ReadRange likewise returns exactly the
// requested number of rows and columns, padded with empty strings.
type Grid interface {
	// Lookup resolves a table by name. It returns ErrTableNotFound
	// (possibly wrapped) when no such table exists.
	Lookup(ctx context.Context, name string) (Table, error)

	// ReadAll returns the populated rectangle anchored at row 1, column 1,
	// together with its column count. An empty table yields a nil or empty
	// slice and a count of zero.
	ReadAll(ctx context.Context, tab Table) (values [][]interface{}, cols int, err error)

	// ReadRow returns a single row at the table's populated width.
	// A row beyond the populated area yields an empty slice.
	ReadRow(ctx context.Context, tab Table, row int) ([]interface{}, error)

	// ReadRange returns the numRows x numCols rectangle anchored at
	// (row, col).
	ReadRange(ctx context.Context, tab Table, row, col, numRows, numCols int) ([][]interface{}, error)

	// Append writes one row immediately after the last populated row.
	Append(ctx context.Context, tab Table, values []interface{}) error

	// DeleteRows removes count rows starting at row; later rows shift up.
	DeleteRows(ctx context.Context, tab Table, row, count int) error

	// WriteRange overwrites the rectangle anchored at (row, col) with the
	// given values.
	WriteRange(ctx context.Context, tab Table, row, col int, values [][]interface{}) error

	// LinkURL reports the hyperlink target of the cell at (row, col).
	// The bool result is false when the cell carries no hyperlink.
	LinkURL(ctx context.Context, tab Table, row, col int) (string, bool, error)

	// Flush forces any buffered writes to be externally visible before
	// returning.
	Flush(ctx context.Context) error
}

// CellRef names a single cell by its 1-based row and column.
type CellRef struct {
	Row int
	Col int
}

// A1 renders the reference in A1 notation, e.g. CellRef{3, 2} -> "B3".
func (c CellRef) A1() string {
	return fmt.Sprintf("%s%d", ColumnLabel(c.Col), c.Row)
}

// String implements fmt.Stringer using A1 notation.
func (c CellRef) String() string {
	return c.A1()
}

// ColumnLabel converts a 1-based column number to its spreadsheet letter
// form (1 -> A, 26 -> Z, 27 -> AA).
func ColumnLabel(col int) string {
	label := ""
	for col > 0 {
		col--
		label = string(rune('A'+col%26)) + label
		col /= 26
	}
	return label
}
