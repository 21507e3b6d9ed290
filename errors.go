package sheetq

import "errors"

var (
	// ErrNoTableSelected is returned when a terminal operation runs before
	// From has recorded a table name.
	ErrNoTableSelected = errors.New("no table selected")

	// ErrTableNotFound is returned by Grid.Lookup when no table with the
	// given name exists, and by write operations against such a table.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowOutOfRange is returned by grid implementations when a delete or
	// write addresses a row outside the populated area.
	ErrRowOutOfRange = errors.New("row out of range")
)
