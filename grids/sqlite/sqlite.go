package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	sheetq "github.com/sheetq/go-sheetq"
)

//go:embed schema.sql
var schemaSQL string

// Grid implements the sheetq.Grid interface on a SQLite cell store. Each
// named sheet row in the sheets table is one table; cells are stored
// sparsely and read back as a padded rectangle. Statements commit as they
// run, so Flush is a no-op.
type Grid struct {
	db *sql.DB
}

type table struct {
	name string
	id   int64
}

func (t *table) Name() string { return t.name }

// New opens (or creates) the database at path and ensures the cell-store
// schema exists. Use ":memory:" for a throwaway grid.
func New(path string) (*Grid, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway, and a single pooled connection
	// keeps ":memory:" databases from resetting between statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Grid{db: db}, nil
}

// Close releases the database handle.
func (g *Grid) Close() error {
	return g.db.Close()
}

// CreateTable provisions a named table. Creating an existing table is a
// no-op.
func (g *Grid) CreateTable(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	_, err := g.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("failed to create table %q: %w", name, err)
	}
	return nil
}

// SetLink attaches a hyperlink to one cell of a named table, creating the
// cell if it has no value yet.
func (g *Grid) SetLink(ctx context.Context, name string, row, col int, url string) error {
	tab, err := g.Lookup(ctx, name)
	if err != nil {
		return err
	}
	t := tab.(*table)
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO cells (sheet_id, row_num, col_num, value, link) VALUES (?, ?, ?, '', ?)
		ON CONFLICT (sheet_id, row_num, col_num) DO UPDATE SET link = excluded.link`,
		t.id, row, col, url)
	if err != nil {
		return fmt.Errorf("failed to set link at row %d col %d of %q: %w", row, col, name, err)
	}
	return nil
}

// Lookup implements sheetq.Grid.
func (g *Grid) Lookup(ctx context.Context, name string) (sheetq.Table, error) {
	var id int64
	err := g.db.QueryRowContext(ctx, `SELECT id FROM sheets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %q: %w", name, sheetq.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %q: %w", name, err)
	}
	return &table{name: name, id: id}, nil
}

// ReadAll implements sheetq.Grid.
func (g *Grid) ReadAll(ctx context.Context, tab sheetq.Table) ([][]interface{}, int, error) {
	t, err := handle(tab)
	if err != nil {
		return nil, 0, err
	}
	numRows, numCols, err := g.extent(ctx, t)
	if err != nil {
		return nil, 0, err
	}
	if numRows == 0 || numCols == 0 {
		return nil, 0, nil
	}
	out, err := g.readRect(ctx, t, 1, 1, numRows, numCols)
	if err != nil {
		return nil, 0, err
	}
	return out, numCols, nil
}

// ReadRow implements sheetq.Grid.
func (g *Grid) ReadRow(ctx context.Context, tab sheetq.Table, row int) ([]interface{}, error) {
	t, err := handle(tab)
	if err != nil {
		return nil, err
	}
	numRows, numCols, err := g.extent(ctx, t)
	if err != nil {
		return nil, err
	}
	if row < 1 || row > numRows || numCols == 0 {
		return []interface{}{}, nil
	}
	rect, err := g.readRect(ctx, t, row, 1, 1, numCols)
	if err != nil {
		return nil, err
	}
	return rect[0], nil
}

// ReadRange implements sheetq.Grid.
func (g *Grid) ReadRange(ctx context.Context, tab sheetq.Table, row, col, numRows, numCols int) ([][]interface{}, error) {
	t, err := handle(tab)
	if err != nil {
		return nil, err
	}
	return g.readRect(ctx, t, row, col, numRows, numCols)
}

// Append implements sheetq.Grid, writing the row just below the populated
// area in one transaction.
func (g *Grid) Append(ctx context.Context, tab sheetq.Table, values []interface{}) error {
	t, err := handle(tab)
	if err != nil {
		return err
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastRow int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_num), 0) FROM cells WHERE sheet_id = ?`, t.id).Scan(&lastRow); err != nil {
		return fmt.Errorf("failed to find last row of %q: %w", t.name, err)
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cells (sheet_id, row_num, col_num, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (sheet_id, row_num, col_num) DO UPDATE SET value = excluded.value`,
			t.id, lastRow+1, i+1, renderValue(v)); err != nil {
			return fmt.Errorf("failed to append to %q: %w", t.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append to %q: %w", t.name, err)
	}
	return nil
}

// DeleteRows implements sheetq.Grid. The span is removed and every later
// row (links included) is renumbered down within one transaction.
func (g *Grid) DeleteRows(ctx context.Context, tab sheetq.Table, row, count int) error {
	t, err := handle(tab)
	if err != nil {
		return err
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastRow int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_num), 0) FROM cells WHERE sheet_id = ?`, t.id).Scan(&lastRow); err != nil {
		return fmt.Errorf("failed to find last row of %q: %w", t.name, err)
	}
	if row < 1 || count < 1 || row+count-1 > lastRow {
		return fmt.Errorf("delete rows %d-%d of %q: %w", row, row+count-1, t.name, sheetq.ErrRowOutOfRange)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cells WHERE sheet_id = ? AND row_num BETWEEN ? AND ?`,
		t.id, row, row+count-1); err != nil {
		return fmt.Errorf("failed to delete rows of %q: %w", t.name, err)
	}
	// Shift through negated row numbers: renumbering in place can collide
	// with a not-yet-shifted row on the primary key, since the update's
	// visit order over the index is unspecified.
	if _, err := tx.ExecContext(ctx,
		`UPDATE cells SET row_num = -(row_num - ?) WHERE sheet_id = ? AND row_num > ?`,
		count, t.id, row+count-1); err != nil {
		return fmt.Errorf("failed to shift rows of %q: %w", t.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE cells SET row_num = -row_num WHERE sheet_id = ? AND row_num < 0`,
		t.id); err != nil {
		return fmt.Errorf("failed to shift rows of %q: %w", t.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete on %q: %w", t.name, err)
	}
	return nil
}

// WriteRange implements sheetq.Grid. Cell values are upserted; hyperlinks
// on overwritten cells are kept.
func (g *Grid) WriteRange(ctx context.Context, tab sheetq.Table, row, col int, values [][]interface{}) error {
	t, err := handle(tab)
	if err != nil {
		return err
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("write at row %d col %d of %q: %w", row, col, t.name, sheetq.ErrRowOutOfRange)
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for r, cells := range values {
		for c, v := range cells {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cells (sheet_id, row_num, col_num, value) VALUES (?, ?, ?, ?)
				ON CONFLICT (sheet_id, row_num, col_num) DO UPDATE SET value = excluded.value`,
				t.id, row+r, col+c, renderValue(v)); err != nil {
				return fmt.Errorf("failed to write row %d of %q: %w", row+r, t.name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write on %q: %w", t.name, err)
	}
	return nil
}

// LinkURL implements sheetq.Grid.
func (g *Grid) LinkURL(ctx context.Context, tab sheetq.Table, row, col int) (string, bool, error) {
	t, err := handle(tab)
	if err != nil {
		return "", false, err
	}
	var link sql.NullString
	err = g.db.QueryRowContext(ctx,
		`SELECT link FROM cells WHERE sheet_id = ? AND row_num = ? AND col_num = ?`,
		t.id, row, col).Scan(&link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read link at row %d col %d of %q: %w", row, col, t.name, err)
	}
	if !link.Valid {
		return "", false, nil
	}
	return link.String, true, nil
}

// Flush implements sheetq.Grid. Statements are durable when they return,
// so there is nothing buffered to write out.
func (g *Grid) Flush(ctx context.Context) error {
	return nil
}

// extent reports the populated row and column counts.
func (g *Grid) extent(ctx context.Context, t *table) (numRows, numCols int, err error) {
	err = g.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_num), 0), COALESCE(MAX(col_num), 0) FROM cells WHERE sheet_id = ?`,
		t.id).Scan(&numRows, &numCols)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to measure %q: %w", t.name, err)
	}
	return numRows, numCols, nil
}

// readRect assembles a padded rectangle from the sparse cell rows.
func (g *Grid) readRect(ctx context.Context, t *table, row, col, numRows, numCols int) ([][]interface{}, error) {
	out := make([][]interface{}, numRows)
	for r := range out {
		cells := make([]interface{}, numCols)
		for c := range cells {
			cells[c] = ""
		}
		out[r] = cells
	}
	rows, err := g.db.QueryContext(ctx, `
		SELECT row_num, col_num, value FROM cells
		WHERE sheet_id = ? AND row_num BETWEEN ? AND ? AND col_num BETWEEN ? AND ?`,
		t.id, row, row+numRows-1, col, col+numCols-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read cells of %q: %w", t.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r, c int
		var v string
		if err := rows.Scan(&r, &c, &v); err != nil {
			return nil, fmt.Errorf("failed to scan cell of %q: %w", t.name, err)
		}
		out[r-row][c-col] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cells of %q: %w", t.name, err)
	}
	return out, nil
}

func handle(tab sheetq.Table) (*table, error) {
	t, ok := tab.(*table)
	if !ok || t == nil {
		return nil, fmt.Errorf("foreign table handle %T", tab)
	}
	return t, nil
}

// renderValue normalizes a cell value to its stored text form.
func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
