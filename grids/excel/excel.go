package excel

import (
	"context"
	"fmt"
	"os"
	"sync"

	sheetq "github.com/sheetq/go-sheetq"
	"github.com/xuri/excelize/v2"
)

// Grid implements the sheetq.Grid interface over an .xlsx workbook. Each
// worksheet is one table. The workbook is opened lazily and mutated in
// memory; Flush writes it back to disk, so this backend has genuinely
// buffered writes.
type Grid struct {
	config *Config

	mu    sync.Mutex
	file  *excelize.File
	dirty bool
}

type table struct {
	name string
}

func (t *table) Name() string { return t.name }

// New creates an Excel grid for the configured workbook path. The file is
// not touched until the first operation.
func New(config *Config) (*Grid, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	configCopy := *config
	return &Grid{config: &configCopy}, nil
}

// Close releases the open workbook without saving. Pending writes are
// discarded; call Flush first to keep them.
func (g *Grid) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return nil
	}
	err := g.file.Close()
	g.file = nil
	g.dirty = false
	if err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	return nil
}

// Lookup implements sheetq.Grid. A missing workbook file reads as a
// workbook with no sheets.
func (g *Grid) Lookup(ctx context.Context, name string) (sheetq.Table, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := g.workbook()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("sheet %q: %w", name, sheetq.ErrTableNotFound)
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet index: %w", err)
	}
	if idx == -1 {
		return nil, fmt.Errorf("sheet %q: %w", name, sheetq.ErrTableNotFound)
	}
	return &table{name: name}, nil
}

// ReadAll implements sheetq.Grid. Cells are returned as strings, the way
// excelize renders them.
func (g *Grid) ReadAll(ctx context.Context, tab sheetq.Table) ([][]interface{}, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	rows, err := g.sheetRows(tab.Name())
	if err != nil {
		return nil, 0, err
	}
	width := sheetWidth(rows)
	if len(rows) == 0 || width == 0 {
		return nil, 0, nil
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = padRow(row, width)
	}
	return out, width, nil
}

// ReadRow implements sheetq.Grid.
func (g *Grid) ReadRow(ctx context.Context, tab sheetq.Table, row int) ([]interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := g.sheetRows(tab.Name())
	if err != nil {
		return nil, err
	}
	if row < 1 || row > len(rows) {
		return []interface{}{}, nil
	}
	return padRow(rows[row-1], sheetWidth(rows)), nil
}

// ReadRange implements sheetq.Grid.
func (g *Grid) ReadRange(ctx context.Context, tab sheetq.Table, row, col, numRows, numCols int) ([][]interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := g.sheetRows(tab.Name())
	if err != nil {
		return nil, err
	}
	out := make([][]interface{}, numRows)
	for r := 0; r < numRows; r++ {
		cells := make([]interface{}, numCols)
		for c := 0; c < numCols; c++ {
			cells[c] = cellAt(rows, row+r, col+c)
		}
		out[r] = cells
	}
	return out, nil
}

// Append implements sheetq.Grid.
func (g *Grid) Append(ctx context.Context, tab sheetq.Table, values []interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := g.openWorkbook(tab.Name())
	if err != nil {
		return err
	}
	rows, err := f.GetRows(tab.Name())
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("invalid append position: %w", err)
	}
	if err := f.SetSheetRow(tab.Name(), cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", len(rows)+1, err)
	}
	g.dirty = true
	return nil
}

// DeleteRows implements sheetq.Grid. Rows must address the populated
// area; excelize shifts later rows and their hyperlinks up.
func (g *Grid) DeleteRows(ctx context.Context, tab sheetq.Table, row, count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := g.openWorkbook(tab.Name())
	if err != nil {
		return err
	}
	rows, err := f.GetRows(tab.Name())
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}
	if row < 1 || count < 1 || row+count-1 > len(rows) {
		return fmt.Errorf("delete rows %d-%d of %q: %w", row, row+count-1, tab.Name(), sheetq.ErrRowOutOfRange)
	}
	for i := 0; i < count; i++ {
		if err := f.RemoveRow(tab.Name(), row); err != nil {
			return fmt.Errorf("failed to remove row %d: %w", row, err)
		}
	}
	g.dirty = true
	return nil
}

// WriteRange implements sheetq.Grid.
func (g *Grid) WriteRange(ctx context.Context, tab sheetq.Table, row, col int, values [][]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("write at row %d col %d of %q: %w", row, col, tab.Name(), sheetq.ErrRowOutOfRange)
	}
	f, err := g.openWorkbook(tab.Name())
	if err != nil {
		return err
	}
	for r := range values {
		cell, err := excelize.CoordinatesToCellName(col, row+r)
		if err != nil {
			return fmt.Errorf("invalid write position: %w", err)
		}
		if err := f.SetSheetRow(tab.Name(), cell, &values[r]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row+r, err)
		}
	}
	g.dirty = true
	return nil
}

// LinkURL implements sheetq.Grid.
func (g *Grid) LinkURL(ctx context.Context, tab sheetq.Table, row, col int) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f, err := g.workbook()
	if err != nil {
		return "", false, err
	}
	if f == nil {
		return "", false, nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false, fmt.Errorf("invalid cell position: %w", err)
	}
	has, link, err := f.GetCellHyperLink(tab.Name(), cell)
	if err != nil {
		return "", false, fmt.Errorf("failed to get hyperlink for %s: %w", cell, err)
	}
	return link, has, nil
}

// Flush implements sheetq.Grid, saving the in-memory workbook to disk
// when it has unsaved changes.
func (g *Grid) Flush(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if g.file == nil || !g.dirty {
		return nil
	}
	if err := g.file.SaveAs(g.config.FilePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	g.dirty = false
	return nil
}

// workbook returns the lazily opened file, or nil when the workbook does
// not exist on disk. Callers must hold g.mu.
func (g *Grid) workbook() (*excelize.File, error) {
	if g.file != nil {
		return g.file, nil
	}
	f, err := excelize.OpenFile(g.config.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	g.file = f
	return f, nil
}

// openWorkbook is workbook for ops that hold a table handle: by then the
// workbook has resolved once, so a missing file is an error, not empty.
func (g *Grid) openWorkbook(sheet string) (*excelize.File, error) {
	f, err := g.workbook()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, sheetq.ErrTableNotFound)
	}
	return f, nil
}

func (g *Grid) sheetRows(sheet string) ([][]string, error) {
	f, err := g.workbook()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func sheetWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

func padRow(row []string, width int) []interface{} {
	out := make([]interface{}, width)
	for i := range out {
		if i < len(row) {
			out[i] = row[i]
		} else {
			out[i] = ""
		}
	}
	return out
}

// cellAt returns the string cell at a 1-based position, "" when outside
// the populated area.
func cellAt(rows [][]string, row, col int) interface{} {
	if row < 1 || row > len(rows) {
		return ""
	}
	cells := rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}
