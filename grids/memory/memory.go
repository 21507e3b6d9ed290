package memory

import (
	"context"
	"fmt"
	"sync"

	sheetq "github.com/sheetq/go-sheetq"
)

// Grid implements the sheetq.Grid interface on in-process state. It is
// intended for tests and examples; unlike the file and API backed grids it
// also lets callers seed tables and hyperlinks directly and inspect the
// resulting cell state.
type Grid struct {
	mu      sync.RWMutex
	tables  map[string]*table
	flushes int
}

type table struct {
	name  string
	cells [][]interface{}
	links map[sheetq.CellRef]string
}

func (t *table) Name() string { return t.name }

// New creates an empty in-memory grid.
func New() *Grid {
	return &Grid{tables: make(map[string]*table)}
}

// Load creates or replaces the named table with a copy of the given rows.
func (g *Grid) Load(name string, rows [][]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tab := &table{name: name, links: make(map[sheetq.CellRef]string)}
	for _, row := range rows {
		tab.cells = append(tab.cells, cloneRow(row))
	}
	g.tables[name] = tab
}

// SetLink attaches a hyperlink to one cell, creating the table if needed.
func (g *Grid) SetLink(name string, row, col int, url string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tab, ok := g.tables[name]
	if !ok {
		tab = &table{name: name, links: make(map[sheetq.CellRef]string)}
		g.tables[name] = tab
	}
	tab.links[sheetq.CellRef{Row: row, Col: col}] = url
}

// Values returns a snapshot of the named table's cells, or nil when the
// table does not exist.
func (g *Grid) Values(name string) [][]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tab, ok := g.tables[name]
	if !ok {
		return nil
	}
	out := make([][]interface{}, len(tab.cells))
	for i, row := range tab.cells {
		out[i] = cloneRow(row)
	}
	return out
}

// FlushCount reports how many times Flush has been called.
func (g *Grid) FlushCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.flushes
}

// Lookup implements sheetq.Grid.
func (g *Grid) Lookup(ctx context.Context, name string) (sheetq.Table, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tab, ok := g.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, sheetq.ErrTableNotFound)
	}
	return tab, nil
}

// ReadAll implements sheetq.Grid.
func (g *Grid) ReadAll(ctx context.Context, tab sheetq.Table) ([][]interface{}, int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.resolve(tab)
	if err != nil {
		return nil, 0, err
	}
	width := t.width()
	if len(t.cells) == 0 || width == 0 {
		return nil, 0, nil
	}
	out := make([][]interface{}, len(t.cells))
	for i, row := range t.cells {
		out[i] = padRow(row, width)
	}
	return out, width, nil
}

// ReadRow implements sheetq.Grid.
func (g *Grid) ReadRow(ctx context.Context, tab sheetq.Table, row int) ([]interface{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.resolve(tab)
	if err != nil {
		return nil, err
	}
	if row < 1 || row > len(t.cells) {
		return []interface{}{}, nil
	}
	return padRow(t.cells[row-1], t.width()), nil
}

// ReadRange implements sheetq.Grid.
func (g *Grid) ReadRange(ctx context.Context, tab sheetq.Table, row, col, numRows, numCols int) ([][]interface{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.resolve(tab)
	if err != nil {
		return nil, err
	}
	out := make([][]interface{}, numRows)
	for r := 0; r < numRows; r++ {
		cells := make([]interface{}, numCols)
		for c := 0; c < numCols; c++ {
			cells[c] = t.cell(row+r, col+c)
		}
		out[r] = cells
	}
	return out, nil
}

// Append implements sheetq.Grid.
func (g *Grid) Append(ctx context.Context, tab sheetq.Table, values []interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.resolve(tab)
	if err != nil {
		return err
	}
	t.cells = append(t.cells, cloneRow(values))
	return nil
}

// DeleteRows implements sheetq.Grid. Hyperlinks on deleted rows are
// discarded and links below the deleted range shift up with their rows.
func (g *Grid) DeleteRows(ctx context.Context, tab sheetq.Table, row, count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.resolve(tab)
	if err != nil {
		return err
	}
	if row < 1 || count < 1 || row+count-1 > len(t.cells) {
		return fmt.Errorf("delete rows %d-%d of %q: %w", row, row+count-1, t.name, sheetq.ErrRowOutOfRange)
	}
	t.cells = append(t.cells[:row-1], t.cells[row-1+count:]...)

	shifted := make(map[sheetq.CellRef]string, len(t.links))
	for ref, url := range t.links {
		switch {
		case ref.Row < row:
			shifted[ref] = url
		case ref.Row >= row+count:
			shifted[sheetq.CellRef{Row: ref.Row - count, Col: ref.Col}] = url
		}
	}
	t.links = shifted
	return nil
}

// WriteRange implements sheetq.Grid. The table grows as needed to contain
// the written rectangle.
func (g *Grid) WriteRange(ctx context.Context, tab sheetq.Table, row, col int, values [][]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.resolve(tab)
	if err != nil {
		return err
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("write at %s of %q: %w", sheetq.CellRef{Row: row, Col: col}, t.name, sheetq.ErrRowOutOfRange)
	}
	for r, cells := range values {
		t.setRow(row+r, col, cells)
	}
	return nil
}

// LinkURL implements sheetq.Grid.
func (g *Grid) LinkURL(ctx context.Context, tab sheetq.Table, row, col int) (string, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, err := g.resolve(tab)
	if err != nil {
		return "", false, err
	}
	url, ok := t.links[sheetq.CellRef{Row: row, Col: col}]
	return url, ok, nil
}

// Flush implements sheetq.Grid. Writes apply immediately, so this only
// counts invocations for inspection by tests.
func (g *Grid) Flush(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flushes++
	return nil
}

func (g *Grid) resolve(tab sheetq.Table) (*table, error) {
	t, ok := tab.(*table)
	if !ok || t == nil {
		return nil, fmt.Errorf("foreign table handle %T", tab)
	}
	if g.tables[t.name] != t {
		return nil, fmt.Errorf("table %q: %w", t.name, sheetq.ErrTableNotFound)
	}
	return t, nil
}

func (t *table) width() int {
	width := 0
	for _, row := range t.cells {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// cell returns the padded value at a 1-based position.
func (t *table) cell(row, col int) interface{} {
	if row < 1 || row > len(t.cells) {
		return ""
	}
	cells := t.cells[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	if cells[col-1] == nil {
		return ""
	}
	return cells[col-1]
}

// setRow writes values into a 1-based row starting at a 1-based column,
// growing the sheet as needed.
func (t *table) setRow(row, col int, values []interface{}) {
	for len(t.cells) < row {
		t.cells = append(t.cells, nil)
	}
	cells := t.cells[row-1]
	need := col - 1 + len(values)
	for len(cells) < need {
		cells = append(cells, "")
	}
	for i, v := range values {
		cells[col-1+i] = v
	}
	t.cells[row-1] = cells
}

func cloneRow(row []interface{}) []interface{} {
	out := make([]interface{}, len(row))
	copy(out, row)
	return out
}

func padRow(row []interface{}, width int) []interface{} {
	out := make([]interface{}, width)
	for i := range out {
		if i < len(row) && row[i] != nil {
			out[i] = row[i]
		} else {
			out[i] = ""
		}
	}
	return out
}
