package sheetq

import (
	"context"
	"errors"
	"fmt"
)

// Predicate filters materialized rows. Predicates must be pure: they are
// applied to the cached snapshot and must not mutate rows or depend on
// call order.
type Predicate func(Row) bool

// UpdateFunc transforms one row during an update pass. It may mutate the
// row in place and return nil, or return a replacement row; a nil result
// means "use the (possibly mutated) input row".
type UpdateFunc func(*Row) *Row

// Builder is a fluent query and update handle over one table of a Grid.
//
// Configuration calls (From, HeadingRow, Where, Select) return the builder
// itself for chaining. Terminal operations (Headings, Rows, Cells, URLs,
// Insert, Update, Delete) run against the grid. Reads share one cached
// materialization per epoch; Update and Delete end the epoch, Insert does
// not. A Builder is not safe for concurrent use.
type Builder struct {
	grid Grid

	tableName  string
	headingRow int
	selected   []string
	pred       Predicate

	resolved bool
	table    Table

	cache cache
}

// New creates a Builder over the given grid. No table is selected yet.
func New(grid Grid) *Builder {
	return &Builder{grid: grid, headingRow: 1}
}

// From selects the named table with its heading row at row 1. Selecting a
// different table drops the resolved handle and all cached state; moving
// only the heading row keeps the handle but drops the caches. Re-selecting
// the current table unchanged is a no-op.
func (b *Builder) From(name string) *Builder {
	return b.reselect(name, 1)
}

// HeadingRow moves the heading row of the current selection to the given
// 1-based row. Changing it invalidates cached rows and headings.
func (b *Builder) HeadingRow(row int) *Builder {
	return b.reselect(b.tableName, row)
}

func (b *Builder) reselect(name string, headingRow int) *Builder {
	if name == b.tableName && headingRow == b.headingRow {
		return b
	}
	if name != b.tableName {
		b.resolved = false
		b.table = nil
	}
	b.tableName = name
	b.headingRow = headingRow
	b.cache.invalidate()
	return b
}

// Where sets the row filter, replacing any previous one. A nil predicate
// removes the filter. The filter narrows what terminal operations see; it
// never changes what is cached.
func (b *Builder) Where(pred Predicate) *Builder {
	b.pred = pred
	return b
}

// Select records the column names the caller intends to read. The list is
// informational: materialized rows always carry every column under the
// current headings, and writes always project through the full heading
// order.
func (b *Builder) Select(cols ...string) *Builder {
	b.selected = append([]string(nil), cols...)
	return b
}

// SelectedColumns returns the column list recorded by Select, or nil.
func (b *Builder) SelectedColumns() []string {
	return b.selected
}

// Epoch returns the cache generation counter. It advances every time the
// cache is invalidated, so two reads returning the same epoch observed the
// same materialization.
func (b *Builder) Epoch() int {
	return b.cache.epoch
}

// resolve returns the table handle for the current selection, looking it
// up at most once per selection. A missing table resolves to (nil, nil);
// a missing selection is an error.
func (b *Builder) resolve(ctx context.Context) (Table, error) {
	if b.tableName == "" {
		return nil, ErrNoTableSelected
	}
	if b.resolved {
		return b.table, nil
	}
	tab, err := b.grid.Lookup(ctx, b.tableName)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			b.table = nil
			b.resolved = true
			return nil, nil
		}
		return nil, fmt.Errorf("lookup table %q: %w", b.tableName, err)
	}
	b.table = tab
	b.resolved = true
	return tab, nil
}

// Headings returns the column names from the heading row. The list is
// cached until the next invalidation; a missing table yields an empty
// list, not an error. Callers must not modify the returned slice.
func (b *Builder) Headings(ctx context.Context) ([]string, error) {
	if len(b.cache.headings) > 0 {
		return b.cache.headings, nil
	}
	tab, err := b.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return []string{}, nil
	}
	cells, err := b.grid.ReadRow(ctx, tab, b.headingRow)
	if err != nil {
		return nil, fmt.Errorf("read heading row %d: %w", b.headingRow, err)
	}
	b.cache.headings = stringifyRow(cells)
	return b.cache.headings, nil
}

// materialize builds the row snapshot for the current epoch, reading the
// whole populated rectangle in one call. Within an epoch it returns the
// cached snapshot unchanged.
func (b *Builder) materialize(ctx context.Context) ([]Row, error) {
	if b.cache.built {
		return b.cache.rows, nil
	}
	tab, err := b.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		b.cache.storeRows([]Row{})
		return b.cache.rows, nil
	}
	raw, cols, err := b.grid.ReadAll(ctx, tab)
	if err != nil {
		return nil, fmt.Errorf("read table %q: %w", b.tableName, err)
	}
	numCols := cols
	if len(raw) == 0 {
		numCols = 0
	}
	var headings []string
	if hr := b.headingRow - 1; hr >= 0 && hr < len(raw) {
		headings = stringifyRow(raw[hr])
	}
	b.cache.headings = headings
	rows := make([]Row, 0, len(raw))
	for r, cells := range raw {
		data := make(map[string]interface{}, numCols)
		for c := 0; c < numCols && c < len(cells) && c < len(headings); c++ {
			data[headings[c]] = cells[c]
		}
		rows = append(rows, Row{Data: data, Pos: Position{Row: r + 1, Cols: numCols}})
	}
	b.cache.storeRows(rows)
	return rows, nil
}

// Rows returns the materialized rows matching the filter, in grid order.
// Without a filter the full snapshot is returned, heading row included;
// callers that want data rows only exclude it in their predicate.
// Rows and their data maps are shared with the cache; callers must not
// assume copies.
func (b *Builder) Rows(ctx context.Context) ([]Row, error) {
	rows, err := b.materialize(ctx)
	if err != nil {
		return nil, err
	}
	if b.pred == nil {
		return rows, nil
	}
	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if b.pred(row) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// Cells returns, for each filtered row, a mapping from heading to the
// single-cell reference at that row's recorded position. The references
// are only valid while the row positions are: a delete in between makes
// them stale.
func (b *Builder) Cells(ctx context.Context) ([]map[string]CellRef, error) {
	rows, err := b.Rows(ctx)
	if err != nil {
		return nil, err
	}
	headings := b.cache.headings
	out := make([]map[string]CellRef, 0, len(rows))
	for _, row := range rows {
		refs := make(map[string]CellRef, len(headings))
		for c, h := range headings {
			refs[h] = CellRef{Row: row.Pos.Row, Col: c + 1}
		}
		out = append(out, refs)
	}
	return out, nil
}

// URLs returns, for each filtered row, a mapping from heading to the
// hyperlink target of that cell. Headings whose cell carries no hyperlink
// are omitted, so a row without links yields an empty map.
func (b *Builder) URLs(ctx context.Context) ([]map[string]string, error) {
	rows, err := b.Rows(ctx)
	if err != nil {
		return nil, err
	}
	headings := b.cache.headings
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		links := make(map[string]string)
		for c := range headings {
			url, ok, err := b.grid.LinkURL(ctx, b.table, row.Pos.Row, c+1)
			if err != nil {
				return nil, fmt.Errorf("read link at %s: %w", CellRef{Row: row.Pos.Row, Col: c + 1}, err)
			}
			if ok && url != "" {
				links[headings[c]] = url
			}
		}
		out = append(out, links)
	}
	return out, nil
}

// Insert appends one grid row per non-nil input map, projecting each map
// through the current heading order. A column whose value is absent, nil,
// an empty string or a zero number is written as an empty string; boolean
// false is written as false. Insert does not touch the row cache; the
// next materialization picks the new rows up.
func (b *Builder) Insert(ctx context.Context, rows []map[string]interface{}) error {
	tab, err := b.resolve(ctx)
	if err != nil {
		return err
	}
	if tab == nil {
		return fmt.Errorf("insert into %q: %w", b.tableName, ErrTableNotFound)
	}
	headings, err := b.Headings(ctx)
	if err != nil {
		return err
	}
	for _, rec := range rows {
		if rec == nil {
			continue
		}
		vals := make([]interface{}, len(headings))
		for i, h := range headings {
			if v, ok := rec[h]; ok && hasValue(v) {
				vals[i] = v
			} else {
				vals[i] = ""
			}
		}
		if err := b.grid.Append(ctx, tab, vals); err != nil {
			return fmt.Errorf("append to %q: %w", b.tableName, err)
		}
	}
	return nil
}

// Update applies fn to every filtered row via UpdateRow, then invalidates
// the cache once and flushes the grid. The whole pass operates against the
// snapshot taken at its start, never against intermediate updated state.
// The cache is invalidated even when the pass fails partway, since some
// rows may already have been rewritten.
func (b *Builder) Update(ctx context.Context, fn UpdateFunc) error {
	rows, err := b.Rows(ctx)
	if err != nil {
		return err
	}
	var uerr error
	for _, row := range rows {
		if uerr = b.UpdateRow(ctx, row, fn); uerr != nil {
			break
		}
	}
	if cerr := b.ClearCache(ctx); uerr == nil {
		uerr = cerr
	}
	return uerr
}

// UpdateRow rewrites one row in place. The updated values are projected
// through the current heading order and merged over a fresh read of the
// row: a column keeps its existing grid value unless the update supplies a
// value under the Insert projection rule, so updating a column to an empty
// string or zero leaves the old value in place, while false is written.
// The write spans the larger of the row's recorded width and the heading
// count. UpdateRow does not invalidate the cache; lone callers follow up
// with ClearCache.
func (b *Builder) UpdateRow(ctx context.Context, row Row, fn UpdateFunc) error {
	tab, err := b.resolve(ctx)
	if err != nil {
		return err
	}
	if tab == nil {
		return fmt.Errorf("update in %q: %w", b.tableName, ErrTableNotFound)
	}
	headings, err := b.Headings(ctx)
	if err != nil {
		return err
	}
	// Position is captured before fn runs so the write address cannot be
	// re-aimed by the update function.
	pos := row.Pos
	updated := &row
	if fn != nil {
		if replacement := fn(&row); replacement != nil {
			updated = replacement
		}
	}
	vals := make([]interface{}, len(headings))
	for i, h := range headings {
		if v, ok := updated.Data[h]; ok && hasValue(v) {
			vals[i] = v
		} else {
			vals[i] = ""
		}
	}
	width := pos.Cols
	if len(vals) > width {
		width = len(vals)
	}
	if width == 0 {
		return nil
	}
	baseline, err := b.grid.ReadRange(ctx, tab, pos.Row, 1, 1, width)
	if err != nil {
		return fmt.Errorf("read row %d of %q: %w", pos.Row, b.tableName, err)
	}
	var current []interface{}
	if len(baseline) > 0 {
		current = baseline[0]
	}
	merged := make([]interface{}, width)
	for i := 0; i < width; i++ {
		switch {
		case i < len(vals) && hasValue(vals[i]):
			merged[i] = vals[i]
		case i < len(current):
			merged[i] = current[i]
		default:
			merged[i] = ""
		}
	}
	if err := b.grid.WriteRange(ctx, tab, pos.Row, 1, [][]interface{}{merged}); err != nil {
		return fmt.Errorf("write row %d of %q: %w", pos.Row, b.tableName, err)
	}
	return nil
}

// Delete removes every filtered row from the grid, then invalidates the
// cache and flushes. Rows are deleted in materialization order; the i-th
// deletion targets the recorded position minus i, compensating for the
// upward shift earlier deletions cause. This is only correct when the
// filtered rows are in ascending original order without duplicates, which
// holds for every filter applied through Where. The cache is invalidated
// even when the pass fails partway.
func (b *Builder) Delete(ctx context.Context) error {
	rows, err := b.Rows(ctx)
	if err != nil {
		return err
	}
	var derr error
	for i, row := range rows {
		if err := b.grid.DeleteRows(ctx, b.table, row.Pos.Row-i, 1); err != nil {
			derr = fmt.Errorf("delete row %d of %q: %w", row.Pos.Row, b.tableName, err)
			break
		}
	}
	if cerr := b.ClearCache(ctx); derr == nil {
		derr = cerr
	}
	return derr
}

// ClearCache drops the materialized rows and the heading list, starts a
// new epoch, and flushes the grid so buffered writes become visible before
// the next read.
func (b *Builder) ClearCache(ctx context.Context) error {
	b.cache.invalidate()
	if err := b.grid.Flush(ctx); err != nil {
		return fmt.Errorf("flush grid: %w", err)
	}
	return nil
}

// hasValue reports whether v counts as a written value. nil, empty strings
// and zero numbers read as "no value"; boolean false is a real value.
func hasValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return true
	default:
		if isNumeric(v) {
			return toFloat64(val) != 0
		}
		return true
	}
}

// cellString renders a raw cell value the way headings are keyed: nil maps
// to the empty string, strings pass through, anything else prints with %v.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func stringifyRow(cells []interface{}) []string {
	names := make([]string, len(cells))
	for i, c := range cells {
		names[i] = cellString(c)
	}
	return names
}
