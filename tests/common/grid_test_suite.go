package common

import (
	"context"
	"errors"
	"reflect"
	"testing"

	sheetq "github.com/sheetq/go-sheetq"
)

// GridTestCase identifies one grid backend under test.
type GridTestCase struct {
	Name        string
	Grid        sheetq.Grid
	Description string
}

// ResetTable wipes the named table and refills it with the given rows,
// using only Grid operations so every backend gets the same treatment.
// The calling test is skipped when the backend does not have the table,
// which keeps optional backends from failing suites they cannot run.
func ResetTable(t *testing.T, g sheetq.Grid, table string, rows [][]interface{}) {
	t.Helper()
	ctx := context.Background()

	tab, err := g.Lookup(ctx, table)
	if errors.Is(err, sheetq.ErrTableNotFound) {
		t.Skipf("Table %q not present in backend", table)
	}
	if err != nil {
		t.Fatalf("Failed to look up table %q: %v", table, err)
	}

	values, _, err := g.ReadAll(ctx, tab)
	if err != nil {
		t.Fatalf("Failed to read table %q: %v", table, err)
	}
	if len(values) > 0 {
		if err := g.DeleteRows(ctx, tab, 1, len(values)); err != nil {
			t.Fatalf("Failed to clear table %q: %v", table, err)
		}
	}
	for i, row := range rows {
		if err := g.Append(ctx, tab, row); err != nil {
			t.Fatalf("Failed to seed row %d of %q: %v", i+1, table, err)
		}
	}
	if err := g.Flush(ctx); err != nil {
		t.Fatalf("Failed to flush %q: %v", table, err)
	}
}

func lookupTable(t *testing.T, g sheetq.Grid, table string) sheetq.Table {
	t.Helper()
	tab, err := g.Lookup(context.Background(), table)
	if err != nil {
		t.Fatalf("Failed to look up table %q: %v", table, err)
	}
	return tab
}

// RunGridConformance checks the Grid contract against one backend table:
// rectangular reads, padded ranges, append placement, delete shifting and
// bounds errors. Every backend must pass it over the same seed data.
func RunGridConformance(t *testing.T, g sheetq.Grid, table string) {
	ctx := context.Background()

	t.Run("LookupMissing", func(t *testing.T) {
		_, err := g.Lookup(ctx, table+"_missing")
		if !errors.Is(err, sheetq.ErrTableNotFound) {
			t.Errorf("Lookup() error = %v, want ErrTableNotFound", err)
		}
	})

	t.Run("RectangularReads", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{
			{"a", "b", "c"},
			{"1"},
			{"2", "3"},
		})
		tab := lookupTable(t, g, table)

		values, cols, err := g.ReadAll(ctx, tab)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if cols != 3 {
			t.Errorf("ReadAll() cols = %d, want 3", cols)
		}
		want := [][]interface{}{
			{"a", "b", "c"},
			{"1", "", ""},
			{"2", "3", ""},
		}
		if !reflect.DeepEqual(values, want) {
			t.Errorf("ReadAll() = %v, want %v", values, want)
		}

		row, err := g.ReadRow(ctx, tab, 2)
		if err != nil {
			t.Fatalf("ReadRow() error = %v", err)
		}
		if wantRow := []interface{}{"1", "", ""}; !reflect.DeepEqual(row, wantRow) {
			t.Errorf("ReadRow(2) = %v, want %v", row, wantRow)
		}
		beyond, err := g.ReadRow(ctx, tab, 9)
		if err != nil {
			t.Fatalf("ReadRow(9) error = %v", err)
		}
		if len(beyond) != 0 {
			t.Errorf("ReadRow(9) = %v, want empty", beyond)
		}

		rng, err := g.ReadRange(ctx, tab, 2, 2, 2, 3)
		if err != nil {
			t.Fatalf("ReadRange() error = %v", err)
		}
		wantRng := [][]interface{}{
			{"", "", ""},
			{"3", "", ""},
		}
		if !reflect.DeepEqual(rng, wantRng) {
			t.Errorf("ReadRange() = %v, want %v", rng, wantRng)
		}
	})

	t.Run("AppendPlacesBelow", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{
			{"a", "b"},
			{"1", "2"},
		})
		tab := lookupTable(t, g, table)

		if err := g.Append(ctx, tab, []interface{}{"x", "y"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		values, _, err := g.ReadAll(ctx, tab)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if len(values) != 3 {
			t.Fatalf("ReadAll() = %d rows after append, want 3", len(values))
		}
		if want := []interface{}{"x", "y"}; !reflect.DeepEqual(values[2], want) {
			t.Errorf("appended row = %v, want %v", values[2], want)
		}
	})

	t.Run("DeleteShiftsRows", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{
			{"h"},
			{"r2"},
			{"r3"},
			{"r4"},
			{"r5"},
		})
		tab := lookupTable(t, g, table)

		if err := g.DeleteRows(ctx, tab, 2, 2); err != nil {
			t.Fatalf("DeleteRows() error = %v", err)
		}
		values, _, err := g.ReadAll(ctx, tab)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		want := [][]interface{}{{"h"}, {"r4"}, {"r5"}}
		if !reflect.DeepEqual(values, want) {
			t.Errorf("ReadAll() after delete = %v, want %v", values, want)
		}
	})

	t.Run("DeleteRejectsBadArgs", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{{"h"}})
		tab := lookupTable(t, g, table)

		if err := g.DeleteRows(ctx, tab, 0, 1); !errors.Is(err, sheetq.ErrRowOutOfRange) {
			t.Errorf("DeleteRows(0, 1) error = %v, want ErrRowOutOfRange", err)
		}
		if err := g.DeleteRows(ctx, tab, 1, 0); !errors.Is(err, sheetq.ErrRowOutOfRange) {
			t.Errorf("DeleteRows(1, 0) error = %v, want ErrRowOutOfRange", err)
		}
	})

	t.Run("WriteRangeOverwrites", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{
			{"a", "b"},
			{"1", "2"},
		})
		tab := lookupTable(t, g, table)

		if err := g.WriteRange(ctx, tab, 2, 1, [][]interface{}{{"x", "y"}}); err != nil {
			t.Fatalf("WriteRange() error = %v", err)
		}
		rng, err := g.ReadRange(ctx, tab, 2, 1, 1, 2)
		if err != nil {
			t.Fatalf("ReadRange() error = %v", err)
		}
		if want := [][]interface{}{{"x", "y"}}; !reflect.DeepEqual(rng, want) {
			t.Errorf("ReadRange() after write = %v, want %v", rng, want)
		}

		if err := g.WriteRange(ctx, tab, 0, 1, nil); !errors.Is(err, sheetq.ErrRowOutOfRange) {
			t.Errorf("WriteRange(0, 1) error = %v, want ErrRowOutOfRange", err)
		}
	})

	t.Run("WriteBeyondExtentGrows", func(t *testing.T) {
		ResetTable(t, g, table, [][]interface{}{{"a"}})
		tab := lookupTable(t, g, table)

		if err := g.WriteRange(ctx, tab, 3, 1, [][]interface{}{{"far"}}); err != nil {
			t.Fatalf("WriteRange() error = %v", err)
		}
		row, err := g.ReadRow(ctx, tab, 3)
		if err != nil {
			t.Fatalf("ReadRow() error = %v", err)
		}
		if len(row) == 0 || row[0] != "far" {
			t.Errorf("ReadRow(3) = %v, want first cell far", row)
		}
	})
}
