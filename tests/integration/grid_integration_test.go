package integration

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	sheetq "github.com/sheetq/go-sheetq"
	"github.com/sheetq/go-sheetq/grids/googlesheets"
	"github.com/sheetq/go-sheetq/tests/common"
)

// TestGoogleSheetsIntegration drives the builder against a real spreadsheet.
// It needs SHEETQ_TEST_SPREADSHEET_ID and GOOGLE_APPLICATION_CREDENTIALS,
// plus a tab named "integration" in the spreadsheet.
func TestGoogleSheetsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Load .env file if it exists
	envPath := filepath.Join("..", "..", ".env")
	if _, err := os.Stat(envPath); err == nil {
		loadEnvFile(envPath)
	}

	spreadsheetID := os.Getenv("SHEETQ_TEST_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("⚠️  Skipping integration test: SHEETQ_TEST_SPREADSHEET_ID not set")
	}
	jsonPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if jsonPath == "" {
		t.Skip("⚠️  Skipping integration test: GOOGLE_APPLICATION_CREDENTIALS not set")
	}
	// If path is relative, make it absolute
	if !filepath.IsAbs(jsonPath) {
		jsonPath = filepath.Join("..", "..", jsonPath)
	}

	ctx := context.Background()
	g, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.Config{SpreadsheetID: spreadsheetID}, jsonPath)
	if err != nil {
		t.Fatalf("Failed to create Google Sheets grid: %v", err)
	}

	t.Run("GridContract", func(t *testing.T) {
		common.RunGridConformance(t, g, "integration")
	})

	t.Run("BuilderRoundTrip", func(t *testing.T) {
		testBuilderRoundTrip(t, g)
	})

	t.Run("RangeIO", func(t *testing.T) {
		testRangeIO(t, g)
	})
}

func dataRows(row sheetq.Row) bool {
	return row.Pos.Row > 1
}

// testBuilderRoundTrip runs one full insert, query, update, delete cycle
// over the live sheet.
func testBuilderRoundTrip(t *testing.T, g sheetq.Grid) {
	common.ResetTable(t, g, "integration", [][]interface{}{
		{"task", "owner", "done"},
		{"provision", "alice", "false"},
		{"deploy", "bob", "false"},
	})
	ctx := context.Background()

	b := sheetq.New(g).From("integration")
	start := time.Now()
	err := b.Insert(ctx, []map[string]interface{}{
		{"task": "verify", "owner": "carol"},
		{"task": "announce", "owner": "alice"},
	})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := b.ClearCache(ctx); err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}
	t.Logf("Inserted 2 rows in %v", time.Since(start))

	rows, err := sheetq.New(g).From("integration").Where(dataRows).Rows(ctx)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Rows() = %d rows after insert, want 4", len(rows))
	}

	alice := sheetq.And(dataRows, sheetq.Match(sheetq.Condition{Column: "owner", Operator: "==", Value: "alice"}))
	err = sheetq.New(g).From("integration").Where(alice).Update(ctx, func(row *sheetq.Row) *sheetq.Row {
		row.SetBool("done", true)
		return row
	})
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}

	doneRows, err := sheetq.New(g).From("integration").
		Where(sheetq.And(dataRows, func(row sheetq.Row) bool { return row.GetAsBool("done", false) })).
		Rows(ctx)
	if err != nil {
		t.Fatalf("Failed to read updated rows: %v", err)
	}
	if len(doneRows) != 2 {
		t.Fatalf("done Rows() = %d rows, want 2", len(doneRows))
	}
	for _, row := range doneRows {
		if got := row.GetAsString("owner", ""); got != "alice" {
			t.Errorf("done row owner = %q, want alice", got)
		}
	}

	if err := sheetq.New(g).From("integration").Where(alice).Delete(ctx); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	left, err := sheetq.New(g).From("integration").Where(dataRows).Rows(ctx)
	if err != nil {
		t.Fatalf("Failed to re-read rows: %v", err)
	}
	var tasks []string
	for _, row := range left {
		tasks = append(tasks, row.GetAsString("task", ""))
	}
	if want := []string{"deploy", "verify"}; !reflect.DeepEqual(tasks, want) {
		t.Errorf("remaining tasks = %v, want %v", tasks, want)
	}
}

// testRangeIO exercises raw range reads and writes outside the builder.
func testRangeIO(t *testing.T, g sheetq.Grid) {
	common.ResetTable(t, g, "integration", [][]interface{}{
		{"slot", "value"},
		{"a", "1"},
		{"b", "2"},
		{"c", "3"},
	})
	ctx := context.Background()

	tab, err := g.Lookup(ctx, "integration")
	if err != nil {
		t.Fatalf("Failed to look up table: %v", err)
	}

	if err := g.WriteRange(ctx, tab, 3, 2, [][]interface{}{{"20"}, {"30"}}); err != nil {
		t.Fatalf("Failed to write range: %v", err)
	}
	rng, err := g.ReadRange(ctx, tab, 2, 2, 3, 1)
	if err != nil {
		t.Fatalf("Failed to read range: %v", err)
	}
	want := [][]interface{}{{"1"}, {"20"}, {"30"}}
	if !reflect.DeepEqual(rng, want) {
		t.Errorf("ReadRange() = %v, want %v", rng, want)
	}

	row, err := g.ReadRow(ctx, tab, 4)
	if err != nil {
		t.Fatalf("Failed to read row: %v", err)
	}
	if wantRow := []interface{}{"c", "30"}; !reflect.DeepEqual(row, wantRow) {
		t.Errorf("ReadRow(4) = %v, want %v", row, wantRow)
	}
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove surrounding quotes if present
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}

		// Convert \n escape sequences to actual newlines for private keys
		if key == "SHEETQ_TEST_CLIENT_PRIVATE_KEY" {
			value = strings.ReplaceAll(value, "\\n", "\n")
		}

		os.Setenv(key, value)
	}

	return nil
}
