package main

import (
	"context"
	"fmt"
	"log"

	sheetq "github.com/sheetq/go-sheetq"
	"github.com/sheetq/go-sheetq/grids/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Create grid configuration
	config := googlesheets.Config{
		SpreadsheetID: "your-spreadsheet-id",
	}

	// Initialize Google Sheets grid with JSON key file
	grid, err := googlesheets.NewWithJSONKeyFile(ctx, config, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create grid: %w", err)
	}

	// Build a query over the "users" tab; row 1 holds the headings
	users := sheetq.New(grid).From("users").Where(func(row sheetq.Row) bool {
		age := row.GetAsInt64("age", 0)
		return row.Pos.Row > 1 && age >= 25 && age <= 35
	})

	rows, err := users.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to query rows: %w", err)
	}
	fmt.Printf("Found %d users aged 25-35:\n", len(rows))
	for _, row := range rows {
		name := row.GetAsString("name", "Unknown")
		age := row.GetAsInt64("age", 0)
		fmt.Printf("  Row %d: %s (age: %d)\n", row.Pos.Row, name, age)
	}

	// Insert a new user; columns missing from the map are left blank
	err = sheetq.New(grid).From("users").Insert(ctx, []map[string]interface{}{
		{"name": "John Doe", "email": "john@example.com", "age": 30},
	})
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	fmt.Println("Added John Doe")

	// Inserts do not invalidate cached reads; clear before querying again
	if err := users.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	// Mark every matching user active; untouched columns keep their cells
	err = users.Update(ctx, func(row *sheetq.Row) *sheetq.Row {
		row.SetBool("active", true)
		return row
	})
	if err != nil {
		return fmt.Errorf("failed to update rows: %w", err)
	}
	fmt.Println("Marked matching users active")

	return nil
}
