package main

import (
	"context"
	"fmt"
	"log"

	sheetq "github.com/sheetq/go-sheetq"
	"github.com/sheetq/go-sheetq/grids/excel"
	"github.com/xuri/excelize/v2"
)

const workbookPath = "./example_data.xlsx"

func main() {
	ctx := context.Background()

	// 1. Seed a workbook with a heading row and a few users
	if err := seedWorkbook(workbookPath); err != nil {
		log.Fatalf("Failed to create workbook: %v", err)
	}
	fmt.Printf("Created %s\n", workbookPath)

	// 2. Open it as a grid (no authentication required)
	grid, err := excel.New(&excel.Config{FilePath: workbookPath})
	if err != nil {
		log.Fatalf("Failed to create Excel grid: %v", err)
	}
	defer grid.Close()

	// 3. Query active engineers
	fmt.Println("\nQuerying active engineers...")
	engineers := sheetq.New(grid).From("users").Where(sheetq.And(
		dataRows,
		sheetq.Match(
			sheetq.Condition{Column: "department", Operator: "==", Value: "Engineering"},
			sheetq.Condition{Column: "active", Operator: "==", Value: true},
		),
	))
	rows, err := engineers.Rows(ctx)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	for _, row := range rows {
		fmt.Printf("- %s (age: %d)\n", row.GetAsString("name", ""), row.GetAsInt64("age", 0))
	}

	// 4. Move Bob to Sales; columns the update leaves empty keep their cells
	fmt.Println("\nMoving Bob Smith to Sales...")
	err = sheetq.New(grid).From("users").
		Where(sheetq.And(dataRows, sheetq.Match(sheetq.Condition{Column: "name", Operator: "==", Value: "Bob Smith"}))).
		Update(ctx, func(row *sheetq.Row) *sheetq.Row {
			row.SetString("department", "Sales")
			return row
		})
	if err != nil {
		log.Fatalf("Update failed: %v", err)
	}

	// 5. Add a row built with the typed setters
	diana := sheetq.Row{Data: make(map[string]interface{})}
	diana.SetString("name", "Diana Prince")
	diana.SetString("email", "diana@example.com")
	diana.SetInt64("age", 28)
	diana.SetBool("active", true)
	if err := sheetq.New(grid).From("users").Insert(ctx, []map[string]interface{}{diana.Data}); err != nil {
		log.Fatalf("Failed to insert row: %v", err)
	}
	fmt.Println("\nAdded Diana Prince")

	// 6. Inspect where the matching cells live
	cells, err := sheetq.New(grid).From("users").
		Where(sheetq.And(dataRows, sheetq.Match(sheetq.Condition{Column: "department", Operator: "==", Value: "Sales"}))).
		Cells(ctx)
	if err != nil {
		log.Fatalf("Failed to resolve cells: %v", err)
	}
	for _, refs := range cells {
		fmt.Printf("Sales row: department cell at %s\n", refs["department"].A1())
	}

	// 7. Save the workbook
	fmt.Println("\nSaving workbook...")
	if err := grid.Flush(ctx); err != nil {
		log.Fatalf("Failed to save workbook: %v", err)
	}
	fmt.Println("\nExample completed. Check ./example_data.xlsx for the data.")
}

func dataRows(row sheetq.Row) bool {
	return row.Pos.Row > 1
}

// seedWorkbook writes a small users sheet so the grid has data to work on.
func seedWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "users"); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"name", "email", "age", "department", "active"},
		{"Alice Johnson", "alice@example.com", 30, "Engineering", "true"},
		{"Bob Smith", "bob@example.com", 25, "Marketing", "true"},
		{"Charlie Brown", "charlie@example.com", 35, "Engineering", "false"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("users", cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
