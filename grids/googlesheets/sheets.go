package googlesheets

import (
	"context"
	"errors"
	"fmt"

	sheetq "github.com/sheetq/go-sheetq"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Grid implements the sheetq.Grid interface for one Google Sheets
// spreadsheet. Each sheet (tab) is one table, addressed by its title.
// Values API calls commit immediately, so Flush is a no-op.
type Grid struct {
	service       *sheets.Service
	spreadsheetID string
}

type table struct {
	title string
	id    int64
}

func (t *table) Name() string { return t.title }

// New creates a Google Sheets grid with the provided client options.
func New(ctx context.Context, config Config, opts ...option.ClientOption) (*Grid, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Grid{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
	}, nil
}

// Lookup implements sheetq.Grid, matching sheets by title. A missing
// spreadsheet reports ErrTableNotFound the same as a missing sheet.
func (g *Grid) Lookup(ctx context.Context, name string) (sheetq.Table, error) {
	resp, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return nil, fmt.Errorf("spreadsheet %q: %w", g.spreadsheetID, sheetq.ErrTableNotFound)
		}
		return nil, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == name {
			return &table{title: name, id: sheet.Properties.SheetId}, nil
		}
	}
	return nil, fmt.Errorf("sheet %q: %w", name, sheetq.ErrTableNotFound)
}

// ReadAll implements sheetq.Grid.
func (g *Grid) ReadAll(ctx context.Context, tab sheetq.Table) ([][]interface{}, int, error) {
	raw, err := g.readSheet(ctx, tab.Name())
	if err != nil {
		return nil, 0, err
	}
	width := sheetWidth(raw)
	if len(raw) == 0 || width == 0 {
		return nil, 0, nil
	}
	out := make([][]interface{}, len(raw))
	for i, row := range raw {
		out[i] = padRow(row, width)
	}
	return out, width, nil
}

// ReadRow implements sheetq.Grid. The row is read at the populated width
// of the whole sheet, since the Values API alone cannot report it for a
// single-row range.
func (g *Grid) ReadRow(ctx context.Context, tab sheetq.Table, row int) ([]interface{}, error) {
	raw, err := g.readSheet(ctx, tab.Name())
	if err != nil {
		return nil, err
	}
	if row < 1 || row > len(raw) {
		return []interface{}{}, nil
	}
	return padRow(raw[row-1], sheetWidth(raw)), nil
}

// ReadRange implements sheetq.Grid.
func (g *Grid) ReadRange(ctx context.Context, tab sheetq.Table, row, col, numRows, numCols int) ([][]interface{}, error) {
	readRange := fmt.Sprintf("%s!%s:%s",
		tab.Name(),
		sheetq.CellRef{Row: row, Col: col}.A1(),
		sheetq.CellRef{Row: row + numRows - 1, Col: col + numCols - 1}.A1())
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get range %s: %w", readRange, err)
	}
	out := make([][]interface{}, numRows)
	for r := 0; r < numRows; r++ {
		var cells []interface{}
		if r < len(resp.Values) {
			cells = resp.Values[r]
		}
		out[r] = padRow(cells, numCols)
	}
	return out, nil
}

// Append implements sheetq.Grid, appending below the populated area.
func (g *Grid) Append(ctx context.Context, tab sheetq.Table, values []interface{}) error {
	appendRange := fmt.Sprintf("%s!A:ZZ", tab.Name())
	vr := &sheets.ValueRange{Values: [][]interface{}{values}}
	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, appendRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// DeleteRows implements sheetq.Grid via a DeleteDimension batch request.
func (g *Grid) DeleteRows(ctx context.Context, tab sheetq.Table, row, count int) error {
	if row < 1 || count < 1 {
		return fmt.Errorf("delete rows %d-%d of %q: %w", row, row+count-1, tab.Name(), sheetq.ErrRowOutOfRange)
	}
	t, ok := tab.(*table)
	if !ok {
		return fmt.Errorf("foreign table handle %T", tab)
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.id,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row - 1 + count),
				},
			},
		}},
	}
	if _, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete rows %d-%d: %w", row, row+count-1, err)
	}
	return nil
}

// WriteRange implements sheetq.Grid.
func (g *Grid) WriteRange(ctx context.Context, tab sheetq.Table, row, col int, values [][]interface{}) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("write at row %d col %d of %q: %w", row, col, tab.Name(), sheetq.ErrRowOutOfRange)
	}
	writeRange := fmt.Sprintf("%s!%s", tab.Name(), sheetq.CellRef{Row: row, Col: col}.A1())
	vr := &sheets.ValueRange{Values: values}
	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", writeRange, err)
	}
	return nil
}

// LinkURL implements sheetq.Grid, fetching just the hyperlink field of
// one cell.
func (g *Grid) LinkURL(ctx context.Context, tab sheetq.Table, row, col int) (string, bool, error) {
	cellRange := fmt.Sprintf("%s!%s", tab.Name(), sheetq.CellRef{Row: row, Col: col}.A1())
	resp, err := g.service.Spreadsheets.Get(g.spreadsheetID).
		Ranges(cellRange).
		Fields("sheets(data(rowData(values(hyperlink))))").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("failed to get hyperlink for %s: %w", cellRange, err)
	}
	for _, sheet := range resp.Sheets {
		for _, data := range sheet.Data {
			for _, rowData := range data.RowData {
				for _, cell := range rowData.Values {
					if cell.Hyperlink != "" {
						return cell.Hyperlink, true, nil
					}
				}
			}
		}
	}
	return "", false, nil
}

// Flush implements sheetq.Grid. Every write above commits per call, so
// there is nothing to flush.
func (g *Grid) Flush(ctx context.Context) error {
	return nil
}

func (g *Grid) readSheet(ctx context.Context, title string) ([][]interface{}, error) {
	readRange := fmt.Sprintf("%s!A:ZZ", title)
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet data: %w", err)
	}
	return resp.Values, nil
}

func sheetWidth(rows [][]interface{}) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
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
