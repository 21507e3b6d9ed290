package googlesheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	sheetq "github.com/sheetq/go-sheetq"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const metadataJSON = `{
	"sheets": [
		{"properties": {"sheetId": 123, "title": "TestSheet"}},
		{"properties": {"sheetId": 456, "title": "Archive"}}
	]
}`

func newTestGrid(t *testing.T, handler http.HandlerFunc) (*Grid, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	grid, err := New(context.Background(), Config{SpreadsheetID: "test-id"},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	return grid, server
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Config{}); !errors.Is(err, ErrMissingSpreadsheetID) {
		t.Errorf("New() error = %v, want ErrMissingSpreadsheetID", err)
	}
}

func TestGrid_Lookup(t *testing.T) {
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v4/spreadsheets/test-id" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(metadataJSON))
		} else {
			w.WriteHeader(404)
		}
	})
	ctx := context.Background()

	tab, err := grid.Lookup(ctx, "TestSheet")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if tab.Name() != "TestSheet" {
		t.Errorf("Name() = %v, want TestSheet", tab.Name())
	}
	if got := tab.(*table).id; got != 123 {
		t.Errorf("sheet id = %d, want 123", got)
	}

	if _, err := grid.Lookup(ctx, "Missing"); !errors.Is(err, sheetq.ErrTableNotFound) {
		t.Errorf("Lookup(Missing) error = %v, want ErrTableNotFound", err)
	}
}

func TestGrid_LookupMissingSpreadsheet(t *testing.T) {
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(404)
		w.Write([]byte(`{"error": {"code": 404, "message": "Requested entity was not found."}}`))
	})

	_, err := grid.Lookup(context.Background(), "TestSheet")
	if !errors.Is(err, sheetq.ErrTableNotFound) {
		t.Errorf("Lookup() error = %v, want ErrTableNotFound", err)
	}
}

func TestGrid_ReadAll(t *testing.T) {
	tests := []struct {
		name      string
		sheetData string
		want      [][]interface{}
		wantCols  int
	}{
		{
			name: "ragged rows pad to the widest",
			sheetData: `{
				"values": [
					["name", "age"],
					["John", null],
					["Jane"]
				]
			}`,
			want: [][]interface{}{
				{"name", "age"},
				{"John", ""},
				{"Jane", ""},
			},
			wantCols: 2,
		},
		{
			name:      "empty sheet",
			sheetData: `{}`,
			want:      nil,
			wantCols:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v4/spreadsheets/test-id/values/TestSheet!A:ZZ" {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(tt.sheetData))
				} else {
					w.WriteHeader(404)
				}
			})

			values, cols, err := grid.ReadAll(context.Background(), &table{title: "TestSheet", id: 123})
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if cols != tt.wantCols {
				t.Errorf("ReadAll() cols = %d, want %d", cols, tt.wantCols)
			}
			if !reflect.DeepEqual(values, tt.want) {
				t.Errorf("ReadAll() = %v, want %v", values, tt.want)
			}
		})
	}
}

func TestGrid_ReadRow(t *testing.T) {
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"values": [
				["name", "age", "active"],
				["John"]
			]
		}`))
	})
	ctx := context.Background()
	tab := &table{title: "TestSheet", id: 123}

	row, err := grid.ReadRow(ctx, tab, 2)
	if err != nil {
		t.Fatalf("ReadRow() error = %v", err)
	}
	if want := []interface{}{"John", "", ""}; !reflect.DeepEqual(row, want) {
		t.Errorf("ReadRow(2) = %v, want %v", row, want)
	}

	beyond, err := grid.ReadRow(ctx, tab, 7)
	if err != nil {
		t.Fatalf("ReadRow(7) error = %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("ReadRow(7) = %v, want empty", beyond)
	}
}

func TestGrid_ReadRange(t *testing.T) {
	var requestedRange string
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		requestedRange = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"values": [["x"]]}`))
	})

	values, err := grid.ReadRange(context.Background(), &table{title: "TestSheet", id: 123}, 2, 2, 2, 2)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if want := "/v4/spreadsheets/test-id/values/TestSheet!B2:C3"; requestedRange != want {
		t.Errorf("requested range = %v, want %v", requestedRange, want)
	}
	want := [][]interface{}{
		{"x", ""},
		{"", ""},
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("ReadRange() = %v, want %v", values, want)
	}
}

func TestGrid_Append(t *testing.T) {
	var gotBody sheets.ValueRange
	var gotQuery map[string]string
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/spreadsheets/test-id/values/TestSheet!A:ZZ:append" {
			w.WriteHeader(404)
			return
		}
		gotQuery = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode append body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	err := grid.Append(context.Background(), &table{title: "TestSheet", id: 123}, []interface{}{"John", "30"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if gotQuery["valueInputOption"] != "RAW" || gotQuery["insertDataOption"] != "INSERT_ROWS" {
		t.Errorf("append options = %v, want RAW and INSERT_ROWS", gotQuery)
	}
	if want := [][]interface{}{{"John", "30"}}; !reflect.DeepEqual(gotBody.Values, want) {
		t.Errorf("appended values = %v, want %v", gotBody.Values, want)
	}
}

func TestGrid_WriteRange(t *testing.T) {
	var gotPath string
	var gotBody sheets.ValueRange
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			t.Errorf("valueInputOption = %v, want RAW", r.URL.Query().Get("valueInputOption"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode update body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	ctx := context.Background()
	tab := &table{title: "TestSheet", id: 123}

	err := grid.WriteRange(ctx, tab, 2, 2, [][]interface{}{{"a", "b"}})
	if err != nil {
		t.Fatalf("WriteRange() error = %v", err)
	}
	if want := "/v4/spreadsheets/test-id/values/TestSheet!B2"; gotPath != want {
		t.Errorf("update path = %v, want %v", gotPath, want)
	}
	if want := [][]interface{}{{"a", "b"}}; !reflect.DeepEqual(gotBody.Values, want) {
		t.Errorf("written values = %v, want %v", gotBody.Values, want)
	}

	if err := grid.WriteRange(ctx, tab, 0, 1, nil); !errors.Is(err, sheetq.ErrRowOutOfRange) {
		t.Errorf("WriteRange(0,1) error = %v, want ErrRowOutOfRange", err)
	}
}

func TestGrid_DeleteRows(t *testing.T) {
	var gotReq sheets.BatchUpdateSpreadsheetRequest
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/spreadsheets/test-id:batchUpdate" {
			w.WriteHeader(404)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("Failed to decode batch update body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	ctx := context.Background()
	tab := &table{title: "TestSheet", id: 123}

	if err := grid.DeleteRows(ctx, tab, 3, 2); err != nil {
		t.Fatalf("DeleteRows() error = %v", err)
	}

	if len(gotReq.Requests) != 1 || gotReq.Requests[0].DeleteDimension == nil {
		t.Fatalf("batch update = %+v, want one DeleteDimension request", gotReq.Requests)
	}
	dim := gotReq.Requests[0].DeleteDimension.Range
	if dim.SheetId != 123 || dim.Dimension != "ROWS" || dim.StartIndex != 2 || dim.EndIndex != 4 {
		t.Errorf("dimension range = %+v, want sheet 123 ROWS [2,4)", dim)
	}

	if err := grid.DeleteRows(ctx, tab, 0, 1); !errors.Is(err, sheetq.ErrRowOutOfRange) {
		t.Errorf("DeleteRows(0,1) error = %v, want ErrRowOutOfRange", err)
	}
	if err := grid.DeleteRows(ctx, tab, 1, 0); !errors.Is(err, sheetq.ErrRowOutOfRange) {
		t.Errorf("DeleteRows(1,0) error = %v, want ErrRowOutOfRange", err)
	}
}

func TestGrid_LinkURL(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantURL string
		wantOK  bool
	}{
		{
			name:    "cell with hyperlink",
			body:    `{"sheets": [{"data": [{"rowData": [{"values": [{"hyperlink": "https://example.com/x"}]}]}]}]}`,
			wantURL: "https://example.com/x",
			wantOK:  true,
		},
		{
			name:   "cell without hyperlink",
			body:   `{"sheets": [{"data": [{"rowData": [{"values": [{}]}]}]}]}`,
			wantOK: false,
		},
		{
			name:   "empty cell",
			body:   `{"sheets": [{"data": [{}]}]}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRanges string
			grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
				gotRanges = r.URL.Query().Get("ranges")
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			url, ok, err := grid.LinkURL(context.Background(), &table{title: "TestSheet", id: 123}, 2, 1)
			if err != nil {
				t.Fatalf("LinkURL() error = %v", err)
			}
			if gotRanges != "TestSheet!A2" {
				t.Errorf("requested ranges = %v, want TestSheet!A2", gotRanges)
			}
			if ok != tt.wantOK || url != tt.wantURL {
				t.Errorf("LinkURL() = %q, %v; want %q, %v", url, ok, tt.wantURL, tt.wantOK)
			}
		})
	}
}

func TestGrid_ServerError(t *testing.T) {
	grid, _ := newTestGrid(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`{"error": {"code": 500, "message": "backend error"}}`))
	})

	if _, _, err := grid.ReadAll(context.Background(), &table{title: "TestSheet", id: 123}); err == nil {
		t.Error("ReadAll() error = nil, want error on server failure")
	}
}
