package googlesheets

import "errors"

var (
	// ErrMissingSpreadsheetID is returned when no spreadsheet ID is configured
	ErrMissingSpreadsheetID = errors.New("spreadsheet ID is required")
)
