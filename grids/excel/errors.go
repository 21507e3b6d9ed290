package excel

import "errors"

var (
	// ErrMissingFilePath is returned when the workbook path is not specified
	ErrMissingFilePath = errors.New("file path is required")
)
