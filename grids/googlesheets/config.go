package googlesheets

// Config represents configuration specific to the Google Sheets grid.
type Config struct {
	SpreadsheetID string
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return ErrMissingSpreadsheetID
	}
	return nil
}
