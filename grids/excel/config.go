package excel

// Config holds configuration for the Excel grid.
type Config struct {
	FilePath string // Path to the .xlsx workbook
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	return nil
}
