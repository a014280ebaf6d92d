package excel

// Config controls how spreadsheets are read and written
type Config struct {
	// Sheet to read from xlsx files; empty means the first sheet
	Sheet string `json:"sheet"`
	// OutputSheet names the sheet written to xlsx files
	OutputSheet string `json:"output_sheet"`
}

// DefaultConfig returns sensible defaults for spreadsheet processing
func DefaultConfig() Config {
	return Config{
		OutputSheet: "Sheet1",
	}
}
