package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"schoolinfra/domain/infra"
	"schoolinfra/internal/errors"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	cfg Config
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(cfg Config) *DataReader {
	return &DataReader{cfg: cfg}
}

// fileType returns "csv" or "xlsx" from the path extension
func fileType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "xlsx"
}

// ReadTable reads a CSV or xlsx file into a table
func (r *DataReader) ReadTable(ctx context.Context, path string) (*infra.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind := fileType(path)
	zap.L().Debug("reading table", zap.String("path", path), zap.String("type", kind))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.ArtifactMissing(path)
	}

	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	switch kind {
	case "csv":
		rows, err = r.readCSVRows(path)
	default:
		rows, err = r.readExcelRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file has no header row: %s", strings.ToUpper(kind), path))
	}

	table := processRows(rows)
	zap.L().Info("table loaded",
		zap.String("path", path),
		zap.Int("columns", len(table.Headers)),
		zap.Int("rows", len(table.Records)),
		zap.Duration("elapsed", time.Since(start)))
	return table, nil
}

// readExcelRows reads the configured sheet, or the first one
func (r *DataReader) readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := r.cfg.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("Excel file has no sheets: " + path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// processRows converts raw string rows into a table keyed by trimmed headers.
// Short rows leave trailing columns empty; cells beyond the header are dropped.
func processRows(rows [][]string) *infra.Table {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	records := make([]infra.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		raw := make(map[string]string, len(headers))
		for j, header := range headers {
			if j < len(row) {
				raw[header] = strings.TrimSpace(row[j])
			} else {
				raw[header] = ""
			}
		}
		records = append(records, infra.NewRecord(raw))
	}
	return &infra.Table{Headers: headers, Records: records}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
