package excel

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"schoolinfra/domain/infra"
	"schoolinfra/internal/errors"
)

// DataWriter writes tables as CSV or xlsx, chosen by extension
type DataWriter struct {
	cfg Config
}

// NewDataWriter creates a writer
func NewDataWriter(cfg Config) *DataWriter {
	if cfg.OutputSheet == "" {
		cfg.OutputSheet = DefaultConfig().OutputSheet
	}
	return &DataWriter{cfg: cfg}
}

// WriteTable writes the header followed by one line per record
func (w *DataWriter) WriteTable(ctx context.Context, path string, table *infra.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	rows := tableRows(table)
	var err error
	if fileType(path) == "csv" {
		err = writeCSV(path, rows)
	} else {
		err = w.writeExcel(path, rows)
	}
	if err != nil {
		return err
	}
	zap.L().Info("table written", zap.String("path", path), zap.Int("rows", len(table.Records)))
	return nil
}

func tableRows(table *infra.Table) [][]string {
	rows := make([][]string, 0, len(table.Records)+1)
	rows = append(rows, append([]string(nil), table.Headers...))
	for _, rec := range table.Records {
		row := make([]string, len(table.Headers))
		for i, h := range table.Headers {
			row[i] = rec.Value(h)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "failed to write CSV file")
	}
	return nil
}

func (w *DataWriter) writeExcel(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.cfg.OutputSheet
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return errors.Wrap(err, "failed to name sheet")
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "failed to address row")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if n, ok := infra.ParseNumber(v); ok && i > 0 {
				values[j] = n
			} else {
				values[j] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "failed to save Excel file")
	}
	return nil
}
