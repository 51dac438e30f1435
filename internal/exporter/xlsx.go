package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an Excel export.
type Sheet struct {
	Name    string
	Headers []string
	Records [][]string
}

// XLSXWriter writes workbooks with excelize.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new Excel writer instance
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger}
}

// WriteXLSX writes sheets in order; the first becomes the active sheet.
// Numeric cells are stored as numbers.
func (w *XLSXWriter) WriteXLSX(filePath string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write %s: no sheets", filePath)
	}

	w.logger.Info("Writing Excel file",
		slog.String("file_path", filePath),
		slog.Int("sheet_count", len(sheets)))

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	row := 1
	if len(sheet.Headers) > 0 {
		header := make([]any, len(sheet.Headers))
		for i, h := range sheet.Headers {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", sheet.Name, err)
		}
		row++
	}

	for i, record := range sheet.Records {
		values := make([]any, len(record))
		for j, cell := range record {
			values[j] = cellValue(cell)
		}
		cell, err := excelize.CoordinatesToCellName(1, row+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet.Name, i+1, err)
		}
	}
	return nil
}
