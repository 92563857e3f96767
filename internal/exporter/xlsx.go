package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// excelize caps sheet names at 31 characters
const maxSheetName = 31

// XLSXWriter writes tables as worksheets of one workbook
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// Write serializes tables into an xlsx document on w, one sheet per table
// in order
func (x *XLSXWriter) Write(w io.Writer, tables ...Table) error {
	f, err := x.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes tables to path, creating parent directories
func (x *XLSXWriter) WriteFile(path string, tables ...Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := x.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	x.logger.Info("Workbook exported", slog.String("path", path), slog.Int("sheets", len(tables)))
	return nil
}

func (x *XLSXWriter) build(tables []Table) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to export")
	}

	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	dateFmt := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, table := range tables {
		name := sheetName(table.Name, i)
		if i == 0 {
			err = f.SetSheetName("Sheet1", name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := writeTable(f, name, table, headerStyle, dateStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func writeTable(f *excelize.File, sheet string, table Table, headerStyle, dateStyle int) error {
	for col, header := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, header); err != nil {
			return err
		}
	}
	if n := len(table.Headers); n > 0 {
		last, _ := excelize.CoordinatesToCellName(n, 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(n)
		if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
			return err
		}
	}

	for r, row := range table.Rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := setCell(f, sheet, cell, value, dateStyle); err != nil {
				return fmt.Errorf("sheet %q cell %s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet, cell string, value interface{}, dateStyle int) error {
	if v, ok := cellFloat(value); ok {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return f.SetCellFloat(sheet, cell, v, -1, 64)
	}
	if t, ok := cellTime(value); ok {
		if t.IsZero() {
			return nil
		}
		if err := f.SetCellValue(sheet, cell, t.UTC()); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, cell, cell, dateStyle)
	}
	return f.SetCellValue(sheet, cell, value)
}

func sheetName(name string, index int) string {
	if name == "" {
		return fmt.Sprintf("Sheet%d", index+1)
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		return string(runes[:maxSheetName])
	}
	return name
}
