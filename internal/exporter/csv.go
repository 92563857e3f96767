package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// CSVWriter writes a single table as CSV
type CSVWriter struct {
	// Precision is the number of decimals for numeric cells
	Precision int32
	// BOMPrefix adds a UTF-8 BOM so Excel detects the encoding
	BOMPrefix bool
}

// NewCSVWriter creates a writer with the default precision
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{Precision: DefaultPrecision}
}

// Write writes the header and rows of table to w
func (c *CSVWriter) Write(w io.Writer, table Table) error {
	if c.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(table.Headers) > 0 {
		if err := writer.Write(table.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	record := make([]string, 0, len(table.Headers))
	for i, row := range table.Rows {
		record = record[:0]
		for _, value := range row {
			record = append(record, c.formatCell(value))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes table to path, creating parent directories
func (c *CSVWriter) WriteFile(path string, table Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := c.Write(file, table); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	slog.Info("CSV exported", slog.String("path", path), slog.Int("record_count", len(table.Rows)))
	return nil
}

func (c *CSVWriter) formatCell(value interface{}) string {
	if v, ok := cellFloat(value); ok {
		return FormatFloat(v, c.Precision)
	}
	if t, ok := cellTime(value); ok {
		return formatDate(t)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
