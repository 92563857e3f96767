package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetFixture describes one worksheet of a generated workbook.
// Rows[0] is normally the header.
type SheetFixture struct {
	Name string
	Rows [][]interface{}
}

// NewWorkbook builds an in-memory xlsx document with the given sheets in order
func NewWorkbook(t *testing.T, sheets ...SheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("rename sheet %q: %v", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("create sheet %q: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				t.Fatalf("write row %d of %q: %v", r+1, sheet.Name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteWorkbook writes a generated workbook into dir and returns its path
func WriteWorkbook(t *testing.T, dir, name string, sheets ...SheetFixture) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, NewWorkbook(t, sheets...), 0o644); err != nil {
		t.Fatalf("write workbook %s: %v", path, err)
	}
	return path
}
