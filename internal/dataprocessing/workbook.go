package dataprocessing

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "allocdash/internal/errors"
)

// Sheet is the raw content of one worksheet. Row 0 is the header.
type Sheet struct {
	Name string
	Rows [][]string
}

// Header returns the first row, padded to the sheet width
func (s Sheet) Header() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	return padRow(s.Rows[0], s.Width())
}

// Width returns the number of columns, taken from the widest row
func (s Sheet) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// DataRows returns every row after the header, padded to the sheet width
func (s Sheet) DataRows() [][]string {
	if len(s.Rows) < 2 {
		return nil
	}
	width := s.Width()
	rows := make([][]string, 0, len(s.Rows)-1)
	for _, row := range s.Rows[1:] {
		rows = append(rows, padRow(row, width))
	}
	return rows
}

// Workbook holds the sheets of one file in workbook order
type Workbook struct {
	Sheets []Sheet
}

// Sheet looks up a sheet by name
func (w *Workbook) Sheet(name string) (Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// SheetNames returns the sheet names in workbook order
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// ReadWorkbook reads every sheet of an xlsx document
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	return readSheets(f)
}

// ReadWorkbookFile reads an xlsx file from disk
func ReadWorkbookFile(path string) (*Workbook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	return ReadWorkbook(file)
}

func readSheets(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		// Raw values keep date cells as serial numbers instead of
		// whatever display format the author picked.
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", name), err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: dropBlankRows(rows)})
	}
	return wb, nil
}

func dropBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
