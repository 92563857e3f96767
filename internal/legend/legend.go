// Package legend resolves ticker and portfolio codes to display names and
// exposes the reference tables of the legend workbook.
package legend

import (
	"fmt"
	"strings"

	"allocdash/internal/dataprocessing"
	apperrors "allocdash/internal/errors"
	"allocdash/pkg/contracts/domain"
)

// Header names of the code to name mapping sheet
const (
	TickerHeader = "Ticker"
	NameHeader   = "Name"
)

// Pair is one code to display name mapping
type Pair struct {
	Code string
	Name string
}

// NameMap resolves codes to display names. It is immutable once built
// and safe for concurrent use.
type NameMap struct {
	names map[string]string
}

// NewNameMap builds a map from pairs. A repeated code keeps its last name.
func NewNameMap(pairs []Pair) *NameMap {
	names := make(map[string]string, len(pairs))
	for _, p := range pairs {
		names[p.Code] = p.Name
	}
	return &NameMap{names: names}
}

// Resolve returns the display name of code, or code itself when unmapped.
// A mapped empty name is returned as is.
func (m *NameMap) Resolve(code string) string {
	if m == nil {
		return code
	}
	if name, ok := m.names[code]; ok {
		return name
	}
	return code
}

// Len returns the number of mapped codes
func (m *NameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// LoadNameMap reads the Ticker and Name columns of a legend sheet.
// Columns are located by header, so their position does not matter.
func LoadNameMap(sheet dataprocessing.Sheet) (*NameMap, error) {
	header := sheet.Header()
	tickerCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case TickerHeader:
			tickerCol = i
		case NameHeader:
			nameCol = i
		}
	}
	if tickerCol < 0 || nameCol < 0 {
		return nil, apperrors.NewSchemaError(fmt.Sprintf(
			"legend sheet %q needs %q and %q columns", sheet.Name, TickerHeader, NameHeader)).
			WithContext("sheet", sheet.Name)
	}

	rows := sheet.DataRows()
	pairs := make([]Pair, 0, len(rows))
	for _, row := range rows {
		code := row[tickerCol]
		if strings.TrimSpace(code) == "" {
			continue
		}
		pairs = append(pairs, Pair{Code: code, Name: row[nameCol]})
	}
	return NewNameMap(pairs), nil
}

// Table returns the first columns of a reference sheet for display.
// columns <= 0 keeps every column.
func Table(sheet dataprocessing.Sheet, columns int) domain.LegendTable {
	width := sheet.Width()
	if columns > 0 && columns < width {
		width = columns
	}

	table := domain.LegendTable{Sheet: sheet.Name, Rows: make([][]string, 0)}
	if len(sheet.Rows) == 0 {
		table.Headers = []string{}
		return table
	}

	table.Headers = append([]string(nil), sheet.Header()[:width]...)
	for _, row := range sheet.DataRows() {
		table.Rows = append(table.Rows, append([]string(nil), row[:width]...))
	}
	return table
}
