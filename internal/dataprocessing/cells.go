package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "allocdash/internal/errors"
)

// dateLayouts are tried in order for text date cells. Month-first wins
// over day-first for ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
}

// ParseDate parses a date cell. Numeric cells are Excel serial dates;
// text cells must match one of the supported layouts. Results are UTC.
func ParseDate(cell string) (time.Time, error) {
	value := strings.TrimSpace(cell)
	if value == "" {
		return time.Time{}, apperrors.NewParsingError("empty date cell", nil)
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("invalid serial date %q", value), err)
		}
		return t.UTC().Round(time.Second), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("unable to parse date %q", value), nil)
}

// ParseNumber parses a numeric cell. Empty cells are missing values (NaN).
func ParseNumber(cell string) (float64, error) {
	value := strings.TrimSpace(cell)
	if value == "" {
		return math.NaN(), nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN(), apperrors.NewParsingError(fmt.Sprintf("unable to parse number %q", value), err)
	}
	return f, nil
}
