package exporter

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the number of decimals written to CSV files
const DefaultPrecision int32 = 4

// DateLayout is used for date cells in CSV output
const DateLayout = "2006-01-02"

// FormatFloat renders f with exactly places decimals. Undefined values
// render as an empty string.
func FormatFloat(f float64, places int32) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return decimal.NewFromFloat(f).StringFixed(places)
}

// RoundFloat rounds half away from zero to places decimals, keeping NaN
func RoundFloat(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
