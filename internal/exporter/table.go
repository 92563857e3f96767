package exporter

import (
	"fmt"
	"time"

	"allocdash/pkg/contracts/domain"
)

// Worksheet names used by the dashboard downloads
const (
	SheetSeries             = "Time Series"
	SheetSummary            = "Summary"
	SheetRadar              = "Radar"
	SheetStressComparison   = "Stress Comparison"
	SheetExposureComparison = "Exposure Comparison"
	SheetHistory            = "History"
)

// Table is one worksheet of output. Cell values are string, float64,
// domain.Float, int, bool or time.Time.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Resolver maps a code to its display name
type Resolver interface {
	Resolve(code string) string
}

func resolve(names Resolver, code string) string {
	if names == nil {
		return code
	}
	return names.Resolve(code)
}

// CorrelationSeriesTable writes one row per date and one column per
// series, headed by display name. Values are written as given, so scale
// the series first if percentages are wanted.
func CorrelationSeriesTable(series *domain.CorrelationSeries, names Resolver) Table {
	t := Table{Name: SheetSeries, Headers: []string{domain.ColumnDate}}
	if series == nil {
		return t
	}

	for _, code := range series.Codes {
		t.Headers = append(t.Headers, resolve(names, code))
	}

	t.Rows = make([][]interface{}, len(series.Dates))
	for i, date := range series.Dates {
		row := make([]interface{}, 0, len(series.Codes)+1)
		row = append(row, date)
		for _, code := range series.Codes {
			row = append(row, series.Values[code][i])
		}
		t.Rows[i] = row
	}
	return t
}

// SummaryTable writes the per-series summary statistics
func SummaryTable(stats []domain.SummaryStats) Table {
	t := Table{
		Name:    SheetSummary,
		Headers: []string{"Ticker", "Name", "Mean (%)", "Min (%)", "Min Date", "Max (%)", "Max Date"},
		Rows:    make([][]interface{}, 0, len(stats)),
	}
	for _, s := range stats {
		t.Rows = append(t.Rows, []interface{}{s.Ticker, s.Name, s.Mean, s.Min, s.MinDate, s.Max, s.MaxDate})
	}
	return t
}

// RadarTable writes the snapshot and period mean for each series
func RadarTable(snapshot domain.RadarSnapshot) Table {
	t := Table{
		Name:    SheetRadar,
		Headers: []string{"Ticker", "Name", fmt.Sprintf("Snapshot %s (%%)", formatDate(snapshot.Date)), "Period Mean (%)"},
		Rows:    make([][]interface{}, 0, len(snapshot.Points)),
	}
	for _, p := range snapshot.Points {
		t.Rows = append(t.Rows, []interface{}{p.Ticker, p.Name, p.Snapshot, p.PeriodMean})
	}
	return t
}

// StressComparisonTable writes the subject against its bucket per scenario
func StressComparisonTable(subject string, rows []domain.StressComparison) Table {
	t := Table{
		Name:    SheetStressComparison,
		Headers: []string{domain.ColumnScenarioName, subject, "Bucket Median", "Bucket Q25", "Bucket Q75"},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.ScenarioName, r.Subject, r.BucketMedian, r.BucketQ25, r.BucketQ75})
	}
	return t
}

// ExposureComparisonTable writes the subject against its bucket per metric
func ExposureComparisonTable(subject string, rows []domain.ExposureComparison) Table {
	t := Table{
		Name:    SheetExposureComparison,
		Headers: []string{"Metric", subject, "Bucket Median", "Bucket Q25", "Bucket Q75"},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{string(r.Metric), r.Subject, r.BucketMedian, r.BucketQ25, r.BucketQ75})
	}
	return t
}

// HistoryTable writes drill-down histories in long form
func HistoryTable(valueHeader string, histories []domain.PortfolioHistory) Table {
	t := Table{
		Name:    SheetHistory,
		Headers: []string{domain.ColumnDate, domain.ColumnPortfolio, "Name", valueHeader},
	}
	for _, h := range histories {
		for _, p := range h.Points {
			t.Rows = append(t.Rows, []interface{}{p.Date, h.Portfolio, h.Name, p.Value})
		}
	}
	return t
}

// LegendSheetTable passes a legend sheet through unchanged
func LegendSheetTable(legend domain.LegendTable) Table {
	t := Table{Name: legend.Sheet, Headers: legend.Headers, Rows: make([][]interface{}, len(legend.Rows))}
	for i, row := range legend.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		t.Rows[i] = cells
	}
	return t
}

// cellFloat reports the numeric value of a cell, if it has one
func cellFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case domain.Float:
		return float64(n), true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// cellTime reports the time value of a cell, if it has one
func cellTime(v interface{}) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}
