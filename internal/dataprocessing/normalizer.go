package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "allocdash/internal/errors"
	"allocdash/pkg/contracts/domain"
)

// Column positions bound by the normalizer. Sheets narrower than the
// minimum width are rejected before any column is read.
const (
	MinCorrelationColumns = 2
	MinStressColumns      = 5
	MinExposureColumns    = 7

	stressDateCol     = 0
	stressScenarioCol = 2
	stressPnLCol      = 4

	exposureDateCol      = 0
	exposurePortfolioCol = 3
	exposureEquityCol    = 4
	exposureDurationCol  = 5
	exposureSpreadCol    = 6
)

// PortfolioScenarioDelimiter separates portfolio and scenario in stress sheet names
const PortfolioScenarioDelimiter = "&&"

// SheetNames tells the normalizer which sheet holds each single-sheet dataset
type SheetNames struct {
	Correlation string
	Exposure    string
}

// DefaultSheetNames returns the sheet names used by the source workbooks
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Correlation: "Correlation Clean",
		Exposure:    "MeasuresSeries",
	}
}

// Normalized is the result of normalizing one workbook for one dataset.
// Exactly one of the table fields is set, matching Dataset.
type Normalized struct {
	Dataset     domain.Dataset
	Correlation *domain.CorrelationSeries
	Stress      domain.StressTable
	Exposure    domain.ExposureTable
	// Legend workbooks are kept raw; the legend package interprets them.
	Legend *Workbook
}

// Rows returns the number of rows in the normalized table
func (n *Normalized) Rows() int {
	switch n.Dataset {
	case domain.DatasetCorrelation:
		return n.Correlation.Len()
	case domain.DatasetStress:
		return len(n.Stress)
	case domain.DatasetExposure:
		return len(n.Exposure)
	case domain.DatasetLegend:
		if n.Legend == nil {
			return 0
		}
		rows := 0
		for _, s := range n.Legend.Sheets {
			rows += len(s.DataRows())
		}
		return rows
	}
	return 0
}

// Normalizer binds raw workbooks to the logical schema of each dataset
type Normalizer struct {
	logger *slog.Logger
	sheets SheetNames
}

// NewNormalizer creates a normalizer for the given sheet layout
func NewNormalizer(logger *slog.Logger, sheets SheetNames) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger.With(slog.String("component", "normalizer")),
		sheets: sheets,
	}
}

// Normalize dispatches on dataset
func (n *Normalizer) Normalize(dataset domain.Dataset, wb *Workbook) (*Normalized, error) {
	out := &Normalized{Dataset: dataset}
	var err error

	switch dataset {
	case domain.DatasetCorrelation:
		sheet, ok := wb.Sheet(n.sheets.Correlation)
		if !ok {
			return nil, missingSheet(dataset, n.sheets.Correlation)
		}
		out.Correlation, err = NormalizeCorrelation(sheet)
	case domain.DatasetStress:
		out.Stress, err = NormalizeStress(wb.Sheets)
	case domain.DatasetExposure:
		sheet, ok := wb.Sheet(n.sheets.Exposure)
		if !ok {
			return nil, missingSheet(dataset, n.sheets.Exposure)
		}
		out.Exposure, err = NormalizeExposure(sheet)
	case domain.DatasetLegend:
		out.Legend = wb
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown dataset %q", dataset))
	}

	if err != nil {
		n.logger.Warn("normalization failed",
			slog.String("dataset", string(dataset)),
			slog.String("error", err.Error()))
		return nil, err
	}

	n.logger.Debug("workbook normalized",
		slog.String("dataset", string(dataset)),
		slog.Int("sheets", len(wb.Sheets)),
		slog.Int("rows", out.Rows()))

	return out, nil
}

// NormalizeCorrelation turns a sheet with a date column followed by one
// column per series into a date-indexed series table, sorted ascending.
func NormalizeCorrelation(sheet Sheet) (*domain.CorrelationSeries, error) {
	if err := requireWidth(sheet, MinCorrelationColumns); err != nil {
		return nil, err
	}

	codes := seriesCodes(sheet.Header()[1:])
	type row struct {
		date   time.Time
		values []float64
	}

	dataRows := sheet.DataRows()
	rows := make([]row, 0, len(dataRows))
	for i, cells := range dataRows {
		date, err := ParseDate(cells[0])
		if err != nil {
			return nil, cellError(sheet.Name, i+2, 0, err)
		}
		values := make([]float64, len(codes))
		for j := range codes {
			v, err := ParseNumber(cells[j+1])
			if err != nil {
				return nil, cellError(sheet.Name, i+2, j+1, err)
			}
			values[j] = v
		}
		rows = append(rows, row{date: date, values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	series := domain.NewCorrelationSeries(codes)
	series.Dates = make([]time.Time, 0, len(rows))
	for _, code := range codes {
		series.Values[code] = make([]float64, 0, len(rows))
	}
	for i, r := range rows {
		if i > 0 && r.date.Equal(rows[i-1].date) {
			return nil, apperrors.NewSchemaError(fmt.Sprintf(
				"sheet %q has duplicate date %s", sheet.Name, r.date.Format("2006-01-02")))
		}
		series.Dates = append(series.Dates, r.date)
		for j, code := range codes {
			series.Values[code] = append(series.Values[code], r.values[j])
		}
	}

	return series, nil
}

// NormalizeStress binds columns 0, 2 and 4 of every sheet to Date, Scenario
// and StressPnL and tags each row with the portfolio and scenario name
// encoded in the sheet name. Rows keep sheet order.
func NormalizeStress(sheets []Sheet) (domain.StressTable, error) {
	if len(sheets) == 0 {
		return nil, apperrors.NewSchemaError("stress workbook has no sheets")
	}

	table := make(domain.StressTable, 0)
	for _, sheet := range sheets {
		if err := requireWidth(sheet, MinStressColumns); err != nil {
			return nil, err
		}

		portfolio, scenarioName := SplitSheetName(sheet.Name)
		for i, cells := range sheet.DataRows() {
			date, err := ParseDate(cells[stressDateCol])
			if err != nil {
				return nil, cellError(sheet.Name, i+2, stressDateCol, err)
			}
			pnl, err := ParseNumber(cells[stressPnLCol])
			if err != nil {
				return nil, cellError(sheet.Name, i+2, stressPnLCol, err)
			}
			table = append(table, domain.StressRecord{
				Date:         date,
				Scenario:     cells[stressScenarioCol],
				StressPnL:    domain.Float(pnl),
				Portfolio:    portfolio,
				ScenarioName: scenarioName,
			})
		}
	}

	return table, nil
}

// NormalizeExposure binds columns 0, 3, 4, 5 and 6 to Date, Portfolio and
// the three exposure measures.
func NormalizeExposure(sheet Sheet) (domain.ExposureTable, error) {
	if err := requireWidth(sheet, MinExposureColumns); err != nil {
		return nil, err
	}

	dataRows := sheet.DataRows()
	table := make(domain.ExposureTable, 0, len(dataRows))
	for i, cells := range dataRows {
		date, err := ParseDate(cells[exposureDateCol])
		if err != nil {
			return nil, cellError(sheet.Name, i+2, exposureDateCol, err)
		}

		var measures [3]float64
		for k, col := range []int{exposureEquityCol, exposureDurationCol, exposureSpreadCol} {
			v, err := ParseNumber(cells[col])
			if err != nil {
				return nil, cellError(sheet.Name, i+2, col, err)
			}
			measures[k] = v
		}

		table = append(table, domain.ExposureRecord{
			Date:           date,
			Portfolio:      cells[exposurePortfolioCol],
			EquityExposure: domain.Float(measures[0]),
			Duration:       domain.Float(measures[1]),
			SpreadDuration: domain.Float(measures[2]),
		})
	}

	return table, nil
}

// SplitSheetName splits "Portfolio&&Scenario" once. Without the delimiter
// the whole name is both portfolio and scenario.
func SplitSheetName(name string) (portfolio, scenario string) {
	if p, s, ok := strings.Cut(name, PortfolioScenarioDelimiter); ok {
		return p, s
	}
	return name, name
}

// seriesCodes names unlabeled columns and disambiguates repeated headers
func seriesCodes(headers []string) []string {
	codes := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		code := strings.TrimSpace(h)
		if code == "" {
			code = fmt.Sprintf("Unnamed: %d", i+1)
		}
		if n, dup := seen[code]; dup {
			seen[code] = n + 1
			code = fmt.Sprintf("%s.%d", code, n+1)
		} else {
			seen[code] = 0
		}
		codes[i] = code
	}
	return codes
}

func requireWidth(sheet Sheet, min int) error {
	if len(sheet.Rows) == 0 {
		return apperrors.NewSchemaError(fmt.Sprintf("sheet %q is empty", sheet.Name))
	}
	if width := sheet.Width(); width < min {
		return apperrors.NewSchemaError(fmt.Sprintf(
			"sheet %q has %d columns, need at least %d", sheet.Name, width, min)).
			WithContext("sheet", sheet.Name)
	}
	return nil
}

func missingSheet(dataset domain.Dataset, name string) error {
	return apperrors.NewSchemaError(fmt.Sprintf("%s workbook has no sheet %q", dataset, name)).
		WithContext("sheet", name)
}

// cellError decorates a cell parse failure with its spreadsheet position
func cellError(sheet string, row, col int, err error) error {
	return fmt.Errorf("sheet %q row %d column %d: %w", sheet, row, col+1, err)
}
