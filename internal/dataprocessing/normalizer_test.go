package dataprocessing

import (
	"bytes"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "allocdash/internal/errors"
	"allocdash/internal/shared/testutil"
	"allocdash/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func readFixture(t *testing.T, sheets ...testutil.SheetFixture) *Workbook {
	t.Helper()
	wb, err := ReadWorkbook(bytes.NewReader(testutil.NewWorkbook(t, sheets...)))
	require.NoError(t, err)
	return wb
}

func TestNormalizeCorrelation(t *testing.T) {
	wb := readFixture(t, testutil.SheetFixture{
		Name: "Correlation Clean",
		Rows: [][]interface{}{
			{"Date", "SPX", "BUND"},
			{"2024-03-01", 0.5, -0.2},
			{"2024-01-01", 0.1, 0.3},
			{day("2024-02-01"), 0.2, nil},
		},
	})

	n := NewNormalizer(nil, DefaultSheetNames())
	out, err := n.Normalize(domain.DatasetCorrelation, wb)
	require.NoError(t, err)

	series := out.Correlation
	assert.Equal(t, []string{"SPX", "BUND"}, series.Codes)
	assert.Equal(t, []time.Time{day("2024-01-01"), day("2024-02-01"), day("2024-03-01")}, series.Dates)
	assert.Equal(t, []float64{0.1, 0.2, 0.5}, series.Values["SPX"])

	bund := series.Values["BUND"]
	assert.Equal(t, 0.3, bund[0])
	assert.True(t, math.IsNaN(bund[1]), "missing cell is NaN")
	assert.Equal(t, -0.2, bund[2])

	for i := 1; i < len(series.Dates); i++ {
		assert.True(t, series.Dates[i-1].Before(series.Dates[i]), "dates strictly increasing")
	}
}

func TestNormalizeCorrelation_Errors(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]interface{}
		wantCheck func(error) bool
	}{
		{
			name:      "single column",
			rows:      [][]interface{}{{"Date"}, {"2024-01-01"}},
			wantCheck: apperrors.IsSchemaError,
		},
		{
			name:      "duplicate date",
			rows:      [][]interface{}{{"Date", "SPX"}, {"2024-01-01", 0.1}, {"2024-01-01", 0.2}},
			wantCheck: apperrors.IsSchemaError,
		},
		{
			name:      "unparseable date",
			rows:      [][]interface{}{{"Date", "SPX"}, {"not a date", 0.1}},
			wantCheck: apperrors.IsParsingError,
		},
		{
			name:      "non numeric value",
			rows:      [][]interface{}{{"Date", "SPX"}, {"2024-01-01", "high"}},
			wantCheck: apperrors.IsParsingError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := Sheet{Name: "Correlation Clean", Rows: stringRows(tt.rows)}
			_, err := NormalizeCorrelation(sheet)
			require.Error(t, err)
			assert.True(t, tt.wantCheck(err), "unexpected error type: %v", err)
		})
	}
}

func TestNormalize_MissingSheet(t *testing.T) {
	wb := readFixture(t, testutil.SheetFixture{Name: "Other", Rows: [][]interface{}{{"Date", "SPX"}}})

	n := NewNormalizer(nil, DefaultSheetNames())
	_, err := n.Normalize(domain.DatasetExposure, wb)
	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaError(err))
}

func TestNormalizeStress(t *testing.T) {
	header := []interface{}{"Date", "Id", "Scenario", "Unit", "PnL"}
	wb := readFixture(t,
		testutil.SheetFixture{Name: "E7X&&Rates Up", Rows: [][]interface{}{
			header,
			{"2024-01-31", 1, "Rates +100", "bps", -10},
		}},
		testutil.SheetFixture{Name: "PeerA&&Rates Up", Rows: [][]interface{}{
			header,
			{"2024-01-31", 1, "Rates +100", "bps", -5},
		}},
		testutil.SheetFixture{Name: "Equity Crash", Rows: [][]interface{}{
			header,
			{"2024-01-31", 2, "Equity -20%", "bps", -42.5},
		}},
	)

	n := NewNormalizer(nil, DefaultSheetNames())
	out, err := n.Normalize(domain.DatasetStress, wb)
	require.NoError(t, err)
	require.Len(t, out.Stress, 3)

	assert.Equal(t, domain.StressRecord{
		Date:         day("2024-01-31"),
		Scenario:     "Rates +100",
		StressPnL:    -10,
		Portfolio:    "E7X",
		ScenarioName: "Rates Up",
	}, out.Stress[0])
	assert.Equal(t, "PeerA", out.Stress[1].Portfolio)

	// No delimiter: portfolio and scenario both take the sheet name.
	assert.Equal(t, "Equity Crash", out.Stress[2].Portfolio)
	assert.Equal(t, "Equity Crash", out.Stress[2].ScenarioName)
	assert.Equal(t, domain.Float(-42.5), out.Stress[2].StressPnL)
}

func TestNormalizeStress_ShortSheet(t *testing.T) {
	sheets := []Sheet{
		{Name: "E7X&&Rates Up", Rows: [][]string{{"Date", "Id", "Scenario", "Unit", "PnL"}}},
		{Name: "PeerA&&Rates Up", Rows: [][]string{{"Date", "Id", "Scenario"}, {"2024-01-31", "1", "x"}}},
	}

	_, err := NormalizeStress(sheets)
	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaError(err))
	assert.Contains(t, err.Error(), "PeerA&&Rates Up")
}

func TestNormalizeStress_NoSheets(t *testing.T) {
	_, err := NormalizeStress(nil)
	assert.True(t, apperrors.IsSchemaError(err))
}

func TestNormalizeExposure(t *testing.T) {
	wb := readFixture(t, testutil.SheetFixture{
		Name: "MeasuresSeries",
		Rows: [][]interface{}{
			{"Date", "Code", "Desc", "Portfolio", "Eq", "Dur", "SprDur"},
			{"2024-01-31", "x", "y", "E7X", 0.45, 3.2, 1.1},
			{"2024-01-31", "x", "y", "PeerA", 0.30, 4.0, nil},
		},
	})

	n := NewNormalizer(nil, DefaultSheetNames())
	out, err := n.Normalize(domain.DatasetExposure, wb)
	require.NoError(t, err)
	require.Len(t, out.Exposure, 2)

	first := out.Exposure[0]
	assert.Equal(t, "E7X", first.Portfolio)
	assert.Equal(t, domain.Float(0.45), first.EquityExposure)
	assert.Equal(t, domain.Float(3.2), first.Duration)
	assert.Equal(t, domain.Float(1.1), first.SpreadDuration)
	assert.True(t, out.Exposure[1].SpreadDuration.IsNaN())
}

func TestNormalizeExposure_ShortSheet(t *testing.T) {
	sheet := Sheet{Name: "MeasuresSeries", Rows: [][]string{
		{"Date", "Code", "Desc", "Portfolio", "Eq", "Dur"},
	}}
	_, err := NormalizeExposure(sheet)
	assert.True(t, apperrors.IsSchemaError(err))
}

func TestSplitSheetName(t *testing.T) {
	tests := []struct {
		name          string
		wantPortfolio string
		wantScenario  string
	}{
		{"E7X&&Rates Up", "E7X", "Rates Up"},
		{"Rates Up", "Rates Up", "Rates Up"},
		{"A&&B&&C", "A", "B&&C"},
		{"&&Only Scenario", "", "Only Scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := SplitSheetName(tt.name)
			assert.Equal(t, tt.wantPortfolio, p)
			assert.Equal(t, tt.wantScenario, s)
		})
	}
}

func TestSeriesCodes(t *testing.T) {
	assert.Equal(t,
		[]string{"SPX", "Unnamed: 2", "SPX.1"},
		seriesCodes([]string{"SPX", " ", "SPX"}))
}

func TestNormalize_IsIdempotent(t *testing.T) {
	wb := readFixture(t, testutil.SheetFixture{
		Name: "Correlation Clean",
		Rows: [][]interface{}{{"Date", "SPX"}, {"2024-01-02", 0.1}, {"2024-01-01", 0.2}},
	})

	n := NewNormalizer(nil, DefaultSheetNames())
	first, err := n.Normalize(domain.DatasetCorrelation, wb)
	require.NoError(t, err)
	second, err := n.Normalize(domain.DatasetCorrelation, wb)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func stringRows(rows [][]interface{}) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}
