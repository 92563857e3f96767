package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocdash/pkg/contracts/domain"
)

func sampleSeries() *domain.CorrelationSeries {
	s := domain.NewCorrelationSeries([]string{"SPX", "BUND", "GOLD"})
	s.Dates = []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03"), day("2024-01-04")}
	s.Values["SPX"] = []float64{0.1, 0.2, 0.3, 0.4}
	s.Values["BUND"] = []float64{-0.1, -0.2, -0.3, -0.4}
	s.Values["GOLD"] = []float64{0, 0, 0, 0}
	return s
}

func sampleStress() domain.StressTable {
	return domain.StressTable{
		{Date: day("2024-01-31"), Portfolio: "E7X", ScenarioName: "Rates Up", StressPnL: -10},
		{Date: day("2024-01-31"), Portfolio: "PeerA", ScenarioName: "Rates Up", StressPnL: -5},
		{Date: day("2024-02-29"), Portfolio: "E7X", ScenarioName: "Equity Crash", StressPnL: -30},
		{Date: day("2024-02-29"), Portfolio: "PeerB", ScenarioName: "Rates Up", StressPnL: -7},
	}
}

func TestFilterSeriesByDateRange(t *testing.T) {
	s := sampleSeries()

	got := FilterSeriesByDateRange(s, day("2024-01-02"), day("2024-01-03"))
	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03")}, got.Dates)
	assert.Equal(t, []float64{0.2, 0.3}, got.Values["SPX"])
	assert.Equal(t, s.Codes, got.Codes)

	// The source is untouched.
	got.Values["SPX"][0] = 9
	assert.Equal(t, 0.2, s.Values["SPX"][1])
}

func TestFilterSeriesByDateRange_Idempotent(t *testing.T) {
	s := sampleSeries()

	once := FilterSeriesByDateRange(s, day("2024-01-02"), day("2024-01-03"))
	twice := FilterSeriesByDateRange(once, day("2023-12-01"), day("2024-12-31"))
	assert.Equal(t, once, twice)
}

func TestFilterSeriesByDateRange_Empty(t *testing.T) {
	s := sampleSeries()

	got := FilterSeriesByDateRange(s, day("2025-01-01"), day("2025-12-31"))
	assert.True(t, got.Empty())

	inverted := FilterSeriesByDateRange(s, day("2024-01-04"), day("2024-01-01"))
	assert.Equal(t, 0, inverted.Len())
}

func TestSelectSeries(t *testing.T) {
	s := sampleSeries()

	got := SelectSeries(s, []string{"GOLD", "SPX", "UNKNOWN", "GOLD"})
	assert.Equal(t, []string{"GOLD", "SPX"}, got.Codes)
	assert.Len(t, got.Values, 2)
	assert.Equal(t, s.Dates, got.Dates)

	none := SelectSeries(s, nil)
	assert.Empty(t, none.Codes)
	assert.True(t, none.Empty())
}

func TestFilterByDateRange_Records(t *testing.T) {
	table := sampleStress()

	got := FilterByDateRange(table, day("2024-02-01"), day("2024-02-29"))
	require.Len(t, got, 2)
	assert.Equal(t, "Equity Crash", got[0].ScenarioName)

	again := FilterByDateRange(got, day("2024-01-01"), day("2024-12-31"))
	assert.Equal(t, got, again)
}

func TestFilterByExactDate(t *testing.T) {
	table := sampleStress()

	latest, ok := LatestDate(table)
	require.True(t, ok)
	assert.Equal(t, day("2024-02-29"), latest)

	got := FilterByExactDate(table, latest)
	assert.Len(t, got, 2)

	assert.Empty(t, FilterByExactDate(table, day("2023-01-01")))
}

func TestFilterByEntities(t *testing.T) {
	table := sampleStress()

	tests := []struct {
		name    string
		column  string
		allowed []string
		want    int
	}{
		{"portfolio subset", domain.ColumnPortfolio, []string{"E7X"}, 2},
		{"scenario subset", domain.ColumnScenarioName, []string{"Rates Up"}, 3},
		{"empty allowed set", domain.ColumnPortfolio, nil, 0},
		{"unknown column", "Region", []string{"E7X"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByEntities(table, tt.column, tt.allowed)
			assert.Len(t, got, tt.want)
			assert.NotNil(t, got)
		})
	}
}

func TestFilterByEntities_Exposure(t *testing.T) {
	table := domain.ExposureTable{
		{Date: day("2024-01-31"), Portfolio: "E7X"},
		{Date: day("2024-01-31"), Portfolio: "PeerA"},
	}
	got := FilterByEntities(table, domain.ColumnPortfolio, []string{"PeerA"})
	require.Len(t, got, 1)
	assert.Equal(t, "PeerA", got[0].Portfolio)
}

func TestLatestDate_Empty(t *testing.T) {
	_, ok := LatestDate(domain.ExposureTable{})
	assert.False(t, ok)
}
