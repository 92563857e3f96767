package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocdash/internal/legend"
	"allocdash/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func series(dates []string, columns map[string][]float64, order ...string) *domain.CorrelationSeries {
	s := domain.NewCorrelationSeries(order)
	for _, d := range dates {
		s.Dates = append(s.Dates, day(d))
	}
	for code, values := range columns {
		s.Values[code] = values
	}
	return s
}

func TestSummarize(t *testing.T) {
	s := series(
		[]string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"},
		map[string][]float64{
			"SPX":  {0.10, -0.20, 0.40, 0.30},
			"BUND": {-0.5, math.NaN(), -0.1, -0.3},
		},
		"SPX", "BUND",
	)
	names := legend.NewNameMap([]legend.Pair{{Code: "SPX", Name: "S&P 500"}})

	got := Summarize(s, names)
	require.Len(t, got, 2)

	spx := got[0]
	assert.Equal(t, "SPX", spx.Ticker)
	assert.Equal(t, "S&P 500", spx.Name)
	assert.InDelta(t, 15.0, float64(spx.Mean), 1e-9)
	assert.InDelta(t, -20.0, float64(spx.Min), 1e-9)
	assert.InDelta(t, 40.0, float64(spx.Max), 1e-9)
	assert.Equal(t, day("2024-01-02"), spx.MinDate)
	assert.Equal(t, day("2024-01-03"), spx.MaxDate)

	bund := got[1]
	assert.Equal(t, "BUND", bund.Name, "unmapped code falls back to itself")
	assert.InDelta(t, -30.0, float64(bund.Mean), 1e-9)

	for _, st := range got {
		assert.LessOrEqual(t, float64(st.Min), float64(st.Mean))
		assert.LessOrEqual(t, float64(st.Mean), float64(st.Max))
	}
}

func TestSummarize_TiesResolveToLatestDate(t *testing.T) {
	s := series(
		[]string{"2024-01-01", "2024-01-02", "2024-01-03"},
		map[string][]float64{"X": {5, 5, 3}, "Y": {1, 2, 1}},
		"X", "Y",
	)

	got := Summarize(s, nil)
	assert.Equal(t, day("2024-01-02"), got[0].MaxDate)
	assert.Equal(t, day("2024-01-03"), got[0].MinDate)
	assert.Equal(t, day("2024-01-03"), got[1].MinDate)
	assert.Equal(t, day("2024-01-02"), got[1].MaxDate)
}

func TestSummarize_NoObservations(t *testing.T) {
	s := series([]string{"2024-01-01"}, map[string][]float64{"X": {math.NaN()}}, "X")

	got := Summarize(s, nil)
	require.Len(t, got, 1)
	assert.True(t, got[0].Mean.IsNaN())
	assert.True(t, got[0].Min.IsNaN())
	assert.True(t, got[0].MaxDate.IsZero())

	assert.Empty(t, Summarize(nil, nil))
}

func TestRadar(t *testing.T) {
	s := series(
		[]string{"2024-01-01", "2024-01-02"},
		map[string][]float64{"SPX": {0.2, 0.4}, "GOLD": {math.NaN(), -0.1}},
		"SPX", "GOLD",
	)

	snap := Radar(s, nil)
	assert.Equal(t, day("2024-01-02"), snap.Date)
	require.Len(t, snap.Points, 2)
	assert.InDelta(t, 40.0, float64(snap.Points[0].Snapshot), 1e-9)
	assert.InDelta(t, 30.0, float64(snap.Points[0].PeriodMean), 1e-9)
	assert.InDelta(t, -10.0, float64(snap.Points[1].PeriodMean), 1e-9)

	empty := Radar(domain.NewCorrelationSeries([]string{"SPX"}), nil)
	assert.True(t, empty.Date.IsZero())
	assert.Empty(t, empty.Points)
}

func TestScaled(t *testing.T) {
	s := series([]string{"2024-01-01"}, map[string][]float64{"SPX": {0.25}}, "SPX")

	got := Scaled(s, PercentScale)
	assert.Equal(t, []float64{25}, got.Values["SPX"])
	assert.Equal(t, []float64{0.25}, s.Values["SPX"])
}
