package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"allocdash/pkg/contracts/domain"
)

// PercentScale converts correlation coefficients to percentages
const PercentScale = 100.0

// Resolver maps a code to its display name
type Resolver interface {
	Resolve(code string) string
}

type identity struct{}

func (identity) Resolve(code string) string { return code }

func resolverOrIdentity(r Resolver) Resolver {
	if r == nil {
		return identity{}
	}
	return r
}

// Summarize computes mean, min and max (as percentages) for every column
// of series, in column order. MinDate and MaxDate are the most recent
// dates at which the extreme is reached. A column without observations
// yields NaN statistics and zero dates.
func Summarize(series *domain.CorrelationSeries, names Resolver) []domain.SummaryStats {
	names = resolverOrIdentity(names)
	if series == nil {
		return []domain.SummaryStats{}
	}

	out := make([]domain.SummaryStats, 0, len(series.Codes))
	for _, code := range series.Codes {
		out = append(out, summarizeColumn(code, names.Resolve(code), series.Dates, series.Values[code]))
	}
	return out
}

func summarizeColumn(code, name string, dates []time.Time, values []float64) domain.SummaryStats {
	s := domain.SummaryStats{
		Ticker: code,
		Name:   name,
		Mean:   domain.NaN(),
		Min:    domain.NaN(),
		Max:    domain.NaN(),
	}

	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return s
	}

	lo, hi := floats.Min(observed), floats.Max(observed)
	s.Mean = domain.Float(stat.Mean(observed, nil) * PercentScale)
	s.Min = domain.Float(lo * PercentScale)
	s.Max = domain.Float(hi * PercentScale)

	// Dates ascend, so the last match is the most recent one.
	for i, v := range values {
		if v == lo {
			s.MinDate = dates[i]
		}
		if v == hi {
			s.MaxDate = dates[i]
		}
	}
	return s
}

// Radar compares the last observation of every column with its period
// mean, both as percentages. The snapshot date is the last date of series.
func Radar(series *domain.CorrelationSeries, names Resolver) domain.RadarSnapshot {
	names = resolverOrIdentity(names)
	snap := domain.RadarSnapshot{Points: []domain.RadarPoint{}}
	if series.Len() == 0 {
		return snap
	}

	last := series.Len() - 1
	snap.Date = series.End()
	for _, code := range series.Codes {
		values := series.Values[code]
		snap.Points = append(snap.Points, domain.RadarPoint{
			Ticker:     code,
			Name:       names.Resolve(code),
			Snapshot:   domain.Float(values[last] * PercentScale),
			PeriodMean: domain.Float(nanMean(values) * PercentScale),
		})
	}
	return snap
}

// Scaled returns a copy of series with every value multiplied by factor
func Scaled(series *domain.CorrelationSeries, factor float64) *domain.CorrelationSeries {
	if series == nil {
		return domain.NewCorrelationSeries(nil)
	}
	out := series.Slice(0, series.Len())
	for _, code := range out.Codes {
		floats.Scale(factor, out.Values[code])
	}
	return out
}

func nanMean(values []float64) float64 {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return math.NaN()
	}
	return stat.Mean(observed, nil)
}
