package domain

import (
	"math"
	"time"
)

// ExposureRecord holds the exposure measures of one portfolio at one date
type ExposureRecord struct {
	Date           time.Time `json:"date"`
	Portfolio      string    `json:"portfolio"`
	EquityExposure Float     `json:"equity_exposure"`
	Duration       Float     `json:"duration"`
	SpreadDuration Float     `json:"spread_duration"`
}

// Value returns the measure named by m
func (r ExposureRecord) Value(m Metric) float64 {
	switch m {
	case MetricEquityExposure:
		return float64(r.EquityExposure)
	case MetricDuration:
		return float64(r.Duration)
	case MetricSpreadDuration:
		return float64(r.SpreadDuration)
	}
	return math.NaN()
}

// ExposureTable holds exposure records in sheet order
type ExposureTable []ExposureRecord

// Dates returns the distinct dates in ascending order
func (t ExposureTable) Dates() []time.Time {
	return distinctDates(len(t), func(i int) time.Time { return t[i].Date })
}

// Portfolios returns the distinct portfolios in first-appearance order
func (t ExposureTable) Portfolios() []string {
	return distinctStrings(len(t), func(i int) string { return t[i].Portfolio })
}

// MetricValue is one melted (portfolio, metric, value) cell
type MetricValue struct {
	Portfolio string `json:"portfolio"`
	Metric    Metric `json:"metric"`
	Value     Float  `json:"value"`
}

// Melt reshapes the table into long format, metric-major like a grouped bar chart
func (t ExposureTable) Melt() []MetricValue {
	out := make([]MetricValue, 0, len(t)*len(ExposureMetrics))
	for _, m := range ExposureMetrics {
		for _, r := range t {
			out = append(out, MetricValue{
				Portfolio: r.Portfolio,
				Metric:    m,
				Value:     Float(r.Value(m)),
			})
		}
	}
	return out
}
