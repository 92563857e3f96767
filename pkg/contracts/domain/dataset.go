package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Dataset identifies one of the workbook families the dashboard understands
type Dataset string

const (
	DatasetCorrelation Dataset = "correlation"
	DatasetStress      Dataset = "stress"
	DatasetExposure    Dataset = "exposure"
	DatasetLegend      Dataset = "legend"
)

// Valid reports whether d is a known dataset
func (d Dataset) Valid() bool {
	switch d {
	case DatasetCorrelation, DatasetStress, DatasetExposure, DatasetLegend:
		return true
	}
	return false
}

// Logical column names of the normalized tables
const (
	ColumnDate           = "Date"
	ColumnScenario       = "Scenario"
	ColumnStressPnL      = "StressPnL"
	ColumnPortfolio      = "Portfolio"
	ColumnScenarioName   = "ScenarioName"
	ColumnEquityExposure = "Equity Exposure"
	ColumnDuration       = "Duration"
	ColumnSpreadDuration = "Spread Duration"
)

// Metric is one of the exposure measures
type Metric string

const (
	MetricEquityExposure Metric = ColumnEquityExposure
	MetricDuration       Metric = ColumnDuration
	MetricSpreadDuration Metric = ColumnSpreadDuration
)

// ExposureMetrics lists the exposure measures in display order
var ExposureMetrics = []Metric{MetricEquityExposure, MetricDuration, MetricSpreadDuration}

// ParseMetric matches a metric by its column name
func ParseMetric(name string) (Metric, bool) {
	for _, m := range ExposureMetrics {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// Float is a float64 that encodes NaN and infinities as JSON null.
// Statistics over empty groups are NaN and must still serialize.
type Float float64

// NaN returns an undefined Float
func NaN() Float {
	return Float(math.NaN())
}

// IsNaN reports whether f is undefined
func (f Float) IsNaN() bool {
	return math.IsNaN(float64(f))
}

// MarshalJSON implements json.Marshaler
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts a slice of float64 to Float
func Floats(values []float64) []Float {
	out := make([]Float, len(values))
	for i, v := range values {
		out[i] = Float(v)
	}
	return out
}
