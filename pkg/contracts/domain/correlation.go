package domain

import (
	"time"
)

// CorrelationSeries is a date-indexed table of correlation coefficients.
// Dates are strictly increasing. Codes keeps the original column order of
// the sheet and every entry of Values has len(Dates) elements; missing
// cells are NaN.
type CorrelationSeries struct {
	Dates  []time.Time
	Codes  []string
	Values map[string][]float64
}

// NewCorrelationSeries creates an empty series with the given codes
func NewCorrelationSeries(codes []string) *CorrelationSeries {
	values := make(map[string][]float64, len(codes))
	for _, code := range codes {
		values[code] = nil
	}
	return &CorrelationSeries{
		Codes:  append([]string(nil), codes...),
		Values: values,
	}
}

// Len returns the number of dates
func (s *CorrelationSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Empty reports whether the series has no rows or no columns
func (s *CorrelationSeries) Empty() bool {
	return s.Len() == 0 || len(s.Codes) == 0
}

// Column returns the values of one series
func (s *CorrelationSeries) Column(code string) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	values, ok := s.Values[code]
	return values, ok
}

// HasCode reports whether code is one of the columns
func (s *CorrelationSeries) HasCode(code string) bool {
	_, ok := s.Column(code)
	return ok
}

// Start returns the first date, or the zero time when empty
func (s *CorrelationSeries) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Dates[0]
}

// End returns the last date, or the zero time when empty
func (s *CorrelationSeries) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// Slice returns rows [from, to) as a new series sharing no memory with s
func (s *CorrelationSeries) Slice(from, to int) *CorrelationSeries {
	out := NewCorrelationSeries(s.Codes)
	if from >= to {
		return out
	}
	out.Dates = append([]time.Time(nil), s.Dates[from:to]...)
	for _, code := range s.Codes {
		out.Values[code] = append([]float64(nil), s.Values[code][from:to]...)
	}
	return out
}
