package domain

import (
	"sort"
	"time"
)

// StressRecord is one stress-test observation for a portfolio and scenario
type StressRecord struct {
	Date         time.Time `json:"date"`
	Scenario     string    `json:"scenario"`
	StressPnL    Float     `json:"stress_pnl"`
	Portfolio    string    `json:"portfolio"`
	ScenarioName string    `json:"scenario_name"`
}

// StressTable holds stress records in sheet concatenation order
type StressTable []StressRecord

// Dates returns the distinct dates in ascending order
func (t StressTable) Dates() []time.Time {
	return distinctDates(len(t), func(i int) time.Time { return t[i].Date })
}

// Portfolios returns the distinct portfolios in first-appearance order
func (t StressTable) Portfolios() []string {
	return distinctStrings(len(t), func(i int) string { return t[i].Portfolio })
}

// ScenarioNames returns the distinct scenario names in first-appearance order
func (t StressTable) ScenarioNames() []string {
	return distinctStrings(len(t), func(i int) string { return t[i].ScenarioName })
}

func distinctStrings(n int, at func(int) string) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0)
	for i := 0; i < n; i++ {
		v := at(i)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func distinctDates(n int, at func(int) time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, n)
	out := make([]time.Time, 0)
	for i := 0; i < n; i++ {
		d := at(i)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
