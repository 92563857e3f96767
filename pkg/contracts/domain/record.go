package domain

import "time"

// Record is a dated row of a stress or exposure table
type Record interface {
	RecordDate() time.Time
	// Entity returns the value of a categorical column such as Portfolio
	Entity(column string) (string, bool)
}

// RecordDate implements Record
func (r StressRecord) RecordDate() time.Time { return r.Date }

// Entity implements Record
func (r StressRecord) Entity(column string) (string, bool) {
	switch column {
	case ColumnPortfolio:
		return r.Portfolio, true
	case ColumnScenarioName:
		return r.ScenarioName, true
	case ColumnScenario:
		return r.Scenario, true
	}
	return "", false
}

// RecordDate implements Record
func (r ExposureRecord) RecordDate() time.Time { return r.Date }

// Entity implements Record
func (r ExposureRecord) Entity(column string) (string, bool) {
	if column == ColumnPortfolio {
		return r.Portfolio, true
	}
	return "", false
}
