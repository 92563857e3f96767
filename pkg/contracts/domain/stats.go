package domain

import (
	"time"
)

// SummaryStats describes one correlation series over a date range.
// Values are percentages (coefficient × 100). MinDate and MaxDate are the
// most recent dates at which the extreme occurs.
type SummaryStats struct {
	Ticker  string    `json:"ticker"`
	Name    string    `json:"name"`
	Mean    Float     `json:"mean_pct"`
	Min     Float     `json:"min_pct"`
	MinDate time.Time `json:"min_date"`
	Max     Float     `json:"max_pct"`
	MaxDate time.Time `json:"max_date"`
}

// RadarPoint is one spoke of the correlation radar
type RadarPoint struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	Snapshot   Float  `json:"snapshot_pct"`
	PeriodMean Float  `json:"period_mean_pct"`
}

// RadarSnapshot compares the last observation of a range with its mean
type RadarSnapshot struct {
	Date   time.Time    `json:"date"`
	Points []RadarPoint `json:"points"`
}

// BucketStats are peer-group statistics for one scenario or metric
type BucketStats struct {
	Key    string `json:"key"`
	Median Float  `json:"median"`
	Q25    Float  `json:"q25"`
	Q75    Float  `json:"q75"`
	Peers  int    `json:"peers"`
}

// StressComparison joins the subject's scenario P&L with its bucket
type StressComparison struct {
	ScenarioName string `json:"scenario_name"`
	Subject      Float  `json:"subject"`
	BucketMedian Float  `json:"bucket_median"`
	BucketQ25    Float  `json:"bucket_q25"`
	BucketQ75    Float  `json:"bucket_q75"`
}

// ExposureComparison joins the subject's metric value with its bucket
type ExposureComparison struct {
	Metric       Metric `json:"metric"`
	Subject      Float  `json:"subject"`
	BucketMedian Float  `json:"bucket_median"`
	BucketQ25    Float  `json:"bucket_q25"`
	BucketQ75    Float  `json:"bucket_q75"`
}

// HistoryPoint is one dated observation
type HistoryPoint struct {
	Date  time.Time `json:"date"`
	Value Float     `json:"value"`
}

// PortfolioHistory is the time series of one portfolio for a drill-down view
type PortfolioHistory struct {
	Portfolio string         `json:"portfolio"`
	Name      string         `json:"name"`
	Points    []HistoryPoint `json:"points"`
}

// LegendTable is a reference sheet passed through for display
type LegendTable struct {
	Sheet   string     `json:"sheet"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
