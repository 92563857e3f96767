package services

import (
	"time"

	"allocdash/internal/analytics"
	"allocdash/internal/config"
	"allocdash/internal/dataprocessing"
	apperrors "allocdash/internal/errors"
	"allocdash/pkg/contracts/domain"
)

// ViewConfig binds a dataset to the workbook it is read from
type ViewConfig struct {
	Dataset  domain.Dataset
	Location string
}

// LegendConfig locates the legend workbook and its sheets
type LegendConfig struct {
	Location      string
	NamesSheet    string
	ScenarioSheet string
}

// Options configures a DashboardService
type Options struct {
	Views          []ViewConfig
	Legend         LegendConfig
	DefaultSubject string
	// DataDir is scanned by workbook discovery
	DataDir string
}

// OptionsFromConfig maps the data configuration onto service options
func OptionsFromConfig(cfg config.DataConfig) Options {
	return Options{
		Views: []ViewConfig{
			{Dataset: domain.DatasetCorrelation, Location: cfg.CorrelationWorkbook},
			{Dataset: domain.DatasetStress, Location: cfg.StressWorkbook},
			{Dataset: domain.DatasetExposure, Location: cfg.ExposureWorkbook},
		},
		Legend: LegendConfig{
			Location:      cfg.LegendWorkbook,
			NamesSheet:    cfg.LegendNamesSheet,
			ScenarioSheet: cfg.LegendScenarioSheet,
		},
		DefaultSubject: cfg.DefaultSubject,
		DataDir:        cfg.Dir,
	}
}

// SheetNamesFromConfig maps the configured sheet names onto the normalizer's
func SheetNamesFromConfig(cfg config.DataConfig) dataprocessing.SheetNames {
	return dataprocessing.SheetNames{
		Correlation: cfg.CorrelationSheet,
		Exposure:    cfg.ExposureSheet,
	}
}

// Warning reports a non-fatal condition of a result
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func warningFrom(err *apperrors.AppError) Warning {
	return Warning{Code: string(err.Type), Message: err.Message}
}

// CorrelationQuery selects a date range and a set of series. Zero dates
// leave that end of the range open. Nil Codes selects every series;
// an empty list selects none.
type CorrelationQuery struct {
	Start time.Time
	End   time.Time
	Codes []string
}

// SeriesLine is one correlation series ready for charting
type SeriesLine struct {
	Ticker string         `json:"ticker"`
	Name   string         `json:"name"`
	Values []domain.Float `json:"values"`
}

// SeriesView is a chart-ready copy of a correlation series
type SeriesView struct {
	Dates []time.Time  `json:"dates"`
	Lines []SeriesLine `json:"series"`
}

// CorrelationResult holds the filtered series (as percentages) with its
// summary statistics and radar snapshot
type CorrelationResult struct {
	Start    time.Time             `json:"start"`
	End      time.Time             `json:"end"`
	Series   SeriesView            `json:"series"`
	Summary  []domain.SummaryStats `json:"summary"`
	Radar    domain.RadarSnapshot  `json:"radar"`
	Warnings []Warning             `json:"warnings"`

	// Scaled is the filtered series multiplied by 100, kept for exports
	Scaled *domain.CorrelationSeries `json:"-"`
}

// SeriesOption is one selectable correlation series
type SeriesOption struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// CorrelationSelectors lists the available range and series
type CorrelationSelectors struct {
	Start  time.Time      `json:"start"`
	End    time.Time      `json:"end"`
	Series []SeriesOption `json:"series"`
}

// SnapshotSelectors lists the choices of a stress or exposure view
type SnapshotSelectors struct {
	Dates          []time.Time     `json:"dates"`
	DefaultDate    time.Time       `json:"default_date"`
	Portfolios     []string        `json:"portfolios"`
	ScenarioNames  []string        `json:"scenario_names,omitempty"`
	Metrics        []domain.Metric `json:"metrics,omitempty"`
	DefaultSubject string          `json:"default_subject"`
}

// SnapshotQuery filters a stress or exposure table to one date. A zero
// Date selects the latest date; nil slices do not filter.
type SnapshotQuery struct {
	Date          time.Time
	Portfolios    []string
	ScenarioNames []string
}

// StressViewResult is the grouped stress view
type StressViewResult struct {
	Date     time.Time          `json:"date"`
	Rows     domain.StressTable `json:"rows"`
	Warnings []Warning          `json:"warnings"`
}

// ExposureViewResult is the grouped exposure view, also in long form
type ExposureViewResult struct {
	Date     time.Time            `json:"date"`
	Rows     domain.ExposureTable `json:"rows"`
	Melted   []domain.MetricValue `json:"melted"`
	Warnings []Warning            `json:"warnings"`
}

// ComparisonQuery selects the snapshot date and subject of a bucket
// comparison. Zero values take the latest date and the default subject.
type ComparisonQuery struct {
	Date    time.Time
	Subject string
}

// StressComparisonResult compares the subject with its peers per scenario
type StressComparisonResult struct {
	Date        time.Time `json:"date"`
	SubjectName string    `json:"subject_name"`
	analytics.StressResult
	Warnings []Warning `json:"warnings"`
}

// ExposureComparisonResult compares the subject with its peers per metric
type ExposureComparisonResult struct {
	Date        time.Time `json:"date"`
	SubjectName string    `json:"subject_name"`
	analytics.ExposureResult
	Warnings []Warning `json:"warnings"`
}

// HistoryQuery selects a drill-down history. Key is a scenario name for
// stress and a metric for exposure. No portfolios selects all of them.
type HistoryQuery struct {
	Key        string
	Portfolios []string
}

// HistoryResult holds one time series per portfolio
type HistoryResult struct {
	Dataset   domain.Dataset            `json:"dataset"`
	Key       string                    `json:"key"`
	Histories []domain.PortfolioHistory `json:"histories"`
	Warnings  []Warning                 `json:"warnings"`
}

// LegendResult holds the reference tables of the legend workbook
type LegendResult struct {
	Series    domain.LegendTable `json:"series"`
	Scenarios domain.LegendTable `json:"scenarios"`
}

// ReloadResult describes a cache reload
type ReloadResult struct {
	Evicted    int       `json:"evicted"`
	Trigger    string    `json:"trigger"`
	ReloadedAt time.Time `json:"reloaded_at"`
}
