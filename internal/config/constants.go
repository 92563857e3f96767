package config

import (
	"time"

	"allocdash/pkg/contracts"
)

// Application constants
const (
	AppName    = "allocdash"
	AppVersion = contracts.Version

	DefaultPort           = 8080
	DefaultRequestTimeout = 30 * time.Second

	// Rate limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Directories, relative to the working directory
	DefaultDataDir   = "data"
	DefaultExportDir = "exports"

	// Source workbooks
	DefaultCorrelationWorkbook = "corrE7X_test.xlsx"
	DefaultStressWorkbook      = "stress_test_totE7X.xlsx"
	DefaultExposureWorkbook    = "E7X_Exposure.xlsx"
	DefaultLegendWorkbook      = "Legenda.xlsx"

	DefaultCorrelationSheet    = "Correlation Clean"
	DefaultExposureSheet       = "MeasuresSeries"
	DefaultLegendNamesSheet    = "E7X"
	DefaultLegendScenarioSheet = "Scenari"

	// DefaultSubject is the portfolio compared against its bucket
	DefaultSubject = "E7X"

	// Download file names
	CorrelationSeriesExport  = "correlation_time_series.xlsx"
	CorrelationSummaryExport = "correlation_summary.xlsx"
	StressComparisonExport   = "stress_comparison.xlsx"
	ExposureComparisonExport = "exposure_comparison.xlsx"
)
