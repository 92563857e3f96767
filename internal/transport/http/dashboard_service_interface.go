package http

import (
	"context"

	"allocdash/internal/files"
	"allocdash/internal/services"
)

// DashboardServiceInterface defines the dashboard operations served over HTTP
type DashboardServiceInterface interface {
	CorrelationSelectors(ctx context.Context) (*services.CorrelationSelectors, error)
	Correlation(ctx context.Context, q services.CorrelationQuery) (*services.CorrelationResult, error)

	StressSelectors(ctx context.Context) (*services.SnapshotSelectors, error)
	StressView(ctx context.Context, q services.SnapshotQuery) (*services.StressViewResult, error)
	StressComparison(ctx context.Context, q services.ComparisonQuery) (*services.StressComparisonResult, error)
	StressHistory(ctx context.Context, q services.HistoryQuery) (*services.HistoryResult, error)

	ExposureSelectors(ctx context.Context) (*services.SnapshotSelectors, error)
	ExposureView(ctx context.Context, q services.SnapshotQuery) (*services.ExposureViewResult, error)
	ExposureComparison(ctx context.Context, q services.ComparisonQuery) (*services.ExposureComparisonResult, error)
	ExposureHistory(ctx context.Context, q services.HistoryQuery) (*services.HistoryResult, error)

	Legend(ctx context.Context) (*services.LegendResult, error)
	Workbooks(ctx context.Context) ([]files.FileInfo, error)
	Export(ctx context.Context, req services.ExportRequest) (*services.Export, error)
	Reload(ctx context.Context, trigger string) services.ReloadResult
}
