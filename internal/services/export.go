package services

import (
	"context"
	"fmt"

	"allocdash/internal/config"
	apperrors "allocdash/internal/errors"
	"allocdash/internal/exporter"
)

// ExportKind names a downloadable result
type ExportKind string

const (
	ExportCorrelationSeries  ExportKind = "correlation_series"
	ExportCorrelationSummary ExportKind = "correlation_summary"
	ExportStressComparison   ExportKind = "stress_comparison"
	ExportExposureComparison ExportKind = "exposure_comparison"
)

// ExportKinds lists every kind in menu order
var ExportKinds = []ExportKind{
	ExportCorrelationSeries,
	ExportCorrelationSummary,
	ExportStressComparison,
	ExportExposureComparison,
}

// ParseExportKind validates a kind name
func ParseExportKind(name string) (ExportKind, error) {
	for _, k := range ExportKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown export %q", name))
}

// ExportRequest selects what to export. Correlation applies to the
// correlation kinds and Comparison to the comparison kinds.
type ExportRequest struct {
	Kind        ExportKind
	Correlation CorrelationQuery
	Comparison  ComparisonQuery
}

// Export is a named set of tables ready to be written
type Export struct {
	Filename string
	Tables   []exporter.Table
}

// Export computes the requested view and shapes it into tables
func (s *DashboardService) Export(ctx context.Context, req ExportRequest) (*Export, error) {
	var out *Export

	switch req.Kind {
	case ExportCorrelationSeries, ExportCorrelationSummary:
		result, err := s.Correlation(ctx, req.Correlation)
		if err != nil {
			return nil, err
		}
		if req.Kind == ExportCorrelationSeries {
			out = &Export{
				Filename: config.CorrelationSeriesExport,
				Tables:   []exporter.Table{exporter.CorrelationSeriesTable(result.Scaled, s.names(ctx))},
			}
		} else {
			out = &Export{
				Filename: config.CorrelationSummaryExport,
				Tables:   []exporter.Table{exporter.SummaryTable(result.Summary), exporter.RadarTable(result.Radar)},
			}
		}

	case ExportStressComparison:
		result, err := s.StressComparison(ctx, req.Comparison)
		if err != nil {
			return nil, err
		}
		out = &Export{
			Filename: config.StressComparisonExport,
			Tables:   []exporter.Table{exporter.StressComparisonTable(result.SubjectName, result.Rows)},
		}

	case ExportExposureComparison:
		result, err := s.ExposureComparison(ctx, req.Comparison)
		if err != nil {
			return nil, err
		}
		out = &Export{
			Filename: config.ExposureComparisonExport,
			Tables:   []exporter.Table{exporter.ExposureComparisonTable(result.SubjectName, result.Rows)},
		}

	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown export %q", req.Kind))
	}

	s.metrics.RecordExport(ctx, "xlsx", string(req.Kind))
	return out, nil
}
