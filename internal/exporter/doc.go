// Package exporter turns dashboard results into downloadable files.
//
// Results are first shaped into a Table (one worksheet or CSV file),
// then written by XLSXWriter or CSVWriter:
//
//	tables := []exporter.Table{
//		exporter.SummaryTable(stats),
//		exporter.CorrelationSeriesTable(analytics.Scaled(series, 100), names),
//	}
//	err := exporter.NewXLSXWriter(logger).Write(w, tables...)
//
// Undefined statistics (NaN) are written as empty cells.
package exporter
