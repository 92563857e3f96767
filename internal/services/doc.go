// Package services holds the dashboard's business logic between the
// HTTP handlers and the workbook cache.
//
// DashboardService runs one parameterized pipeline per view. A ViewConfig
// names the dataset and workbook location; every request loads the
// normalized table from the cache, filters it, and computes statistics.
//
//	svc := services.NewDashboardService(workbookCache, services.OptionsFromConfig(cfg.Data), logger)
//	result, err := svc.StressComparison(ctx, services.ComparisonQuery{Subject: "E7X"})
//
// Empty selections and empty peer groups are not errors. They are
// reported as Warnings alongside an empty or NaN-valued result.
package services
