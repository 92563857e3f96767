// Package dataprocessing turns source workbooks into typed tables and
// filters them.
//
// # Data Flow
//
//	xlsx → ReadWorkbook → Workbook → Normalizer.Normalize → Normalized → filters
//
// ReadWorkbook loads every sheet as rows of cell strings with excelize.
// The Normalizer then applies the column contract of a dataset:
//
//   - correlation: one sheet, a date column then one column per series
//   - stress: one sheet per portfolio and scenario, named "<portfolio>&&<scenario>"
//   - exposure: one sheet of rows with a portfolio column and metric columns
//
// Headers are renamed positionally, so the source header text only needs
// the right width. Violations return a SchemaError and unparseable cells
// a ParseError, both from the errors package.
//
// # Filtering
//
// The filters are generic over domain.Record and never reorder rows:
//
//	feb := dataprocessing.FilterByExactDate(table.Stress, date)
//	picked := dataprocessing.FilterByEntities(feb, domain.ColumnPortfolio, []string{"E7X"})
//
// An empty allowed list keeps no rows. Callers that mean "everything"
// skip the filter instead.
package dataprocessing
