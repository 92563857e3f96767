// Package files locates and opens the workbooks the dashboard reads.
//
// A workbook location is either a filesystem path, resolved against the
// configured data directory when relative, or an s3://bucket/key URL.
// Router picks the Source for a location; Discovery lists the workbooks
// available in the data directory.
package files
