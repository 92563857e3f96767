package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"allocdash/internal/config"
	"allocdash/internal/services"
	"allocdash/internal/shared/testutil"
)

func writeCorrelation(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteWorkbook(t, dir, config.DefaultCorrelationWorkbook, testutil.SheetFixture{
		Name: config.DefaultCorrelationSheet,
		Rows: [][]interface{}{
			{"Date", "SPX", "BUND"},
			{"2024-01-31", 0.1, 0.3},
			{"2024-02-29", 0.5, -0.2},
			{"2024-03-31", 0.2, 0.1},
		},
	})
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExport_XLSX(t *testing.T) {
	dataDir := writeCorrelation(t)
	outDir := t.TempDir()

	out, err := run(t, "export", "correlation_series", "--data-dir", dataDir, "--out", outDir, "--start", "2024-02-01")
	require.NoError(t, err)

	path := filepath.Join(outDir, "correlation_time_series.xlsx")
	assert.Equal(t, path, strings.TrimSpace(out))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExport_CSVSplitsTables(t *testing.T) {
	dataDir := writeCorrelation(t)
	outDir := t.TempDir()

	out, err := run(t, "export", "correlation_summary", "--data-dir", dataDir, "--out", outDir, "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.Join(outDir, "correlation_summary_summary.csv"), lines[0])
	assert.Equal(t, filepath.Join(outDir, "correlation_summary_radar.csv"), lines[1])

	data, err := os.ReadFile(lines[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ticker,Name,Mean (%)")
}

func TestExport_Errors(t *testing.T) {
	dataDir := writeCorrelation(t)

	_, err := run(t, "export", "nope", "--data-dir", dataDir)
	assert.Error(t, err)

	_, err = run(t, "export", "correlation_series", "--data-dir", dataDir, "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "export", "correlation_series", "--data-dir", dataDir, "--start", "31/01/2024")
	assert.ErrorContains(t, err, "--start")
}

func TestExportOptions_Request(t *testing.T) {
	opts := &exportOptions{format: formatXLSX, date: "2024-02-29", subject: "E7X"}

	req, err := opts.request("stress_comparison", false)
	require.NoError(t, err)
	assert.Equal(t, services.ExportStressComparison, req.Kind)
	assert.Equal(t, "E7X", req.Comparison.Subject)
	assert.Equal(t, 2024, req.Comparison.Date.Year())
	assert.Nil(t, req.Correlation.Codes)

	req, err = opts.request("correlation_series", true)
	require.NoError(t, err)
	assert.NotNil(t, req.Correlation.Codes)
	assert.Empty(t, req.Correlation.Codes)
}

func TestWorkbooksAndCheck(t *testing.T) {
	dataDir := writeCorrelation(t)

	out, err := run(t, "workbooks", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, config.DefaultCorrelationWorkbook)

	// Only the correlation workbook exists, so the check fails.
	_, err = run(t, "check", "--data-dir", dataDir)
	assert.ErrorContains(t, err, "workbook check failed")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, config.AppVersion)
}
