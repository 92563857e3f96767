package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocdash/internal/cache"
	"allocdash/internal/config"
	"allocdash/internal/dataprocessing"
	apperrors "allocdash/internal/errors"
	"allocdash/internal/files"
	"allocdash/internal/shared/testutil"
	"allocdash/pkg/contracts/domain"
	"allocdash/pkg/contracts/events"
)

var (
	jan = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(eventType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

// writeDataDir writes the four source workbooks into a temp directory
func writeDataDir(t *testing.T) string {
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

	stressHeader := []interface{}{"Date", "Id", "Scenario", "Unit", "PnL"}
	testutil.WriteWorkbook(t, dir, config.DefaultStressWorkbook,
		testutil.SheetFixture{Name: "E7X&&Rates Up", Rows: [][]interface{}{
			stressHeader,
			{"2024-01-31", 1, "Rates +100", "bps", -8},
			{"2024-02-29", 1, "Rates +100", "bps", -10},
		}},
		testutil.SheetFixture{Name: "E7X&&Equity Crash", Rows: [][]interface{}{
			stressHeader,
			{"2024-02-29", 2, "Equity -20%", "bps", -30},
		}},
		testutil.SheetFixture{Name: "PeerA&&Rates Up", Rows: [][]interface{}{
			stressHeader,
			{"2024-02-29", 1, "Rates +100", "bps", -5},
		}},
	)

	testutil.WriteWorkbook(t, dir, config.DefaultExposureWorkbook, testutil.SheetFixture{
		Name: config.DefaultExposureSheet,
		Rows: [][]interface{}{
			{"Date", "Code", "Desc", "Portfolio", "Eq", "Dur", "SprDur"},
			{"2024-01-31", "c", "d", "E7X", 0.40, 3.0, 1.0},
			{"2024-02-29", "c", "d", "E7X", 0.45, 3.2, 1.1},
			{"2024-02-29", "c", "d", "P1", 0.30, 4.0, 1.0},
			{"2024-02-29", "c", "d", "P2", 0.50, 5.0, 2.0},
			{"2024-02-29", "c", "d", "P3", 0.20, 2.0, 0.5},
			{"2024-02-29", "c", "d", "P4", 0.40, 3.0, 1.5},
		},
	})

	testutil.WriteWorkbook(t, dir, config.DefaultLegendWorkbook,
		testutil.SheetFixture{Name: config.DefaultLegendNamesSheet, Rows: [][]interface{}{
			{"Ticker", "Name", "Notes"},
			{"SPX", "S&P 500", "x"},
			{"E7X", "Balanced Fund", "y"},
		}},
		testutil.SheetFixture{Name: config.DefaultLegendScenarioSheet, Rows: [][]interface{}{
			{"Scenario", "Description"},
			{"Rates Up", "+100bp parallel shift"},
		}},
	)

	return dir
}

func newTestService(t *testing.T) (*DashboardService, *cache.WorkbookCache, *recordingNotifier) {
	t.Helper()
	dir := writeDataDir(t)

	cfg := config.Default().Data
	cfg.Dir = dir

	logger, _ := testutil.NewTestLogger(t)
	store := cache.New(files.NewLocalSource(dir), dataprocessing.NewNormalizer(logger, dataprocessing.DefaultSheetNames()), logger)

	svc := NewDashboardService(store, OptionsFromConfig(cfg), logger)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	return svc, store, notifier
}

func warningCodes(warnings []Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestCorrelation_FullRange(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Correlation(context.Background(), CorrelationQuery{})
	require.NoError(t, err)

	assert.Equal(t, jan, result.Start)
	assert.Equal(t, mar, result.End)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.Series.Lines, 2)
	spx := result.Series.Lines[0]
	assert.Equal(t, "S&P 500", spx.Name)
	assert.InDeltaSlice(t, []float64{10, 50, 20}, []float64{float64(spx.Values[0]), float64(spx.Values[1]), float64(spx.Values[2])}, 1e-9)
	assert.Equal(t, "BUND", result.Series.Lines[1].Name, "unmapped codes show as themselves")

	require.Len(t, result.Summary, 2)
	assert.InDelta(t, 50, float64(result.Summary[0].Max), 1e-9)
	assert.Equal(t, feb, result.Summary[0].MaxDate)

	assert.Equal(t, mar, result.Radar.Date)
	assert.InDelta(t, 20, float64(result.Radar.Points[0].Snapshot), 1e-9)
}

func TestCorrelation_RangeAndSelection(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Correlation(context.Background(), CorrelationQuery{Start: feb, Codes: []string{"BUND"}})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{feb, mar}, result.Series.Dates)
	require.Len(t, result.Summary, 1)
	assert.Equal(t, "BUND", result.Summary[0].Ticker)
	assert.Equal(t, feb, result.Summary[0].MinDate)
}

func TestCorrelation_EmptySelection(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Correlation(context.Background(), CorrelationQuery{Codes: []string{"NOPE"}})
	require.NoError(t, err)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptySelection)}, warningCodes(result.Warnings))
	assert.Empty(t, result.Summary)
}

func TestCorrelation_EmptyCodesSelectNothing(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Correlation(context.Background(), CorrelationQuery{Codes: []string{}})
	require.NoError(t, err)
	assert.Empty(t, result.Summary)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptySelection)}, warningCodes(result.Warnings))

	all, err := svc.Correlation(context.Background(), CorrelationQuery{})
	require.NoError(t, err)
	assert.NotEmpty(t, all.Summary)
}

func TestCorrelation_InvertedRange(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Correlation(context.Background(), CorrelationQuery{Start: mar, End: jan})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestSelectors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	corr, err := svc.CorrelationSelectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SeriesOption{{"SPX", "S&P 500"}, {"BUND", "BUND"}}, corr.Series)

	stress, err := svc.StressSelectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{jan, feb}, stress.Dates)
	assert.Equal(t, feb, stress.DefaultDate)
	assert.Equal(t, []string{"E7X", "PeerA"}, stress.Portfolios)
	assert.Equal(t, []string{"Rates Up", "Equity Crash"}, stress.ScenarioNames)
	assert.Equal(t, "E7X", stress.DefaultSubject)

	exposure, err := svc.ExposureSelectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, feb, exposure.DefaultDate)
	assert.Equal(t, domain.ExposureMetrics, exposure.Metrics)
}

func TestStressView(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.StressView(ctx, SnapshotQuery{Portfolios: []string{"E7X"}})
	require.NoError(t, err)
	assert.Equal(t, feb, result.Date)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Rates Up", result.Rows[0].ScenarioName)

	empty, err := svc.StressView(ctx, SnapshotQuery{Portfolios: []string{"Nobody"}})
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptySelection)}, warningCodes(empty.Warnings))
}

func TestStressComparison(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.StressComparison(context.Background(), ComparisonQuery{})
	require.NoError(t, err)

	assert.Equal(t, feb, result.Date)
	assert.Equal(t, "E7X", result.Subject)
	assert.Equal(t, "Balanced Fund", result.SubjectName)
	assert.False(t, result.EmptyPeerGroup)
	assert.Empty(t, result.Warnings)

	// Equity Crash has no peer rows and is dropped by the join.
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, "Rates Up", row.ScenarioName)
	assert.Equal(t, domain.Float(-10), row.Subject)
	assert.Equal(t, domain.Float(-5), row.BucketMedian)
	assert.Equal(t, domain.Float(-5), row.BucketQ25)
	assert.Equal(t, domain.Float(-5), row.BucketQ75)
}

func TestStressComparison_EmptyPeerGroup(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.StressComparison(context.Background(), ComparisonQuery{Date: jan})
	require.NoError(t, err)

	assert.True(t, result.EmptyPeerGroup)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptyPeerGroup)}, warningCodes(result.Warnings))
	require.Len(t, result.Rows, 1)
	assert.Equal(t, domain.Float(-8), result.Rows[0].Subject)
	assert.True(t, result.Rows[0].BucketMedian.IsNaN())
}

func TestExposureComparison(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.ExposureComparison(context.Background(), ComparisonQuery{Subject: "E7X"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	duration := result.Rows[1]
	assert.Equal(t, domain.MetricDuration, duration.Metric)
	assert.InDelta(t, 3.2, float64(duration.Subject), 1e-9)
	assert.InDelta(t, 3.5, float64(duration.BucketMedian), 1e-9)
	assert.InDelta(t, 2.75, float64(duration.BucketQ25), 1e-9)
	assert.InDelta(t, 4.25, float64(duration.BucketQ75), 1e-9)
}

func TestExposureComparison_UnknownSubject(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.ExposureComparison(context.Background(), ComparisonQuery{Subject: "ZZZ"})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Len(t, result.Buckets, 3)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptySelection)}, warningCodes(result.Warnings))
}

func TestExposureView(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.ExposureView(context.Background(), SnapshotQuery{Date: feb, Portfolios: []string{"E7X", "P1"}})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	require.Len(t, result.Melted, 6)
	assert.Equal(t, domain.MetricEquityExposure, result.Melted[0].Metric)
	assert.Equal(t, "P1", result.Melted[1].Portfolio)
}

func TestHistories(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	stress, err := svc.StressHistory(ctx, HistoryQuery{Key: "Rates Up"})
	require.NoError(t, err)
	require.Len(t, stress.Histories, 2)
	assert.Equal(t, "Balanced Fund", stress.Histories[0].Name)
	assert.Equal(t, []domain.HistoryPoint{{Date: jan, Value: -8}, {Date: feb, Value: -10}}, stress.Histories[0].Points)
	assert.Len(t, stress.Histories[1].Points, 1)

	exposure, err := svc.ExposureHistory(ctx, HistoryQuery{Key: "Equity Exposure", Portfolios: []string{"E7X"}})
	require.NoError(t, err)
	require.Len(t, exposure.Histories, 1)
	assert.Len(t, exposure.Histories[0].Points, 2)

	_, err = svc.ExposureHistory(ctx, HistoryQuery{Key: "Beta"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = svc.StressHistory(ctx, HistoryQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	none, err := svc.StressHistory(ctx, HistoryQuery{Key: "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{string(apperrors.ErrTypeEmptySelection)}, warningCodes(none.Warnings))
}

func TestLegend(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Legend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ticker", "Name"}, result.Series.Headers)
	assert.Equal(t, [][]string{{"SPX", "S&P 500"}, {"E7X", "Balanced Fund"}}, result.Series.Rows)
	assert.Equal(t, [][]string{{"Rates Up", "+100bp parallel shift"}}, result.Scenarios.Rows)
}

func TestReload(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))
	assert.Len(t, store.Entries(), 4)

	result := svc.Reload(ctx, "manual")
	assert.Equal(t, 4, result.Evicted)
	assert.Equal(t, "manual", result.Trigger)
	assert.Empty(t, store.Entries())
	assert.Equal(t, []string{events.TypeWorkbooksReloaded}, notifier.events)
}

func TestMissingWorkbook(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()
	store := cache.New(files.NewLocalSource(dir), dataprocessing.NewNormalizer(logger, dataprocessing.DefaultSheetNames()), logger)

	cfg := config.Default().Data
	svc := NewDashboardService(store, OptionsFromConfig(cfg), logger)

	_, err := svc.StressComparison(context.Background(), ComparisonQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Error(t, svc.Warm(context.Background()))

	_, err = svc.Legend(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestUnconfiguredView(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewDashboardService(nil, Options{}, logger)

	_, err := svc.Correlation(context.Background(), CorrelationQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestWorkbooks(t *testing.T) {
	svc, _, _ := newTestService(t)

	found, err := svc.Workbooks(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.Equal(t, config.DefaultExposureWorkbook, found[0].Name)
}

func TestExport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	export, err := svc.Export(ctx, ExportRequest{Kind: ExportStressComparison})
	require.NoError(t, err)
	assert.Equal(t, config.StressComparisonExport, export.Filename)
	require.Len(t, export.Tables, 1)
	assert.Equal(t, "Balanced Fund", export.Tables[0].Headers[1])

	series, err := svc.Export(ctx, ExportRequest{Kind: ExportCorrelationSeries})
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "S&P 500", "BUND"}, series.Tables[0].Headers)
	assert.InDelta(t, 10, series.Tables[0].Rows[0][1].(float64), 1e-9)

	summary, err := svc.Export(ctx, ExportRequest{Kind: ExportCorrelationSummary})
	require.NoError(t, err)
	assert.Len(t, summary.Tables, 2)

	_, err = ParseExportKind("pdf")
	assert.Error(t, err)
}

func TestWarningFromAppError(t *testing.T) {
	w := warningFrom(apperrors.NewEmptyPeerGroupError("E7X"))
	assert.Equal(t, "EMPTY_PEER_GROUP", w.Code)
	assert.Contains(t, w.Message, "E7X")
}
