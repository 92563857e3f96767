package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"allocdash/internal/analytics"
	"allocdash/internal/dataprocessing"
	apperrors "allocdash/internal/errors"
	"allocdash/internal/files"
	"allocdash/internal/infrastructure"
	"allocdash/internal/legend"
	"allocdash/pkg/contracts/domain"
	"allocdash/pkg/contracts/events"
)

// legendSeriesColumns is the width of the series legend shown to users
const legendSeriesColumns = 2

// WorkbookStore loads normalized tables, typically a cache.WorkbookCache
type WorkbookStore interface {
	Get(ctx context.Context, location string, dataset domain.Dataset) (*dataprocessing.Normalized, error)
	Reload() int
}

// Notifier broadcasts events to connected clients
type Notifier interface {
	Broadcast(eventType string, data interface{})
}

// DashboardService computes every dashboard view from the cached tables
type DashboardService struct {
	store     WorkbookStore
	opts      Options
	views     map[domain.Dataset]ViewConfig
	discovery *files.Discovery
	metrics   *infrastructure.DashboardMetrics
	notifier  Notifier
	logger    *slog.Logger
}

// NewDashboardService creates the service
func NewDashboardService(store WorkbookStore, opts Options, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}

	views := make(map[domain.Dataset]ViewConfig, len(opts.Views))
	for _, v := range opts.Views {
		views[v.Dataset] = v
	}

	return &DashboardService{
		store:     store,
		opts:      opts,
		views:     views,
		discovery: files.NewDiscovery(""),
		logger:    logger.With(slog.String("component", "dashboard_service")),
	}
}

// SetMetrics installs the metrics sink
func (s *DashboardService) SetMetrics(m *infrastructure.DashboardMetrics) {
	s.metrics = m
}

// SetNotifier installs the event broadcaster used on reload
func (s *DashboardService) SetNotifier(n Notifier) {
	s.notifier = n
}

// DefaultSubject returns the configured analysis portfolio
func (s *DashboardService) DefaultSubject() string {
	return s.opts.DefaultSubject
}

// begin opens a span and returns a function that ends it and records the
// computation time
func (s *DashboardService) begin(ctx context.Context, view string) (context.Context, func(error)) {
	ctx, span := infrastructure.StartSpan(ctx, "dashboard."+view, attribute.String("view", view))
	start := time.Now()
	return ctx, func(err error) {
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		s.metrics.RecordComputation(ctx, view, time.Since(start))
		span.End()
	}
}

func (s *DashboardService) load(ctx context.Context, dataset domain.Dataset) (*dataprocessing.Normalized, error) {
	view, ok := s.views[dataset]
	if !ok || view.Location == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("no workbook configured for %s", dataset), nil)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("workbook", view.Location))
	return s.store.Get(ctx, view.Location, dataset)
}

// names loads the legend name map. A missing or malformed legend
// degrades to showing raw codes.
func (s *DashboardService) names(ctx context.Context) *legend.NameMap {
	if s.opts.Legend.Location == "" {
		return nil
	}

	table, err := s.store.Get(ctx, s.opts.Legend.Location, domain.DatasetLegend)
	if err != nil {
		s.logger.WarnContext(ctx, "legend unavailable, showing codes",
			slog.String("error", err.Error()))
		return nil
	}

	sheet, ok := table.Legend.Sheet(s.opts.Legend.NamesSheet)
	if !ok {
		s.logger.WarnContext(ctx, "legend sheet missing, showing codes",
			slog.String("sheet", s.opts.Legend.NamesSheet))
		return nil
	}

	names, err := legend.LoadNameMap(sheet)
	if err != nil {
		s.logger.WarnContext(ctx, "legend sheet invalid, showing codes",
			slog.String("error", err.Error()))
		return nil
	}
	return names
}

func (s *DashboardService) emptySelection(ctx context.Context, dataset domain.Dataset, message string) Warning {
	s.metrics.RecordEmptySelection(ctx, dataset)
	s.logger.InfoContext(ctx, "empty selection",
		slog.String("dataset", string(dataset)),
		slog.String("reason", message))
	return warningFrom(apperrors.NewEmptySelectionError(message))
}

// CorrelationSelectors returns the date range and series available for
// the correlation view
func (s *DashboardService) CorrelationSelectors(ctx context.Context) (*CorrelationSelectors, error) {
	table, err := s.load(ctx, domain.DatasetCorrelation)
	if err != nil {
		return nil, err
	}
	names := s.names(ctx)

	series := table.Correlation
	out := &CorrelationSelectors{
		Start:  series.Start(),
		End:    series.End(),
		Series: make([]SeriesOption, 0, len(series.Codes)),
	}
	for _, code := range series.Codes {
		out.Series = append(out.Series, SeriesOption{Ticker: code, Name: names.Resolve(code)})
	}
	return out, nil
}

// Correlation filters the correlation series and summarizes it
func (s *DashboardService) Correlation(ctx context.Context, q CorrelationQuery) (result *CorrelationResult, err error) {
	ctx, end := s.begin(ctx, "correlation")
	defer func() { end(err) }()

	table, err := s.load(ctx, domain.DatasetCorrelation)
	if err != nil {
		return nil, err
	}
	names := s.names(ctx)
	series := table.Correlation

	start, stop := q.Start, q.End
	if start.IsZero() {
		start = series.Start()
	}
	if stop.IsZero() {
		stop = series.End()
	}
	if start.After(stop) {
		return nil, apperrors.NewAppValidationError("start date is after end date").
			WithContext("start", start).WithContext("end", stop)
	}

	filtered := dataprocessing.FilterSeriesByDateRange(series, start, stop)
	if q.Codes != nil {
		filtered = dataprocessing.SelectSeries(filtered, q.Codes)
	}

	result = &CorrelationResult{
		Start:    start,
		End:      stop,
		Summary:  analytics.Summarize(filtered, names),
		Radar:    analytics.Radar(filtered, names),
		Scaled:   analytics.Scaled(filtered, analytics.PercentScale),
		Warnings: []Warning{},
	}
	result.Series = seriesView(result.Scaled, names)

	if filtered.Empty() {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetCorrelation, "no correlation data in the selected range and series"))
	}
	return result, nil
}

func seriesView(series *domain.CorrelationSeries, names *legend.NameMap) SeriesView {
	view := SeriesView{
		Dates: append([]time.Time{}, series.Dates...),
		Lines: make([]SeriesLine, 0, len(series.Codes)),
	}
	for _, code := range series.Codes {
		values := series.Values[code]
		line := SeriesLine{Ticker: code, Name: names.Resolve(code), Values: make([]domain.Float, len(values))}
		for i, v := range values {
			line.Values[i] = domain.Float(v)
		}
		view.Lines = append(view.Lines, line)
	}
	return view
}

// StressSelectors returns the dates, portfolios and scenarios available
func (s *DashboardService) StressSelectors(ctx context.Context) (*SnapshotSelectors, error) {
	table, err := s.load(ctx, domain.DatasetStress)
	if err != nil {
		return nil, err
	}

	dates := table.Stress.Dates()
	out := &SnapshotSelectors{
		Dates:          dates,
		Portfolios:     table.Stress.Portfolios(),
		ScenarioNames:  table.Stress.ScenarioNames(),
		DefaultSubject: s.opts.DefaultSubject,
	}
	if len(dates) > 0 {
		out.DefaultDate = dates[len(dates)-1]
	}
	return out, nil
}

// ExposureSelectors returns the dates, portfolios and metrics available
func (s *DashboardService) ExposureSelectors(ctx context.Context) (*SnapshotSelectors, error) {
	table, err := s.load(ctx, domain.DatasetExposure)
	if err != nil {
		return nil, err
	}

	dates := table.Exposure.Dates()
	out := &SnapshotSelectors{
		Dates:          dates,
		Portfolios:     table.Exposure.Portfolios(),
		Metrics:        append([]domain.Metric(nil), domain.ExposureMetrics...),
		DefaultSubject: s.opts.DefaultSubject,
	}
	if len(dates) > 0 {
		out.DefaultDate = dates[len(dates)-1]
	}
	return out, nil
}

// snapshotDate resolves a requested date against the table's latest date
func snapshotDate[S ~[]T, T domain.Record](rows S, requested time.Time) time.Time {
	if !requested.IsZero() {
		return requested
	}
	latest, _ := dataprocessing.LatestDate(rows)
	return latest
}

func filterStress(rows domain.StressTable, q SnapshotQuery) (domain.StressTable, time.Time) {
	date := snapshotDate(rows, q.Date)
	rows = dataprocessing.FilterByExactDate(rows, date)
	if q.Portfolios != nil {
		rows = dataprocessing.FilterByEntities(rows, domain.ColumnPortfolio, q.Portfolios)
	}
	if q.ScenarioNames != nil {
		rows = dataprocessing.FilterByEntities(rows, domain.ColumnScenarioName, q.ScenarioNames)
	}
	return rows, date
}

func filterExposure(rows domain.ExposureTable, q SnapshotQuery) (domain.ExposureTable, time.Time) {
	date := snapshotDate(rows, q.Date)
	rows = dataprocessing.FilterByExactDate(rows, date)
	if q.Portfolios != nil {
		rows = dataprocessing.FilterByEntities(rows, domain.ColumnPortfolio, q.Portfolios)
	}
	return rows, date
}

// StressView returns the stress rows of one date, optionally restricted
// to some portfolios and scenarios
func (s *DashboardService) StressView(ctx context.Context, q SnapshotQuery) (result *StressViewResult, err error) {
	ctx, end := s.begin(ctx, "stress_view")
	defer func() { end(err) }()

	table, err := s.load(ctx, domain.DatasetStress)
	if err != nil {
		return nil, err
	}

	rows, date := filterStress(table.Stress, q)
	result = &StressViewResult{Date: date, Rows: rows, Warnings: []Warning{}}
	if len(rows) == 0 {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetStress, "no stress rows match the selection"))
	}
	return result, nil
}

// ExposureView returns the exposure rows of one date in wide and long form
func (s *DashboardService) ExposureView(ctx context.Context, q SnapshotQuery) (result *ExposureViewResult, err error) {
	ctx, end := s.begin(ctx, "exposure_view")
	defer func() { end(err) }()

	table, err := s.load(ctx, domain.DatasetExposure)
	if err != nil {
		return nil, err
	}

	rows, date := filterExposure(table.Exposure, q)
	result = &ExposureViewResult{Date: date, Rows: rows, Melted: rows.Melt(), Warnings: []Warning{}}
	if len(rows) == 0 {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetExposure, "no exposure rows match the selection"))
	}
	return result, nil
}

func (s *DashboardService) subject(q ComparisonQuery) string {
	if q.Subject != "" {
		return q.Subject
	}
	return s.opts.DefaultSubject
}

func (s *DashboardService) emptyPeers(ctx context.Context, dataset domain.Dataset, subject string) Warning {
	s.metrics.RecordEmptyPeerGroup(ctx, dataset)
	s.logger.WarnContext(ctx, "empty peer group",
		slog.String("dataset", string(dataset)),
		slog.String("subject", subject))
	return warningFrom(apperrors.NewEmptyPeerGroupError(subject))
}

// StressComparison compares the subject's scenario P&L on one date with
// the median and quartiles of every other portfolio
func (s *DashboardService) StressComparison(ctx context.Context, q ComparisonQuery) (result *StressComparisonResult, err error) {
	ctx, end := s.begin(ctx, "stress_comparison")
	defer func() { end(err) }()

	table, err := s.load(ctx, domain.DatasetStress)
	if err != nil {
		return nil, err
	}
	subject := s.subject(q)

	rows, date := filterStress(table.Stress, SnapshotQuery{Date: q.Date})
	result = &StressComparisonResult{
		Date:         date,
		SubjectName:  s.names(ctx).Resolve(subject),
		StressResult: analytics.CompareStress(rows, subject),
		Warnings:     []Warning{},
	}

	if result.EmptyPeerGroup {
		result.Warnings = append(result.Warnings, s.emptyPeers(ctx, domain.DatasetStress, subject))
	}
	if len(result.Rows) == 0 {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetStress, fmt.Sprintf("no stress scenarios to compare for %s", subject)))
	}
	return result, nil
}

// ExposureComparison compares each exposure measure of the subject on
// one date with the median and quartiles of every other portfolio
func (s *DashboardService) ExposureComparison(ctx context.Context, q ComparisonQuery) (result *ExposureComparisonResult, err error) {
	ctx, end := s.begin(ctx, "exposure_comparison")
	defer func() { end(err) }()

	table, err := s.load(ctx, domain.DatasetExposure)
	if err != nil {
		return nil, err
	}
	subject := s.subject(q)

	rows, date := filterExposure(table.Exposure, SnapshotQuery{Date: q.Date})
	result = &ExposureComparisonResult{
		Date:           date,
		SubjectName:    s.names(ctx).Resolve(subject),
		ExposureResult: analytics.CompareExposure(rows, subject),
		Warnings:       []Warning{},
	}

	if result.EmptyPeerGroup {
		result.Warnings = append(result.Warnings, s.emptyPeers(ctx, domain.DatasetExposure, subject))
	}
	if len(result.Rows) == 0 {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetExposure, fmt.Sprintf("%s has no exposure on the selected date", subject)))
	}
	return result, nil
}

// StressHistory returns one scenario's P&L across dates per portfolio
func (s *DashboardService) StressHistory(ctx context.Context, q HistoryQuery) (result *HistoryResult, err error) {
	ctx, end := s.begin(ctx, "stress_history")
	defer func() { end(err) }()

	if q.Key == "" {
		return nil, apperrors.NewAppValidationError("scenario is required")
	}

	table, err := s.load(ctx, domain.DatasetStress)
	if err != nil {
		return nil, err
	}

	portfolios := q.Portfolios
	if len(portfolios) == 0 {
		portfolios = table.Stress.Portfolios()
	}

	result = &HistoryResult{
		Dataset:   domain.DatasetStress,
		Key:       q.Key,
		Histories: analytics.StressHistory(table.Stress, portfolios, q.Key, s.names(ctx)),
		Warnings:  []Warning{},
	}
	if historiesEmpty(result.Histories) {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetStress, fmt.Sprintf("no history for scenario %s", q.Key)))
	}
	return result, nil
}

// ExposureHistory returns one exposure measure across dates per portfolio
func (s *DashboardService) ExposureHistory(ctx context.Context, q HistoryQuery) (result *HistoryResult, err error) {
	ctx, end := s.begin(ctx, "exposure_history")
	defer func() { end(err) }()

	metric, ok := domain.ParseMetric(q.Key)
	if !ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown exposure metric %q", q.Key))
	}

	table, err := s.load(ctx, domain.DatasetExposure)
	if err != nil {
		return nil, err
	}

	portfolios := q.Portfolios
	if len(portfolios) == 0 {
		portfolios = table.Exposure.Portfolios()
	}

	result = &HistoryResult{
		Dataset:   domain.DatasetExposure,
		Key:       string(metric),
		Histories: analytics.ExposureHistory(table.Exposure, portfolios, metric, s.names(ctx)),
		Warnings:  []Warning{},
	}
	if historiesEmpty(result.Histories) {
		result.Warnings = append(result.Warnings,
			s.emptySelection(ctx, domain.DatasetExposure, fmt.Sprintf("no history for metric %s", metric)))
	}
	return result, nil
}

func historiesEmpty(histories []domain.PortfolioHistory) bool {
	for _, h := range histories {
		if len(h.Points) > 0 {
			return false
		}
	}
	return true
}

// Legend returns the series legend and the scenario descriptions
func (s *DashboardService) Legend(ctx context.Context) (*LegendResult, error) {
	if s.opts.Legend.Location == "" {
		return nil, apperrors.NewConfigError("no legend workbook configured", nil)
	}

	table, err := s.store.Get(ctx, s.opts.Legend.Location, domain.DatasetLegend)
	if err != nil {
		return nil, err
	}

	result := &LegendResult{}
	for _, part := range []struct {
		sheet   string
		columns int
		dst     *domain.LegendTable
	}{
		{s.opts.Legend.NamesSheet, legendSeriesColumns, &result.Series},
		{s.opts.Legend.ScenarioSheet, 0, &result.Scenarios},
	} {
		sheet, ok := table.Legend.Sheet(part.sheet)
		if !ok {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("legend workbook has no %q sheet", part.sheet)).
				WithContext("sheet", part.sheet)
		}
		*part.dst = legend.Table(sheet, part.columns)
	}
	return result, nil
}

// Workbooks lists the workbooks in the data directory
func (s *DashboardService) Workbooks(ctx context.Context) ([]files.FileInfo, error) {
	found, err := s.discovery.FindWorkbooks(s.opts.DataDir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list data directory", err).
			WithContext("dir", s.opts.DataDir)
	}
	s.logger.DebugContext(ctx, "workbooks discovered", slog.Int("count", len(found)))
	return found, nil
}

// Reload drops every cached table so the next request rereads the
// workbooks, then notifies connected clients
func (s *DashboardService) Reload(ctx context.Context, trigger string) ReloadResult {
	result := ReloadResult{
		Evicted:    s.store.Reload(),
		Trigger:    trigger,
		ReloadedAt: time.Now().UTC(),
	}

	s.metrics.RecordReload(ctx, trigger)
	s.logger.InfoContext(ctx, "workbooks reloaded",
		slog.String("trigger", trigger),
		slog.Int("evicted", result.Evicted))

	if s.notifier != nil {
		s.notifier.Broadcast(events.TypeWorkbooksReloaded, result)
	}
	return result
}

// Warm loads every configured workbook, returning the first failure.
// It is used at startup and after scheduled reloads so that broken
// workbooks surface in the logs before a user asks for them.
func (s *DashboardService) Warm(ctx context.Context) error {
	var firstErr error
	for _, view := range s.opts.Views {
		if view.Location == "" {
			continue
		}
		if _, err := s.store.Get(ctx, view.Location, view.Dataset); err != nil {
			s.logger.ErrorContext(ctx, "failed to load workbook",
				slog.String("dataset", string(view.Dataset)),
				slog.String("location", view.Location),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	s.names(ctx)
	return firstErr
}
