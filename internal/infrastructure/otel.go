package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"allocdash/internal/config"
	"allocdash/pkg/contracts/domain"
)

// MeterName is the instrumentation scope for tracers and meters
const MeterName = "allocdash"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout" or "none"
	MetricExporter string // "prometheus" or "none"
	SampleRatio    float64
}

// OTelConfigFrom maps the telemetry section onto exporter choices
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	out := &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    cfg.Environment,
		TraceExporter:  "none",
		MetricExporter: "none",
		SampleRatio:    1.0,
	}
	if out.ServiceName == "" {
		out.ServiceName = config.AppName
	}
	if !cfg.Enabled {
		return out
	}
	if cfg.TracingEnabled {
		out.TraceExporter = "stdout"
	}
	if cfg.MetricsEnabled {
		out.MetricExporter = "prometheus"
	}
	return out
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// always usable; they fall back to no-op implementations when an
// exporter is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel installs the global tracer and meter providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetTracerProvider(tp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return providers, nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// DashboardMetrics holds the application instruments. It satisfies the
// workbook cache's observer interface.
type DashboardMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	WorkbookLoads     metric.Int64Counter
	WorkbookLoadTime  metric.Float64Histogram
	Reloads           metric.Int64Counter
	ComputationTime   metric.Float64Histogram
	EmptyPeerGroups   metric.Int64Counter
	EmptySelections   metric.Int64Counter
	ExportsTotal      metric.Int64Counter
	WebSocketSessions metric.Int64UpDownCounter
}

// NewDashboardMetrics creates the instruments on meter
func NewDashboardMetrics(meter metric.Meter) (*DashboardMetrics, error) {
	var (
		m   DashboardMetrics
		err error
	)

	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	}
	gauge := func(dst *metric.Int64UpDownCounter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	histogram(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	gauge(&m.HTTPActiveRequests, "http_active_requests", "Number of active HTTP requests")

	counter(&m.CacheHits, "workbook_cache_hits_total", "Workbook cache hits")
	counter(&m.CacheMisses, "workbook_cache_misses_total", "Workbook cache misses")
	counter(&m.WorkbookLoads, "workbook_loads_total", "Workbook reads and normalizations")
	histogram(&m.WorkbookLoadTime, "workbook_load_duration_seconds", "Time to read and normalize a workbook")
	counter(&m.Reloads, "workbook_reloads_total", "Cache reloads")
	histogram(&m.ComputationTime, "computation_duration_seconds", "Statistics computation time")
	counter(&m.EmptyPeerGroups, "empty_peer_groups_total", "Comparisons with no peer portfolios")
	counter(&m.EmptySelections, "empty_selections_total", "Filters that selected no rows")
	counter(&m.ExportsTotal, "exports_total", "Generated download files")
	gauge(&m.WebSocketSessions, "websocket_sessions", "Connected WebSocket clients")

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CacheHit records a cache hit
func (m *DashboardMetrics) CacheHit(ctx context.Context, dataset domain.Dataset) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("dataset", string(dataset))))
}

// CacheMiss records a cache miss
func (m *DashboardMetrics) CacheMiss(ctx context.Context, dataset domain.Dataset) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("dataset", string(dataset))))
}

// WorkbookLoaded records a workbook load outcome
func (m *DashboardMetrics) WorkbookLoaded(ctx context.Context, dataset domain.Dataset, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("dataset", string(dataset)),
		attribute.String("status", statusOf(err)),
	)
	m.WorkbookLoads.Add(ctx, 1, attrs)
	m.WorkbookLoadTime.Record(ctx, duration.Seconds(), attrs)
}

// RecordComputation records how long a view took to compute
func (m *DashboardMetrics) RecordComputation(ctx context.Context, view string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ComputationTime.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("view", view)))
}

// RecordEmptyPeerGroup counts a comparison whose subject had no peers
func (m *DashboardMetrics) RecordEmptyPeerGroup(ctx context.Context, dataset domain.Dataset) {
	if m == nil {
		return
	}
	m.EmptyPeerGroups.Add(ctx, 1, metric.WithAttributes(attribute.String("dataset", string(dataset))))
}

// RecordEmptySelection counts a filter that matched nothing
func (m *DashboardMetrics) RecordEmptySelection(ctx context.Context, dataset domain.Dataset) {
	if m == nil {
		return
	}
	m.EmptySelections.Add(ctx, 1, metric.WithAttributes(attribute.String("dataset", string(dataset))))
}

// RecordReload counts a cache reload and its trigger
func (m *DashboardMetrics) RecordReload(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.Reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
}

// RecordExport counts a generated download
func (m *DashboardMetrics) RecordExport(ctx context.Context, format, view string) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("view", view),
	))
}

// RecordWebSocketSession adjusts the connected client gauge by delta
func (m *DashboardMetrics) RecordWebSocketSession(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketSessions.Add(ctx, delta)
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
