package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"allocdash/pkg/contracts"
)

// CacheStats reports the state of the workbook cache
type CacheStats interface {
	GetStats() map[string]interface{}
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	cache     CacheStats
	hub       ClientCounter
	warm      func(context.Context) error
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. warm is called by the
// readiness check to verify the workbooks load; it may be nil.
func NewHealthService(version string, cache CacheStats, hub ClientCounter, warm func(context.Context) error, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		cache:     cache,
		hub:       hub,
		warm:      warm,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports ready once every configured workbook loads
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	data := ServiceHealth{Status: "ready"}
	if hs.warm != nil {
		if err := hs.warm(ctx); err != nil {
			data = ServiceHealth{Status: "not_ready", Message: err.Error()}
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed", slog.String("error", err.Error()))
		}
	}
	status.Services["workbooks"] = data

	if hs.cache != nil {
		status.Services["cache"] = hs.cache.GetStats()
	}
	if hs.hub != nil {
		status.Services["websocket"] = map[string]interface{}{"clients": hs.hub.ClientCount()}
	}
	return status
}

// Version returns version and build information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     hs.version,
		"api_version": info.APIVersion,
		"data_format": info.DataFormat,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}
