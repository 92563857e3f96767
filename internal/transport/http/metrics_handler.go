package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"allocdash/internal/cache"
	"allocdash/internal/services"
)

// CacheInspector exposes the workbook cache contents
type CacheInspector interface {
	services.CacheStats
	Entries() []cache.EntryInfo
}

// HubMetrics exposes WebSocket hub counters
type HubMetrics interface {
	GetHubMetrics() map[string]interface{}
}

// MetricsHandler serves runtime statistics of the cache and the hub
type MetricsHandler struct {
	cache CacheInspector
	hub   HubMetrics
}

// NewMetricsHandler creates a new metrics handler. Either source may be nil.
func NewMetricsHandler(cache CacheInspector, hub HubMetrics) *MetricsHandler {
	return &MetricsHandler{cache: cache, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/cache", h.GetCache)
	r.Get("/websocket", h.GetWebSocket)
	return r
}

// GetCache returns cache counters and the cached tables
func (h *MetricsHandler) GetCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		render.JSON(w, r, map[string]interface{}{"status": "disabled"})
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"stats":   h.cache.GetStats(),
		"entries": h.cache.Entries(),
	})
}

// GetWebSocket returns hub counters
func (h *MetricsHandler) GetWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		render.JSON(w, r, map[string]interface{}{"status": "disabled"})
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"metrics": h.hub.GetHubMetrics(),
	})
}
