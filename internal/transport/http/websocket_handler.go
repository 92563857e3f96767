package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"allocdash/internal/config"
	"allocdash/internal/infrastructure"
	custommw "allocdash/internal/middleware"
	ws "allocdash/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and attaches them to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a WebSocket handler accepting allowedOrigins
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: ws.NewUpgrader(cfg, allowedOrigins),
		logger:   logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := custommw.GetRequestID(r.Context())
	ctx := infrastructure.WithTraceID(r.Context(), traceID)

	// Upgrade writes its own error response
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	client := ws.Serve(h.hub, ws.Wrap(conn), traceID, h.logger)
	h.logger.InfoContext(ctx, "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
