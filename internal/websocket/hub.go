package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"allocdash/internal/config"
	"allocdash/internal/infrastructure"
	"allocdash/pkg/contracts/events"
)

// broadcastQueue bounds pending broadcasts; further messages are dropped
const broadcastQueue = 64

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.DashboardMetrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	pingPeriod time.Duration
	pongWait   time.Duration

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		pingPeriod: config.WebSocketPingPeriod,
		pongWait:   config.WebSocketPongWait,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Configure applies keepalive timing. Zero values keep the defaults.
func (h *Hub) Configure(cfg config.WebSocketConfig) {
	if cfg.PingPeriod > 0 {
		h.pingPeriod = cfg.PingPeriod
	}
	if cfg.PongWait > 0 {
		h.pongWait = cfg.PongWait
	}
}

// SetMetrics installs the session gauge
func (h *Hub) SetMetrics(m *infrastructure.DashboardMetrics) {
	h.metrics = m
}

// Start runs the hub loop in a goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				h.metrics.RecordWebSocketSession(context.Background(), -1)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.RecordWebSocketSession(ctx, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	hello, err := encode(events.TypeConnection, events.Connection{
		ClientID: client.id,
		Clients:  count,
	}, client.traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.RecordWebSocketSession(ctx, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// fanOut sends message to every client. Clients whose buffer is full are
// disconnected.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
			slog.String("client_id", client.id))
		h.removeClient(client)
	}

	h.logger.Debug("broadcast delivered",
		slog.Int("clients", len(clients)),
		slog.Int("dropped", len(slow)),
		slog.Int("size", len(message)))
}

func encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.Message{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}

// Broadcast queues a message for every connected client. It never
// blocks; when the queue is full the message is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := encode(messageType, data, "")
	if err != nil {
		h.logger.Error("failed to marshal broadcast",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.Warn("broadcast queue full, message dropped", slog.String("type", messageType))
	}
}

// Register adds a client to the hub. It returns false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}
