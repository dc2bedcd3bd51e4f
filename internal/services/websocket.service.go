package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketMessage represents a message sent over the push channel.
type WebSocketMessage struct {
	Type      string      `json:"type"` // "metrics_update", "system_metrics", "ping", ...
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Token     string      `json:"token,omitempty"` // auth messages from the client
}

// ClientConnection represents one connected subscriber.
type ClientConnection struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan WebSocketMessage
	Close chan bool
}

// Hub manages the subscriber set and pushes the latest snapshot to every
// open connection on a fixed cadence. It holds no state beyond channel
// membership; reconnection is the client's responsibility.
type Hub struct {
	metrics  *MetricsService
	logger   *zap.Logger
	interval time.Duration

	clients    map[string]*ClientConnection
	register   chan *ClientConnection
	unregister chan string
	mu         sync.RWMutex
	done       chan struct{}
}

func NewHub(metrics *MetricsService, interval time.Duration, logger *zap.Logger) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Hub{
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
		clients:    make(map[string]*ClientConnection),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
	}
}

// Run drives the hub event loop until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	events := h.metrics.Subscribe()
	defer h.metrics.Unsubscribe(events)

	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected",
				zap.String("client", client.ID), zap.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				zap.String("client", clientID), zap.Int("total", total))

		case ev, ok := <-events:
			if !ok {
				return
			}
			h.multicast(WebSocketMessage{
				Type:      ev.Type,
				Timestamp: time.Now(),
				Data:      ev,
			})

		case <-ticker.C:
			h.broadcastSnapshot(context.Background())
		}
	}
}

// broadcastSnapshot samples once and multicasts the single result, so a
// large subscriber set never multiplies sampling load.
func (h *Hub) broadcastSnapshot(ctx context.Context) {
	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	snap := h.metrics.GetCurrentMetrics(ctx)
	h.multicast(WebSocketMessage{
		Type:      "metrics_update",
		Timestamp: time.Now(),
		Data:      snap,
	})
}

func (h *Hub) multicast(msg WebSocketMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// Client's send channel is full, skip this message.
		}
	}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client *ClientConnection) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(clientID string) {
	h.unregister <- clientID
}

// Stop terminates the event loop.
func (h *Hub) Stop() {
	close(h.done)
}
