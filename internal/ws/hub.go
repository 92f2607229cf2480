package ws

import (
	"log/slog"
	"sync"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/rooms"
)

// Hub tracks the live WebSocket clients by connection id and resolves them
// for fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
	logger  *slog.Logger
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnectionID]*Client),
		logger:  logger.With(slog.String("component", "hub")),
	}
}

// Ensure Hub satisfies the fan-out transport
var _ rooms.Transport = (*Hub)(nil)

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered",
		slog.String("connection", string(c.id)),
		slog.Int("total_clients", count))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(id model.ConnectionID) {
	h.mu.Lock()
	_, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("client unregistered",
			slog.String("connection", string(id)),
			slog.Int("total_clients", count))
	}
}

// SenderFor returns the sender for a connection, or nil if it is gone
func (h *Hub) SenderFor(id model.ConnectionID) rooms.Sender {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	if !ok {
		return nil
	}
	return c
}

// Disconnect closes a connection, draining any queued outbound frames first
func (h *Hub) Disconnect(id model.ConnectionID) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if ok {
		c.shutdown()
	}
}

// Count returns the number of live clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll shuts down every client. Used on server shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.shutdown()
	}
	h.logger.Info("all clients closed", slog.Int("count", len(clients)))
}
