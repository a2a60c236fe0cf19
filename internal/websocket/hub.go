package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a real-time event pushed to all connected clients: entity
// changes, in-app toasts, and level-up celebrations.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity,omitempty"`
	Action string         `json:"action,omitempty"`
	Title  string         `json:"title,omitempty"`
	Body   string         `json:"body,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// EventMessage builds an entity-change notification.
func EventMessage(entity, action string, extra map[string]any) Message {
	return Message{
		Type:   "event",
		Entity: entity,
		Action: action,
		Extra:  extra,
	}
}

// ToastMessage builds an in-app toast, the fallback path when web push is
// unavailable. Sound reflects the persisted sound_alerts_enabled preference.
func ToastMessage(title, body string, sound bool) Message {
	return Message{
		Type:  "toast",
		Title: title,
		Body:  body,
		Extra: map[string]any{"sound": sound},
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
