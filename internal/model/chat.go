package model

import (
	"encoding/json"
	"time"
)

// Delivery states for chat messages
const (
	ChatDelivered = "entregado"
	ChatFailed    = "fallido"
)

// ChatMessage is a chat message as broadcast to a room or delivered to a
// single recipient. Estado carries the delivery state on receipts.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"usuario"`
	Body      string    `json:"mensaje"`
	Room      string    `json:"sala,omitempty"`
	Target    *UserID   `json:"destinatario,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Estado    string    `json:"estado,omitempty"`
}

// PositionUpdate is a transient unit-position event. The position payload
// is opaque to the server and forwarded as-is.
type PositionUpdate struct {
	ElementID string          `json:"elemento_id"`
	Position  json.RawMessage `json:"posicion"`
	UserID    UserID          `json:"usuario_id"`
	Room      string          `json:"sala,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// BatchResult is the per-item outcome for a batched position update
type BatchResult struct {
	ElementID string `json:"elemento_id"`
	OK        bool   `json:"ok"`
	Message   string `json:"mensaje,omitempty"`
}
