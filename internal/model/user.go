package model

import "time"

// UserID uniquely identifies a user across the system
type UserID int64

// ConnectionID is the opaque identifier of one live transport connection.
// Assigned on connect, never reused.
type ConnectionID string

// UserIdentity is the application-level identity bound to a connection
// on login
type UserIdentity struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
}

// User is the persisted form of an identity, including presence state
type User struct {
	ID        UserID    `json:"user_id"`
	Username  string    `json:"username"`
	Online    bool      `json:"conectado"`
	CreatedAt time.Time `json:"creadoEn"`
}
