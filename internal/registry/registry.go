// Package registry owns the bidirectional mapping between live transport
// connections and application user identities. All state is in-memory and
// scoped to the process lifetime.
package registry

import (
	"log/slog"
	"sync"

	"github.com/jortega/partidasync/internal/model"
)

// Registry tracks which user, if any, is bound to each connection.
// At most one identity per connection and one connection per identity;
// a later login for the same identity displaces the earlier connection.
type Registry struct {
	mu     sync.RWMutex
	users  map[model.ConnectionID]model.UserIdentity
	conns  map[model.UserID]model.ConnectionID
	known  map[model.ConnectionID]struct{}
	logger *slog.Logger
}

// New creates a new Registry
func New(logger *slog.Logger) *Registry {
	return &Registry{
		users:  make(map[model.ConnectionID]model.UserIdentity),
		conns:  make(map[model.UserID]model.ConnectionID),
		known:  make(map[model.ConnectionID]struct{}),
		logger: logger.With(slog.String("component", "registry")),
	}
}

// OnConnect registers a new anonymous connection
func (r *Registry) OnConnect(id model.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[id] = struct{}{}
}

// Bind associates an identity with a connection. If the identity was bound
// to another live connection, that connection's binding is removed and its
// id returned so the caller can notify it.
func (r *Registry) Bind(id model.ConnectionID, user model.UserIdentity) (displaced model.ConnectionID, wasDisplaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[user.ID]; ok && prev != id {
		delete(r.users, prev)
		displaced = prev
		wasDisplaced = true
		r.logger.Info("login displaced earlier connection",
			slog.Int64("user_id", int64(user.ID)),
			slog.String("old_connection", string(prev)),
			slog.String("new_connection", string(id)))
	}

	// A connection re-logging-in as a different user drops its old binding
	if prevUser, ok := r.users[id]; ok && prevUser.ID != user.ID {
		delete(r.conns, prevUser.ID)
	}

	r.users[id] = user
	r.conns[user.ID] = id
	return displaced, wasDisplaced
}

// Unbind removes the identity binding for a connection, keeping the
// connection itself registered. Returns the identity that was bound.
func (r *Registry) Unbind(id model.ConnectionID) (model.UserIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(id)
}

func (r *Registry) unbindLocked(id model.ConnectionID) (model.UserIdentity, bool) {
	user, ok := r.users[id]
	if !ok {
		return model.UserIdentity{}, false
	}
	delete(r.users, id)
	if r.conns[user.ID] == id {
		delete(r.conns, user.ID)
	}
	return user, true
}

// OnDisconnect removes the connection and any identity binding.
// Returns the identity that was bound, if any.
func (r *Registry) OnDisconnect(id model.ConnectionID) (model.UserIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.known, id)
	return r.unbindLocked(id)
}

// ResolveUser returns the identity bound to a connection
func (r *Registry) ResolveUser(id model.ConnectionID) (model.UserIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return user, ok
}

// ResolveConnection returns the connection a user is currently bound to
func (r *Registry) ResolveConnection(userID model.UserID) (model.ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// ConnectionCount returns the number of live connections
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.known)
}
