// Package presence tracks per-user online state. The in-memory view is
// authoritative for the process lifetime; persistence is best-effort.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage"
)

const persistTimeout = 5 * time.Second

// Tracker maintains online/offline state per user
type Tracker struct {
	mu      sync.RWMutex
	online  map[model.UserID]bool
	pending map[model.UserID]bool
	writing map[model.UserID]bool

	gateway storage.Gateway
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New creates a new Tracker
func New(gateway storage.Gateway, logger *slog.Logger) *Tracker {
	return &Tracker{
		online:  make(map[model.UserID]bool),
		pending: make(map[model.UserID]bool),
		writing: make(map[model.UserID]bool),
		gateway: gateway,
		logger:  logger.With(slog.String("component", "presence")),
	}
}

// MarkOnline records a user as online and asynchronously persists the state
func (t *Tracker) MarkOnline(id model.UserID) {
	t.mu.Lock()
	t.online[id] = true
	t.scheduleLocked(id, true)
	t.mu.Unlock()
}

// MarkOffline records a user as offline and asynchronously persists the state
func (t *Tracker) MarkOffline(id model.UserID) {
	t.mu.Lock()
	delete(t.online, id)
	t.scheduleLocked(id, false)
	t.mu.Unlock()
}

// IsOnline reports the in-memory view of a user's presence
func (t *Tracker) IsOnline(id model.UserID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online[id]
}

// OnlineCount returns the number of users currently online
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.online)
}

// scheduleLocked records the state to persist and starts a writer for the
// user unless one is already draining. One writer per user keeps the writes
// ordered: a rapid connect/disconnect cannot land Online=true last.
// Caller holds t.mu.
func (t *Tracker) scheduleLocked(id model.UserID, online bool) {
	t.pending[id] = online
	if t.writing[id] {
		return
	}
	t.writing[id] = true
	t.wg.Add(1)
	go t.drain(id)
}

// drain persists pending states for one user until none remain. Writes
// happen off the connect/disconnect flow; failures are logged and dropped.
func (t *Tracker) drain(id model.UserID) {
	defer t.wg.Done()
	for {
		t.mu.Lock()
		online, ok := t.pending[id]
		if !ok {
			t.writing[id] = false
			t.mu.Unlock()
			return
		}
		delete(t.pending, id)
		t.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := t.gateway.SetUserOnline(ctx, id, online)
		cancel()
		if err != nil {
			t.logger.Warn("presence persist failed",
				slog.Int64("user_id", int64(id)),
				slog.Bool("online", online),
				slog.Any("error", err))
		}
	}
}

// Flush waits for in-flight persistence writes. Used in tests and shutdown.
func (t *Tracker) Flush() {
	t.wg.Wait()
}
