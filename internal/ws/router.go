// Package ws carries the WebSocket transport and the event router that
// validates inbound events, invokes the matching handler, and fans the
// resulting events out to the right connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jortega/partidasync/internal/dependencies/clock"
	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/presence"
	"github.com/jortega/partidasync/internal/registry"
	"github.com/jortega/partidasync/internal/rooms"
	"github.com/jortega/partidasync/internal/services/game"
	"github.com/jortega/partidasync/internal/services/lobbylist"
	"github.com/jortega/partidasync/internal/storage"
)

// Conn is the router's view of one connection. The WebSocket client
// implements it; tests substitute fakes.
type Conn interface {
	ID() model.ConnectionID
	Send(event string, payload any) error
}

// Transport resolves and force-closes live connections
type Transport interface {
	rooms.Transport
	Disconnect(id model.ConnectionID)
}

// HandlerFunc handles one inbound event for one connection
type HandlerFunc func(ctx context.Context, conn Conn, data json.RawMessage) error

// route ties a handler to its error event name and auth requirement.
// The near-identical per-event handlers of a naive implementation collapse
// into this table.
type route struct {
	handler     HandlerFunc
	errorEvent  string
	requireAuth bool
}

// Router dispatches inbound events to handlers and owns the session
// lifecycle of each connection.
type Router struct {
	registry    *registry.Registry
	directory   *rooms.Directory
	broadcaster *rooms.Broadcaster
	presence    *presence.Tracker
	games       *game.Controller
	lobby       *lobbylist.Aggregator
	gateway     storage.Gateway
	transport   Transport
	clock       clock.Clock
	logger      *slog.Logger

	routes map[string]route
}

// RouterConfig holds the router's collaborators
type RouterConfig struct {
	Registry    *registry.Registry
	Directory   *rooms.Directory
	Broadcaster *rooms.Broadcaster
	Presence    *presence.Tracker
	Games       *game.Controller
	Lobby       *lobbylist.Aggregator
	Gateway     storage.Gateway
	Transport   Transport
	Clock       clock.Clock
	Logger      *slog.Logger
}

// NewRouter creates a Router with its dispatch table
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		registry:    cfg.Registry,
		directory:   cfg.Directory,
		broadcaster: cfg.Broadcaster,
		presence:    cfg.Presence,
		games:       cfg.Games,
		lobby:       cfg.Lobby,
		gateway:     cfg.Gateway,
		transport:   cfg.Transport,
		clock:       cfg.Clock,
		logger:      cfg.Logger.With(slog.String("component", "router")),
	}

	r.routes = map[string]route{
		EventLogin:          {r.handleLogin, EventLoginError, false},
		EventLogout:         {r.handleLogout, EventServerError, true},
		EventCreateGame:     {r.handleCreateGame, EventCreateError, true},
		EventJoinGame:       {r.handleJoinGame, EventJoinError, true},
		EventStartGame:      {r.handleStartGame, EventStartError, true},
		EventCancelGame:     {r.handleCancelGame, EventCancelError, true},
		EventChatMessage:    {r.handleChatMessage, EventServerError, true},
		EventUpdatePosition: {r.handlePosition, EventServerError, true},
		EventPositionBatch:  {r.handlePositionBatch, EventServerError, true},
		EventListGames:      {r.handleListGames, EventServerError, false},
	}

	return r
}

// HandleConnect registers a new anonymous connection and joins it to the
// default lobby room.
func (r *Router) HandleConnect(conn Conn) {
	r.registry.OnConnect(conn.ID())
	r.directory.Join(rooms.DefaultRoom, conn.ID())
	r.logger.Info("connection opened", slog.String("connection", string(conn.ID())))
}

// HandleDisconnect tears down a connection's session state: identity
// binding, presence, and every room membership.
func (r *Router) HandleDisconnect(conn Conn) {
	user, hadUser := r.registry.OnDisconnect(conn.ID())
	if hadUser {
		r.presence.MarkOffline(user.ID)
	}
	r.directory.LeaveAll(conn.ID())
	r.logger.Info("connection closed",
		slog.String("connection", string(conn.ID())),
		slog.Bool("was_authenticated", hadUser))
}

// Dispatch parses one inbound frame and runs its handler. Every failure is
// reported back to the originating connection as exactly one typed error
// event; nothing propagates.
func (r *Router) Dispatch(ctx context.Context, conn Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		r.sendError(conn, EventServerError, model.ErrInvalidPayload, "", nil)
		return
	}

	rt, ok := r.routes[env.Event]
	if !ok {
		r.logger.Warn("unknown event",
			slog.String("event", env.Event),
			slog.String("connection", string(conn.ID())))
		r.sendError(conn, EventServerError, model.ErrInvalidPayload, env.Event, nil)
		return
	}

	var user *model.UserIdentity
	if identity, ok := r.registry.ResolveUser(conn.ID()); ok {
		user = &identity
	}
	if rt.requireAuth && user == nil {
		r.sendError(conn, rt.errorEvent, model.ErrUnauthenticated, env.Event, nil)
		return
	}

	if err := rt.handler(ctx, conn, env.Data); err != nil {
		r.sendError(conn, rt.errorEvent, err, env.Event, user)
	}
}

// sendError logs a handler failure with context and emits the typed error
// event back to the caller.
func (r *Router) sendError(conn Conn, errorEvent string, err error, event string, user *model.UserIdentity) {
	attrs := []any{
		slog.String("event", event),
		slog.String("connection", string(conn.ID())),
		slog.Any("error", err),
	}
	if user != nil {
		attrs = append(attrs, slog.Int64("user_id", int64(user.ID)))
	}
	r.logger.Warn("event rejected", attrs...)

	if sendErr := conn.Send(errorEvent, toWireError(err)); sendErr != nil {
		r.logger.Debug("error event delivery failed",
			slog.String("connection", string(conn.ID())),
			slog.Any("error", sendErr))
	}
}

// requireUser returns the identity bound to a connection
func (r *Router) requireUser(conn Conn) (model.UserIdentity, error) {
	user, ok := r.registry.ResolveUser(conn.ID())
	if !ok {
		return model.UserIdentity{}, model.ErrUnauthenticated
	}
	return user, nil
}
