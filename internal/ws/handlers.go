package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/rooms"
)

// handleLogin binds an identity to the connection. A concurrent session
// for the same identity is told it has been displaced and dropped.
func (r *Router) handleLogin(ctx context.Context, conn Conn, data json.RawMessage) error {
	var identity model.UserIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return model.ErrInvalidPayload
	}
	if identity.ID == 0 || identity.Username == "" {
		return model.ErrInvalidPayload
	}

	user := &model.User{
		ID:       identity.ID,
		Username: identity.Username,
		Online:   true,
	}
	// A returning user keeps their original creation timestamp
	if existing, err := r.gateway.GetUser(ctx, identity.ID); err == nil {
		user.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, model.ErrUserNotFound) {
		user.CreatedAt = r.clock.Now()
	} else {
		return err
	}
	if err := r.gateway.SaveUser(ctx, user); err != nil {
		return err
	}

	if displaced, ok := r.registry.Bind(conn.ID(), identity); ok {
		_ = r.broadcaster.SendTo(displaced, EventSessionDisplaced, WireError{
			Message: "Has iniciado sesión desde otra conexión",
			Code:    CodeConflict,
		})
		r.transport.Disconnect(displaced)
	}

	r.presence.MarkOnline(identity.ID)

	return conn.Send(EventLoginOK, identity)
}

// handleLogout unbinds the identity, leaving the connection anonymous
func (r *Router) handleLogout(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	r.registry.Unbind(conn.ID())
	r.presence.MarkOffline(user.ID)

	return conn.Send(EventLogoutOK, map[string]any{"user_id": user.ID})
}

type createGamePayload struct {
	Config *model.GameConfig `json:"configuracion"`
}

// handleCreateGame creates a game, joins the creator to its room, and
// refreshes the lobby list.
func (r *Router) handleCreateGame(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload createGamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ErrInvalidPayload
	}
	if payload.Config == nil {
		return model.ErrMissingConfig
	}

	snapshot, err := r.games.CreateGame(ctx, user, *payload.Config)
	if err != nil {
		return err
	}

	r.directory.Join(string(snapshot.Code), conn.ID())

	if err := conn.Send(EventGameCreated, snapshot); err != nil {
		r.logger.Debug("game created reply failed", slog.Any("error", err))
	}

	r.lobby.PushToLobby(ctx)
	return nil
}

type joinGamePayload struct {
	Code model.GameCode `json:"codigo"`
	Team string         `json:"equipo,omitempty"`
}

type playerJoinedPayload struct {
	UserID   model.UserID        `json:"user_id"`
	Username string              `json:"username"`
	Team     string              `json:"equipo,omitempty"`
	Players  []*model.Membership `json:"jugadores"`
}

// handleJoinGame adds the user to a game and announces it to the room,
// joiner included.
func (r *Router) handleJoinGame(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload joinGamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ErrInvalidPayload
	}
	if payload.Code == "" {
		return model.ErrInvalidPayload
	}

	snapshot, err := r.games.JoinGame(ctx, payload.Code, user, payload.Team)
	if err != nil {
		return err
	}

	r.directory.Join(string(payload.Code), conn.ID())

	if err := conn.Send(EventJoined, snapshot); err != nil {
		r.logger.Debug("join reply failed", slog.Any("error", err))
	}

	// Deliberately no exclusion: the joiner sees its own arrival too
	r.broadcaster.Broadcast(string(payload.Code), EventPlayerJoined, playerJoinedPayload{
		UserID:   user.ID,
		Username: user.Username,
		Team:     payload.Team,
		Players:  snapshot.Players,
	}, "")

	r.lobby.PushToLobby(ctx)
	return nil
}

type gameCodePayload struct {
	Code model.GameCode `json:"codigo"`
}

// handleStartGame transitions a waiting game to in_progress and broadcasts
// the roster to the room.
func (r *Router) handleStartGame(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload gameCodePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Code == "" {
		return model.ErrInvalidPayload
	}

	snapshot, err := r.games.StartGame(ctx, payload.Code, user.ID)
	if err != nil {
		return err
	}

	r.broadcaster.Broadcast(string(payload.Code), EventGameStarted, snapshot, "")
	r.lobby.PushToLobby(ctx)
	return nil
}

// handleCancelGame deletes a game, tells the room, and returns every
// member's connection to the default lobby room.
func (r *Router) handleCancelGame(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload gameCodePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Code == "" {
		return model.ErrInvalidPayload
	}

	if err := r.games.CancelGame(ctx, payload.Code, user.ID); err != nil {
		return err
	}

	room := string(payload.Code)
	r.broadcaster.Broadcast(room, EventGameCancelled, gameCodePayload{Code: payload.Code}, "")

	// Move everyone back to the lobby
	for _, id := range r.directory.Members(room) {
		r.directory.Leave(room, id)
		r.directory.Join(rooms.DefaultRoom, id)
	}

	r.lobby.PushToLobby(ctx)
	return nil
}

type chatPayload struct {
	Body   string        `json:"mensaje"`
	Room   string        `json:"sala,omitempty"`
	Target *model.UserID `json:"destinatario,omitempty"`
}

// handleChatMessage delivers a message to a room or a single user. An
// offline direct target produces a failure receipt to the sender, never a
// server error.
func (r *Router) handleChatMessage(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ErrInvalidPayload
	}
	if payload.Body == "" {
		return model.ErrInvalidPayload
	}

	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Body:      payload.Body,
		Room:      payload.Room,
		Target:    payload.Target,
		Timestamp: r.clock.Now(),
	}

	if payload.Target != nil {
		return r.deliverDirect(conn, msg, *payload.Target)
	}

	room := payload.Room
	if room == "" {
		room = rooms.DefaultRoom
	}
	msg.Room = room
	msg.Estado = model.ChatDelivered

	// Room chat echoes to the sender as well
	r.broadcaster.Broadcast(room, EventChatMessage, msg, "")
	return nil
}

// deliverDirect sends a message to one user's current connection and a
// delivery receipt back to the sender.
func (r *Router) deliverDirect(conn Conn, msg model.ChatMessage, target model.UserID) error {
	receipt := msg

	targetConn, online := r.registry.ResolveConnection(target)
	if !online {
		receipt.Estado = model.ChatFailed
		return conn.Send(EventChatMessage, receipt)
	}

	msg.Estado = model.ChatDelivered
	if err := r.broadcaster.SendTo(targetConn, EventChatMessage, msg); err != nil {
		receipt.Estado = model.ChatFailed
		return conn.Send(EventChatMessage, receipt)
	}

	receipt.Estado = model.ChatDelivered
	return conn.Send(EventChatMessage, receipt)
}

// handlePosition broadcasts a transient unit-position update to the
// sender's game room, excluding the sender. No persistence on this path.
func (r *Router) handlePosition(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var update model.PositionUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return model.ErrInvalidPayload
	}

	return r.broadcastPosition(conn, user, update)
}

type positionBatchPayload struct {
	Updates []model.PositionUpdate `json:"actualizaciones"`
}

type batchResultPayload struct {
	Results []model.BatchResult `json:"resultados"`
}

// handlePositionBatch processes each update independently and returns a
// consolidated per-item result list instead of failing the whole batch on
// one bad item.
func (r *Router) handlePositionBatch(ctx context.Context, conn Conn, data json.RawMessage) error {
	user, err := r.requireUser(conn)
	if err != nil {
		return err
	}

	var payload positionBatchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ErrInvalidPayload
	}

	results := make([]model.BatchResult, 0, len(payload.Updates))
	for _, update := range payload.Updates {
		result := model.BatchResult{ElementID: update.ElementID, OK: true}
		if err := r.broadcastPosition(conn, user, update); err != nil {
			result.OK = false
			result.Message = toWireError(err).Message
		}
		results = append(results, result)
	}

	return conn.Send(EventBatchResult, batchResultPayload{Results: results})
}

// broadcastPosition validates one update and fans it out, sender excluded
func (r *Router) broadcastPosition(conn Conn, user model.UserIdentity, update model.PositionUpdate) error {
	if update.ElementID == "" || len(update.Position) == 0 {
		return model.ErrInvalidPayload
	}

	room := update.Room
	if room == "" {
		room = r.gameRoomFor(conn.ID())
	}
	if room == "" {
		return model.ErrGameNotFound
	}

	update.Room = room
	update.UserID = user.ID
	if update.Timestamp.IsZero() {
		update.Timestamp = r.clock.Now()
	}

	r.broadcaster.Broadcast(room, EventPositionUpdated, update, conn.ID())
	return nil
}

// gameRoomFor returns the connection's current game room, if any
func (r *Router) gameRoomFor(id model.ConnectionID) string {
	for _, room := range r.directory.Rooms(id) {
		if room != rooms.DefaultRoom {
			return room
		}
	}
	return ""
}

// handleListGames sends the available-games snapshot to the requester only
func (r *Router) handleListGames(ctx context.Context, conn Conn, data json.RawMessage) error {
	return r.lobby.SendTo(ctx, conn.ID())
}
