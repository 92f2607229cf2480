package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage"
)

// Gateway is an in-memory implementation of the storage interface
type Gateway struct {
	mu sync.RWMutex

	games       map[model.GameCode]*model.GameRecord
	memberships map[membershipKey]*model.Membership
	users       map[model.UserID]*model.User
}

type membershipKey struct {
	code   model.GameCode
	userID model.UserID
}

// New creates a new in-memory gateway instance
func New() *Gateway {
	return &Gateway{
		games:       make(map[model.GameCode]*model.GameRecord),
		memberships: make(map[membershipKey]*model.Membership),
		users:       make(map[model.UserID]*model.User),
	}
}

// Ensure Gateway implements the interface
var _ storage.Gateway = (*Gateway)(nil)

// Game operations

func (g *Gateway) SaveGame(ctx context.Context, game *model.GameRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.games[game.Code] = game
	return nil
}

func (g *Gateway) GetGame(ctx context.Context, code model.GameCode) (*model.GameRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	game, ok := g.games[code]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

func (g *Gateway) DeleteGame(ctx context.Context, code model.GameCode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.games, code)
	return nil
}

func (g *Gateway) GameExists(ctx context.Context, code model.GameCode) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.games[code]
	return ok, nil
}

func (g *Gateway) UpdateGameStatus(ctx context.Context, code model.GameCode, status model.GameStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	game, ok := g.games[code]
	if !ok {
		return model.ErrGameNotFound
	}
	game.Status = status
	return nil
}

func (g *Gateway) ListGamesByStatus(ctx context.Context, statuses ...model.GameStatus) ([]*model.GameRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	wanted := make(map[model.GameStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var games []*model.GameRecord
	for _, game := range g.games {
		if wanted[game.Status] {
			games = append(games, game)
		}
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

// Membership operations

func (g *Gateway) AddMembership(ctx context.Context, m *model.Membership) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := membershipKey{code: m.GameCode, userID: m.UserID}
	if _, ok := g.memberships[key]; ok {
		return model.ErrAlreadyJoined
	}
	g.memberships[key] = m
	return nil
}

func (g *Gateway) GetMembership(ctx context.Context, code model.GameCode, userID model.UserID) (*model.Membership, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.memberships[membershipKey{code: code, userID: userID}]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return m, nil
}

func (g *Gateway) ListMemberships(ctx context.Context, code model.GameCode) ([]*model.Membership, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var members []*model.Membership
	for key, m := range g.memberships {
		if key.code == code {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (g *Gateway) DeleteMembership(ctx context.Context, code model.GameCode, userID model.UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.memberships, membershipKey{code: code, userID: userID})
	return nil
}

func (g *Gateway) DeleteMembershipsForGame(ctx context.Context, code model.GameCode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.memberships {
		if key.code == code {
			delete(g.memberships, key)
		}
	}
	return nil
}

// User operations

func (g *Gateway) SaveUser(ctx context.Context, user *model.User) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[user.ID] = user
	return nil
}

func (g *Gateway) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	user, ok := g.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (g *Gateway) SetUserOnline(ctx context.Context, id model.UserID, online bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	user, ok := g.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	user.Online = online
	return nil
}

// Ping always succeeds for the in-memory gateway
func (g *Gateway) Ping(ctx context.Context) error {
	return nil
}
