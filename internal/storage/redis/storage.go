package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage"
)

// Gateway is a Redis-backed implementation of the storage interface
type Gateway struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis gateway instance
func New(cfg Config) (*Gateway, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Gateway{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis gateway with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (g *Gateway) Close() error {
	return g.client.Close()
}

// Ensure Gateway implements the interface
var _ storage.Gateway = (*Gateway)(nil)

// Game operations

func (g *Gateway) SaveGame(ctx context.Context, game *model.GameRecord) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	// Save record and status index together
	pipe := g.client.Pipeline()
	pipe.Set(ctx, gameKey(game.Code), data, g.gameTTL(game.Status))
	pipe.SAdd(ctx, statusIndexKey(game.Status), string(game.Code))
	_, err = pipe.Exec(ctx)
	return err
}

func (g *Gateway) GetGame(ctx context.Context, code model.GameCode) (*model.GameRecord, error) {
	data, err := g.client.Get(ctx, gameKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var game model.GameRecord
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (g *Gateway) DeleteGame(ctx context.Context, code model.GameCode) error {
	game, err := g.GetGame(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrGameNotFound) {
			return nil
		}
		return err
	}

	pipe := g.client.Pipeline()
	pipe.Del(ctx, gameKey(code))
	pipe.SRem(ctx, statusIndexKey(game.Status), string(code))
	_, err = pipe.Exec(ctx)
	return err
}

func (g *Gateway) GameExists(ctx context.Context, code model.GameCode) (bool, error) {
	n, err := g.client.Exists(ctx, gameKey(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *Gateway) UpdateGameStatus(ctx context.Context, code model.GameCode, status model.GameStatus) error {
	game, err := g.GetGame(ctx, code)
	if err != nil {
		return err
	}

	oldStatus := game.Status
	game.Status = status

	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	pipe := g.client.Pipeline()
	pipe.Set(ctx, gameKey(code), data, g.gameTTL(status))
	if oldStatus != status {
		pipe.SRem(ctx, statusIndexKey(oldStatus), string(code))
		pipe.SAdd(ctx, statusIndexKey(status), string(code))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (g *Gateway) ListGamesByStatus(ctx context.Context, statuses ...model.GameStatus) ([]*model.GameRecord, error) {
	var games []*model.GameRecord
	for _, status := range statuses {
		codes, err := g.client.SMembers(ctx, statusIndexKey(status)).Result()
		if err != nil {
			return nil, err
		}
		for _, code := range codes {
			game, err := g.GetGame(ctx, model.GameCode(code))
			if err != nil {
				if errors.Is(err, model.ErrGameNotFound) {
					// Expired record still in the index; drop it
					_ = g.client.SRem(ctx, statusIndexKey(status), code).Err()
					continue
				}
				return nil, err
			}
			games = append(games, game)
		}
	}
	return games, nil
}

// gameTTL returns the expiry to apply to a game record in the given status
func (g *Gateway) gameTTL(status model.GameStatus) time.Duration {
	if status == model.GameStatusFinished || status == model.GameStatusCancelled {
		return g.cfg.FinishedGameTTL
	}
	return 0
}

// Membership operations

func (g *Gateway) AddMembership(ctx context.Context, m *model.Membership) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	// SetNX enforces one row per (game, user) pair
	set, err := g.client.SetNX(ctx, membershipKey(m.GameCode, m.UserID), data, 0).Result()
	if err != nil {
		return err
	}
	if !set {
		return model.ErrAlreadyJoined
	}

	return g.client.SAdd(ctx, membersIndexKey(m.GameCode), int64(m.UserID)).Err()
}

func (g *Gateway) GetMembership(ctx context.Context, code model.GameCode, userID model.UserID) (*model.Membership, error) {
	data, err := g.client.Get(ctx, membershipKey(code, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var m model.Membership
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (g *Gateway) ListMemberships(ctx context.Context, code model.GameCode) ([]*model.Membership, error) {
	ids, err := g.client.SMembers(ctx, membersIndexKey(code)).Result()
	if err != nil {
		return nil, err
	}

	var members []*model.Membership
	for _, idStr := range ids {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		m, err := g.GetMembership(ctx, code, model.UserID(id))
		if err != nil {
			if errors.Is(err, model.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (g *Gateway) DeleteMembership(ctx context.Context, code model.GameCode, userID model.UserID) error {
	pipe := g.client.Pipeline()
	pipe.Del(ctx, membershipKey(code, userID))
	pipe.SRem(ctx, membersIndexKey(code), int64(userID))
	_, err := pipe.Exec(ctx)
	return err
}

func (g *Gateway) DeleteMembershipsForGame(ctx context.Context, code model.GameCode) error {
	ids, err := g.client.SMembers(ctx, membersIndexKey(code)).Result()
	if err != nil {
		return err
	}

	pipe := g.client.Pipeline()
	for _, idStr := range ids {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		pipe.Del(ctx, membershipKey(code, model.UserID(id)))
	}
	pipe.Del(ctx, membersIndexKey(code))
	_, err = pipe.Exec(ctx)
	return err
}

// User operations

func (g *Gateway) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (g *Gateway) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := g.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *Gateway) SetUserOnline(ctx context.Context, id model.UserID, online bool) error {
	user, err := g.GetUser(ctx, id)
	if err != nil {
		return err
	}

	user.Online = online
	return g.SaveUser(ctx, user)
}

// Ping reports whether Redis is reachable
func (g *Gateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
