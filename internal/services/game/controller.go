package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jortega/partidasync/internal/dependencies/clock"
	"github.com/jortega/partidasync/internal/dependencies/random"
	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/storage"
)

const (
	// GameCodeLength is the length of generated game codes
	GameCodeLength = 6
	// GameCodeAlphabet is the characters used in game codes (avoid confusing chars)
	GameCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxCodeAttempts bounds generate-then-check retries on code collision
	maxCodeAttempts = 5
)

// Controller manages the game lifecycle state machine:
// waiting -> in_progress -> finished, or waiting -> cancelled.
type Controller struct {
	gateway storage.Gateway
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	joins   codeMutex
}

// codeMutex serializes membership writes per game code. The capacity check
// reads the member count before inserting; without serialization two joins
// racing on the last slot both pass the check.
type codeMutex struct {
	mu    sync.Mutex
	locks map[model.GameCode]*codeLock
}

type codeLock struct {
	sync.Mutex
	refs int
}

func (c *codeMutex) lock(code model.GameCode) {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[model.GameCode]*codeLock)
	}
	l, ok := c.locks[code]
	if !ok {
		l = &codeLock{}
		c.locks[code] = l
	}
	l.refs++
	c.mu.Unlock()
	l.Lock()
}

func (c *codeMutex) unlock(code model.GameCode) {
	c.mu.Lock()
	l := c.locks[code]
	l.refs--
	if l.refs == 0 {
		delete(c.locks, code)
	}
	c.mu.Unlock()
	l.Unlock()
}

// NewController creates a new game Controller
func NewController(gateway storage.Gateway, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Controller {
	return &Controller{
		gateway: gateway,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "game")),
	}
}

// CreateGame persists a new game in the waiting state with the creator as
// its first member and returns the full snapshot.
func (c *Controller) CreateGame(ctx context.Context, creator model.UserIdentity, cfg model.GameConfig) (*model.GameSnapshot, error) {
	if cfg.Name == "" && cfg.MaxPlayers == 0 && cfg.Settings == nil {
		return nil, model.ErrMissingConfig
	}

	code, err := c.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	game := &model.GameRecord{
		Code:      code,
		Config:    cfg,
		Status:    model.GameStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.gateway.SaveGame(ctx, game); err != nil {
		return nil, err
	}

	membership := &model.Membership{
		GameCode:  code,
		UserID:    creator.ID,
		Username:  creator.Username,
		IsCreator: true,
		JoinedAt:  now,
	}
	if err := c.gateway.AddMembership(ctx, membership); err != nil {
		// Roll back the half-created game
		_ = c.gateway.DeleteGame(ctx, code)
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("code", string(code)),
		slog.Int64("creator", int64(creator.ID)))

	return &model.GameSnapshot{
		Code:      code,
		Config:    cfg,
		Status:    game.Status,
		CreatedAt: now,
		Players:   []*model.Membership{membership},
	}, nil
}

// generateCode produces a unique game code, retrying on collision up to
// maxCodeAttempts before giving up.
func (c *Controller) generateCode(ctx context.Context) (model.GameCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := model.GameCode(c.random.String(GameCodeLength, GameCodeAlphabet))
		exists, err := c.gateway.GameExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", model.ErrCodeGenerationExhausted
}

// JoinGame adds a user to a game. Rejections, in order: unknown code,
// non-joinable status, duplicate membership, capacity reached.
func (c *Controller) JoinGame(ctx context.Context, code model.GameCode, user model.UserIdentity, team string) (*model.GameSnapshot, error) {
	game, err := c.gateway.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}

	if !game.Joinable() {
		return nil, model.ErrGameNotJoinable
	}

	// Hold the per-code lock from the count to the insert so concurrent
	// joins cannot both observe a free slot.
	c.joins.lock(code)
	defer c.joins.unlock(code)

	if _, err := c.gateway.GetMembership(ctx, code, user.ID); err == nil {
		return nil, model.ErrAlreadyJoined
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	members, err := c.gateway.ListMemberships(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.Config.MaxPlayers > 0 && len(members) >= game.Config.MaxPlayers {
		return nil, model.ErrGameFull
	}

	membership := &model.Membership{
		GameCode: code,
		UserID:   user.ID,
		Username: user.Username,
		Team:     team,
		JoinedAt: c.clock.Now(),
	}
	if err := c.gateway.AddMembership(ctx, membership); err != nil {
		return nil, err
	}

	c.logger.Info("player joined game",
		slog.String("code", string(code)),
		slog.Int64("user_id", int64(user.ID)))

	return c.snapshot(ctx, game, append(members, membership))
}

// StartGame transitions a waiting game to in_progress. Creator only.
func (c *Controller) StartGame(ctx context.Context, code model.GameCode, userID model.UserID) (*model.GameSnapshot, error) {
	game, err := c.gateway.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := c.requireCreator(ctx, code, userID); err != nil {
		return nil, err
	}

	if game.Status != model.GameStatusWaiting {
		return nil, model.ErrGameAlreadyStarted
	}

	if err := c.gateway.UpdateGameStatus(ctx, code, model.GameStatusInProgress); err != nil {
		return nil, err
	}
	game.Status = model.GameStatusInProgress

	members, err := c.gateway.ListMemberships(ctx, code)
	if err != nil {
		return nil, err
	}

	c.logger.Info("game started", slog.String("code", string(code)))

	return c.snapshot(ctx, game, members)
}

// CancelGame deletes a game and its memberships. Creator only. The record
// goes first: if that fails nothing changed, and once it is gone the game
// can no longer be listed or joined even if membership cleanup fails.
func (c *Controller) CancelGame(ctx context.Context, code model.GameCode, userID model.UserID) error {
	if _, err := c.gateway.GetGame(ctx, code); err != nil {
		return err
	}

	if err := c.requireCreator(ctx, code, userID); err != nil {
		return err
	}

	if err := c.gateway.DeleteGame(ctx, code); err != nil {
		return err
	}
	if err := c.gateway.DeleteMembershipsForGame(ctx, code); err != nil {
		return err
	}

	c.logger.Info("game cancelled", slog.String("code", string(code)))
	return nil
}

// GetGame returns the snapshot for a game
func (c *Controller) GetGame(ctx context.Context, code model.GameCode) (*model.GameSnapshot, error) {
	game, err := c.gateway.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}
	members, err := c.gateway.ListMemberships(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.snapshot(ctx, game, members)
}

// LeaveGame removes one user's membership from a game
func (c *Controller) LeaveGame(ctx context.Context, code model.GameCode, userID model.UserID) error {
	if _, err := c.gateway.GetMembership(ctx, code, userID); err != nil {
		return err
	}
	return c.gateway.DeleteMembership(ctx, code, userID)
}

// CleanupStaleGames marks waiting/in_progress games with no members as
// finished. Disconnects do not always produce leave events, so this runs
// periodically from the server.
func (c *Controller) CleanupStaleGames(ctx context.Context) (int, error) {
	games, err := c.gateway.ListGamesByStatus(ctx, model.GameStatusWaiting, model.GameStatusInProgress)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, game := range games {
		members, err := c.gateway.ListMemberships(ctx, game.Code)
		if err != nil {
			return cleaned, err
		}
		if len(members) > 0 {
			continue
		}
		if err := c.gateway.UpdateGameStatus(ctx, game.Code, model.GameStatusFinished); err != nil {
			return cleaned, err
		}
		if err := c.gateway.DeleteMembershipsForGame(ctx, game.Code); err != nil {
			return cleaned, err
		}
		cleaned++
	}

	if cleaned > 0 {
		c.logger.Info("stale games cleaned up", slog.Int("count", cleaned))
	}
	return cleaned, nil
}

func (c *Controller) requireCreator(ctx context.Context, code model.GameCode, userID model.UserID) error {
	membership, err := c.gateway.GetMembership(ctx, code, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.ErrNotCreator
		}
		return err
	}
	if !membership.IsCreator {
		return model.ErrNotCreator
	}
	return nil
}

func (c *Controller) snapshot(ctx context.Context, game *model.GameRecord, members []*model.Membership) (*model.GameSnapshot, error) {
	return &model.GameSnapshot{
		Code:      game.Code,
		Config:    game.Config,
		Status:    game.Status,
		CreatedAt: game.CreatedAt,
		Players:   members,
	}, nil
}
