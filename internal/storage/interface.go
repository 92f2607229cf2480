package storage

import (
	"context"

	"github.com/jortega/partidasync/internal/model"
)

// Gateway defines the interface for data persistence. The core treats it
// as a synchronous request/response dependency with its own failure domain.
type Gateway interface {
	// Game operations
	SaveGame(ctx context.Context, game *model.GameRecord) error
	GetGame(ctx context.Context, code model.GameCode) (*model.GameRecord, error)
	DeleteGame(ctx context.Context, code model.GameCode) error
	GameExists(ctx context.Context, code model.GameCode) (bool, error)
	UpdateGameStatus(ctx context.Context, code model.GameCode, status model.GameStatus) error
	ListGamesByStatus(ctx context.Context, statuses ...model.GameStatus) ([]*model.GameRecord, error)

	// Membership operations. AddMembership rejects a duplicate
	// (game, user) pair with model.ErrAlreadyJoined.
	AddMembership(ctx context.Context, m *model.Membership) error
	GetMembership(ctx context.Context, code model.GameCode, userID model.UserID) (*model.Membership, error)
	ListMemberships(ctx context.Context, code model.GameCode) ([]*model.Membership, error)
	DeleteMembership(ctx context.Context, code model.GameCode, userID model.UserID) error
	DeleteMembershipsForGame(ctx context.Context, code model.GameCode) error

	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	SetUserOnline(ctx context.Context, id model.UserID, online bool) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
}
