// Package lobbylist derives the available-games list by combining persisted
// game records with live room membership counts.
package lobbylist

import (
	"context"
	"log/slog"

	"github.com/jortega/partidasync/internal/model"
	"github.com/jortega/partidasync/internal/rooms"
	"github.com/jortega/partidasync/internal/storage"
)

// EventGameList is the outbound event carrying the snapshot list
const EventGameList = "listaPartidas"

// Aggregator builds and distributes available-games snapshots
type Aggregator struct {
	gateway     storage.Gateway
	directory   *rooms.Directory
	broadcaster *rooms.Broadcaster
	logger      *slog.Logger
}

// New creates a new Aggregator
func New(gateway storage.Gateway, directory *rooms.Directory, broadcaster *rooms.Broadcaster, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		gateway:     gateway,
		directory:   directory,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "lobbylist")),
	}
}

// Snapshot lists games in the given statuses with live connected counts.
// Zero matching games yields an empty list, not an error.
func (a *Aggregator) Snapshot(ctx context.Context, statuses ...model.GameStatus) ([]model.GameSummary, error) {
	if len(statuses) == 0 {
		statuses = []model.GameStatus{model.GameStatusWaiting, model.GameStatusInProgress}
	}

	games, err := a.gateway.ListGamesByStatus(ctx, statuses...)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.GameSummary, 0, len(games))
	for _, game := range games {
		members, err := a.gateway.ListMemberships(ctx, game.Code)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, model.GameSummary{
			Code:       game.Code,
			Name:       game.Config.Name,
			Status:     game.Status,
			MaxPlayers: game.Config.MaxPlayers,
			Players:    len(members),
			// Live count from room membership, not the persisted rows
			Connected: a.directory.Count(string(game.Code)),
			CreatedAt: game.CreatedAt,
		})
	}
	return summaries, nil
}

// PushToLobby broadcasts a refreshed snapshot list to the default lobby room
func (a *Aggregator) PushToLobby(ctx context.Context) {
	summaries, err := a.Snapshot(ctx)
	if err != nil {
		a.logger.Warn("lobby list refresh failed", slog.Any("error", err))
		return
	}
	a.broadcaster.Broadcast(rooms.DefaultRoom, EventGameList, summaries, "")
}

// SendTo delivers a snapshot list to a single requesting connection
func (a *Aggregator) SendTo(ctx context.Context, id model.ConnectionID) error {
	summaries, err := a.Snapshot(ctx)
	if err != nil {
		return err
	}
	return a.broadcaster.SendTo(id, EventGameList, summaries)
}
