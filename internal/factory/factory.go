// Package factory wires the application components together.
package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jortega/partidasync/internal/dependencies/clock"
	"github.com/jortega/partidasync/internal/dependencies/random"
	"github.com/jortega/partidasync/internal/presence"
	"github.com/jortega/partidasync/internal/registry"
	"github.com/jortega/partidasync/internal/rooms"
	"github.com/jortega/partidasync/internal/services/game"
	"github.com/jortega/partidasync/internal/services/lobbylist"
	"github.com/jortega/partidasync/internal/storage"
	"github.com/jortega/partidasync/internal/storage/memory"
	redisstorage "github.com/jortega/partidasync/internal/storage/redis"
	"github.com/jortega/partidasync/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultSweepInterval is how often stale games are cleaned up
const DefaultSweepInterval = 5 * time.Minute

// App contains all wired application components
type App struct {
	Gateway storage.Gateway

	Clock  clock.Clock
	Random random.Random

	Registry    *registry.Registry
	Directory   *rooms.Directory
	Broadcaster *rooms.Broadcaster
	Presence    *presence.Tracker

	GameController *game.Controller
	Sweeper        *game.Sweeper
	Lobby          *lobbylist.Aggregator

	Hub    *ws.Hub
	Router *ws.Router
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional; discards if nil)
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	StorageType string
	// RedisConfig holds Redis connection settings (required for redis)
	RedisConfig *redisstorage.Config
	// SweepInterval for the stale-game cleanup loop (0 means default)
	SweepInterval time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var gw storage.Gateway
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		gw = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisGw, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		gw = redisGw
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = DefaultSweepInterval
	}

	return newWithDependencies(gw, clock.New(), random.New(), sweepInterval, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(gw storage.Gateway, clk clock.Clock, rnd random.Random, sweepInterval time.Duration, logger *slog.Logger) *App {
	reg := registry.New(logger)
	directory := rooms.NewDirectory(logger)
	hub := ws.NewHub(logger)
	broadcaster := rooms.NewBroadcaster(directory, hub, logger)
	tracker := presence.New(gw, logger)
	gameController := game.NewController(gw, clk, rnd, logger)
	sweeper := game.NewSweeper(gameController, sweepInterval, logger)
	lobby := lobbylist.New(gw, directory, broadcaster, logger)

	router := ws.NewRouter(ws.RouterConfig{
		Registry:    reg,
		Directory:   directory,
		Broadcaster: broadcaster,
		Presence:    tracker,
		Games:       gameController,
		Lobby:       lobby,
		Gateway:     gw,
		Transport:   hub,
		Clock:       clk,
		Logger:      logger,
	})

	return &App{
		Gateway:        gw,
		Clock:          clk,
		Random:         rnd,
		Registry:       reg,
		Directory:      directory,
		Broadcaster:    broadcaster,
		Presence:       tracker,
		GameController: gameController,
		Sweeper:        sweeper,
		Lobby:          lobby,
		Hub:            hub,
		Router:         router,
	}
}
