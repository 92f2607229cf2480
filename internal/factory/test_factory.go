package factory

import (
	"log/slog"
	"time"

	"github.com/jortega/partidasync/internal/dependencies/clock"
	"github.com/jortega/partidasync/internal/dependencies/random"
	"github.com/jortega/partidasync/internal/storage/memory"
)

// NewForTesting wires an App on in-memory storage with the given clock and
// random implementations, typically mocks.
func NewForTesting(clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	return newWithDependencies(memory.New(), clk, rnd, time.Minute, logger)
}
