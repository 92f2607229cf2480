package game

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically cleans up games whose members have all gone away
// without leaving explicitly.
type Sweeper struct {
	controller *Controller
	interval   time.Duration
	logger     *slog.Logger
	stop       chan struct{}
	done       chan struct{}
}

// NewSweeper creates a Sweeper running CleanupStaleGames at the given interval
func NewSweeper(controller *Controller, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		controller: controller,
		interval:   interval,
		logger:     logger.With(slog.String("component", "sweeper")),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine
func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if _, err := s.controller.CleanupStaleGames(ctx); err != nil {
				s.logger.Warn("stale game sweep failed", slog.Any("error", err))
			}
			cancel()

		case <-s.stop:
			s.logger.Info("sweeper stopped")
			return
		}
	}
}

// Stop terminates the sweep loop and waits for it to exit
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
