package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jortega/partidasync/internal/api"
	"github.com/jortega/partidasync/internal/factory"
	redisstorage "github.com/jortega/partidasync/internal/storage/redis"
)

type serverOptions struct {
	host          string
	port          int
	storageType   string
	redisURL      string
	logLevel      string
	sweepInterval time.Duration
}

func main() {
	opts := &serverOptions{}

	rootCmd := &cobra.Command{
		Use:   "partidasync",
		Short: "Real-time lobby and sync server for browser wargames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&opts.host, "host", "", "Listen host")
	rootCmd.Flags().IntVar(&opts.port, "port", 8080, "Listen port")
	rootCmd.Flags().StringVar(&opts.storageType, "storage", envOr("STORAGE_TYPE", factory.StorageTypeMemory), "Storage backend: memory or redis")
	rootCmd.Flags().StringVar(&opts.redisURL, "redis-url", envOr("REDIS_URL", ""), "Redis connection URL")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	rootCmd.Flags().DurationVar(&opts.sweepInterval, "sweep-interval", factory.DefaultSweepInterval, "Stale game cleanup interval")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *serverOptions) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(opts.logLevel),
	}))
	slog.SetDefault(logger)

	cfg := factory.Config{
		Logger:        logger,
		StorageType:   opts.storageType,
		SweepInterval: opts.sweepInterval,
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		if opts.redisURL == "" {
			logger.Error("--redis-url required when storage is redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = opts.redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := api.NewRouter(api.RouterConfig{
		Logger:  logger,
		Hub:     app.Hub,
		Router:  app.Router,
		Gateway: app.Gateway,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = opts.host
	serverConfig.Port = opts.port
	server := api.NewServer(handler, serverConfig, logger)

	app.Sweeper.Start()

	// Handle graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	app.Sweeper.Stop()
	app.Hub.CloseAll()
	app.Presence.Flush()

	if err := server.Shutdown(context.Background()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
