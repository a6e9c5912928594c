/*
main.go - Application entry point

PURPOSE:
  Starts the leave planner HTTP server.

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Open the configured blob store
  3. Load the saved data set (malformed data falls back to defaults)
  4. Start autosave
  5. Serve HTTP until SIGINT/SIGTERM

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Stop autosave, flushing any pending save
  4. Close the blob store

ENVIRONMENT:
  See config/config.go. The most useful:
    STORE_BACKEND  memory | sqlite | redis | postgres (default sqlite)
    SQLITE_PATH    SQLite file (default planner.db)
    APP_ADDR       listen address (default :8080)

EXAMPLES:
  # Run with file database
  SQLITE_PATH=./data/planner.db ./server

  # Run against Redis
  STORE_BACKEND=redis REDIS_ADDR=127.0.0.1:6379 ./server
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-planner/api"
	"github.com/warp/leave-planner/config"
	"github.com/warp/leave-planner/holidays"
	"github.com/warp/leave-planner/leave"
	memstore "github.com/warp/leave-planner/leave/store"
	"github.com/warp/leave-planner/store/postgres"
	"github.com/warp/leave-planner/store/redis"
	"github.com/warp/leave-planner/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeBlobs()

	store := leave.NewStore(leave.WithLogger(logger))
	if err := store.Load(ctx, blobs, cfg.SnapshotKey); err != nil {
		logger.Warn("load planner data", slog.Any("error", err))
	}

	saver := leave.NewAutosaver(store, blobs, cfg.SnapshotKey, logger)
	saver.Debounce = cfg.AutosaveDebounce
	saver.Start()

	hc := holidays.NewClient(&http.Client{Timeout: cfg.HolidayTimeout})
	handler := api.NewHandler(store, hc, time.Now, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:     cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	saver.Stop()

	logger.Info("server stopped")
}

func openBlobStore(ctx context.Context, cfg *config.Config) (leave.BlobStore, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memstore.NewMemory(), func() {}, nil

	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.BackendRedis:
		client, err := redis.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return redis.New(client, cfg.RedisPrefix), func() { client.Close() }, nil

	case config.BackendPostgres:
		s, err := postgres.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
