package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/custodia/custodia/internal/config"
	"github.com/custodia/custodia/internal/infra"
	"github.com/custodia/custodia/internal/logging"
	"github.com/custodia/custodia/internal/routes"
	"github.com/custodia/custodia/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel, cfg.IsDev())

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

// run owns every connection it opens, so each one is closed on every return
// path.
func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL, cfg.StoreTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		cache = client
	}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := infra.NewNATSConn(cfg.NATSURL, cfg.AppName, cfg.StoreTimeout, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := conn.Drain(); err != nil {
				logger.Warn("drain nats", "error", err)
			}
		}()
		nc = conn
	}

	srv, err := server.New(routes.Deps{Cfg: cfg, DB: db, Cache: cache, NATS: nc, Logger: logger})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
