package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creche-backend/internal/auth"
	"creche-backend/internal/config"
	"creche-backend/internal/database"
	"creche-backend/internal/logging"
	"creche-backend/internal/ratelimit"
	"creche-backend/internal/rules"
	"creche-backend/internal/server"
	"creche-backend/internal/store"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, "creche-backend", cfg.LogLevel)
	ctx := context.Background()
	for _, w := range cfg.Warnings() {
		logger.Warn(ctx, "config warning", "detail", w)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Err(ctx, "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	var s store.Store
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		s = store.NewMemoryStore()
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
	default:
		db, err := database.Open(cfg, logger)
		if err != nil {
			return err
		}
		s = store.NewGormStore(db)
	}

	var (
		revoker auth.Revoker = auth.NewMemoryRevoker()
		limiter *ratelimit.FixedWindowLimiter
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}

		revoker = auth.NewRedisRevoker(client)
		limiter, err = ratelimit.NewFixedWindowLimiter(client, "creche:ratelimit:auth", cfg.AuthRateLimit, cfg.AuthRateWindow)
		if err != nil {
			return err
		}
		logger.Info(ctx, "redis connected", "addr", cfg.RedisAddr)
	} else {
		logger.Warn(ctx, "REDIS_ADDR not set, logout revocation is process-local and auth rate limiting is off")
	}

	app := server.New(server.Deps{
		Config:  cfg,
		Engine:  rules.NewEngine(s, logger),
		Tokens:  auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Revoker: revoker,
		Limiter: limiter,
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "port", cfg.HTTPPort)
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sig:
		logger.Info(ctx, "shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
