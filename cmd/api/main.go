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

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/hlsladder/internal/api"
	"github.com/hszk-dev/hlsladder/internal/api/handler"
	"github.com/hszk-dev/hlsladder/internal/config"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/cache"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/postgres"
	"github.com/hszk-dev/hlsladder/internal/platform/logger"
	"github.com/hszk-dev/hlsladder/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN(), "hlsladder-api"))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	log.Info("connected to PostgreSQL", slog.Int("max_conns", int(pgClient.Stats().MaxConns)))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	jobCache := cache.NewRedisJobCache(redisClient)
	jobSvc := usecase.NewCachedJobService(
		usecase.NewJobService(postgres.NewJobRepository(pgClient.Pool())),
		jobCache,
		usecase.CachedJobServiceConfig{CacheTTL: cfg.Server.CacheTTL},
	)

	r := api.NewRouter(api.RouterConfig{
		Logger: log,
		Jobs:   handler.NewJobHandler(jobSvc),
		Health: map[string]handler.Pinger{
			"postgres": pgClient,
			"redis":    jobCache,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info("server stopped")
	return nil
}
