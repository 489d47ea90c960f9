package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/hlsladder/internal/api"
	"github.com/hszk-dev/hlsladder/internal/api/handler"
	"github.com/hszk-dev/hlsladder/internal/app"
	"github.com/hszk-dev/hlsladder/internal/config"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/cache"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/postgres"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/queue"
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
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	// Initialize infrastructure clients
	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN(), "hlsladder-worker"))
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

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.QueueName = cfg.RabbitMQ.EventsQueue
	queueCfg.RoutingKey = cfg.RabbitMQ.EventsQueue
	queueCfg.Prefetch = cfg.RabbitMQ.Prefetch
	queueCfg.MaxRedeliveries = cfg.Worker.MaxRedeliveries

	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	log.Info("connected to RabbitMQ", slog.String("queue", queueCfg.QueueName))

	pipeline, err := app.NewPipeline(ctx, cfg, queueClient)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	log.Info("pipeline ready", slog.String("notify_backend", cfg.Notify.Backend))

	jobCache := cache.NewRedisJobCache(redisClient)
	tracker := usecase.NewJobTracker(
		pipeline.Service,
		postgres.NewJobRepository(pgClient.Pool()),
		jobCache,
		pipeline.Notifier,
		usecase.JobTrackerConfig{
			NotifyFailures:  cfg.Notify.NotifyFailures,
			MaxRedeliveries: cfg.Worker.MaxRedeliveries,
		},
	)

	opsServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Worker.OpsPort),
		Handler: api.NewRouter(api.RouterConfig{
			Logger: log,
			Health: map[string]handler.Pinger{
				"postgres": pgClient,
				"redis":    jobCache,
				"rabbitmq": queueClient,
				"minio":    pipeline.Storage,
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting ops server", slog.Int("port", cfg.Worker.OpsPort))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server error: %w", err)
		}
	}()

	// In-flight invocations run on their own context so that a shutdown signal
	// stops consumption without aborting the current encode.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// The consume goroutine handles deliveries synchronously, so waiting for it
	// also waits for the in-flight invocation.
	var wg sync.WaitGroup
	log.Info("starting worker, consuming source events")
	startConsumer(ctx, &wg, errCh, func(ctx context.Context) error {
		return queueClient.ConsumeSourceEvents(ctx, func(_ context.Context, event repository.SourceEvent) error {
			log.Info("processing source",
				slog.String("bucket", event.Source.Bucket),
				slog.String("key", event.Source.RawKey),
				slog.Int("attempt", event.Attempt),
			)
			return tracker.Handle(workCtx, event)
		})
	})

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming new events
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("in-flight invocation completed")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timeout exceeded, aborting in-flight invocation")
		cancelWork()
		<-done
	}

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops server shutdown error", slog.String("error", err.Error()))
	}

	log.Info("worker stopped")
	return nil
}

// startConsumer runs consume on its own goroutine tracked by wg. Errors are
// forwarded to errCh unless ctx was cancelled first.
func startConsumer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error, consume func(ctx context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consume(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()
}
