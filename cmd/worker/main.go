// Package main provides the worker application entry point.
// The worker consumes screening tasks from Redpanda and records the results.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/sift/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/sift/internal/app"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/screening"
	"github.com/fairyhunter13/sift/internal/service/ratelimiter"
	"github.com/fairyhunter13/sift/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// The worker exposes its own /metrics so queue and generator metrics are
	// scraped separately from the API.
	observability.InitMetrics()
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv), slog.Int("workers", cfg.ConsumerWorkers))
	err = run(ctx, cfg)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func run(ctx context.Context, cfg config.Config) error {
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	jobRepo := postgres.NewJobRepo(pool)
	screenRepo := postgres.NewScreeningRepo(pool)

	// Failed tasks go to the dead letter topic through this producer.
	producer, err := redpanda.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	redisLimiter, rdb, err := app.NewRedisLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	var limiter ratelimiter.Limiter
	if redisLimiter != nil {
		limiter = redisLimiter
		defer func() { _ = rdb.Close() }()
	}

	gen, err := app.NewGenerator(ctx, cfg, limiter)
	if err != nil {
		return err
	}
	pipeline, err := screening.NewPipeline(gen)
	if err != nil {
		return err
	}

	// Resume text is extracted by the API before enqueueing.
	svc := usecase.NewScreeningService(jobRepo, screenRepo, producer, nil, pipeline)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, cfg.ConsumerWorkers, svc.Process)
	if err != nil {
		return err
	}
	defer func() { _ = consumer.Close() }()

	return consumer.WithDeadLetter(producer).Start(ctx)
}
