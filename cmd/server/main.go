// Command server starts the sift HTTP API.
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

	"github.com/fairyhunter13/sift/internal/adapter/httpserver"
	"github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/sift/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor/local"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor/tika"
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
	observability.InitMetrics()

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

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	jobRepo := postgres.NewJobRepo(pool)
	screenRepo := postgres.NewScreeningRepo(pool)

	if cfg.DataRetentionDays > 0 {
		go postgres.NewCleanupService(pool, cfg.DataRetentionDays).RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}
	go app.NewStaleScreeningSweeper(screenRepo, cfg.StaleScreeningAge, cfg.StaleSweepInterval).Run(ctx)

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

	tikaClient := tika.New(cfg.TikaURL)
	ext := textextractor.New(local.New(), tikaClient)

	screenings := usecase.NewScreeningService(jobRepo, screenRepo, producer, ext, pipeline,
		usecase.WithScreenerFactory(app.NewScreenerFactory(cfg, limiter)),
		usecase.WithConcurrency(cfg.ScreenConcurrency))

	ready := app.Readiness{DB: pool, Kafka: producer, Tika: tikaClient}
	if rdb != nil {
		ready.Redis = rdb
	}
	srv := httpserver.NewServer(cfg, usecase.NewJobService(jobRepo), screenings, ready.Checks()...)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
