package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curbsideops/dispatch-backend/internal/jobs"
	"github.com/curbsideops/dispatch-backend/internal/pickups"
	"github.com/curbsideops/dispatch-backend/internal/telemetry"
	"github.com/curbsideops/dispatch-backend/pkg/config"
	"github.com/curbsideops/dispatch-backend/pkg/db"
	"github.com/curbsideops/dispatch-backend/pkg/logger"
	"github.com/curbsideops/dispatch-backend/pkg/metrics"
	"github.com/curbsideops/dispatch-backend/pkg/migrate"
	"github.com/curbsideops/dispatch-backend/pkg/redis"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "event-poller"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "event-poller"

	logg = logger.New(logger.Options{
		ServiceName: "event-poller",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	routingClient, err := routing.NewClient(cfg.Routing)
	if err != nil {
		logg.Error(context.Background(), "failed to create routing client", err)
		os.Exit(1)
	}

	jobsRepo := jobs.NewRepository(dbClient.DB())
	jobService, err := jobs.NewService(jobsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create job service", err)
		os.Exit(1)
	}

	feedLock, err := telemetry.NewRedisLock(redisClient, redisClient.LockKey(cfg.Feed.LockKey), cfg.Feed.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create feed lock", err)
		os.Exit(1)
	}

	ingestor, err := telemetry.NewIngestor(telemetry.IngestorParams{
		Logger:  logg,
		Feed:    routingClient,
		Repo:    telemetry.NewRepository(dbClient.DB()),
		Pickups: pickups.NewRepository(dbClient.DB()),
		Jobs:    jobService,
		Finder:  jobsRepo,
		Lock:    feedLock,
		Metrics: metrics.NewPollerMetrics(prometheus.DefaultRegisterer),
		Config:  cfg.Feed,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event ingestor", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Metrics.Port,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "error shutting down metrics server", err)
		}
	}()

	logg.Info(ctx, "starting event poller")

	if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "event poller stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "event poller shutting down gracefully")
}
