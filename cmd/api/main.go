package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/curbsideops/dispatch-backend/api/routes"
	"github.com/curbsideops/dispatch-backend/internal/autoassign"
	"github.com/curbsideops/dispatch-backend/internal/bids"
	"github.com/curbsideops/dispatch-backend/internal/jobs"
	"github.com/curbsideops/dispatch-backend/internal/optimization"
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

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pickupService, err := pickups.NewService(pickups.NewRepository(dbClient.DB()), dbClient, routingClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup service", err)
		os.Exit(1)
	}

	bidService, err := bids.NewService(bids.NewRepository(dbClient.DB()), jobsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bid service", err)
		os.Exit(1)
	}

	autoAssignService, err := autoassign.NewService(autoassign.NewRepository(dbClient.DB()), routingClient, cfg.AutoAssign)
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-assignment service", err)
		os.Exit(1)
	}

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)

	planService, err := optimization.NewService(optimization.ServiceParams{
		Logger:       logg,
		Provider:     routingClient,
		Metrics:      pollerMetrics,
		PollInterval: cfg.Routing.PlanPollEvery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create optimization service", err)
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
		Metrics: pollerMetrics,
		Config:  cfg.Feed,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event ingestor", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := ingestor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "event ingestor stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			jobService,
			pickupService,
			bidService,
			ingestor,
			autoAssignService,
			planService,
		),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		err := multierr.Combine(server.Shutdown(shutdownCtx), <-serverErr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server shutdown reported errors", err)
			os.Exit(1)
		}
	}

	logg.Info(logCtx, "api server shut down gracefully")
}
