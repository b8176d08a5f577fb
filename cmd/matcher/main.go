package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/berryevents69/Berry-Events-sub000/internal/cron"
	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/internal/jobqueue"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
	"github.com/berryevents69/Berry-Events-sub000/pkg/migrate"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
	"github.com/berryevents69/Berry-Events-sub000/pkg/redis"
)

// The standalone matcher has no websocket clients, so assignments reach
// customers through the outbox and the assignment endpoint only.
func main() {
	logg := logger.New(logger.Options{ServiceName: "matcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "matcher"

	logg = logger.New(logger.Options{
		ServiceName: "matcher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	queue, err := jobqueue.NewDBQueue(jobqueue.NewRepository(dbClient.DB()), dbClient, outboxSvc, logg, cfg.Matching.BatchSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create job queue", err)
		os.Exit(1)
	}

	geoRepo := geomatch.NewRepository(dbClient.DB())
	matcher, err := geomatch.NewService(geoRepo, geoRepo, cfg.Matching.DefaultRadiusKm)
	if err != nil {
		logg.Error(context.Background(), "failed to create geo matcher", err)
		os.Exit(1)
	}

	processor, err := jobqueue.NewProcessor(jobqueue.ProcessorParams{
		Queue:       queue,
		Matcher:     matcher,
		Broadcaster: realtime.Nop{},
		Metrics:     metrics.NewMatchingMetrics(registry),
		Logger:      logg,
		BatchSize:   cfg.Matching.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create processor", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, "matcher", cfg.Matching.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher lock", err)
		os.Exit(1)
	}

	service, err := cron.NewMatchingService(cron.MatchingParams{
		Logger:    logg,
		Processor: processor,
		Lock:      lock,
		Metrics:   metrics.NewCronJobMetrics(registry),
		Interval:  cfg.Matching.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher schedule", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Matching.SweepInterval.String(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting matcher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "matcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "matcher shutting down gracefully")
}
