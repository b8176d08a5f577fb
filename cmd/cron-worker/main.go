package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/berryevents69/Berry-Events-sub000/internal/cart"
	"github.com/berryevents69/Berry-Events-sub000/internal/cron"
	"github.com/berryevents69/Berry-Events-sub000/internal/gatecodes"
	"github.com/berryevents69/Berry-Events-sub000/internal/orders"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/crypto"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
	"github.com/berryevents69/Berry-Events-sub000/pkg/migrate"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/redis"
)

const (
	serviceName      = "cron-worker"
	unpaidOrderBatch = 100
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(logg, "redis", redisClient.Close)

	jobs, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("build cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, serviceName, cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	worker, err := cron.NewService(cron.ServiceParams{
		Name:     serviceName,
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"jobs":     jobs.Names(),
		"interval": cfg.Cron.Interval.String(),
	}), "starting cron worker")
	return worker.Run(ctx)
}

func closeWith(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	sealer, err := crypto.NewSealer(cfg.Crypto.GateCodeSecret, gatecodes.KeyInfo)
	if err != nil {
		return nil, err
	}
	gateCodeSvc, err := gatecodes.NewService(gatecodes.NewRepository(dbClient.DB()), dbClient, sealer, logg)
	if err != nil {
		return nil, err
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:      cartRepo,
		Tx:        dbClient,
		GateCodes: gateCodeSvc,
		MaxItems:  cfg.Checkout.MaxCartItems,
		TTL:       cfg.Checkout.CartTTL,
	})
	if err != nil {
		return nil, err
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)
	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(dbClient.DB()),
		Carts:     cartRepo,
		GateCodes: gateCodeSvc,
		Wallet:    walletSvc,
		Tx:        dbClient,
		Outbox:    outboxSvc,
	})
	if err != nil {
		return nil, err
	}

	cartJob, err := cron.NewCartExpiryJob(logg, cartSvc)
	if err != nil {
		return nil, err
	}
	unpaidJob, err := cron.NewUnpaidOrderJob(cron.UnpaidOrderJobParams{
		Logger: logg,
		Orders: orderSvc,
		TTL:    cfg.Cron.UnpaidOrderTTL,
		Batch:  unpaidOrderBatch,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(cartJob, unpaidJob, retentionJob), nil
}
