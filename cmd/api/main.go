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
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/api/routes"
	"github.com/berryevents69/Berry-Events-sub000/internal/bookings"
	"github.com/berryevents69/Berry-Events-sub000/internal/cart"
	"github.com/berryevents69/Berry-Events-sub000/internal/checkout"
	"github.com/berryevents69/Berry-Events-sub000/internal/cron"
	"github.com/berryevents69/Berry-Events-sub000/internal/gatecodes"
	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/internal/jobqueue"
	"github.com/berryevents69/Berry-Events-sub000/internal/orders"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/crypto"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/metrics"
	"github.com/berryevents69/Berry-Events-sub000/pkg/migrate"
	"github.com/berryevents69/Berry-Events-sub000/pkg/outbox"
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
	"github.com/berryevents69/Berry-Events-sub000/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := realtime.NewHub(logg)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	sealer, err := crypto.NewSealer(cfg.Crypto.GateCodeSecret, gatecodes.KeyInfo)
	if err != nil {
		logg.Error(ctx, "failed to create gate code sealer", err)
		os.Exit(1)
	}
	gateCodeSvc, err := gatecodes.NewService(gatecodes.NewRepository(dbClient.DB()), dbClient, sealer, logg)
	if err != nil {
		logg.Error(ctx, "failed to create gate code service", err)
		os.Exit(1)
	}

	queueRepo := jobqueue.NewRepository(dbClient.DB())
	queueSvc, err := jobqueue.NewService(jobqueue.ServiceParams{
		Repo:            queueRepo,
		Tx:              dbClient,
		Outbox:          outboxSvc,
		QueueTTL:        cfg.Matching.QueueTTL,
		DefaultRadiusKm: cfg.Matching.DefaultRadiusKm,
	})
	if err != nil {
		logg.Error(ctx, "failed to create job queue service", err)
		os.Exit(1)
	}

	bookingSvc, err := bookings.NewService(bookings.NewRepository(dbClient.DB()), dbClient, queueSvc)
	if err != nil {
		logg.Error(ctx, "failed to create booking service", err)
		os.Exit(1)
	}

	geoRepo := geomatch.NewRepository(dbClient.DB())
	geoSvc, err := geomatch.NewService(geoRepo, geoRepo, cfg.Matching.DefaultRadiusKm)
	if err != nil {
		logg.Error(ctx, "failed to create geo matcher", err)
		os.Exit(1)
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
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(ctx, "failed to create wallet service", err)
		os.Exit(1)
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
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	feePercent, err := decimal.NewFromString(cfg.Checkout.PlatformFeePercent)
	if err != nil {
		logg.Error(ctx, "invalid platform fee percent", err)
		os.Exit(1)
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Carts:         cartSvc,
		Settlement:    orderSvc,
		Wallet:        walletSvc,
		Broadcaster:   hub,
		Metrics:       metrics.NewCheckoutMetrics(registry),
		Logger:        logg,
		FeePercent:    feePercent,
		TipCategories: cfg.Checkout.TipCategories(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	if cfg.Matching.InProcess {
		matcher, err := newMatcher(cfg, logg, dbClient, redisClient, queueRepo, outboxSvc, geoSvc, hub, registry)
		if err != nil {
			logg.Error(ctx, "failed to create in-process matcher", err)
			os.Exit(1)
		}
		go func() {
			if err := matcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "in-process matcher stopped", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			DB:        dbClient,
			Redis:     redisClient,
			Gatherer:  registry,
			Hub:       hub,
			Bookings:  bookingSvc,
			Providers: geoSvc,
			Cart:      cartSvc,
			Checkout:  checkoutSvc,
			Orders:    orderSvc,
			Wallet:    walletSvc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "api server stopped")
}

// newMatcher builds the matching schedule that shares the API's websocket hub.
func newMatcher(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	queueRepo jobqueue.Repository,
	outboxSvc *outbox.Service,
	matcher geomatch.GeoMatcher,
	hub realtime.Broadcaster,
	reg prometheus.Registerer,
) (*cron.Service, error) {
	queue, err := jobqueue.NewDBQueue(queueRepo, dbClient, outboxSvc, logg, cfg.Matching.BatchSize)
	if err != nil {
		return nil, err
	}
	processor, err := jobqueue.NewProcessor(jobqueue.ProcessorParams{
		Queue:       queue,
		Matcher:     matcher,
		Broadcaster: hub,
		Metrics:     metrics.NewMatchingMetrics(reg),
		Logger:      logg,
		BatchSize:   cfg.Matching.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	lock, err := cron.NewRedisLock(redisClient, "matcher", cfg.Matching.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewMatchingService(cron.MatchingParams{
		Logger:    logg,
		Processor: processor,
		Lock:      lock,
		Metrics:   metrics.NewCronJobMetrics(reg),
		Interval:  cfg.Matching.SweepInterval,
	})
}
