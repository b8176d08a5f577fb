package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/berryevents69/Berry-Events-sub000/api/controllers"
	"github.com/berryevents69/Berry-Events-sub000/api/middleware"
	"github.com/berryevents69/Berry-Events-sub000/internal/bookings"
	"github.com/berryevents69/Berry-Events-sub000/internal/cart"
	checkoutsvc "github.com/berryevents69/Berry-Events-sub000/internal/checkout"
	"github.com/berryevents69/Berry-Events-sub000/internal/geomatch"
	"github.com/berryevents69/Berry-Events-sub000/internal/orders"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/realtime"
	pkgredis "github.com/berryevents69/Berry-Events-sub000/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services holds everything the router mounts.
type Services struct {
	DB        controllers.Pinger
	Redis     RedisStore
	Gatherer  prometheus.Gatherer
	Hub       realtime.Broadcaster
	Bookings  bookings.Service
	Providers geomatch.Service
	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Wallet    wallet.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Identity(cfg.JWT, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svc.DB, svc.Redis))
	})

	if svc.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	locationPolicy := middleware.RateLimitPolicy{
		Name:   "location_ping",
		Window: cfg.Matching.LocationPingWindow,
		Limit:  cfg.Matching.LocationPingLimit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(svc.Redis, logg))

		r.Get("/providers/nearby", controllers.ProvidersNearby(svc.Providers, logg))

		// Signed-in users.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logg))

			r.Post("/bookings", controllers.BookingCreate(svc.Bookings, logg))
			r.Get("/bookings/{bookingId}/assignment", controllers.BookingAssignment(svc.Bookings, logg))

			r.With(middleware.RateLimit(locationPolicy, svc.Redis, logg)).
				Post("/providers/me/location", controllers.ProviderLocationPing(svc.Providers, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.WalletFetch(svc.Wallet, logg))
				r.Get("/transactions", controllers.WalletTransactions(svc.Wallet, logg))
				r.Post("/deposit", controllers.WalletDeposit(svc.Wallet, logg))
				r.Post("/withdraw", controllers.WalletWithdraw(svc.Wallet, logg))
				r.Put("/auto-reload", controllers.WalletAutoReload(svc.Wallet, logg))
			})
		})

		// Users and guest sessions.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
				r.Put("/items/{itemId}/gate-code", controllers.CartAttachGateCode(svc.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(svc.Orders, logg))
			r.Get("/order-items/{itemId}/gate-code", controllers.OrderItemGateCode(svc.Orders, logg))
		})
	})

	if cfg.FeatureFlags.Realtime && svc.Hub != nil {
		r.Route("/ws", func(r chi.Router) {
			r.With(middleware.RequireUser(logg)).Get("/bookings/{bookingId}", controllers.BookingEvents(svc.Hub, svc.Bookings, logg))
			r.With(middleware.RequireIdentity(logg)).Get("/orders/{orderId}", controllers.OrderEvents(svc.Hub, svc.Orders, logg))
		})
	}

	return r
}
