package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rentmarket-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/rentmarket-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/rentmarket-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/rentmarket-backend/api/controllers/webhooks"
	"github.com/angelmondragon/rentmarket-backend/api/middleware"
	"github.com/angelmondragon/rentmarket-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/rentmarket-backend/internal/checkout"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	gatewaywebhook "github.com/angelmondragon/rentmarket-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/redis"
)

// Cache is the Redis surface the HTTP layer needs.
type Cache interface {
	redis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type paymentMethodLister interface {
	ListActive(ctx context.Context) ([]models.PaymentMethod, error)
}

type notificationHandler interface {
	Handle(ctx context.Context, n gateway.Notification) (*gatewaywebhook.Result, error)
}

// RouterParams carries everything the API routes are wired to.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Cache          Cache
	Cart           cart.Service
	Checkout       checkoutsvc.Service
	Orders         orders.Service
	PaymentMethods paymentMethodLister
	Notifications  notificationHandler
	Metrics        http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	metricsHandler := p.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit, middleware.ByUser)
	webhookPolicy := middleware.NewRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookLimit, middleware.ByIP)
	idempotent := middleware.Idempotency(p.Cache, logg, middleware.DefaultIdempotencyTTL)
	critical := middleware.Idempotency(p.Cache, logg, middleware.CheckoutIdempotencyTTL)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Cache))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, p.Cache, logg)).
			Post("/webhooks/payments", webhookcontrollers.PaymentNotification(p.Notifications, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/payment-methods", controllers.PaymentMethods(p.PaymentMethods, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleCustomer, logg))

				r.Get("/cart", cartcontrollers.CartFetch(p.Cart, logg))
				r.With(idempotent).Post("/cart", cartcontrollers.CartAdd(p.Cart, logg))
				r.Patch("/cart/{entryId}", cartcontrollers.CartUpdate(p.Cart, logg))
				r.Delete("/cart/{entryId}", cartcontrollers.CartRemove(p.Cart, logg))

				r.With(critical, middleware.RateLimit(checkoutPolicy, p.Cache, logg)).
					Post("/checkout", controllers.Checkout(p.Checkout, logg))
				r.Post("/checkout/summary", controllers.CheckoutSummary(p.Checkout, logg))

				r.Get("/orders", ordercontrollers.List(p.Orders, logg))
				r.Get("/orders/{orderId}", ordercontrollers.Detail(p.Orders, logg))
				r.With(critical).Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleVendor, logg))
				r.Use(middleware.VendorContext(logg))

				r.Get("/vendor/orders", ordercontrollers.VendorList(p.Orders, logg))
				r.With(idempotent).Patch("/vendor/orders/{orderId}/status", ordercontrollers.VendorUpdateStatus(p.Orders, logg))
			})
		})
	})

	return r
}
