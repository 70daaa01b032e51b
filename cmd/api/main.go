package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/rentmarket-backend/api/routes"
	"github.com/angelmondragon/rentmarket-backend/internal/bootstrap"
	"github.com/angelmondragon/rentmarket-backend/internal/cart"
	"github.com/angelmondragon/rentmarket-backend/internal/catalog"
	"github.com/angelmondragon/rentmarket-backend/internal/checkout"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/internal/paymentmethods"
	"github.com/angelmondragon/rentmarket-backend/internal/payments"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	gatewaywebhook "github.com/angelmondragon/rentmarket-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
	"github.com/angelmondragon/rentmarket-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	rt, err := bootstrap.Start(context.Background(), "api")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := rt.Redis(context.Background())
	if err != nil {
		logg.Error(context.Background(), "redis.bootstrap_failed", err)
		return err
	}
	params, err := buildRouterParams(cfg, logg, rt.DB, redisClient)
	if err != nil {
		logg.Error(context.Background(), "api.wiring_failed", err)
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := rt.SignalContext(map[string]any{
		"addr":        server.Addr,
		"gateway_env": cfg.Gateway.Environment(),
	})
	defer stop()
	logg.Info(ctx, "api.started")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logg.Error(ctx, "api.crashed", err)
		return err
	case <-ctx.Done():
	}

	// in-flight requests get shutdownTimeout to finish
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api.shutdown_failed", err)
		return err
	}
	logg.Info(ctx, "api.stopped")
	return nil
}

func buildRouterParams(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.RouterParams, error) {
	gormDB := dbClient.DB()
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	gatewayClient, err := gateway.NewClient(cfg.Gateway,
		gateway.WithLogger(logg),
		gateway.WithObserver(paymentMetrics),
	)
	if err != nil {
		return routes.RouterParams{}, err
	}
	paymentsSvc, err := payments.NewService(gatewayClient, logg)
	if err != nil {
		return routes.RouterParams{}, err
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	cartRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	voucherRepo := vouchers.NewRepository(gormDB)
	methodsRepo := paymentmethods.NewRepository(gormDB)

	cartSvc, err := cart.NewService(cartRepo, catalog.NewRepository(gormDB))
	if err != nil {
		return routes.RouterParams{}, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, voucherRepo, dbClient, outboxSvc, logg)
	if err != nil {
		return routes.RouterParams{}, err
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		TransactionRunner: dbClient,
		CartRepo:          cartRepo,
		OrdersRepo:        ordersRepo,
		PaymentMethods:    methodsRepo,
		VoucherRepo:       voucherRepo,
		Payments:          paymentsSvc,
		Outbox:            outboxSvc,
		Logger:            logg,
		Metrics:           paymentMetrics,
		ServiceFee:        pricing.MoneyFromInt(cfg.Checkout.ServiceFee),
		OrderNumberPrefix: cfg.Checkout.OrderNumberPrefix,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	guard, err := gatewaywebhook.NewReplayGuard(redisClient, cfg.Gateway.ReplayGuardTTL)
	if err != nil {
		return routes.RouterParams{}, err
	}
	webhookSvc, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Orders:    ordersSvc,
		ServerKey: cfg.Gateway.ServerKey,
		Guard:     guard,
		Logger:    logg,
		Metrics:   paymentMetrics,
	})
	if err != nil {
		return routes.RouterParams{}, err
	}

	return routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Cache:          redisClient,
		Cart:           cartSvc,
		Checkout:       checkoutSvc,
		Orders:         ordersSvc,
		PaymentMethods: methodsRepo,
		Notifications:  webhookSvc,
	}, nil
}
