package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/rentmarket-backend/internal/bootstrap"
	"github.com/angelmondragon/rentmarket-backend/internal/cron"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	rt, err := bootstrap.Start(context.Background(), "cron-worker")
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
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "cron.lock_failed", err)
		return err
	}

	registry, err := buildJobs(cfg, logg, rt.DB)
	if err != nil {
		logg.Error(context.Background(), "cron.jobs_failed", err)
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "cron.service_failed", err)
		return err
	}

	ctx, stop := rt.SignalContext(map[string]any{"jobs": registry.Names()})
	defer stop()
	logg.Info(ctx, "cron.worker_started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron.worker_crashed", err)
		return err
	}
	logg.Info(ctx, "cron.worker_stopped")
	return nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(
		ordersRepo,
		vouchers.NewRepository(dbClient.DB()),
		dbClient,
		outbox.NewService(outboxRepo, logg),
		logg,
	)
	if err != nil {
		return nil, err
	}

	gatewayClient, err := gateway.NewClient(cfg.Gateway,
		gateway.WithLogger(logg),
		gateway.WithObserver(metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return nil, err
	}
	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:     logg,
		Orders:     ordersRepo,
		Settler:    ordersSvc,
		Gateway:    gatewayClient,
		PendingTTL: cfg.Cron.PendingPaymentTTL,
	})
	if err != nil {
		return nil, err
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
		BatchSize:  cfg.Outbox.PruneBatch,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(expiryJob, retentionJob)
}
