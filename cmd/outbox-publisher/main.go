package main

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/rentmarket-backend/internal/bootstrap"
	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/kafka"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/registry"
	"github.com/angelmondragon/rentmarket-backend/pkg/pubsub"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	rt, err := bootstrap.Start(context.Background(), "outbox-publisher")
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	snk, topic, closeSink, err := buildSink(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "outbox.sink_failed", err)
		return err
	}
	rt.OnClose(snk.Name(), closeSink)

	eventRegistry, err := registry.NewEventRegistry(topic)
	if err != nil {
		logg.Error(context.Background(), "outbox.registry_failed", err)
		return err
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         rt.DB,
		Sink:       snk,
		Repository: outbox.NewRepository(rt.DB.DB()),
		Registry:   eventRegistry,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "outbox.publisher_failed", err)
		return err
	}

	ctx, stop := rt.SignalContext(map[string]any{
		"sink":   snk.Name(),
		"topics": eventRegistry.Topics(),
	})
	defer stop()
	logg.Info(ctx, "outbox.publisher_started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox.publisher_crashed", err)
		return err
	}
	return nil
}

// buildSink returns the configured sink, the orders topic it publishes to and
// its closer.
func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (sink, string, func() error, error) {
	if cfg.Outbox.SinkName() == config.OutboxSinkKafka {
		writer, err := kafka.NewWriter(cfg.Kafka, logg)
		if err != nil {
			return nil, "", nil, err
		}
		return newKafkaSink(writer), cfg.Kafka.OrdersTopic, writer.Close, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, "", nil, err
	}
	return newPubSubSink(client, nil), cfg.PubSub.OrdersTopic, client.Close, nil
}
