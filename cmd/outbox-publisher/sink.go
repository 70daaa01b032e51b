package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/rentmarket-backend/pkg/kafka"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/registry"
)

// outboundMessage is a sink-agnostic rendering of one outbox row.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

type sink interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg outboundMessage) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

// pubSubSink caches one publisher per topic.
type pubSubSink struct {
	client  pubSubClient
	factory publisherFactory

	mu         sync.Mutex
	publishers map[string]publisher
}

func newPubSubSink(client pubSubClient, factory publisherFactory) *pubSubSink {
	if factory == nil && client != nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		}
	}
	return &pubSubSink{
		client:     client,
		factory:    factory,
		publishers: make(map[string]publisher),
	}
}

func (s *pubSubSink) Name() string { return "pubsub" }

func (s *pubSubSink) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("pubsub client not configured")
	}
	return s.client.Ping(ctx)
}

func (s *pubSubSink) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	pub := s.publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

func (s *pubSubSink) publisher(topic string) publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	if s.factory == nil {
		return nil
	}
	pub := s.factory(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

type kafkaWriter interface {
	Publish(context.Context, kafka.Message) error
	Ping(context.Context) error
}

// kafkaSink keys every record by aggregate id so one order's events stay on
// one partition.
type kafkaSink struct {
	writer kafkaWriter
}

func newKafkaSink(writer kafkaWriter) *kafkaSink {
	return &kafkaSink{writer: writer}
}

func (s *kafkaSink) Name() string { return "kafka" }

func (s *kafkaSink) Ping(ctx context.Context) error {
	if s.writer == nil {
		return errors.New("kafka writer not configured")
	}
	return s.writer.Ping(ctx)
}

func (s *kafkaSink) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	if s.writer == nil {
		return registry.NewNonRetryableError(errors.New("kafka writer not configured"))
	}
	return s.writer.Publish(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Data,
		Headers: msg.Attributes,
	})
}
