package config

import (
	"fmt"
	"strings"
	"time"
)

type GCPConfig struct {
	ProjectID              string `envconfig:"RENTMARKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"RENTMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RENTMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"RENTMARKET_PUBSUB_ORDERS_TOPIC" default:"rentmarket-order-events"`
	EmulatorHost string `envconfig:"RENTMARKET_PUBSUB_EMULATOR_HOST"`
}

type KafkaConfig struct {
	Brokers     string `envconfig:"RENTMARKET_KAFKA_BROKERS"`
	OrdersTopic string `envconfig:"RENTMARKET_KAFKA_ORDERS_TOPIC" default:"rentmarket.order-events"`
}

// BrokerList splits the comma separated broker setting, dropping blanks.
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for b := range strings.SplitSeq(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// OutboxConfig drives the publisher loop and the retention sweep.
type OutboxConfig struct {
	Sink           string        `envconfig:"RENTMARKET_OUTBOX_SINK" default:"pubsub"`
	BatchSize      int           `envconfig:"RENTMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"RENTMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"RENTMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"RENTMARKET_OUTBOX_RETENTION" default:"720h"`
	PruneBatch     int           `envconfig:"RENTMARKET_OUTBOX_PRUNE_BATCH" default:"500"`
}

func (o OutboxConfig) SinkName() string {
	return strings.ToLower(strings.TrimSpace(o.Sink))
}

func (o OutboxConfig) validate(kafka KafkaConfig) error {
	switch o.SinkName() {
	case OutboxSinkPubSub:
		return nil
	case OutboxSinkKafka:
		if len(kafka.BrokerList()) == 0 {
			return fmt.Errorf("%s is required when %s=%s", EnvKafkaBrokers, EnvOutboxSink, OutboxSinkKafka)
		}
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka)
}
