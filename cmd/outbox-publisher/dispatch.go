package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	retryBaseDelay = 2 * time.Second
	retryMaxDelay  = 5 * time.Minute
)

// Terminal reasons recorded on parked rows.
const (
	reasonUnroutable  = "non_retryable"
	reasonMaxAttempts = "max_attempts"
)

// dispatch publishes one row and records the outcome on it. Only bookkeeping
// failures are returned; sink failures become retries or terminal parks.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, s.rowFields(event))

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.park(ctx, tx, event, reasonUnroutable, err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":       resolved.Descriptor.Topic,
		"event_id":    resolved.Envelope.EventID,
		"occurred_at": resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	pubErr := s.sink.Publish(publishCtx, resolved.Descriptor.Topic, outboundFor(event, resolved))
	cancel()

	switch {
	case pubErr == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID, s.now()); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncEvent(s.sink.Name(), "published")
		s.logg.Info(ctx, "outbox.published")
		return nil
	case registry.IsNonRetryable(pubErr):
		return s.park(ctx, tx, event, reasonUnroutable, pubErr)
	}

	attempt := event.AttemptCount + 1
	if attempt >= s.maxAttempts {
		return s.park(ctx, tx, event, reasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempt, pubErr))
	}
	retryAt := s.now().Add(retryDelay(attempt))
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr, retryAt); err != nil {
		return fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	s.metrics.IncEvent(s.sink.Name(), "retry")
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"attempt":         attempt,
		"next_attempt_at": retryAt.Format(time.RFC3339),
		"error":           pubErr.Error(),
	}), "outbox.publish_retry")
	return nil
}

// park stops retrying a row. It stays in the table until retention prunes it.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, cause error) error {
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncEvent(s.sink.Name(), "terminal")
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"terminal_reason": reason,
		"error":           cause.Error(),
	}), "outbox.parked")
	return nil
}

func (s *Service) rowFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"sink":           s.sink.Name(),
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// outboundFor keys the message by aggregate so one order's events stay ordered
// within a partition.
func outboundFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) outboundMessage {
	return outboundMessage{
		Key:  event.AggregateID.String(),
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

// retryDelay doubles per attempt from retryBaseDelay up to retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}
