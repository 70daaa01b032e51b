package outbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

// Service writes domain events into the outbox table.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores events inside tx in one insert. Rows become visible to the
// publisher only when the caller commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, events ...DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if len(events) == 0 {
		return nil
	}

	rows := make([]models.OutboxEvent, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, event := range events {
		env, err := NewEnvelope(event)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		rows = append(rows, models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       payload,
		})
		ids = append(ids, env.EventID)
	}
	if err := s.repo.Insert(tx, rows...); err != nil {
		return err
	}

	if s.logg != nil {
		for i, row := range rows {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"event_id":     ids[i],
				"event_type":   row.EventType,
				"aggregate_id": row.AggregateID.String(),
			}), "outbox.queued")
		}
	}
	return nil
}
