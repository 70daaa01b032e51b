package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
)

// OutboxEvent is one order event queued in the same transaction as the change
// it describes. Rows leave the queue by being published or parked at the
// attempt cap.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	NextAttemptAt *time.Time                `gorm:"column:next_attempt_at"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }

// Parked reports whether the publisher stopped retrying the row.
func (e OutboxEvent) Parked(maxAttempts int) bool {
	return !e.Published() && maxAttempts > 0 && e.AttemptCount >= maxAttempts
}

// Due reports whether the publisher may claim the row at now.
func (e OutboxEvent) Due(now time.Time, maxAttempts int) bool {
	if e.Published() || e.Parked(maxAttempts) {
		return false
	}
	return e.NextAttemptAt == nil || !e.NextAttemptAt.After(now)
}
