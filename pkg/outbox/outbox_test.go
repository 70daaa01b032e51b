package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/dbtest"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	return NewService(repo, logg), repo, db
}

func TestEmitWritesEnvelope(t *testing.T) {
	svc, _, db := newTestService(t)
	orderID := uuid.New()
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: &userID, Role: enums.ActorCustomer},
			Data:          map[string]string{"to": "cancelled"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Equal(t, enums.EventOrderStatusChanged, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, CurrentVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, enums.ActorCustomer, envelope.Actor.Role)
	assert.JSONEq(t, `{"to":"cancelled"}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated})
	assert.Error(t, err)
}

func TestEmitRolledBackWithCaller(t *testing.T) {
	svc, _, db := newTestService(t)
	boom := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFetchUnpublishedSkipsScheduledAndParked(t *testing.T) {
	_, repo, db := newTestService(t)
	now := time.Now().UTC()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Minute)
	published := now.Add(-time.Hour)

	due := seedEvent(t, db, func(e *models.OutboxEvent) {})
	retryDue := seedEvent(t, db, func(e *models.OutboxEvent) { e.AttemptCount = 2; e.NextAttemptAt = &earlier })
	seedEvent(t, db, func(e *models.OutboxEvent) { e.AttemptCount = 1; e.NextAttemptAt = &later })
	seedEvent(t, db, func(e *models.OutboxEvent) { e.AttemptCount = 5 })
	seedEvent(t, db, func(e *models.OutboxEvent) { e.PublishedAt = &published })

	var rows []models.OutboxEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = repo.FetchUnpublishedForPublish(tx, 10, 5, now)
		return err
	})
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{due.ID, retryDue.ID}, ids)

	var all []models.OutboxEvent
	require.NoError(t, db.Find(&all).Error)
	var dueIDs []uuid.UUID
	for _, row := range all {
		if row.Due(now, 5) {
			dueIDs = append(dueIDs, row.ID)
		}
	}
	assert.ElementsMatch(t, ids, dueIDs, "query and Due agree")
}

func TestMarkFailedSchedulesRetry(t *testing.T) {
	_, repo, db := newTestService(t)
	event := seedEvent(t, db, func(e *models.OutboxEvent) {})
	next := time.Now().UTC().Add(30 * time.Second)

	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("broker down"), next))

	var got models.OutboxEvent
	require.NoError(t, db.First(&got, "id = ?", event.ID).Error)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "broker down", *got.LastError)
	require.NotNil(t, got.NextAttemptAt)
	assert.WithinDuration(t, next, *got.NextAttemptAt, time.Second)

	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("bad payload"), 10))
	var parked models.OutboxEvent
	require.NoError(t, db.First(&parked, "id = ?", event.ID).Error)
	assert.True(t, parked.Parked(10))
	assert.False(t, parked.Due(time.Now(), 10))
	assert.Nil(t, parked.NextAttemptAt)
	require.NotNil(t, parked.LastError)
	assert.Equal(t, "bad payload", *parked.LastError)
}

func TestDeletePublishedBefore(t *testing.T) {
	_, repo, db := newTestService(t)
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	seedEvent(t, db, func(e *models.OutboxEvent) { e.PublishedAt = &old })
	keepRecent := seedEvent(t, db, func(e *models.OutboxEvent) { e.PublishedAt = &recent })
	keepPending := seedEvent(t, db, func(e *models.OutboxEvent) {})

	deleted, err := repo.DeletePublishedBefore(context.Background(), now.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{keepRecent.ID, keepPending.ID}, ids)
}

func seedEvent(t *testing.T, db *gorm.DB, mutate func(*models.OutboxEvent)) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
	}
	mutate(&event)
	require.NoError(t, db.Create(&event).Error)
	return event
}

func TestEmitBatchInOneCall(t *testing.T) {
	svc, _, db := newTestService(t)
	orderID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx,
			DomainEvent{EventType: enums.EventOrderStatusChanged, AggregateType: enums.AggregateOrder, AggregateID: orderID, Data: map[string]string{"to": "paid"}},
			DomainEvent{EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: orderID, Data: map[string]string{"order": "ORD-1"}},
		)
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", orderID).Find(&rows).Error)
	require.Len(t, rows, 2)

	seen := map[string]bool{}
	for _, row := range rows {
		env, err := DecodeEnvelope(row.Payload)
		require.NoError(t, err)
		assert.False(t, seen[env.EventID], "event ids must be unique")
		seen[env.EventID] = true
	}

	assert.NoError(t, svc.Emit(context.Background(), db))
}

func TestDecodeEnvelopeRejectsUnreadablePayloads(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e1","data":null}`))
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = DecodeEnvelope([]byte(`{"version":9,"eventId":"e1","data":{}}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)

	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e1","data":{"to":"paid"}}`))
	require.NoError(t, err)
	var data map[string]string
	require.NoError(t, env.DecodeData(&data))
	assert.Equal(t, "paid", data["to"])
}

func TestNewEnvelopeDefaults(t *testing.T) {
	env, err := NewEnvelope(DomainEvent{EventType: enums.EventOrderCreated, Data: struct{}{}})
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, env.Version)
	assert.WithinDuration(t, time.Now().UTC(), env.OccurredAt, time.Minute)

	_, err = NewEnvelope(DomainEvent{EventType: enums.EventOrderCreated, Data: make(chan int)})
	assert.Error(t, err)
}
