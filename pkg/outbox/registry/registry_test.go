package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

func envelopeFor(t *testing.T, data any) json.RawMessage {
	t.Helper()
	env, err := outbox.NewEnvelope(outbox.DomainEvent{EventType: enums.EventOrderPaid, Data: data})
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func orderEvent(eventType enums.OutboxEventType, payload json.RawMessage) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg, err := NewEventRegistry(" order-events ")
	require.NoError(t, err)
	orderID := uuid.New()

	resolved, err := reg.Resolve(orderEvent(enums.EventOrderPaid, envelopeFor(t, payloads.OrderPaidEvent{
		OrderID:     orderID,
		OrderNumber: "ORD-ABCDE12345",
		GrandTotal:  pricing.MoneyFromInt(552000),
		PaidAt:      time.Now().UTC(),
	})))
	require.NoError(t, err)

	assert.Equal(t, "order-events", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	paid, ok := resolved.Payload.(*payloads.OrderPaidEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, paid.OrderID)
	assert.True(t, paid.GrandTotal.Equal(pricing.MoneyFromInt(552000)))
}

func TestEveryOrderEventHasARoute(t *testing.T) {
	reg, err := NewEventRegistry("order-events")
	require.NoError(t, err)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventOrderPaid,
		enums.EventOrderExpired,
	} {
		_, err := reg.Resolve(orderEvent(eventType, envelopeFor(t, map[string]string{"orderNumber": "ORD-1"})))
		assert.NoError(t, err, eventType)
	}
	assert.Equal(t, []string{"order-events"}, reg.Topics())
}

func TestResolveRejectsMalformedRows(t *testing.T) {
	reg, err := NewEventRegistry("order-events")
	require.NoError(t, err)
	valid := envelopeFor(t, map[string]string{})

	unknown := orderEvent("order_refunded", valid)
	wrongAggregate := orderEvent(enums.EventOrderCreated, valid)
	wrongAggregate.AggregateType = "cart"
	noAggregate := orderEvent(enums.EventOrderCreated, valid)
	noAggregate.AggregateID = uuid.Nil
	nullData := orderEvent(enums.EventOrderExpired, json.RawMessage(`{"version":1,"eventId":"e","data":null}`))
	badShape := orderEvent(enums.EventOrderPaid, json.RawMessage(`{"version":1,"eventId":"e","data":{"grandTotal":"abc"}}`))

	for name, event := range map[string]models.OutboxEvent{
		"unknown type":    unknown,
		"wrong aggregate": wrongAggregate,
		"no aggregate id": noAggregate,
		"null data":       nullData,
		"bad shape":       badShape,
	} {
		_, err := reg.Resolve(event)
		assert.True(t, IsNonRetryable(err), "%s: got %v", name, err)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry("  ")
	assert.Error(t, err)
}
