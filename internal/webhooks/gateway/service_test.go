package gatewaywebhook

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentmarket-backend/internal/dbtest"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
)

const serverKey = "SB-Mid-server-test"

type fakeStore struct {
	keys     map[string]bool
	setNXErr error
	lastTTL  time.Duration
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	f.lastTTL = ttl
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "rentmarket:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

type stubApplier struct {
	outcome *orders.GatewayOutcome
	err     error
	calls   []orders.GatewayStatusInput
}

func (s *stubApplier) ApplyGatewayStatus(_ context.Context, input orders.GatewayStatusInput) (*orders.GatewayOutcome, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

func signed(orderNumber, status, code string) gateway.Notification {
	n := gateway.Notification{
		OrderID:           orderNumber,
		StatusCode:        code,
		GrossAmount:       "552000.00",
		TransactionStatus: status,
		TransactionID:     "trx-9",
	}
	n.SignatureKey = gateway.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return n
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
}

func newService(t *testing.T, applier statusApplier, store *fakeStore) *Service {
	t.Helper()
	params := ServiceParams{Orders: applier, ServerKey: serverKey, Logger: discardLogger()}
	if store != nil {
		guard, err := NewReplayGuard(store, 72*time.Hour)
		require.NoError(t, err)
		params.Guard = guard
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestHandleRejectsBadSignature(t *testing.T) {
	applier := &stubApplier{}
	store := newFakeStore()
	svc := newService(t, applier, store)

	n := signed("ORD-ABC", "settlement", "200")
	n.GrossAmount = "1.00"

	_, err := svc.Handle(context.Background(), n)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSignature))
	assert.True(t, errors.Is(err, gateway.ErrSignatureMismatch))
	assert.Empty(t, applier.calls)
	assert.Empty(t, store.keys)
}

func TestHandleShortCircuitsDuplicates(t *testing.T) {
	applier := &stubApplier{outcome: &orders.GatewayOutcome{Recognized: true, Changed: true}}
	store := newFakeStore()
	svc := newService(t, applier, store)
	n := signed("ORD-ABC", "settlement", "200")

	first, err := svc.Handle(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, 72*time.Hour, store.lastTTL)

	second, err := svc.Handle(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Len(t, applier.calls, 1)

	// a different status for the same order is a new notification
	_, err = svc.Handle(context.Background(), signed("ORD-ABC", "expire", "407"))
	require.NoError(t, err)
	assert.Len(t, applier.calls, 2)
}

func TestHandleReleasesGuardOnFailure(t *testing.T) {
	applier := &stubApplier{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	store := newFakeStore()
	svc := newService(t, applier, store)
	n := signed("ORD-MISSING", "settlement", "200")

	_, err := svc.Handle(context.Background(), n)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, store.keys)
	require.Len(t, store.deleted, 1)
	assert.Contains(t, store.deleted[0], "ORD-MISSING|settlement|200")

	_, err = svc.Handle(context.Background(), n)
	assert.Error(t, err)
	assert.Len(t, applier.calls, 2)
}

func TestHandleProceedsWhenGuardUnavailable(t *testing.T) {
	applier := &stubApplier{outcome: &orders.GatewayOutcome{Recognized: true}}
	store := newFakeStore()
	store.setNXErr = errors.New("redis down")
	svc := newService(t, applier, store)

	result, err := svc.Handle(context.Background(), signed("ORD-ABC", "pending", "201"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)
	assert.Len(t, applier.calls, 1)
	assert.Empty(t, store.deleted)
}

func TestHandleReportsUnrecognizedStatus(t *testing.T) {
	applier := &stubApplier{outcome: &orders.GatewayOutcome{Recognized: false}}
	svc := newService(t, applier, nil)

	result, err := svc.Handle(context.Background(), signed("ORD-ABC", "refund", "200"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnrecognized, result.Outcome)
	assert.Equal(t, "refund", applier.calls[0].TransactionStatus)
}

func TestReplayKey(t *testing.T) {
	assert.Equal(t, "ORD-1|settlement|200", ReplayKey(gateway.Notification{OrderID: "ORD-1", TransactionStatus: "settlement", StatusCode: "200"}))
}

func TestNewReplayGuardValidation(t *testing.T) {
	_, err := NewReplayGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewReplayGuard(newFakeStore(), -time.Second)
	assert.Error(t, err)
}

func TestNewServiceRequiresServerKey(t *testing.T) {
	_, err := NewService(ServiceParams{Orders: &stubApplier{}, Logger: discardLogger()})
	assert.Error(t, err)
}

func TestNotificationsDriveStoredOrder(t *testing.T) {
	db := dbtest.Open(t)
	logg := discardLogger()
	ordersSvc, err := orders.NewService(
		orders.NewRepository(db),
		vouchers.NewRepository(db),
		dbtest.TxRunner{DB: db},
		outbox.NewService(outbox.NewRepository(db), logg),
		logg,
	)
	require.NoError(t, err)
	svc := newService(t, ordersSvc, newFakeStore())

	method := dbtest.MustCreatePaymentMethod(t, db, enums.PaymentMethodTypeBankTransfer, "bca")
	settled := dbtest.MustCreateOrder(t, db, uuid.New(), uuid.New(), method.ID, nil)
	expired := dbtest.MustCreateOrder(t, db, uuid.New(), uuid.New(), method.ID, nil)
	ctx := context.Background()

	result, err := svc.Handle(ctx, signed(settled.OrderNumber, "settlement", "200"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	result, err = svc.Handle(ctx, signed(expired.OrderNumber, "expire", "407"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	// a late expire for a paid order is ignored
	result, err = svc.Handle(ctx, signed(settled.OrderNumber, "expire", "407"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)

	var paid, gone models.Order
	require.NoError(t, db.First(&paid, "id = ?", settled.ID).Error)
	require.NoError(t, db.First(&gone, "id = ?", expired.ID).Error)

	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentTransactionID)
	assert.Equal(t, "trx-9", *paid.PaymentTransactionID)
	require.NotNil(t, paid.PaymentStatus)
	assert.Equal(t, "expire", *paid.PaymentStatus)

	assert.Equal(t, enums.OrderStatusExpired, gone.Status)
	require.NotNil(t, gone.ExpiredAt)

	var logs int64
	require.NoError(t, db.Model(&models.OrderStatusLog{}).Where("order_id = ?", settled.ID).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)

	_, err = svc.Handle(ctx, signed("ORD-UNKNOWN", "settlement", "200"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
