package checkout

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/cart"
	"github.com/angelmondragon/rentmarket-backend/internal/dbtest"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/internal/paymentmethods"
	"github.com/angelmondragon/rentmarket-backend/internal/payments"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

type stubCharger struct {
	resp  *gateway.ChargeResponse
	err   error
	calls []gateway.ChargeRequest
}

func (s *stubCharger) Charge(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubCharger) ParseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	charger  *stubCharger
	userID   uuid.UUID
	vendorID uuid.UUID
	product  *models.Product
	bank     *models.PaymentMethod
	cash     *models.PaymentMethod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	charger := &stubCharger{resp: &gateway.ChargeResponse{
		StatusCode:        "201",
		TransactionID:     "trx-1",
		TransactionStatus: "pending",
		VANumbers:         []gateway.VANumber{{Bank: "bca", VANumber: "1234567890"}},
		ExpiryTime:        "2026-01-02T10:00:00Z",
	}}
	paymentsSvc, err := payments.NewService(charger, logg)
	require.NoError(t, err)

	p := ServiceParams{
		TransactionRunner: dbtest.TxRunner{DB: db},
		CartRepo:          cart.NewRepository(db),
		OrdersRepo:        orders.NewRepository(db),
		PaymentMethods:    paymentmethods.NewRepository(db),
		VoucherRepo:       vouchers.NewRepository(db),
		Payments:          paymentsSvc,
		Outbox:            outbox.NewService(outbox.NewRepository(db), logg),
		Logger:            logg,
		Metrics:           metrics.NewPaymentMetrics(prometheus.NewRegistry()),
		ServiceFee:        pricing.MoneyFromInt(2000),
		OrderNumberPrefix: "ORD-",
	}
	svc, err := NewService(p)
	require.NoError(t, err)

	f := &fixture{db: db, svc: svc, charger: charger, userID: uuid.New(), vendorID: uuid.New()}
	f.product = dbtest.MustCreateProduct(t, db, f.vendorID, 100000)
	f.bank = dbtest.MustCreatePaymentMethod(t, db, enums.PaymentMethodTypeBankTransfer, "bca")
	f.cash = dbtest.MustCreatePaymentMethod(t, db, enums.PaymentMethodTypeCash, "")
	return f
}

// threeDayEntry is 100,000 x 2 units x 3 days = 600,000.
func (f *fixture) threeDayEntry(t *testing.T) *models.CartEntry {
	t.Helper()
	return dbtest.MustCreateCartEntry(t, f.db, f.userID, f.product.ID, nil, 2, dbtest.Date(2026, 1, 1), dbtest.Date(2026, 1, 3))
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func capped10Percent(t *testing.T, db *gorm.DB) *models.Voucher {
	t.Helper()
	return dbtest.MustCreateVoucher(t, db, enums.DiscountTypePercentage, 10, func(v *models.Voucher) {
		v.MinPurchase = pricing.MoneyFromInt(100000)
		max := pricing.MoneyFromInt(50000)
		v.MaxDiscount = &max
	})
}

func TestCheckoutCreatesPricedOrder(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	voucher := capped10Percent(t, f.db)

	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.bank.ID,
		VoucherID:       &voucher.ID,
		DeliveryMethod:  "pickup",
		Payer:           payments.Payer{Name: "Rina", Email: "rina@example.com"},
	})
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(pricing.MoneyFromInt(600000)), "subtotal %s", order.TotalAmount)
	assert.True(t, order.DiscountAmount.Equal(pricing.MoneyFromInt(50000)), "discount %s", order.DiscountAmount)
	assert.True(t, order.ServiceFee.Equal(pricing.MoneyFromInt(2000)))
	assert.True(t, order.GrandTotal.Equal(pricing.MoneyFromInt(552000)), "grand %s", order.GrandTotal)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Regexp(t, `^ORD-[A-Z0-9]{10}$`, order.OrderNumber)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, 3, item.RentalDays)
	assert.Equal(t, f.vendorID, item.VendorID)
	assert.Equal(t, f.product.Name, item.ProductName)
	assert.True(t, item.Subtotal.Equal(pricing.MoneyFromInt(600000)))

	require.Len(t, order.StatusLogs, 1)
	assert.Equal(t, "Order created with payment method "+f.bank.Name, order.StatusLogs[0].Description)

	require.NotNil(t, order.PaymentTransactionID)
	assert.Equal(t, "trx-1", *order.PaymentTransactionID)
	require.NotNil(t, order.PaymentStatus)
	assert.Equal(t, "pending", *order.PaymentStatus)
	require.NotNil(t, order.PaymentExpiresAt)
	require.NotNil(t, order.PaymentInstructions)

	require.Len(t, f.charger.calls, 1)
	assert.Equal(t, int64(552000), f.charger.calls[0].TransactionDetails.GrossAmount)
	assert.Equal(t, order.OrderNumber, f.charger.calls[0].TransactionDetails.OrderID)

	assert.Equal(t, int64(0), f.count(t, &models.CartEntry{}))
	var created int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", order.ID, enums.EventOrderCreated).
		Count(&created).Error)
	assert.Equal(t, int64(1), created)

	// usage is only counted on settlement
	var stored models.Voucher
	require.NoError(t, f.db.First(&stored, "id = ?", voucher.ID).Error)
	assert.Equal(t, 0, stored.UsageCount)
}

func TestCheckoutCashSkipsGateway(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)

	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.cash.ID,
		DeliveryMethod:  "delivery",
	})
	require.NoError(t, err)
	assert.Empty(t, f.charger.calls)
	assert.Nil(t, order.PaymentTransactionID)
	assert.Nil(t, order.PaymentExpiresAt)
	assert.True(t, order.GrandTotal.Equal(pricing.MoneyFromInt(602000)))
}

func TestCheckoutGatewayFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	f.charger.err = pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected charge")

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.bank.ID,
		DeliveryMethod:  "pickup",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
	assert.Contains(t, pkgerrors.MessageOf(err), "checkout failed")
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StepPayment, details["step"])

	assert.Equal(t, int64(0), f.count(t, &models.Order{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderItem{}))
	assert.Equal(t, int64(0), f.count(t, &models.OrderStatusLog{}))
	assert.Equal(t, int64(0), f.count(t, &models.OutboxEvent{}))
	assert.Equal(t, int64(1), f.count(t, &models.CartEntry{}))
}

func TestCheckoutRejectsIneligibleVendorVoucher(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	voucher := dbtest.MustCreateVoucher(t, f.db, enums.DiscountTypeFixed, 10000, func(v *models.Voucher) {
		v.VendorID = &f.vendorID
		v.MinPurchase = pricing.MoneyFromInt(1000000)
	})

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.bank.ID,
		VoucherID:       &voucher.ID,
		DeliveryMethod:  "pickup",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, vouchers.ReasonMinPurchaseNotMet, details["reason"])
	assert.Equal(t, StepVoucher, details["step"])
	assert.Empty(t, f.charger.calls)
	assert.Equal(t, int64(1), f.count(t, &models.CartEntry{}))
}

func TestCheckoutMultiVendorCart(t *testing.T) {
	f := newFixture(t)
	otherVendor := uuid.New()
	tripod := dbtest.MustCreateProduct(t, f.db, otherVendor, 40000)

	// 40,000 x 1 x 2 days = 80,000 for otherVendor, 100,000 x 1 x 1 day for f.vendorID
	small := dbtest.MustCreateCartEntry(t, f.db, f.userID, tripod.ID, nil, 1, dbtest.Date(2026, 2, 1), dbtest.Date(2026, 2, 2))
	camera := dbtest.MustCreateCartEntry(t, f.db, f.userID, f.product.ID, nil, 1, dbtest.Date(2026, 2, 1), dbtest.Date(2026, 2, 1))
	kept := dbtest.MustCreateCartEntry(t, f.db, f.userID, f.product.ID, nil, 1, dbtest.Date(2026, 3, 1), dbtest.Date(2026, 3, 4))
	voucher := dbtest.MustCreateVoucher(t, f.db, enums.DiscountTypeFixed, 10000, func(v *models.Voucher) {
		v.VendorID = &otherVendor
		v.MinPurchase = pricing.MoneyFromInt(100000)
	})
	input := CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{small.ID, camera.ID},
		PaymentMethodID: f.bank.ID,
		VoucherID:       &voucher.ID,
		DeliveryMethod:  "pickup",
	}

	_, err := f.svc.Checkout(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.Equal(t, vouchers.ReasonMinPurchaseNotMet, details["reason"])
	assert.Equal(t, int64(3), f.count(t, &models.CartEntry{}))
	assert.Equal(t, int64(0), f.count(t, &models.Order{}))

	input.VoucherID = nil
	order, err := f.svc.Checkout(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(pricing.MoneyFromInt(180000)), "subtotal %s", order.TotalAmount)
	assert.True(t, order.GrandTotal.Equal(pricing.MoneyFromInt(182000)), "grand %s", order.GrandTotal)

	var items []models.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 2)
	sum := pricing.Zero()
	vendors := map[uuid.UUID]bool{}
	for _, item := range items {
		sum = sum.Add(item.Subtotal)
		vendors[item.VendorID] = true
	}
	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", order.ID).Error)
	assert.True(t, sum.Equal(stored.TotalAmount), "items %s vs order %s", sum, stored.TotalAmount)
	assert.Equal(t, map[uuid.UUID]bool{f.vendorID: true, otherVendor: true}, vendors)
	require.NotNil(t, stored.PaymentInstructions)
	assert.Equal(t, "1234567890", stored.PaymentInstructions.VANumber)

	var left []models.CartEntry
	require.NoError(t, f.db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].ID)
}

func TestCheckoutForeignCartEntryNotFound(t *testing.T) {
	f := newFixture(t)
	foreign := dbtest.MustCreateCartEntry(t, f.db, uuid.New(), f.product.ID, nil, 1, dbtest.Date(2026, 1, 1), dbtest.Date(2026, 1, 1))

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{foreign.ID},
		PaymentMethodID: f.bank.ID,
		DeliveryMethod:  "pickup",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Equal(t, int64(1), f.count(t, &models.CartEntry{}))
}

func TestCheckoutInactivePaymentMethod(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	require.NoError(t, f.db.Model(f.bank).Update("is_active", false).Error)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.bank.ID,
		DeliveryMethod:  "pickup",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCheckoutValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutInput{UserID: f.userID, PaymentMethodID: f.bank.ID, DeliveryMethod: "pickup"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Checkout(ctx, CheckoutInput{UserID: f.userID, CartEntryIDs: []uuid.UUID{uuid.New()}, DeliveryMethod: "pickup"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Checkout(ctx, CheckoutInput{UserID: f.userID, CartEntryIDs: []uuid.UUID{uuid.New()}, PaymentMethodID: f.bank.ID, DeliveryMethod: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Checkout(ctx, CheckoutInput{CartEntryIDs: []uuid.UUID{uuid.New()}, PaymentMethodID: f.bank.ID, DeliveryMethod: "pickup"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestCheckoutOrderNumberExhaustion(t *testing.T) {
	f := newFixture(t)
	existing := dbtest.MustCreateOrder(t, f.db, uuid.New(), f.vendorID, f.bank.ID, nil)

	svc := f.svc.(*service)
	svc.assembler.prefix = ""
	svc.assembler.suffix = func() (string, error) { return existing.OrderNumber, nil }

	entry := f.threeDayEntry(t)
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:          f.userID,
		CartEntryIDs:    []uuid.UUID{entry.ID},
		PaymentMethodID: f.bank.ID,
		DeliveryMethod:  "pickup",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, int64(1), f.count(t, &models.CartEntry{}))
}

func TestNextOrderNumberRetriesCollisions(t *testing.T) {
	db := dbtest.Open(t)
	method := dbtest.MustCreatePaymentMethod(t, db, enums.PaymentMethodTypeCash, "")
	existing := dbtest.MustCreateOrder(t, db, uuid.New(), uuid.New(), method.ID, nil)

	candidates := []string{existing.OrderNumber, existing.OrderNumber, "FRESH"}
	calls := 0
	number, err := nextOrderNumber(context.Background(), orders.NewRepository(db), "", func() (string, error) {
		c := candidates[calls]
		calls++
		return c, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "FRESH", number)
	assert.Equal(t, 3, calls)

	_, err = nextOrderNumber(context.Background(), orders.NewRepository(db), "", func() (string, error) {
		return "", errors.New("entropy exhausted")
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestRandomSuffixAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := RandomSuffix()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{10}$`, s)
	}
}

func TestSummaryReportsIneligibleVoucher(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	voucher := dbtest.MustCreateVoucher(t, f.db, enums.DiscountTypeFixed, 10000, func(v *models.Voucher) {
		other := uuid.New()
		v.VendorID = &other
	})

	summary, err := f.svc.Summary(context.Background(), SummaryInput{
		UserID:       f.userID,
		CartEntryIDs: []uuid.UUID{entry.ID},
		VoucherID:    &voucher.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, summary.Ineligibility)
	assert.Equal(t, vouchers.ReasonVendorNotInOrder, summary.Ineligibility.Reason)
	assert.True(t, summary.Totals.Discount.IsZero())
	assert.True(t, summary.Totals.GrandTotal.Equal(pricing.MoneyFromInt(602000)))
	assert.Equal(t, int64(1), f.count(t, &models.CartEntry{}))
}

func TestSummaryAppliesVoucher(t *testing.T) {
	f := newFixture(t)
	entry := f.threeDayEntry(t)
	voucher := capped10Percent(t, f.db)

	summary, err := f.svc.Summary(context.Background(), SummaryInput{
		UserID:       f.userID,
		CartEntryIDs: []uuid.UUID{entry.ID, entry.ID},
		VoucherID:    &voucher.ID,
	})
	require.NoError(t, err)
	assert.Nil(t, summary.Ineligibility)
	require.NotNil(t, summary.Voucher)
	assert.Equal(t, voucher.Code, summary.Voucher.Code)
	assert.True(t, summary.Quote.Subtotal.Equal(pricing.MoneyFromInt(600000)))
	assert.True(t, summary.Totals.GrandTotal.Equal(pricing.MoneyFromInt(552000)))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
