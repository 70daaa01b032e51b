package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/cart"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/internal/paymentmethods"
	"github.com/angelmondragon/rentmarket-backend/internal/payments"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// Checkout steps reported in failure details.
const (
	StepLoadCart      = "load_cart"
	StepPricing       = "pricing"
	StepPaymentMethod = "payment_method"
	StepVoucher       = "voucher"
	StepAssemble      = "assemble_order"
	StepPayment       = "payment"
	StepPersist       = "persist_payment"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type paymentInitiator interface {
	Initiate(ctx context.Context, order models.Order, method models.PaymentMethod, payer payments.Payer) (*payments.Result, error)
}

// Service turns cart selections into paid-for or payable orders.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
	Summary(ctx context.Context, input SummaryInput) (*SummaryResult, error)
}

// CheckoutInput is a customer's checkout request.
type CheckoutInput struct {
	UserID          uuid.UUID
	CartEntryIDs    []uuid.UUID
	PaymentMethodID uuid.UUID
	VoucherID       *uuid.UUID
	DeliveryMethod  string
	Notes           *string
	Payer           payments.Payer
}

// SummaryInput previews totals for a cart selection.
type SummaryInput struct {
	UserID       uuid.UUID
	CartEntryIDs []uuid.UUID
	VoucherID    *uuid.UUID
}

// SummaryResult is the priced preview. A voucher that does not apply is
// reported through Ineligibility rather than as an error.
type SummaryResult struct {
	Quote         pricing.Quote
	Totals        pricing.Totals
	Voucher       *vouchers.AppliedVoucher
	Ineligibility *vouchers.Ineligibility
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	TransactionRunner txRunner
	CartRepo          cart.Repository
	OrdersRepo        orders.Repository
	PaymentMethods    paymentmethods.Repository
	VoucherRepo       vouchers.Repository
	Payments          paymentInitiator
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
	ServiceFee        pricing.Money
	OrderNumberPrefix string
}

type service struct {
	tx             txRunner
	cart           cart.Repository
	orders         orders.Repository
	paymentMethods paymentmethods.Repository
	vouchers       vouchers.Repository
	payments       paymentInitiator
	outbox         outboxPublisher
	logg           *logger.Logger
	metrics        *metrics.PaymentMetrics
	assembler      assembler
	now            func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.TransactionRunner == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.CartRepo == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.OrdersRepo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.PaymentMethods == nil:
		return nil, fmt.Errorf("payment method repository required")
	case params.VoucherRepo == nil:
		return nil, fmt.Errorf("voucher repository required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment initiator required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if params.ServiceFee.IsNegative() {
		return nil, fmt.Errorf("service fee must not be negative")
	}
	now := func() time.Time { return time.Now().UTC() }
	return &service{
		tx:             params.TransactionRunner,
		cart:           params.CartRepo,
		orders:         params.OrdersRepo,
		paymentMethods: params.PaymentMethods,
		vouchers:       params.VoucherRepo,
		payments:       params.Payments,
		outbox:         params.Outbox,
		logg:           params.Logger,
		metrics:        params.Metrics,
		assembler: assembler{
			serviceFee: params.ServiceFee,
			prefix:     params.OrderNumberPrefix,
			suffix:     RandomSuffix,
			now:        now,
		},
		now: now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	ids, err := validateSelection(input.UserID, input.CartEntryIDs)
	if err != nil {
		return nil, err
	}
	if input.PaymentMethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id is required")
	}
	input.DeliveryMethod = strings.TrimSpace(input.DeliveryMethod)
	if input.DeliveryMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_method is required")
	}

	ctx = s.logg.WithUserID(ctx, input.UserID.String())
	var (
		detail     *models.Order
		methodType enums.PaymentMethodType
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cart.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		entries, err := cartRepo.FindForCheckout(ctx, input.UserID, ids)
		if err != nil {
			return failed(StepLoadCart, err)
		}
		if err := requireAll(ids, entries); err != nil {
			return failed(StepLoadCart, err)
		}

		quote, err := quoteEntries(entries)
		if err != nil {
			return failed(StepPricing, err)
		}

		method, err := s.paymentMethods.WithTx(tx).FindActive(ctx, input.PaymentMethodID)
		if err != nil {
			return failed(StepPaymentMethod, err)
		}
		methodType = method.Type

		discount := pricing.Zero()
		if input.VoucherID != nil {
			voucher, err := s.vouchers.WithTx(tx).FindByIDForUpdate(ctx, *input.VoucherID)
			if err != nil {
				return failed(StepVoucher, err)
			}
			eval := vouchers.Evaluate(*voucher, quote, s.now())
			if !eval.Eligible {
				return failed(StepVoucher, pkgerrors.New(pkgerrors.CodeValidation, eval.Ineligibility.Message).
					WithDetails(map[string]any{"reason": eval.Ineligibility.Reason}))
			}
			discount = eval.Discount
		}

		order, err := s.assembler.assemble(ctx, ordersRepo, cartRepo, assembleInput{
			UserID:         input.UserID,
			Entries:        entries,
			Quote:          quote,
			Method:         *method,
			VoucherID:      input.VoucherID,
			Discount:       discount,
			DeliveryMethod: input.DeliveryMethod,
			Notes:          input.Notes,
		})
		if err != nil {
			return failed(StepAssemble, err)
		}

		result, err := s.payments.Initiate(ctx, *order, *method, input.Payer)
		if err != nil {
			return failed(StepPayment, err)
		}
		result.Apply(order)
		if err := ordersRepo.SavePayment(ctx, order); err != nil {
			return failed(StepPersist, err)
		}

		if err := s.outbox.Emit(ctx, tx, createdEvent(order, quote, method.Type, input.UserID)); err != nil {
			return failed(StepPersist, err)
		}

		detail, err = ordersRepo.FindDetail(ctx, order.ID)
		if err != nil {
			return failed(StepPersist, err)
		}
		return nil
	})
	label := string(methodType)
	if label == "" {
		label = "unknown"
	}
	if err != nil {
		s.metrics.IncCheckout(label, string(pkgerrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncCheckout(label, "ok")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     detail.ID.String(),
		"order_number": detail.OrderNumber,
		"grand_total":  detail.GrandTotal.String(),
		"payment_type": methodType,
	}), "checkout.order_created")
	return detail, nil
}

func (s *service) Summary(ctx context.Context, input SummaryInput) (*SummaryResult, error) {
	ids, err := validateSelection(input.UserID, input.CartEntryIDs)
	if err != nil {
		return nil, err
	}
	entries, err := s.cart.FindForCheckout(ctx, input.UserID, ids)
	if err != nil {
		return nil, err
	}
	if err := requireAll(ids, entries); err != nil {
		return nil, err
	}
	quote, err := quoteEntries(entries)
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{Quote: quote}
	discount := pricing.Zero()
	if input.VoucherID != nil {
		voucher, err := s.vouchers.FindByID(ctx, *input.VoucherID)
		if err != nil {
			return nil, err
		}
		eval := vouchers.Evaluate(*voucher, quote, s.now())
		result.Voucher = eval.Voucher
		result.Ineligibility = eval.Ineligibility
		if eval.Eligible {
			discount = eval.Discount
		}
	}
	result.Totals = pricing.ComputeTotals(quote.Subtotal, discount, s.assembler.serviceFee)
	return result, nil
}

func validateSelection(userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_entry_ids must not be empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_entry_ids contains an empty id")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique, nil
}

func requireAll(ids []uuid.UUID, entries []models.CartEntry) error {
	if len(entries) == len(ids) {
		return nil
	}
	found := make(map[uuid.UUID]struct{}, len(entries))
	for _, entry := range entries {
		found[entry.ID] = struct{}{}
	}
	missing := []uuid.UUID{}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found").
		WithDetails(map[string]any{"missing_cart_entry_ids": missing})
}

// quoteEntries prices entries from current catalog prices. Client supplied
// totals are never trusted.
func quoteEntries(entries []models.CartEntry) (pricing.Quote, error) {
	lines := make([]pricing.Line, 0, len(entries))
	for _, entry := range entries {
		if entry.Product == nil || !entry.Product.IsActive {
			return pricing.Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
				WithDetails(map[string]any{"cart_entry_id": entry.ID})
		}
		line, err := cart.LineFor(entry)
		if err != nil {
			return pricing.Quote{}, err
		}
		lines = append(lines, line)
	}
	return pricing.BuildQuote(lines), nil
}

// failed wraps a step error as a checkout failure, keeping the inner code.
func failed(step string, err error) error {
	details := map[string]any{}
	if typed := pkgerrors.As(err); typed != nil {
		if inner, ok := typed.Details().(map[string]any); ok {
			for k, v := range inner {
				details[k] = v
			}
		}
	}
	details["step"] = step
	return pkgerrors.Wrap(pkgerrors.CodeOf(err), err, "checkout failed: "+pkgerrors.MessageOf(err)).
		WithDetails(details)
}

func createdEvent(order *models.Order, quote pricing.Quote, methodType enums.PaymentMethodType, userID uuid.UUID) outbox.DomainEvent {
	vendorIDs := make([]uuid.UUID, 0, len(quote.VendorSubtotals))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range quote.Lines {
		if _, ok := seen[line.VendorID]; ok {
			continue
		}
		seen[line.VendorID] = struct{}{}
		vendorIDs = append(vendorIDs, line.VendorID)
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: &userID, Role: enums.ActorCustomer},
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:           order.ID,
			OrderNumber:       order.OrderNumber,
			UserID:            order.UserID,
			VendorIDs:         vendorIDs,
			PaymentMethodType: methodType,
			VoucherID:         order.VoucherID,
			Subtotal:          order.TotalAmount,
			DiscountAmount:    order.DiscountAmount,
			ServiceFee:        order.ServiceFee,
			GrandTotal:        order.GrandTotal,
			PaymentExpiresAt:  order.PaymentExpiresAt,
		},
	}
}
