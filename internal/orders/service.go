package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox"
	"github.com/angelmondragon/rentmarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/rentmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

// Service drives the order status machine and serves order reads.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetForVendor(ctx context.Context, vendorID, orderID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	ApplyGatewayStatus(ctx context.Context, input GatewayStatusInput) (*GatewayOutcome, error)
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	vouchers vouchers.Repository
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, voucherRepo vouchers.Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if voucherRepo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		vouchers: voucherRepo,
		tx:       tx,
		outbox:   outbox,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) GetForVendor(ctx context.Context, vendorID, orderID uuid.UUID) (*models.Order, error) {
	owns, err := s.repo.HasVendorItems(ctx, orderID, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
	}
	if !owns {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.repo.FindDetail(ctx, orderID)
}

func (s *service) ListForCustomer(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByVendor(ctx, vendorID, params)
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	target, err := ParseTarget(input.Status)
	if err != nil {
		return nil, err
	}

	var detail *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		owns, err := repo.HasVendorItems(ctx, order.ID, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
		}
		if !owns {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
		}

		transition, err := ManualTransition(order.Status, target)
		if err != nil {
			return err
		}
		if !transition.Noop {
			vendorID := input.VendorID
			change := statusChange{
				Transition:  transition,
				Actor:       enums.ActorVendor,
				Description: fmt.Sprintf("Status changed from %s to %s by vendor", transition.From, transition.To),
				Ref:         &outbox.ActorRef{UserID: optionalID(input.UserID), VendorID: &vendorID, Role: enums.ActorVendor},
			}
			if err := s.apply(ctx, tx, order, change, nil); err != nil {
				return err
			}
		}
		detail, err = repo.FindDetail(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	var detail *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusCancelled {
			if order.Status != enums.OrderStatusPending {
				return conflict(order.Status, enums.OrderStatusCancelled)
			}
			userID := input.UserID
			change := statusChange{
				Transition:  Transition{From: order.Status, To: enums.OrderStatusCancelled},
				Actor:       enums.ActorCustomer,
				Description: "Order cancelled by customer",
				Ref:         &outbox.ActorRef{UserID: &userID, Role: enums.ActorCustomer},
			}
			if err := s.apply(ctx, tx, order, change, nil); err != nil {
				return err
			}
		}
		detail, err = repo.FindDetail(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ApplyGatewayStatus reconciles a verified notification. The raw gateway
// status is always stored; the order only moves when it is still pending.
func (s *service) ApplyGatewayStatus(ctx context.Context, input GatewayStatusInput) (*GatewayOutcome, error) {
	if input.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	ctx = s.logg.WithOrderNumber(ctx, input.OrderNumber)

	var outcome *GatewayOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByOrderNumberForUpdate(ctx, input.OrderNumber)
		if err != nil {
			return err
		}

		transition, recognized := GatewayTransition(order.Status, input.TransactionStatus, input.FraudStatus)
		outcome = &GatewayOutcome{
			OrderID:    order.ID,
			Previous:   order.Status,
			Current:    order.Status,
			Recognized: recognized,
		}

		raw := map[string]any{}
		if input.TransactionStatus != "" && (order.PaymentStatus == nil || *order.PaymentStatus != input.TransactionStatus) {
			raw["payment_status"] = input.TransactionStatus
		}
		if input.TransactionID != "" && (order.PaymentTransactionID == nil || *order.PaymentTransactionID == "") {
			raw["payment_transaction_id"] = input.TransactionID
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_status":       order.Status,
			"transaction_status": input.TransactionStatus,
			"fraud_status":       input.FraudStatus,
			"status_code":        input.StatusCode,
		})
		switch {
		case !recognized:
			s.logg.Warn(logCtx, "gateway.status_unrecognized")
		case transition.Noop && transition.To != order.Status && order.Status != enums.OrderStatusPending:
			s.logg.Warn(logCtx, "gateway.transition_ignored")
		}

		if transition.Noop {
			return repo.Update(ctx, order.ID, raw)
		}

		change := statusChange{
			Transition:  transition,
			Actor:       enums.ActorGateway,
			Description: fmt.Sprintf("Payment %s reported by gateway", input.TransactionStatus),
			Ref:         &outbox.ActorRef{Role: enums.ActorGateway},
		}
		if err := s.apply(ctx, tx, order, change, raw); err != nil {
			return err
		}
		outcome.Current = transition.To
		outcome.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Expire moves a still-pending order to expired. It returns false when the
// order already left pending.
func (s *service) Expire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		change := statusChange{
			Transition:  Transition{From: order.Status, To: enums.OrderStatusExpired},
			Actor:       enums.ActorSystem,
			Description: "Payment window expired",
			Ref:         &outbox.ActorRef{Role: enums.ActorSystem},
		}
		if err := s.apply(ctx, tx, order, change, nil); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

type statusChange struct {
	Transition
	Actor       enums.StatusLogActor
	Description string
	Ref         *outbox.ActorRef
}

// apply writes one effective transition on a locked order row: column
// updates, one status log, voucher redemption on entering paid and the
// matching outbox events.
func (s *service) apply(ctx context.Context, tx *gorm.DB, order *models.Order, change statusChange, extra map[string]any) error {
	repo := s.repo.WithTx(tx)
	now := s.now()

	updates := change.Stamps(order, now)
	for k, v := range extra {
		updates[k] = v
	}

	entersPaid := change.EntersPaid()
	if entersPaid && order.VoucherID != nil && order.VoucherRedeemedAt == nil {
		if err := s.vouchers.WithTx(tx).IncrementUsage(ctx, *order.VoucherID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeem voucher")
		}
		updates["voucher_redeemed_at"] = now
	}

	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if err := repo.AppendStatusLog(ctx, &models.OrderStatusLog{
		OrderID:     order.ID,
		Status:      change.To,
		Description: change.Description,
		Actor:       change.Actor,
		CreatedAt:   now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append status log")
	}

	vendorIDs, err := repo.VendorIDs(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order vendors")
	}

	events := []outbox.DomainEvent{{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         change.Ref,
		OccurredAt:    now,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        change.From,
			To:          change.To,
			Actor:       change.Actor,
			Description: change.Description,
			VendorIDs:   vendorIDs,
			ChangedAt:   now,
		},
	}}
	if entersPaid {
		paidAt := now
		if order.PaidAt != nil {
			paidAt = *order.PaidAt
		}
		txID := order.PaymentTransactionID
		if id, ok := updates["payment_transaction_id"].(string); ok {
			txID = &id
		}
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         change.Ref,
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				OrderID:              order.ID,
				OrderNumber:          order.OrderNumber,
				UserID:               order.UserID,
				VendorIDs:            vendorIDs,
				GrandTotal:           order.GrandTotal,
				PaymentTransactionID: txID,
				VoucherID:            order.VoucherID,
				PaidAt:               paidAt,
			},
		})
	}
	if change.To == enums.OrderStatusExpired {
		events = append(events, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         change.Ref,
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Actor:       change.Actor,
				ExpiredAt:   now,
			},
		})
	}
	if err := s.outbox.Emit(ctx, tx, events...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order events")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"from":     change.From,
		"to":       change.To,
		"actor":    change.Actor,
	}), "order.status_changed")
	return nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
