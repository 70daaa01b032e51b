package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/types"
)

// CashPaymentStatus is stored for orders settled on delivery.
const CashPaymentStatus = "pending"

// Charger is the gateway surface used to start a payment.
type Charger interface {
	Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResponse, error)
	ParseExpiry(raw string) (*time.Time, error)
}

// Result is the payment metadata persisted on the order.
type Result struct {
	TransactionID *string
	PaymentStatus string
	Instruction   *types.PaymentInstruction
	ExpiresAt     *time.Time
}

// Apply copies the result onto order.
func (r Result) Apply(order *models.Order) {
	status := r.PaymentStatus
	order.PaymentStatus = &status
	order.PaymentTransactionID = r.TransactionID
	order.PaymentInstructions = r.Instruction
	order.PaymentExpiresAt = r.ExpiresAt
}

// Service initiates payments for freshly assembled orders.
type Service struct {
	gateway Charger
	logg    *logger.Logger
}

func NewService(charger Charger, logg *logger.Logger) (*Service, error) {
	if charger == nil {
		return nil, fmt.Errorf("gateway charger required")
	}
	return &Service{gateway: charger, logg: logg}, nil
}

// Initiate returns the static cash result or charges the gateway. An error
// must abort the surrounding checkout transaction.
func (s *Service) Initiate(ctx context.Context, order models.Order, method models.PaymentMethod, payer Payer) (*Result, error) {
	if method.Type == enums.PaymentMethodTypeCash {
		return &Result{
			PaymentStatus: CashPaymentStatus,
			Instruction:   types.CashInstruction(),
		}, nil
	}

	req, err := BuildChargeRequest(order, method, payer)
	if err != nil {
		return nil, err
	}
	resp, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		PaymentStatus: resp.TransactionStatus,
		Instruction:   NormalizeInstruction(*resp),
	}
	if resp.TransactionID != "" {
		id := resp.TransactionID
		result.TransactionID = &id
	}
	expiresAt, err := s.gateway.ParseExpiry(resp.ExpiryTime)
	if err != nil {
		// the charge already exists at the gateway; keep the order without an expiry
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "gateway.expiry_unparseable")
		}
	} else {
		result.ExpiresAt = expiresAt
	}
	return result, nil
}
