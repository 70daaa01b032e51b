// Package gatewaywebhook verifies and applies asynchronous payment gateway
// notifications.
package gatewaywebhook

import (
	"context"

	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
)

// Notification outcomes recorded in metrics.
const (
	OutcomeApplied          = "applied"
	OutcomeNoop             = "noop"
	OutcomeDuplicate        = "duplicate"
	OutcomeUnrecognized     = "unrecognized"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeFailed           = "failed"
)

type statusApplier interface {
	ApplyGatewayStatus(ctx context.Context, input orders.GatewayStatusInput) (*orders.GatewayOutcome, error)
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, n gateway.Notification) (bool, error)
	Release(ctx context.Context, n gateway.Notification) error
}

type ServiceParams struct {
	Orders    statusApplier
	ServerKey string
	Guard     replayGuard
	Logger    *logger.Logger
	Metrics   *metrics.PaymentMetrics
}

type Service struct {
	orders    statusApplier
	serverKey string
	guard     replayGuard
	logg      *logger.Logger
	metrics   *metrics.PaymentMetrics
}

// Result summarises how a notification was handled.
type Result struct {
	Outcome string
	Order   *orders.GatewayOutcome
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.ServerKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway server key required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:    params.Orders,
		serverKey: params.ServerKey,
		guard:     params.Guard,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Handle verifies the signature before anything else is read or written.
// Guard errors are logged and processing continues; the order update is a
// no-op on replays anyway.
func (s *Service) Handle(ctx context.Context, n gateway.Notification) (*Result, error) {
	if err := gateway.VerifySignature(n, s.serverKey); err != nil {
		s.metrics.IncNotification(OutcomeInvalidSignature)
		s.logg.Warn(s.logg.WithOrderNumber(ctx, n.OrderID), "gateway.signature_mismatch")
		return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid notification signature")
	}
	ctx = s.logg.WithFields(s.logg.WithOrderNumber(ctx, n.OrderID), map[string]any{
		"transaction_status": n.TransactionStatus,
		"status_code":        n.StatusCode,
	})

	marked := false
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, n)
		switch {
		case err != nil:
			s.logg.Error(ctx, "gateway.replay_guard_unavailable", err)
		case seen:
			s.metrics.IncNotification(OutcomeDuplicate)
			s.logg.Info(ctx, "gateway.notification_duplicate")
			return &Result{Outcome: OutcomeDuplicate}, nil
		default:
			marked = true
		}
	}

	outcome, err := s.orders.ApplyGatewayStatus(ctx, orders.GatewayStatusInput{
		OrderNumber:       n.OrderID,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		StatusCode:        n.StatusCode,
	})
	if err != nil {
		if marked {
			if relErr := s.guard.Release(ctx, n); relErr != nil {
				s.logg.Error(ctx, "gateway.replay_guard_release_failed", relErr)
			}
		}
		s.metrics.IncNotification(OutcomeFailed)
		return nil, err
	}

	result := &Result{Order: outcome}
	switch {
	case !outcome.Recognized:
		result.Outcome = OutcomeUnrecognized
	case outcome.Changed:
		result.Outcome = OutcomeApplied
	default:
		result.Outcome = OutcomeNoop
	}
	s.metrics.IncNotification(result.Outcome)
	s.logg.Info(s.logg.WithField(ctx, "outcome", result.Outcome), "gateway.notification_handled")
	return result, nil
}
