package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
)

const (
	defaultPendingTTL      = 24 * time.Hour
	defaultExpiryBatchSize = 100
)

type expirableReader interface {
	FindExpirable(ctx context.Context, now, unpaidCutoff time.Time, limit int) ([]models.Order, error)
}

type orderSettler interface {
	ApplyGatewayStatus(ctx context.Context, input orders.GatewayStatusInput) (*orders.GatewayOutcome, error)
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type statusChecker interface {
	Status(ctx context.Context, orderID string) (*gateway.ChargeResponse, error)
}

// OrderExpiryJobParams configure the unpaid order sweeper.
type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Orders     expirableReader
	Settler    orderSettler
	Gateway    statusChecker
	PendingTTL time.Duration
	BatchSize  int
}

// NewOrderExpiryJob builds the job that expires pending gateway orders whose
// payment window closed. Each candidate is re-checked with the gateway first
// so a settled payment whose notification was lost is recorded as paid.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:       params.Logger,
		orders:     params.Orders,
		settler:    params.Settler,
		gateway:    params.Gateway,
		pendingTTL: ttl,
		batchSize:  batch,
		now:        time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg       *logger.Logger
	orders     expirableReader
	settler    orderSettler
	gateway    statusChecker
	pendingTTL time.Duration
	batchSize  int
	now        func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

type expiryResult int

const (
	resultSkipped expiryResult = iota
	resultExpired
	resultReconciled
)

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	candidates, err := j.orders.FindExpirable(ctx, now, now.Add(-j.pendingTTL), j.batchSize)
	if err != nil {
		return fmt.Errorf("query expirable orders: %w", err)
	}

	var errs error
	counts := map[expiryResult]int{}
	for _, order := range candidates {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result, err := j.expireOne(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderNumber, err))
			continue
		}
		counts[result]++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"expired":    counts[resultExpired],
		"reconciled": counts[resultReconciled],
		"skipped":    counts[resultSkipped],
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return errs
}

func (j *orderExpiryJob) expireOne(ctx context.Context, order models.Order) (expiryResult, error) {
	ctx = j.logg.WithOrderNumber(ctx, order.OrderNumber)
	if j.gateway != nil {
		resp, err := j.gateway.Status(ctx, order.OrderNumber)
		switch {
		case err == nil:
			transition, known := orders.GatewayTransition(order.Status, resp.TransactionStatus, resp.FraudStatus)
			if known && !transition.Noop {
				outcome, err := j.settler.ApplyGatewayStatus(ctx, orders.GatewayStatusInput{
					OrderNumber:       order.OrderNumber,
					TransactionID:     resp.TransactionID,
					TransactionStatus: resp.TransactionStatus,
					FraudStatus:       resp.FraudStatus,
					StatusCode:        resp.StatusCode,
				})
				if err != nil {
					return resultSkipped, err
				}
				if outcome.Changed {
					j.logg.Info(j.logg.WithField(ctx, "status", outcome.Current), "order reconciled from gateway")
					return resultReconciled, nil
				}
				return resultSkipped, nil
			}
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			// the gateway never saw this order; nothing can settle it
		default:
			return resultSkipped, err
		}
	}

	expired, err := j.settler.Expire(ctx, order.ID)
	if err != nil {
		return resultSkipped, err
	}
	if !expired {
		return resultSkipped, nil
	}
	return resultExpired, nil
}
