package orders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

// Transition is a checked move between two order statuses. Noop transitions
// must not write anything.
type Transition struct {
	From enums.OrderStatus
	To   enums.OrderStatus
	Noop bool
}

// ParseTarget validates a requested status before any row is touched.
func ParseTarget(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", raw)).
			WithDetails(map[string]any{"allowed": enums.OrderStatuses()})
	}
	return status, nil
}

// ManualTransition checks a vendor or customer driven move. Happy-path moves
// may skip steps but never go backwards; cancelled and expired are reachable
// from any non-terminal status.
func ManualTransition(from, to enums.OrderStatus) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", to))
	}
	if from == to {
		return Transition{From: from, To: to, Noop: true}, nil
	}
	if from.IsTerminal() {
		return Transition{}, conflict(from, to)
	}
	if to == enums.OrderStatusCancelled || to == enums.OrderStatusExpired {
		return Transition{From: from, To: to}, nil
	}
	fromRank, ok := from.Rank()
	if !ok {
		return Transition{}, conflict(from, to)
	}
	toRank, _ := to.Rank()
	if toRank <= fromRank {
		return Transition{}, conflict(from, to)
	}
	return Transition{From: from, To: to}, nil
}

// GatewayTransition maps a gateway notification onto the order. The second
// return is false when the gateway status is not part of the known vocabulary.
// Gateway driven moves only apply to pending orders.
func GatewayTransition(from enums.OrderStatus, transactionStatus, fraudStatus string) (Transition, bool) {
	target, known := enums.GatewayTransactionStatus(transactionStatus).OrderStatus(fraudStatus)
	if !known {
		return Transition{From: from, To: from, Noop: true}, false
	}
	if from != enums.OrderStatusPending || target == enums.OrderStatusPending {
		return Transition{From: from, To: target, Noop: true}, true
	}
	return Transition{From: from, To: target}, true
}

// Stamps returns the columns written when entering t.To. paid_at is set once,
// including when a move skips over paid.
func (t Transition) Stamps(order *models.Order, now time.Time) map[string]any {
	updates := map[string]any{"status": t.To}
	if t.EntersPaid() && order.PaidAt == nil {
		updates["paid_at"] = now
	}
	switch t.To {
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	case enums.OrderStatusExpired:
		updates["expired_at"] = now
	}
	return updates
}

// EntersPaid reports whether the move passes through paid, which happens when
// a vendor skips straight to a later happy-path status.
func (t Transition) EntersPaid() bool {
	if t.Noop {
		return false
	}
	toRank, ok := t.To.Rank()
	if !ok {
		return false
	}
	paidRank, _ := enums.OrderStatusPaid.Rank()
	fromRank, _ := t.From.Rank()
	return fromRank < paidRank && toRank >= paidRank
}

func conflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}
