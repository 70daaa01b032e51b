package enums

import "slices"

// OrderStatus tracks the lifecycle of a rental order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusExpired    OrderStatus = "expired"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusExpired,
}

// happy path order; side exits are not ranked.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusPaid:       1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusCompleted:  4,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool { return isOneOf(s, validOrderStatuses) }

// IsTerminal reports whether no further transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

// Rank returns the position on the happy path and false for side exits.
func (s OrderStatus) Rank() (int, bool) {
	rank, ok := orderStatusRank[s]
	return rank, ok
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseOneOf("order status", value, validOrderStatuses)
}

// OrderStatuses returns the allow-list in lifecycle order.
func OrderStatuses() []OrderStatus {
	return slices.Clone(validOrderStatuses)
}
