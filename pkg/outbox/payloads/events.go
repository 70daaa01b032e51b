package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// OrderCreatedEvent is emitted when checkout commits a new order.
type OrderCreatedEvent struct {
	OrderID           uuid.UUID               `json:"orderId"`
	OrderNumber       string                  `json:"orderNumber"`
	UserID            uuid.UUID               `json:"userId"`
	VendorIDs         []uuid.UUID             `json:"vendorIds"`
	PaymentMethodType enums.PaymentMethodType `json:"paymentMethodType"`
	VoucherID         *uuid.UUID              `json:"voucherId,omitempty"`
	Subtotal          pricing.Money           `json:"subtotal"`
	DiscountAmount    pricing.Money           `json:"discountAmount"`
	ServiceFee        pricing.Money           `json:"serviceFee"`
	GrandTotal        pricing.Money           `json:"grandTotal"`
	PaymentExpiresAt  *time.Time              `json:"paymentExpiresAt,omitempty"`
}

// OrderStatusChangedEvent is emitted for every effective status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID            `json:"orderId"`
	OrderNumber string               `json:"orderNumber"`
	From        enums.OrderStatus    `json:"from"`
	To          enums.OrderStatus    `json:"to"`
	Actor       enums.StatusLogActor `json:"actor"`
	Description string               `json:"description"`
	VendorIDs   []uuid.UUID          `json:"vendorIds"`
	ChangedAt   time.Time            `json:"changedAt"`
}

// OrderPaidEvent is emitted when an order enters paid.
type OrderPaidEvent struct {
	OrderID              uuid.UUID     `json:"orderId"`
	OrderNumber          string        `json:"orderNumber"`
	UserID               uuid.UUID     `json:"userId"`
	VendorIDs            []uuid.UUID   `json:"vendorIds"`
	GrandTotal           pricing.Money `json:"grandTotal"`
	PaymentTransactionID *string       `json:"paymentTransactionId,omitempty"`
	VoucherID            *uuid.UUID    `json:"voucherId,omitempty"`
	PaidAt               time.Time     `json:"paidAt"`
}

// OrderExpiredEvent is emitted when an unpaid order expires.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID            `json:"orderId"`
	OrderNumber string               `json:"orderNumber"`
	UserID      uuid.UUID            `json:"userId"`
	Actor       enums.StatusLogActor `json:"actor"`
	ExpiredAt   time.Time            `json:"expiredAt"`
}
