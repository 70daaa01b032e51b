package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
)

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// UpdateStatusInput is a vendor request to move an order.
type UpdateStatusInput struct {
	OrderID  uuid.UUID
	VendorID uuid.UUID
	UserID   uuid.UUID
	Status   string
}

// CancelInput is a customer request to cancel an unpaid order.
type CancelInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
}

// GatewayStatusInput is a verified gateway notification.
type GatewayStatusInput struct {
	OrderNumber       string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
}

// GatewayOutcome reports what a notification did to the order.
type GatewayOutcome struct {
	OrderID    uuid.UUID
	Previous   enums.OrderStatus
	Current    enums.OrderStatus
	Changed    bool
	Recognized bool
}
