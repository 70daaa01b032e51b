package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
	"github.com/angelmondragon/rentmarket-backend/pkg/types"
)

// Order is a customer's rental order. TotalAmount holds the subtotal before
// discount and fees.
type Order struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentMethodID      uuid.UUID                 `gorm:"column:payment_method_id;type:uuid;not null"`
	VoucherID            *uuid.UUID                `gorm:"column:voucher_id;type:uuid"`
	OrderNumber          string                    `gorm:"column:order_number;not null;uniqueIndex"`
	TotalAmount          pricing.Money             `gorm:"column:total_amount;type:numeric(14,2);not null"`
	ServiceFee           pricing.Money             `gorm:"column:service_fee;type:numeric(14,2);not null"`
	DiscountAmount       pricing.Money             `gorm:"column:discount_amount;type:numeric(14,2);not null;default:0"`
	GrandTotal           pricing.Money             `gorm:"column:grand_total;type:numeric(14,2);not null"`
	Status               enums.OrderStatus         `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Notes                *string                   `gorm:"column:notes"`
	DeliveryMethod       string                    `gorm:"column:delivery_method;not null"`
	PaymentTransactionID *string                   `gorm:"column:payment_transaction_id"`
	PaymentStatus        *string                   `gorm:"column:payment_status"`
	PaymentInstructions  *types.PaymentInstruction `gorm:"column:payment_instructions;type:jsonb;serializer:json"`
	PaymentExpiresAt     *time.Time                `gorm:"column:payment_expires_at"`
	PaidAt               *time.Time                `gorm:"column:paid_at"`
	CompletedAt          *time.Time                `gorm:"column:completed_at"`
	CancelledAt          *time.Time                `gorm:"column:cancelled_at"`
	ExpiredAt            *time.Time                `gorm:"column:expired_at"`
	VoucherRedeemedAt    *time.Time                `gorm:"column:voucher_redeemed_at"`
	Items                []OrderItem               `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusLogs           []OrderStatusLog          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentMethod        *PaymentMethod            `gorm:"foreignKey:PaymentMethodID"`
	Voucher              *Voucher                  `gorm:"foreignKey:VoucherID"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots the priced line at checkout time.
type OrderItem struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID     `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID     `gorm:"column:product_id;type:uuid;not null"`
	VariantID   *uuid.UUID    `gorm:"column:variant_id;type:uuid"`
	VendorID    uuid.UUID     `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductName string        `gorm:"column:product_name;not null"`
	VariantName *string       `gorm:"column:variant_name"`
	UnitPrice   pricing.Money `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Quantity    int           `gorm:"column:quantity;not null"`
	StartDate   time.Time     `gorm:"column:start_date;type:date;not null"`
	EndDate     time.Time     `gorm:"column:end_date;type:date;not null"`
	RentalDays  int           `gorm:"column:rental_days;not null"`
	Subtotal    pricing.Money `gorm:"column:subtotal;type:numeric(14,2);not null"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusLog is the append-only audit trail of order transitions.
type OrderStatusLog struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Status      enums.OrderStatus    `gorm:"column:status;type:order_status;not null"`
	Description string               `gorm:"column:description;not null"`
	Actor       enums.StatusLogActor `gorm:"column:actor;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
