package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
	"github.com/angelmondragon/rentmarket-backend/pkg/types"
)

// OrderResponse is the order detail returned by checkout and order reads.
type OrderResponse struct {
	ID                   uuid.UUID                 `json:"id"`
	OrderNumber          string                    `json:"order_number"`
	UserID               uuid.UUID                 `json:"user_id"`
	Status               string                    `json:"status"`
	TotalAmount          pricing.Money             `json:"total_amount"`
	DiscountAmount       pricing.Money             `json:"discount_amount"`
	ServiceFee           pricing.Money             `json:"service_fee"`
	GrandTotal           pricing.Money             `json:"grand_total"`
	DeliveryMethod       string                    `json:"delivery_method"`
	Notes                *string                   `json:"notes,omitempty"`
	PaymentTransactionID *string                   `json:"payment_transaction_id,omitempty"`
	PaymentStatus        *string                   `json:"payment_status,omitempty"`
	PaymentInstructions  *types.PaymentInstruction `json:"payment_instructions,omitempty"`
	PaymentExpiresAt     *time.Time                `json:"payment_expires_at,omitempty"`
	PaidAt               *time.Time                `json:"paid_at,omitempty"`
	CompletedAt          *time.Time                `json:"completed_at,omitempty"`
	CancelledAt          *time.Time                `json:"cancelled_at,omitempty"`
	ExpiredAt            *time.Time                `json:"expired_at,omitempty"`
	PaymentMethod        *PaymentMethodResponse    `json:"payment_method,omitempty"`
	Voucher              *voucherResponse          `json:"voucher,omitempty"`
	Items                []itemResponse            `json:"items"`
	StatusLogs           []statusLogResponse       `json:"status_logs"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// PaymentMethodResponse is the public view of a payment method.
type PaymentMethodResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Type string    `json:"type"`
	Code *string   `json:"code,omitempty"`
}

type voucherResponse struct {
	ID       uuid.UUID  `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	VendorID *uuid.UUID `json:"vendor_id,omitempty"`
}

type itemResponse struct {
	ID          uuid.UUID     `json:"id"`
	ProductID   uuid.UUID     `json:"product_id"`
	VariantID   *uuid.UUID    `json:"variant_id,omitempty"`
	VendorID    uuid.UUID     `json:"vendor_id"`
	ProductName string        `json:"product_name"`
	VariantName *string       `json:"variant_name,omitempty"`
	UnitPrice   pricing.Money `json:"unit_price"`
	Quantity    int           `json:"quantity"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	RentalDays  int           `json:"rental_days"`
	Subtotal    pricing.Money `json:"subtotal"`
}

type statusLogResponse struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}

type listResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// NewOrderResponse maps an order with its preloaded associations.
func NewOrderResponse(order *models.Order) OrderResponse {
	if order == nil {
		return OrderResponse{}
	}
	resp := OrderResponse{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		UserID:               order.UserID,
		Status:               string(order.Status),
		TotalAmount:          order.TotalAmount,
		DiscountAmount:       order.DiscountAmount,
		ServiceFee:           order.ServiceFee,
		GrandTotal:           order.GrandTotal,
		DeliveryMethod:       order.DeliveryMethod,
		Notes:                order.Notes,
		PaymentTransactionID: order.PaymentTransactionID,
		PaymentStatus:        order.PaymentStatus,
		PaymentInstructions:  order.PaymentInstructions,
		PaymentExpiresAt:     order.PaymentExpiresAt,
		PaidAt:               order.PaidAt,
		CompletedAt:          order.CompletedAt,
		CancelledAt:          order.CancelledAt,
		ExpiredAt:            order.ExpiredAt,
		Items:                make([]itemResponse, 0, len(order.Items)),
		StatusLogs:           make([]statusLogResponse, 0, len(order.StatusLogs)),
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	if order.PaymentMethod != nil {
		method := NewPaymentMethodResponse(*order.PaymentMethod)
		resp.PaymentMethod = &method
	}
	if order.Voucher != nil {
		resp.Voucher = &voucherResponse{
			ID:       order.Voucher.ID,
			Code:     order.Voucher.Code,
			Name:     order.Voucher.Name,
			VendorID: order.Voucher.VendorID,
		}
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			VendorID:    item.VendorID,
			ProductName: item.ProductName,
			VariantName: item.VariantName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			StartDate:   item.StartDate.Format(time.DateOnly),
			EndDate:     item.EndDate.Format(time.DateOnly),
			RentalDays:  item.RentalDays,
			Subtotal:    item.Subtotal,
		})
	}
	for _, log := range order.StatusLogs {
		resp.StatusLogs = append(resp.StatusLogs, statusLogResponse{
			Status:      string(log.Status),
			Description: log.Description,
			Actor:       string(log.Actor),
			CreatedAt:   log.CreatedAt,
		})
	}
	return resp
}

func NewPaymentMethodResponse(method models.PaymentMethod) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:   method.ID,
		Name: method.Name,
		Type: string(method.Type),
		Code: method.Code,
	}
}

func newListResponse(list *internalorders.OrderList) listResponse {
	if list == nil {
		return listResponse{Orders: []OrderResponse{}}
	}
	orders := make([]OrderResponse, 0, len(list.Orders))
	for i := range list.Orders {
		orders = append(orders, NewOrderResponse(&list.Orders[i]))
	}
	return listResponse{Orders: orders, NextCursor: list.NextCursor}
}
