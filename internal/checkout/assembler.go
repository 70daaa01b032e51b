package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/internal/cart"
	"github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// assembleInput carries everything already loaded and priced inside the
// checkout transaction.
type assembleInput struct {
	UserID         uuid.UUID
	Entries        []models.CartEntry
	Quote          pricing.Quote
	Method         models.PaymentMethod
	VoucherID      *uuid.UUID
	Discount       pricing.Money
	DeliveryMethod string
	Notes          *string
}

// assembler turns priced cart entries into a persisted pending order. The
// repositories it receives must already be bound to the checkout transaction.
type assembler struct {
	serviceFee pricing.Money
	prefix     string
	suffix     func() (string, error)
	now        func() time.Time
}

func (a assembler) assemble(ctx context.Context, ordersRepo orders.Repository, cartRepo cart.Repository, in assembleInput) (*models.Order, error) {
	totals := pricing.ComputeTotals(in.Quote.Subtotal, in.Discount, a.serviceFee)

	number, err := nextOrderNumber(ctx, ordersRepo, a.prefix, a.suffix)
	if err != nil {
		return nil, err
	}

	now := a.now()
	orderID := uuid.New()
	order := &models.Order{
		ID:              orderID,
		UserID:          in.UserID,
		PaymentMethodID: in.Method.ID,
		VoucherID:       in.VoucherID,
		OrderNumber:     number,
		TotalAmount:     totals.Subtotal,
		ServiceFee:      totals.ServiceFee,
		DiscountAmount:  totals.Discount,
		GrandTotal:      totals.GrandTotal,
		Status:          enums.OrderStatusPending,
		Notes:           in.Notes,
		DeliveryMethod:  in.DeliveryMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	entries := make(map[uuid.UUID]models.CartEntry, len(in.Entries))
	for _, entry := range in.Entries {
		entries[entry.ID] = entry
	}
	order.Items = make([]models.OrderItem, 0, len(in.Quote.Lines))
	consumed := make([]uuid.UUID, 0, len(in.Quote.Lines))
	for _, line := range in.Quote.Lines {
		entry, ok := entries[line.Ref]
		if !ok || entry.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "priced line without cart entry")
		}
		item := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   entry.ProductID,
			VariantID:   entry.VariantID,
			VendorID:    line.VendorID,
			ProductName: entry.Product.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			StartDate:   line.Range.Start,
			EndDate:     line.Range.End,
			RentalDays:  int(line.Days),
			Subtotal:    line.Subtotal,
			CreatedAt:   now,
		}
		if entry.Variant != nil {
			name := entry.Variant.Name
			item.VariantName = &name
		}
		order.Items = append(order.Items, item)
		consumed = append(consumed, entry.ID)
	}
	order.StatusLogs = []models.OrderStatusLog{{
		ID:          uuid.New(),
		OrderID:     orderID,
		Status:      enums.OrderStatusPending,
		Description: fmt.Sprintf("Order created with payment method %s", in.Method.Name),
		Actor:       enums.ActorCustomer,
		CreatedAt:   now,
	}}

	if err := ordersRepo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	deleted, err := cartRepo.DeleteByIDs(ctx, in.UserID, consumed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart entries")
	}
	if deleted != int64(len(consumed)) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
	}
	return order, nil
}
