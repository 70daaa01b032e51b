package cart

import (
	"time"

	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/rentmarket-backend/internal/cart"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

type entryResponse struct {
	ID          uuid.UUID     `json:"id"`
	ProductID   uuid.UUID     `json:"product_id"`
	ProductName string        `json:"product_name,omitempty"`
	VendorID    *uuid.UUID    `json:"vendor_id,omitempty"`
	VariantID   *uuid.UUID    `json:"variant_id,omitempty"`
	VariantName *string       `json:"variant_name,omitempty"`
	Quantity    int           `json:"quantity"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	RentalDays  int64         `json:"rental_days"`
	UnitPrice   pricing.Money `json:"unit_price"`
	Subtotal    pricing.Money `json:"subtotal"`
}

type cartResponse struct {
	Entries  []entryResponse `json:"entries"`
	Subtotal pricing.Money   `json:"subtotal"`
}

func newEntryResponse(view cartsvc.EntryView) entryResponse {
	resp := entryResponse{
		ID:         view.ID,
		ProductID:  view.ProductID,
		VariantID:  view.VariantID,
		Quantity:   view.Quantity,
		StartDate:  view.StartDate.Format(time.DateOnly),
		EndDate:    view.EndDate.Format(time.DateOnly),
		RentalDays: view.RentalDays,
		UnitPrice:  view.UnitPrice,
		Subtotal:   view.Subtotal,
	}
	if view.Product != nil {
		vendorID := view.Product.VendorID
		resp.ProductName = view.Product.Name
		resp.VendorID = &vendorID
	}
	if view.Variant != nil {
		name := view.Variant.Name
		resp.VariantName = &name
	}
	return resp
}

func newCartResponse(view *cartsvc.View) cartResponse {
	if view == nil {
		return cartResponse{Entries: []entryResponse{}, Subtotal: pricing.Zero()}
	}
	entries := make([]entryResponse, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, newEntryResponse(entry))
	}
	return cartResponse{Entries: entries, Subtotal: view.Subtotal}
}
