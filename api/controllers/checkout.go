package controllers

import (
	"net/http"
	"sort"

	"github.com/google/uuid"

	ordercontrollers "github.com/angelmondragon/rentmarket-backend/api/controllers/orders"
	"github.com/angelmondragon/rentmarket-backend/api/middleware"
	"github.com/angelmondragon/rentmarket-backend/api/responses"
	"github.com/angelmondragon/rentmarket-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/rentmarket-backend/internal/checkout"
	"github.com/angelmondragon/rentmarket-backend/internal/payments"
	"github.com/angelmondragon/rentmarket-backend/internal/vouchers"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// Checkout turns the selected cart entries into a single pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CheckoutInput{
			UserID:          userID,
			CartEntryIDs:    payload.CartEntryIDs,
			PaymentMethodID: payload.PaymentMethodID,
			VoucherID:       payload.VoucherID,
			DeliveryMethod:  validators.SanitizeString(payload.DeliveryMethod, 64),
		}
		if payload.Notes != nil {
			notes := validators.SanitizeString(*payload.Notes, 500)
			if notes != "" {
				input.Notes = &notes
			}
		}
		if payload.Customer != nil {
			input.Payer = payments.Payer{
				Name:  validators.SanitizeString(payload.Customer.Name, 128),
				Email: validators.SanitizeString(payload.Customer.Email, 254),
				Phone: validators.SanitizeString(payload.Customer.Phone, 32),
			}
		}

		order, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ordercontrollers.NewOrderResponse(order))
	}
}

// CheckoutSummary previews totals for a cart selection without writing anything.
func CheckoutSummary(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload summaryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Summary(r.Context(), checkoutsvc.SummaryInput{
			UserID:       userID,
			CartEntryIDs: payload.CartEntryIDs,
			VoucherID:    payload.VoucherID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSummaryResponse(result))
	}
}

type checkoutRequest struct {
	CartEntryIDs    []uuid.UUID      `json:"cart_entry_ids" validate:"required,min=1"`
	PaymentMethodID uuid.UUID        `json:"payment_method_id" validate:"required"`
	DeliveryMethod  string           `json:"delivery_method" validate:"required,max=64"`
	VoucherID       *uuid.UUID       `json:"voucher_id,omitempty"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
	Customer        *customerRequest `json:"customer,omitempty"`
}

type customerRequest struct {
	Name  string `json:"name" validate:"max=128"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=32"`
}

type summaryRequest struct {
	CartEntryIDs []uuid.UUID `json:"cart_entry_ids" validate:"required,min=1"`
	VoucherID    *uuid.UUID  `json:"voucher_id,omitempty"`
}

type summaryResponse struct {
	Subtotal             pricing.Money            `json:"subtotal"`
	VendorSubtotals      []vendorSubtotalResponse `json:"vendor_subtotals"`
	DiscountAmount       pricing.Money            `json:"discount_amount"`
	ServiceFee           pricing.Money            `json:"service_fee"`
	GrandTotal           pricing.Money            `json:"grand_total"`
	Voucher              *vouchers.AppliedVoucher `json:"voucher,omitempty"`
	VoucherIneligibility *vouchers.Ineligibility  `json:"voucher_ineligibility,omitempty"`
}

type vendorSubtotalResponse struct {
	VendorID uuid.UUID     `json:"vendor_id"`
	Subtotal pricing.Money `json:"subtotal"`
}

func newSummaryResponse(result *checkoutsvc.SummaryResult) summaryResponse {
	if result == nil {
		return summaryResponse{VendorSubtotals: []vendorSubtotalResponse{}}
	}
	vendors := make([]vendorSubtotalResponse, 0, len(result.Quote.VendorSubtotals))
	for vendorID, subtotal := range result.Quote.VendorSubtotals {
		vendors = append(vendors, vendorSubtotalResponse{VendorID: vendorID, Subtotal: subtotal})
	}
	sort.Slice(vendors, func(i, j int) bool {
		return vendors[i].VendorID.String() < vendors[j].VendorID.String()
	})

	return summaryResponse{
		Subtotal:             result.Totals.Subtotal,
		VendorSubtotals:      vendors,
		DiscountAmount:       result.Totals.Discount,
		ServiceFee:           result.Totals.ServiceFee,
		GrandTotal:           result.Totals.GrandTotal,
		Voucher:              result.Voucher,
		VoucherIneligibility: result.Ineligibility,
	}
}
