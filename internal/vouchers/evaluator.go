package vouchers

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// Reason identifies why a voucher cannot be applied.
type Reason string

const (
	ReasonInactive          Reason = "inactive"
	ReasonNotStarted        Reason = "not_started"
	ReasonExpired           Reason = "expired"
	ReasonQuotaExhausted    Reason = "quota_exhausted"
	ReasonVendorNotInOrder  Reason = "vendor_not_in_order"
	ReasonMinPurchaseNotMet Reason = "min_purchase_not_met"
	ReasonUnsupportedType   Reason = "unsupported_discount_type"
)

// Ineligibility is a user-visible explanation, not an error.
type Ineligibility struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// AppliedVoucher is the voucher metadata attached to an order.
type AppliedVoucher struct {
	ID       uuid.UUID  `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	VendorID *uuid.UUID `json:"vendor_id,omitempty"`
}

// Evaluation is the outcome of applying a voucher to a quote. Discount is zero
// whenever Eligible is false.
type Evaluation struct {
	Eligible       bool
	Discount       pricing.Money
	EligibleAmount pricing.Money
	Voucher        *AppliedVoucher
	Ineligibility  *Ineligibility
}

// IsValidAt checks the active flag, validity window and usage quota.
func IsValidAt(v models.Voucher, now time.Time) (bool, *Ineligibility) {
	switch {
	case !v.IsActive:
		return false, &Ineligibility{Reason: ReasonInactive, Message: "Voucher is not active"}
	case v.StartsAt != nil && now.Before(*v.StartsAt):
		return false, &Ineligibility{Reason: ReasonNotStarted, Message: "Voucher is not yet valid"}
	case v.EndsAt != nil && now.After(*v.EndsAt):
		return false, &Ineligibility{Reason: ReasonExpired, Message: "Voucher has expired"}
	case v.UsageLimit != nil && v.UsageCount >= *v.UsageLimit:
		return false, &Ineligibility{Reason: ReasonQuotaExhausted, Message: "Voucher usage limit has been reached"}
	}
	return true, nil
}

// Evaluate computes the order-level discount a voucher grants on quote.
func Evaluate(v models.Voucher, quote pricing.Quote, now time.Time) Evaluation {
	eval := Evaluation{
		Discount:       pricing.Zero(),
		EligibleAmount: pricing.Zero(),
		Voucher: &AppliedVoucher{
			ID:       v.ID,
			Code:     v.Code,
			Name:     v.Name,
			VendorID: v.VendorID,
		},
	}

	if ok, why := IsValidAt(v, now); !ok {
		eval.Ineligibility = why
		return eval
	}

	eligible := quote.Subtotal
	if v.VendorID != nil {
		vendorSubtotal, present := quote.VendorSubtotal(*v.VendorID)
		if !present {
			eval.Ineligibility = &Ineligibility{
				Reason:  ReasonVendorNotInOrder,
				Message: "Voucher only applies to products from another vendor",
			}
			return eval
		}
		eligible = vendorSubtotal
	}
	eval.EligibleAmount = eligible

	if eligible.LessThan(v.MinPurchase) {
		eval.Ineligibility = &Ineligibility{
			Reason:  ReasonMinPurchaseNotMet,
			Message: fmt.Sprintf("Minimum purchase of %s is required to use this voucher", v.MinPurchase),
		}
		return eval
	}

	var discount pricing.Money
	switch v.DiscountType {
	case enums.DiscountTypeFixed:
		discount = pricing.NewMoney(v.DiscountValue).Round()
	case enums.DiscountTypePercentage:
		discount = eligible.Percent(v.DiscountValue)
	default:
		eval.Ineligibility = &Ineligibility{
			Reason:  ReasonUnsupportedType,
			Message: fmt.Sprintf("Voucher discount type %q is not supported", v.DiscountType),
		}
		return eval
	}
	if v.MaxDiscount != nil && discount.GreaterThan(*v.MaxDiscount) {
		discount = *v.MaxDiscount
	}

	eval.Eligible = true
	eval.Discount = discount.ClampZero()
	return eval
}
