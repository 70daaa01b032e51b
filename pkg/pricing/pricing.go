package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidDateRange = errors.New("rental end date must not be before start date")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrNegativePrice    = errors.New("unit price must not be negative")
)

const day = 24 * time.Hour

// DateRange is an inclusive rental window of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to UTC calendar dates and rejects end < start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: calendarDate(start), End: calendarDate(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

// Days counts both boundary days, so a same-day rental is one day.
func (r DateRange) Days() int64 {
	return int64(r.End.Sub(r.Start)/day) + 1
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UnitPrice picks the variant price when a priced variant is selected.
func UnitPrice(productPrice Money, variantPrice *Money) Money {
	if variantPrice != nil {
		return *variantPrice
	}
	return productPrice
}

// LineInput describes one cart selection to be priced.
type LineInput struct {
	Ref       uuid.UUID
	VendorID  uuid.UUID
	UnitPrice Money
	Quantity  int
	Start     time.Time
	End       time.Time
}

// Line is a priced cart selection.
type Line struct {
	Ref       uuid.UUID
	VendorID  uuid.UUID
	UnitPrice Money
	Quantity  int
	Range     DateRange
	Days      int64
	Subtotal  Money
}

// NewLine computes unit price x quantity x rental days.
func NewLine(in LineInput) (Line, error) {
	if in.Quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return Line{}, ErrNegativePrice
	}
	rng, err := NewDateRange(in.Start, in.End)
	if err != nil {
		return Line{}, err
	}
	days := rng.Days()
	return Line{
		Ref:       in.Ref,
		VendorID:  in.VendorID,
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		Range:     rng,
		Days:      days,
		Subtotal:  in.UnitPrice.MulInt(int64(in.Quantity)).MulInt(days).Round(),
	}, nil
}

// Quote aggregates priced lines into order and per-vendor subtotals.
type Quote struct {
	Lines           []Line
	Subtotal        Money
	VendorSubtotals map[uuid.UUID]Money
}

func BuildQuote(lines []Line) Quote {
	q := Quote{
		Lines:           lines,
		Subtotal:        Zero(),
		VendorSubtotals: make(map[uuid.UUID]Money),
	}
	for _, line := range lines {
		q.Subtotal = q.Subtotal.Add(line.Subtotal)
		q.VendorSubtotals[line.VendorID] = q.VendorSubtotals[line.VendorID].Add(line.Subtotal)
	}
	return q
}

// VendorSubtotal returns the vendor's share of the quote, zero when absent.
func (q Quote) VendorSubtotal(vendorID uuid.UUID) (Money, bool) {
	m, ok := q.VendorSubtotals[vendorID]
	if !ok {
		return Zero(), false
	}
	return m, true
}

// Totals is the final fee composition of an order.
type Totals struct {
	Subtotal   Money
	Discount   Money
	ServiceFee Money
	GrandTotal Money
}

// ComputeTotals applies grand = max(0, subtotal - discount) + service fee.
func ComputeTotals(subtotal, discount, serviceFee Money) Totals {
	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		ServiceFee: serviceFee,
		GrandTotal: subtotal.Sub(discount).ClampZero().Add(serviceFee),
	}
}
