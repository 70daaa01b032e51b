package enums

// DiscountType selects how a voucher value is applied to the subtotal.
type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "fixed"
	DiscountTypePercentage DiscountType = "percentage"
)

var discountTypes = []DiscountType{DiscountTypeFixed, DiscountTypePercentage}

func (d DiscountType) String() string { return string(d) }
func (d DiscountType) IsValid() bool  { return isOneOf(d, discountTypes) }

func ParseDiscountType(value string) (DiscountType, error) {
	return parseOneOf("discount type", value, discountTypes)
}
