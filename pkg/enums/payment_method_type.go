package enums

// PaymentMethodType selects the settlement channel of an order. Every type
// except cash is charged through the payment gateway.
type PaymentMethodType string

const (
	PaymentMethodTypeCash         PaymentMethodType = "cash"
	PaymentMethodTypeBankTransfer PaymentMethodType = "bank_transfer"
	PaymentMethodTypeEChannel     PaymentMethodType = "echannel"
	PaymentMethodTypeQRIS         PaymentMethodType = "qris"
	PaymentMethodTypeCStore       PaymentMethodType = "cstore"
)

var paymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypeCash,
	PaymentMethodTypeBankTransfer,
	PaymentMethodTypeEChannel,
	PaymentMethodTypeQRIS,
	PaymentMethodTypeCStore,
}

func (p PaymentMethodType) String() string { return string(p) }
func (p PaymentMethodType) IsValid() bool  { return isOneOf(p, paymentMethodTypes) }

func (p PaymentMethodType) RequiresGateway() bool {
	return p != PaymentMethodTypeCash
}

func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	return parseOneOf("payment method type", value, paymentMethodTypes)
}
