package enums

// GatewayTransactionStatus is the gateway's own payment vocabulary. It is
// stored raw on the order and never validated against an allow-list.
type GatewayTransactionStatus string

const (
	GatewayStatusPending    GatewayTransactionStatus = "pending"
	GatewayStatusSettlement GatewayTransactionStatus = "settlement"
	GatewayStatusCapture    GatewayTransactionStatus = "capture"
	GatewayStatusDeny       GatewayTransactionStatus = "deny"
	GatewayStatusCancel     GatewayTransactionStatus = "cancel"
	GatewayStatusExpire     GatewayTransactionStatus = "expire"
)

// FraudStatusChallenge marks a capture held for manual review.
const FraudStatusChallenge = "challenge"

// String implements fmt.Stringer.
func (g GatewayTransactionStatus) String() string {
	return string(g)
}

// OrderStatus maps a gateway status onto the internal order status. The
// boolean is false for statuses the order machine does not react to.
func (g GatewayTransactionStatus) OrderStatus(fraudStatus string) (OrderStatus, bool) {
	switch g {
	case GatewayStatusSettlement:
		return OrderStatusPaid, true
	case GatewayStatusCapture:
		if fraudStatus == FraudStatusChallenge {
			return OrderStatusPending, true
		}
		return OrderStatusPaid, true
	case GatewayStatusPending:
		return OrderStatusPending, true
	case GatewayStatusDeny, GatewayStatusCancel:
		return OrderStatusCancelled, true
	case GatewayStatusExpire:
		return OrderStatusExpired, true
	default:
		return "", false
	}
}
