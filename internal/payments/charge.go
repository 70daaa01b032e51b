package payments

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
)

// Payer identifies the customer to the gateway.
type Payer struct {
	Name  string
	Email string
	Phone string
}

const defaultStoreMessage = "Rental order payment"

// BuildChargeRequest maps an order and its payment method to a charge body.
func BuildChargeRequest(order models.Order, method models.PaymentMethod, payer Payer) (gateway.ChargeRequest, error) {
	req := gateway.ChargeRequest{
		TransactionDetails: gateway.TransactionDetails{
			OrderID:     order.OrderNumber,
			GrossAmount: order.GrandTotal.IntAmount(),
		},
	}
	if payer != (Payer{}) {
		req.CustomerDetails = &gateway.CustomerDetails{
			FirstName: payer.Name,
			Email:     payer.Email,
			Phone:     payer.Phone,
		}
	}

	switch method.Type {
	case enums.PaymentMethodTypeBankTransfer:
		bank := strings.ToLower(method.CodeOr(""))
		if bank == "" {
			return gateway.ChargeRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "bank transfer payment method has no bank code")
		}
		req.PaymentType = gateway.PaymentTypeBankTransfer
		req.BankTransfer = &gateway.BankTransfer{Bank: bank}
	case enums.PaymentMethodTypeEChannel:
		req.PaymentType = gateway.PaymentTypeEChannel
		req.EChannel = &gateway.EChannel{
			BillInfo1: "Payment for:",
			BillInfo2: fmt.Sprintf("Order %s", order.OrderNumber),
		}
	case enums.PaymentMethodTypeQRIS:
		req.PaymentType = gateway.PaymentTypeQRIS
	case enums.PaymentMethodTypeCStore:
		store := strings.ToLower(method.CodeOr(""))
		if store == "" {
			return gateway.ChargeRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "store payment method has no store code")
		}
		req.PaymentType = gateway.PaymentTypeCStore
		req.CStore = &gateway.CStore{Store: store, Message: defaultStoreMessage}
	default:
		return gateway.ChargeRequest{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method type %q cannot be charged", method.Type))
	}
	return req, nil
}
