package gateway

import (
	"strconv"
	"strings"
)

// Payment types understood by the Core API charge endpoint.
const (
	PaymentTypeBankTransfer = "bank_transfer"
	PaymentTypeEChannel     = "echannel"
	PaymentTypeQRIS         = "qris"
	PaymentTypeCStore       = "cstore"
)

// ActionGenerateQRCode names the action carrying the QR image URL.
const ActionGenerateQRCode = "generate-qr-code"

// ChargeRequest is the body of POST /charge.
type ChargeRequest struct {
	PaymentType        string             `json:"payment_type"`
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    *CustomerDetails   `json:"customer_details,omitempty"`
	ItemDetails        []ItemDetail       `json:"item_details,omitempty"`
	BankTransfer       *BankTransfer      `json:"bank_transfer,omitempty"`
	EChannel           *EChannel          `json:"echannel,omitempty"`
	CStore             *CStore            `json:"cstore,omitempty"`
}

// TransactionDetails carries the order number and integer gross amount.
type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ItemDetail prices must sum to the gross amount when sent.
type ItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type BankTransfer struct {
	Bank string `json:"bank"`
}

type EChannel struct {
	BillInfo1 string `json:"bill_info1"`
	BillInfo2 string `json:"bill_info2"`
}

type CStore struct {
	Store   string `json:"store"`
	Message string `json:"message,omitempty"`
}

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

type Action struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// ChargeResponse is the subset of the charge and status responses we read.
type ChargeResponse struct {
	StatusCode        string     `json:"status_code"`
	StatusMessage     string     `json:"status_message"`
	TransactionID     string     `json:"transaction_id"`
	OrderID           string     `json:"order_id"`
	GrossAmount       string     `json:"gross_amount"`
	PaymentType       string     `json:"payment_type"`
	TransactionTime   string     `json:"transaction_time"`
	TransactionStatus string     `json:"transaction_status"`
	FraudStatus       string     `json:"fraud_status"`
	VANumbers         []VANumber `json:"va_numbers"`
	PermataVANumber   string     `json:"permata_va_number"`
	BillKey           string     `json:"bill_key"`
	BillerCode        string     `json:"biller_code"`
	Actions           []Action   `json:"actions"`
	PaymentCode       string     `json:"payment_code"`
	Store             string     `json:"store"`
	ExpiryTime        string     `json:"expiry_time"`
}

// Succeeded reports whether the body-level status code is 200 or 201.
func (r ChargeResponse) Succeeded() bool {
	code, err := strconv.Atoi(strings.TrimSpace(r.StatusCode))
	if err != nil {
		return false
	}
	return code == 200 || code == 201
}

// ActionURL returns the URL of the named action, if present.
func (r ChargeResponse) ActionURL(name string) string {
	for _, action := range r.Actions {
		if action.Name == name {
			return action.URL
		}
	}
	return ""
}

// Notification is the asynchronous payment status callback body.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`
}
