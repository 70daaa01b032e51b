package types

// Instruction types stored in PaymentInstruction.Type.
const (
	InstructionVirtualAccount = "va"
	InstructionBillKey        = "bill_key"
	InstructionQR             = "qr"
	InstructionStoreCode      = "store_code"
	InstructionCash           = "cash"
	InstructionUnknown        = "unknown"
)

// PaymentInstruction is what the payer needs to complete a payment. Only the
// fields belonging to Type are populated.
type PaymentInstruction struct {
	Type        string `json:"type"`
	VANumber    string `json:"va_number,omitempty"`
	Bank        string `json:"bank,omitempty"`
	BillKey     string `json:"bill_key,omitempty"`
	BillerCode  string `json:"biller_code,omitempty"`
	QRURL       string `json:"qr_url,omitempty"`
	PaymentCode string `json:"payment_code,omitempty"`
	Store       string `json:"store,omitempty"`
	Message     string `json:"message,omitempty"`
}

// CashInstruction is the static payload for pay-on-delivery orders.
func CashInstruction() *PaymentInstruction {
	return &PaymentInstruction{Type: InstructionCash, Message: "Pay on delivery"}
}
