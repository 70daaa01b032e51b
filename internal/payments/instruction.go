package payments

import (
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/types"
)

// NormalizeInstruction picks the payer instruction from whichever fields the
// gateway populated, in order: virtual account, bill key, QR action, store code.
func NormalizeInstruction(resp gateway.ChargeResponse) *types.PaymentInstruction {
	switch {
	case len(resp.VANumbers) > 0:
		return &types.PaymentInstruction{
			Type:     types.InstructionVirtualAccount,
			VANumber: resp.VANumbers[0].VANumber,
			Bank:     resp.VANumbers[0].Bank,
		}
	case resp.PermataVANumber != "":
		return &types.PaymentInstruction{
			Type:     types.InstructionVirtualAccount,
			VANumber: resp.PermataVANumber,
			Bank:     "permata",
		}
	case resp.BillKey != "":
		return &types.PaymentInstruction{
			Type:       types.InstructionBillKey,
			BillKey:    resp.BillKey,
			BillerCode: resp.BillerCode,
		}
	}
	if qr := resp.ActionURL(gateway.ActionGenerateQRCode); qr != "" {
		return &types.PaymentInstruction{Type: types.InstructionQR, QRURL: qr}
	}
	if resp.PaymentCode != "" {
		return &types.PaymentInstruction{
			Type:        types.InstructionStoreCode,
			PaymentCode: resp.PaymentCode,
			Store:       resp.Store,
		}
	}
	return &types.PaymentInstruction{Type: types.InstructionUnknown}
}
