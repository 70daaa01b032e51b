package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/gateway"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
	"github.com/angelmondragon/rentmarket-backend/pkg/types"
)

type stubCharger struct {
	req    gateway.ChargeRequest
	resp   *gateway.ChargeResponse
	err    error
	called bool
}

func (s *stubCharger) Charge(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	s.called = true
	s.req = req
	return s.resp, s.err
}

func (s *stubCharger) ParseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func method(typ enums.PaymentMethodType, code string) models.PaymentMethod {
	m := models.PaymentMethod{Name: string(typ), Type: typ, IsActive: true}
	if code != "" {
		m.Code = &code
	}
	return m
}

func order() models.Order {
	return models.Order{OrderNumber: "ORD-TEST000001", GrandTotal: pricing.MustParseMoney("552000.00")}
}

func TestBuildChargeRequestPerType(t *testing.T) {
	req, err := BuildChargeRequest(order(), method(enums.PaymentMethodTypeBankTransfer, "BCA"), Payer{Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, gateway.PaymentTypeBankTransfer, req.PaymentType)
	assert.Equal(t, "bca", req.BankTransfer.Bank)
	assert.Equal(t, int64(552000), req.TransactionDetails.GrossAmount)
	assert.Equal(t, "ORD-TEST000001", req.TransactionDetails.OrderID)
	assert.Equal(t, "a@b.c", req.CustomerDetails.Email)

	req, err = BuildChargeRequest(order(), method(enums.PaymentMethodTypeEChannel, ""), Payer{})
	require.NoError(t, err)
	require.NotNil(t, req.EChannel)
	assert.Contains(t, req.EChannel.BillInfo2, "ORD-TEST000001")
	assert.Nil(t, req.CustomerDetails)

	req, err = BuildChargeRequest(order(), method(enums.PaymentMethodTypeQRIS, ""), Payer{})
	require.NoError(t, err)
	assert.Equal(t, gateway.PaymentTypeQRIS, req.PaymentType)
	assert.Nil(t, req.BankTransfer)
	assert.Nil(t, req.EChannel)
	assert.Nil(t, req.CStore)

	req, err = BuildChargeRequest(order(), method(enums.PaymentMethodTypeCStore, "indomaret"), Payer{})
	require.NoError(t, err)
	assert.Equal(t, "indomaret", req.CStore.Store)

	_, err = BuildChargeRequest(order(), method(enums.PaymentMethodTypeBankTransfer, ""), Payer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = BuildChargeRequest(order(), method(enums.PaymentMethodTypeCash, ""), Payer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNormalizeInstructionPriority(t *testing.T) {
	qr := []gateway.Action{{Name: gateway.ActionGenerateQRCode, URL: "https://qr"}}
	cases := []struct {
		name string
		resp gateway.ChargeResponse
		want types.PaymentInstruction
	}{
		{
			"va wins over everything",
			gateway.ChargeResponse{VANumbers: []gateway.VANumber{{Bank: "bni", VANumber: "88"}}, BillKey: "1", Actions: qr, PaymentCode: "X"},
			types.PaymentInstruction{Type: types.InstructionVirtualAccount, VANumber: "88", Bank: "bni"},
		},
		{
			"permata",
			gateway.ChargeResponse{PermataVANumber: "77"},
			types.PaymentInstruction{Type: types.InstructionVirtualAccount, VANumber: "77", Bank: "permata"},
		},
		{
			"bill key before qr",
			gateway.ChargeResponse{BillKey: "123", BillerCode: "70012", Actions: qr},
			types.PaymentInstruction{Type: types.InstructionBillKey, BillKey: "123", BillerCode: "70012"},
		},
		{
			"qr before store code",
			gateway.ChargeResponse{Actions: qr, PaymentCode: "X"},
			types.PaymentInstruction{Type: types.InstructionQR, QRURL: "https://qr"},
		},
		{
			"store code",
			gateway.ChargeResponse{PaymentCode: "X1", Store: "alfamart"},
			types.PaymentInstruction{Type: types.InstructionStoreCode, PaymentCode: "X1", Store: "alfamart"},
		},
		{
			"nothing recognised",
			gateway.ChargeResponse{},
			types.PaymentInstruction{Type: types.InstructionUnknown},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, *NormalizeInstruction(tc.resp))
		})
	}
}

func TestInitiateCashSkipsGateway(t *testing.T) {
	charger := &stubCharger{}
	svc, err := NewService(charger, nil)
	require.NoError(t, err)

	result, err := svc.Initiate(context.Background(), order(), method(enums.PaymentMethodTypeCash, ""), Payer{})
	require.NoError(t, err)
	assert.False(t, charger.called)
	assert.Equal(t, CashPaymentStatus, result.PaymentStatus)
	assert.Equal(t, types.InstructionCash, result.Instruction.Type)
	assert.Nil(t, result.TransactionID)
}

func TestInitiateGatewayCharge(t *testing.T) {
	charger := &stubCharger{resp: &gateway.ChargeResponse{
		StatusCode:        "201",
		TransactionID:     "trx-9",
		TransactionStatus: "pending",
		BillKey:           "555",
		BillerCode:        "70012",
		ExpiryTime:        "2026-01-02 10:00:00",
	}}
	svc, err := NewService(charger, nil)
	require.NoError(t, err)

	result, err := svc.Initiate(context.Background(), order(), method(enums.PaymentMethodTypeEChannel, ""), Payer{})
	require.NoError(t, err)
	assert.True(t, charger.called)
	assert.Equal(t, "pending", result.PaymentStatus)
	assert.Equal(t, "trx-9", *result.TransactionID)
	assert.Equal(t, types.InstructionBillKey, result.Instruction.Type)
	require.NotNil(t, result.ExpiresAt)

	var o models.Order
	result.Apply(&o)
	assert.Equal(t, "pending", *o.PaymentStatus)
	assert.Equal(t, "555", o.PaymentInstructions.BillKey)
}

func TestInitiatePropagatesGatewayError(t *testing.T) {
	boom := pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "execute charge request")
	svc, err := NewService(&stubCharger{err: boom}, nil)
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), order(), method(enums.PaymentMethodTypeQRIS, ""), Payer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
