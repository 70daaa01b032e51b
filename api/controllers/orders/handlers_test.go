package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentmarket-backend/api/middleware"
	internalorders "github.com/angelmondragon/rentmarket-backend/internal/orders"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/pagination"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

type stubOrdersService struct {
	internalorders.Service
	order       *models.Order
	err         error
	list        *internalorders.OrderList
	lastParams  pagination.Params
	lastUser    uuid.UUID
	lastVendor  uuid.UUID
	updateInput internalorders.UpdateStatusInput
	cancelInput internalorders.CancelInput
}

func (s *stubOrdersService) Get(_ context.Context, userID, _ uuid.UUID) (*models.Order, error) {
	s.lastUser = userID
	return s.order, s.err
}

func (s *stubOrdersService) ListForCustomer(_ context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.lastUser = userID
	s.lastParams = params
	return s.list, s.err
}

func (s *stubOrdersService) ListForVendor(_ context.Context, vendorID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.lastVendor = vendorID
	s.lastParams = params
	return s.list, s.err
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
	s.updateInput = input
	return s.order, s.err
}

func (s *stubOrdersService) Cancel(_ context.Context, input internalorders.CancelInput) (*models.Order, error) {
	s.cancelInput = input
	return s.order, s.err
}

func sampleOrder() *models.Order {
	code := "bca"
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		OrderNumber:    "ORD-20260101-ABC123",
		Status:         enums.OrderStatusPending,
		TotalAmount:    pricing.MoneyFromInt(600000),
		DiscountAmount: pricing.MoneyFromInt(50000),
		ServiceFee:     pricing.MoneyFromInt(2000),
		GrandTotal:     pricing.MoneyFromInt(552000),
		DeliveryMethod: "pickup",
		PaymentMethod:  &models.PaymentMethod{ID: uuid.New(), Name: "BCA", Type: enums.PaymentMethodTypeBankTransfer, Code: &code},
		Items: []models.OrderItem{{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			VendorID:    uuid.New(),
			ProductName: "Tent",
			UnitPrice:   pricing.MoneyFromInt(100000),
			Quantity:    2,
			StartDate:   now,
			EndDate:     now.AddDate(0, 0, 2),
			RentalDays:  3,
			Subtotal:    pricing.MoneyFromInt(600000),
		}},
		StatusLogs: []models.OrderStatusLog{{Status: enums.OrderStatusPending, Description: "Order created", Actor: enums.ActorCustomer, CreatedAt: now}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func serve(t *testing.T, method, pattern, target, body string, handler http.HandlerFunc, ctx func(context.Context) context.Context) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx(req.Context()))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func asCustomer(userID uuid.UUID) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		ctx = middleware.WithUserID(ctx, userID.String())
		return middleware.WithRole(ctx, string(enums.RoleCustomer))
	}
}

func asVendor(userID, vendorID uuid.UUID) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		ctx = middleware.WithUserID(ctx, userID.String())
		ctx = middleware.WithRole(ctx, string(enums.RoleVendor))
		return middleware.WithVendorID(ctx, vendorID.String())
	}
}

func TestDetailRendersOrder(t *testing.T) {
	svc := &stubOrdersService{order: sampleOrder()}
	userID := uuid.New()
	orderID := svc.order.ID

	rec := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/"+orderID.String(), "", Detail(svc, nil), asCustomer(userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.lastUser)

	var payload struct {
		Data struct {
			OrderNumber   string `json:"order_number"`
			GrandTotal    string `json:"grand_total"`
			PaymentMethod struct {
				Type string `json:"type"`
			} `json:"payment_method"`
			Items []struct {
				StartDate  string `json:"start_date"`
				RentalDays int    `json:"rental_days"`
			} `json:"items"`
			StatusLogs []struct {
				Actor string `json:"actor"`
			} `json:"status_logs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ORD-20260101-ABC123", payload.Data.OrderNumber)
	assert.Equal(t, "552000.00", payload.Data.GrandTotal)
	assert.Equal(t, string(enums.PaymentMethodTypeBankTransfer), payload.Data.PaymentMethod.Type)
	require.Len(t, payload.Data.Items, 1)
	assert.Equal(t, "2026-01-01", payload.Data.Items[0].StartDate)
	assert.Equal(t, 3, payload.Data.Items[0].RentalDays)
	require.Len(t, payload.Data.StatusLogs, 1)
	assert.Equal(t, string(enums.ActorCustomer), payload.Data.StatusLogs[0].Actor)
}

func TestDetailRejectsBadOrderID(t *testing.T) {
	svc := &stubOrdersService{}
	rec := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/not-a-uuid", "", Detail(svc, nil), asCustomer(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailRequiresUser(t *testing.T) {
	svc := &stubOrdersService{}
	rec := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/"+uuid.NewString(), "", Detail(svc, nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrdersService{list: &internalorders.OrderList{Orders: []models.Order{*sampleOrder()}, NextCursor: "next"}}
	userID := uuid.New()

	rec := serve(t, http.MethodGet, "/orders", "/orders?limit=5&cursor=abc", "", List(svc, nil), asCustomer(userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, svc.lastParams)

	var payload struct {
		Data struct {
			Orders     []json.RawMessage `json:"orders"`
			NextCursor string            `json:"next_cursor"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Data.Orders, 1)
	assert.Equal(t, "next", payload.Data.NextCursor)
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	svc := &stubOrdersService{}
	rec := serve(t, http.MethodGet, "/orders", "/orders?limit=1000", "", List(svc, nil), asCustomer(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelPassesActor(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusCancelled
	svc := &stubOrdersService{order: order}
	userID := uuid.New()

	rec := serve(t, http.MethodPost, "/orders/{orderId}/cancel", "/orders/"+order.ID.String()+"/cancel", "", Cancel(svc, nil), asCustomer(userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, internalorders.CancelInput{OrderID: order.ID, UserID: userID}, svc.cancelInput)
}

func TestVendorListUsesVendorContext(t *testing.T) {
	svc := &stubOrdersService{list: &internalorders.OrderList{}}
	vendorID := uuid.New()

	rec := serve(t, http.MethodGet, "/vendor/orders", "/vendor/orders", "", VendorList(svc, nil), asVendor(uuid.New(), vendorID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, vendorID, svc.lastVendor)
	assert.Equal(t, pagination.DefaultLimit, svc.lastParams.Limit)
}

func TestVendorUpdateStatus(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusProcessing
	svc := &stubOrdersService{order: order}
	userID, vendorID := uuid.New(), uuid.New()

	rec := serve(t, http.MethodPatch, "/vendor/orders/{orderId}/status", "/vendor/orders/"+order.ID.String()+"/status",
		`{"status":" Processing "}`, VendorUpdateStatus(svc, nil), asVendor(userID, vendorID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, internalorders.UpdateStatusInput{
		OrderID:  order.ID,
		VendorID: vendorID,
		UserID:   userID,
		Status:   "processing",
	}, svc.updateInput)
}

func TestVendorUpdateStatusRejectsUnknownFields(t *testing.T) {
	svc := &stubOrdersService{}
	rec := serve(t, http.MethodPatch, "/vendor/orders/{orderId}/status", "/vendor/orders/"+uuid.NewString()+"/status",
		`{"status":"paid","force":true}`, VendorUpdateStatus(svc, nil), asVendor(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorUpdateStatusMapsStateConflict(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from completed to processing")}
	rec := serve(t, http.MethodPatch, "/vendor/orders/{orderId}/status", "/vendor/orders/"+uuid.NewString()+"/status",
		`{"status":"processing"}`, VendorUpdateStatus(svc, nil), asVendor(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
