package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-RentMarket-Env"))
	assert.JSONEq(t, `{"data":{"status":"live"}}`, rec.Body.String())
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("connection refused")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dependency":"redis"`)
}

type stubMethods struct {
	methods []models.PaymentMethod
	err     error
}

func (s stubMethods) ListActive(context.Context) ([]models.PaymentMethod, error) {
	return s.methods, s.err
}

func TestPaymentMethodsList(t *testing.T) {
	code := "bca"
	repo := stubMethods{methods: []models.PaymentMethod{
		{Name: "BCA Virtual Account", Type: enums.PaymentMethodTypeBankTransfer, Code: &code, IsActive: true},
		{Name: "Cash on delivery", Type: enums.PaymentMethodTypeCash, IsActive: true},
	}}

	rec := httptest.NewRecorder()
	PaymentMethods(repo, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"bank_transfer"`)
	assert.Contains(t, rec.Body.String(), `"code":"bca"`)
	assert.Contains(t, rec.Body.String(), `"name":"Cash on delivery"`)

	rec = httptest.NewRecorder()
	PaymentMethods(stubMethods{err: errors.New("db down")}, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
