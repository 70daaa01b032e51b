// Package dbtest opens isolated in-memory SQLite databases carrying the order
// schema, plus fixture helpers for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

var schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE payment_methods (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  code TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE vouchers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  vendor_id TEXT,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  min_purchase TEXT NOT NULL DEFAULT '0',
  max_discount TEXT,
  usage_limit INTEGER,
  usage_count INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  ends_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  payment_method_id TEXT NOT NULL,
  voucher_id TEXT,
  order_number TEXT NOT NULL UNIQUE,
  total_amount TEXT NOT NULL,
  service_fee TEXT NOT NULL,
  discount_amount TEXT NOT NULL DEFAULT '0',
  grand_total TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  notes TEXT,
  delivery_method TEXT NOT NULL,
  payment_transaction_id TEXT,
  payment_status TEXT,
  payment_instructions TEXT,
  payment_expires_at DATETIME,
  paid_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  expired_at DATETIME,
  voucher_redeemed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  vendor_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  variant_name TEXT,
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  rental_days INTEGER NOT NULL,
  subtotal TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE order_status_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  description TEXT NOT NULL,
  actor TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  next_attempt_at DATETIME,
  last_error TEXT
);`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Date returns midnight UTC for the given calendar day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func MustCreateProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		VendorID: vendorID,
		Name:     "Camera " + uuid.NewString()[:6],
		Price:    pricing.MoneyFromInt(price),
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func MustCreateVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, price *int64) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      "Variant " + uuid.NewString()[:6],
	}
	if price != nil {
		m := pricing.MoneyFromInt(*price)
		variant.Price = &m
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}

func MustCreatePaymentMethod(t *testing.T, db *gorm.DB, typ enums.PaymentMethodType, code string) *models.PaymentMethod {
	t.Helper()
	method := &models.PaymentMethod{
		ID:       uuid.New(),
		Name:     string(typ) + " " + code,
		Type:     typ,
		IsActive: true,
	}
	if code != "" {
		method.Code = &code
	}
	if err := db.Create(method).Error; err != nil {
		t.Fatalf("create payment method: %v", err)
	}
	return method
}

// VoucherOption mutates a voucher fixture before it is inserted.
type VoucherOption func(*models.Voucher)

func MustCreateVoucher(t *testing.T, db *gorm.DB, typ enums.DiscountType, value int64, opts ...VoucherOption) *models.Voucher {
	t.Helper()
	voucher := &models.Voucher{
		ID:            uuid.New(),
		Code:          "V" + uuid.NewString()[:8],
		Name:          "Test voucher",
		DiscountType:  typ,
		DiscountValue: decimal.NewFromInt(value),
		MinPurchase:   pricing.Zero(),
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(voucher)
	}
	if err := db.Create(voucher).Error; err != nil {
		t.Fatalf("create voucher: %v", err)
	}
	// gorm skips zero-valued fields that carry a column default
	if !voucher.IsActive {
		if err := db.Model(voucher).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate voucher: %v", err)
		}
	}
	return voucher
}

func MustCreateCartEntry(t *testing.T, db *gorm.DB, userID, productID uuid.UUID, variantID *uuid.UUID, qty int, start, end time.Time) *models.CartEntry {
	t.Helper()
	entry := &models.CartEntry{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
		StartDate: start,
		EndDate:   end,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create cart entry: %v", err)
	}
	return entry
}

// MustCreateOrder inserts a bare order with one line for vendorID.
func MustCreateOrder(t *testing.T, db *gorm.DB, userID, vendorID, paymentMethodID uuid.UUID, voucherID *uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		PaymentMethodID: paymentMethodID,
		VoucherID:       voucherID,
		OrderNumber:     "ORD-" + uuid.NewString()[:10],
		TotalAmount:     pricing.MoneyFromInt(100000),
		ServiceFee:      pricing.MoneyFromInt(2000),
		DiscountAmount:  pricing.Zero(),
		GrandTotal:      pricing.MoneyFromInt(102000),
		Status:          enums.OrderStatusPending,
		DeliveryMethod:  "pickup",
	}
	if err := db.Omit("Items", "StatusLogs", "PaymentMethod", "Voucher").Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	item := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		VendorID:    vendorID,
		ProductName: "Tent",
		UnitPrice:   pricing.MoneyFromInt(50000),
		Quantity:    1,
		StartDate:   Date(2026, 1, 1),
		EndDate:     Date(2026, 1, 2),
		RentalDays:  2,
		Subtotal:    pricing.MoneyFromInt(100000),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create order item: %v", err)
	}
	return order
}

// TxRunner runs callbacks in a real transaction on the test database.
type TxRunner struct {
	DB *gorm.DB
}

func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
