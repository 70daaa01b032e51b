package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	"github.com/angelmondragon/rentmarket-backend/pkg/pricing"
)

// Voucher is a platform-wide discount when VendorID is nil, otherwise scoped
// to one vendor's lines.
type Voucher struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	Name          string             `gorm:"column:name;not null"`
	VendorID      *uuid.UUID         `gorm:"column:vendor_id;type:uuid"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(14,2);not null"`
	MinPurchase   pricing.Money      `gorm:"column:min_purchase;type:numeric(14,2);not null;default:0"`
	MaxDiscount   *pricing.Money     `gorm:"column:max_discount;type:numeric(14,2)"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsageCount    int                `gorm:"column:usage_count;not null;default:0"`
	StartsAt      *time.Time         `gorm:"column:starts_at"`
	EndsAt        *time.Time         `gorm:"column:ends_at"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsVendorScoped reports whether the voucher only discounts one vendor.
func (v Voucher) IsVendorScoped() bool {
	return v.VendorID != nil
}
