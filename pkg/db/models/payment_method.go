package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
)

// PaymentMethod is a settlement channel offered at checkout. Code carries the
// bank code for bank transfers and the store code for retail channels.
type PaymentMethod struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string                  `gorm:"column:name;not null"`
	Type      enums.PaymentMethodType `gorm:"column:type;type:payment_method_type;not null"`
	Code      *string                 `gorm:"column:code"`
	IsActive  bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// CodeOr returns the configured code or fallback when unset.
func (m PaymentMethod) CodeOr(fallback string) string {
	if m.Code == nil || *m.Code == "" {
		return fallback
	}
	return *m.Code
}
