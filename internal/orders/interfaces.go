package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/pagination"
)

// Repository defines persistence operations for orders, their items and
// status logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	HasVendorItems(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	VendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SavePayment(ctx context.Context, order *models.Order) error
	AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error)
	FindExpirable(ctx context.Context, now, unpaidCutoff time.Time, limit int) ([]models.Order, error)
}
