package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
)

// Repository defines the persistence surface for cart entries. Every query is
// scoped to the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartEntry, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.CartEntry, error)
	FindForCheckout(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.CartEntry, error)
	Create(ctx context.Context, entry *models.CartEntry) error
	Update(ctx context.Context, entry *models.CartEntry) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}
