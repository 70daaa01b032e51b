// Package catalog reads the product tables owned by the catalog service.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/repo"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
)

// Repository is the read-only catalog surface.
type Repository interface {
	FindActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) FindActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.First[models.Product](r.DB(ctx).Where("id = ? AND is_active = ?", id, true), "product")
}

func (r *repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	return repo.First[models.ProductVariant](r.DB(ctx).Where("id = ? AND product_id = ?", variantID, productID), "product variant")
}
