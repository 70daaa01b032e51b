package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/repo"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

type repository struct {
	repo.Base
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartEntry, error) {
	var entries []models.CartEntry
	err := r.DB(ctx).
		Preload("Product").
		Preload("Variant").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.CartEntry, error) {
	var entry models.CartEntry
	err := r.DB(ctx).
		Preload("Product").
		Preload("Variant").
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindForCheckout locks the selected entries for the rest of the transaction.
// Entries owned by another user are silently excluded.
func (r *repository) FindForCheckout(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.CartEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []models.CartEntry
	err := r.Locked(ctx).
		Preload("Product").
		Preload("Variant").
		Where("id IN ? AND user_id = ?", ids, userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) Create(ctx context.Context, entry *models.CartEntry) error {
	return r.DB(ctx).Omit("Product", "Variant").Create(entry).Error
}

func (r *repository) Update(ctx context.Context, entry *models.CartEntry) error {
	return r.DB(ctx).Model(&models.CartEntry{}).
		Where("id = ? AND user_id = ?", entry.ID, entry.UserID).
		Updates(map[string]any{
			"quantity":   entry.Quantity,
			"start_date": entry.StartDate,
			"end_date":   entry.EndDate,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart entry not found")
	}
	return nil
}

func (r *repository) DeleteByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("id IN ? AND user_id = ?", ids, userID).Delete(&models.CartEntry{})
	return res.RowsAffected, res.Error
}
