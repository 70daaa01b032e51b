package vouchers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/repo"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

type repository struct {
	repo.Base
}

// NewRepository builds a voucher repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	return repo.First[models.Voucher](r.DB(ctx).Where("id = ?", id), "voucher")
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	return repo.First[models.Voucher](r.Locked(ctx).Where("id = ?", id), "voucher")
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	return repo.First[models.Voucher](r.DB(ctx).Where("code = ?", code), "voucher")
}

// IncrementUsage bumps usage_count in SQL so concurrent redemptions never lose
// an update.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Model(&models.Voucher{}).
		Where("id = ?", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	return nil
}
