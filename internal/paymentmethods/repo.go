// Package paymentmethods reads the payment methods offered at checkout.
package paymentmethods

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/rentmarket-backend/internal/repo"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	ListActive(ctx context.Context) ([]models.PaymentMethod, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) FindActive(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.DB(ctx).Where("id = ? AND is_active = ?", id, true).First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.DB(ctx).Where("is_active = ?", true).Order("name ASC").Find(&methods).Error
	return methods, err
}
