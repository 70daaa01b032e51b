package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/rentmarket-backend/internal/repo"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/db/models"
	"github.com/angelmondragon/rentmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
	"github.com/angelmondragon/rentmarket-backend/pkg/pagination"
)

const orderNumberIndex = "ux_orders_order_number"

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// Create inserts the order with its items and logs. A taken order number
// surfaces as CodeConflict.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	err := r.DB(ctx).Omit("PaymentMethod", "Voucher").Create(order).Error
	if db.IsUniqueViolation(err, orderNumberIndex) || db.IsUniqueViolation(err, "orders.order_number") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken")
	}
	return err
}

func (r *repository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.Locked(ctx).Where("id = ?", id), "order")
}

func (r *repository) FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (*models.Order, error) {
	return repo.First[models.Order](r.Locked(ctx).Where("order_number = ?", orderNumber), "order")
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("StatusLogs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("PaymentMethod").
		Preload("Voucher").
		Where("id = ?", id)
	return repo.First[models.Order](query, "order")
}

func (r *repository) HasVendorItems(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.OrderItem{}).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) VendorIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.OrderItem{}).
		Distinct("vendor_id").
		Where("order_id = ?", orderID).
		Order("vendor_id").
		Pluck("vendor_id", &ids).Error
	return ids, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

// paymentColumns are written from the model so payment_instructions goes
// through its json serializer.
var paymentColumns = []string{
	"payment_status",
	"payment_transaction_id",
	"payment_instructions",
	"payment_expires_at",
}

// SavePayment persists the gateway result already applied to order.
func (r *repository) SavePayment(ctx context.Context, order *models.Order) error {
	res := r.DB(ctx).Model(order).Select(paymentColumns).Omit(clause.Associations).Updates(order)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

func (r *repository) AppendStatusLog(ctx context.Context, log *models.OrderStatusLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	return r.DB(ctx).Create(log).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, r.DB(ctx).Where("user_id = ?", userID), params)
}

// ListByVendor returns orders holding at least one of the vendor's items.
func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*OrderList, error) {
	sub := r.DB(ctx).Model(&models.OrderItem{}).Select("order_id").Where("vendor_id = ?", vendorID)
	return r.list(ctx, r.DB(ctx).Where("id IN (?)", sub), params)
}

func (r *repository) list(_ context.Context, query *gorm.DB, params pagination.Params) (*OrderList, error) {
	page, err := pagination.Keyset(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var rows []models.Order
	err = query.
		Scopes(page).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := &OrderList{}
	result.Orders, result.NextCursor = pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return result, nil
}

// FindExpirable returns pending gateway orders whose payment window closed, or
// that never received an expiry and were created before unpaidCutoff. Cash
// orders are settled by the vendor and never returned.
func (r *repository) FindExpirable(ctx context.Context, now, unpaidCutoff time.Time, limit int) ([]models.Order, error) {
	gatewayMethods := r.DB(ctx).Model(&models.PaymentMethod{}).
		Select("id").
		Where("type <> ?", enums.PaymentMethodTypeCash)

	var rows []models.Order
	err := r.DB(ctx).
		Preload("PaymentMethod").
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_method_id IN (?)", gatewayMethods).
		Where("(payment_expires_at IS NOT NULL AND payment_expires_at <= ?) OR (payment_expires_at IS NULL AND created_at <= ?)", now, unpaidCutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
