// Package repo holds the plumbing shared by the gorm repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/angelmondragon/rentmarket-backend/pkg/errors"
)

// Base is embedded by repositories. Its connection is either the pool or a
// transaction handed in through Bind.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// Bind switches to tx. A nil tx keeps the current connection.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx != nil {
		b.db = tx
	}
	return b
}

// DB scopes the connection to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Locked is DB plus SELECT ... FOR UPDATE. It only holds the row lock inside
// a transaction.
func (b Base) Locked(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// First loads the first row matched by q. A miss becomes a NOT_FOUND error
// reading "<entity> not found".
func First[T any](q *gorm.DB, entity string) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
		}
		return nil, err
	}
	return &row, nil
}
