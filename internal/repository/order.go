package repository

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error)
	FindByExternalRef(ctx context.Context, tx *gorm.DB, externalRef string) (*model.Order, error)
	SetExternalRef(ctx context.Context, tx *gorm.DB, orderID uint, externalRef string) error
	MarkFailed(ctx context.Context, orderID uint) error

	// MarkApproved moves initiated → externally_approved; a no-op for any
	// other current status.
	MarkApproved(ctx context.Context, tx *gorm.DB, externalRef string) error

	// MarkFulfilled conditionally transitions to fulfilled and reports
	// whether this call won the transition. Duplicate confirmations for
	// the same reference see zero rows affected.
	MarkFulfilled(ctx context.Context, tx *gorm.DB, orderID uint, completedAt time.Time) (bool, error)

	ListFulfilledByAccount(ctx context.Context, accountID uint, limit int) ([]*model.Order, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByExternalRef(ctx context.Context, tx *gorm.DB, externalRef string) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) SetExternalRef(ctx context.Context, tx *gorm.DB, orderID uint, externalRef string) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("external_ref", externalRef).Error
}

func (r *orderRepoImpl) MarkFailed(ctx context.Context, orderID uint) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderInitiated).
		Update("status", model.OrderFailed).Error
}

func (r *orderRepoImpl) MarkApproved(ctx context.Context, tx *gorm.DB, externalRef string) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("external_ref = ? AND status = ?", externalRef, model.OrderInitiated).
		Update("status", model.OrderApproved).Error
}

func (r *orderRepoImpl) MarkFulfilled(ctx context.Context, tx *gorm.DB, orderID uint, completedAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?",
			orderID,
			[]model.OrderStatus{model.OrderInitiated, model.OrderApproved},
		).
		Updates(map[string]interface{}{
			"status":       model.OrderFulfilled,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) ListFulfilledByAccount(ctx context.Context, accountID uint, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, model.OrderFulfilled).
		Order("completed_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
