package repository

import (
	"context"
	"errors"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type EntitlementRepository interface {
	Find(ctx context.Context, tx *gorm.DB, accountID, itemID uint) (*model.Entitlement, error)
	Create(ctx context.Context, tx *gorm.DB, entitlement *model.Entitlement) error
	Exists(ctx context.Context, accountID, itemID uint) (bool, error)
	ListByAccount(ctx context.Context, accountID uint) ([]*model.Entitlement, error)
}

type entitlementRepoImpl struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &entitlementRepoImpl{db: db}
}

func (r *entitlementRepoImpl) Find(ctx context.Context, tx *gorm.DB, accountID, itemID uint) (*model.Entitlement, error) {
	var entitlement model.Entitlement
	err := tx.WithContext(ctx).
		Where("account_id = ? AND item_id = ?", accountID, itemID).
		First(&entitlement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &entitlement, nil
}

func (r *entitlementRepoImpl) Create(ctx context.Context, tx *gorm.DB, entitlement *model.Entitlement) error {
	return tx.WithContext(ctx).Create(entitlement).Error
}

func (r *entitlementRepoImpl) Exists(ctx context.Context, accountID, itemID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Entitlement{}).
		Where("account_id = ? AND item_id = ?", accountID, itemID).
		Count(&count).Error
	return count > 0, err
}

func (r *entitlementRepoImpl) ListByAccount(ctx context.Context, accountID uint) ([]*model.Entitlement, error) {
	var entitlements []*model.Entitlement
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&entitlements).Error
	if err != nil {
		return nil, err
	}
	return entitlements, nil
}
