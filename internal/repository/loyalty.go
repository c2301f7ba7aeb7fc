package repository

import (
	"context"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type LoyaltyRepository interface {
	CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.LoyaltyRedemption) error
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
	ListByAccount(ctx context.Context, accountID uint, limit int) ([]*model.LoyaltyRedemption, error)
}

type loyaltyRepoImpl struct {
	db *gorm.DB
}

func NewLoyaltyRepository(db *gorm.DB) LoyaltyRepository {
	return &loyaltyRepoImpl{db: db}
}

func (r *loyaltyRepoImpl) CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.LoyaltyRedemption) error {
	return tx.WithContext(ctx).Create(redemption).Error
}

func (r *loyaltyRepoImpl) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LoyaltyRedemption{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

func (r *loyaltyRepoImpl) ListByAccount(ctx context.Context, accountID uint, limit int) ([]*model.LoyaltyRedemption, error) {
	var redemptions []*model.LoyaltyRedemption
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&redemptions).Error
	if err != nil {
		return nil, err
	}
	return redemptions, nil
}
