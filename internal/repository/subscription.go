package repository

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Subscription, error)
	SetExternalRef(ctx context.Context, tx *gorm.DB, subID uint, externalRef string) error
	Save(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error

	FindActiveByAccount(ctx context.Context, accountID uint, now time.Time) (*model.Subscription, error)

	// HasOtherActive reports whether the account holds an active
	// subscription other than excludeID at now.
	HasOtherActive(ctx context.Context, tx *gorm.DB, accountID, excludeID uint, now time.Time) (bool, error)

	ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Subscription, error)
	ListOverdue(ctx context.Context, now time.Time) ([]*model.Subscription, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{db: db}
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := tx.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepoImpl) SetExternalRef(ctx context.Context, tx *gorm.DB, subID uint, externalRef string) error {
	return tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", subID).
		Update("external_ref", externalRef).Error
}

func (r *subscriptionRepoImpl) Save(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	return tx.WithContext(ctx).Save(sub).Error
}

func (r *subscriptionRepoImpl) FindActiveByAccount(ctx context.Context, accountID uint, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND expires_at > ?",
			accountID, model.SubActive, now).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepoImpl) HasOtherActive(ctx context.Context, tx *gorm.DB, accountID, excludeID uint, now time.Time) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Subscription{}).
		Where("account_id = ? AND id != ? AND status = ? AND expires_at > ?",
			accountID, excludeID, model.SubActive, now).
		Count(&count).Error
	return count > 0, err
}

func (r *subscriptionRepoImpl) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ? AND expires_at <= ?",
			model.SubActive, now, now.Add(window)).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepoImpl) ListOverdue(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	// Cancelled subscriptions keep their perks until expiry, so they are
	// reconciled here together with active ones.
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at <= ?",
			[]model.SubscriptionStatus{model.SubActive, model.SubCancelled}, now).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
