package repository

import (
	"context"
	"errors"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

// PaymentRefRepository is the tagged index mapping an external payment
// reference to the record kind it pays for. One lookup replaces
// sequential fallback queries across orders, subscriptions and custom
// requests sharing the provider's id namespace.
type PaymentRefRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ref *model.PaymentReference) error
	Find(ctx context.Context, tx *gorm.DB, externalRef string) (*model.PaymentReference, error)
}

type paymentRefRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRefRepository(db *gorm.DB) PaymentRefRepository {
	return &paymentRefRepoImpl{db: db}
}

func (r *paymentRefRepoImpl) Create(ctx context.Context, tx *gorm.DB, ref *model.PaymentReference) error {
	return tx.WithContext(ctx).Create(ref).Error
}

func (r *paymentRefRepoImpl) Find(ctx context.Context, tx *gorm.DB, externalRef string) (*model.PaymentReference, error) {
	var ref model.PaymentReference
	err := tx.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}
