package repository

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type CustomRequestRepository interface {
	Create(ctx context.Context, request *model.CustomRequest) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.CustomRequest, error)
	CountOpenByAccount(ctx context.Context, accountID uint) (int64, error)
	Save(ctx context.Context, tx *gorm.DB, request *model.CustomRequest) error

	// MarkPaid moves accepted → paid; duplicate confirmations see zero
	// rows affected.
	MarkPaid(ctx context.Context, tx *gorm.DB, id uint, completedAt time.Time) (bool, error)
}

type customRequestRepoImpl struct {
	db *gorm.DB
}

func NewCustomRequestRepository(db *gorm.DB) CustomRequestRepository {
	return &customRequestRepoImpl{db: db}
}

func (r *customRequestRepoImpl) Create(ctx context.Context, request *model.CustomRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *customRequestRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.CustomRequest, error) {
	var request model.CustomRequest
	err := tx.WithContext(ctx).First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *customRequestRepoImpl) CountOpenByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CustomRequest{}).
		Where("account_id = ? AND status IN ?",
			accountID,
			[]model.RequestStatus{model.RequestPending, model.RequestAccepted},
		).
		Count(&count).Error
	return count, err
}

func (r *customRequestRepoImpl) Save(ctx context.Context, tx *gorm.DB, request *model.CustomRequest) error {
	return tx.WithContext(ctx).Save(request).Error
}

func (r *customRequestRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, id uint, completedAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.CustomRequest{}).
		Where("id = ? AND status IN ?",
			id,
			[]model.RequestStatus{model.RequestPending, model.RequestAccepted},
		).
		Updates(map[string]interface{}{
			"status":       model.RequestPaid,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
