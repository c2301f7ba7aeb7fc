package repository

import (
	"context"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type DripRepository interface {
	Create(ctx context.Context, drip *model.DripSchedule) error
	ListDue(ctx context.Context, now time.Time) ([]*model.DripSchedule, error)
	MarkSent(ctx context.Context, id uint) error
}

type dripRepoImpl struct {
	db *gorm.DB
}

func NewDripRepository(db *gorm.DB) DripRepository {
	return &dripRepoImpl{db: db}
}

func (r *dripRepoImpl) Create(ctx context.Context, drip *model.DripSchedule) error {
	return r.db.WithContext(ctx).Create(drip).Error
}

func (r *dripRepoImpl) ListDue(ctx context.Context, now time.Time) ([]*model.DripSchedule, error) {
	var drips []*model.DripSchedule
	err := r.db.WithContext(ctx).
		Where("sent = ? AND send_at <= ?", false, now).
		Order("send_at").
		Find(&drips).Error
	if err != nil {
		return nil, err
	}
	return drips, nil
}

func (r *dripRepoImpl) MarkSent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.DripSchedule{}).
		Where("id = ?", id).
		Update("sent", true).Error
}
