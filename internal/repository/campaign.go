package repository

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	FindByID(ctx context.Context, id uint) (*model.Campaign, error)

	// ActiveAt returns the campaign in effect at now for the given
	// category (nil-scoped campaigns apply everywhere). When legacy data
	// holds overlapping campaigns the lowest id wins, deterministically.
	ActiveAt(ctx context.Context, now time.Time, categoryID *uint) (*model.Campaign, error)

	// HasOverlap reports whether an active campaign overlaps the window
	// [startsAt, endsAt) with an intersecting scope.
	HasOverlap(ctx context.Context, startsAt, endsAt time.Time, categoryID *uint) (bool, error)

	ListUnannounced(ctx context.Context, now time.Time) ([]*model.Campaign, error)
	MarkAnnounced(ctx context.Context, id uint) error
	DeactivateEnded(ctx context.Context, now time.Time) (int64, error)
}

type campaignRepoImpl struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepoImpl{db: db}
}

func (r *campaignRepoImpl) Create(ctx context.Context, campaign *model.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *campaignRepoImpl) FindByID(ctx context.Context, id uint) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.WithContext(ctx).First(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepoImpl) ActiveAt(ctx context.Context, now time.Time, categoryID *uint) (*model.Campaign, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND starts_at <= ? AND ends_at > ?", true, now, now)
	if categoryID != nil {
		query = query.Where("category_id IS NULL OR category_id = ?", *categoryID)
	} else {
		query = query.Where("category_id IS NULL")
	}

	var campaign model.Campaign
	err := query.Order("id").First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *campaignRepoImpl) HasOverlap(ctx context.Context, startsAt, endsAt time.Time, categoryID *uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("is_active = ? AND starts_at < ? AND ends_at > ?", true, endsAt, startsAt)
	if categoryID != nil {
		// A global campaign intersects every scope.
		query = query.Where("category_id IS NULL OR category_id = ?", *categoryID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *campaignRepoImpl) ListUnannounced(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	var campaigns []*model.Campaign
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND announced = ? AND starts_at <= ? AND ends_at > ?",
			true, false, now, now).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *campaignRepoImpl) MarkAnnounced(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("id = ?", id).
		Update("announced", true).Error
}

func (r *campaignRepoImpl) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Campaign{}).
		Where("is_active = ? AND ends_at <= ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
