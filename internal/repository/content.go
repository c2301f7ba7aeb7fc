package repository

import (
	"context"
	"errors"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type ContentRepository interface {
	FindByID(ctx context.Context, id uint) (*model.ContentItem, error)
	Create(ctx context.Context, item *model.ContentItem) error
	ListActive(ctx context.Context, categoryID *uint) ([]*model.ContentItem, error)

	// ListPublicSafe returns only items cleared for public surfaces.
	// Private-only items must never cross this boundary.
	ListPublicSafe(ctx context.Context) ([]*model.ContentItem, error)

	// ListRelated is a plain same-category filter, not a ranking.
	ListRelated(ctx context.Context, item *model.ContentItem, limit int) ([]*model.ContentItem, error)

	IncrementSales(ctx context.Context, tx *gorm.DB, itemID uint) error

	ListCategories(ctx context.Context) ([]*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

type contentRepoImpl struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepoImpl{db: db}
}

func (r *contentRepoImpl) FindByID(ctx context.Context, id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *contentRepoImpl) Create(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *contentRepoImpl) ListActive(ctx context.Context, categoryID *uint) ([]*model.ContentItem, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	var items []*model.ContentItem
	if err := query.Order("total_sales DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepoImpl) ListPublicSafe(ctx context.Context) ([]*model.ContentItem, error) {
	var items []*model.ContentItem
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND classification = ?", true, model.ClassPublicSafe).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepoImpl) ListRelated(ctx context.Context, item *model.ContentItem, limit int) ([]*model.ContentItem, error) {
	if item.CategoryID == nil {
		return nil, nil
	}

	var items []*model.ContentItem
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND id != ? AND is_active = ?", *item.CategoryID, item.ID, true).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentRepoImpl) IncrementSales(ctx context.Context, tx *gorm.DB, itemID uint) error {
	return tx.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ?", itemID).
		Update("total_sales", gorm.Expr("total_sales + 1")).Error
}

func (r *contentRepoImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *contentRepoImpl) CreateCategory(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}
