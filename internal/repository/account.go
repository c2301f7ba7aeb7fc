package repository

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"

	"gorm.io/gorm"
)

type AccountRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Account, error)
	GetOrCreate(ctx context.Context, externalID, username string) (*model.Account, error)
	ListNotBanned(ctx context.Context) ([]*model.Account, error)
	Save(ctx context.Context, tx *gorm.DB, account *model.Account) error

	// DebitPoints atomically subtracts points if the balance covers them.
	// Returns false without mutating when the balance is insufficient.
	DebitPoints(ctx context.Context, tx *gorm.DB, accountID uint, points int) (bool, error)

	// AddSpendAndPoints accrues lifetime spend and loyalty points as a
	// single atomic update, safe under concurrent grants for the same
	// account.
	AddSpendAndPoints(ctx context.Context, tx *gorm.DB, accountID uint, spend float64, points int) error

	// DebitFreeUnlock consumes one free-unlock credit if any remain.
	DebitFreeUnlock(ctx context.Context, tx *gorm.DB, accountID uint) (bool, error)

	// ClearPendingDiscount consumes the single-use loyalty discount.
	ClearPendingDiscount(ctx context.Context, tx *gorm.DB, accountID uint) error

	FindByIDTx(ctx context.Context, tx *gorm.DB, id uint) (*model.Account, error)

	// UpgradeTier raises the tier and never lowers it; the conditional
	// WHERE keeps concurrent upgrades monotonic.
	UpgradeTier(ctx context.Context, tx *gorm.DB, accountID uint, tier model.Tier) error
}

type accountRepoImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepoImpl{db: db}
}

func (r *accountRepoImpl) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepoImpl) FindByExternalID(ctx context.Context, externalID string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepoImpl) GetOrCreate(ctx context.Context, externalID, username string) (*model.Account, error) {
	account, err := r.FindByExternalID(ctx, externalID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	account = &model.Account{
		ExternalID:   externalID,
		Username:     username,
		Tier:         model.TierNone,
		FreeUnlocks:  1,
		LastActiveAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepoImpl) ListNotBanned(ctx context.Context) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("is_banned = ?", false).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepoImpl) Save(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return tx.WithContext(ctx).Save(account).Error
}

func (r *accountRepoImpl) DebitPoints(ctx context.Context, tx *gorm.DB, accountID uint, points int) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND loyalty_points >= ?", accountID, points).
		Update("loyalty_points", gorm.Expr("loyalty_points - ?", points))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *accountRepoImpl) AddSpendAndPoints(ctx context.Context, tx *gorm.DB, accountID uint, spend float64, points int) error {
	return tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"total_spent":    gorm.Expr("total_spent + ?", spend),
			"loyalty_points": gorm.Expr("loyalty_points + ?", points),
		}).Error
}

func (r *accountRepoImpl) DebitFreeUnlock(ctx context.Context, tx *gorm.DB, accountID uint) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND free_unlocks > 0", accountID).
		Update("free_unlocks", gorm.Expr("free_unlocks - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *accountRepoImpl) ClearPendingDiscount(ctx context.Context, tx *gorm.DB, accountID uint) error {
	return tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", accountID).
		Update("pending_discount_pct", 0).Error
}

func (r *accountRepoImpl) FindByIDTx(ctx context.Context, tx *gorm.DB, id uint) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepoImpl) UpgradeTier(ctx context.Context, tx *gorm.DB, accountID uint, tier model.Tier) error {
	var lower []model.Tier
	for _, t := range []model.Tier{model.TierNone, model.TierBronze, model.TierSilver, model.TierGold} {
		if t.Rank() < tier.Rank() {
			lower = append(lower, t)
		}
	}
	if len(lower) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND tier IN ?", accountID, lower).
		Update("tier", tier).Error
}
