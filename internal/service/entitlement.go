package service

import (
	"context"
	"errors"
	"math"
	"time"

	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"gorm.io/gorm"
)

// EntitlementService is the durable record of what each account has
// unlocked. Grant is idempotent per (account, item); all first-grant
// side effects ride the caller's transaction.
type EntitlementService interface {
	Has(ctx context.Context, accountID, itemID uint) (bool, error)
	ListByAccount(ctx context.Context, accountID uint) ([]*model.Entitlement, error)

	// Grant returns the existing record unchanged when the account
	// already owns the item; created reports whether this call made it.
	Grant(ctx context.Context, tx *gorm.DB, accountID, itemID uint, pricePaid float64, source string) (record *model.Entitlement, created bool, err error)
}

type entitlementServiceImpl struct {
	accountRepo     repository.AccountRepository
	contentRepo     repository.ContentRepository
	entitlementRepo repository.EntitlementRepository
}

func NewEntitlementService(
	accountRepo repository.AccountRepository,
	contentRepo repository.ContentRepository,
	entitlementRepo repository.EntitlementRepository,
) EntitlementService {
	return &entitlementServiceImpl{
		accountRepo:     accountRepo,
		contentRepo:     contentRepo,
		entitlementRepo: entitlementRepo,
	}
}

func (s *entitlementServiceImpl) Has(ctx context.Context, accountID, itemID uint) (bool, error) {
	return s.entitlementRepo.Exists(ctx, accountID, itemID)
}

func (s *entitlementServiceImpl) ListByAccount(ctx context.Context, accountID uint) ([]*model.Entitlement, error) {
	return s.entitlementRepo.ListByAccount(ctx, accountID)
}

func (s *entitlementServiceImpl) Grant(ctx context.Context, tx *gorm.DB, accountID, itemID uint, pricePaid float64, source string) (*model.Entitlement, bool, error) {
	if _, err := s.accountRepo.FindByIDTx(ctx, tx, accountID); err != nil {
		return nil, false, err
	}
	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.entitlementRepo.Find(ctx, tx, accountID, itemID)
	if err == nil {
		// Already granted: no duplicate row, no sale-counter increment,
		// no second loyalty credit.
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}

	record := &model.Entitlement{
		AccountID: accountID,
		ItemID:    itemID,
		PricePaid: pricePaid,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.entitlementRepo.Create(ctx, tx, record); err != nil {
		return nil, false, err
	}

	if err := s.contentRepo.IncrementSales(ctx, tx, item.ID); err != nil {
		return nil, false, err
	}

	if err := s.accountRepo.AddSpendAndPoints(ctx, tx, accountID, pricePaid, pointsFor(pricePaid, source)); err != nil {
		return nil, false, err
	}

	// Spend only raises the tier here; lowering happens solely in the
	// subscription-expiry sweep.
	account, err := s.accountRepo.FindByIDTx(ctx, tx, accountID)
	if err != nil {
		return nil, false, err
	}
	if derived := model.TierFromSpend(account.TotalSpent); derived.Rank() > account.Tier.Rank() {
		if err := s.accountRepo.UpgradeTier(ctx, tx, accountID, derived); err != nil {
			return nil, false, err
		}
	}

	return record, true, nil
}

// pointsFor accrues 10 points per dollar, 15 for subscription-sourced
// grants.
func pointsFor(pricePaid float64, source string) int {
	rate := 10.0
	if source == "subscription" {
		rate = 15.0
	}
	return int(math.Floor(pricePaid * rate))
}
