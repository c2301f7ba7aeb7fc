package service

import (
	"context"
	"fmt"
	"time"

	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"gorm.io/gorm"
)

// RewardEffect is the closed set of things a redemption can grant. One
// explicit handler per variant, no string-keyed dispatch.
type RewardEffect interface {
	rewardEffect()
}

// FreeUnlockGrant adds one free-unlock token.
type FreeUnlockGrant struct{}

// DiscountGrant arms a single-use percentage discount for the next
// purchase.
type DiscountGrant struct {
	Percent int
}

// ImageUnlockGrant unlocks one chosen item at or below TierLimit.
type ImageUnlockGrant struct {
	TierLimit model.Tier
}

func (FreeUnlockGrant) rewardEffect()  {}
func (DiscountGrant) rewardEffect()    {}
func (ImageUnlockGrant) rewardEffect() {}

// Reward is one static catalog entry.
type Reward struct {
	Key    string
	Name   string
	Points int
	Effect RewardEffect
}

// RewardCatalog is static configuration, not user data.
var RewardCatalog = []Reward{
	{Key: "discount_10", Name: "10% Off Next Purchase", Points: 300, Effect: DiscountGrant{Percent: 10}},
	{Key: "free_unlock_token", Name: "+1 Free Unlock Token", Points: 400, Effect: FreeUnlockGrant{}},
	{Key: "unlock_basic", Name: "Unlock Any Basic Item", Points: 500, Effect: ImageUnlockGrant{TierLimit: model.TierBronze}},
	{Key: "discount_25", Name: "25% Off Next Purchase", Points: 700, Effect: DiscountGrant{Percent: 25}},
	{Key: "unlock_premium", Name: "Unlock Any Premium Item", Points: 1200, Effect: ImageUnlockGrant{TierLimit: model.TierSilver}},
}

func rewardFor(key string) (Reward, bool) {
	for _, r := range RewardCatalog {
		if r.Key == key {
			return r, true
		}
	}
	return Reward{}, false
}

type RedeemResult struct {
	Reward           Reward
	PointsRemaining  int
	GrantedItem      *model.ContentItem
	ArmedDiscountPct int
}

// LoyaltyService debits points atomically with the reward side effect
// and appends an immutable redemption row. The balance can never go
// negative: an unaffordable redemption is rejected before any mutation.
type LoyaltyService interface {
	Redeem(ctx context.Context, accountID uint, rewardKey string, chosenItemID *uint) (*RedeemResult, error)
	Redemptions(ctx context.Context, accountID uint, limit int) ([]*model.LoyaltyRedemption, error)
}

type loyaltyServiceImpl struct {
	db           *gorm.DB
	accountRepo  repository.AccountRepository
	contentRepo  repository.ContentRepository
	loyaltyRepo  repository.LoyaltyRepository
	entitlements EntitlementService
}

func NewLoyaltyService(
	db *gorm.DB,
	accountRepo repository.AccountRepository,
	contentRepo repository.ContentRepository,
	loyaltyRepo repository.LoyaltyRepository,
	entitlements EntitlementService,
) LoyaltyService {
	return &loyaltyServiceImpl{
		db:           db,
		accountRepo:  accountRepo,
		contentRepo:  contentRepo,
		loyaltyRepo:  loyaltyRepo,
		entitlements: entitlements,
	}
}

func (s *loyaltyServiceImpl) Redeem(ctx context.Context, accountID uint, rewardKey string, chosenItemID *uint) (*RedeemResult, error) {
	reward, ok := rewardFor(rewardKey)
	if !ok {
		return nil, model.Invalid("reward", fmt.Sprintf("unknown reward %q", rewardKey))
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.LoyaltyPoints < reward.Points {
		return nil, model.Invalid("loyalty_points",
			fmt.Sprintf("need %d points, have %d", reward.Points, account.LoyaltyPoints))
	}

	result := &RedeemResult{Reward: reward}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debited, err := s.accountRepo.DebitPoints(ctx, tx, account.ID, reward.Points)
		if err != nil {
			return err
		}
		if !debited {
			return model.Invalid("loyalty_points",
				fmt.Sprintf("need %d points, have %d", reward.Points, account.LoyaltyPoints))
		}

		redemption := &model.LoyaltyRedemption{
			AccountID:   account.ID,
			PointsSpent: reward.Points,
			RewardType:  reward.Key,
			CreatedAt:   time.Now().UTC(),
		}

		switch effect := reward.Effect.(type) {
		case FreeUnlockGrant:
			if err := tx.WithContext(ctx).Model(&model.Account{}).
				Where("id = ?", account.ID).
				Update("free_unlocks", gorm.Expr("free_unlocks + 1")).Error; err != nil {
				return err
			}

		case DiscountGrant:
			if err := tx.WithContext(ctx).Model(&model.Account{}).
				Where("id = ?", account.ID).
				Update("pending_discount_pct", effect.Percent).Error; err != nil {
				return err
			}
			result.ArmedDiscountPct = effect.Percent

		case ImageUnlockGrant:
			item, err := s.eligibleUnlockItem(ctx, tx, account.ID, effect.TierLimit, chosenItemID)
			if err != nil {
				return err
			}
			if _, _, err := s.entitlements.Grant(ctx, tx, account.ID, item.ID, 0, model.SourceLoyalty); err != nil {
				return err
			}
			redemption.ItemID = &item.ID
			result.GrantedItem = item

		default:
			return fmt.Errorf("unhandled reward effect %T", effect)
		}

		return s.loyaltyRepo.CreateRedemption(ctx, tx, redemption)
	})
	if err != nil {
		return nil, err
	}

	refreshed, err := s.accountRepo.FindByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	result.PointsRemaining = refreshed.LoyaltyPoints
	return result, nil
}

func (s *loyaltyServiceImpl) eligibleUnlockItem(ctx context.Context, tx *gorm.DB, accountID uint, tierLimit model.Tier, chosenItemID *uint) (*model.ContentItem, error) {
	if chosenItemID == nil {
		return nil, model.Invalid("item_id", "an item must be chosen for an unlock reward")
	}
	item, err := s.contentRepo.FindByID(ctx, *chosenItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, model.Invalid("item", "item is not available")
	}
	if item.Tier.Rank() > tierLimit.Rank() {
		return nil, model.Invalid("item",
			fmt.Sprintf("item tier %s exceeds reward limit %s", item.Tier, tierLimit))
	}
	owned, err := s.entitlements.Has(ctx, accountID, item.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, model.ErrAlreadyEntitled
	}
	return item, nil
}

func (s *loyaltyServiceImpl) Redemptions(ctx context.Context, accountID uint, limit int) ([]*model.LoyaltyRedemption, error) {
	return s.loyaltyRepo.ListByAccount(ctx, accountID, limit)
}
