package service

import (
	"context"
	"errors"
	"time"

	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"github.com/shopspring/decimal"
)

// Quote is the resolved price of an item at a point in time.
type Quote struct {
	Price           float64
	DiscountPercent int
	OnPromotion     bool
}

// PricingService computes effective prices. Pure read: same
// (item, time, account) always yields the same quote.
type PricingService interface {
	Resolve(ctx context.Context, item *model.ContentItem, account *model.Account, now time.Time) (*Quote, error)
}

type pricingServiceImpl struct {
	campaignRepo repository.CampaignRepository
}

func NewPricingService(campaignRepo repository.CampaignRepository) PricingService {
	return &pricingServiceImpl{campaignRepo: campaignRepo}
}

// Resolve applies at most one active campaign, then the account's tier
// multiplier. Rounding to two decimals happens after each stage, not
// once at the end; prices quoted to buyers must reproduce exactly.
func (s *pricingServiceImpl) Resolve(ctx context.Context, item *model.ContentItem, account *model.Account, now time.Time) (*Quote, error) {
	quote := &Quote{Price: item.Price}

	campaign, err := s.campaignRepo.ActiveAt(ctx, now, item.CategoryID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if campaign != nil {
		quote.Price = roundStage(item.Price, float64(100-campaign.DiscountPercent)/100)
		quote.DiscountPercent = campaign.DiscountPercent
		quote.OnPromotion = true
	}

	if account != nil {
		if m := account.Tier.Multiplier(); m != 1.0 {
			quote.Price = roundStage(quote.Price, m)
		}
	}

	return quote, nil
}

func roundStage(price, multiplier float64) float64 {
	v := decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(multiplier)).
		Round(2)
	f, _ := v.Float64()
	return f
}
