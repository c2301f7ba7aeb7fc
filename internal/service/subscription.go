package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"content-paywall/internal/client"
	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TierPlan is the static subscription catalog entry for one tier.
type TierPlan struct {
	Tier         model.Tier
	PriceMonthly float64
}

// TierPlans is ordered lowest to highest.
var TierPlans = []TierPlan{
	{Tier: model.TierBronze, PriceMonthly: 9.99},
	{Tier: model.TierSilver, PriceMonthly: 19.99},
	{Tier: model.TierGold, PriceMonthly: 39.99},
}

func planFor(tier model.Tier) (TierPlan, bool) {
	for _, p := range TierPlans {
		if p.Tier == tier {
			return p, true
		}
	}
	return TierPlan{}, false
}

const subscriptionPeriod = 30 * 24 * time.Hour

type SubscribeResult struct {
	Subscription *model.Subscription
	ApproveURL   string
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, accountID uint, tier model.Tier) (*SubscribeResult, error)
	Cancel(ctx context.Context, accountID uint) (*model.Subscription, error)
	ActiveFor(ctx context.Context, accountID uint) (*model.Subscription, error)

	// Activate is the webhook-confirmation leg; it runs inside the
	// caller's transaction and is a no-op for an already-active row.
	Activate(ctx context.Context, tx *gorm.DB, subID uint) error
}

type subscriptionServiceImpl struct {
	db           *gorm.DB
	paypalClient client.PaypalClient
	accountRepo  repository.AccountRepository
	subRepo      repository.SubscriptionRepository
	refRepo      repository.PaymentRefRepository
}

func NewSubscriptionService(
	db *gorm.DB,
	paypalClient client.PaypalClient,
	accountRepo repository.AccountRepository,
	subRepo repository.SubscriptionRepository,
	refRepo repository.PaymentRefRepository,
) SubscriptionService {
	return &subscriptionServiceImpl{
		db:           db,
		paypalClient: paypalClient,
		accountRepo:  accountRepo,
		subRepo:      subRepo,
		refRepo:      refRepo,
	}
}

func (s *subscriptionServiceImpl) Subscribe(ctx context.Context, accountID uint, tier model.Tier) (*SubscribeResult, error) {
	plan, ok := planFor(tier)
	if !ok {
		return nil, model.Invalid("tier", fmt.Sprintf("unknown subscription tier %q", tier))
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsBanned {
		return nil, model.Invalid("account", "account is banned")
	}

	sub := &model.Subscription{
		AccountID:    account.ID,
		Tier:         plan.Tier,
		PriceMonthly: plan.PriceMonthly,
		Status:       model.SubPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.subRepo.Create(ctx, s.db, sub); err != nil {
		return nil, fmt.Errorf("store subscription: %w", err)
	}

	correlationID := uuid.NewString()
	resp, err := s.paypalClient.CreateOrder(ctx, plan.PriceMonthly,
		fmt.Sprintf("VIP %s subscription (1 month)", plan.Tier), correlationID)
	if err != nil {
		if markErr := s.db.WithContext(ctx).Model(sub).
			Update("status", model.SubExpired).Error; markErr != nil {
			log.Printf("mark subscription %d expired after provider error: %v", sub.ID, markErr)
		}
		return nil, &model.ProviderError{Op: "create order", Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.subRepo.SetExternalRef(ctx, tx, sub.ID, resp.ExternalRef); err != nil {
			return fmt.Errorf("store external ref: %w", err)
		}
		return s.refRepo.Create(ctx, tx, &model.PaymentReference{
			ExternalRef: resp.ExternalRef,
			Kind:        model.PaymentKindSubscription,
			InternalID:  sub.ID,
			CreatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	sub.ExternalRef = resp.ExternalRef
	return &SubscribeResult{
		Subscription: sub,
		ApproveURL:   resp.ApproveURL,
	}, nil
}

func (s *subscriptionServiceImpl) Activate(ctx context.Context, tx *gorm.DB, subID uint) error {
	sub, err := s.subRepo.FindByID(ctx, tx, subID)
	if err != nil {
		return err
	}
	if sub.Status == model.SubActive {
		return nil
	}

	now := time.Now().UTC()
	expires := now.Add(subscriptionPeriod)
	sub.Status = model.SubActive
	sub.StartedAt = &now
	sub.ExpiresAt = &expires
	if err := s.subRepo.Save(ctx, tx, sub); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	// Subscription raises the tier instantaneously; it never lowers it.
	if err := s.accountRepo.UpgradeTier(ctx, tx, sub.AccountID, sub.Tier); err != nil {
		return err
	}
	return s.accountRepo.AddSpendAndPoints(ctx, tx, sub.AccountID,
		sub.PriceMonthly, pointsFor(sub.PriceMonthly, "subscription"))
}

func (s *subscriptionServiceImpl) Cancel(ctx context.Context, accountID uint) (*model.Subscription, error) {
	sub, err := s.subRepo.FindActiveByAccount(ctx, accountID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub.Status = model.SubCancelled
	sub.CancelledAt = &now
	if err := s.subRepo.Save(ctx, s.db, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionServiceImpl) ActiveFor(ctx context.Context, accountID uint) (*model.Subscription, error) {
	return s.subRepo.FindActiveByAccount(ctx, accountID, time.Now().UTC())
}
