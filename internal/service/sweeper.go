package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"content-paywall/internal/client"
	"content-paywall/internal/config"
	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"gorm.io/gorm"
)

const expiryReminderWindow = 24 * time.Hour

// Sweeper owns the periodic background work: drip releases, campaign
// announcements and subscription expiry. Each sweep isolates per-item
// failures so one bad row never stalls the rest of the batch.
type Sweeper struct {
	db           *gorm.DB
	cfg          config.Sweep
	notifier     client.Notifier
	deliverer    client.Deliverer
	accountRepo  repository.AccountRepository
	contentRepo  repository.ContentRepository
	campaignRepo repository.CampaignRepository
	dripRepo     repository.DripRepository
	subRepo      repository.SubscriptionRepository
	entitlements EntitlementService
}

func NewSweeper(
	db *gorm.DB,
	cfg config.Sweep,
	notifier client.Notifier,
	deliverer client.Deliverer,
	accountRepo repository.AccountRepository,
	contentRepo repository.ContentRepository,
	campaignRepo repository.CampaignRepository,
	dripRepo repository.DripRepository,
	subRepo repository.SubscriptionRepository,
	entitlements EntitlementService,
) *Sweeper {
	return &Sweeper{
		db:           db,
		cfg:          cfg,
		notifier:     notifier,
		deliverer:    deliverer,
		accountRepo:  accountRepo,
		contentRepo:  contentRepo,
		campaignRepo: campaignRepo,
		dripRepo:     dripRepo,
		subRepo:      subRepo,
		entitlements: entitlements,
	}
}

// Start launches one goroutine per sweep. They stop when ctx is
// cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go s.loop(ctx, "drip", s.cfg.DripInterval, s.SweepDrips)
	go s.loop(ctx, "promotion", s.cfg.PromotionInterval, s.SweepPromotions)
	go s.loop(ctx, "subscription", s.cfg.SubscriptionInterval, s.SweepSubscriptions)
}

func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, sweep func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				log.Printf("%s sweep: %v", name, err)
			}
		}
	}
}

// SweepDrips releases every due schedule exactly once. Eligibility is
// evaluated at fire time: accounts banned or below the required tier at
// this moment are skipped even if they qualified when the schedule was
// created.
func (s *Sweeper) SweepDrips(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := s.dripRepo.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due drips: %w", err)
	}

	for _, drip := range due {
		if err := s.releaseDrip(ctx, drip); err != nil {
			log.Printf("release drip %d: %v", drip.ID, err)
			continue
		}
		// Sent flips regardless of per-account delivery outcomes; the
		// schedule fires once and is never retried.
		if err := s.dripRepo.MarkSent(ctx, drip.ID); err != nil {
			log.Printf("mark drip %d sent: %v", drip.ID, err)
		}
	}
	return nil
}

func (s *Sweeper) releaseDrip(ctx context.Context, drip *model.DripSchedule) error {
	item, err := s.contentRepo.FindByID(ctx, drip.ItemID)
	if err != nil {
		return fmt.Errorf("load item %d: %w", drip.ItemID, err)
	}
	if !item.IsActive {
		return nil
	}

	accounts, err := s.accountRepo.ListNotBanned(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	for _, account := range accounts {
		if !account.Tier.AtLeast(drip.TierRequired) {
			continue
		}

		created := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			_, created, err = s.entitlements.Grant(ctx, tx, account.ID, item.ID, 0, model.SourceDrip)
			return err
		})
		if err != nil {
			log.Printf("drip %d grant account %d: %v", drip.ID, account.ID, err)
			continue
		}
		if !created {
			continue
		}

		if drip.Message != "" {
			if err := s.notifier.Notify(ctx, account, drip.Message); err != nil {
				log.Printf("drip %d notify account %d: %v", drip.ID, account.ID, err)
			}
		}
		if err := s.deliverer.Deliver(ctx, account, item); err != nil {
			log.Printf("drip %d deliver account %d: %v", drip.ID, account.ID, err)
		}
	}
	return nil
}

// SweepPromotions announces running campaigns that have not been
// announced yet and deactivates ended ones.
func (s *Sweeper) SweepPromotions(ctx context.Context) error {
	now := time.Now().UTC()

	campaigns, err := s.campaignRepo.ListUnannounced(ctx, now)
	if err != nil {
		return fmt.Errorf("list unannounced campaigns: %w", err)
	}
	for _, campaign := range campaigns {
		s.announceCampaign(ctx, campaign)
		// Announced flips after one attempt; a partial send is not
		// repeated to the whole audience.
		if err := s.campaignRepo.MarkAnnounced(ctx, campaign.ID); err != nil {
			log.Printf("mark campaign %d announced: %v", campaign.ID, err)
		}
	}

	ended, err := s.campaignRepo.DeactivateEnded(ctx, now)
	if err != nil {
		return fmt.Errorf("deactivate ended campaigns: %w", err)
	}
	if ended > 0 {
		log.Printf("deactivated %d ended campaigns", ended)
	}
	return nil
}

func (s *Sweeper) announceCampaign(ctx context.Context, campaign *model.Campaign) {
	accounts, err := s.accountRepo.ListNotBanned(ctx)
	if err != nil {
		log.Printf("announce campaign %d: list accounts: %v", campaign.ID, err)
		return
	}

	text := fmt.Sprintf("🔥 %s! %d%% off until %s.",
		campaign.Title, campaign.DiscountPercent,
		campaign.EndsAt.Format("Jan 2 15:04 MST"))
	for _, account := range accounts {
		if err := s.notifier.Notify(ctx, account, text); err != nil {
			log.Printf("announce campaign %d to account %d: %v", campaign.ID, account.ID, err)
		}
	}
}

// SweepSubscriptions reminds soon-to-expire subscribers and expires
// overdue rows. Expiry is the only path that lowers a tier, and the new
// tier is recomputed purely from lifetime spend.
func (s *Sweeper) SweepSubscriptions(ctx context.Context) error {
	now := time.Now().UTC()

	expiring, err := s.subRepo.ListExpiringWithin(ctx, now, expiryReminderWindow)
	if err != nil {
		return fmt.Errorf("list expiring subscriptions: %w", err)
	}
	for _, sub := range expiring {
		account, err := s.accountRepo.FindByID(ctx, sub.AccountID)
		if err != nil {
			log.Printf("remind subscription %d: %v", sub.ID, err)
			continue
		}
		text := fmt.Sprintf("Your %s subscription expires %s. Renew to keep your perks.",
			sub.Tier, sub.ExpiresAt.Format("Jan 2 15:04 MST"))
		if err := s.notifier.Notify(ctx, account, text); err != nil {
			log.Printf("remind subscription %d: %v", sub.ID, err)
		}
	}

	overdue, err := s.subRepo.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("list overdue subscriptions: %w", err)
	}
	for _, sub := range overdue {
		if err := s.expireSubscription(ctx, sub, now); err != nil {
			log.Printf("expire subscription %d: %v", sub.ID, err)
		}
	}
	return nil
}

func (s *Sweeper) expireSubscription(ctx context.Context, sub *model.Subscription, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub.Status = model.SubExpired
		if err := s.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}

		other, err := s.subRepo.HasOtherActive(ctx, tx, sub.AccountID, sub.ID, now)
		if err != nil {
			return err
		}
		if other {
			return nil
		}

		account, err := s.accountRepo.FindByIDTx(ctx, tx, sub.AccountID)
		if err != nil {
			return err
		}
		earned := model.TierFromSpend(account.TotalSpent)
		if earned == account.Tier {
			return nil
		}
		account.Tier = earned
		return s.accountRepo.Save(ctx, tx, account)
	})
}
