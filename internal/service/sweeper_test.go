package service

import (
	"context"
	"testing"
	"time"

	"content-paywall/internal/model"

	"github.com/stretchr/testify/require"
)

func (env *testEnv) createDrip(t *testing.T, itemID uint, tier model.Tier, sendAt time.Time) *model.DripSchedule {
	t.Helper()
	drip := &model.DripSchedule{
		ItemID:       itemID,
		TierRequired: tier,
		SendAt:       sendAt,
		Message:      "New drop just for you",
	}
	require.NoError(t, env.db.Create(drip).Error)
	return drip
}

func TestSweepDripsFiresOnce(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t)
	account := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierBronze })

	env.createDrip(t, item.ID, model.TierBronze, time.Now().UTC().Add(-time.Minute))

	require.NoError(t, env.sweeper.SweepDrips(context.Background()))
	require.NoError(t, env.sweeper.SweepDrips(context.Background()))

	// One grant, one delivery, regardless of how many sweeps ran.
	require.Equal(t, []uint{item.ID}, env.msgr.delivered)

	owned, err := env.entitlements.Has(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.True(t, owned)

	var drip model.DripSchedule
	require.NoError(t, env.db.First(&drip).Error)
	require.True(t, drip.Sent)
}

func TestSweepDripsNotDueYet(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t)
	env.createAccount(t, func(a *model.Account) { a.Tier = model.TierGold })

	env.createDrip(t, item.ID, model.TierNone, time.Now().UTC().Add(time.Hour))

	require.NoError(t, env.sweeper.SweepDrips(context.Background()))
	require.Empty(t, env.msgr.delivered)
}

func TestSweepDripsEligibilityAtFireTime(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t)

	// Below the gate and banned accounts are skipped at fire time; an
	// account upgraded after scheduling is included.
	low := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierNone })
	banned := env.createAccount(t, func(a *model.Account) {
		a.Tier = model.TierGold
		a.IsBanned = true
	})
	upgraded := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierSilver })

	env.createDrip(t, item.ID, model.TierSilver, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, env.sweeper.SweepDrips(context.Background()))

	for accountID, want := range map[uint]bool{
		low.ID:      false,
		banned.ID:   false,
		upgraded.ID: true,
	} {
		owned, err := env.entitlements.Has(context.Background(), accountID, item.ID)
		require.NoError(t, err)
		require.Equal(t, want, owned, "account %d", accountID)
	}
}

func TestSweepPromotionsAnnouncesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t)
	env.createAccount(t, func(a *model.Account) { a.IsBanned = true })

	now := time.Now().UTC()
	campaign := &model.Campaign{
		Title:           "Weekend Flash",
		DiscountPercent: 30,
		StartsAt:        now.Add(-time.Hour),
		EndsAt:          now.Add(time.Hour),
		IsActive:        true,
	}
	require.NoError(t, env.db.Create(campaign).Error)

	require.NoError(t, env.sweeper.SweepPromotions(context.Background()))
	require.NoError(t, env.sweeper.SweepPromotions(context.Background()))

	// One note to the one non-banned account, sent once.
	require.Len(t, env.msgr.notes, 1)

	var fresh model.Campaign
	require.NoError(t, env.db.First(&fresh, campaign.ID).Error)
	require.True(t, fresh.Announced)
}

func TestSweepPromotionsDeactivatesEnded(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now().UTC()
	campaign := &model.Campaign{
		Title:           "Over",
		DiscountPercent: 30,
		StartsAt:        now.Add(-2 * time.Hour),
		EndsAt:          now.Add(-time.Hour),
		IsActive:        true,
		Announced:       true,
	}
	require.NoError(t, env.db.Create(campaign).Error)

	require.NoError(t, env.sweeper.SweepPromotions(context.Background()))

	var fresh model.Campaign
	require.NoError(t, env.db.First(&fresh, campaign.ID).Error)
	require.False(t, fresh.IsActive)
}

func TestSweepSubscriptionsExpiresAndLowersTier(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, func(a *model.Account) {
		a.Tier = model.TierGold
		a.TotalSpent = 30.00 // earns bronze on its own
	})

	started := time.Now().UTC().Add(-31 * 24 * time.Hour)
	expired := time.Now().UTC().Add(-time.Hour)
	sub := &model.Subscription{
		AccountID:    account.ID,
		Tier:         model.TierGold,
		PriceMonthly: 39.99,
		Status:       model.SubActive,
		StartedAt:    &started,
		ExpiresAt:    &expired,
	}
	require.NoError(t, env.db.Create(sub).Error)

	require.NoError(t, env.sweeper.SweepSubscriptions(context.Background()))

	var freshSub model.Subscription
	require.NoError(t, env.db.First(&freshSub, sub.ID).Error)
	require.Equal(t, model.SubExpired, freshSub.Status)

	// Tier falls back to what lifetime spend alone earns.
	require.Equal(t, model.TierBronze, env.reload(t, account).Tier)
}

func TestSweepSubscriptionsKeepsTierWithOtherActive(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierGold })

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(15 * 24 * time.Hour)
	require.NoError(t, env.db.Create(&model.Subscription{
		AccountID: account.ID,
		Tier:      model.TierSilver,
		Status:    model.SubActive,
		ExpiresAt: &past,
	}).Error)
	require.NoError(t, env.db.Create(&model.Subscription{
		AccountID: account.ID,
		Tier:      model.TierGold,
		Status:    model.SubActive,
		ExpiresAt: &future,
	}).Error)

	require.NoError(t, env.sweeper.SweepSubscriptions(context.Background()))
	require.Equal(t, model.TierGold, env.reload(t, account).Tier)
}

func TestCancelledKeepsPerksUntilExpiry(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierSilver })

	cancelled := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(10 * 24 * time.Hour)
	sub := &model.Subscription{
		AccountID:   account.ID,
		Tier:        model.TierSilver,
		Status:      model.SubCancelled,
		CancelledAt: &cancelled,
		ExpiresAt:   &future,
	}
	require.NoError(t, env.db.Create(sub).Error)

	// Not yet expired: the cancelled subscription still carries its perks.
	require.NoError(t, env.sweeper.SweepSubscriptions(context.Background()))
	require.Equal(t, model.TierSilver, env.reload(t, account).Tier)

	var freshSub model.Subscription
	require.NoError(t, env.db.First(&freshSub, sub.ID).Error)
	require.Equal(t, model.SubCancelled, freshSub.Status)

	// Past expiry the sweep reconciles it like an active one.
	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.db.Model(&freshSub).Update("expires_at", past).Error)

	require.NoError(t, env.sweeper.SweepSubscriptions(context.Background()))
	require.NoError(t, env.db.First(&freshSub, sub.ID).Error)
	require.Equal(t, model.SubExpired, freshSub.Status)
	require.Equal(t, model.TierNone, env.reload(t, account).Tier)
}

func TestSweepSubscriptionsReminds(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	soon := time.Now().UTC().Add(12 * time.Hour)
	require.NoError(t, env.db.Create(&model.Subscription{
		AccountID: account.ID,
		Tier:      model.TierBronze,
		Status:    model.SubActive,
		ExpiresAt: &soon,
	}).Error)

	require.NoError(t, env.sweeper.SweepSubscriptions(context.Background()))
	require.Len(t, env.msgr.notes, 1)
}
