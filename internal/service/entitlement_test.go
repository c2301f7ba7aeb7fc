package service

import (
	"context"
	"errors"
	"testing"

	"content-paywall/internal/model"

	"github.com/stretchr/testify/require"
)

func TestGrantCreatesAndAccrues(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	record, created, err := env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 12.50, model.SourcePurchase)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 12.50, record.PricePaid)

	fresh := env.reload(t, account)
	require.Equal(t, 12.50, fresh.TotalSpent)
	require.Equal(t, 125, fresh.LoyaltyPoints)

	var itemRow model.ContentItem
	require.NoError(t, env.db.First(&itemRow, item.ID).Error)
	require.Equal(t, 1, itemRow.TotalSales)
}

func TestGrantIdempotent(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	_, created, err := env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 10.00, model.SourcePurchase)
	require.NoError(t, err)
	require.True(t, created)

	// Second grant for the same pair: no new row, no repeated accrual.
	_, created, err = env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 10.00, model.SourcePurchase)
	require.NoError(t, err)
	require.False(t, created)

	fresh := env.reload(t, account)
	require.Equal(t, 10.00, fresh.TotalSpent)
	require.Equal(t, 100, fresh.LoyaltyPoints)

	var count int64
	require.NoError(t, env.db.Model(&model.Entitlement{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var itemRow model.ContentItem
	require.NoError(t, env.db.First(&itemRow, item.ID).Error)
	require.Equal(t, 1, itemRow.TotalSales)
}

func TestGrantPointsFloorAndSubscriptionRate(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	itemA := env.createItem(t)
	itemB := env.createItem(t, func(i *model.ContentItem) { i.Title = "Beach Set" })

	_, _, err := env.entitlements.Grant(
		context.Background(), env.db, account.ID, itemA.ID, 1.99, model.SourcePurchase)
	require.NoError(t, err)
	require.Equal(t, 19, env.reload(t, account).LoyaltyPoints)

	_, _, err = env.entitlements.Grant(
		context.Background(), env.db, account.ID, itemB.ID, 2.00, "subscription")
	require.NoError(t, err)
	require.Equal(t, 49, env.reload(t, account).LoyaltyPoints)
}

func TestGrantUpgradesTierFromSpend(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	steps := []struct {
		price float64
		want  model.Tier
	}{
		{10.00, model.TierNone},   // 10 total
		{20.00, model.TierBronze}, // 30 total
		{50.00, model.TierSilver}, // 80 total
		{80.00, model.TierGold},   // 160 total
	}
	for i, step := range steps {
		item := env.createItem(t, func(it *model.ContentItem) {
			it.Title = string(rune('A' + i))
		})
		_, _, err := env.entitlements.Grant(
			context.Background(), env.db, account.ID, item.ID, step.price, model.SourcePurchase)
		require.NoError(t, err)
		require.Equal(t, step.want, env.reload(t, account).Tier)
	}
}

func TestGrantNeverLowersTier(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierGold })
	item := env.createItem(t)

	_, _, err := env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 1.00, model.SourcePurchase)
	require.NoError(t, err)
	require.Equal(t, model.TierGold, env.reload(t, account).Tier)
}

func TestGrantUnknownAccountOrItem(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	_, _, err := env.entitlements.Grant(
		context.Background(), env.db, 9999, item.ID, 1.00, model.SourcePurchase)
	require.True(t, errors.Is(err, model.ErrNotFound))

	_, _, err = env.entitlements.Grant(
		context.Background(), env.db, account.ID, 9999, 1.00, model.SourcePurchase)
	require.True(t, errors.Is(err, model.ErrNotFound))
}
