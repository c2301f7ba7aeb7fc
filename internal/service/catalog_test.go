package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-paywall/internal/model"

	"github.com/stretchr/testify/require"
)

func TestCreateItemClassification(t *testing.T) {
	env := newTestEnv(t)

	item, err := env.catalog.CreateItem(context.Background(), CreateItemInput{
		Title:   "Beach Day",
		Price:   5.00,
		Tier:    model.TierBronze,
		Content: []byte("media"),
	})
	require.NoError(t, err)
	require.Equal(t, model.ClassPublicSafe, item.Classification)
	require.False(t, item.IsExplicit)

	env.clsf.explicit = true
	item, err = env.catalog.CreateItem(context.Background(), CreateItemInput{
		Title:   "After Dark",
		Price:   15.00,
		Tier:    model.TierSilver,
		Content: []byte("media"),
	})
	require.NoError(t, err)
	require.Equal(t, model.ClassPrivateOnly, item.Classification)
	require.True(t, item.IsExplicit)
}

func TestCreateItemClassifierOutage(t *testing.T) {
	env := newTestEnv(t)
	env.clsf.err = errors.New("classifier down")

	// The upload still lands, with the conservative default.
	item, err := env.catalog.CreateItem(context.Background(), CreateItemInput{
		Title:   "Mystery",
		Price:   5.00,
		Tier:    model.TierBronze,
		Content: []byte("media"),
	})
	require.NoError(t, err)
	require.Equal(t, model.ClassPrivateOnly, item.Classification)
}

func TestPublicPreviewExcludesPrivate(t *testing.T) {
	env := newTestEnv(t)
	public := env.createItem(t, func(i *model.ContentItem) {
		i.Classification = model.ClassPublicSafe
	})
	env.createItem(t, func(i *model.ContentItem) {
		i.Title = "Private"
		i.Classification = model.ClassPrivateOnly
	})

	listed, err := env.catalog.PublicPreview(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, public.ID, listed[0].Item.ID)
}

func TestCreateCampaignValidation(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	var ve *model.ValidationError

	_, err := env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Zero", DiscountPercent: 0, StartsAt: now, EndsAt: now.Add(time.Hour),
	})
	require.True(t, errors.As(err, &ve))

	_, err = env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Too deep", DiscountPercent: 91, StartsAt: now, EndsAt: now.Add(time.Hour),
	})
	require.True(t, errors.As(err, &ve))

	_, err = env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Backwards", DiscountPercent: 20, StartsAt: now.Add(time.Hour), EndsAt: now,
	})
	require.True(t, errors.As(err, &ve))

	campaign, err := env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Valid", DiscountPercent: 20, StartsAt: now, EndsAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.True(t, campaign.IsActive)
	require.False(t, campaign.Announced)
}

func TestCreateCampaignRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	_, err := env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "First", DiscountPercent: 20,
		StartsAt: now, EndsAt: now.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	// Global overlap.
	_, err = env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Second", DiscountPercent: 30,
		StartsAt: now.Add(time.Hour), EndsAt: now.Add(3 * time.Hour),
	})
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))

	// A disjoint window is fine.
	_, err = env.catalog.CreateCampaign(context.Background(), CreateCampaignInput{
		Title: "Later", DiscountPercent: 30,
		StartsAt: now.Add(3 * time.Hour), EndsAt: now.Add(4 * time.Hour),
	})
	require.NoError(t, err)
}

func TestBrowsePricesPerViewer(t *testing.T) {
	env := newTestEnv(t)
	gold := env.createAccount(t, func(a *model.Account) { a.Tier = model.TierGold })
	item := env.createItem(t, func(i *model.ContentItem) { i.Price = 10.00 })

	listed, err := env.catalog.Browse(context.Background(), gold.ID, nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, 8.00, listed[0].Quote.Price)
	require.False(t, listed[0].Owned)

	_, _, err = env.entitlements.Grant(
		context.Background(), env.db, gold.ID, item.ID, 8.00, model.SourcePurchase)
	require.NoError(t, err)

	listed, err = env.catalog.Browse(context.Background(), gold.ID, nil)
	require.NoError(t, err)
	require.True(t, listed[0].Owned)
}

func TestDetailListsRelated(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	category := &model.Category{Name: "photos", IsActive: true}
	require.NoError(t, env.db.Create(category).Error)

	item := env.createItem(t, func(i *model.ContentItem) { i.CategoryID = &category.ID })
	related := env.createItem(t, func(i *model.ContentItem) {
		i.Title = "Sibling"
		i.CategoryID = &category.ID
	})
	env.createItem(t, func(i *model.ContentItem) { i.Title = "Unrelated" })

	detail, err := env.catalog.Detail(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.Len(t, detail.Related, 1)
	require.Equal(t, related.ID, detail.Related[0].ID)
}

func TestScheduleDripValidation(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem(t)

	var ve *model.ValidationError
	_, err := env.catalog.ScheduleDrip(context.Background(), CreateDripInput{
		ItemID: item.ID, TierRequired: model.TierBronze,
		SendAt: time.Now().UTC().Add(-time.Hour),
	})
	require.True(t, errors.As(err, &ve))

	drip, err := env.catalog.ScheduleDrip(context.Background(), CreateDripInput{
		ItemID: item.ID, TierRequired: model.TierBronze,
		SendAt: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)
	require.False(t, drip.Sent)
}
