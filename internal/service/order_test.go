package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"content-paywall/internal/model"

	"github.com/stretchr/testify/require"
)

func captureCompletedEvent(eventID, externalRef string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "CAPTURE-1",
			"supplementary_data": {"related_ids": {"order_id": %q}}
		}
	}`, eventID, externalRef))
}

func TestCreatePurchase(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderInitiated, result.Order.Status)
	require.Equal(t, 10.00, result.Order.Amount)
	require.Equal(t, "PAY-1", result.Order.ExternalRef)
	require.Equal(t, "https://paypal.test/approve", result.ApproveURL)

	ref, err := env.refRepo.Find(context.Background(), env.db, "PAY-1")
	require.NoError(t, err)
	require.Equal(t, model.PaymentKindOrder, ref.Kind)
	require.Equal(t, result.Order.ID, ref.InternalID)
}

func TestCreatePurchaseBlockedStates(t *testing.T) {
	env := newTestEnv(t)
	banned := env.createAccount(t, func(a *model.Account) { a.IsBanned = true })
	item := env.createItem(t)

	_, err := env.orders.CreatePurchase(context.Background(), banned.ID, item.ID)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))

	account := env.createAccount(t)
	inactive := env.createItem(t, func(i *model.ContentItem) { i.IsActive = false })
	_, err = env.orders.CreatePurchase(context.Background(), account.ID, inactive.ID)
	require.True(t, errors.As(err, &ve))

	_, _, err = env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 0, model.SourcePurchase)
	require.NoError(t, err)
	_, err = env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.True(t, errors.Is(err, model.ErrAlreadyEntitled))
}

func TestCreatePurchaseProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.createErr = errors.New("gateway timeout")
	account := env.createAccount(t)
	item := env.createItem(t)

	_, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	var pe *model.ProviderError
	require.True(t, errors.As(err, &pe))

	// The failed attempt is terminal; a retry opens a fresh order.
	var orders []model.Order
	require.NoError(t, env.db.Find(&orders).Error)
	require.Len(t, orders, 1)
	require.Equal(t, model.OrderFailed, orders[0].Status)

	env.paypal.createErr = nil
	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.NotEqual(t, orders[0].ID, result.Order.ID)
	require.Equal(t, model.OrderInitiated, result.Order.Status)
}

func TestCreatePurchaseConsumesPendingDiscount(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, func(a *model.Account) { a.PendingDiscountPct = 25 })
	item := env.createItem(t, func(i *model.ContentItem) { i.Price = 20.00 })

	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, 15.00, result.Order.Amount)
	require.Equal(t, 0, env.reload(t, account).PendingDiscountPct)

	// Consumed on use: a second purchase quotes full price.
	other := env.createItem(t, func(i *model.ContentItem) {
		i.Title = "Other"
		i.Price = 20.00
	})
	result, err = env.orders.CreatePurchase(context.Background(), account.ID, other.ID)
	require.NoError(t, err)
	require.Equal(t, 20.00, result.Order.Amount)
}

func TestWebhookFulfillsOnce(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	ref := result.Order.ExternalRef

	// The provider may deliver the same confirmation any number of times,
	// here as distinct events so event dedup does not mask the check.
	for i := 0; i < 3; i++ {
		err = env.orders.HandleWebhook(context.Background(), http.Header{},
			captureCompletedEvent(fmt.Sprintf("WH-%d", i), ref))
		require.NoError(t, err)
	}

	var order model.Order
	require.NoError(t, env.db.First(&order, result.Order.ID).Error)
	require.Equal(t, model.OrderFulfilled, order.Status)
	require.NotNil(t, order.CompletedAt)

	var count int64
	require.NoError(t, env.db.Model(&model.Entitlement{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	fresh := env.reload(t, account)
	require.Equal(t, 10.00, fresh.TotalSpent)
	require.Equal(t, 100, fresh.LoyaltyPoints)

	// Exactly one delivery went out.
	require.Equal(t, []uint{item.ID}, env.msgr.delivered)
}

func TestWebhookEventDedup(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)

	body := captureCompletedEvent("WH-same", result.Order.ExternalRef)
	require.NoError(t, env.orders.HandleWebhook(context.Background(), http.Header{}, body))
	require.NoError(t, env.orders.HandleWebhook(context.Background(), http.Header{}, body))

	require.Len(t, env.msgr.delivered, 1)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.verifyErr = errors.New("bad signature")

	err := env.orders.HandleWebhook(context.Background(), http.Header{},
		captureCompletedEvent("WH-1", "PAY-1"))
	require.Error(t, err)
}

func TestWebhookUnknownReference(t *testing.T) {
	env := newTestEnv(t)

	err := env.orders.HandleWebhook(context.Background(), http.Header{},
		captureCompletedEvent("WH-1", "PAY-unknown"))
	require.True(t, errors.Is(err, model.ErrNotFound))
}

func TestWebhookActivatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	result, err := env.subs.Subscribe(context.Background(), account.ID, model.TierSilver)
	require.NoError(t, err)

	err = env.orders.HandleWebhook(context.Background(), http.Header{},
		captureCompletedEvent("WH-1", result.Subscription.ExternalRef))
	require.NoError(t, err)

	var sub model.Subscription
	require.NoError(t, env.db.First(&sub, result.Subscription.ID).Error)
	require.Equal(t, model.SubActive, sub.Status)
	require.NotNil(t, sub.ExpiresAt)

	fresh := env.reload(t, account)
	require.Equal(t, model.TierSilver, fresh.Tier)
	// 19.99 at the subscription rate of 15 points per dollar.
	require.Equal(t, 299, fresh.LoyaltyPoints)
}

func TestCaptureFailureLeavesOrderUntouched(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	result, err := env.orders.CreatePurchase(context.Background(), account.ID, item.ID)
	require.NoError(t, err)

	env.paypal.captureErr = errors.New("capture timeout")
	err = env.orders.CaptureAndComplete(context.Background(), result.Order.ExternalRef)
	var pe *model.ProviderError
	require.True(t, errors.As(err, &pe))
	require.True(t, pe.Retryable)

	var order model.Order
	require.NoError(t, env.db.First(&order, result.Order.ID).Error)
	require.Equal(t, model.OrderInitiated, order.Status)

	// The retry succeeds once the provider recovers.
	env.paypal.captureErr = nil
	require.NoError(t, env.orders.CaptureAndComplete(context.Background(), result.Order.ExternalRef))
	require.NoError(t, env.db.First(&order, result.Order.ID).Error)
	require.Equal(t, model.OrderFulfilled, order.Status)
}

func TestFreeUnlock(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	record, err := env.orders.FreeUnlock(context.Background(), account.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, model.SourceFreeUnlock, record.Source)
	require.Equal(t, 0.0, record.PricePaid)

	fresh := env.reload(t, account)
	require.Equal(t, 0, fresh.FreeUnlocks)
	require.Equal(t, 0, fresh.LoyaltyPoints)
	require.Equal(t, []uint{item.ID}, env.msgr.delivered)

	// No credits left.
	other := env.createItem(t, func(i *model.ContentItem) { i.Title = "Other" })
	_, err = env.orders.FreeUnlock(context.Background(), account.ID, other.ID)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestFreeUnlockGates(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)

	explicit := env.createItem(t, func(i *model.ContentItem) { i.IsExplicit = true })
	_, err := env.orders.FreeUnlock(context.Background(), account.ID, explicit.ID)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))

	premium := env.createItem(t, func(i *model.ContentItem) {
		i.Title = "Premium"
		i.Tier = model.TierSilver
	})
	_, err = env.orders.FreeUnlock(context.Background(), account.ID, premium.ID)
	require.True(t, errors.As(err, &ve))

	// Gates reject before the credit is spent.
	require.Equal(t, 1, env.reload(t, account).FreeUnlocks)
}

func TestRedeliverRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t)
	item := env.createItem(t)

	err := env.orders.Redeliver(context.Background(), account.ID, item.ID)
	require.True(t, errors.Is(err, model.ErrNotFound))

	_, _, err = env.entitlements.Grant(
		context.Background(), env.db, account.ID, item.ID, 0, model.SourcePurchase)
	require.NoError(t, err)

	require.NoError(t, env.orders.Redeliver(context.Background(), account.ID, item.ID))
	require.Equal(t, []uint{item.ID}, env.msgr.delivered)
}
