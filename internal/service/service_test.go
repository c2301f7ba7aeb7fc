package service

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"

	"content-paywall/internal/client"
	"content-paywall/internal/config"
	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A file-backed database: with ":memory:" every pooled connection
	// gets its own empty database, so queries that run on a second
	// connection (reads outside a held transaction) see no tables.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.Category{},
		&model.ContentItem{},
		&model.Campaign{},
		&model.Order{},
		&model.Subscription{},
		&model.Entitlement{},
		&model.DripSchedule{},
		&model.LoyaltyRedemption{},
		&model.CustomRequest{},
		&model.PaymentReference{},
		&model.WebhookEvent{},
	))
	return db
}

// fakePaypal hands out deterministic references and succeeds unless told
// otherwise.
type fakePaypal struct {
	createErr  error
	captureErr error
	verifyErr  error

	captureStatus string
	created       int
}

func (f *fakePaypal) CreateOrder(ctx context.Context, amount float64, description, correlationID string) (*client.CreateOrderResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &client.CreateOrderResponse{
		ExternalRef: fmt.Sprintf("PAY-%d", f.created),
		ApproveURL:  "https://paypal.test/approve",
	}, nil
}

func (f *fakePaypal) CaptureOrder(ctx context.Context, externalRef string) (*client.CaptureResult, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	status := f.captureStatus
	if status == "" {
		status = "COMPLETED"
	}
	return &client.CaptureResult{Status: status}, nil
}

func (f *fakePaypal) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	return f.verifyErr
}

// fakeMessenger records deliveries and notifications.
type fakeMessenger struct {
	delivered []uint // item ids in delivery order
	notes     []string
	sendErr   error
}

func (f *fakeMessenger) Deliver(ctx context.Context, account *model.Account, item *model.ContentItem) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.delivered = append(f.delivered, item.ID)
	return nil
}

func (f *fakeMessenger) Notify(ctx context.Context, account *model.Account, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.notes = append(f.notes, text)
	return nil
}

type fakeClassifier struct {
	explicit bool
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, content []byte) (*client.ClassifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &client.ClassifyResult{IsExplicit: f.explicit}, nil
}

type testEnv struct {
	db     *gorm.DB
	paypal *fakePaypal
	msgr   *fakeMessenger
	clsf   *fakeClassifier

	accountRepo  repository.AccountRepository
	contentRepo  repository.ContentRepository
	campaignRepo repository.CampaignRepository
	orderRepo    repository.OrderRepository
	subRepo      repository.SubscriptionRepository
	entRepo      repository.EntitlementRepository
	dripRepo     repository.DripRepository
	loyaltyRepo  repository.LoyaltyRepository
	requestRepo  repository.CustomRequestRepository
	refRepo      repository.PaymentRefRepository
	eventRepo    repository.WebhookEventRepository

	pricing      PricingService
	entitlements EntitlementService
	subs         SubscriptionService
	orders       OrderService
	loyalty      LoyaltyService
	catalog      CatalogService
	requests     CustomRequestService
	sweeper      *Sweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:     newTestDB(t),
		paypal: &fakePaypal{},
		msgr:   &fakeMessenger{},
		clsf:   &fakeClassifier{},
	}

	env.accountRepo = repository.NewAccountRepository(env.db)
	env.contentRepo = repository.NewContentRepository(env.db)
	env.campaignRepo = repository.NewCampaignRepository(env.db)
	env.orderRepo = repository.NewOrderRepository(env.db)
	env.subRepo = repository.NewSubscriptionRepository(env.db)
	env.entRepo = repository.NewEntitlementRepository(env.db)
	env.dripRepo = repository.NewDripRepository(env.db)
	env.loyaltyRepo = repository.NewLoyaltyRepository(env.db)
	env.requestRepo = repository.NewCustomRequestRepository(env.db)
	env.refRepo = repository.NewPaymentRefRepository(env.db)
	env.eventRepo = repository.NewWebhookEventRepository(env.db)

	env.pricing = NewPricingService(env.campaignRepo)
	env.entitlements = NewEntitlementService(env.accountRepo, env.contentRepo, env.entRepo)
	env.subs = NewSubscriptionService(env.db, env.paypal, env.accountRepo, env.subRepo, env.refRepo)
	env.orders = NewOrderService(
		env.db, env.paypal, env.msgr, env.msgr,
		env.pricing, env.entitlements, env.subs,
		env.accountRepo, env.contentRepo, env.orderRepo,
		env.requestRepo, env.refRepo, env.eventRepo,
	)
	env.loyalty = NewLoyaltyService(env.db, env.accountRepo, env.contentRepo, env.loyaltyRepo, env.entitlements)
	env.catalog = NewCatalogService(
		env.contentRepo, env.campaignRepo, env.dripRepo, env.accountRepo,
		env.pricing, env.entitlements, env.clsf,
	)
	env.requests = NewCustomRequestService(
		env.db, env.paypal, env.msgr,
		env.requestRepo, env.accountRepo, env.contentRepo, env.refRepo,
	)
	env.sweeper = NewSweeper(
		env.db, config.Sweep{}, env.msgr, env.msgr,
		env.accountRepo, env.contentRepo, env.campaignRepo,
		env.dripRepo, env.subRepo, env.entitlements,
	)
	return env
}

var accountSeq atomic.Int64

func (env *testEnv) createAccount(t *testing.T, mut ...func(*model.Account)) *model.Account {
	t.Helper()
	account := &model.Account{
		ExternalID:  fmt.Sprintf("tg-%d", accountSeq.Add(1)),
		Username:    "buyer",
		Tier:        model.TierNone,
		FreeUnlocks: 1,
	}
	for _, m := range mut {
		m(account)
	}
	// gorm substitutes the column default for zero-valued fields at
	// insert, so a fixture's explicit zero (e.g. FreeUnlocks = 0) would
	// silently become 1; write it back after the insert.
	freeUnlocks := account.FreeUnlocks
	require.NoError(t, env.db.Create(account).Error)
	if account.FreeUnlocks != freeUnlocks {
		require.NoError(t, env.db.Model(&model.Account{}).
			Where("id = ?", account.ID).
			Update("free_unlocks", freeUnlocks).Error)
		account.FreeUnlocks = freeUnlocks
	}
	return account
}

func (env *testEnv) createItem(t *testing.T, mut ...func(*model.ContentItem)) *model.ContentItem {
	t.Helper()
	item := &model.ContentItem{
		Title:          "Sunset Set",
		Price:          10.00,
		Tier:           model.TierBronze,
		Classification: model.ClassPrivateOnly,
		IsActive:       true,
	}
	for _, m := range mut {
		m(item)
	}
	// Same zero-vs-default insert quirk as createAccount, here for
	// fixtures that declare IsActive = false.
	isActive := item.IsActive
	require.NoError(t, env.db.Create(item).Error)
	if item.IsActive != isActive {
		require.NoError(t, env.db.Model(&model.ContentItem{}).
			Where("id = ?", item.ID).
			Update("is_active", isActive).Error)
		item.IsActive = isActive
	}
	return item
}

func (env *testEnv) reload(t *testing.T, account *model.Account) *model.Account {
	t.Helper()
	fresh, err := env.accountRepo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	return fresh
}
