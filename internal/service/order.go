package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"content-paywall/internal/client"
	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseResult struct {
	Order      *model.Order
	ApproveURL string
	Quote      *Quote
}

// OrderService drives a purchase attempt from creation through external
// payment confirmation to delivery. Confirmation handling is idempotent:
// webhooks may be delivered more than once.
type OrderService interface {
	CreatePurchase(ctx context.Context, accountID, itemID uint) (*PurchaseResult, error)
	FreeUnlock(ctx context.Context, accountID, itemID uint) (*model.Entitlement, error)
	Redeliver(ctx context.Context, accountID, itemID uint) error

	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error

	// CaptureAndComplete backs the provider return URL: capture the
	// payment, then run the same confirmation path the webhook uses.
	CaptureAndComplete(ctx context.Context, externalRef string) error
}

type orderServiceImpl struct {
	db           *gorm.DB
	paypalClient client.PaypalClient
	deliverer    client.Deliverer
	notifier     client.Notifier

	pricing      PricingService
	entitlements EntitlementService
	subs         SubscriptionService

	accountRepo repository.AccountRepository
	contentRepo repository.ContentRepository
	orderRepo   repository.OrderRepository
	requestRepo repository.CustomRequestRepository
	refRepo     repository.PaymentRefRepository
	eventRepo   repository.WebhookEventRepository
}

func NewOrderService(
	db *gorm.DB,
	paypalClient client.PaypalClient,
	deliverer client.Deliverer,
	notifier client.Notifier,
	pricing PricingService,
	entitlements EntitlementService,
	subs SubscriptionService,
	accountRepo repository.AccountRepository,
	contentRepo repository.ContentRepository,
	orderRepo repository.OrderRepository,
	requestRepo repository.CustomRequestRepository,
	refRepo repository.PaymentRefRepository,
	eventRepo repository.WebhookEventRepository,
) OrderService {
	return &orderServiceImpl{
		db:           db,
		paypalClient: paypalClient,
		deliverer:    deliverer,
		notifier:     notifier,
		pricing:      pricing,
		entitlements: entitlements,
		subs:         subs,
		accountRepo:  accountRepo,
		contentRepo:  contentRepo,
		orderRepo:    orderRepo,
		requestRepo:  requestRepo,
		refRepo:      refRepo,
		eventRepo:    eventRepo,
	}
}

func (s *orderServiceImpl) CreatePurchase(ctx context.Context, accountID, itemID uint) (*PurchaseResult, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsBanned {
		return nil, model.Invalid("account", "account is banned")
	}

	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, model.Invalid("item", "item is not available")
	}

	owned, err := s.entitlements.Has(ctx, account.ID, item.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, model.ErrAlreadyEntitled
	}

	quote, err := s.pricing.Resolve(ctx, item, account, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	// A pending loyalty discount is a third rounding stage, consumed on
	// use regardless of how the payment leg turns out.
	price := quote.Price
	usedPendingDiscount := account.PendingDiscountPct > 0
	if usedPendingDiscount {
		price = roundStage(price, float64(100-account.PendingDiscountPct)/100)
	}
	if price < 0 {
		return nil, model.Invalid("price", "negative price")
	}

	order := &model.Order{
		AccountID:     account.ID,
		ItemID:        item.ID,
		Amount:        price,
		Currency:      "USD",
		Status:        model.OrderInitiated,
		CorrelationID: uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		if usedPendingDiscount {
			return s.accountRepo.ClearPendingDiscount(ctx, tx, account.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.paypalClient.CreateOrder(ctx, price,
		fmt.Sprintf("Unlock: %s", item.Title), order.CorrelationID)
	if err != nil {
		if markErr := s.orderRepo.MarkFailed(ctx, order.ID); markErr != nil {
			log.Printf("mark order %d failed after provider error: %v", order.ID, markErr)
		}
		order.Status = model.OrderFailed
		return nil, &model.ProviderError{Op: "create order", Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.SetExternalRef(ctx, tx, order.ID, resp.ExternalRef); err != nil {
			return fmt.Errorf("store external ref: %w", err)
		}
		return s.refRepo.Create(ctx, tx, &model.PaymentReference{
			ExternalRef: resp.ExternalRef,
			Kind:        model.PaymentKindOrder,
			InternalID:  order.ID,
			CreatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	order.ExternalRef = resp.ExternalRef
	return &PurchaseResult{
		Order:      order,
		ApproveURL: resp.ApproveURL,
		Quote:      quote,
	}, nil
}

func (s *orderServiceImpl) FreeUnlock(ctx context.Context, accountID, itemID uint) (*model.Entitlement, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if account.FreeUnlocks <= 0 {
		return nil, model.Invalid("free_unlocks", "no free unlocks remaining")
	}
	if item.Tier.Rank() > model.TierBronze.Rank() {
		return nil, model.Invalid("item", "free unlocks apply to basic tier content only")
	}
	if item.IsExplicit {
		return nil, model.Invalid("item", "explicit content cannot be unlocked for free")
	}

	owned, err := s.entitlements.Has(ctx, account.ID, item.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, model.ErrAlreadyEntitled
	}

	var record *model.Entitlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debited, err := s.accountRepo.DebitFreeUnlock(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if !debited {
			return model.Invalid("free_unlocks", "no free unlocks remaining")
		}
		record, _, err = s.entitlements.Grant(ctx, tx, account.ID, item.ID, 0, model.SourceFreeUnlock)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.deliverer.Deliver(ctx, account, item); err != nil {
		log.Printf("deliver item %d to account %d: %v", item.ID, account.ID, err)
	}
	return record, nil
}

func (s *orderServiceImpl) Redeliver(ctx context.Context, accountID, itemID uint) error {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}

	owned, err := s.entitlements.Has(ctx, accountID, itemID)
	if err != nil {
		return err
	}
	if !owned {
		return model.ErrNotFound
	}
	return s.deliverer.Deliver(ctx, account, item)
}

func (s *orderServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if err := s.paypalClient.VerifyWebhookSignature(ctx, headers, body); err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	var event model.PayPalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	// Event-level dedup is best effort; the fulfillment transition is
	// idempotent on its own.
	if event.ID != "" {
		seen, err := s.eventRepo.Exists(ctx, event.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		if err := s.handleApproved(ctx, &event); err != nil {
			return err
		}
	case "PAYMENT.CAPTURE.COMPLETED":
		externalRef := event.Resource.SupplementaryData.RelatedIDs.OrderID
		if externalRef == "" {
			return model.Invalid("webhook", "missing order id in capture payload")
		}
		if err := s.complete(ctx, externalRef); err != nil {
			return err
		}
	default:
		log.Printf("ignoring webhook event type %s", event.EventType)
	}

	if event.ID != "" {
		if err := s.eventRepo.MarkProcessed(ctx, event.ID, event.EventType); err != nil {
			log.Printf("mark webhook event %s processed: %v", event.ID, err)
		}
	}
	return nil
}

func (s *orderServiceImpl) handleApproved(ctx context.Context, event *model.PayPalWebhookEvent) error {
	externalRef := event.Resource.ID
	if externalRef == "" {
		return model.Invalid("webhook", "missing resource id in approval payload")
	}

	// Approval is only tracked on orders; subscription and custom-request
	// payments go straight from capture to completion.
	if err := s.orderRepo.MarkApproved(ctx, s.db, externalRef); err != nil {
		return err
	}
	return s.CaptureAndComplete(ctx, externalRef)
}

func (s *orderServiceImpl) CaptureAndComplete(ctx context.Context, externalRef string) error {
	capture, err := s.paypalClient.CaptureOrder(ctx, externalRef)
	if err != nil {
		// Leave the record in its current state; webhook redelivery is
		// the retry mechanism.
		return &model.ProviderError{Op: "capture", Retryable: true, Err: err}
	}
	if capture.Status != "COMPLETED" {
		return &model.ProviderError{
			Op:        "capture",
			Retryable: true,
			Err:       fmt.Errorf("unexpected capture status %s", capture.Status),
		}
	}
	return s.complete(ctx, externalRef)
}

// complete dispatches a confirmed payment to the record it pays for and
// performs the fulfillment transition atomically. Safe to call any
// number of times per reference.
func (s *orderServiceImpl) complete(ctx context.Context, externalRef string) error {
	var deliverAccount *model.Account
	var deliverItem *model.ContentItem
	var notifyText string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := s.refRepo.Find(ctx, tx, externalRef)
		if err != nil {
			return err
		}

		switch ref.Kind {
		case model.PaymentKindOrder:
			return s.fulfillOrder(ctx, tx, ref.InternalID, &deliverAccount, &deliverItem)
		case model.PaymentKindSubscription:
			return s.subs.Activate(ctx, tx, ref.InternalID)
		case model.PaymentKindCustomRequest:
			return s.completeCustomRequest(ctx, tx, ref.InternalID, &deliverAccount, &notifyText)
		default:
			return fmt.Errorf("unknown payment kind %q for ref %s", ref.Kind, externalRef)
		}
	})
	if err != nil {
		return err
	}

	// Delivery is best effort and outside the transaction: the
	// entitlement is already durable, re-delivery can be requested.
	if deliverAccount != nil && deliverItem != nil {
		if err := s.deliverer.Deliver(ctx, deliverAccount, deliverItem); err != nil {
			log.Printf("deliver item %d to account %d: %v", deliverItem.ID, deliverAccount.ID, err)
		}
	}
	if deliverAccount != nil && notifyText != "" {
		if err := s.notifier.Notify(ctx, deliverAccount, notifyText); err != nil {
			log.Printf("notify account %d: %v", deliverAccount.ID, err)
		}
	}
	return nil
}

func (s *orderServiceImpl) fulfillOrder(ctx context.Context, tx *gorm.DB, orderID uint, deliverAccount **model.Account, deliverItem **model.ContentItem) error {
	order, err := s.orderRepo.FindByID(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.Status == model.OrderFulfilled {
		// Duplicate confirmation: success, no side effects repeated.
		return nil
	}
	if order.Status == model.OrderFailed || order.Status == model.OrderReversed {
		return model.Invalid("order", fmt.Sprintf("order %d is terminal (%s)", order.ID, order.Status))
	}

	won, err := s.orderRepo.MarkFulfilled(ctx, tx, order.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		// A concurrent duplicate got there first.
		return nil
	}

	if _, _, err := s.entitlements.Grant(ctx, tx, order.AccountID, order.ItemID, order.Amount, model.SourcePurchase); err != nil {
		return err
	}

	account, err := s.accountRepo.FindByIDTx(ctx, tx, order.AccountID)
	if err != nil {
		return err
	}
	item, err := s.contentRepo.FindByID(ctx, order.ItemID)
	if err != nil {
		return err
	}
	*deliverAccount = account
	*deliverItem = item
	return nil
}

func (s *orderServiceImpl) completeCustomRequest(ctx context.Context, tx *gorm.DB, requestID uint, deliverAccount **model.Account, notifyText *string) error {
	request, err := s.requestRepo.FindByID(ctx, tx, requestID)
	if err != nil {
		return err
	}
	if request.Status == model.RequestPaid || request.Status == model.RequestCompleted {
		return nil
	}

	won, err := s.requestRepo.MarkPaid(ctx, tx, request.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	account, err := s.accountRepo.FindByIDTx(ctx, tx, request.AccountID)
	if err != nil {
		return err
	}
	*deliverAccount = account
	*notifyText = "Payment received for your custom request. It is now in the queue."
	return nil
}
