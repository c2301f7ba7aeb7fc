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

// maxOpenRequests caps pending plus accepted requests per account.
const maxOpenRequests = 3

type PayRequestResult struct {
	Request    *model.CustomRequest
	ApproveURL string
}

// CustomRequestService runs the commission flow: the buyer describes the
// work, an operator prices it, the buyer pays through the same payment
// reference dispatch as ordinary orders.
type CustomRequestService interface {
	Submit(ctx context.Context, accountID uint, description string) (*model.CustomRequest, error)
	Accept(ctx context.Context, requestID uint, price float64) (*model.CustomRequest, error)
	Reject(ctx context.Context, requestID uint) (*model.CustomRequest, error)
	Pay(ctx context.Context, accountID, requestID uint) (*PayRequestResult, error)

	// AttachResult links the produced item and delivers it to the buyer.
	AttachResult(ctx context.Context, requestID, itemID uint) (*model.CustomRequest, error)
}

type customRequestServiceImpl struct {
	db           *gorm.DB
	paypalClient client.PaypalClient
	deliverer    client.Deliverer
	requestRepo  repository.CustomRequestRepository
	accountRepo  repository.AccountRepository
	contentRepo  repository.ContentRepository
	refRepo      repository.PaymentRefRepository
}

func NewCustomRequestService(
	db *gorm.DB,
	paypalClient client.PaypalClient,
	deliverer client.Deliverer,
	requestRepo repository.CustomRequestRepository,
	accountRepo repository.AccountRepository,
	contentRepo repository.ContentRepository,
	refRepo repository.PaymentRefRepository,
) CustomRequestService {
	return &customRequestServiceImpl{
		db:           db,
		paypalClient: paypalClient,
		deliverer:    deliverer,
		requestRepo:  requestRepo,
		accountRepo:  accountRepo,
		contentRepo:  contentRepo,
		refRepo:      refRepo,
	}
}

func (s *customRequestServiceImpl) Submit(ctx context.Context, accountID uint, description string) (*model.CustomRequest, error) {
	if description == "" {
		return nil, model.Invalid("description", "description is required")
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsBanned {
		return nil, model.Invalid("account", "account is banned")
	}

	open, err := s.requestRepo.CountOpenByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if open >= maxOpenRequests {
		return nil, model.Invalid("requests",
			fmt.Sprintf("at most %d open requests per account", maxOpenRequests))
	}

	request := &model.CustomRequest{
		AccountID:   account.ID,
		Description: description,
		Status:      model.RequestPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("store custom request: %w", err)
	}
	return request, nil
}

func (s *customRequestServiceImpl) Accept(ctx context.Context, requestID uint, price float64) (*model.CustomRequest, error) {
	if price <= 0 {
		return nil, model.Invalid("price", "price must be positive")
	}

	request, err := s.requestRepo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestPending {
		return nil, model.Invalid("status",
			fmt.Sprintf("cannot accept a request in status %q", request.Status))
	}

	request.Price = &price
	request.Status = model.RequestAccepted
	if err := s.requestRepo.Save(ctx, s.db, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *customRequestServiceImpl) Reject(ctx context.Context, requestID uint) (*model.CustomRequest, error) {
	request, err := s.requestRepo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestPending && request.Status != model.RequestAccepted {
		return nil, model.Invalid("status",
			fmt.Sprintf("cannot reject a request in status %q", request.Status))
	}

	request.Status = model.RequestRejected
	if err := s.requestRepo.Save(ctx, s.db, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *customRequestServiceImpl) Pay(ctx context.Context, accountID, requestID uint) (*PayRequestResult, error) {
	request, err := s.requestRepo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request.AccountID != accountID {
		return nil, model.ErrNotFound
	}
	if request.Status != model.RequestAccepted || request.Price == nil {
		return nil, model.Invalid("status", "request has not been priced yet")
	}

	correlationID := uuid.NewString()
	resp, err := s.paypalClient.CreateOrder(ctx, *request.Price,
		fmt.Sprintf("Custom request #%d", request.ID), correlationID)
	if err != nil {
		return nil, &model.ProviderError{Op: "create order", Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request.ExternalRef = resp.ExternalRef
		if err := s.requestRepo.Save(ctx, tx, request); err != nil {
			return fmt.Errorf("store external ref: %w", err)
		}
		return s.refRepo.Create(ctx, tx, &model.PaymentReference{
			ExternalRef: resp.ExternalRef,
			Kind:        model.PaymentKindCustomRequest,
			InternalID:  request.ID,
			CreatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	return &PayRequestResult{
		Request:    request,
		ApproveURL: resp.ApproveURL,
	}, nil
}

func (s *customRequestServiceImpl) AttachResult(ctx context.Context, requestID, itemID uint) (*model.CustomRequest, error) {
	request, err := s.requestRepo.FindByID(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestPaid {
		return nil, model.Invalid("status", "request has not been paid")
	}

	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	request.ResultID = &item.ID
	request.Status = model.RequestCompleted
	if err := s.requestRepo.Save(ctx, s.db, request); err != nil {
		return nil, err
	}

	// Delivery is best effort; the completed state is already durable.
	account, err := s.accountRepo.FindByID(ctx, request.AccountID)
	if err == nil {
		if err := s.deliverer.Deliver(ctx, account, item); err != nil {
			log.Printf("deliver custom request %d result: %v", request.ID, err)
		}
	}
	return request, nil
}
