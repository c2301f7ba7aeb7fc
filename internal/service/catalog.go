package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"content-paywall/internal/client"
	"content-paywall/internal/model"
	"content-paywall/internal/repository"
)

// ListedItem is one browse row with the viewer's effective price.
type ListedItem struct {
	Item  *model.ContentItem
	Quote *Quote
	Owned bool
}

type ItemDetail struct {
	Item    *model.ContentItem
	Quote   *Quote
	Owned   bool
	Related []*model.ContentItem
}

type CreateItemInput struct {
	Title       string
	Description string
	CategoryID  *uint
	Price       float64
	Tier        model.Tier
	Content     []byte // raw media, screened at ingestion
}

type CreateCampaignInput struct {
	Title           string
	DiscountPercent int
	StartsAt        time.Time
	EndsAt          time.Time
	CategoryID      *uint
}

type CreateDripInput struct {
	ItemID       uint
	TierRequired model.Tier
	SendAt       time.Time
	Message      string
}

type CatalogService interface {
	Browse(ctx context.Context, accountID uint, categoryID *uint) ([]*ListedItem, error)
	Detail(ctx context.Context, accountID, itemID uint) (*ItemDetail, error)
	Categories(ctx context.Context) ([]*model.Category, error)

	// PublicPreview lists only public-safe items, priced without an
	// account. Private-only items never appear here.
	PublicPreview(ctx context.Context) ([]*ListedItem, error)

	CreateItem(ctx context.Context, in CreateItemInput) (*model.ContentItem, error)
	CreateCategory(ctx context.Context, name string, sortOrder int) (*model.Category, error)
	CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error)
	ScheduleDrip(ctx context.Context, in CreateDripInput) (*model.DripSchedule, error)
}

type catalogServiceImpl struct {
	contentRepo  repository.ContentRepository
	campaignRepo repository.CampaignRepository
	dripRepo     repository.DripRepository
	accountRepo  repository.AccountRepository
	pricing      PricingService
	entitlements EntitlementService
	classifier   client.Classifier
}

func NewCatalogService(
	contentRepo repository.ContentRepository,
	campaignRepo repository.CampaignRepository,
	dripRepo repository.DripRepository,
	accountRepo repository.AccountRepository,
	pricing PricingService,
	entitlements EntitlementService,
	classifier client.Classifier,
) CatalogService {
	return &catalogServiceImpl{
		contentRepo:  contentRepo,
		campaignRepo: campaignRepo,
		dripRepo:     dripRepo,
		accountRepo:  accountRepo,
		pricing:      pricing,
		entitlements: entitlements,
		classifier:   classifier,
	}
}

func (s *catalogServiceImpl) Browse(ctx context.Context, accountID uint, categoryID *uint) ([]*ListedItem, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	items, err := s.contentRepo.ListActive(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return s.priceAll(ctx, account, items)
}

func (s *catalogServiceImpl) Detail(ctx context.Context, accountID, itemID uint) (*ItemDetail, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	item, err := s.contentRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, model.ErrNotFound
	}

	quote, err := s.pricing.Resolve(ctx, item, account, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	owned, err := s.entitlements.Has(ctx, account.ID, item.ID)
	if err != nil {
		return nil, err
	}
	related, err := s.contentRepo.ListRelated(ctx, item, 5)
	if err != nil {
		return nil, err
	}

	return &ItemDetail{
		Item:    item,
		Quote:   quote,
		Owned:   owned,
		Related: related,
	}, nil
}

func (s *catalogServiceImpl) Categories(ctx context.Context) ([]*model.Category, error) {
	return s.contentRepo.ListCategories(ctx)
}

func (s *catalogServiceImpl) PublicPreview(ctx context.Context) ([]*ListedItem, error) {
	items, err := s.contentRepo.ListPublicSafe(ctx)
	if err != nil {
		return nil, err
	}
	return s.priceAll(ctx, nil, items)
}

func (s *catalogServiceImpl) priceAll(ctx context.Context, account *model.Account, items []*model.ContentItem) ([]*ListedItem, error) {
	now := time.Now().UTC()
	listed := make([]*ListedItem, 0, len(items))
	for _, item := range items {
		quote, err := s.pricing.Resolve(ctx, item, account, now)
		if err != nil {
			return nil, err
		}
		owned := false
		if account != nil {
			owned, err = s.entitlements.Has(ctx, account.ID, item.ID)
			if err != nil {
				return nil, err
			}
		}
		listed = append(listed, &ListedItem{Item: item, Quote: quote, Owned: owned})
	}
	return listed, nil
}

func (s *catalogServiceImpl) CreateItem(ctx context.Context, in CreateItemInput) (*model.ContentItem, error) {
	if in.Title == "" {
		return nil, model.Invalid("title", "title is required")
	}
	if in.Price < 0 {
		return nil, model.Invalid("price", "price cannot be negative")
	}
	if !validTier(in.Tier) {
		return nil, model.Invalid("tier", fmt.Sprintf("unknown tier %q", in.Tier))
	}

	item := &model.ContentItem{
		Title:          in.Title,
		Description:    in.Description,
		CategoryID:     in.CategoryID,
		Price:          in.Price,
		Tier:           in.Tier,
		Classification: model.ClassPrivateOnly,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	// Screening happens once, at ingestion. A classifier outage keeps the
	// conservative default of private_only rather than blocking the upload.
	if len(in.Content) > 0 {
		result, err := s.classifier.Classify(ctx, in.Content)
		if err != nil {
			log.Printf("classify item %q: %v", in.Title, err)
		} else {
			item.IsExplicit = result.IsExplicit
			if !result.IsExplicit {
				item.Classification = model.ClassPublicSafe
			}
		}
	}

	if err := s.contentRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("store item: %w", err)
	}
	return item, nil
}

func (s *catalogServiceImpl) CreateCategory(ctx context.Context, name string, sortOrder int) (*model.Category, error) {
	if name == "" {
		return nil, model.Invalid("name", "name is required")
	}
	category := &model.Category{
		Name:      name,
		SortOrder: sortOrder,
		IsActive:  true,
	}
	if err := s.contentRepo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("store category: %w", err)
	}
	return category, nil
}

func (s *catalogServiceImpl) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if in.DiscountPercent < 1 || in.DiscountPercent > 90 {
		return nil, model.Invalid("discount_percent", "must be between 1 and 90")
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, model.Invalid("ends_at", "must be after starts_at")
	}

	// Overlapping campaigns for an intersecting scope are rejected outright
	// so every quote has exactly one candidate discount.
	overlap, err := s.campaignRepo.HasOverlap(ctx, in.StartsAt, in.EndsAt, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, model.Invalid("window", "an active campaign already covers this window and scope")
	}

	campaign := &model.Campaign{
		Title:           in.Title,
		DiscountPercent: in.DiscountPercent,
		StartsAt:        in.StartsAt.UTC(),
		EndsAt:          in.EndsAt.UTC(),
		CategoryID:      in.CategoryID,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("store campaign: %w", err)
	}
	return campaign, nil
}

func (s *catalogServiceImpl) ScheduleDrip(ctx context.Context, in CreateDripInput) (*model.DripSchedule, error) {
	item, err := s.contentRepo.FindByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, model.Invalid("item", "item is not available")
	}
	if in.SendAt.Before(time.Now().UTC()) {
		return nil, model.Invalid("send_at", "must be in the future")
	}

	drip := &model.DripSchedule{
		ItemID:       item.ID,
		TierRequired: in.TierRequired,
		SendAt:       in.SendAt.UTC(),
		Message:      in.Message,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.dripRepo.Create(ctx, drip); err != nil {
		return nil, fmt.Errorf("store drip schedule: %w", err)
	}
	return drip, nil
}

func validTier(t model.Tier) bool {
	switch t {
	case model.TierNone, model.TierBronze, model.TierSilver, model.TierGold:
		return true
	}
	return false
}
