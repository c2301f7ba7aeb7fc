package dto

import "time"

type PurchaseRequest struct {
	ItemID uint `json:"item_id"`
}

type PurchaseResponse struct {
	OrderID         uint    `json:"order_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	DiscountPercent int     `json:"discount_percent,omitempty"`
	OnPromotion     bool    `json:"on_promotion"`
	ApprovalURL     string  `json:"approval_url"`
}

type FreeUnlockRequest struct {
	ItemID uint `json:"item_id"`
}

type SubscribeRequest struct {
	Tier string `json:"tier"`
}

type SubscribeResponse struct {
	SubscriptionID uint    `json:"subscription_id"`
	Tier           string  `json:"tier"`
	PriceMonthly   float64 `json:"price_monthly"`
	ApprovalURL    string  `json:"approval_url"`
}

type RedeemRequest struct {
	Reward string `json:"reward"`
	ItemID *uint  `json:"item_id,omitempty"`
}

type RedeemResponse struct {
	Reward           string `json:"reward"`
	PointsSpent      int    `json:"points_spent"`
	PointsRemaining  int    `json:"points_remaining"`
	GrantedItemID    *uint  `json:"granted_item_id,omitempty"`
	ArmedDiscountPct int    `json:"armed_discount_pct,omitempty"`
}

type RewardEntry struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Points     int    `json:"points"`
	Affordable bool   `json:"affordable"`
}

type ListedItem struct {
	ID              uint    `json:"id"`
	Title           string  `json:"title"`
	Tier            string  `json:"tier"`
	Price           float64 `json:"price"`
	DiscountPercent int     `json:"discount_percent,omitempty"`
	OnPromotion     bool    `json:"on_promotion"`
	Owned           bool    `json:"owned"`
}

type ItemDetailResponse struct {
	Item    ListedItem   `json:"item"`
	Related []ListedItem `json:"related,omitempty"`
}

type AccountResponse struct {
	ID            uint    `json:"id"`
	Username      string  `json:"username"`
	Tier          string  `json:"tier"`
	TotalSpent    float64 `json:"total_spent"`
	LoyaltyPoints int     `json:"loyalty_points"`
	FreeUnlocks   int     `json:"free_unlocks"`
}

type SubmitRequestRequest struct {
	Description string `json:"description"`
}

type CustomRequestResponse struct {
	ID          uint     `json:"id"`
	Description string   `json:"description"`
	Price       *float64 `json:"price,omitempty"`
	Status      string   `json:"status"`
	ApprovalURL string   `json:"approval_url,omitempty"`
}

type CreateItemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CategoryID  *uint   `json:"category_id,omitempty"`
	Price       float64 `json:"price"`
	Tier        string  `json:"tier"`
	Content     []byte  `json:"content,omitempty"`
}

type CreateCategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type CreateCampaignRequest struct {
	Title           string    `json:"title"`
	DiscountPercent int       `json:"discount_percent"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	CategoryID      *uint     `json:"category_id,omitempty"`
}

type CreateDripRequest struct {
	ItemID       uint      `json:"item_id"`
	TierRequired string    `json:"tier_required"`
	SendAt       time.Time `json:"send_at"`
	Message      string    `json:"message,omitempty"`
}

type AcceptRequestRequest struct {
	Price float64 `json:"price"`
}

type AttachResultRequest struct {
	ItemID uint `json:"item_id"`
}
