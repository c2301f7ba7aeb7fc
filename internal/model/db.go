package model

import "time"

// Account is a user's durable identity and commerce state. Created on
// first interaction, never deleted.
type Account struct {
	ID         uint   `gorm:"primaryKey"`
	ExternalID string `gorm:"size:64;uniqueIndex;not null"` // stable handle on the delivery channel
	Username   string `gorm:"size:255"`

	Tier          Tier    `gorm:"size:16;not null;default:none"`
	TotalSpent    float64 `gorm:"not null;default:0"`
	LoyaltyPoints int     `gorm:"not null;default:0"`
	FreeUnlocks   int     `gorm:"not null;default:1"` // welcome funnel: 1 free unlock

	// Single-use discount from a loyalty redemption, consumed at the
	// next order creation. 0 = none.
	PendingDiscountPct int `gorm:"not null;default:0"`

	IsBanned     bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
	LastActiveAt time.Time
}

type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex;not null"`
	SortOrder int    `gorm:"not null;default:0"`
	IsActive  bool   `gorm:"not null;default:true"`
}

// ContentItem is a purchasable unit of media.
type ContentItem struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	CategoryID  *uint  `gorm:"index"`

	Price          float64        `gorm:"not null"`
	Tier           Tier           `gorm:"size:16;not null;default:bronze"`
	Classification Classification `gorm:"size:20;index;not null;default:private_only"`
	IsExplicit     bool           `gorm:"not null;default:false"` // blocked from free unlocks

	IsDrip   bool `gorm:"not null;default:false"`
	DripTier Tier `gorm:"size:16;default:none"` // minimum tier gate when released as drip

	IsActive   bool `gorm:"not null;default:true"`
	TotalSales int  `gorm:"not null;default:0"` // increments only on first entitlement grant
	CreatedAt  time.Time
}

// Campaign is a time-boxed promotional discount (flash sale). Scope is
// one category, or all items when CategoryID is nil.
type Campaign struct {
	ID              uint   `gorm:"primaryKey"`
	Title           string `gorm:"size:255;not null"`
	DiscountPercent int    `gorm:"not null"` // integer in [1,90], validated at creation
	StartsAt        time.Time
	EndsAt          time.Time
	CategoryID      *uint `gorm:"index"`
	IsActive        bool  `gorm:"not null;default:true"`
	Announced       bool  `gorm:"not null;default:false"`
	CreatedAt       time.Time
}

// Order is one purchase attempt. Retrying after failure creates a new
// row; status only moves forward.
type Order struct {
	ID        uint `gorm:"primaryKey"`
	AccountID uint `gorm:"index;not null"`
	ItemID    uint `gorm:"index;not null"`

	Amount   float64     `gorm:"not null"` // price agreed at creation time
	Currency string      `gorm:"size:8;not null;default:USD"`
	Status   OrderStatus `gorm:"size:32;index;not null"`

	// External payment reference, empty until the payment leg exists.
	ExternalRef string `gorm:"size:255;index"`

	// Correlation id embedded in the provider order as custom_id, for
	// reverse lookup from webhook payloads.
	CorrelationID string `gorm:"size:64;index"`

	CreatedAt   time.Time
	CompletedAt *time.Time
}

type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	AccountID uint `gorm:"index;not null"`

	Tier         Tier               `gorm:"size:16;not null"`
	PriceMonthly float64            `gorm:"not null"`
	Status       SubscriptionStatus `gorm:"size:32;index;not null"`
	ExternalRef  string             `gorm:"size:255;index"`

	StartedAt   *time.Time
	ExpiresAt   *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
}

// Entitlement is a durable grant of access to one item for one account.
// At most one row per (account, item).
type Entitlement struct {
	ID        uint `gorm:"primaryKey"`
	AccountID uint `gorm:"uniqueIndex:idx_entitlement_account_item;not null"`
	ItemID    uint `gorm:"uniqueIndex:idx_entitlement_account_item;not null"`

	PricePaid float64 `gorm:"not null"`
	Source    string  `gorm:"size:32;not null"`
	CreatedAt time.Time
}

// DripSchedule releases one item to every eligible account at SendAt.
// Fires exactly once; eligibility is evaluated at fire time only.
type DripSchedule struct {
	ID           uint `gorm:"primaryKey"`
	ItemID       uint `gorm:"index;not null"`
	TierRequired Tier `gorm:"size:16;not null;default:none"`
	SendAt       time.Time
	Sent         bool   `gorm:"not null;default:false"`
	Message      string `gorm:"type:text"` // optional teaser text
	CreatedAt    time.Time
}

// LoyaltyRedemption is an append-only record of points spent.
type LoyaltyRedemption struct {
	ID          uint   `gorm:"primaryKey"`
	AccountID   uint   `gorm:"index;not null"`
	PointsSpent int    `gorm:"not null"`
	RewardType  string `gorm:"size:50;not null"`
	ItemID      *uint
	CreatedAt   time.Time
}

// CustomRequest is a commissioned-content request, priced by an operator
// and paid through the same payment-reference dispatch as orders.
type CustomRequest struct {
	ID          uint   `gorm:"primaryKey"`
	AccountID   uint   `gorm:"index;not null"`
	Description string `gorm:"type:text;not null"`
	Price       *float64
	Status      RequestStatus `gorm:"size:32;index;not null"`
	ExternalRef string        `gorm:"size:255;index"`
	ResultID    *uint         // item produced for the request
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// PaymentReference maps an external payment reference to the record it
// pays for. Written in the same transaction that stores the reference.
type PaymentReference struct {
	ExternalRef string      `gorm:"primaryKey;size:255;not null"`
	Kind        PaymentKind `gorm:"size:32;not null"`
	InternalID  uint        `gorm:"not null"`
	CreatedAt   time.Time
}

// WebhookEvent dedupes provider webhook deliveries by event id.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
