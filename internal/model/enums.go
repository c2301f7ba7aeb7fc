package model

// Tier is the recurring discount ladder. Ordered: none < bronze < silver < gold.
type Tier string

const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

var tierRank = map[Tier]int{
	TierNone:   0,
	TierBronze: 1,
	TierSilver: 2,
	TierGold:   3,
}

func (t Tier) Rank() int {
	return tierRank[t]
}

func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

// Multiplier is the recurring discount applied on top of any campaign price.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierBronze:
		return 0.95
	case TierSilver:
		return 0.90
	case TierGold:
		return 0.80
	default:
		return 1.0
	}
}

// TierFromSpend derives a tier purely from lifetime spend thresholds.
func TierFromSpend(totalSpent float64) Tier {
	switch {
	case totalSpent >= 150:
		return TierGold
	case totalSpent >= 75:
		return TierSilver
	case totalSpent >= 25:
		return TierBronze
	default:
		return TierNone
	}
}

type OrderStatus string

const (
	OrderInitiated OrderStatus = "initiated"
	OrderApproved  OrderStatus = "externally_approved"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderFailed    OrderStatus = "failed"
	OrderReversed  OrderStatus = "reversed"
)

type SubscriptionStatus string

const (
	SubPending   SubscriptionStatus = "pending"
	SubActive    SubscriptionStatus = "active"
	SubCancelled SubscriptionStatus = "cancelled"
	SubExpired   SubscriptionStatus = "expired"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestPaid      RequestStatus = "paid"
	RequestCompleted RequestStatus = "completed"
	RequestRejected  RequestStatus = "rejected"
)

// Classification partitions items into what may appear on public surfaces
// and what is delivered over the private channel only.
type Classification string

const (
	ClassPublicSafe  Classification = "public_safe"
	ClassPrivateOnly Classification = "private_only"
)

// PaymentKind tags what an external payment reference was created for,
// so webhook dispatch is a single indexed lookup instead of sequential
// queries across unrelated tables.
type PaymentKind string

const (
	PaymentKindOrder         PaymentKind = "order"
	PaymentKindSubscription  PaymentKind = "subscription"
	PaymentKindCustomRequest PaymentKind = "custom_request"
)

// EntitlementSource records what produced a grant.
const (
	SourcePurchase   = "purchase"
	SourceFreeUnlock = "free_unlock"
	SourceLoyalty    = "loyalty"
	SourceDrip       = "drip"
)
