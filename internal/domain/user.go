package domain

import "time"

// UserRole enumerates supported account roles.
type UserRole string

const (
	UserRoleParent  UserRole = "parent"
	UserRoleStudent UserRole = "student"
)

// SubscriptionTier enumerates billing tiers.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPlus    SubscriptionTier = "plus"
	TierPremium SubscriptionTier = "premium"
)

// Monthly spend caps in minor units (cents) per tier. Accounts without an
// active subscription fall back to the free cap.
const (
	CapFreeMinor    int64 = 10000  // $100
	CapPlusMinor    int64 = 50000  // $500
	CapPremiumMinor int64 = 200000 // $2000
)

// CapForTier returns the monthly spend cap for a subscription tier.
func CapForTier(tier SubscriptionTier) int64 {
	switch tier {
	case TierPlus:
		return CapPlusMinor
	case TierPremium:
		return CapPremiumMinor
	default:
		return CapFreeMinor
	}
}

// User represents an authenticated account within the platform.
type User struct {
	ID            string
	GoogleSub     string
	Email         string
	Name          string
	Role          UserRole
	FamilyID      string
	Tier          SubscriptionTier
	Locale        string
	ExpoPushToken string
	PayPalHandle  string
	VenmoHandle   string
	CashAppTag    string
	ZelleAddress  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HandleFor returns the user's handle on the given payment rail.
func (u User) HandleFor(p Provider) string {
	switch p {
	case ProviderPayPal:
		return u.PayPalHandle
	case ProviderVenmo:
		return u.VenmoHandle
	case ProviderCashApp:
		return u.CashAppTag
	case ProviderZelle:
		return u.ZelleAddress
	}
	return ""
}
