package domain

import (
	"context"
	"time"
)

// IntentRepository defines persistence for payment intents.
type IntentRepository interface {
	Create(ctx context.Context, intent *PaymentIntent) error
	GetByID(ctx context.Context, id string) (*PaymentIntent, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]PaymentIntent, error)
	// Transition applies a status change guarded by the idempotency key and
	// the transition graph. Targeting the current status is a no-op success.
	Transition(ctx context.Context, id, idempotencyKey string, target IntentStatus, ref *ProviderReference) (*PaymentIntent, error)
}

// LedgerRepository defines persistence for monthly spend ledgers.
type LedgerRepository interface {
	GetOrCreatePeriod(ctx context.Context, senderID string, periodStart time.Time, capMinor int64) (*SpendLedger, error)
	// TryReserveAndCommit atomically checks spent+amount <= cap and increments
	// spent in the same transaction, recording the intent so a retried commit
	// for the same intent is a no-op. Returns ErrCapExceeded when the check fails.
	TryReserveAndCommit(ctx context.Context, senderID string, periodStart time.Time, amountMinor int64, intentID string) error
}

// UserRepository defines access methods for users.
type UserRepository interface {
	UpsertByGoogleSub(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SetTier(ctx context.Context, id string, tier SubscriptionTier) error
	SetPushToken(ctx context.Context, id, token string) error
}
