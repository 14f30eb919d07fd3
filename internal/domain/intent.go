package domain

import (
	"fmt"
	"strings"
	"time"
)

// Provider enumerates the supported peer-to-peer payment rails.
type Provider string

const (
	ProviderPayPal  Provider = "paypal"
	ProviderVenmo   Provider = "venmo"
	ProviderCashApp Provider = "cashapp"
	ProviderZelle   Provider = "zelle"
)

// Manual reports whether the rail has no programmatic verification API and
// relies on the sender's self-attestation.
func (p Provider) Manual() bool {
	return p != ProviderPayPal
}

// ParseProvider validates a provider string from the wire.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderPayPal:
		return ProviderPayPal, nil
	case ProviderVenmo:
		return ProviderVenmo, nil
	case ProviderCashApp:
		return ProviderCashApp, nil
	case ProviderZelle:
		return ProviderZelle, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrValidation, s)
}

// IntentStatus enumerates payment intent lifecycle states.
type IntentStatus string

const (
	IntentInitiated IntentStatus = "initiated"
	IntentPending   IntentStatus = "pending_provider_confirmation"
	IntentConfirmed IntentStatus = "confirmed"
	IntentCompleted IntentStatus = "completed"
	IntentCancelled IntentStatus = "cancelled"
	IntentFailed    IntentStatus = "failed"
)

// intentEdges is the transition graph. Terminal states have no outgoing edges.
var intentEdges = map[IntentStatus][]IntentStatus{
	IntentInitiated: {IntentPending, IntentCancelled},
	IntentPending:   {IntentConfirmed, IntentCancelled, IntentFailed},
	IntentConfirmed: {IntentCompleted},
}

// CanTransition reports whether target is reachable from current in one step.
// A same-status transition is not an edge; callers treat it as a no-op retry.
func CanTransition(current, target IntentStatus) bool {
	for _, next := range intentEdges[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s IntentStatus) Terminal() bool {
	return len(intentEdges[s]) == 0
}

// ProviderReference carries provider-side identifiers attached to an intent
// as they become available.
type ProviderReference struct {
	OrderID   string
	CaptureID string
}

// PaymentIntent is the persisted record of an intended external transfer.
// Funds move entirely inside the third-party provider; this record only
// tracks the reconciliation state on our side.
type PaymentIntent struct {
	ID              string
	SenderID        string
	RecipientID     string
	Provider        Provider
	AmountMinor     int64
	Note            string
	IdempotencyKey  string
	Status          IntentStatus
	ProviderOrderID string
	CaptureID       string
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	CompletedAt     *time.Time
}

const maxNoteLength = 280

// SanitizeNote strips markup characters and bounds the note length.
func SanitizeNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	replacer := strings.NewReplacer("<", "", ">", "", "&", "", "\"", "", "'", "")
	note = replacer.Replace(note)
	if len(note) > maxNoteLength {
		return "", fmt.Errorf("%w: note exceeds %d characters", ErrValidation, maxNoteLength)
	}
	return note, nil
}

// ValidateAmount rejects non-positive amounts before anything is persisted.
func ValidateAmount(amountMinor int64) error {
	if amountMinor <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}
