package payments

import (
	"context"
	"errors"
)

// VerifyOutcome is the closed set of provider verification results. Anything
// the provider returns that does not map to one of these is classified as
// transient, never as success.
type VerifyOutcome string

const (
	OutcomeSuccess   VerifyOutcome = "success"
	OutcomePending   VerifyOutcome = "pending"
	OutcomeRejected  VerifyOutcome = "rejected"
	OutcomeTransient VerifyOutcome = "transient_error"
)

var (
	// ErrVerificationPending means the provider has not finished the capture;
	// the client may retry.
	ErrVerificationPending = errors.New("provider verification pending")
	// ErrVerificationFailed covers transient provider/network failures; the
	// client may retry.
	ErrVerificationFailed = errors.New("provider verification failed")
	// ErrVerificationRejected is terminal (expired or voided order).
	ErrVerificationRejected = errors.New("provider verification rejected")
	// ErrManualProvider is returned when a programmatic verification is
	// requested for a rail that has no verification API.
	ErrManualProvider = errors.New("provider requires manual confirmation")
)

// Order is the provider-side order created before redirecting the user out.
type Order struct {
	OrderID     string
	ApprovalURL string
}

// CaptureResult reports the outcome of a verify-and-capture call.
type CaptureResult struct {
	Outcome   VerifyOutcome
	CaptureID string
	RawStatus string
}

// OrderAPI is the programmatic provider contract (PayPal-style).
type OrderAPI interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, note, intentID string) (*Order, error)
	VerifyAndCapture(ctx context.Context, orderID string) (*CaptureResult, error)
}
