package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"famwell/internal/domain"
)

// Notifier delivers fire-and-forget notifications on state transitions.
// Implementations must never return delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID, template string, params map[string]string)
}

// Notification template names used by the reconciler.
const (
	TemplateMoneySent       = "money_sent"
	TemplateMoneyReceived   = "money_received"
	TemplatePaymentFailed   = "payment_failed"
	TemplateConfirmReceipt  = "confirm_receipt"
	TemplateSpendCapBlocked = "spend_cap_blocked"
	TemplateEncouragement   = "encouragement"
	TemplateFamilyJoined    = "family_joined"
)

// Options configures reconciliation behavior. Injected at startup so no mode
// flag ever lives inside the flow itself.
type Options struct {
	PendingTTL    time.Duration
	VerifyTimeout time.Duration
}

// Service owns the payment intent lifecycle: creation, provider redirect,
// return reconciliation, confirmation and monthly spend accounting.
type Service struct {
	intents  domain.IntentRepository
	ledgers  domain.LedgerRepository
	users    domain.UserRepository
	adapter  *Adapter
	notifier Notifier
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(intents domain.IntentRepository, ledgers domain.LedgerRepository, users domain.UserRepository, adapter *Adapter, notifier Notifier, opts Options, logger zerolog.Logger) *Service {
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 48 * time.Hour
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 8 * time.Second
	}
	return &Service{
		intents:  intents,
		ledgers:  ledgers,
		users:    users,
		adapter:  adapter,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateResult pairs the persisted intent with the redirect the client opens.
type CreateResult struct {
	Intent   *domain.PaymentIntent
	Redirect Redirect
}

// Create validates the request, persists an initiated intent and builds the
// provider redirect. The idempotency key is generated here and must accompany
// every state-changing call against the intent.
func (s *Service) Create(ctx context.Context, senderID, recipientID string, provider domain.Provider, amountMinor int64, note string) (*CreateResult, error) {
	if err := domain.ValidateAmount(amountMinor); err != nil {
		return nil, err
	}
	note, err := domain.SanitizeNote(note)
	if err != nil {
		return nil, err
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: sender and recipient must differ", domain.ErrValidation)
	}
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	intentID := uuid.NewString()
	redirect, orderID, err := s.adapter.BuildRedirect(ctx, provider, amountMinor, recipient.HandleFor(provider), note, intentID)
	if err != nil {
		return nil, err
	}

	intent := &domain.PaymentIntent{
		ID:              intentID,
		SenderID:        senderID,
		RecipientID:     recipientID,
		Provider:        provider,
		AmountMinor:     amountMinor,
		Note:            note,
		IdempotencyKey:  uuid.NewString(),
		Status:          domain.IntentInitiated,
		ProviderOrderID: orderID,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("persist intent: %w", err)
	}
	return &CreateResult{Intent: intent, Redirect: *redirect}, nil
}

// ReturnParams are the deep-link parameters observed when the app regains
// foreground control. OutcomeHint is advisory only and never authoritative,
// except for an explicit provider-reported cancellation.
type ReturnParams struct {
	ProviderOrderID string
	OutcomeHint     string
}

// HandleReturn records that the user came back from the provider. It advances
// initiated intents to pending_provider_confirmation regardless of outcome; a
// provider cancel hint moves the intent to cancelled instead.
func (s *Service) HandleReturn(ctx context.Context, intentID, idempotencyKey string, params ReturnParams) (*domain.PaymentIntent, error) {
	var ref *domain.ProviderReference
	if params.ProviderOrderID != "" {
		ref = &domain.ProviderReference{OrderID: params.ProviderOrderID}
	}
	switch params.OutcomeHint {
	case "cancel", "cancelled", "canceled":
		return s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentCancelled, ref)
	}
	return s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentPending, ref)
}

// Verify runs the server-side verification call for programmatic providers
// and, on an explicit success, confirms the intent and settles the ledger.
// Ambiguous or failed verification never advances state.
func (s *Service) Verify(ctx context.Context, intentID, idempotencyKey string) (*domain.PaymentIntent, error) {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.IdempotencyKey != idempotencyKey {
		return nil, domain.ErrIdempotencyMismatch
	}
	if intent.Provider.Manual() {
		return nil, ErrManualProvider
	}

	switch intent.Status {
	case domain.IntentCompleted:
		// Already settled; retries are no-ops.
		return intent, nil
	case domain.IntentConfirmed:
		// Verification already succeeded, completion is what failed (e.g. a
		// cap block since resolved). Retry the settlement only.
		return s.finalize(ctx, intent, idempotencyKey)
	case domain.IntentPending:
	default:
		return nil, fmt.Errorf("%w: cannot verify intent in status %s", domain.ErrInvalidTransition, intent.Status)
	}

	if intent.ProviderOrderID == "" {
		return nil, fmt.Errorf("%w: intent has no provider order", domain.ErrValidation)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.opts.VerifyTimeout)
	defer cancel()
	result, err := s.adapter.orders.VerifyAndCapture(verifyCtx, intent.ProviderOrderID)
	if err != nil {
		s.logger.Warn().Err(err).Str("intent_id", intentID).Msg("verification call failed")
		return intent, ErrVerificationFailed
	}

	switch result.Outcome {
	case OutcomeSuccess:
		confirmed, err := s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentConfirmed, &domain.ProviderReference{
			OrderID:   intent.ProviderOrderID,
			CaptureID: result.CaptureID,
		})
		if err != nil {
			return nil, err
		}
		return s.finalize(ctx, confirmed, idempotencyKey)
	case OutcomePending:
		return intent, ErrVerificationPending
	case OutcomeRejected:
		failed, err := s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentFailed, nil)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, failed.SenderID, TemplatePaymentFailed, map[string]string{
			"amount": FormatAmount(failed.AmountMinor),
			"status": result.RawStatus,
		})
		return failed, ErrVerificationRejected
	default:
		return intent, ErrVerificationFailed
	}
}

// ConfirmManual records the sender's explicit "I sent it" affirmation for a
// manual rail and settles the ledger. No provider call is ever made here.
func (s *Service) ConfirmManual(ctx context.Context, intentID, idempotencyKey string) (*domain.PaymentIntent, error) {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.IdempotencyKey != idempotencyKey {
		return nil, domain.ErrIdempotencyMismatch
	}
	// A programmatic intent that fell back to the manual deep link carries no
	// provider order and is confirmed like a manual rail.
	if !intent.Provider.Manual() && intent.ProviderOrderID != "" {
		return nil, fmt.Errorf("%w: %s confirmations go through verification", domain.ErrInvalidTransition, intent.Provider)
	}

	switch intent.Status {
	case domain.IntentCompleted:
		return intent, nil
	case domain.IntentConfirmed:
		return s.finalize(ctx, intent, idempotencyKey)
	case domain.IntentInitiated:
		// Affirmation implies the user came back; record the return first.
		if _, err := s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentPending, nil); err != nil {
			return nil, err
		}
	case domain.IntentPending:
	default:
		return nil, fmt.Errorf("%w: cannot confirm intent in status %s", domain.ErrInvalidTransition, intent.Status)
	}

	confirmed, err := s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentConfirmed, nil)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, confirmed.RecipientID, TemplateConfirmReceipt, map[string]string{
		"amount":   FormatAmount(confirmed.AmountMinor),
		"provider": string(confirmed.Provider),
	})
	return s.finalize(ctx, confirmed, idempotencyKey)
}

// Cancel aborts tracking of the intent. It is advisory with respect to the
// provider: funds already captured there are not reversed.
func (s *Service) Cancel(ctx context.Context, intentID, idempotencyKey string) (*domain.PaymentIntent, error) {
	return s.intents.Transition(ctx, intentID, idempotencyKey, domain.IntentCancelled, nil)
}

// IntentView decorates an intent with derived reconciliation hints.
type IntentView struct {
	domain.PaymentIntent
	// Stale marks pending intents older than the configured TTL; the client
	// offers cancellation for these, never silent resolution.
	Stale bool
}

// Get fetches an intent and flags staleness.
func (s *Service) Get(ctx context.Context, intentID string) (*IntentView, error) {
	intent, err := s.intents.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return s.view(*intent), nil
}

// ListForUser returns intents where the user is sender or recipient.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]IntentView, error) {
	intents, err := s.intents.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]IntentView, 0, len(intents))
	for _, intent := range intents {
		views = append(views, *s.view(intent))
	}
	return views, nil
}

// Ledger returns the sender's ledger for the current period, creating it with
// the tier-derived cap when absent.
func (s *Service) Ledger(ctx context.Context, senderID string) (*domain.SpendLedger, error) {
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	return s.ledgers.GetOrCreatePeriod(ctx, senderID, domain.PeriodStart(s.now()), domain.CapForTier(sender.Tier))
}

func (s *Service) view(intent domain.PaymentIntent) *IntentView {
	stale := intent.Status == domain.IntentPending && s.now().Sub(intent.CreatedAt) > s.opts.PendingTTL
	return &IntentView{PaymentIntent: intent, Stale: stale}
}

// finalize settles a confirmed intent against the monthly spend ledger and,
// only after the commit succeeds, completes the intent. A cap block leaves
// the intent confirmed and is surfaced to the caller.
func (s *Service) finalize(ctx context.Context, intent *domain.PaymentIntent, idempotencyKey string) (*domain.PaymentIntent, error) {
	sender, err := s.users.GetByID(ctx, intent.SenderID)
	if err != nil {
		return intent, fmt.Errorf("resolve sender: %w", err)
	}
	period := domain.PeriodStart(s.now())
	if _, err := s.ledgers.GetOrCreatePeriod(ctx, intent.SenderID, period, domain.CapForTier(sender.Tier)); err != nil {
		return intent, fmt.Errorf("open ledger period: %w", err)
	}
	if err := s.ledgers.TryReserveAndCommit(ctx, intent.SenderID, period, intent.AmountMinor, intent.ID); err != nil {
		if errors.Is(err, domain.ErrCapExceeded) {
			s.notify(ctx, intent.SenderID, TemplateSpendCapBlocked, map[string]string{
				"amount": FormatAmount(intent.AmountMinor),
			})
			return intent, domain.ErrCapExceeded
		}
		return intent, fmt.Errorf("ledger commit: %w", err)
	}

	completed, err := s.intents.Transition(ctx, intent.ID, idempotencyKey, domain.IntentCompleted, nil)
	if err != nil {
		return intent, err
	}
	s.notify(ctx, completed.SenderID, TemplateMoneySent, map[string]string{
		"amount":   FormatAmount(completed.AmountMinor),
		"provider": string(completed.Provider),
	})
	s.notify(ctx, completed.RecipientID, TemplateMoneyReceived, map[string]string{
		"sender":   sender.Name,
		"amount":   FormatAmount(completed.AmountMinor),
		"provider": string(completed.Provider),
	})
	return completed, nil
}

func (s *Service) notify(ctx context.Context, userID, template string, params map[string]string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, template, params)
}
