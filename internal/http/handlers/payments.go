package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"famwell/internal/domain"
	"famwell/internal/payments"
)

type paymentCreateRequest struct {
	RecipientID string `json:"recipient_id"`
	Provider    string `json:"provider"`
	AmountMinor int64  `json:"amount_minor"`
	Note        string `json:"note"`
}

type intentDTO struct {
	ID              string     `json:"id"`
	SenderID        string     `json:"sender_id"`
	RecipientID     string     `json:"recipient_id"`
	Provider        string     `json:"provider"`
	AmountMinor     int64      `json:"amount_minor"`
	Note            string     `json:"note"`
	Status          string     `json:"status"`
	ProviderOrderID string     `json:"provider_order_id,omitempty"`
	CaptureID       string     `json:"capture_id,omitempty"`
	Stale           bool       `json:"stale"`
	CreatedAt       time.Time  `json:"created_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func intentToDTO(v payments.IntentView) intentDTO {
	return intentDTO{
		ID:              v.ID,
		SenderID:        v.SenderID,
		RecipientID:     v.RecipientID,
		Provider:        string(v.Provider),
		AmountMinor:     v.AmountMinor,
		Note:            v.Note,
		Status:          string(v.Status),
		ProviderOrderID: v.ProviderOrderID,
		CaptureID:       v.CaptureID,
		Stale:           v.Stale,
		CreatedAt:       v.CreatedAt,
		ConfirmedAt:     v.ConfirmedAt,
		CompletedAt:     v.CompletedAt,
	}
}

func (a *App) PaymentsCreate(w http.ResponseWriter, r *http.Request) {
	var req paymentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	senderID := a.currentUserID(r)
	if senderID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	result, err := a.Payments.Create(r.Context(), senderID, req.RecipientID, provider, req.AmountMinor, req.Note)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	view, err := a.Payments.Get(r.Context(), result.Intent.ID)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"intent":                       intentToDTO(*view),
		"idempotency_key":              result.Intent.IdempotencyKey,
		"redirect_url":                 result.Redirect.URL,
		"requires_manual_confirmation": result.Redirect.RequiresManualConfirmation,
	})
}

func (a *App) PaymentsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	views, err := a.Payments.ListForUser(r.Context(), userID, limit)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	items := make([]intentDTO, 0, len(views))
	for _, v := range views {
		items = append(items, intentToDTO(v))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) PaymentsGet(w http.ResponseWriter, r *http.Request) {
	view, ok := a.loadIntentForUser(w, r, false)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, intentToDTO(*view))
}

type paymentReturnRequest struct {
	IdempotencyKey  string `json:"idempotency_key"`
	ProviderOrderID string `json:"provider_order_id"`
	OutcomeHint     string `json:"outcome_hint"`
}

// PaymentsReturn records that the app regained control after the provider
// redirect. The outcome hint is advisory; only a cancel hint is honored.
func (a *App) PaymentsReturn(w http.ResponseWriter, r *http.Request) {
	view, ok := a.loadIntentForUser(w, r, true)
	if !ok {
		return
	}
	var req paymentReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	intent, err := a.Payments.HandleReturn(r.Context(), view.ID, req.IdempotencyKey, payments.ReturnParams{
		ProviderOrderID: req.ProviderOrderID,
		OutcomeHint:     req.OutcomeHint,
	})
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusOK, intentToDTO(payments.IntentView{PaymentIntent: *intent}))
}

type paymentActionRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

func (a *App) PaymentsVerify(w http.ResponseWriter, r *http.Request) {
	view, ok := a.loadIntentForUser(w, r, true)
	if !ok {
		return
	}
	var req paymentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	intent, err := a.Payments.Verify(r.Context(), view.ID, req.IdempotencyKey)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusOK, intentToDTO(payments.IntentView{PaymentIntent: *intent}))
}

func (a *App) PaymentsConfirm(w http.ResponseWriter, r *http.Request) {
	view, ok := a.loadIntentForUser(w, r, true)
	if !ok {
		return
	}
	var req paymentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	intent, err := a.Payments.ConfirmManual(r.Context(), view.ID, req.IdempotencyKey)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusOK, intentToDTO(payments.IntentView{PaymentIntent: *intent}))
}

func (a *App) PaymentsCancel(w http.ResponseWriter, r *http.Request) {
	view, ok := a.loadIntentForUser(w, r, true)
	if !ok {
		return
	}
	var req paymentActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	intent, err := a.Payments.Cancel(r.Context(), view.ID, req.IdempotencyKey)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusOK, intentToDTO(payments.IntentView{PaymentIntent: *intent}))
}

func (a *App) PaymentsLedger(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	ledger, err := a.Payments.Ledger(r.Context(), userID)
	if err != nil {
		a.paymentError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"period_start":    ledger.PeriodStart,
		"period_end":      ledger.PeriodEnd,
		"spent_minor":     ledger.SpentMinor,
		"cap_minor":       ledger.CapMinor,
		"remaining_minor": ledger.Remaining(),
	})
}

// loadIntentForUser fetches the intent from the URL and checks the caller is
// a party to it. Mutating endpoints require the caller to be the sender.
func (a *App) loadIntentForUser(w http.ResponseWriter, r *http.Request, senderOnly bool) (*payments.IntentView, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	view, err := a.Payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.paymentError(w, err)
		return nil, false
	}
	if err := authorizeIntentAccess(view, userID, senderOnly); err != nil {
		a.paymentError(w, err)
		return nil, false
	}
	return view, true
}

// authorizeIntentAccess lets any party read an intent but only the sender
// mutate it.
func authorizeIntentAccess(view *payments.IntentView, userID string, senderOnly bool) error {
	if senderOnly {
		if view.SenderID != userID {
			return fmt.Errorf("%w: only the sender may modify this payment", domain.ErrUnauthorized)
		}
		return nil
	}
	if view.SenderID != userID && view.RecipientID != userID {
		return fmt.Errorf("%w: not a party to this payment", domain.ErrUnauthorized)
	}
	return nil
}

func (a *App) paymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "payment not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrIdempotencyMismatch):
		a.error(w, http.StatusConflict, "idempotency_mismatch", "idempotency key does not match this payment")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrCapExceeded):
		a.error(w, http.StatusConflict, "cap_exceeded", "monthly spending limit reached; upgrade your plan or cancel the transfer")
	case errors.Is(err, payments.ErrManualProvider):
		a.error(w, http.StatusBadRequest, "manual_provider", "this payment method is confirmed manually")
	case errors.Is(err, payments.ErrVerificationPending):
		a.error(w, http.StatusConflict, "verification_pending", "the provider has not completed the payment yet; try again shortly")
	case errors.Is(err, payments.ErrVerificationFailed):
		a.error(w, http.StatusBadGateway, "verification_failed", "could not reach the payment provider; try again")
	case errors.Is(err, payments.ErrVerificationRejected):
		a.error(w, http.StatusConflict, "verification_rejected", "the provider rejected this payment")
	default:
		a.Logger.Error().Err(err).Msg("payment operation failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
