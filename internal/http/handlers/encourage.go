package handlers

import (
	"encoding/json"
	"net/http"

	"famwell/internal/domain"
	"famwell/internal/payments"
)

type encourageRequest struct {
	RecipientID string `json:"recipient_id"`
	Note        string `json:"note"`
}

// Encourage sends a supportive note to a family member as a notification.
func (a *App) Encourage(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req encourageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipientID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "recipient_id is required")
		return
	}
	note, err := domain.SanitizeNote(req.Note)
	if err != nil || note == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "note is required")
		return
	}
	if req.RecipientID == userID {
		a.error(w, http.StatusBadRequest, "bad_request", "cannot encourage yourself")
		return
	}
	if !a.sameFamily(r, userID, req.RecipientID) {
		a.error(w, http.StatusForbidden, "forbidden", "not in the same family")
		return
	}

	sender, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("load sender failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if a.Notifier != nil {
		a.Notifier.Notify(r.Context(), req.RecipientID, payments.TemplateEncouragement, map[string]string{
			"sender": sender.Name,
			"note":   note,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}
