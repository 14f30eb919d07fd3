package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"famwell/internal/domain"
	"famwell/internal/infra"
	"famwell/internal/payments"
	"famwell/internal/sqlinline"
)

// InviteCreate mints a family invite code. Only parents reach this handler;
// a parent without a family gets one assigned on their first invite.
func (a *App) InviteCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var familyID string
	err := a.SQL.QueryRow(r.Context(), sqlinline.QEnsureUserFamily, userID, uuid.NewString()).Scan(&familyID)
	if err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Msg("assign family failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	code := inviteCode()
	expiresAt := time.Now().UTC().Add(a.Cfg.InviteTTL)
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertFamilyInvite, code, familyID, userID, expiresAt); err != nil {
		a.Logger.Error().Err(err).Msg("insert invite failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"code":       code,
		"family_id":  familyID,
		"expires_at": expiresAt,
	})
}

type inviteJoinRequest struct {
	Code string `json:"code"`
}

// InviteJoin redeems an invite code, placing the caller in the family. A code
// is single-use and rejected after its expiry.
func (a *App) InviteJoin(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req inviteJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "code is required")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	invite, err := a.loadInvite(r, code)
	if err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "invite not found")
			return
		}
		a.Logger.Error().Err(err).Msg("load invite failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if err := invite.Redeemable(time.Now().UTC()); err != nil {
		switch err {
		case domain.ErrInviteRedeemed:
			a.error(w, http.StatusConflict, "invite_redeemed", "this invite was already used")
		default:
			a.error(w, http.StatusGone, "invite_expired", "this invite has expired")
		}
		return
	}

	var familyID string
	err = a.SQL.QueryRow(r.Context(), sqlinline.QRedeemFamilyInvite, code, userID).Scan(&familyID)
	if err != nil {
		if infra.IsNoRows(err) {
			// Lost the race to another redeemer between the read and the update.
			a.error(w, http.StatusConflict, "invite_redeemed", "this invite was already used")
			return
		}
		a.Logger.Error().Err(err).Msg("redeem invite failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	if a.Notifier != nil {
		member, err := a.Users.GetByID(r.Context(), userID)
		if err == nil {
			a.Notifier.Notify(r.Context(), invite.CreatedBy, payments.TemplateFamilyJoined, map[string]string{
				"member": member.Name,
			})
		}
	}

	a.json(w, http.StatusOK, map[string]any{"family_id": familyID})
}

func (a *App) loadInvite(r *http.Request, code string) (*domain.FamilyInvite, error) {
	var invite domain.FamilyInvite
	err := a.SQL.QueryRow(r.Context(), sqlinline.QSelectFamilyInvite, code).
		Scan(&invite.Code, &invite.FamilyID, &invite.CreatedBy, &invite.ExpiresAt, &invite.RedeemedBy, &invite.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// inviteCode derives a short, caseless code from a fresh UUID.
func inviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:8])
}
