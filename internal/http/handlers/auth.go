package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"famwell/internal/domain"
	"famwell/internal/middleware"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token"`
	Role    string `json:"role"`
}

type userDTO struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	FamilyID      string `json:"family_id,omitempty"`
	Tier          string `json:"tier"`
	Locale        string `json:"locale"`
	ExpoPushToken string `json:"expo_push_token,omitempty"`
	PayPalHandle  string `json:"paypal_handle,omitempty"`
	VenmoHandle   string `json:"venmo_handle,omitempty"`
	CashAppTag    string `json:"cashapp_tag,omitempty"`
	ZelleAddress  string `json:"zelle_address,omitempty"`
}

func userToDTO(u *domain.User) userDTO {
	return userDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		FamilyID:      u.FamilyID,
		Tier:          string(u.Tier),
		Locale:        u.Locale,
		ExpoPushToken: u.ExpoPushToken,
		PayPalHandle:  u.PayPalHandle,
		VenmoHandle:   u.VenmoHandle,
		CashAppTag:    u.CashAppTag,
		ZelleAddress:  u.ZelleAddress,
	}
}

// AuthGoogleVerify exchanges a Google ID token for an app session token.
// First-time sign-ins create the account with the requested role; the role is
// immutable afterwards.
func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token is required")
		return
	}

	claims, err := a.GoogleVerifier.VerifyIDToken(r.Context(), req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("google id token rejected")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid identity token")
		return
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "identity token missing subject")
		return
	}

	role := domain.UserRoleParent
	if strings.EqualFold(req.Role, string(domain.UserRoleStudent)) {
		role = domain.UserRoleStudent
	}
	user, err := a.Users.UpsertByGoogleSub(r.Context(), &domain.User{
		GoogleSub: sub,
		Email:     email,
		Name:      name,
		Role:      role,
		Tier:      domain.TierFree,
		Locale:    middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	token, err := middleware.SignJWT(a.Cfg.JWTSecret, middleware.TokenClaims{
		Sub:      user.ID,
		Role:     string(user.Role),
		FamilyID: user.FamilyID,
		Tier:     string(user.Tier),
		Locale:   user.Locale,
		Exp:      time.Now().Add(30 * 24 * time.Hour).Unix(),
		Issuer:   "famwell",
		Audience: "famwell-app",
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign session token failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userToDTO(user),
	})
}

// Me returns the authenticated user's profile.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Msg("load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusOK, userToDTO(user))
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

// RegisterPushToken stores the device's Expo push token for notifications.
func (a *App) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "token is required")
		return
	}
	if err := a.Users.SetPushToken(r.Context(), userID, req.Token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		a.Logger.Error().Err(err).Msg("store push token failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true})
}
