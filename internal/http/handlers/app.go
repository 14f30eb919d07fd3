package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"famwell/internal/domain"
	"famwell/internal/infra"
	"famwell/internal/middleware"
	"famwell/internal/payments"
)

// GoogleVerifier validates Google ID tokens during sign-in.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (map[string]any, error)
}

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	SQL            infra.SQLExecutor
	Logger         zerolog.Logger
	Cfg            *infra.Config
	Users          domain.UserRepository
	Payments       *payments.Service
	Notifier       payments.Notifier
	GoogleVerifier GoogleVerifier
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
