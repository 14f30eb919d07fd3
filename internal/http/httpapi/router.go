package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"famwell/internal/http/handlers"
	"famwell/internal/middleware"
)

// NewRouter wires the public API surface. countryLookup may be nil when no
// GeoIP database is configured; locale detection then relies on headers only.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Cfg.CORSOrigins),
		middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute),
		middleware.I18N(app.Cfg.DefaultLocale, countryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/auth/google/verify", app.AuthGoogleVerify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Post("/v1/me/push-token", app.RegisterPushToken)

		r.Route("/v1/payments", func(r chi.Router) {
			r.With(middleware.RequireRole("parent")).Post("/", app.PaymentsCreate)
			r.Get("/", app.PaymentsList)
			r.Get("/ledger", app.PaymentsLedger)
			r.Get("/{id}", app.PaymentsGet)
			r.Post("/{id}/return", app.PaymentsReturn)
			r.Post("/{id}/verify", app.PaymentsVerify)
			r.Post("/{id}/confirm", app.PaymentsConfirm)
			r.Post("/{id}/cancel", app.PaymentsCancel)
		})

		r.Route("/v1/wellness", func(r chi.Router) {
			r.Post("/", app.WellnessUpsert)
			r.Get("/", app.WellnessList)
			r.Get("/summary", app.WellnessSummary)
			r.Get("/export", app.WellnessExport)
		})

		r.Route("/v1/family", func(r chi.Router) {
			r.With(middleware.RequireRole("parent")).Post("/invites", app.InviteCreate)
			r.Post("/join", app.InviteJoin)
		})

		r.Post("/v1/encourage", app.Encourage)
	})

	return r
}
