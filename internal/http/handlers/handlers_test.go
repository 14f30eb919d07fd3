package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"famwell/internal/domain"
	"famwell/internal/infra"
	"famwell/internal/middleware"
	"famwell/internal/payments"
)

type fakeSQL struct {
	queryRowFn func(query string, args ...any) pgx.Row
	execFn     func(query string, args ...any) (pgconn.CommandTag, error)
	queryFn    func(query string, args ...any) (pgx.Rows, error)
}

func (f *fakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn == nil {
		return pgconn.CommandTag{}, nil
	}
	return f.execFn(query, args...)
}

func (f *fakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if f.queryRowFn == nil {
		return NewSimpleRow(nil)
	}
	return f.queryRowFn(query, args...)
}

func (f *fakeSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if f.queryFn == nil {
		return nil, errors.New("query not stubbed")
	}
	return f.queryFn(query, args...)
}

var _ infra.SQLExecutor = (*fakeSQL)(nil)

type fakeUsers struct {
	byID     map[string]*domain.User
	upserted *domain.User
}

func (f *fakeUsers) UpsertByGoogleSub(_ context.Context, user *domain.User) (*domain.User, error) {
	cp := *user
	cp.ID = "user-" + user.GoogleSub
	f.upserted = &cp
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetTier(context.Context, string, domain.SubscriptionTier) error { return nil }

func (f *fakeUsers) SetPushToken(_ context.Context, id, token string) error {
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.ExpoPushToken = token
	return nil
}

func testConfig() *infra.Config {
	return &infra.Config{
		JWTSecret:     "test-secret",
		DefaultLocale: "en",
		InviteTTL:     72 * time.Hour,
	}
}

func newTestApp() *App {
	return &App{
		SQL:    &fakeSQL{},
		Logger: zerolog.Nop(),
		Cfg:    testConfig(),
		Users: &fakeUsers{byID: map[string]*domain.User{
			"parent-1":  {ID: "parent-1", Name: "dana", Role: domain.UserRoleParent, Email: "dana@example.com"},
			"student-1": {ID: "student-1", Name: "kim", Role: domain.UserRoleStudent, ZelleAddress: "kim@example.com"},
		}},
	}
}

func authedRequest(method, target, userID string, body any) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestWellnessUpsertRejectsOutOfRangeMood(t *testing.T) {
	app := newTestApp()
	req := authedRequest(http.MethodPost, "/v1/wellness", "student-1", wellnessUpsertRequest{
		EntryDate: "2026-08-20", Mood: 9, Stress: 2, SleepHours: 7,
	})
	rec := httptest.NewRecorder()
	app.WellnessUpsert(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "bad_request" {
		t.Fatalf("error code = %v", body["error"])
	}
}

func TestWellnessUpsertRejectsBadDate(t *testing.T) {
	app := newTestApp()
	req := authedRequest(http.MethodPost, "/v1/wellness", "student-1", wellnessUpsertRequest{
		EntryDate: "08/20/2026", Mood: 3, Stress: 2, SleepHours: 7,
	})
	rec := httptest.NewRecorder()
	app.WellnessUpsert(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWellnessUpsertPersistsEntry(t *testing.T) {
	app := newTestApp()
	var gotArgs []any
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		gotArgs = args
		return NewSimpleRow(func(dest ...any) error {
			*(dest[0].(*string)) = "entry-1"
			return nil
		})
	}}

	req := authedRequest(http.MethodPost, "/v1/wellness", "student-1", wellnessUpsertRequest{
		EntryDate: "2026-08-20", Mood: 4, Stress: 2, SleepHours: 7.5, ExerciseMinutes: 30, Note: "ran",
	})
	rec := httptest.NewRecorder()
	app.WellnessUpsert(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(gotArgs) != 7 || gotArgs[0] != "student-1" || gotArgs[1] != "2026-08-20" {
		t.Fatalf("query args = %v", gotArgs)
	}
	body := decodeBody(t, rec)
	if body["id"] != "entry-1" {
		t.Fatalf("id = %v", body["id"])
	}
}

func TestWellnessUpsertRequiresAuth(t *testing.T) {
	app := newTestApp()
	req := authedRequest(http.MethodPost, "/v1/wellness", "", wellnessUpsertRequest{EntryDate: "2026-08-20", Mood: 3, Stress: 3})
	rec := httptest.NewRecorder()
	app.WellnessUpsert(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWellnessSummaryAggregates(t *testing.T) {
	app := newTestApp()
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		return NewSimpleRow(func(dest ...any) error {
			*(dest[0].(*int)) = 3
			*(dest[1].(*float64)) = 4.2
			*(dest[2].(*float64)) = 7.5
			*(dest[3].(*float64)) = 2.1
			*(dest[4].(*int)) = 120
			return nil
		})
	}}

	req := authedRequest(http.MethodGet, "/v1/wellness/summary?from=2026-08-01&to=2026-08-20", "student-1", nil)
	rec := httptest.NewRecorder()
	app.WellnessSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["entries"] != float64(3) || body["avg_mood"] != 4.2 || body["total_exercise_min"] != float64(120) {
		t.Fatalf("summary body = %v", body)
	}
	if body["from"] != "2026-08-01" || body["to"] != "2026-08-20" {
		t.Fatalf("range = %v..%v", body["from"], body["to"])
	}
}

func TestInviteCreateAssignsFamilyAndCode(t *testing.T) {
	app := newTestApp()
	var inserted []any
	app.SQL = &fakeSQL{
		queryRowFn: func(query string, args ...any) pgx.Row {
			return NewSimpleRow(func(dest ...any) error {
				*(dest[0].(*string)) = "family-1"
				return nil
			})
		},
		execFn: func(query string, args ...any) (pgconn.CommandTag, error) {
			inserted = args
			return pgconn.CommandTag{}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/v1/family/invites", "parent-1", nil)
	rec := httptest.NewRecorder()
	app.InviteCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	code, _ := body["code"].(string)
	if len(code) != 8 || code != strings.ToUpper(code) {
		t.Fatalf("code = %q", code)
	}
	if body["family_id"] != "family-1" {
		t.Fatalf("family id = %v", body["family_id"])
	}
	if len(inserted) != 4 || inserted[0] != code || inserted[1] != "family-1" {
		t.Fatalf("insert args = %v", inserted)
	}
}

func TestInviteJoinRedeems(t *testing.T) {
	app := newTestApp()
	expires := time.Now().Add(time.Hour)
	calls := 0
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		calls++
		if calls == 1 {
			// invite lookup
			return NewSimpleRow(func(dest ...any) error {
				*(dest[0].(*string)) = "ABCD1234"
				*(dest[1].(*string)) = "family-1"
				*(dest[2].(*string)) = "parent-1"
				*(dest[3].(*time.Time)) = expires
				*(dest[4].(*string)) = ""
				*(dest[5].(*time.Time)) = time.Now()
				return nil
			})
		}
		return NewSimpleRow(func(dest ...any) error {
			*(dest[0].(*string)) = "family-1"
			return nil
		})
	}}

	req := authedRequest(http.MethodPost, "/v1/family/join", "student-1", inviteJoinRequest{Code: "abcd1234"})
	rec := httptest.NewRecorder()
	app.InviteJoin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["family_id"] != "family-1" {
		t.Fatalf("family id = %v", body["family_id"])
	}
}

func TestInviteJoinAlreadyRedeemed(t *testing.T) {
	app := newTestApp()
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		return NewSimpleRow(func(dest ...any) error {
			*(dest[0].(*string)) = "ABCD1234"
			*(dest[1].(*string)) = "family-1"
			*(dest[2].(*string)) = "parent-1"
			*(dest[3].(*time.Time)) = time.Now().Add(time.Hour)
			*(dest[4].(*string)) = "someone-else"
			*(dest[5].(*time.Time)) = time.Now()
			return nil
		})
	}}

	req := authedRequest(http.MethodPost, "/v1/family/join", "student-1", inviteJoinRequest{Code: "ABCD1234"})
	rec := httptest.NewRecorder()
	app.InviteJoin(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestInviteJoinExpired(t *testing.T) {
	app := newTestApp()
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		return NewSimpleRow(func(dest ...any) error {
			*(dest[0].(*string)) = "ABCD1234"
			*(dest[1].(*string)) = "family-1"
			*(dest[2].(*string)) = "parent-1"
			*(dest[3].(*time.Time)) = time.Now().Add(-time.Hour)
			*(dest[4].(*string)) = ""
			*(dest[5].(*time.Time)) = time.Now().Add(-73 * time.Hour)
			return nil
		})
	}}

	req := authedRequest(http.MethodPost, "/v1/family/join", "student-1", inviteJoinRequest{Code: "ABCD1234"})
	rec := httptest.NewRecorder()
	app.InviteJoin(rec, req)

	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
}

func TestInviteJoinUnknownCode(t *testing.T) {
	app := newTestApp()
	app.SQL = &fakeSQL{queryRowFn: func(query string, args ...any) pgx.Row {
		return NewSimpleRow(nil) // scans pgx.ErrNoRows
	}}

	req := authedRequest(http.MethodPost, "/v1/family/join", "student-1", inviteJoinRequest{Code: "NOPE0000"})
	rec := httptest.NewRecorder()
	app.InviteJoin(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

type fakeVerifier struct {
	claims map[string]any
	err    error
}

func (f *fakeVerifier) VerifyIDToken(context.Context, string) (map[string]any, error) {
	return f.claims, f.err
}

func TestAuthGoogleVerifyMintsToken(t *testing.T) {
	app := newTestApp()
	app.GoogleVerifier = &fakeVerifier{claims: map[string]any{
		"sub":   "goog-123",
		"email": "dana@example.com",
		"name":  "Dana",
	}}

	req := authedRequest(http.MethodPost, "/v1/auth/google/verify", "", googleVerifyRequest{IDToken: "token", Role: "parent"})
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	claims, err := middleware.VerifyJWT(app.Cfg.JWTSecret, token)
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if claims.Sub != "user-goog-123" || claims.Role != "parent" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAuthGoogleVerifyRejectsBadToken(t *testing.T) {
	app := newTestApp()
	app.GoogleVerifier = &fakeVerifier{err: errors.New("bad signature")}

	req := authedRequest(http.MethodPost, "/v1/auth/google/verify", "", googleVerifyRequest{IDToken: "token"})
	rec := httptest.NewRecorder()
	app.AuthGoogleVerify(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterPushToken(t *testing.T) {
	app := newTestApp()
	req := authedRequest(http.MethodPost, "/v1/me/push-token", "parent-1", pushTokenRequest{Token: "ExponentPushToken[x]"})
	rec := httptest.NewRecorder()
	app.RegisterPushToken(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

// Payment handler tests drive a real reconciler service over in-memory repos.

type memIntentRepo struct {
	m map[string]*domain.PaymentIntent
}

func (r *memIntentRepo) Create(_ context.Context, intent *domain.PaymentIntent) error {
	cp := *intent
	r.m[intent.ID] = &cp
	return nil
}

func (r *memIntentRepo) GetByID(_ context.Context, id string) (*domain.PaymentIntent, error) {
	intent, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (r *memIntentRepo) ListForUser(_ context.Context, userID string, _ int) ([]domain.PaymentIntent, error) {
	var out []domain.PaymentIntent
	for _, intent := range r.m {
		if intent.SenderID == userID || intent.RecipientID == userID {
			out = append(out, *intent)
		}
	}
	return out, nil
}

func (r *memIntentRepo) Transition(_ context.Context, id, idempotencyKey string, target domain.IntentStatus, ref *domain.ProviderReference) (*domain.PaymentIntent, error) {
	intent, ok := r.m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if intent.IdempotencyKey != idempotencyKey {
		return nil, domain.ErrIdempotencyMismatch
	}
	if intent.Status != target {
		if !domain.CanTransition(intent.Status, target) {
			return nil, domain.ErrInvalidTransition
		}
		intent.Status = target
	}
	if ref != nil && intent.ProviderOrderID == "" {
		intent.ProviderOrderID = ref.OrderID
	}
	cp := *intent
	return &cp, nil
}

type memLedgerRepo struct {
	ledger domain.SpendLedger
}

func (r *memLedgerRepo) GetOrCreatePeriod(_ context.Context, senderID string, periodStart time.Time, capMinor int64) (*domain.SpendLedger, error) {
	if r.ledger.SenderID == "" {
		r.ledger = domain.SpendLedger{SenderID: senderID, PeriodStart: periodStart, PeriodEnd: periodStart.AddDate(0, 1, 0), CapMinor: capMinor}
	}
	cp := r.ledger
	return &cp, nil
}

func (r *memLedgerRepo) TryReserveAndCommit(_ context.Context, _ string, _ time.Time, amountMinor int64, _ string) error {
	if r.ledger.SpentMinor+amountMinor > r.ledger.CapMinor {
		return domain.ErrCapExceeded
	}
	r.ledger.SpentMinor += amountMinor
	return nil
}

func newPaymentsApp() *App {
	app := newTestApp()
	intents := &memIntentRepo{m: map[string]*domain.PaymentIntent{}}
	ledgers := &memLedgerRepo{}
	adapter := payments.NewAdapter(nil, "USD", zerolog.Nop())
	app.Payments = payments.NewService(intents, ledgers, app.Users, adapter, nil, payments.Options{}, zerolog.Nop())
	return app
}

func paymentsRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/payments", app.PaymentsCreate)
	r.Get("/v1/payments/{id}", app.PaymentsGet)
	r.Post("/v1/payments/{id}/confirm", app.PaymentsConfirm)
	r.Post("/v1/payments/{id}/cancel", app.PaymentsCancel)
	r.Get("/v1/payments/ledger", app.PaymentsLedger)
	return r
}

func TestPaymentsCreateAndManualConfirmFlow(t *testing.T) {
	app := newPaymentsApp()
	router := paymentsRouter(app)

	req := authedRequest(http.MethodPost, "/v1/payments", "parent-1", paymentCreateRequest{
		RecipientID: "student-1", Provider: "zelle", AmountMinor: 2500, Note: "lunch",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	if created["requires_manual_confirmation"] != true {
		t.Fatal("zelle transfer must require manual confirmation")
	}
	intent := created["intent"].(map[string]any)
	id := intent["id"].(string)
	key := created["idempotency_key"].(string)
	if intent["status"] != "initiated" {
		t.Fatalf("status = %v", intent["status"])
	}

	req = authedRequest(http.MethodPost, "/v1/payments/"+id+"/confirm", "parent-1", paymentActionRequest{IdempotencyKey: key})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
	confirmed := decodeBody(t, rec)
	if confirmed["status"] != "completed" {
		t.Fatalf("status after confirm = %v", confirmed["status"])
	}

	req = authedRequest(http.MethodGet, "/v1/payments/ledger", "parent-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	ledger := decodeBody(t, rec)
	if ledger["spent_minor"] != float64(2500) {
		t.Fatalf("spent = %v", ledger["spent_minor"])
	}
}

func TestPaymentsConfirmWrongKey(t *testing.T) {
	app := newPaymentsApp()
	router := paymentsRouter(app)

	req := authedRequest(http.MethodPost, "/v1/payments", "parent-1", paymentCreateRequest{
		RecipientID: "student-1", Provider: "zelle", AmountMinor: 2500,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	created := decodeBody(t, rec)
	id := created["intent"].(map[string]any)["id"].(string)

	req = authedRequest(http.MethodPost, "/v1/payments/"+id+"/confirm", "parent-1", paymentActionRequest{IdempotencyKey: "wrong"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "idempotency_mismatch" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestPaymentsGetForbiddenForOutsiders(t *testing.T) {
	app := newPaymentsApp()
	app.Users.(*fakeUsers).byID["other-1"] = &domain.User{ID: "other-1", Role: domain.UserRoleParent}
	router := paymentsRouter(app)

	req := authedRequest(http.MethodPost, "/v1/payments", "parent-1", paymentCreateRequest{
		RecipientID: "student-1", Provider: "zelle", AmountMinor: 2500,
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	created := decodeBody(t, rec)
	id := created["intent"].(map[string]any)["id"].(string)

	req = authedRequest(http.MethodGet, "/v1/payments/"+id, "other-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	req = authedRequest(http.MethodPost, "/v1/payments/"+id+"/cancel", "student-1", paymentActionRequest{})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("recipient cancel status = %d, want 403", rec.Code)
	}
}

func TestPaymentsCreateUnknownProvider(t *testing.T) {
	app := newPaymentsApp()
	req := authedRequest(http.MethodPost, "/v1/payments", "parent-1", paymentCreateRequest{
		RecipientID: "student-1", Provider: "wire", AmountMinor: 2500,
	})
	rec := httptest.NewRecorder()
	app.PaymentsCreate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
