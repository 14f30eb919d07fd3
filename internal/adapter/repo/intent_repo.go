package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"famwell/internal/domain"
)

// IntentRepositoryPG implements domain.IntentRepository backed by PostgreSQL.
type IntentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates a new IntentRepositoryPG.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepositoryPG {
	return &IntentRepositoryPG{pool: pool}
}

const intentColumns = `id, sender_id, recipient_id, provider, amount_minor, note, idempotency_key, status, provider_order_id, capture_id, created_at, confirmed_at, completed_at`

// Create inserts a new intent record.
func (r *IntentRepositoryPG) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `
INSERT INTO payment_intents (id, sender_id, recipient_id, provider, amount_minor, note, idempotency_key, status, provider_order_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10);
`
	_, err := r.pool.Exec(ctx, query,
		intent.ID,
		intent.SenderID,
		intent.RecipientID,
		intent.Provider,
		intent.AmountMinor,
		intent.Note,
		intent.IdempotencyKey,
		intent.Status,
		intent.ProviderOrderID,
		intent.CreatedAt,
	)
	return err
}

// GetByID fetches an intent by its identifier.
func (r *IntentRepositoryPG) GetByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
	return scanIntent(row)
}

// ListForUser returns intents where the user is sender or recipient, newest first.
func (r *IntentRepositoryPG) ListForUser(ctx context.Context, userID string, limit int) ([]domain.PaymentIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+intentColumns+`
FROM payment_intents
WHERE sender_id = $1 OR recipient_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.PaymentIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, rows.Err()
}

// Transition applies a guarded status change inside a transaction. The row is
// locked first so concurrent transitions against the same intent serialize.
func (r *IntentRepositoryPG) Transition(ctx context.Context, id, idempotencyKey string, target domain.IntentStatus, ref *domain.ProviderReference) (*domain.PaymentIntent, error) {
	var result *domain.PaymentIntent
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1 FOR UPDATE`, id)
		intent, err := scanIntent(row)
		if err != nil {
			return err
		}
		if intent.IdempotencyKey != idempotencyKey {
			return domain.ErrIdempotencyMismatch
		}
		if intent.Status == target {
			// Idempotent retry: report the current row, change nothing.
			result = intent
			return nil
		}
		if !domain.CanTransition(intent.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, intent.Status, target)
		}

		now := time.Now().UTC()
		var confirmedAt, completedAt *time.Time
		switch target {
		case domain.IntentConfirmed:
			confirmedAt = &now
		case domain.IntentCompleted:
			completedAt = &now
		}
		orderID, captureID := "", ""
		if ref != nil {
			orderID, captureID = ref.OrderID, ref.CaptureID
		}

		row = tx.QueryRow(ctx, `
UPDATE payment_intents
SET status = $2,
    confirmed_at = COALESCE(confirmed_at, $3),
    completed_at = COALESCE(completed_at, $4),
    provider_order_id = COALESCE(provider_order_id, NULLIF($5, '')),
    capture_id = COALESCE(capture_id, NULLIF($6, ''))
WHERE id = $1
RETURNING `+intentColumns+`;
`, id, target, confirmedAt, completedAt, orderID, captureID)
		result, err = scanIntent(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var (
		intent    domain.PaymentIntent
		orderID   *string
		captureID *string
	)
	if err := row.Scan(
		&intent.ID,
		&intent.SenderID,
		&intent.RecipientID,
		&intent.Provider,
		&intent.AmountMinor,
		&intent.Note,
		&intent.IdempotencyKey,
		&intent.Status,
		&orderID,
		&captureID,
		&intent.CreatedAt,
		&intent.ConfirmedAt,
		&intent.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if orderID != nil {
		intent.ProviderOrderID = *orderID
	}
	if captureID != nil {
		intent.CaptureID = *captureID
	}
	return &intent, nil
}
