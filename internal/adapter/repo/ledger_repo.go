package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"famwell/internal/domain"
)

// LedgerRepositoryPG implements domain.LedgerRepository backed by PostgreSQL.
type LedgerRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepositoryPG.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{pool: pool}
}

// GetOrCreatePeriod returns the sender's ledger for the period, inserting a
// zero-balance row with the given cap when none exists yet. An existing row
// has its cap raised to the tier-derived value, so a mid-period tier upgrade
// unblocks a cap-exceeded intent on the next settlement retry. The cap never
// shrinks mid-period: a downgrade takes effect with the next period's row.
func (r *LedgerRepositoryPG) GetOrCreatePeriod(ctx context.Context, senderID string, periodStart time.Time, capMinor int64) (*domain.SpendLedger, error) {
	_, err := r.pool.Exec(ctx, `
INSERT INTO spend_ledgers (sender_id, period_start, period_end, spent_minor, cap_minor, updated_at)
VALUES ($1, $2, $3, 0, $4, NOW())
ON CONFLICT (sender_id, period_start) DO UPDATE
SET cap_minor = GREATEST(spend_ledgers.cap_minor, EXCLUDED.cap_minor),
    updated_at = NOW();
`, senderID, periodStart, domain.PeriodEnd(periodStart), capMinor)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
SELECT sender_id, period_start, period_end, spent_minor, cap_minor, updated_at
FROM spend_ledgers
WHERE sender_id = $1 AND period_start = $2;
`, senderID, periodStart)
	return scanLedger(row)
}

// TryReserveAndCommit is the single linearization point for spend accounting.
// The conditional UPDATE checks and increments in one statement, and the
// spend_entries insert makes the commit idempotent per intent: a retried
// commit for an intent that already settled is a no-op success.
func (r *LedgerRepositoryPG) TryReserveAndCommit(ctx context.Context, senderID string, periodStart time.Time, amountMinor int64, intentID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
INSERT INTO spend_entries (intent_id, sender_id, period_start, amount_minor, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (intent_id) DO NOTHING;
`, intentID, senderID, periodStart, amountMinor)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Already committed for this intent.
			return nil
		}

		tag, err = tx.Exec(ctx, `
UPDATE spend_ledgers
SET spent_minor = spent_minor + $3,
    updated_at = NOW()
WHERE sender_id = $1
  AND period_start = $2
  AND spent_minor + $3 <= cap_minor;
`, senderID, periodStart, amountMinor)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Rolls back the entry insert as well.
			return domain.ErrCapExceeded
		}
		return nil
	})
}

func scanLedger(row pgx.Row) (*domain.SpendLedger, error) {
	var ledger domain.SpendLedger
	if err := row.Scan(
		&ledger.SenderID,
		&ledger.PeriodStart,
		&ledger.PeriodEnd,
		&ledger.SpentMinor,
		&ledger.CapMinor,
		&ledger.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ledger, nil
}
