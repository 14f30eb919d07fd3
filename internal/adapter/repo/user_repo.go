package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"famwell/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

const userColumns = `id, google_sub, email, name, role, coalesce(family_id::text, ''), tier, locale, expo_push_token, paypal_handle, venmo_handle, cashapp_tag, zelle_address, created_at, updated_at`

// UpsertByGoogleSub inserts or updates a user based on the Google sub value.
func (r *UserRepositoryPG) UpsertByGoogleSub(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
INSERT INTO users (id, google_sub, email, name, role, family_id, tier, locale)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8)
ON CONFLICT (google_sub) DO UPDATE
SET email = EXCLUDED.email,
    name = EXCLUDED.name,
    locale = EXCLUDED.locale,
    updated_at = NOW()
RETURNING ` + userColumns + `;
`
	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.GoogleSub,
		user.Email,
		user.Name,
		user.Role,
		user.FamilyID,
		user.Tier,
		user.Locale,
	)
	return scanUser(row)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// SetTier updates the user's subscription tier.
func (r *UserRepositoryPG) SetTier(ctx context.Context, id string, tier domain.SubscriptionTier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET tier = $2, updated_at = NOW() WHERE id = $1`, id, tier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPushToken stores the Expo push token registered by the client.
func (r *UserRepositoryPG) SetPushToken(ctx context.Context, id, token string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET expo_push_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.GoogleSub,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.FamilyID,
		&u.Tier,
		&u.Locale,
		&u.ExpoPushToken,
		&u.PayPalHandle,
		&u.VenmoHandle,
		&u.CashAppTag,
		&u.ZelleAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
