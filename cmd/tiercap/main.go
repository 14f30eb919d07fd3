package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"famwell/internal/domain"
	"famwell/internal/infra"
	"famwell/internal/payments"
	"famwell/internal/sqlinline"
)

// tiercap assigns a subscription tier to a user. The tier determines the
// monthly spend cap applied when the next ledger period opens; the cap on an
// already-open period is left untouched.
func main() {
	var (
		idFlag    string
		emailFlag string
		tierFlag  string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&tierFlag, "tier", "free", "tier to assign (free, plus, premium)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	tier := domain.SubscriptionTier(strings.TrimSpace(strings.ToLower(tierFlag)))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	switch tier {
	case domain.TierFree, domain.TierPlus, domain.TierPremium:
	default:
		exitWithError(fmt.Errorf("unsupported tier %q", tier))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tiercap").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
	var current struct {
		ID    string
		Email string
		Tier  string
	}
	var scanErr error
	if userID != "" {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectUserTierByID, userID)
		scanErr = row.Scan(&current.ID, &current.Email, &current.Tier)
	} else {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectUserTierByEmail, email)
		scanErr = row.Scan(&current.ID, &current.Email, &current.Tier)
	}
	cancelLookup()
	if scanErr != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", scanErr))
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()
	row := runner.QueryRow(updateCtx, sqlinline.QUpdateUserTier, current.ID, string(tier))

	var (
		updatedID    string
		updatedEmail string
		updatedTier  string
	)
	if err := row.Scan(&updatedID, &updatedEmail, &updatedTier); err != nil {
		exitWithError(fmt.Errorf("failed to update tier: %w", err))
	}

	capMinor := domain.CapForTier(domain.SubscriptionTier(updatedTier))
	fmt.Printf("User %s (%s) updated from tier %s to %s\n", updatedID, updatedEmail, current.Tier, updatedTier)
	fmt.Printf("monthly_cap=$%s\n", payments.FormatAmount(capMinor))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
