package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		current IntentStatus
		target  IntentStatus
		want    bool
	}{
		{"initiated to pending", IntentInitiated, IntentPending, true},
		{"initiated to cancelled", IntentInitiated, IntentCancelled, true},
		{"initiated to confirmed skips pending", IntentInitiated, IntentConfirmed, false},
		{"pending to confirmed", IntentPending, IntentConfirmed, true},
		{"pending to failed", IntentPending, IntentFailed, true},
		{"pending to cancelled", IntentPending, IntentCancelled, true},
		{"confirmed to completed", IntentConfirmed, IntentCompleted, true},
		{"confirmed to cancelled", IntentConfirmed, IntentCancelled, false},
		{"completed is terminal", IntentCompleted, IntentCancelled, false},
		{"cancelled is terminal", IntentCancelled, IntentPending, false},
		{"failed is terminal", IntentFailed, IntentPending, false},
		{"same status is not an edge", IntentPending, IntentPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.current, tc.target); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.current, tc.target, got, tc.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []IntentStatus{IntentCompleted, IntentCancelled, IntentFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []IntentStatus{IntentInitiated, IntentPending, IntentConfirmed} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestParseProvider(t *testing.T) {
	if p, err := ParseProvider(" PayPal "); err != nil || p != ProviderPayPal {
		t.Fatalf("ParseProvider: got %q, %v", p, err)
	}
	if _, err := ParseProvider("wire"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProviderManual(t *testing.T) {
	if ProviderPayPal.Manual() {
		t.Fatal("paypal is programmatic")
	}
	for _, p := range []Provider{ProviderVenmo, ProviderCashApp, ProviderZelle} {
		if !p.Manual() {
			t.Errorf("%s should be manual", p)
		}
	}
}

func TestSanitizeNote(t *testing.T) {
	got, err := SanitizeNote(`  for <b>lunch</b> & "snacks"  `)
	if err != nil {
		t.Fatalf("SanitizeNote returned error: %v", err)
	}
	if got != "for blunch/b  snacks" {
		t.Fatalf("SanitizeNote mismatch: %q", got)
	}

	if _, err := SanitizeNote(strings.Repeat("x", maxNoteLength+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for long note, got %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, amount := range []int64{0, -5} {
		if err := ValidateAmount(amount); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %d, got %v", amount, err)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	at := time.Date(2026, time.March, 17, 15, 30, 0, 0, time.FixedZone("x", 3600))
	start := PeriodStart(at)
	if start != time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("PeriodStart mismatch: %v", start)
	}
	end := PeriodEnd(at)
	if end != time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("PeriodEnd mismatch: %v", end)
	}
}

func TestCapForTier(t *testing.T) {
	cases := map[SubscriptionTier]int64{
		TierFree:                 CapFreeMinor,
		TierPlus:                 CapPlusMinor,
		TierPremium:              CapPremiumMinor,
		SubscriptionTier("none"): CapFreeMinor,
	}
	for tier, want := range cases {
		if got := CapForTier(tier); got != want {
			t.Errorf("CapForTier(%s) = %d, want %d", tier, got, want)
		}
	}
}
