package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"famwell/internal/domain"
)

func TestValidateHandle(t *testing.T) {
	cases := []struct {
		name     string
		provider domain.Provider
		handle   string
		wantErr  bool
	}{
		{"paypal handle", domain.ProviderPayPal, "kim-pp", false},
		{"venmo handle", domain.ProviderVenmo, "Kim_Venmo.1", false},
		{"cashapp tag with dollar", domain.ProviderCashApp, "$kimtag", false},
		{"zelle email", domain.ProviderZelle, "kim@example.com", false},
		{"zelle phone", domain.ProviderZelle, "+15551234567", false},
		{"zelle plain name rejected", domain.ProviderZelle, "kim", true},
		{"empty handle", domain.ProviderVenmo, "", true},
		{"whitespace handle", domain.ProviderPayPal, "   ", true},
		{"handle with spaces", domain.ProviderVenmo, "kim venmo", true},
		{"overlong handle", domain.ProviderPayPal, strings.Repeat("a", 31), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateHandle(tc.provider, tc.handle)
			if tc.wantErr && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestManualDeepLinks(t *testing.T) {
	cases := []struct {
		name     string
		provider domain.Provider
		handle   string
		want     string
	}{
		{"paypal", domain.ProviderPayPal, "kim-pp", "https://www.paypal.me/kim-pp/25.00"},
		{"venmo", domain.ProviderVenmo, "kimv", "https://venmo.com/kimv?amount=25.00&note=lunch&txn=pay"},
		{"cashapp strips dollar prefix", domain.ProviderCashApp, "$kimtag", "https://cash.app/$kimtag/25.00"},
		{"zelle", domain.ProviderZelle, "kim@example.com", "https://www.zellepay.com/pay?amount=25.00&recipient=kim%40example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := manualDeepLink(tc.provider, tc.handle, 2500, "lunch"); got != tc.want {
				t.Fatalf("manualDeepLink = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildRedirectManualRailNeverCallsOrderAPI(t *testing.T) {
	orders := &fakeOrders{}
	adapter := NewAdapter(orders, "USD", zerolog.Nop())

	redirect, orderID, err := adapter.BuildRedirect(context.Background(), domain.ProviderVenmo, 2500, "kimv", "", "intent-1")
	if err != nil {
		t.Fatalf("BuildRedirect returned error: %v", err)
	}
	if orders.createCalls != 0 {
		t.Fatal("manual rail must not create an order")
	}
	if orderID != "" {
		t.Fatalf("order id = %q, want empty", orderID)
	}
	if !redirect.RequiresManualConfirmation {
		t.Fatal("manual rail redirect must require manual confirmation")
	}
}

func TestBuildRedirectPayPalFallsBackOnError(t *testing.T) {
	orders := &fakeOrders{createErr: errors.New("unavailable")}
	adapter := NewAdapter(orders, "USD", zerolog.Nop())

	redirect, orderID, err := adapter.BuildRedirect(context.Background(), domain.ProviderPayPal, 2500, "kim-pp", "", "intent-1")
	if err != nil {
		t.Fatalf("BuildRedirect returned error: %v", err)
	}
	if orderID != "" {
		t.Fatalf("order id = %q, want empty on fallback", orderID)
	}
	if !strings.HasPrefix(redirect.URL, "https://www.paypal.me/") {
		t.Fatalf("fallback URL = %q", redirect.URL)
	}
	if !redirect.RequiresManualConfirmation {
		t.Fatal("fallback must require manual confirmation")
	}
}

func TestBuildRedirectWithoutOrderAPI(t *testing.T) {
	adapter := NewAdapter(nil, "USD", zerolog.Nop())
	redirect, _, err := adapter.BuildRedirect(context.Background(), domain.ProviderPayPal, 2500, "kim-pp", "", "intent-1")
	if err != nil {
		t.Fatalf("BuildRedirect returned error: %v", err)
	}
	if !redirect.RequiresManualConfirmation {
		t.Fatal("missing order API must degrade to manual confirmation")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int64]string{
		2500:   "25.00",
		5:      "0.05",
		100:    "1.00",
		123456: "1234.56",
	}
	for minor, want := range cases {
		if got := FormatAmount(minor); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", minor, got, want)
		}
	}
}
