package payments

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"famwell/internal/domain"
)

// Redirect is the target the client opens to hand the user to the provider.
type Redirect struct {
	URL                        string
	RequiresManualConfirmation bool
}

// Adapter builds provider redirects. PayPal goes through the order API with a
// manual deep-link fallback; the other rails are deep-link templates only.
type Adapter struct {
	orders   OrderAPI
	currency string
	logger   zerolog.Logger
}

func NewAdapter(orders OrderAPI, currency string, logger zerolog.Logger) *Adapter {
	return &Adapter{orders: orders, currency: currency, logger: logger}
}

var (
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,30}$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern  = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// ValidateHandle checks the recipient identifier for the given rail before
// any redirect is attempted.
func ValidateHandle(provider domain.Provider, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return fmt.Errorf("%w: recipient has no %s handle", domain.ErrValidation, provider)
	}
	switch provider {
	case domain.ProviderZelle:
		if !emailPattern.MatchString(handle) && !phonePattern.MatchString(handle) {
			return fmt.Errorf("%w: zelle recipient must be an email or phone number", domain.ErrValidation)
		}
	default:
		if !handlePattern.MatchString(strings.TrimPrefix(handle, "$")) {
			return fmt.Errorf("%w: malformed %s handle %q", domain.ErrValidation, provider, handle)
		}
	}
	return nil
}

// BuildRedirect returns the redirect target for the transfer. Order-creation
// failures degrade to the manual deep link rather than blocking the user.
func (a *Adapter) BuildRedirect(ctx context.Context, provider domain.Provider, amountMinor int64, handle, note, intentID string) (*Redirect, string, error) {
	if err := ValidateHandle(provider, handle); err != nil {
		return nil, "", err
	}

	if provider == domain.ProviderPayPal && a.orders != nil {
		order, err := a.orders.CreateOrder(ctx, amountMinor, a.currency, note, intentID)
		if err == nil {
			return &Redirect{URL: order.ApprovalURL}, order.OrderID, nil
		}
		a.logger.Warn().Err(err).Str("intent_id", intentID).Msg("paypal order creation failed, falling back to manual link")
	}

	return &Redirect{
		URL:                        manualDeepLink(provider, handle, amountMinor, note),
		RequiresManualConfirmation: true,
	}, "", nil
}

func manualDeepLink(provider domain.Provider, handle string, amountMinor int64, note string) string {
	amount := FormatAmount(amountMinor)
	switch provider {
	case domain.ProviderPayPal:
		return fmt.Sprintf("https://www.paypal.me/%s/%s", url.PathEscape(handle), amount)
	case domain.ProviderVenmo:
		q := url.Values{}
		q.Set("txn", "pay")
		q.Set("amount", amount)
		if note != "" {
			q.Set("note", note)
		}
		return fmt.Sprintf("https://venmo.com/%s?%s", url.PathEscape(handle), q.Encode())
	case domain.ProviderCashApp:
		return fmt.Sprintf("https://cash.app/$%s/%s", url.PathEscape(strings.TrimPrefix(handle, "$")), amount)
	case domain.ProviderZelle:
		q := url.Values{}
		q.Set("recipient", handle)
		q.Set("amount", amount)
		return "https://www.zellepay.com/pay?" + q.Encode()
	}
	return ""
}

// FormatAmount renders minor units as a decimal string ("2500" -> "25.00").
func FormatAmount(amountMinor int64) string {
	return fmt.Sprintf("%d.%02d", amountMinor/100, amountMinor%100)
}
