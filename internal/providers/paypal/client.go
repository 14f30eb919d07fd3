package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"famwell/internal/payments"
)

const defaultTimeout = 10 * time.Second

// Options configures the PayPal REST client.
type Options struct {
	BaseURL    string
	ClientID   string
	Secret     string
	HTTPClient *http.Client
}

// Client implements payments.OrderAPI against the PayPal Orders v2 API.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.Secret == "" {
		return nil, errors.New("paypal client id and secret are required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:  baseURL,
		clientID: opts.ClientID,
		secret:   opts.Secret,
		client:   client,
	}, nil
}

type orderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	ReferenceID string      `json:"reference_id"`
	Description string      `json:"description,omitempty"`
	Amount      orderAmount `json:"amount"`
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

// CreateOrder creates a CAPTURE order and returns its id and approval URL.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, note, intentID string) (*payments.Order, error) {
	payload := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: intentID,
			Description: note,
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        payments.FormatAmount(amountMinor),
			},
		}},
	}
	var resp orderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, &resp); err != nil {
		return nil, err
	}
	approval := ""
	for _, link := range resp.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approval = link.Href
			break
		}
	}
	if resp.ID == "" || approval == "" {
		return nil, errors.New("paypal: order response missing id or approval link")
	}
	return &payments.Order{OrderID: resp.ID, ApprovalURL: approval}, nil
}

// VerifyAndCapture captures the approved order and maps the provider status
// into the closed verification outcome set. Any status the mapping does not
// recognize is reported as transient, never as success.
func (c *Client) VerifyAndCapture(ctx context.Context, orderID string) (*payments.CaptureResult, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	var resp captureResponse
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		var apiErr *responseError
		if errors.As(err, &apiErr) {
			return mapAPIError(apiErr), nil
		}
		return nil, err
	}

	switch resp.Status {
	case "COMPLETED":
		return &payments.CaptureResult{
			Outcome:   payments.OutcomeSuccess,
			CaptureID: firstCaptureID(resp),
			RawStatus: resp.Status,
		}, nil
	case "APPROVED", "CREATED", "SAVED", "PAYER_ACTION_REQUIRED", "PENDING":
		return &payments.CaptureResult{Outcome: payments.OutcomePending, RawStatus: resp.Status}, nil
	case "VOIDED":
		return &payments.CaptureResult{Outcome: payments.OutcomeRejected, RawStatus: resp.Status}, nil
	default:
		return &payments.CaptureResult{Outcome: payments.OutcomeTransient, RawStatus: resp.Status}, nil
	}
}

func firstCaptureID(resp captureResponse) string {
	for _, unit := range resp.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.ID != "" {
				return capture.ID
			}
		}
	}
	return ""
}

func mapAPIError(err *responseError) *payments.CaptureResult {
	switch {
	case err.StatusCode == http.StatusNotFound:
		return &payments.CaptureResult{Outcome: payments.OutcomeRejected, RawStatus: err.Issue}
	case err.StatusCode == http.StatusUnprocessableEntity:
		switch err.Issue {
		case "ORDER_NOT_APPROVED":
			return &payments.CaptureResult{Outcome: payments.OutcomePending, RawStatus: err.Issue}
		case "ORDER_EXPIRED", "ORDER_ALREADY_CANCELED", "MAX_NUMBER_OF_PAYMENT_ATTEMPTS_EXCEEDED":
			return &payments.CaptureResult{Outcome: payments.OutcomeRejected, RawStatus: err.Issue}
		case "ORDER_ALREADY_CAPTURED":
			// Idempotent retry of a capture that already went through.
			return &payments.CaptureResult{Outcome: payments.OutcomeSuccess, RawStatus: err.Issue}
		}
		return &payments.CaptureResult{Outcome: payments.OutcomeTransient, RawStatus: err.Issue}
	case err.StatusCode >= 400 && err.StatusCode < 500:
		return &payments.CaptureResult{Outcome: payments.OutcomeRejected, RawStatus: err.Issue}
	default:
		return &payments.CaptureResult{Outcome: payments.OutcomeTransient, RawStatus: err.Issue}
	}
}

// responseError is a non-2xx API reply.
type responseError struct {
	StatusCode int
	Name       string
	Issue      string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("paypal: %d %s %s", e.StatusCode, e.Name, e.Issue)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		issue := ""
		if len(apiErr.Details) > 0 {
			issue = apiErr.Details[0].Issue
		}
		return &responseError{StatusCode: resp.StatusCode, Name: apiErr.Name, Issue: issue}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("paypal: decode response: %w", err)
		}
	}
	return nil
}

// token returns a cached OAuth access token, refreshing when near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: fetch token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return "", fmt.Errorf("paypal: token endpoint returned %d: %s", resp.StatusCode, string(raw))
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("paypal: empty access token")
	}
	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

var _ payments.OrderAPI = (*Client)(nil)
