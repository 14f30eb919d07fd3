package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"famwell/internal/domain"
)

const clientTimeout = 10 * time.Second

// Dispatcher sends push and email notifications. Delivery failures are logged
// and swallowed; they never propagate into the flows that trigger them.
type Dispatcher struct {
	users  domain.UserRepository
	push   *ExpoClient
	email  *EmailClient
	logger zerolog.Logger
}

func NewDispatcher(users domain.UserRepository, push *ExpoClient, email *EmailClient, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{users: users, push: push, email: email, logger: logger}
}

// Notify renders the template for the user's locale and delivers it on every
// channel the user has. Fire-and-forget: the caller never sees an error.
func (d *Dispatcher) Notify(ctx context.Context, userID, templateName string, params map[string]string) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		d.logger.Warn().Err(err).Str("user_id", userID).Str("template", templateName).Msg("notify: user lookup failed")
		return
	}

	rendered := make(map[string]string, len(params))
	for key, value := range params {
		if key == "sender" || key == "member" {
			value = DisplayName(value, user.Locale)
		}
		rendered[key] = value
	}
	msg := Render(templateName, user.Locale, rendered)

	if d.push != nil && user.ExpoPushToken != "" {
		if err := d.push.Send(ctx, user.ExpoPushToken, msg); err != nil {
			d.logger.Warn().Err(err).Str("user_id", userID).Str("template", templateName).Msg("notify: push delivery failed")
		}
	}
	if d.email != nil && user.Email != "" {
		if err := d.email.Send(ctx, user.Email, msg); err != nil {
			d.logger.Warn().Err(err).Str("user_id", userID).Str("template", templateName).Msg("notify: email delivery failed")
		}
	}
}

// ExpoClient posts messages to Expo's push HTTP API.
type ExpoClient struct {
	url         string
	accessToken string
	client      *http.Client
}

func NewExpoClient(pushURL, accessToken string, client *http.Client) *ExpoClient {
	if client == nil {
		client = &http.Client{Timeout: clientTimeout}
	}
	if strings.TrimSpace(pushURL) == "" {
		pushURL = "https://exp.host/--/api/v2/push/send"
	}
	return &ExpoClient{url: pushURL, accessToken: accessToken, client: client}
}

type expoMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

func (e *ExpoClient) Send(ctx context.Context, pushToken string, msg Message) error {
	payload, err := json.Marshal(expoMessage{To: pushToken, Title: msg.Title, Body: msg.Body, Sound: "default"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.accessToken)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("expo push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return fmt.Errorf("expo push: status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// EmailClient posts transactional mail to a SendGrid-compatible API.
type EmailClient struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewEmailClient(apiURL, apiKey, from string, client *http.Client) (*EmailClient, error) {
	if apiKey == "" {
		return nil, errors.New("email api key is required")
	}
	if client == nil {
		client = &http.Client{Timeout: clientTimeout}
	}
	return &EmailClient{url: apiURL, apiKey: apiKey, from: from, client: client}, nil
}

type emailAddress struct {
	Email string `json:"email"`
}

type emailPersonalization struct {
	To []emailAddress `json:"to"`
}

type emailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type emailPayload struct {
	Personalizations []emailPersonalization `json:"personalizations"`
	From             emailAddress           `json:"from"`
	Subject          string                 `json:"subject"`
	Content          []emailContent         `json:"content"`
}

func (e *EmailClient) Send(ctx context.Context, to string, msg Message) error {
	payload := emailPayload{
		Personalizations: []emailPersonalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: e.from},
		Subject:          msg.Title,
		Content:          []emailContent{{Type: "text/plain", Value: msg.Body}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return fmt.Errorf("email: status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
