package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	GeoIPDBPath      string
	GoogleClientID   string
	GoogleIssuer     string
	PayPalBaseURL    string
	PayPalClientID   string
	PayPalSecret     string
	PayPalCurrency   string
	ExpoPushURL      string
	ExpoAccessToken  string
	EmailAPIURL      string
	EmailAPIKey      string
	EmailFromAddress string
	CORSOrigins      []string
	DefaultLocale    string
	PendingIntentTTL time.Duration
	VerifyTimeout    time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	InviteTTL        time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleIssuer:     getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		PayPalBaseURL:    getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:   os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalSecret:     os.Getenv("PAYPAL_SECRET"),
		PayPalCurrency:   getEnv("PAYPAL_CURRENCY", "USD"),
		ExpoPushURL:      getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		ExpoAccessToken:  os.Getenv("EXPO_ACCESS_TOKEN"),
		EmailAPIURL:      getEnv("EMAIL_API_URL", "https://api.sendgrid.com/v3/mail/send"),
		EmailAPIKey:      os.Getenv("EMAIL_API_KEY"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@famwell.app"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:19006")),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		PendingIntentTTL: time.Hour * time.Duration(getEnvInt("PENDING_INTENT_TTL_HOURS", 48)),
		VerifyTimeout:    time.Second * time.Duration(getEnvInt("VERIFY_TIMEOUT_SECONDS", 8)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		InviteTTL:        time.Hour * time.Duration(getEnvInt("INVITE_TTL_HOURS", 72)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
