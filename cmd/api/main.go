package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"famwell/internal/adapter/repo"
	"famwell/internal/http/handlers"
	httpapi "famwell/internal/http/httpapi"
	"famwell/internal/infra"
	"famwell/internal/infra/geoip"
	"famwell/internal/infra/google"
	"famwell/internal/middleware"
	"famwell/internal/notify"
	"famwell/internal/payments"
	"famwell/internal/providers/paypal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	intents := repo.NewIntentRepository(dbpool)
	ledgers := repo.NewLedgerRepository(dbpool)
	users := repo.NewUserRepository(dbpool)

	var orders payments.OrderAPI
	if cfg.PayPalClientID != "" && cfg.PayPalSecret != "" {
		client, err := paypal.NewClient(paypal.Options{
			BaseURL:  cfg.PayPalBaseURL,
			ClientID: cfg.PayPalClientID,
			Secret:   cfg.PayPalSecret,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build paypal client")
		}
		orders = client
	} else {
		logger.Warn().Msg("paypal credentials missing, transfers fall back to manual links")
	}
	adapter := payments.NewAdapter(orders, cfg.PayPalCurrency, logger)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	var email *notify.EmailClient
	if cfg.EmailAPIKey != "" {
		email, err = notify.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFromAddress, httpClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build email client")
		}
	}
	push := notify.NewExpoClient(cfg.ExpoPushURL, cfg.ExpoAccessToken, httpClient)
	dispatcher := notify.NewDispatcher(users, push, email, logger)

	paymentSvc := payments.NewService(intents, ledgers, users, adapter, dispatcher, payments.Options{
		PendingTTL:    cfg.PendingIntentTTL,
		VerifyTimeout: cfg.VerifyTimeout,
	}, logger)

	app := &handlers.App{
		SQL:            infra.NewSQLRunner(dbpool, logger),
		Logger:         logger,
		Cfg:            cfg,
		Users:          users,
		Payments:       paymentSvc,
		Notifier:       dispatcher,
		GoogleVerifier: google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip resolver unavailable")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, countryLookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
