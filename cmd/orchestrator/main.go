package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TrulyGourav/OrchexPay/config"
	ledgerports "github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	ledgerservice "github.com/TrulyGourav/OrchexPay/internal/ledger/service"
	"github.com/TrulyGourav/OrchexPay/internal/payout/client"
	"github.com/TrulyGourav/OrchexPay/internal/payout/handler"
	"github.com/TrulyGourav/OrchexPay/internal/payout/service"
	pgStorage "github.com/TrulyGourav/OrchexPay/internal/payout/storage/postgres"
	"github.com/TrulyGourav/OrchexPay/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("payout-orchestrator", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Int("port", cfg.Payout.Port).
		Str("ledger_url", cfg.Payout.LedgerURL).
		Msg("Starting OrchexPay payout orchestrator")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Payout.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Repositories
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	orderRepo := pgStorage.NewPendingOrderRepo(pool)

	// Ledger client
	ledgerClient := client.NewLedgerClient(cfg.Payout.LedgerURL, cfg.Payout.ServiceToken, log)

	// Services. The orchestrator validates the same JWTs the ledger issues.
	tokenSvc := ledgerservice.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	payoutSvc := service.NewPayoutService(payoutRepo, ledgerClient, log)
	webhookSvc, err := service.NewWebhookService(orderRepo, ledgerClient, payoutSvc, cfg.Payout.CommissionPercent, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize webhook service")
	}

	pgHealth := pgStorage.NewHealthCheck(pool)

	router := handler.SetupRouter(handler.RouterDeps{
		PayoutSvc:      payoutSvc,
		WebhookSvc:     webhookSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ledgerports.HealthChecker{pgHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Payout.Host, cfg.Payout.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
