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
	"github.com/TrulyGourav/OrchexPay/internal/ledger/events"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/handler"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/service"
	pgStorage "github.com/TrulyGourav/OrchexPay/internal/ledger/storage/postgres"
	redisStorage "github.com/TrulyGourav/OrchexPay/internal/ledger/storage/redis"
	"github.com/TrulyGourav/OrchexPay/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("wallet-ledger", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Int("port", cfg.Ledger.Port).
		Msg("Starting OrchexPay wallet-ledger service")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Ledger.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	natsConn, err := events.Connect(cfg.NATS, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer natsConn.Close()

	// Repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	entryRepo := pgStorage.NewEntryRepo(pool)
	bankRepo := pgStorage.NewBankDetailsRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authSvc := service.NewAuthService(userRepo, hashSvc, tokenSvc, log)
	accountSvc := service.NewAccountService(userRepo, walletRepo, bankRepo, outboxRepo, hashSvc, transactor, log)
	ledgerSvc := service.NewLedgerService(walletRepo, entryRepo, outboxRepo, transactor, log)

	// Bootstrap admin
	if cfg.Ledger.Bootstrap.AdminPassword != "" {
		if err := accountSvc.EnsureAdmin(ctx, cfg.Ledger.Bootstrap.AdminUsername, cfg.Ledger.Bootstrap.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap admin user")
		}
	} else {
		log.Warn().Msg("No bootstrap admin password configured, skipping admin bootstrap")
	}

	// Outbox relay
	publisher := events.NewNATSPublisher(natsConn, cfg.NATS.Subject, log)
	relay := events.NewOutboxRelay(outboxRepo, publisher, cfg.Ledger.Outbox.RelayInterval, cfg.Ledger.Outbox.BatchSize, log)
	relayCtx, stopRelay := context.WithCancel(ctx)
	go relay.Run(relayCtx)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)
	natsHealth := events.NewHealthCheck(natsConn)

	router := handler.SetupRouter(handler.RouterDeps{
		AuthSvc:          authSvc,
		AccountSvc:       accountSvc,
		LedgerSvc:        ledgerSvc,
		TokenSvc:         tokenSvc,
		IdempotencyCache: idempotencyCache,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{pgHealth, redisHealth, natsHealth},
		Logger:           log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Ledger.Host, cfg.Ledger.Port)
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

	stopRelay()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
