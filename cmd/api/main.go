package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"bnpl-credit-ledger/config"
	httpHandler "bnpl-credit-ledger/internal/adapter/http/handler"
	pgStorage "bnpl-credit-ledger/internal/adapter/storage/postgres"
	redisStorage "bnpl-credit-ledger/internal/adapter/storage/redis"
	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/internal/service"
	"bnpl-credit-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting BNPL Credit Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	lineRepo := pgStorage.NewCreditLineRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Credit policy from configuration
	policy := domain.CreditPolicy{
		MinDownPaymentPercent: decimal.NewFromFloat(cfg.Credit.MinDownPaymentPercent),
		TermDays:              cfg.Credit.TermDays,
		InterestRate:          decimal.NewFromFloat(cfg.Credit.InterestRatePercent),
		PenaltyRate:           decimal.NewFromFloat(cfg.Credit.PenaltyRatePercent),
		DefaultCreditLimit:    decimal.NewFromFloat(cfg.Credit.DefaultCreditLimit),
		DefaultCreditScore:    cfg.Credit.DefaultCreditScore,
	}

	// Notification hook (no-op when no URL is configured)
	var notifier ports.Notifier = service.NopNotifier{}
	if cfg.Notify.URL != "" {
		notifier = service.NewHTTPNotifier(cfg.Notify.URL, cfg.Notify.Timeout, log)
	}

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	creditSvc := service.NewCreditService(
		walletRepo,
		lineRepo,
		ledgerRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		notifier,
		policy,
		log,
	)
	walletSvc := service.NewWalletService(walletRepo, ledgerRepo, transactor, policy, log)
	scoreSvc := service.NewScoreService(walletRepo, ledgerRepo, transactor, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CreditSvc:      creditSvc,
		WalletSvc:      walletSvc,
		ScoreSvc:       scoreSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
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
