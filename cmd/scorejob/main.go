// Command scorejob recomputes every wallet's credit score once and exits.
// Run it from cron or a scheduler; the API server does not recompute scores
// on its own.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bnpl-credit-ledger/config"
	pgStorage "bnpl-credit-ledger/internal/adapter/storage/postgres"
	"bnpl-credit-ledger/internal/service"
	"bnpl-credit-ledger/pkg/logger"
)

const jobTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	scoreSvc := service.NewScoreService(walletRepo, ledgerRepo, transactor, log)

	start := time.Now()
	if err := scoreSvc.RecomputeAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("Score recompute failed")
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("Score recompute finished")
}
