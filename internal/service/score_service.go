package service

import (
	"context"
	"fmt"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Scoring thresholds as fractions of the credit limit (or of the credit
// balance, for the savings check).
var (
	highUtilizationRatio = decimal.RequireFromString("0.8")
	lowUtilizationRatio  = decimal.RequireFromString("0.5")
	savingsCushionRatio  = decimal.RequireFromString("0.5")
)

// Score deltas applied by the periodic recompute.
const (
	scoreDeltaNoDebt          = 10
	scoreDeltaHighUtilization = -15
	scoreDeltaLowUtilization  = 5
	scoreDeltaSavingsCushion  = 3

	limitIncreaseMinScore = 700
)

var limitIncreaseFactor = decimal.RequireFromString("1.2")

// ScoreServiceImpl implements ports.ScoreService.
type ScoreServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewScoreService creates a new ScoreServiceImpl.
func NewScoreService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ScoreServiceImpl {
	return &ScoreServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// RecomputeScore applies the scoring checks in sequence. The utilization
// checks are a chain, but the savings check fires independently of them, so
// a single call can compound two adjustments.
func (s *ScoreServiceImpl) RecomputeScore(ctx context.Context, userID uuid.UUID) (int, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return 0, apperror.ErrNotFound("wallet")
	}

	before := wallet.CreditScore

	switch {
	case wallet.CreditBalance.IsZero():
		wallet.AdjustCreditScore(scoreDeltaNoDebt)
	case wallet.CreditBalance.GreaterThan(wallet.CreditLimit.Mul(highUtilizationRatio)):
		wallet.AdjustCreditScore(scoreDeltaHighUtilization)
	case wallet.CreditBalance.LessThan(wallet.CreditLimit.Mul(lowUtilizationRatio)):
		wallet.AdjustCreditScore(scoreDeltaLowUtilization)
	}
	if wallet.SavingsBalance.GreaterThan(wallet.CreditBalance.Mul(savingsCushionRatio)) {
		wallet.AdjustCreditScore(scoreDeltaSavingsCushion)
	}

	if err := s.walletRepo.Update(ctx, dbTx, wallet); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if wallet.CreditScore != before {
		s.log.Info().
			Str("user_id", userID.String()).
			Int("score_before", before).
			Int("score_after", wallet.CreditScore).
			Msg("credit score recomputed")
	}
	return wallet.CreditScore, nil
}

// RecomputeAll runs the score recompute over every wallet. Per-wallet
// failures are logged and skipped so one bad row cannot stall the job.
func (s *ScoreServiceImpl) RecomputeAll(ctx context.Context) error {
	userIDs, err := s.walletRepo.ListUserIDs(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list wallet owners: %w", err))
	}

	failed := 0
	for _, userID := range userIDs {
		if _, err := s.RecomputeScore(ctx, userID); err != nil {
			failed++
			s.log.Error().Err(err).Str("user_id", userID.String()).Msg("score recompute failed")
		}
	}

	s.log.Info().
		Int("wallets", len(userIDs)).
		Int("failed", failed).
		Msg("score recompute pass finished")
	return nil
}

// RequestLimitIncrease raises the credit limit by 20% for wallets with a
// score of at least 700.
func (s *ScoreServiceImpl) RequestLimitIncrease(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if wallet.CreditScore < limitIncreaseMinScore {
		return nil, apperror.ErrCreditScoreTooLow()
	}

	oldLimit := wallet.CreditLimit
	wallet.CreditLimit = domain.RoundMoney(oldLimit.Mul(limitIncreaseFactor))

	if err := s.walletRepo.Update(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	entry := domain.NewLedgerEntry(wallet, domain.LedgerCreditLimitChange,
		wallet.CreditLimit.Sub(oldLimit),
		fmt.Sprintf("credit limit raised from %s to %s",
			domain.MoneyString(oldLimit), domain.MoneyString(wallet.CreditLimit)))
	if err := s.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append limit change entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("old_limit", domain.MoneyString(oldLimit)).
		Str("new_limit", domain.MoneyString(wallet.CreditLimit)).
		Msg("credit limit increased")

	return wallet, nil
}
