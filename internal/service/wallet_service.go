package service

import (
	"context"
	"fmt"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultHistoryLimit = 30

// WalletServiceImpl implements ports.WalletService: cash and savings
// movements plus the read-only summary and history views.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	policy     domain.CreditPolicy
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	policy domain.CreditPolicy,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		policy:     policy,
		log:        log,
	}
}

// GetSummary returns the wallet, creating it lazily on first access.
func (s *WalletServiceImpl) GetSummary(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err = s.getOrCreateForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return wallet, nil
}

// Deposit adds cash to the wallet or directly to savings.
func (s *WalletServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, target ports.DepositTarget) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	amount = domain.RoundMoney(amount)

	return s.mutate(ctx, userID, func(w *domain.Wallet) (*domain.LedgerEntry, error) {
		switch target {
		case ports.DepositTargetSavings:
			w.DepositSavings(amount)
			return domain.NewLedgerEntry(w, domain.LedgerDeposit, amount, "deposit to savings"), nil
		default:
			w.Deposit(amount)
			return domain.NewLedgerEntry(w, domain.LedgerDeposit, amount, "deposit"), nil
		}
	})
}

// Withdraw removes cash from the wallet.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	amount = domain.RoundMoney(amount)

	return s.mutate(ctx, userID, func(w *domain.Wallet) (*domain.LedgerEntry, error) {
		if !w.Withdraw(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return domain.NewLedgerEntry(w, domain.LedgerWithdrawal, amount, "withdrawal"), nil
	})
}

// TransferToSavings moves cash into the savings balance.
func (s *WalletServiceImpl) TransferToSavings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	amount = domain.RoundMoney(amount)

	return s.mutate(ctx, userID, func(w *domain.Wallet) (*domain.LedgerEntry, error) {
		if !w.TransferToSavings(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return domain.NewLedgerEntry(w, domain.LedgerWithdrawal, amount, "transfer to savings"), nil
	})
}

// WithdrawFromSavings moves savings back into the cash balance.
func (s *WalletServiceImpl) WithdrawFromSavings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	amount = domain.RoundMoney(amount)

	return s.mutate(ctx, userID, func(w *domain.Wallet) (*domain.LedgerEntry, error) {
		if !w.WithdrawFromSavings(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return domain.NewLedgerEntry(w, domain.LedgerDeposit, amount, "withdrawal from savings"), nil
	})
}

// History returns the most recent ledger entries, newest first.
func (s *WalletServiceImpl) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return []domain.LedgerEntry{}, nil
	}
	entries, err := s.ledgerRepo.ListRecent(ctx, wallet.ID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, nil
}

// mutate runs a wallet mutation under the row lock: begin, lock or create,
// apply, persist wallet and ledger entry, commit.
func (s *WalletServiceImpl) mutate(ctx context.Context, userID uuid.UUID, apply func(*domain.Wallet) (*domain.LedgerEntry, error)) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.getOrCreateForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := apply(wallet)
	if err != nil {
		return nil, err
	}

	if err := s.walletRepo.Update(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}
	if err := s.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("kind", string(entry.Kind)).
		Str("amount", domain.MoneyString(entry.Amount)).
		Msg("wallet updated")

	return wallet, nil
}

func (s *WalletServiceImpl) getOrCreateForUpdate(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		wallet = domain.NewWallet(userID, s.policy.DefaultCreditLimit, s.policy.DefaultCreditScore)
		if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
	}
	return wallet, nil
}
