package ports

import (
	"context"

	"bnpl-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallet accounts.
// Methods accepting pgx.Tx run inside a transaction and rely on row-level
// locking for the read-modify-write discipline.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	// GetByUserIDForUpdate locks the wallet row (SELECT ... FOR UPDATE).
	// MUST be called within a transaction.
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	// Update persists balances, credit limit and credit score.
	Update(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	// ListUserIDs returns every wallet owner, for the periodic score job.
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CreditLineRepository defines persistence operations for credit lines.
type CreditLineRepository interface {
	Create(ctx context.Context, tx pgx.Tx, line *domain.CreditLine) error
	// ListActiveForUpdate fetches ACTIVE lines for a wallet ordered by
	// due_date ascending, locking each row. MUST be called within a
	// transaction that already holds the wallet row lock.
	ListActiveForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) ([]domain.CreditLine, error)
	// ListActive is the non-locking read used for previews.
	ListActive(ctx context.Context, walletID uuid.UUID) ([]domain.CreditLine, error)
	// Update persists remaining principal and status.
	Update(ctx context.Context, tx pgx.Tx, line *domain.CreditLine) error
}

// LedgerRepository appends to and reads the immutable transaction log.
// There is deliberately no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListRecent(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup
// behind the Redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
