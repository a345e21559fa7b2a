package postgres

import (
	"context"
	"fmt"

	"bnpl-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreditLineRepo implements ports.CreditLineRepository.
type CreditLineRepo struct {
	pool Pool
}

// NewCreditLineRepo creates a new CreditLineRepo.
func NewCreditLineRepo(pool Pool) *CreditLineRepo {
	return &CreditLineRepo{pool: pool}
}

const creditLineColumns = `id, wallet_id, user_id, item_name, total_price, down_payment, principal,
		remaining_principal, interest_rate, penalty_rate, due_date, status, created_at, updated_at`

// Create inserts a new credit line within a transaction.
func (r *CreditLineRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.CreditLine) error {
	query := `INSERT INTO credit_lines (` + creditLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		l.ID, l.WalletID, l.UserID, l.ItemName, l.TotalPrice, l.DownPayment, l.Principal,
		l.RemainingPrincipal, l.InterestRate, l.PenaltyRate, l.DueDate, l.Status,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit line: %w", err)
	}
	return nil
}

// ListActiveForUpdate fetches ACTIVE lines for a wallet ordered by due date
// ascending, locking each row. Oldest obligation first is the allocator's
// hard ordering contract. MUST be called within a transaction.
func (r *CreditLineRepo) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) ([]domain.CreditLine, error) {
	query := `SELECT ` + creditLineColumns + ` FROM credit_lines
		WHERE wallet_id = $1 AND status = $2
		ORDER BY due_date ASC FOR UPDATE`

	rows, err := tx.Query(ctx, query, walletID, domain.CreditLineActive)
	if err != nil {
		return nil, fmt.Errorf("list active credit lines for update: %w", err)
	}
	return collectCreditLines(rows)
}

// ListActive is the non-locking read used for previews.
func (r *CreditLineRepo) ListActive(ctx context.Context, walletID uuid.UUID) ([]domain.CreditLine, error) {
	query := `SELECT ` + creditLineColumns + ` FROM credit_lines
		WHERE wallet_id = $1 AND status = $2
		ORDER BY due_date ASC`

	rows, err := r.pool.Query(ctx, query, walletID, domain.CreditLineActive)
	if err != nil {
		return nil, fmt.Errorf("list active credit lines: %w", err)
	}
	return collectCreditLines(rows)
}

// Update persists remaining principal and status within a transaction.
func (r *CreditLineRepo) Update(ctx context.Context, tx pgx.Tx, l *domain.CreditLine) error {
	query := `UPDATE credit_lines
		SET remaining_principal = $1, status = $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, l.RemainingPrincipal, l.Status, l.ID)
	if err != nil {
		return fmt.Errorf("update credit line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credit line not found: %s", l.ID)
	}
	return nil
}

func collectCreditLines(rows pgx.Rows) ([]domain.CreditLine, error) {
	defer rows.Close()

	var lines []domain.CreditLine
	for rows.Next() {
		l := domain.CreditLine{}
		err := rows.Scan(
			&l.ID, &l.WalletID, &l.UserID, &l.ItemName, &l.TotalPrice, &l.DownPayment,
			&l.Principal, &l.RemainingPrincipal, &l.InterestRate, &l.PenaltyRate,
			&l.DueDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan credit line row: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credit line rows: %w", err)
	}
	return lines, nil
}
