package ports

import (
	"context"
	"time"

	"bnpl-credit-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Service Ports (Business Logic) ---

// CreditService is the credit ledger engine: opening credit lines and
// allocating repayments across them.
type CreditService interface {
	OpenCreditLine(ctx context.Context, req OpenCreditLineRequest) (*PurchaseResult, error)
	ApplyRepayment(ctx context.Context, req RepaymentRequest) (*RepaymentResult, error)
	// ListCreditLines returns the user's ACTIVE lines with a live due
	// preview. Read-only, no mutation.
	ListCreditLines(ctx context.Context, userID uuid.UUID) ([]CreditLinePreview, error)
}

// OpenCreditLineRequest holds validated input for a BNPL purchase.
type OpenCreditLineRequest struct {
	UserID             uuid.UUID
	ReferenceID        string // client-supplied, used for idempotency
	ItemName           string
	TotalPrice         decimal.Decimal
	DownPaymentPercent decimal.Decimal
}

// PurchaseResult summarizes a successful credit purchase.
type PurchaseResult struct {
	LineID           uuid.UUID       `json:"line_id"`
	ItemName         string          `json:"item_name"`
	DownPayment      decimal.Decimal `json:"down_payment"`
	Principal        decimal.Decimal `json:"principal"`
	InterestPreview  decimal.Decimal `json:"interest_preview"`
	TotalDuePreview  decimal.Decimal `json:"total_due_preview"`
	DueDate          time.Time       `json:"due_date"`
	NewCashBalance   decimal.Decimal `json:"new_cash_balance"`
	NewCreditBalance decimal.Decimal `json:"new_credit_balance"`
}

// RepaymentRequest holds validated input for a repayment.
type RepaymentRequest struct {
	UserID      uuid.UUID
	ReferenceID string
	Amount      decimal.Decimal
}

// RepaymentResult summarizes a completed repayment allocation.
type RepaymentResult struct {
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	InterestCharged  decimal.Decimal `json:"interest_charged"`
	PenaltyCharged   decimal.Decimal `json:"penalty_charged"`
	LinesSettled     int             `json:"lines_settled"`
	NewCashBalance   decimal.Decimal `json:"new_cash_balance"`
	NewCreditBalance decimal.Decimal `json:"new_credit_balance"`
	CreditScore      int             `json:"credit_score"`
}

// CreditLinePreview is one active line plus what settling it today would cost,
// computed with the same formula the allocator uses.
type CreditLinePreview struct {
	Line         domain.CreditLine `json:"line"`
	Interest     decimal.Decimal   `json:"interest"`
	Penalty      decimal.Decimal   `json:"penalty"`
	AmountDueNow decimal.Decimal   `json:"amount_due_now"`
	OverdueWeeks int               `json:"overdue_weeks"`
}

// WalletService covers cash and savings movements plus read views.
type WalletService interface {
	GetSummary(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, target DepositTarget) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	TransferToSavings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	WithdrawFromSavings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// DepositTarget selects which balance a deposit lands in.
type DepositTarget string

const (
	DepositTargetWallet  DepositTarget = "wallet"
	DepositTargetSavings DepositTarget = "savings"
)

// ScoreService applies the periodic credit-score policy and limit changes.
type ScoreService interface {
	// RecomputeScore applies the sequential scoring checks and returns the
	// new score.
	RecomputeScore(ctx context.Context, userID uuid.UUID) (int, error)
	// RecomputeAll runs RecomputeScore over every wallet (scheduled job).
	RecomputeAll(ctx context.Context) error
	RequestLimitIncrease(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

// TokenService handles bearer token operations. Token issuing for real users
// lives in the external auth service; this covers validation plus generation
// for tests and tooling.
type TokenService interface {
	Generate(userID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Notifier delivers fire-and-forget events after committed money movements.
// Delivery failure must never affect the ledger transaction.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent)
}

// NotificationEvent is the payload pushed to the notification subsystem.
type NotificationEvent struct {
	UserID  uuid.UUID       `json:"user_id"`
	Kind    string          `json:"kind"` // "credit_purchase" or "repayment"
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}
