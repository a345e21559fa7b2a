package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind is the kind of money movement a ledger entry records.
type LedgerKind string

const (
	LedgerDeposit           LedgerKind = "deposit"
	LedgerWithdrawal        LedgerKind = "withdrawal"
	LedgerCreditPurchase    LedgerKind = "credit_purchase"
	LedgerDownPayment       LedgerKind = "down_payment"
	LedgerRepayment         LedgerKind = "repayment"
	LedgerInterestCharged   LedgerKind = "interest_charged"
	LedgerPenaltyCharged    LedgerKind = "penalty_charged"
	LedgerCreditLimitChange LedgerKind = "credit_limit_change"
)

// LedgerEntry is an immutable record of one discrete money movement.
// Amount is always a positive magnitude; direction is implied by Kind.
// Entries are append-only and never mutated after creation.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Kind        LedgerKind      `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewLedgerEntry builds an entry for a wallet event.
func NewLedgerEntry(w *Wallet, kind LedgerKind, amount decimal.Decimal, description string) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.New(),
		WalletID:    w.ID,
		UserID:      w.UserID,
		Kind:        kind,
		Amount:      amount.Abs(),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
