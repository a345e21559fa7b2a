package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Credit score bounds and per-event adjustments.
const (
	CreditScoreMin = 300
	CreditScoreMax = 1000

	// Score rewards applied by the repayment allocator.
	ScoreRewardFullSettlement    = 10
	ScoreRewardPartialSettlement = 3
)

// Wallet is one user's account: cash, savings, aggregate credit owed, and
// the credit standing used to gate BNPL purchases. One wallet per user.
type Wallet struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	SavingsBalance decimal.Decimal `json:"savings_balance"`
	CreditBalance  decimal.Decimal `json:"credit_balance"` // sum of remaining principal over ACTIVE lines
	CreditLimit    decimal.Decimal `json:"credit_limit"`
	CreditScore    int             `json:"credit_score"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewWallet creates a wallet with zero balances and the policy defaults.
func NewWallet(userID uuid.UUID, creditLimit decimal.Decimal, creditScore int) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:             uuid.New(),
		UserID:         userID,
		CashBalance:    decimal.Zero,
		SavingsBalance: decimal.Zero,
		CreditBalance:  decimal.Zero,
		CreditLimit:    creditLimit,
		CreditScore:    clampScore(creditScore),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Deposit adds cash to the wallet. Amount must already be validated > 0.
func (w *Wallet) Deposit(amount decimal.Decimal) {
	w.CashBalance = w.CashBalance.Add(amount)
}

// DepositSavings adds directly to the savings balance.
func (w *Wallet) DepositSavings(amount decimal.Decimal) {
	w.SavingsBalance = w.SavingsBalance.Add(amount)
}

// Withdraw removes cash from the wallet. Returns false when the cash balance
// cannot cover the amount; the wallet is left untouched in that case.
func (w *Wallet) Withdraw(amount decimal.Decimal) bool {
	if w.CashBalance.LessThan(amount) {
		return false
	}
	w.CashBalance = w.CashBalance.Sub(amount)
	return true
}

// TransferToSavings moves cash into savings.
func (w *Wallet) TransferToSavings(amount decimal.Decimal) bool {
	if !w.Withdraw(amount) {
		return false
	}
	w.SavingsBalance = w.SavingsBalance.Add(amount)
	return true
}

// WithdrawFromSavings moves savings back into cash.
func (w *Wallet) WithdrawFromSavings(amount decimal.Decimal) bool {
	if w.SavingsBalance.LessThan(amount) {
		return false
	}
	w.SavingsBalance = w.SavingsBalance.Sub(amount)
	w.CashBalance = w.CashBalance.Add(amount)
	return true
}

// IncreaseCreditBalance records newly financed principal.
func (w *Wallet) IncreaseCreditBalance(amount decimal.Decimal) {
	w.CreditBalance = w.CreditBalance.Add(amount)
}

// DecreaseCreditBalance records repaid principal. Driving the credit balance
// negative means the allocator mis-rounded somewhere; that is an invariant
// violation the caller must abort on, never a silent clamp.
func (w *Wallet) DecreaseCreditBalance(amount decimal.Decimal) error {
	next := w.CreditBalance.Sub(amount)
	if next.IsNegative() {
		return fmt.Errorf("credit balance would go negative: %s - %s", w.CreditBalance, amount)
	}
	w.CreditBalance = next
	return nil
}

// AvailableCredit returns the headroom left under the credit limit.
func (w *Wallet) AvailableCredit() decimal.Decimal {
	return w.CreditLimit.Sub(w.CreditBalance)
}

// AdjustCreditScore applies a delta, clamped into [CreditScoreMin, CreditScoreMax].
func (w *Wallet) AdjustCreditScore(delta int) {
	w.CreditScore = clampScore(w.CreditScore + delta)
}

func clampScore(score int) int {
	if score < CreditScoreMin {
		return CreditScoreMin
	}
	if score > CreditScoreMax {
		return CreditScoreMax
	}
	return score
}
