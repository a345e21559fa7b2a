package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditLineStatus is the lifecycle state of a single financed purchase.
type CreditLineStatus string

const (
	CreditLineActive    CreditLineStatus = "ACTIVE"
	CreditLinePaid      CreditLineStatus = "PAID"
	CreditLineDefaulted CreditLineStatus = "DEFAULTED"
)

// Days per overdue period. Penalty accrues per whole week past the due date;
// partial weeks accrue nothing.
const overduePeriodDays = 7

// CreditLine is one BNPL purchase: its own principal, rates, and due date.
// RemainingPrincipal only ever decreases; once it reaches zero the line is
// PAID and never reopens.
type CreditLine struct {
	ID                 uuid.UUID        `json:"id"`
	WalletID           uuid.UUID        `json:"wallet_id"`
	UserID             uuid.UUID        `json:"user_id"`
	ItemName           string           `json:"item_name"`
	TotalPrice         decimal.Decimal  `json:"total_price"`
	DownPayment        decimal.Decimal  `json:"down_payment"`
	Principal          decimal.Decimal  `json:"principal"`
	RemainingPrincipal decimal.Decimal  `json:"remaining_principal"`
	InterestRate       decimal.Decimal  `json:"interest_rate"` // percent, fixed at creation
	PenaltyRate        decimal.Decimal  `json:"penalty_rate"`  // percent per overdue week
	DueDate            time.Time        `json:"due_date"`      // date precision
	Status             CreditLineStatus `json:"status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// OverduePeriods returns the number of whole weeks the line is past due as of
// the given day. Zero when not yet overdue.
func (l *CreditLine) OverduePeriods(today time.Time) int {
	due := dateOnly(l.DueDate)
	day := dateOnly(today)
	if !day.After(due) {
		return 0
	}
	return int(day.Sub(due).Hours()) / 24 / overduePeriodDays
}

// InterestDue computes simple interest on the current remaining principal.
func (l *CreditLine) InterestDue() decimal.Decimal {
	return RoundMoney(l.RemainingPrincipal.Mul(l.InterestRate).Div(decimal.NewFromInt(100)))
}

// PenaltyDue computes the overdue penalty as of today: remaining principal x
// penalty rate x whole weeks overdue.
func (l *CreditLine) PenaltyDue(today time.Time) decimal.Decimal {
	periods := l.OverduePeriods(today)
	if periods == 0 {
		return decimal.Zero
	}
	return RoundMoney(l.RemainingPrincipal.
		Mul(l.PenaltyRate).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(periods))))
}

// AmountDueNow is what it costs to settle this line today in full:
// remaining principal + interest + penalty.
func (l *CreditLine) AmountDueNow(today time.Time) decimal.Decimal {
	return l.RemainingPrincipal.Add(l.InterestDue()).Add(l.PenaltyDue(today))
}

// Settle zeroes the line and marks it PAID. Terminal.
func (l *CreditLine) Settle() {
	l.RemainingPrincipal = decimal.Zero
	l.Status = CreditLinePaid
}

// ReducePrincipal applies a partial principal repayment.
func (l *CreditLine) ReducePrincipal(principalPaid decimal.Decimal) {
	l.RemainingPrincipal = RoundMoney(l.RemainingPrincipal.Sub(principalPaid))
}

// IsOverdue reports whether today is past the due date.
func (l *CreditLine) IsOverdue(today time.Time) bool {
	return dateOnly(today).After(dateOnly(l.DueDate))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
