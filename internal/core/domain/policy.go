package domain

import "github.com/shopspring/decimal"

// CreditPolicy holds the BNPL terms applied to new credit lines. Rates are
// whole percents (20 means 20%). The policy is fixed per deployment; the
// rates are copied onto each line at creation and never change afterwards.
type CreditPolicy struct {
	MinDownPaymentPercent decimal.Decimal
	TermDays              int
	InterestRate          decimal.Decimal
	PenaltyRate           decimal.Decimal
	DefaultCreditLimit    decimal.Decimal
	DefaultCreditScore    int
}

// DefaultCreditPolicy mirrors the production terms: 20% minimum down payment,
// 14-day term, 5% interest, 1% penalty per overdue week.
func DefaultCreditPolicy() CreditPolicy {
	return CreditPolicy{
		MinDownPaymentPercent: decimal.NewFromInt(20),
		TermDays:              14,
		InterestRate:          decimal.NewFromInt(5),
		PenaltyRate:           decimal.NewFromInt(1),
		DefaultCreditLimit:    decimal.NewFromInt(500),
		DefaultCreditScore:    600,
	}
}

// MinDownPayment computes the smallest acceptable down payment for a price.
func (p CreditPolicy) MinDownPayment(totalPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(totalPrice.Mul(p.MinDownPaymentPercent).Div(decimal.NewFromInt(100)))
}
