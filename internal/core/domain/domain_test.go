package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRoundMoney_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0.125", "0.13"},
		{"79.999", "80.00"},
		{"20", "20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MoneyString(RoundMoney(dec(tt.in))))
		})
	}
}

func TestWallet_WithdrawInsufficient(t *testing.T) {
	w := NewWallet(uuid.New(), dec("500"), 600)
	w.Deposit(dec("10.00"))

	ok := w.Withdraw(dec("10.01"))
	assert.False(t, ok)
	assert.Equal(t, "10.00", MoneyString(w.CashBalance), "failed withdraw must not touch the balance")

	ok = w.Withdraw(dec("10.00"))
	assert.True(t, ok)
	assert.True(t, w.CashBalance.IsZero())
}

func TestWallet_SavingsTransfers(t *testing.T) {
	w := NewWallet(uuid.New(), dec("500"), 600)
	w.Deposit(dec("100.00"))

	require.True(t, w.TransferToSavings(dec("40.00")))
	assert.Equal(t, "60.00", MoneyString(w.CashBalance))
	assert.Equal(t, "40.00", MoneyString(w.SavingsBalance))

	assert.False(t, w.WithdrawFromSavings(dec("40.01")))
	require.True(t, w.WithdrawFromSavings(dec("15.00")))
	assert.Equal(t, "75.00", MoneyString(w.CashBalance))
	assert.Equal(t, "25.00", MoneyString(w.SavingsBalance))
}

func TestWallet_DecreaseCreditBalance_NeverNegative(t *testing.T) {
	w := NewWallet(uuid.New(), dec("500"), 600)
	w.IncreaseCreditBalance(dec("80.00"))

	require.NoError(t, w.DecreaseCreditBalance(dec("80.00")))
	assert.True(t, w.CreditBalance.IsZero())

	err := w.DecreaseCreditBalance(dec("0.01"))
	require.Error(t, err)
	assert.True(t, w.CreditBalance.IsZero(), "failed decrease must not mutate the balance")
}

func TestWallet_AdjustCreditScore_Bounds(t *testing.T) {
	w := NewWallet(uuid.New(), dec("500"), 995)

	for i := 0; i < 5; i++ {
		w.AdjustCreditScore(ScoreRewardFullSettlement)
	}
	assert.Equal(t, CreditScoreMax, w.CreditScore)

	for i := 0; i < 100; i++ {
		w.AdjustCreditScore(-15)
	}
	assert.Equal(t, CreditScoreMin, w.CreditScore)
}

func TestNewWallet_ClampsInitialScore(t *testing.T) {
	assert.Equal(t, CreditScoreMin, NewWallet(uuid.New(), dec("500"), 100).CreditScore)
	assert.Equal(t, CreditScoreMax, NewWallet(uuid.New(), dec("500"), 2000).CreditScore)
}

func newTestLine(remaining string, dueDaysFromNow int) *CreditLine {
	now := time.Now().UTC()
	return &CreditLine{
		ID:                 uuid.New(),
		WalletID:           uuid.New(),
		UserID:             uuid.New(),
		ItemName:           "Store Purchase",
		TotalPrice:         dec("100.00"),
		DownPayment:        dec("20.00"),
		Principal:          dec(remaining),
		RemainingPrincipal: dec(remaining),
		InterestRate:       dec("5"),
		PenaltyRate:        dec("1"),
		DueDate:            now.AddDate(0, 0, dueDaysFromNow),
		Status:             CreditLineActive,
		CreatedAt:          now,
	}
}

func TestCreditLine_InterestDue(t *testing.T) {
	l := newTestLine("80.00", 14)
	assert.Equal(t, "4.00", MoneyString(l.InterestDue()))

	l.RemainingPrincipal = dec("33.33")
	assert.Equal(t, "1.67", MoneyString(l.InterestDue()), "1.6665 rounds half-up to 1.67")
}

func TestCreditLine_OverduePeriods(t *testing.T) {
	today := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		due     time.Time
		periods int
	}{
		{"due today", today, 0},
		{"due tomorrow", today.AddDate(0, 0, 1), 0},
		{"overdue 6 days", today.AddDate(0, 0, -6), 0},
		{"overdue exactly 7 days", today.AddDate(0, 0, -7), 1},
		{"overdue 10 days", today.AddDate(0, 0, -10), 1},
		{"overdue 14 days", today.AddDate(0, 0, -14), 2},
		{"overdue 20 days", today.AddDate(0, 0, -20), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLine("80.00", 0)
			l.DueDate = tt.due
			assert.Equal(t, tt.periods, l.OverduePeriods(today))
		})
	}
}

func TestCreditLine_PenaltyDue(t *testing.T) {
	today := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	l := newTestLine("80.00", 0)
	l.DueDate = today.AddDate(0, 0, -10) // one whole week overdue
	assert.Equal(t, "0.80", MoneyString(l.PenaltyDue(today)))

	l.DueDate = today.AddDate(0, 0, -3) // partial week: no penalty
	assert.True(t, l.PenaltyDue(today).IsZero())
}

func TestCreditLine_AmountDueNow(t *testing.T) {
	today := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	// Not overdue: 80 + 4.00 interest.
	l := newTestLine("80.00", 0)
	l.DueDate = today
	assert.Equal(t, "84.00", MoneyString(l.AmountDueNow(today)))

	// One week overdue at 1%: + 0.80 penalty.
	l.DueDate = today.AddDate(0, 0, -10)
	assert.Equal(t, "84.80", MoneyString(l.AmountDueNow(today)))
}

func TestCreditLine_SettleIsTerminal(t *testing.T) {
	l := newTestLine("80.00", 14)
	l.Settle()
	assert.True(t, l.RemainingPrincipal.IsZero())
	assert.Equal(t, CreditLinePaid, l.Status)
}

func TestCreditLine_ReducePrincipal(t *testing.T) {
	l := newTestLine("80.00", 14)
	l.ReducePrincipal(dec("40.00"))
	assert.Equal(t, "40.00", MoneyString(l.RemainingPrincipal))
	assert.Equal(t, CreditLineActive, l.Status)
}

func TestCreditPolicy_MinDownPayment(t *testing.T) {
	p := DefaultCreditPolicy()
	assert.Equal(t, "20.00", MoneyString(p.MinDownPayment(dec("100.00"))))
	assert.Equal(t, "13.33", MoneyString(p.MinDownPayment(dec("66.66"))), "13.332 rounds to 13.33")
}

func TestNewLedgerEntry_PositiveMagnitude(t *testing.T) {
	w := NewWallet(uuid.New(), dec("500"), 600)
	e := NewLedgerEntry(w, LedgerWithdrawal, dec("-25.00"), "cash out")

	assert.Equal(t, w.ID, e.WalletID)
	assert.Equal(t, w.UserID, e.UserID)
	assert.Equal(t, "25.00", MoneyString(e.Amount))
	assert.Equal(t, LedgerWithdrawal, e.Kind)
}
