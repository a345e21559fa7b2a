package integration

import (
	"context"
	"testing"
	"time"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv wires the real services against the in-memory store, exercising
// the full purchase and repayment flow without a database.
type testEnv struct {
	store     *memStore
	creditSvc ports.CreditService
	walletSvc ports.WalletService
	scoreSvc  ports.ScoreService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	walletRepo := &memWalletRepo{store: store}
	lineRepo := &memCreditLineRepo{store: store}
	ledgerRepo := &memLedgerRepo{store: store}
	idempRepo := &memIdempotencyRepo{store: store}
	transactor := &memTransactor{store: store}
	policy := domain.DefaultCreditPolicy()
	log := zerolog.Nop()

	return &testEnv{
		store: store,
		creditSvc: service.NewCreditService(
			walletRepo, lineRepo, ledgerRepo, idempRepo,
			memIdempotencyCache{}, transactor, service.NopNotifier{}, policy, log,
		),
		walletSvc: service.NewWalletService(walletRepo, ledgerRepo, transactor, policy, log),
		scoreSvc:  service.NewScoreService(walletRepo, ledgerRepo, transactor, log),
	}
}

func (e *testEnv) deposit(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := e.walletSvc.Deposit(context.Background(), userID, mustDec(amount), ports.DepositTargetWallet)
	require.NoError(t, err)
}

func (e *testEnv) wallet(t *testing.T, userID uuid.UUID) *domain.Wallet {
	t.Helper()
	w, err := e.walletSvc.GetSummary(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w
}

// backdateLines pushes every line's due date into the past, simulating the
// passage of time.
func (e *testEnv) backdateLines(days int) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	for _, l := range e.store.lines {
		l.DueDate = l.DueDate.AddDate(0, 0, -days)
	}
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreditFlow_PurchaseThenExactRepayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")

	purchase, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Mechanical Keyboard",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)
	assert.True(t, purchase.DownPayment.Equal(mustDec("20.00")))
	assert.True(t, purchase.Principal.Equal(mustDec("80.00")))

	w := env.wallet(t, userID)
	assert.True(t, w.CashBalance.Equal(mustDec("180.00")))
	assert.True(t, w.CreditBalance.Equal(mustDec("80.00")))

	// Settling today costs principal plus 5% interest.
	repay, err := env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("84.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repay.LinesSettled)
	assert.True(t, repay.InterestCharged.Equal(mustDec("4.00")))
	assert.True(t, repay.PenaltyCharged.IsZero())
	assert.Equal(t, 610, repay.CreditScore)

	w = env.wallet(t, userID)
	assert.True(t, w.CashBalance.Equal(mustDec("96.00")))
	assert.True(t, w.CreditBalance.IsZero())

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCreditFlow_LedgerRecordsEveryMovement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Desk Lamp",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)
	_, err = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("84.00"),
	})
	require.NoError(t, err)

	history, err := env.walletSvc.History(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 4)

	// Newest first: repayment, credit purchase, down payment, deposit.
	kinds := make([]domain.LedgerKind, 0, len(history))
	for _, e := range history {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []domain.LedgerKind{
		domain.LedgerRepayment,
		domain.LedgerCreditPurchase,
		domain.LedgerDownPayment,
		domain.LedgerDeposit,
	}, kinds)
}

func TestCreditFlow_OverdueRepaymentChargesPenalty(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Headphones",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	// Eight days past due: one whole overdue week, 1% of 80.00.
	env.backdateLines(domain.DefaultCreditPolicy().TermDays + 8)

	repay, err := env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("84.80"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repay.LinesSettled)
	assert.True(t, repay.InterestCharged.Equal(mustDec("4.00")))
	assert.True(t, repay.PenaltyCharged.Equal(mustDec("0.80")), "penalty was %s", repay.PenaltyCharged)
	assert.True(t, repay.NewCreditBalance.IsZero())
}

func TestCreditFlow_PartialThenFinalRepayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Monitor",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	// Half of the 84.00 due today pays down half the principal.
	repay, err := env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("42.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, repay.LinesSettled)
	assert.True(t, repay.NewCreditBalance.Equal(mustDec("40.00")), "credit was %s", repay.NewCreditBalance)
	assert.Equal(t, 603, repay.CreditScore)

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Line.RemainingPrincipal.Equal(mustDec("40.00")))

	// Interest accrues again on the reduced principal at the next repayment.
	repay, err = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-2",
		Amount:      mustDec("42.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repay.LinesSettled)
	assert.True(t, repay.InterestCharged.Equal(mustDec("2.00")))
	assert.True(t, repay.NewCreditBalance.IsZero())
}

func TestCreditFlow_RepaymentSettlesOldestDueFirst(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "500.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-old",
		ItemName:           "Blender",
		TotalPrice:         mustDec("50.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	// Make the first line older before opening the second.
	env.backdateLines(3)

	_, err = env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-new",
		ItemName:           "Toaster",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	// 50.00 covers the older line's 42.00 due (40 + 5% interest) and puts
	// the remainder toward the newer one.
	repay, err := env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("50.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repay.LinesSettled)

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Toaster", lines[0].Line.ItemName)
	assert.True(t, lines[0].Line.RemainingPrincipal.LessThan(mustDec("80.00")))
}

func TestCreditFlow_DuplicateReferenceReturnsFirstResult(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")

	req := ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Speaker",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	}
	first, err := env.creditSvc.OpenCreditLine(ctx, req)
	require.NoError(t, err)

	second, err := env.creditSvc.OpenCreditLine(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.LineID, second.LineID)

	// The replay must not have moved money again.
	w := env.wallet(t, userID)
	assert.True(t, w.CashBalance.Equal(mustDec("180.00")))
	assert.True(t, w.CreditBalance.Equal(mustDec("80.00")))

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCreditFlow_ScoreRecomputeAfterSettlement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Kettle",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)
	_, err = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      mustDec("84.00"),
	})
	require.NoError(t, err)

	// 610 after the settlement reward, then +10 for carrying no debt.
	score, err := env.scoreSvc.RecomputeScore(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 620, score)
}

func TestCreditFlow_LimitIncreaseAfterGoodHistory(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "5000.00")

	// Eleven settled purchases push the score from 600 past 700.
	for i := 0; i < 11; i++ {
		ref := string(rune('a' + i))
		_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
			UserID:             userID,
			ReferenceID:        "order-" + ref,
			ItemName:           "Gadget",
			TotalPrice:         mustDec("100.00"),
			DownPaymentPercent: mustDec("20"),
		})
		require.NoError(t, err)
		_, err = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
			UserID:      userID,
			ReferenceID: "repay-" + ref,
			Amount:      mustDec("84.00"),
		})
		require.NoError(t, err)
	}

	w := env.wallet(t, userID)
	require.Equal(t, 710, w.CreditScore)

	updated, err := env.scoreSvc.RequestLimitIncrease(ctx, userID)
	require.NoError(t, err)
	assert.True(t, updated.CreditLimit.Equal(mustDec("600.00")), "limit was %s", updated.CreditLimit)
}

func TestCreditFlow_PurchaseRejectedWhenOverLimit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "1000.00")

	// 500 default limit: 480 principal books fine, the next 80 does not.
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Sofa",
		TotalPrice:         mustDec("600.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	_, err = env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-2",
		ItemName:           "Rug",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.Error(t, err)

	// The failed purchase must leave no trace.
	w := env.wallet(t, userID)
	assert.True(t, w.CreditBalance.Equal(mustDec("480.00")))
	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCreditFlow_SavingsRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "100.00")

	w, err := env.walletSvc.TransferToSavings(ctx, userID, mustDec("60.00"))
	require.NoError(t, err)
	assert.True(t, w.CashBalance.Equal(mustDec("40.00")))
	assert.True(t, w.SavingsBalance.Equal(mustDec("60.00")))

	w, err = env.walletSvc.WithdrawFromSavings(ctx, userID, mustDec("25.00"))
	require.NoError(t, err)
	assert.True(t, w.CashBalance.Equal(mustDec("65.00")))
	assert.True(t, w.SavingsBalance.Equal(mustDec("35.00")))
}

func TestCreditFlow_PreviewMatchesAllocatorFormula(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "200.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Camera",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	env.backdateLines(domain.DefaultCreditPolicy().TermDays + 15)

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	preview := lines[0]
	assert.Equal(t, 2, preview.OverdueWeeks)
	assert.True(t, preview.Interest.Equal(mustDec("4.00")))
	assert.True(t, preview.Penalty.Equal(mustDec("1.60")))
	assert.True(t, preview.AmountDueNow.Equal(mustDec("85.60")))
	assert.True(t, preview.Line.DueDate.Before(time.Now()))

	// Paying exactly the previewed amount settles the line.
	repay, err := env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: "repay-1",
		Amount:      preview.AmountDueNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repay.LinesSettled)
	assert.True(t, repay.NewCreditBalance.IsZero())
}
