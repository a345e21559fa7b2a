package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two repayments racing for the same wallet must serialize on the wallet
// lock. Each pays 70.00 against a single line of 80.00: whichever wins the
// lock pays down most of the principal, the loser settles the rest. Both
// orders produce the same final state because the amounts are symmetric.
func TestConcurrency_RacingRepaymentsSerialize(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "300.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Laptop Stand",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	results := make([]*ports.RepaymentResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
				UserID:      userID,
				ReferenceID: fmt.Sprintf("repay-%d", i),
				Amount:      mustDec("70.00"),
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Exactly one of the two settles the line.
	settled := results[0].LinesSettled + results[1].LinesSettled
	assert.Equal(t, 1, settled)

	w := env.wallet(t, userID)
	assert.True(t, w.CreditBalance.IsZero(), "credit balance was %s", w.CreditBalance)
	assert.True(t, w.CashBalance.Equal(mustDec("140.00")), "cash balance was %s", w.CashBalance)
	assert.False(t, w.CashBalance.IsNegative())

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

// Concurrent deposits are read-modify-write cycles; without the wallet lock
// some of them would be lost.
func TestConcurrency_ConcurrentDepositsAllLand(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	// Create the wallet up front so the deposits race on one row.
	env.deposit(t, userID, "10.00")

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.walletSvc.Deposit(ctx, userID, mustDec("10.00"), ports.DepositTargetWallet)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "deposit %d failed", i)
	}

	w := env.wallet(t, userID)
	assert.True(t, w.CashBalance.Equal(mustDec("210.00")), "cash balance was %s", w.CashBalance)

	history, err := env.walletSvc.History(ctx, userID, n+1)
	require.NoError(t, err)
	assert.Len(t, history, n+1)
	for _, entry := range history {
		assert.Equal(t, domain.LedgerDeposit, entry.Kind)
	}
}

// A repayment and a purchase racing on the same wallet both commit, in
// either order, and the invariants hold afterwards.
func TestConcurrency_PurchaseAndRepaymentInterleave(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := uuid.New()

	env.deposit(t, userID, "500.00")
	_, err := env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        "order-1",
		ItemName:           "Microphone",
		TotalPrice:         mustDec("100.00"),
		DownPaymentPercent: mustDec("20"),
	})
	require.NoError(t, err)

	// Age the first line so the allocator's due-date ordering is strict.
	env.backdateLines(3)

	var wg sync.WaitGroup
	var repayErr, purchaseErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, repayErr = env.creditSvc.ApplyRepayment(ctx, ports.RepaymentRequest{
			UserID:      userID,
			ReferenceID: "repay-1",
			Amount:      mustDec("84.00"),
		})
	}()
	go func() {
		defer wg.Done()
		_, purchaseErr = env.creditSvc.OpenCreditLine(ctx, ports.OpenCreditLineRequest{
			UserID:             userID,
			ReferenceID:        "order-2",
			ItemName:           "Mixer",
			TotalPrice:         mustDec("200.00"),
			DownPaymentPercent: mustDec("20"),
		})
	}()
	wg.Wait()

	require.NoError(t, repayErr)
	require.NoError(t, purchaseErr)

	// The 84.00 repayment settles the older line regardless of whether the
	// second purchase landed before or after it: the new line's due date is
	// later, so the allocator reaches the old line first either way, and
	// 84.00 covers at most that one line.
	w := env.wallet(t, userID)
	assert.True(t, w.CreditBalance.Equal(mustDec("160.00")), "credit balance was %s", w.CreditBalance)
	assert.True(t, w.CashBalance.Equal(mustDec("356.00")), "cash balance was %s", w.CashBalance)
	assert.True(t, w.CreditBalance.LessThanOrEqual(w.CreditLimit))

	lines, err := env.creditSvc.ListCreditLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Mixer", lines[0].Line.ItemName)
}
