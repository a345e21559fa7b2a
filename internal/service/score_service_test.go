package service

import (
	"context"
	"testing"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type scoreTestDeps struct {
	svc        *ScoreServiceImpl
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupScoreService(t *testing.T) *scoreTestDeps {
	ctrl := gomock.NewController(t)
	d := &scoreTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewScoreService(d.walletRepo, d.ledgerRepo, d.transactor, zerolog.Nop())
	return d
}

func (d *scoreTestDeps) expectRecompute(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) {
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, wallet.UserID).Return(wallet, nil)
	d.walletRepo.EXPECT().Update(ctx, tx, wallet).Return(nil)
}

func TestScoreService_RecomputeScore(t *testing.T) {
	tests := []struct {
		name    string
		cash    string
		savings string
		credit  string
		limit   string
		score   int
		want    int
	}{
		{name: "no debt", credit: "0", limit: "500", score: 600, want: 610},
		{name: "high utilization", credit: "450", limit: "500", score: 600, want: 585},
		{name: "low utilization", credit: "100", limit: "500", score: 600, want: 605},
		{name: "mid utilization unchanged", credit: "300", limit: "500", score: 600, want: 600},
		// The savings check is independent and stacks with the
		// utilization chain.
		{name: "low utilization plus savings cushion", credit: "100", limit: "500", savings: "60", score: 600, want: 608},
		{name: "high utilization plus savings cushion", credit: "450", limit: "500", savings: "300", score: 600, want: 588},
		{name: "no debt plus savings cushion", credit: "0", limit: "500", savings: "1", score: 600, want: 613},
		{name: "clamped at maximum", credit: "0", limit: "500", savings: "1", score: 998, want: 1000},
		{name: "clamped at minimum", credit: "450", limit: "500", score: 305, want: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupScoreService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			tx := &mockTx{}
			wallet := testWallet(uuid.New(), "0", tt.credit, tt.limit, tt.score)
			if tt.savings != "" {
				wallet.SavingsBalance = dec(tt.savings)
			}
			d.expectRecompute(ctx, tx, wallet)

			got, err := d.svc.RecomputeScore(ctx, wallet.UserID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreService_RecomputeScore_WalletNotFound(t *testing.T) {
	d := setupScoreService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	userID := uuid.New()

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(nil, nil)

	_, err := d.svc.RecomputeScore(ctx, userID)
	requireAppCode(t, err, "SYS_002")
}

func TestScoreService_RecomputeAll_SkipsFailures(t *testing.T) {
	d := setupScoreService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	good := testWallet(uuid.New(), "0", "0", "500", 600)
	bad := uuid.New()

	d.walletRepo.EXPECT().ListUserIDs(ctx).Return([]uuid.UUID{bad, good.UserID}, nil)

	// First wallet vanished mid-run; the pass keeps going.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, bad).Return(nil, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, good.UserID).Return(good, nil)
	d.walletRepo.EXPECT().Update(ctx, tx, good).Return(nil)

	err := d.svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 610, good.CreditScore)
}

func TestScoreService_RequestLimitIncrease_Success(t *testing.T) {
	d := setupScoreService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	wallet := testWallet(uuid.New(), "0", "0", "500", 720)

	d.expectRecompute(ctx, tx, wallet)

	var entry domain.LedgerEntry
	d.ledgerRepo.EXPECT().Append(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			entry = *e
			return nil
		})

	got, err := d.svc.RequestLimitIncrease(ctx, wallet.UserID)
	require.NoError(t, err)
	assert.True(t, got.CreditLimit.Equal(dec("600.00")), "limit: %s", got.CreditLimit)
	assert.Equal(t, domain.LedgerCreditLimitChange, entry.Kind)
	assert.True(t, entry.Amount.Equal(dec("100.00")))
}

func TestScoreService_RequestLimitIncrease_ScoreTooLow(t *testing.T) {
	d := setupScoreService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	wallet := testWallet(uuid.New(), "0", "0", "500", 650)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, wallet.UserID).Return(wallet, nil)

	_, err := d.svc.RequestLimitIncrease(ctx, wallet.UserID)
	requireAppCode(t, err, "CRD_008")
	assert.True(t, wallet.CreditLimit.Equal(dec("500")), "limit untouched on rejection")
}
