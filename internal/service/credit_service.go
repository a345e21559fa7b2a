package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// CreditServiceImpl implements ports.CreditService: opening credit lines and
// allocating repayments across them under a wallet row lock.
type CreditServiceImpl struct {
	walletRepo ports.WalletRepository
	lineRepo   ports.CreditLineRepository
	ledgerRepo ports.LedgerRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	notifier   ports.Notifier
	policy     domain.CreditPolicy
	now        func() time.Time
	log        zerolog.Logger
}

// NewCreditService creates a new CreditServiceImpl.
func NewCreditService(
	walletRepo ports.WalletRepository,
	lineRepo ports.CreditLineRepository,
	ledgerRepo ports.LedgerRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	policy domain.CreditPolicy,
	log zerolog.Logger,
) *CreditServiceImpl {
	return &CreditServiceImpl{
		walletRepo: walletRepo,
		lineRepo:   lineRepo,
		ledgerRepo: ledgerRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		notifier:   notifier,
		policy:     policy,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// OpenCreditLine finances a purchase: debits the down payment, books the
// principal against the credit limit, and creates the line. All side effects
// commit atomically or not at all.
func (s *CreditServiceImpl) OpenCreditLine(ctx context.Context, req ports.OpenCreditLineRequest) (*ports.PurchaseResult, error) {
	if !req.TotalPrice.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	downPayment := domain.RoundMoney(req.TotalPrice.Mul(req.DownPaymentPercent).Div(decimal.NewFromInt(100)))
	minimum := s.policy.MinDownPayment(req.TotalPrice)
	if downPayment.LessThan(minimum) {
		return nil, apperror.ErrDownPaymentTooLow(domain.MoneyString(minimum))
	}
	principal := domain.RoundMoney(req.TotalPrice.Sub(downPayment))

	idempKey := domain.BuildPurchaseIdempotencyKey(req.UserID, req.ReferenceID)
	if cached := s.checkIdempotency(ctx, idempKey); cached != nil {
		return unmarshalCached[ports.PurchaseResult](cached)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		wallet = domain.NewWallet(req.UserID, s.policy.DefaultCreditLimit, s.policy.DefaultCreditScore)
		if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
	}

	if wallet.CashBalance.LessThan(downPayment) {
		return nil, apperror.ErrInsufficientFunds()
	}
	if !principal.IsPositive() {
		return nil, apperror.ErrDownPaymentCoversFull()
	}
	if wallet.CreditBalance.Add(principal).GreaterThan(wallet.CreditLimit) {
		return nil, apperror.ErrCreditLimitExceeded()
	}

	now := s.now()
	line := &domain.CreditLine{
		ID:                 uuid.New(),
		WalletID:           wallet.ID,
		UserID:             wallet.UserID,
		ItemName:           req.ItemName,
		TotalPrice:         req.TotalPrice,
		DownPayment:        downPayment,
		Principal:          principal,
		RemainingPrincipal: principal,
		InterestRate:       s.policy.InterestRate,
		PenaltyRate:        s.policy.PenaltyRate,
		DueDate:            now.AddDate(0, 0, s.policy.TermDays),
		Status:             domain.CreditLineActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if !wallet.Withdraw(downPayment) {
		return nil, apperror.ErrInsufficientFunds()
	}
	wallet.IncreaseCreditBalance(principal)

	if err := s.lineRepo.Create(ctx, dbTx, line); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create credit line: %w", err))
	}
	if err := s.walletRepo.Update(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	downEntry := domain.NewLedgerEntry(wallet, domain.LedgerDownPayment, downPayment,
		fmt.Sprintf("down payment for %q", req.ItemName))
	if err := s.ledgerRepo.Append(ctx, dbTx, downEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append down payment entry: %w", err))
	}
	purchaseEntry := domain.NewLedgerEntry(wallet, domain.LedgerCreditPurchase, principal,
		fmt.Sprintf("financed %s of %q", domain.MoneyString(principal), req.ItemName))
	if err := s.ledgerRepo.Append(ctx, dbTx, purchaseEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append purchase entry: %w", err))
	}

	result := &ports.PurchaseResult{
		LineID:           line.ID,
		ItemName:         line.ItemName,
		DownPayment:      downPayment,
		Principal:        principal,
		InterestPreview:  line.InterestDue(),
		TotalDuePreview:  line.AmountDueNow(now),
		DueDate:          line.DueDate,
		NewCashBalance:   wallet.CashBalance,
		NewCreditBalance: wallet.CreditBalance,
	}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	idempLog := &domain.IdempotencyLog{
		Key:          idempKey,
		WalletID:     wallet.ID,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}
	if err := s.idempRepo.Create(ctx, dbTx, idempLog); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheResponse(ctx, idempKey, respJSON)
	s.notifier.Notify(ctx, ports.NotificationEvent{
		UserID:  wallet.UserID,
		Kind:    "credit_purchase",
		Amount:  req.TotalPrice,
		Message: fmt.Sprintf("Financed %q: paid %s down, %s due by %s", req.ItemName, domain.MoneyString(downPayment), domain.MoneyString(principal), line.DueDate.Format("2006-01-02")),
	})

	s.log.Info().
		Str("line_id", line.ID.String()).
		Str("user_id", wallet.UserID.String()).
		Str("principal", domain.MoneyString(principal)).
		Str("due_date", line.DueDate.Format("2006-01-02")).
		Msg("credit line opened")

	return result, nil
}

// ApplyRepayment allocates a cash payment across the wallet's active credit
// lines, oldest due date first. Interest and penalty are computed at
// repayment time against the current remaining principal; a line sitting
// untouched accrues nothing until someone pays toward it.
func (s *CreditServiceImpl) ApplyRepayment(ctx context.Context, req ports.RepaymentRequest) (*ports.RepaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	idempKey := domain.BuildRepaymentIdempotencyKey(req.UserID, req.ReferenceID)
	if cached := s.checkIdempotency(ctx, idempKey); cached != nil {
		return unmarshalCached[ports.RepaymentResult](cached)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNoActiveCredit()
	}
	if wallet.CashBalance.LessThan(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	lines, err := s.lineRepo.ListActiveForUpdate(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock credit lines: %w", err))
	}
	if len(lines) == 0 {
		return nil, apperror.ErrNoActiveCredit()
	}

	today := s.now()
	remainingPayment := req.Amount
	totalInterest := decimal.Zero
	totalPenalty := decimal.Zero
	linesSettled := 0

	for i := range lines {
		if !remainingPayment.IsPositive() {
			break
		}
		line := &lines[i]

		interest := line.InterestDue()
		penalty := line.PenaltyDue(today)
		amountDueNow := line.RemainingPrincipal.Add(interest).Add(penalty)

		if remainingPayment.GreaterThanOrEqual(amountDueNow) {
			remainingPayment = remainingPayment.Sub(amountDueNow)
			if err := wallet.DecreaseCreditBalance(line.RemainingPrincipal); err != nil {
				return nil, apperror.ErrInvariantViolation(err)
			}
			line.Settle()
			wallet.AdjustCreditScore(domain.ScoreRewardFullSettlement)
			linesSettled++
		} else {
			// Payment exhausted on this line: pay down principal in
			// proportion to the share of the total due covered.
			fraction := remainingPayment.Div(amountDueNow)
			principalPaid := domain.RoundMoney(line.RemainingPrincipal.Mul(fraction))
			if err := wallet.DecreaseCreditBalance(principalPaid); err != nil {
				return nil, apperror.ErrInvariantViolation(err)
			}
			line.ReducePrincipal(principalPaid)
			remainingPayment = decimal.Zero
			if line.RemainingPrincipal.IsZero() {
				// Rounding on a heavily overdue line can clear the whole
				// principal here. Zero remaining always means PAID; a
				// settled line must never linger as ACTIVE.
				line.Settle()
				wallet.AdjustCreditScore(domain.ScoreRewardFullSettlement)
				linesSettled++
			} else {
				wallet.AdjustCreditScore(domain.ScoreRewardPartialSettlement)
			}
		}

		totalInterest = totalInterest.Add(interest)
		totalPenalty = totalPenalty.Add(penalty)
		line.UpdatedAt = today

		if err := s.lineRepo.Update(ctx, dbTx, line); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update credit line: %w", err))
		}
	}

	// The full requested amount is debited exactly once, after allocation.
	if !wallet.Withdraw(req.Amount) {
		return nil, apperror.ErrInvariantViolation(
			fmt.Errorf("cash balance %s cannot cover repayment %s after allocation",
				domain.MoneyString(wallet.CashBalance), domain.MoneyString(req.Amount)))
	}

	if err := s.walletRepo.Update(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet: %w", err))
	}

	entry := domain.NewLedgerEntry(wallet, domain.LedgerRepayment, req.Amount,
		fmt.Sprintf("repayment of %s (interest %s, penalty %s, lines settled %d)",
			domain.MoneyString(req.Amount), domain.MoneyString(totalInterest),
			domain.MoneyString(totalPenalty), linesSettled))
	if err := s.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append repayment entry: %w", err))
	}

	result := &ports.RepaymentResult{
		AmountPaid:       req.Amount,
		InterestCharged:  totalInterest,
		PenaltyCharged:   totalPenalty,
		LinesSettled:     linesSettled,
		NewCashBalance:   wallet.CashBalance,
		NewCreditBalance: wallet.CreditBalance,
		CreditScore:      wallet.CreditScore,
	}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	idempLog := &domain.IdempotencyLog{
		Key:          idempKey,
		WalletID:     wallet.ID,
		ResponseJSON: respJSON,
		CreatedAt:    today,
	}
	if err := s.idempRepo.Create(ctx, dbTx, idempLog); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheResponse(ctx, idempKey, respJSON)
	s.notifier.Notify(ctx, ports.NotificationEvent{
		UserID:  wallet.UserID,
		Kind:    "repayment",
		Amount:  req.Amount,
		Message: fmt.Sprintf("Repayment of %s received, %d line(s) settled", domain.MoneyString(req.Amount), linesSettled),
	})

	s.log.Info().
		Str("user_id", wallet.UserID.String()).
		Str("amount", domain.MoneyString(req.Amount)).
		Str("interest", domain.MoneyString(totalInterest)).
		Str("penalty", domain.MoneyString(totalPenalty)).
		Int("lines_settled", linesSettled).
		Msg("repayment applied")

	return result, nil
}

// ListCreditLines returns the user's active lines with a live settle-today
// preview. Uses the same formulas as the allocator but mutates nothing.
func (s *CreditServiceImpl) ListCreditLines(ctx context.Context, userID uuid.UUID) ([]ports.CreditLinePreview, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return []ports.CreditLinePreview{}, nil
	}

	lines, err := s.lineRepo.ListActive(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list credit lines: %w", err))
	}

	today := s.now()
	previews := make([]ports.CreditLinePreview, 0, len(lines))
	for _, line := range lines {
		previews = append(previews, ports.CreditLinePreview{
			Line:         line,
			Interest:     line.InterestDue(),
			Penalty:      line.PenaltyDue(today),
			AmountDueNow: line.AmountDueNow(today),
			OverdueWeeks: line.OverduePeriods(today),
		})
	}
	return previews, nil
}

// checkIdempotency runs the two-layer duplicate check: Redis first, the DB
// log as backup. Returns the cached response JSON, or nil on a miss.
func (s *CreditServiceImpl) checkIdempotency(ctx context.Context, key string) []byte {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return cached
	}
	idempLog, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("db idempotency check failed")
		return nil
	}
	if idempLog != nil {
		return idempLog.ResponseJSON
	}
	return nil
}

// cacheResponse stores the committed response in Redis, best-effort.
func (s *CreditServiceImpl) cacheResponse(ctx context.Context, key string, respJSON []byte) {
	if err := s.idempCache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func unmarshalCached[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached response: %w", err))
	}
	return &out, nil
}
