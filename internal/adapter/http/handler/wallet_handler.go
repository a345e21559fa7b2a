package handler

import (
	"strconv"

	"bnpl-credit-ledger/internal/adapter/http/dto"
	"bnpl-credit-ledger/internal/adapter/http/middleware"
	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/pkg/apperror"
	"bnpl-credit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxHistoryLimit = 100

// WalletHandler handles cash and savings endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetSummary handles GET /api/v1/wallet.
func (h *WalletHandler) GetSummary(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletSummaryResponse(wallet))
}

// Deposit handles POST /api/v1/wallet/deposit. The body's target field
// routes the money to the cash wallet (default) or straight to savings.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := dto.ParseMoney(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	target := ports.DepositTargetWallet
	if req.Target == string(ports.DepositTargetSavings) {
		target = ports.DepositTargetSavings
	}

	wallet, err := h.walletSvc.Deposit(c.Request.Context(), userID, amount, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletSummaryResponse(wallet))
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, func(ctx *gin.Context, req moveRequest) (*domain.Wallet, error) {
		return h.walletSvc.Withdraw(ctx.Request.Context(), req.userID, req.amount)
	})
}

// DepositSavings handles POST /api/v1/wallet/savings/deposit.
func (h *WalletHandler) DepositSavings(c *gin.Context) {
	h.move(c, func(ctx *gin.Context, req moveRequest) (*domain.Wallet, error) {
		return h.walletSvc.TransferToSavings(ctx.Request.Context(), req.userID, req.amount)
	})
}

// WithdrawSavings handles POST /api/v1/wallet/savings/withdraw.
func (h *WalletHandler) WithdrawSavings(c *gin.Context) {
	h.move(c, func(ctx *gin.Context, req moveRequest) (*domain.Wallet, error) {
		return h.walletSvc.WithdrawFromSavings(ctx.Request.Context(), req.userID, req.amount)
	})
}

// History handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			response.Error(c, apperror.Validation("limit must be an integer between 1 and 100"))
			return
		}
		limit = n
	}

	entries, err := h.walletSvc.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			ID:          e.ID.String(),
			Kind:        string(e.Kind),
			Amount:      domain.MoneyString(e.Amount),
			Description: e.Description,
			CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	response.OK(c, out)
}

type moveRequest struct {
	userID uuid.UUID
	amount decimal.Decimal
}

// move implements the shared bind-parse-call shape of the amount-only
// money moves.
func (h *WalletHandler) move(c *gin.Context, call func(*gin.Context, moveRequest) (*domain.Wallet, error)) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := dto.ParseMoney(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	wallet, err := call(c, moveRequest{userID: userID, amount: amount})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletSummaryResponse(wallet))
}

func toWalletSummaryResponse(w *domain.Wallet) dto.WalletSummaryResponse {
	return dto.WalletSummaryResponse{
		WalletID:        w.ID.String(),
		CashBalance:     domain.MoneyString(w.CashBalance),
		SavingsBalance:  domain.MoneyString(w.SavingsBalance),
		CreditBalance:   domain.MoneyString(w.CreditBalance),
		CreditLimit:     domain.MoneyString(w.CreditLimit),
		AvailableCredit: domain.MoneyString(w.AvailableCredit()),
		CreditScore:     w.CreditScore,
	}
}
