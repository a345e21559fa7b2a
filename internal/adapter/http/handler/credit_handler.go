package handler

import (
	"bnpl-credit-ledger/internal/adapter/http/dto"
	"bnpl-credit-ledger/internal/adapter/http/middleware"
	"bnpl-credit-ledger/internal/core/domain"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/internal/metrics"
	"bnpl-credit-ledger/pkg/apperror"
	"bnpl-credit-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreditHandler handles credit purchase, repayment, and score endpoints.
type CreditHandler struct {
	creditSvc ports.CreditService
	walletSvc ports.WalletService
	scoreSvc  ports.ScoreService
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(creditSvc ports.CreditService, walletSvc ports.WalletService, scoreSvc ports.ScoreService) *CreditHandler {
	return &CreditHandler{creditSvc: creditSvc, walletSvc: walletSvc, scoreSvc: scoreSvc}
}

// Purchase handles POST /api/v1/wallet/credit-purchase.
func (h *CreditHandler) Purchase(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreditPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	totalPrice, err := dto.ParseMoney(req.TotalPrice)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	downPaymentPercent, err := dto.ParseMoney(req.DownPaymentPercent)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.creditSvc.OpenCreditLine(c.Request.Context(), ports.OpenCreditLineRequest{
		UserID:             userID,
		ReferenceID:        req.ReferenceID,
		ItemName:           req.ItemName,
		TotalPrice:         totalPrice,
		DownPaymentPercent: downPaymentPercent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	metrics.CreditLinesOpenedTotal.Inc()
	response.Created(c, dto.PurchaseResponse{
		LineID:           result.LineID.String(),
		ItemName:         result.ItemName,
		DownPayment:      domain.MoneyString(result.DownPayment),
		Principal:        domain.MoneyString(result.Principal),
		InterestPreview:  domain.MoneyString(result.InterestPreview),
		TotalDuePreview:  domain.MoneyString(result.TotalDuePreview),
		DueDate:          result.DueDate.Format("2006-01-02"),
		NewCashBalance:   domain.MoneyString(result.NewCashBalance),
		NewCreditBalance: domain.MoneyString(result.NewCreditBalance),
	})
}

// Repay handles POST /api/v1/wallet/repay.
func (h *CreditHandler) Repay(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := dto.ParseMoney(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.creditSvc.ApplyRepayment(c.Request.Context(), ports.RepaymentRequest{
		UserID:      userID,
		ReferenceID: req.ReferenceID,
		Amount:      amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	outcome := "partial"
	if result.LinesSettled > 0 {
		outcome = "settled"
	}
	metrics.RepaymentsTotal.WithLabelValues(outcome).Inc()
	metrics.LinesSettledTotal.Add(float64(result.LinesSettled))

	response.OK(c, dto.RepaymentResponse{
		AmountPaid:       domain.MoneyString(result.AmountPaid),
		InterestCharged:  domain.MoneyString(result.InterestCharged),
		PenaltyCharged:   domain.MoneyString(result.PenaltyCharged),
		LinesSettled:     result.LinesSettled,
		NewCashBalance:   domain.MoneyString(result.NewCashBalance),
		NewCreditBalance: domain.MoneyString(result.NewCreditBalance),
		CreditScore:      result.CreditScore,
	})
}

// ListPurchases handles GET /api/v1/wallet/credit-purchases.
func (h *CreditHandler) ListPurchases(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	previews, err := h.creditSvc.ListCreditLines(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.CreditLineResponse, 0, len(previews))
	for _, p := range previews {
		out = append(out, dto.CreditLineResponse{
			LineID:             p.Line.ID.String(),
			ItemName:           p.Line.ItemName,
			TotalPrice:         domain.MoneyString(p.Line.TotalPrice),
			DownPayment:        domain.MoneyString(p.Line.DownPayment),
			Principal:          domain.MoneyString(p.Line.Principal),
			RemainingPrincipal: domain.MoneyString(p.Line.RemainingPrincipal),
			DueDate:            p.Line.DueDate.Format("2006-01-02"),
			Status:             string(p.Line.Status),
			Interest:           domain.MoneyString(p.Interest),
			Penalty:            domain.MoneyString(p.Penalty),
			AmountDueNow:       domain.MoneyString(p.AmountDueNow),
			OverdueWeeks:       p.OverdueWeeks,
		})
	}
	response.OK(c, out)
}

// GetScore handles GET /api/v1/wallet/credit-score.
func (h *CreditHandler) GetScore(c *gin.Context) {
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
	response.OK(c, dto.CreditScoreResponse{
		CreditScore: wallet.CreditScore,
		CreditLimit: domain.MoneyString(wallet.CreditLimit),
	})
}

// RequestLimitIncrease handles POST /api/v1/wallet/limit-increase.
func (h *CreditHandler) RequestLimitIncrease(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.scoreSvc.RequestLimitIncrease(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletSummaryResponse(wallet))
}
