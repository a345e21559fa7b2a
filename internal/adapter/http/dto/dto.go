package dto

// Money values cross the wire as decimal strings with two fixed decimal
// places. Binding validates shape only; amount semantics (positivity,
// balance checks) belong to the services.

// DepositRequest is the request body for deposits. Target picks which
// balance the money lands in; it defaults to the cash wallet when omitted.
type DepositRequest struct {
	Amount string `json:"amount" binding:"required,money"`
	Target string `json:"target" binding:"omitempty,oneof=wallet savings"`
}

// WithdrawRequest is the request body for withdrawals, from cash or savings.
type WithdrawRequest struct {
	Amount string `json:"amount" binding:"required,money"`
}

// CreditPurchaseRequest is the request body for opening a credit line.
type CreditPurchaseRequest struct {
	ReferenceID        string `json:"reference_id" binding:"required,max=100,safe_id"`
	ItemName           string `json:"item_name" binding:"required,min=1,max=200"`
	TotalPrice         string `json:"total_price" binding:"required,money"`
	DownPaymentPercent string `json:"down_payment_percent" binding:"required,money"`
}

// RepayRequest is the request body for a repayment.
type RepayRequest struct {
	ReferenceID string `json:"reference_id" binding:"required,max=100,safe_id"`
	Amount      string `json:"amount" binding:"required,money"`
}

// WalletSummaryResponse is the response for the wallet summary view.
type WalletSummaryResponse struct {
	WalletID        string `json:"wallet_id"`
	CashBalance     string `json:"cash_balance"`
	SavingsBalance  string `json:"savings_balance"`
	CreditBalance   string `json:"credit_balance"`
	CreditLimit     string `json:"credit_limit"`
	AvailableCredit string `json:"available_credit"`
	CreditScore     int    `json:"credit_score"`
}

// PurchaseResponse is the response body for a successful credit purchase.
type PurchaseResponse struct {
	LineID           string `json:"line_id"`
	ItemName         string `json:"item_name"`
	DownPayment      string `json:"down_payment"`
	Principal        string `json:"principal"`
	InterestPreview  string `json:"interest_preview"`
	TotalDuePreview  string `json:"total_due_preview"`
	DueDate          string `json:"due_date"`
	NewCashBalance   string `json:"new_cash_balance"`
	NewCreditBalance string `json:"new_credit_balance"`
}

// RepaymentResponse is the response body for a completed repayment.
type RepaymentResponse struct {
	AmountPaid       string `json:"amount_paid"`
	InterestCharged  string `json:"interest_charged"`
	PenaltyCharged   string `json:"penalty_charged"`
	LinesSettled     int    `json:"lines_settled"`
	NewCashBalance   string `json:"new_cash_balance"`
	NewCreditBalance string `json:"new_credit_balance"`
	CreditScore      int    `json:"credit_score"`
}

// CreditLineResponse is one active line with its live settle-today preview.
type CreditLineResponse struct {
	LineID             string `json:"line_id"`
	ItemName           string `json:"item_name"`
	TotalPrice         string `json:"total_price"`
	DownPayment        string `json:"down_payment"`
	Principal          string `json:"principal"`
	RemainingPrincipal string `json:"remaining_principal"`
	DueDate            string `json:"due_date"`
	Status             string `json:"status"`
	Interest           string `json:"interest"`
	Penalty            string `json:"penalty"`
	AmountDueNow       string `json:"amount_due_now"`
	OverdueWeeks       int    `json:"overdue_weeks"`
}

// CreditScoreResponse is the response for the credit score view.
type CreditScoreResponse struct {
	CreditScore int    `json:"credit_score"`
	CreditLimit string `json:"credit_limit"`
}

// LedgerEntryResponse is one row of the transaction history.
type LedgerEntryResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}
