package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog caches the result of a money operation so a retried request
// returns the original outcome instead of moving money twice.
type IdempotencyLog struct {
	Key          string    `json:"key"` // "user_id:op:reference_id"
	WalletID     uuid.UUID `json:"wallet_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildPurchaseIdempotencyKey constructs the key for credit purchases.
func BuildPurchaseIdempotencyKey(userID uuid.UUID, referenceID string) string {
	return userID.String() + ":purchase:" + referenceID
}

// BuildRepaymentIdempotencyKey constructs the key for repayments.
func BuildRepaymentIdempotencyKey(userID uuid.UUID, referenceID string) string {
	return userID.String() + ":repay:" + referenceID
}
