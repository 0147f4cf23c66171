package models

import (
	"database/sql"
	"time"
)

// SellerWallet is the model for the 'seller_wallets' table (1:1 with a shop).
// The balance is only ever credited by the redemption-confirmation flow and
// only ever debited by payout approval. The activation state machines never
// touch it.
type SellerWallet struct {
	ID             int64     `json:"id" db:"id"`
	ShopID         int64     `json:"shopId" db:"shop_id"`
	Balance        float64   `json:"balance" db:"balance"`
	TotalEarned    float64   `json:"totalEarned" db:"total_earned"`
	TotalWithdrawn float64   `json:"totalWithdrawn" db:"total_withdrawn"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutRejected = "rejected"
)

// PayoutRequest is the model for the 'payout_requests' table.
// Approval is the only path that decrements a wallet balance.
type PayoutRequest struct {
	ID              int64          `json:"id" db:"id"`
	ShopID          int64          `json:"shopId" db:"shop_id"`
	Amount          float64        `json:"amount" db:"amount"`
	BankDetails     string         `json:"bankDetails" db:"bank_details"`
	Status          string         `json:"status" db:"status"`
	RejectionReason sql.NullString `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}
