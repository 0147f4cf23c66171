package models

import "time"

const (
	CodeActive   = "active"
	CodeRedeemed = "redeemed"
)

// RedemptionCode is the model for the 'redemption_codes' table.
// Exactly one code per paid order, issued the moment the order first
// transitions to 'paid' and never regenerated. Both 'code' and 'order_id'
// carry UNIQUE indexes.
type RedemptionCode struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	Code      string    `json:"code" db:"code"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
