package models

import (
	"database/sql"
	"time"
)

const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment is the model for the 'payments' table.
// One row per gateway transaction attempt. 'gateway_reference' carries a
// UNIQUE index and is the idempotency key for the whole settlement path.
// A row is immutable once its status reaches 'success'.
type Payment struct {
	ID               int64         `json:"id" db:"id"`
	OrderID          sql.NullInt64 `json:"orderId,omitempty" db:"order_id"` // NULL for subscription payments
	ShopID           int64         `json:"shopId" db:"shop_id"`
	GatewayReference string        `json:"gatewayReference" db:"gateway_reference"`
	Amount           float64       `json:"amount" db:"amount"`
	PlatformFee      float64       `json:"platformFee" db:"platform_fee"`
	SellerAmount     float64       `json:"sellerAmount" db:"seller_amount"` // amount - platform_fee, fixed at payment time
	Status           string        `json:"status" db:"status"`
	CreditedToSeller bool          `json:"creditedToSeller" db:"credited_to_seller"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
}

// Proof target kinds: a payment proof (and the auto-approved billing
// record written on subscription activation) points at either an Order
// or a Subscription.
const (
	ProofTargetOrder        = "order"
	ProofTargetSubscription = "subscription"
)

const (
	ProofPending  = "pending"
	ProofApproved = "approved"
	ProofRejected = "rejected"
)

// ProofTarget is the tagged form of the polymorphic
// (payment_type, reference_id) pair on 'payment_proofs'.
type ProofTarget struct {
	Kind string `json:"kind"` // ProofTargetOrder or ProofTargetSubscription
	ID   int64  `json:"id"`
}

// PaymentProof is the model for the 'payment_proofs' table.
// Two uses: a buyer/seller-uploaded manual bank-transfer proof awaiting
// admin review, and the billing-history entry appended (already approved)
// when a subscription is activated through the gateway.
type PaymentProof struct {
	ID          int64          `json:"id" db:"id"`
	PaymentType string         `json:"paymentType" db:"payment_type"`
	ReferenceID int64          `json:"referenceId" db:"reference_id"`
	Amount      float64        `json:"amount" db:"amount"`
	Note        sql.NullString `json:"note,omitempty" db:"note"`
	Status      string         `json:"status" db:"status"`
	ReviewedAt  sql.NullTime   `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// Target returns the proof's reference as a tagged variant.
func (p *PaymentProof) Target() ProofTarget {
	return ProofTarget{Kind: p.PaymentType, ID: p.ReferenceID}
}
