package models

import "time"

const (
	SubscriptionTrial    = "trial"
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// Subscription is the model for the 'subscriptions' table (1:1 with a shop,
// 'shop_id' carries a UNIQUE index). Created in 'trial' at shop
// registration; activation restarts the billing period at the activation
// instant (renewal is non-cumulative).
type Subscription struct {
	ID                 int64     `json:"id" db:"id"`
	ShopID             int64     `json:"shopId" db:"shop_id"`
	Plan               string    `json:"plan" db:"plan"`
	Status             string    `json:"status" db:"status"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart" db:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd" db:"current_period_end"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}
