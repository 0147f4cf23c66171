package models

import "time"

// Order statuses. Fulfilment status and payment status move independently:
// an order can be 'processing' while still 'unpaid' (manual bank transfer
// awaiting review).
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Order is the model for the 'orders' table.
// Orders are append-only: rows are never deleted, and the item snapshot
// is immutable after checkout.
type Order struct {
	ID                  int64     `json:"id" db:"id"`
	OrderNumber         string    `json:"orderNumber" db:"order_number"` // e.g. "ORD-AB12CD", unique business key
	ShopID              int64     `json:"shopId" db:"shop_id"`
	BuyerName           string    `json:"buyerName" db:"buyer_name"`
	BuyerPhone          string    `json:"buyerPhone" db:"buyer_phone"`
	Status              string    `json:"status" db:"status"`
	PaymentStatus       string    `json:"paymentStatus" db:"payment_status"`
	Total               float64   `json:"total" db:"total"` // naira
	RedemptionConfirmed bool      `json:"redemptionConfirmed" db:"redemption_confirmed"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderItem is the model for the 'order_items' table.
// Product name and prices are snapshotted at checkout so later catalogue
// edits never change what the buyer agreed to pay.
type OrderItem struct {
	ID          int64     `json:"id" db:"id"`
	OrderID     int64     `json:"orderId" db:"order_id"`
	ProductName string    `json:"productName" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unitPrice" db:"unit_price"`
	TotalPrice  float64   `json:"totalPrice" db:"total_price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
