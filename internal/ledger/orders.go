package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/redemption"
)

// NewOrderItem is the checkout-time snapshot for one line.
type NewOrderItem struct {
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// NewOrder is the input for CreateOrder.
type NewOrder struct {
	ShopID     int64
	BuyerName  string
	BuyerPhone string
	Items      []NewOrderItem
}

// CreateOrder inserts an unpaid order with its immutable item snapshot and
// returns it. The order number is generated here and retried on the rare
// unique-key collision.
func (s *Store) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback()

	var total float64
	for _, item := range in.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}

	now := time.Now()
	order := &models.Order{
		ShopID:        in.ShopID,
		BuyerName:     in.BuyerName,
		BuyerPhone:    in.BuyerPhone,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Total:         total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	insertOrder := `
		INSERT INTO orders
		(order_number, shop_id, buyer_name, buyer_phone, status, payment_status, total, redemption_confirmed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	for attempt := 0; ; attempt++ {
		order.OrderNumber = "ORD-" + s.Issuer.Generate()
		result, err := tx.ExecContext(ctx, insertOrder,
			order.OrderNumber, order.ShopID, order.BuyerName, order.BuyerPhone,
			order.Status, order.PaymentStatus, order.Total, now, now)
		if err != nil {
			if isDuplicateKey(err) && attempt < redemption.MaxAttempts {
				continue
			}
			return nil, fmt.Errorf("insert order: %w", err)
		}
		order.ID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("order insert id: %w", err)
		}
		break
	}

	insertItem := `
		INSERT INTO order_items
		(order_id, product_name, quantity, unit_price, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	for _, item := range in.Items {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		if _, err := tx.ExecContext(ctx, insertItem,
			order.ID, item.ProductName, item.Quantity, item.UnitPrice, lineTotal, now); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout tx: %w", err)
	}
	return order, nil
}

const orderColumns = `id, order_number, shop_id, buyer_name, buyer_phone, status, payment_status, total, redemption_confirmed, created_at, updated_at`

func scanOrder(row *sql.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.ShopID, &o.BuyerName, &o.BuyerPhone,
		&o.Status, &o.PaymentStatus, &o.Total, &o.RedemptionConfirmed, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

// OrderByID fetches an order by primary key.
func (s *Store) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	return scanOrder(row)
}

// OrderByNumber fetches an order by its business key.
func (s *Store) OrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_number = ?", number)
	return scanOrder(row)
}

// OrderItems returns the snapshot lines of an order.
func (s *Store) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, order_id, product_name, quantity, unit_price, total_price, created_at
		FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SettleOrderParams is the input for SettleOrderPayment. The fee percent
// is applied here, once, and the split is stored on the payment row for
// good: confirmation later credits the stored seller_amount and never
// recomputes it.
type SettleOrderParams struct {
	OrderID          int64
	GatewayReference string
	AmountNaira      float64
	FeePercent       float64
}

// OrderSettlement is the outcome of a settlement, first-time or replayed.
type OrderSettlement struct {
	OrderNumber    string
	RedemptionCode string
	Payment        models.Payment
	AlreadySettled bool
}

// SettleOrderPayment drives an order from unpaid to paid, exactly once per
// gateway reference. In a single transaction it inserts the success payment
// row (the unique index on gateway_reference is the linearization point),
// marks the order paid and issues the order's one redemption code.
//
// A duplicate reference never errors: the prior result is fetched and
// returned with AlreadySettled set, so a second tab or a replayed callback
// sees the same order number and code as the first.
func (s *Store) SettleOrderPayment(ctx context.Context, p SettleOrderParams) (*OrderSettlement, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	// Lock the order row for the duration of the settlement.
	var order models.Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, order_number, shop_id, payment_status, total
		FROM orders WHERE id = ? FOR UPDATE`, p.OrderID).
		Scan(&order.ID, &order.OrderNumber, &order.ShopID, &order.PaymentStatus, &order.Total)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order for settlement: %w", err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		// A paid order can be reached under a NEW reference: the gateway
		// callback and a manually approved proof can race for the same
		// order. Replay the prior settlement instead of charging twice.
		tx.Rollback()
		return s.settlementByOrder(ctx, order.ID, order.OrderNumber)
	}

	platformFee := roundKobo(p.AmountNaira * p.FeePercent / 100)
	sellerAmount := roundKobo(p.AmountNaira - platformFee)
	now := time.Now()

	payment := models.Payment{
		OrderID:          sql.NullInt64{Int64: order.ID, Valid: true},
		ShopID:           order.ShopID,
		GatewayReference: p.GatewayReference,
		Amount:           p.AmountNaira,
		PlatformFee:      platformFee,
		SellerAmount:     sellerAmount,
		Status:           models.PaymentSuccess,
		CreatedAt:        now,
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO payments
		(order_id, shop_id, gateway_reference, amount, platform_fee, seller_amount, status, credited_to_seller, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		payment.OrderID, payment.ShopID, payment.GatewayReference,
		payment.Amount, payment.PlatformFee, payment.SellerAmount, payment.Status, now)
	if err != nil {
		if isDuplicateKey(err) {
			// Another session won the insert. Abandon this tx and
			// return their settlement instead.
			tx.Rollback()
			return s.SettlementByReference(ctx, p.GatewayReference)
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	payment.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("payment insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET payment_status = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		models.PaymentStatusPaid, models.OrderStatusProcessing, now, order.ID); err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	code, err := s.issueCode(ctx, tx, order.ID, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement tx: %w", err)
	}

	return &OrderSettlement{
		OrderNumber:    order.OrderNumber,
		RedemptionCode: code,
		Payment:        payment,
	}, nil
}

// issueCode inserts the order's redemption code inside the settlement
// transaction, retrying generation on the (rare) unique-key collision up
// to the issuer's budget.
func (s *Store) issueCode(ctx context.Context, tx *sql.Tx, orderID int64, now time.Time) (string, error) {
	for attempt := 0; attempt < redemption.MaxAttempts; attempt++ {
		code := s.Issuer.Generate()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO redemption_codes (order_id, code, status, created_at)
			VALUES (?, ?, ?, ?)`,
			orderID, code, models.CodeActive, now)
		if err == nil {
			return code, nil
		}
		if !isDuplicateKey(err) {
			return "", fmt.Errorf("insert redemption code: %w", err)
		}
	}
	return "", ErrCodeExhausted
}

// SettlementByReference reconstructs a completed settlement from persisted
// state, flagged AlreadySettled. Used when the payment insert loses the
// unique-key race, and by cold re-entry when a callback is replayed after
// the process (and its in-memory guards) restarted.
func (s *Store) SettlementByReference(ctx context.Context, reference string) (*OrderSettlement, error) {
	payment, err := s.PaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !payment.OrderID.Valid {
		return nil, fmt.Errorf("payment %s is not an order payment", reference)
	}

	var number, code string
	err = s.DB.QueryRowContext(ctx, `
		SELECT o.order_number, rc.code
		FROM orders o
		JOIN redemption_codes rc ON rc.order_id = o.id
		WHERE o.id = ?`, payment.OrderID.Int64).Scan(&number, &code)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch prior settlement: %w", err)
	}

	return &OrderSettlement{
		OrderNumber:    number,
		RedemptionCode: code,
		Payment:        *payment,
		AlreadySettled: true,
	}, nil
}

// settlementByOrder reconstructs the settlement of an already-paid order,
// flagged AlreadySettled. Used when a second settlement attempt arrives
// under a different gateway reference than the one that paid the order.
func (s *Store) settlementByOrder(ctx context.Context, orderID int64, number string) (*OrderSettlement, error) {
	var p models.Payment
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, order_id, shop_id, gateway_reference, amount, platform_fee, seller_amount, status, credited_to_seller, created_at
		FROM payments WHERE order_id = ? AND status = ?`, orderID, models.PaymentSuccess).
		Scan(&p.ID, &p.OrderID, &p.ShopID, &p.GatewayReference, &p.Amount,
			&p.PlatformFee, &p.SellerAmount, &p.Status, &p.CreditedToSeller, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch settling payment: %w", err)
	}

	var code string
	err = s.DB.QueryRowContext(ctx,
		"SELECT code FROM redemption_codes WHERE order_id = ?", orderID).Scan(&code)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch settling code: %w", err)
	}

	return &OrderSettlement{
		OrderNumber:    number,
		RedemptionCode: code,
		Payment:        p,
		AlreadySettled: true,
	}, nil
}

// roundKobo rounds a naira amount to kobo precision so stored splits
// always add back up to the charged amount.
func roundKobo(naira float64) float64 {
	return math.Round(naira*100) / 100
}
