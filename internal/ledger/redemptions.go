package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/redemption"
)

// ConfirmResult reports a completed (or previously completed) redemption
// confirmation.
type ConfirmResult struct {
	OrderNumber    string
	CreditedAmount float64
}

// ConfirmRedemption marks an order's redemption confirmed and credits the
// seller wallet with the payment's stored seller_amount, all in one
// transaction. The guard on redemption_confirmed runs inside the same
// transaction as the credit, so invoking this twice credits exactly once;
// the second call gets ErrAlreadyConfirmed.
func (s *Store) ConfirmRedemption(ctx context.Context, orderID int64) (*ConfirmResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback()

	res, err := s.confirmInTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm tx: %w", err)
	}
	return res, nil
}

// ConfirmRedemptionByCode resolves a (normalized) redemption code to its
// order and confirms it. The code must still be active and the order paid.
func (s *Store) ConfirmRedemptionByCode(ctx context.Context, code string) (*ConfirmResult, error) {
	code = redemption.Normalize(code)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback()

	var orderID int64
	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT order_id, status FROM redemption_codes WHERE code = ? FOR UPDATE", code).
		Scan(&orderID, &status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup redemption code: %w", err)
	}
	if status == models.CodeRedeemed {
		return nil, ErrCodeRedeemed
	}

	res, err := s.confirmInTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirm tx: %w", err)
	}
	return res, nil
}

func (s *Store) confirmInTx(ctx context.Context, tx *sql.Tx, orderID int64) (*ConfirmResult, error) {
	var order models.Order
	err := tx.QueryRowContext(ctx, `
		SELECT id, order_number, shop_id, payment_status, redemption_confirmed
		FROM orders WHERE id = ? FOR UPDATE`, orderID).
		Scan(&order.ID, &order.OrderNumber, &order.ShopID, &order.PaymentStatus, &order.RedemptionConfirmed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order for confirmation: %w", err)
	}

	if order.PaymentStatus != models.PaymentStatusPaid {
		return nil, ErrOrderUnpaid
	}
	if order.RedemptionConfirmed {
		return nil, ErrAlreadyConfirmed
	}

	// The credit is the seller_amount fixed at payment time.
	var paymentID int64
	var sellerAmount float64
	var credited bool
	err = tx.QueryRowContext(ctx, `
		SELECT id, seller_amount, credited_to_seller
		FROM payments WHERE order_id = ? AND status = ? FOR UPDATE`,
		order.ID, models.PaymentSuccess).
		Scan(&paymentID, &sellerAmount, &credited)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock payment for confirmation: %w", err)
	}
	if credited {
		// Belt and braces: the order guard above should have caught
		// this already.
		return nil, ErrAlreadyConfirmed
	}

	now := time.Now()

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET redemption_confirmed = 1, status = ?, updated_at = ?
		WHERE id = ?`, models.OrderStatusDelivered, now, order.ID); err != nil {
		return nil, fmt.Errorf("mark order confirmed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE redemption_codes SET status = ? WHERE order_id = ?`,
		models.CodeRedeemed, order.ID); err != nil {
		return nil, fmt.Errorf("mark code redeemed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE seller_wallets
		SET balance = balance + ?, total_earned = total_earned + ?, updated_at = ?
		WHERE shop_id = ?`, sellerAmount, sellerAmount, now, order.ShopID); err != nil {
		return nil, fmt.Errorf("credit seller wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payments SET credited_to_seller = 1 WHERE id = ?`, paymentID); err != nil {
		return nil, fmt.Errorf("mark payment credited: %w", err)
	}

	return &ConfirmResult{
		OrderNumber:    order.OrderNumber,
		CreditedAmount: sellerAmount,
	}, nil
}

// CodeByOrder returns an order's redemption code, if one has been issued.
func (s *Store) CodeByOrder(ctx context.Context, orderID int64) (*models.RedemptionCode, error) {
	var rc models.RedemptionCode
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, order_id, code, status, created_at
		FROM redemption_codes WHERE order_id = ?`, orderID).
		Scan(&rc.ID, &rc.OrderID, &rc.Code, &rc.Status, &rc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup code by order: %w", err)
	}
	return &rc, nil
}
