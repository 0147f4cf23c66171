package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storelink/storelink-golang/internal/models"
)

// WalletByShop fetches a shop's wallet.
func (s *Store) WalletByShop(ctx context.Context, shopID int64) (*models.SellerWallet, error) {
	var w models.SellerWallet
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, shop_id, balance, total_earned, total_withdrawn, updated_at
		FROM seller_wallets WHERE shop_id = ?`, shopID).
		Scan(&w.ID, &w.ShopID, &w.Balance, &w.TotalEarned, &w.TotalWithdrawn, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup wallet: %w", err)
	}
	return &w, nil
}

// CreatePayoutRequest records a withdrawal request after checking the
// wallet can cover it. The balance is not held; approval re-checks and
// performs the actual debit.
func (s *Store) CreatePayoutRequest(ctx context.Context, shopID int64, amount float64, bankDetails string) (*models.PayoutRequest, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payout tx: %w", err)
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx,
		"SELECT balance FROM seller_wallets WHERE shop_id = ? FOR UPDATE", shopID).
		Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if balance < amount {
		return nil, ErrInsufficientBalance
	}

	now := time.Now()
	req := &models.PayoutRequest{
		ShopID:      shopID,
		Amount:      amount,
		BankDetails: bankDetails,
		Status:      models.PayoutPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO payout_requests (shop_id, amount, bank_details, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.ShopID, req.Amount, req.BankDetails, req.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert payout request: %w", err)
	}
	req.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("payout insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payout tx: %w", err)
	}
	return req, nil
}

// PayoutsByShop lists a shop's recent payout requests, newest first.
func (s *Store) PayoutsByShop(ctx context.Context, shopID int64) ([]models.PayoutRequest, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, shop_id, amount, bank_details, status, rejection_reason, created_at, updated_at
		FROM payout_requests WHERE shop_id = ?
		ORDER BY created_at DESC LIMIT 20`, shopID)
	if err != nil {
		return nil, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	var payouts []models.PayoutRequest
	for rows.Next() {
		var p models.PayoutRequest
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Amount, &p.BankDetails,
			&p.Status, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// ApprovePayout debits the wallet and marks the request approved, in one
// transaction. This is the only code path that decrements a wallet
// balance.
func (s *Store) ApprovePayout(ctx context.Context, payoutID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval tx: %w", err)
	}
	defer tx.Rollback()

	var shopID int64
	var amount float64
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT shop_id, amount, status FROM payout_requests WHERE id = ? FOR UPDATE`, payoutID).
		Scan(&shopID, &amount, &status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock payout: %w", err)
	}
	if status != models.PayoutPending {
		return ErrAlreadyReviewed
	}

	var balance float64
	err = tx.QueryRowContext(ctx,
		"SELECT balance FROM seller_wallets WHERE shop_id = ? FOR UPDATE", shopID).
		Scan(&balance)
	if err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}
	if balance < amount {
		return ErrInsufficientBalance
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE seller_wallets
		SET balance = balance - ?, total_withdrawn = total_withdrawn + ?, updated_at = ?
		WHERE shop_id = ?`, amount, amount, now, shopID); err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payout_requests SET status = ?, updated_at = ? WHERE id = ?`,
		models.PayoutApproved, now, payoutID); err != nil {
		return fmt.Errorf("approve payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approval tx: %w", err)
	}
	return nil
}

// RejectPayout marks a pending request rejected with a reason. No wallet
// movement.
func (s *Store) RejectPayout(ctx context.Context, payoutID int64, reason string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rejection tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM payout_requests WHERE id = ? FOR UPDATE", payoutID).
		Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock payout: %w", err)
	}
	if status != models.PayoutPending {
		return ErrAlreadyReviewed
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE payout_requests SET status = ?, rejection_reason = ?, updated_at = ? WHERE id = ?`,
		models.PayoutRejected, reason, time.Now(), payoutID); err != nil {
		return fmt.Errorf("reject payout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rejection tx: %w", err)
	}
	return nil
}
