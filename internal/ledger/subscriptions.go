package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storelink/storelink-golang/internal/models"
)

// TrialDays is the free period granted to a new shop at registration.
const TrialDays = 14

// NewShop is the input for CreateShop.
type NewShop struct {
	OwnerUserID int64
	Name        string
	Slug        string
}

// CreateShop registers a shop with its trial subscription and an empty
// seller wallet, in one transaction. New shops start visible for the
// length of the trial.
func (s *Store) CreateShop(ctx context.Context, in NewShop) (*models.Shop, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin shop tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	shop := &models.Shop{
		OwnerUserID: in.OwnerUserID,
		Name:        in.Name,
		Slug:        in.Slug,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO shops (owner_user_id, name, slug, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		shop.OwnerUserID, shop.Name, shop.Slug, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: shop slug %q", ErrAlreadyExists, in.Slug)
		}
		return nil, fmt.Errorf("insert shop: %w", err)
	}
	shop.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("shop insert id: %w", err)
	}

	trialEnd := now.AddDate(0, 0, TrialDays)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (shop_id, plan, status, current_period_start, current_period_end, created_at, updated_at)
		VALUES (?, 'standard', ?, ?, ?, ?, ?)`,
		shop.ID, models.SubscriptionTrial, now, trialEnd, now, now); err != nil {
		return nil, fmt.Errorf("insert trial subscription: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO seller_wallets (shop_id, balance, total_earned, total_withdrawn, updated_at)
		VALUES (?, 0, 0, 0, ?)`, shop.ID, now); err != nil {
		return nil, fmt.Errorf("insert seller wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit shop tx: %w", err)
	}
	return shop, nil
}

// ShopByID fetches a shop by primary key.
func (s *Store) ShopByID(ctx context.Context, id int64) (*models.Shop, error) {
	var sh models.Shop
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_user_id, name, slug, is_active, created_at, updated_at
		FROM shops WHERE id = ?`, id).
		Scan(&sh.ID, &sh.OwnerUserID, &sh.Name, &sh.Slug, &sh.IsActive, &sh.CreatedAt, &sh.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup shop: %w", err)
	}
	return &sh, nil
}

// ShopByOwner fetches the shop belonging to a user.
func (s *Store) ShopByOwner(ctx context.Context, userID int64) (*models.Shop, error) {
	var sh models.Shop
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, owner_user_id, name, slug, is_active, created_at, updated_at
		FROM shops WHERE owner_user_id = ?`, userID).
		Scan(&sh.ID, &sh.OwnerUserID, &sh.Name, &sh.Slug, &sh.IsActive, &sh.CreatedAt, &sh.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup shop by owner: %w", err)
	}
	return &sh, nil
}

// SubscriptionByShop fetches a shop's subscription row.
func (s *Store) SubscriptionByShop(ctx context.Context, shopID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, shop_id, plan, status, current_period_start, current_period_end, created_at, updated_at
		FROM subscriptions WHERE shop_id = ?`, shopID).
		Scan(&sub.ID, &sub.ShopID, &sub.Plan, &sub.Status,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}
	return &sub, nil
}

// ActivateSubscriptionParams is the input for ActivateSubscription.
type ActivateSubscriptionParams struct {
	ShopID           int64
	Plan             string
	GatewayReference string
	AmountNaira      float64
	Now              time.Time
}

// SubscriptionActivation is the outcome of an activation, first-time or
// replayed.
type SubscriptionActivation struct {
	Subscription   models.Subscription
	AlreadySettled bool
}

// ActivateSubscription settles a subscription payment and activates the
// shop, exactly once per gateway reference. One transaction covers all
// four writes: the payment row (unique reference = linearization point),
// the subscription upsert, the shop visibility flag, and the auto-approved
// billing-history record. A reader of "is this shop open" therefore sees
// either all effects or none.
//
// The billing period restarts at the activation instant: renewal is
// non-cumulative, time left on the previous period is not carried over.
func (s *Store) ActivateSubscription(ctx context.Context, p ActivateSubscriptionParams) (*SubscriptionActivation, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activation tx: %w", err)
	}
	defer tx.Rollback()

	now := p.Now
	periodEnd := now.AddDate(0, 1, 0)

	// Subscription payments belong entirely to the platform: no seller
	// split, nothing for the confirmation flow to credit later.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments
		(order_id, shop_id, gateway_reference, amount, platform_fee, seller_amount, status, credited_to_seller, created_at)
		VALUES (NULL, ?, ?, ?, ?, 0, ?, 0, ?)`,
		p.ShopID, p.GatewayReference, p.AmountNaira, p.AmountNaira, models.PaymentSuccess, now)
	if err != nil {
		if isDuplicateKey(err) {
			tx.Rollback()
			sub, err := s.SubscriptionByShop(ctx, p.ShopID)
			if err != nil {
				return nil, err
			}
			return &SubscriptionActivation{Subscription: *sub, AlreadySettled: true}, nil
		}
		return nil, fmt.Errorf("insert subscription payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (shop_id, plan, status, current_period_start, current_period_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		plan = VALUES(plan),
		status = VALUES(status),
		current_period_start = VALUES(current_period_start),
		current_period_end = VALUES(current_period_end),
		updated_at = VALUES(updated_at)`,
		p.ShopID, p.Plan, models.SubscriptionActive, now, periodEnd, now, now); err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE shops SET is_active = 1, updated_at = ? WHERE id = ?`, now, p.ShopID); err != nil {
		return nil, fmt.Errorf("activate shop: %w", err)
	}

	// Billing-history entry: gateway already confirmed funds, so it is
	// born approved.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payment_proofs (payment_type, reference_id, amount, note, status, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		models.ProofTargetSubscription, p.ShopID, p.AmountNaira,
		"Gateway subscription payment "+p.GatewayReference, models.ProofApproved, now, now); err != nil {
		return nil, fmt.Errorf("insert billing record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activation tx: %w", err)
	}

	return &SubscriptionActivation{
		Subscription: models.Subscription{
			ShopID:             p.ShopID,
			Plan:               p.Plan,
			Status:             models.SubscriptionActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   periodEnd,
			UpdatedAt:          now,
		},
	}, nil
}

// DeactivateShop is the inverse two-write: subscription to inactive and
// shop hidden, in the same transaction. Used by the admin deactivate
// action and by the lapse worker, so the visibility invariant holds on
// the way down too.
func (s *Store) DeactivateShop(ctx context.Context, shopID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deactivation tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, updated_at = ? WHERE shop_id = ?`,
		models.SubscriptionInactive, now, shopID); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE shops SET is_active = 0, updated_at = ? WHERE id = ?`, now, shopID); err != nil {
		return fmt.Errorf("hide shop: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deactivation tx: %w", err)
	}
	return nil
}

// LapsedShopIDs returns shops still visible whose subscription period has
// ended. Grandfathered shops (active flag, no subscription row) never
// appear here.
func (s *Store) LapsedShopIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT sh.id
		FROM shops sh
		JOIN subscriptions sub ON sub.shop_id = sh.id
		WHERE sh.is_active = 1
		  AND sub.status IN (?, ?)
		  AND sub.current_period_end < ?`,
		models.SubscriptionTrial, models.SubscriptionActive, now)
	if err != nil {
		return nil, fmt.Errorf("query lapsed shops: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lapsed shop id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
