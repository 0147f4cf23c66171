package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storelink/storelink-golang/internal/models"
)

// PaymentByReference fetches a payment by its gateway reference. This is
// the application-level half of the idempotency check; the unique index
// on the column remains the backstop against concurrent duplicates.
func (s *Store) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, order_id, shop_id, gateway_reference, amount, platform_fee, seller_amount, status, credited_to_seller, created_at
		FROM payments WHERE gateway_reference = ?`, reference).
		Scan(&p.ID, &p.OrderID, &p.ShopID, &p.GatewayReference, &p.Amount,
			&p.PlatformFee, &p.SellerAmount, &p.Status, &p.CreditedToSeller, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup payment by reference: %w", err)
	}
	return &p, nil
}

// CreatePaymentProof records a manual bank-transfer proof for later admin
// review.
func (s *Store) CreatePaymentProof(ctx context.Context, target models.ProofTarget, amount float64, note string) (*models.PaymentProof, error) {
	now := time.Now()
	proof := &models.PaymentProof{
		PaymentType: target.Kind,
		ReferenceID: target.ID,
		Amount:      amount,
		Status:      models.ProofPending,
		CreatedAt:   now,
	}
	if note != "" {
		proof.Note = sql.NullString{String: note, Valid: true}
	}

	result, err := s.DB.ExecContext(ctx, `
		INSERT INTO payment_proofs (payment_type, reference_id, amount, note, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		proof.PaymentType, proof.ReferenceID, proof.Amount, proof.Note, proof.Status, now)
	if err != nil {
		return nil, fmt.Errorf("insert payment proof: %w", err)
	}
	proof.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("proof insert id: %w", err)
	}
	return proof, nil
}

// ProofByID fetches a payment proof by primary key.
func (s *Store) ProofByID(ctx context.Context, id int64) (*models.PaymentProof, error) {
	var p models.PaymentProof
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, payment_type, reference_id, amount, note, status, reviewed_at, created_at
		FROM payment_proofs WHERE id = ?`, id).
		Scan(&p.ID, &p.PaymentType, &p.ReferenceID, &p.Amount, &p.Note, &p.Status, &p.ReviewedAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup proof: %w", err)
	}
	return &p, nil
}

// PendingProofs lists proofs awaiting review, oldest first.
func (s *Store) PendingProofs(ctx context.Context) ([]models.PaymentProof, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, payment_type, reference_id, amount, note, status, reviewed_at, created_at
		FROM payment_proofs WHERE status = ? ORDER BY created_at ASC`, models.ProofPending)
	if err != nil {
		return nil, fmt.Errorf("query pending proofs: %w", err)
	}
	defer rows.Close()

	var proofs []models.PaymentProof
	for rows.Next() {
		var p models.PaymentProof
		if err := rows.Scan(&p.ID, &p.PaymentType, &p.ReferenceID, &p.Amount,
			&p.Note, &p.Status, &p.ReviewedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan proof: %w", err)
		}
		proofs = append(proofs, p)
	}
	return proofs, rows.Err()
}

// ReviewProof settles a pending proof to approved or rejected. Terminal:
// a proof can be reviewed exactly once.
func (s *Store) ReviewProof(ctx context.Context, proofID int64, approve bool) (*models.PaymentProof, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	var p models.PaymentProof
	err = tx.QueryRowContext(ctx, `
		SELECT id, payment_type, reference_id, amount, note, status, reviewed_at, created_at
		FROM payment_proofs WHERE id = ? FOR UPDATE`, proofID).
		Scan(&p.ID, &p.PaymentType, &p.ReferenceID, &p.Amount, &p.Note, &p.Status, &p.ReviewedAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock proof for review: %w", err)
	}
	if p.Status != models.ProofPending {
		return nil, ErrAlreadyReviewed
	}

	newStatus := models.ProofRejected
	if approve {
		newStatus = models.ProofApproved
	}
	now := time.Now()

	if _, err := tx.ExecContext(ctx, `
		UPDATE payment_proofs SET status = ?, reviewed_at = ? WHERE id = ?`,
		newStatus, now, p.ID); err != nil {
		return nil, fmt.Errorf("update proof: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review tx: %w", err)
	}

	p.Status = newStatus
	p.ReviewedAt = sql.NullTime{Time: now, Valid: true}
	return &p, nil
}
