package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelink/storelink-golang/internal/models"
)

func TestPaymentByReference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM payments WHERE gateway_reference").
		WithArgs("stl-ref-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "order_id", "shop_id", "gateway_reference", "amount",
				"platform_fee", "seller_amount", "status", "credited_to_seller", "created_at"}).
			AddRow(11, 7, 3, "stl-ref-1", 5000.0, 500.0, 4500.0,
				models.PaymentSuccess, false, time.Now()))

	p, err := store.PaymentByReference(context.Background(), "stl-ref-1")
	require.NoError(t, err)

	assert.Equal(t, int64(11), p.ID)
	assert.True(t, p.OrderID.Valid)
	assert.Equal(t, int64(7), p.OrderID.Int64)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentByReferenceNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM payments WHERE gateway_reference").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.PaymentByReference(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func proofRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "payment_type", "reference_id", "amount", "note", "status", "reviewed_at", "created_at"}).
		AddRow(5, models.ProofTargetOrder, 7, 5000.0, nil, status, nil, time.Now())
}

func TestReviewProofApproves(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(proofRow(models.ProofPending))
	mock.ExpectExec("UPDATE payment_proofs SET status").
		WithArgs(models.ProofApproved, sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := store.ReviewProof(context.Background(), 5, true)
	require.NoError(t, err)

	assert.Equal(t, models.ProofApproved, p.Status)
	assert.True(t, p.ReviewedAt.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewProofIsTerminal(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(proofRow(models.ProofApproved))
	mock.ExpectRollback()

	_, err := store.ReviewProof(context.Background(), 5, false)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingProofsOldestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM payment_proofs WHERE status").
		WithArgs(models.ProofPending).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "payment_type", "reference_id", "amount", "note", "status", "reviewed_at", "created_at"}).
			AddRow(4, models.ProofTargetOrder, 7, 5000.0, nil, models.ProofPending, nil, time.Now().Add(-time.Hour)).
			AddRow(5, models.ProofTargetSubscription, 3, 5000.0, nil, models.ProofPending, nil, time.Now()))

	proofs, err := store.PendingProofs(context.Background())
	require.NoError(t, err)

	require.Len(t, proofs, 2)
	assert.Equal(t, int64(4), proofs[0].ID)
	assert.Equal(t, models.ProofTargetSubscription, proofs[1].PaymentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
