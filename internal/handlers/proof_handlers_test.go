package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/config"
	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
)

func newProofTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Handlers{
		Store: ledger.NewStore(db),
		Cfg:   &config.Config{PlatformFeePercent: 10},
		Log:   zap.NewNop(),
	}, mock
}

func reviewRequest(h *Handlers, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.PATCH("/v1/admin/payment-proofs/:id", h.ReviewPaymentProof)

	req := httptest.NewRequest(http.MethodPatch, "/v1/admin/payment-proofs/5", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func approvedOrderProofRows() *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "payment_type", "reference_id", "amount", "note", "status", "reviewed_at", "created_at"}).
		AddRow(5, models.ProofTargetOrder, 7, 5000.0, nil, models.ProofApproved, time.Now(), time.Now())
}

func TestReviewPaymentProofRetryAfterApprovalResettles(t *testing.T) {
	h, mock := newProofTestHandlers(t)

	// An earlier approval committed the verdict but its settlement step
	// failed. The admin retries the approval.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(approvedOrderProofRows())
	mock.ExpectRollback()

	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(approvedOrderProofRows())

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "order_number", "shop_id", "buyer_name", "buyer_phone",
				"status", "payment_status", "total", "redemption_confirmed", "created_at", "updated_at"}).
			AddRow(7, "ORD-A1B2C3", 3, "Ada", "+2348012345678",
				models.OrderStatusProcessing, models.PaymentStatusPaid, 5000.0, false, time.Now(), time.Now()))

	// The settlement re-run finds the order already paid and replays the
	// prior settlement; nothing is inserted.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, order_number, shop_id, payment_status, total").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "order_number", "shop_id", "payment_status", "total"}).
			AddRow(7, "ORD-A1B2C3", 3, models.PaymentStatusPaid, 5000.0))
	mock.ExpectRollback()
	mock.ExpectQuery("FROM payments WHERE order_id").
		WithArgs(int64(7), models.PaymentSuccess).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "order_id", "shop_id", "gateway_reference", "amount",
				"platform_fee", "seller_amount", "status", "credited_to_seller", "created_at"}).
			AddRow(11, 7, 3, "stl-ref-1", 5000.0, 500.0, 4500.0,
				models.PaymentSuccess, false, time.Now()))
	mock.ExpectQuery("SELECT code FROM redemption_codes").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("X7K2P9"))

	w := reviewRequest(h, `{"approve":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already approved and settled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewPaymentProofRejectedStaysConflict(t *testing.T) {
	h, mock := newProofTestHandlers(t)

	rejected := sqlmock.NewRows(
		[]string{"id", "payment_type", "reference_id", "amount", "note", "status", "reviewed_at", "created_at"}).
		AddRow(5, models.ProofTargetOrder, 7, 5000.0, nil, models.ProofRejected, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(rejected)
	mock.ExpectRollback()

	mock.ExpectQuery("FROM payment_proofs WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "payment_type", "reference_id", "amount", "note", "status", "reviewed_at", "created_at"}).
			AddRow(5, models.ProofTargetOrder, 7, 5000.0, nil, models.ProofRejected, time.Now(), time.Now()))

	w := reviewRequest(h, `{"approve":true}`)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
