package ledger

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/storelink/storelink-golang/internal/redemption"
)

// The settlement paths lean on MySQL unique indexes as the final word on
// idempotency: payments.gateway_reference, redemption_codes.code,
// redemption_codes.order_id, orders.order_number, subscriptions.shop_id.
// Callers must be able to tell "this key already exists" apart from a
// generic failure, so duplicate-key violations are always surfaced as
// ErrAlreadyExists (possibly wrapped).

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("ledger: not found")

	// ErrAlreadyExists is returned when an insert hits a unique index.
	// For settlement callers this means "someone else already settled
	// this key: fetch and use their result", never a hard error.
	ErrAlreadyExists = errors.New("ledger: already exists")

	// ErrCodeExhausted is returned when redemption-code generation keeps
	// colliding past its retry budget. Fatal and user-visible.
	ErrCodeExhausted = errors.New("ledger: redemption code generation exhausted")

	// ErrAlreadyConfirmed is returned when a redemption confirmation is
	// re-invoked for an order that was already confirmed. The wallet is
	// credited at most once; callers treat this as a no-op success.
	ErrAlreadyConfirmed = errors.New("ledger: redemption already confirmed")

	// ErrOrderUnpaid is returned when confirmation is attempted against
	// an order that has not been paid.
	ErrOrderUnpaid = errors.New("ledger: order not paid")

	// ErrCodeRedeemed is returned when a redemption code has already
	// been used.
	ErrCodeRedeemed = errors.New("ledger: code already redeemed")

	// ErrInsufficientBalance is returned when a payout would overdraw
	// the seller wallet.
	ErrInsufficientBalance = errors.New("ledger: insufficient wallet balance")

	// ErrAlreadyReviewed is returned when a payment proof has already
	// been approved or rejected.
	ErrAlreadyReviewed = errors.New("ledger: proof already reviewed")
)

// mysqlDuplicateEntry is the server error number for a unique-key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// Store is the SQL ledger over the shared connection pool. Every
// money-moving operation runs as a single transaction.
type Store struct {
	DB     *sql.DB
	Issuer *redemption.Issuer
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:     db,
		Issuer: redemption.NewIssuer(),
	}
}
