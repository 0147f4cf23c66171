package settlement

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
)

// ConfirmLedger is the slice of the ledger the confirmation flow needs.
// *ledger.Store satisfies it.
type ConfirmLedger interface {
	OrderByID(ctx context.Context, id int64) (*models.Order, error)
	ConfirmRedemption(ctx context.Context, orderID int64) (*ledger.ConfirmResult, error)
	ConfirmRedemptionByCode(ctx context.Context, code string) (*ledger.ConfirmResult, error)
}

// Confirmation is the outcome of a delivery confirmation.
type Confirmation struct {
	OrderNumber      string  `json:"orderNumber"`
	CreditedAmount   float64 `json:"creditedAmount"`
	AlreadyConfirmed bool    `json:"alreadyConfirmed,omitempty"`
}

// Confirmer runs the buyer/seller-triggered redemption confirmation:
// paid, unconfirmed -> confirmed, crediting the seller wallet with the
// payment's stored seller_amount exactly once. Independent of the
// payment-activation machines.
type Confirmer struct {
	Ledger ConfirmLedger
	Log    *zap.Logger
}

// ConfirmByOrderID confirms delivery of an order. Invoking it again for
// the same order is a no-op reporting AlreadyConfirmed, never a second
// wallet credit.
func (c *Confirmer) ConfirmByOrderID(ctx context.Context, orderID int64) (*Confirmation, error) {
	res, err := c.Ledger.ConfirmRedemption(ctx, orderID)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyConfirmed) {
			return c.alreadyConfirmed(ctx, orderID)
		}
		return nil, err
	}

	c.Log.Info("redemption confirmed",
		zap.String("orderNumber", res.OrderNumber),
		zap.Float64("credited", res.CreditedAmount))

	return &Confirmation{OrderNumber: res.OrderNumber, CreditedAmount: res.CreditedAmount}, nil
}

// ConfirmByCode confirms delivery via a redemption code (normalized by
// the ledger). An already-redeemed code reports AlreadyConfirmed rather
// than failing, matching the double-submit behaviour of the order-id path.
func (c *Confirmer) ConfirmByCode(ctx context.Context, code string) (*Confirmation, error) {
	res, err := c.Ledger.ConfirmRedemptionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ledger.ErrCodeRedeemed) || errors.Is(err, ledger.ErrAlreadyConfirmed) {
			return &Confirmation{AlreadyConfirmed: true}, nil
		}
		return nil, err
	}

	c.Log.Info("redemption confirmed by code",
		zap.String("orderNumber", res.OrderNumber),
		zap.Float64("credited", res.CreditedAmount))

	return &Confirmation{OrderNumber: res.OrderNumber, CreditedAmount: res.CreditedAmount}, nil
}

func (c *Confirmer) alreadyConfirmed(ctx context.Context, orderID int64) (*Confirmation, error) {
	order, err := c.Ledger.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Confirmation{OrderNumber: order.OrderNumber, AlreadyConfirmed: true}, nil
}
