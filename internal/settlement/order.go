package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"

	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/paystack"
)

// OrderLedger is the slice of the ledger the order machine needs.
// *ledger.Store satisfies it.
type OrderLedger interface {
	OrderByID(ctx context.Context, id int64) (*models.Order, error)
	PaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	SettleOrderPayment(ctx context.Context, p ledger.SettleOrderParams) (*ledger.OrderSettlement, error)
	SettlementByReference(ctx context.Context, reference string) (*ledger.OrderSettlement, error)
}

// Order outcome states surfaced to the HTTP layer.
const (
	StateIgnored   = "ignored"   // not a callback, or a repeat within the session
	StateCancelled = "cancelled" // buyer backed out at the gateway
	StateSuccess   = "success"   // settled (first time or replay)
)

// OrderResult is the outcome of handling one order callback.
type OrderResult struct {
	State          string `json:"state"`
	OrderNumber    string `json:"orderNumber,omitempty"`
	RedemptionCode string `json:"redemptionCode,omitempty"`
	AlreadySettled bool   `json:"alreadySettled,omitempty"`
}

// OrderActivator drives an order from unpaid to paid off a gateway
// callback: unpaid -> verifying -> paid, or unpaid on any failure.
type OrderActivator struct {
	Gateway    paystack.Client
	Ledger     OrderLedger
	Attempts   *AttemptRegistry
	FeePercent float64
	Log        *zap.Logger
}

// HandleCallback runs the full activation sequence for an order redirect.
//
// Ordering is load-bearing: the session guard is taken before any I/O;
// the persisted payment row is consulted before the gateway so an
// already-settled reference is a no-op even from cold state; the gateway
// verify result (never the redirect params) decides the money movement;
// and the success marker is stored before the result is returned.
//
// Returned errors: paystack.ErrUnreachable (wrapped) and store errors are
// retryable and release the guard; ErrVerificationFailed,
// ErrAmountMismatch and ledger.ErrCodeExhausted are terminal for the
// attempt and keep it.
func (a *OrderActivator) HandleCallback(ctx context.Context, sessionID string, orderID int64, params url.Values) (*OrderResult, error) {
	cb := ClassifyCallback(params)
	switch cb.Kind {
	case NotACallback:
		return &OrderResult{State: StateIgnored}, nil
	case Cancelled:
		// Short-circuit: no verify call for a buyer-cancelled redirect.
		return &OrderResult{State: StateCancelled}, nil
	}

	key := AttemptKey(sessionID, cb.Reference)
	if !a.Attempts.Begin(key) {
		// Component remounts and duplicate tabs replay the same params.
		// If this session already finished, hand back its terminal
		// screen; otherwise stay out of the first invocation's way.
		if m, ok := a.Attempts.Marker(key); ok {
			return &OrderResult{
				State:          StateSuccess,
				OrderNumber:    m.OrderNumber,
				RedemptionCode: m.RedemptionCode,
				AlreadySettled: true,
			}, nil
		}
		return &OrderResult{State: StateIgnored}, nil
	}

	result, err := a.settle(ctx, orderID, cb.Reference)
	if err != nil {
		if retryable(err) {
			a.Attempts.Clear(key)
		}
		a.Log.Warn("order settlement failed",
			zap.String("reference", cb.Reference),
			zap.Int64("orderId", orderID),
			zap.Error(err))
		return nil, err
	}

	// Stored under both the attempt key (duplicate-tab replays) and the
	// per-shop key (page reloads re-rendering the confirmation screen).
	marker := SuccessMarker{
		OrderNumber:    result.OrderNumber,
		RedemptionCode: result.RedemptionCode,
		ShopID:         result.Payment.ShopID,
	}
	a.Attempts.MarkSuccess(key, marker)
	a.Attempts.MarkSuccess(MarkerKey(sessionID, result.Payment.ShopID), marker)

	a.Log.Info("order settled",
		zap.String("reference", cb.Reference),
		zap.String("orderNumber", result.OrderNumber),
		zap.Bool("alreadySettled", result.AlreadySettled))

	return &OrderResult{
		State:          StateSuccess,
		OrderNumber:    result.OrderNumber,
		RedemptionCode: result.RedemptionCode,
		AlreadySettled: result.AlreadySettled,
	}, nil
}

func (a *OrderActivator) settle(ctx context.Context, orderID int64, reference string) (*ledger.OrderSettlement, error) {
	// Cold re-entry check: if this reference already settled (other tab,
	// previous process), return the prior result without touching the
	// gateway. The unique index remains the backstop for the race where
	// two sessions pass this check together.
	prior, err := a.Ledger.PaymentByReference(ctx, reference)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if prior != nil && prior.Status == models.PaymentSuccess {
		return a.Ledger.SettlementByReference(ctx, reference)
	}

	verified, err := a.Gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}
	if !verified.Success {
		return nil, ErrVerificationFailed
	}

	order, err := a.Ledger.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if verified.AmountKobo != nairaToKobo(order.Total) {
		return nil, fmt.Errorf("%w: expected %d kobo, gateway verified %d",
			ErrAmountMismatch, nairaToKobo(order.Total), verified.AmountKobo)
	}

	return a.Ledger.SettleOrderPayment(ctx, ledger.SettleOrderParams{
		OrderID:          order.ID,
		GatewayReference: reference,
		AmountNaira:      order.Total,
		FeePercent:       a.FeePercent,
	})
}

// retryable reports whether the guard should be released so the user can
// try again. Verify is idempotent gateway-side and settlement is
// idempotent ledger-side, so anything transient qualifies.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrVerificationFailed),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ledger.ErrCodeExhausted):
		return false
	}
	return true
}

func nairaToKobo(naira float64) int64 {
	return int64(math.Round(naira * 100))
}
