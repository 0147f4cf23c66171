package settlement

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/paystack"
)

// SubscriptionLedger is the slice of the ledger the subscription machine
// needs. *ledger.Store satisfies it.
type SubscriptionLedger interface {
	PaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	SubscriptionByShop(ctx context.Context, shopID int64) (*models.Subscription, error)
	ActivateSubscription(ctx context.Context, p ledger.ActivateSubscriptionParams) (*ledger.SubscriptionActivation, error)
}

// SubscriptionResult is the outcome of handling one subscription callback.
type SubscriptionResult struct {
	State          string               `json:"state"`
	Subscription   *models.Subscription `json:"subscription,omitempty"`
	AlreadySettled bool                 `json:"alreadySettled,omitempty"`
}

// SubscriptionActivator drives a shop's subscription from trial/inactive
// to active off a gateway callback, flipping the shop's visibility flag
// and appending the billing record in the same ledger transaction.
type SubscriptionActivator struct {
	Gateway        paystack.Client
	Ledger         SubscriptionLedger
	Attempts       *AttemptRegistry
	Plan           string
	PlanPriceNaira float64
	Log            *zap.Logger
}

// HandleCallback runs the activation sequence for a subscription redirect.
// Same contract as the order machine, with one addition: if the owning
// shop's identity has not loaded yet (shopID == 0) the activation is
// deferred with ErrShopContextUnavailable and the attempt guard is NOT
// taken, so the retry once the shop is known still counts as the first
// attempt.
func (a *SubscriptionActivator) HandleCallback(ctx context.Context, sessionID string, shopID int64, params url.Values) (*SubscriptionResult, error) {
	cb := ClassifyCallback(params)
	switch cb.Kind {
	case NotACallback:
		return &SubscriptionResult{State: StateIgnored}, nil
	case Cancelled:
		return &SubscriptionResult{State: StateCancelled}, nil
	}

	if shopID == 0 {
		return nil, ErrShopContextUnavailable
	}

	key := AttemptKey(sessionID, cb.Reference)
	if !a.Attempts.Begin(key) {
		if m, ok := a.Attempts.Marker(key); ok && m.ShopID == shopID {
			sub, err := a.Ledger.SubscriptionByShop(ctx, shopID)
			if err == nil {
				return &SubscriptionResult{State: StateSuccess, Subscription: sub, AlreadySettled: true}, nil
			}
		}
		return &SubscriptionResult{State: StateIgnored}, nil
	}

	activation, err := a.activate(ctx, shopID, cb.Reference)
	if err != nil {
		if retryable(err) {
			a.Attempts.Clear(key)
		}
		a.Log.Warn("subscription activation failed",
			zap.String("reference", cb.Reference),
			zap.Int64("shopId", shopID),
			zap.Error(err))
		return nil, err
	}

	a.Attempts.MarkSuccess(key, SuccessMarker{ShopID: shopID})
	a.Attempts.MarkSuccess(MarkerKey(sessionID, shopID), SuccessMarker{ShopID: shopID})

	a.Log.Info("subscription activated",
		zap.String("reference", cb.Reference),
		zap.Int64("shopId", shopID),
		zap.Bool("alreadySettled", activation.AlreadySettled))

	return &SubscriptionResult{
		State:          StateSuccess,
		Subscription:   &activation.Subscription,
		AlreadySettled: activation.AlreadySettled,
	}, nil
}

func (a *SubscriptionActivator) activate(ctx context.Context, shopID int64, reference string) (*ledger.SubscriptionActivation, error) {
	// Cold re-entry: an already-settled reference never re-contacts the
	// gateway and never moves the billing period again.
	prior, err := a.Ledger.PaymentByReference(ctx, reference)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if prior != nil && prior.Status == models.PaymentSuccess {
		sub, err := a.Ledger.SubscriptionByShop(ctx, shopID)
		if err != nil {
			return nil, err
		}
		return &ledger.SubscriptionActivation{Subscription: *sub, AlreadySettled: true}, nil
	}

	verified, err := a.Gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}
	if !verified.Success {
		return nil, ErrVerificationFailed
	}

	if verified.AmountKobo != nairaToKobo(a.PlanPriceNaira) {
		return nil, fmt.Errorf("%w: expected %d kobo, gateway verified %d",
			ErrAmountMismatch, nairaToKobo(a.PlanPriceNaira), verified.AmountKobo)
	}

	return a.Ledger.ActivateSubscription(ctx, ledger.ActivateSubscriptionParams{
		ShopID:           shopID,
		Plan:             a.Plan,
		GatewayReference: reference,
		AmountNaira:      a.PlanPriceNaira,
		Now:              time.Now(),
	})
}
