package settlement

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/models"
	"github.com/storelink/storelink-golang/internal/paystack"
)

func newSubscriptionActivator(gw *fakeGateway, l *memLedger) *SubscriptionActivator {
	return &SubscriptionActivator{
		Gateway:        gw,
		Ledger:         l,
		Attempts:       NewAttemptRegistry(),
		Plan:           "standard",
		PlanPriceNaira: 5000,
		Log:            zap.NewNop(),
	}
}

func TestSubscriptionCallbackActivatesShop(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 500000}}
	a := newSubscriptionActivator(gw, l)

	res, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	require.NotNil(t, res.Subscription)
	assert.Equal(t, models.SubscriptionActive, res.Subscription.Status)
	assert.Equal(t, "standard", res.Subscription.Plan)
	assert.Equal(t, res.Subscription.CurrentPeriodStart.AddDate(0, 1, 0), res.Subscription.CurrentPeriodEnd)

	// Shop visibility, subscription row and billing record move together.
	assert.True(t, l.shopActive[3])
	assert.Equal(t, 1, l.billingRows)
}

func TestSubscriptionCallbackDefersWithoutShopContext(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 500000}}
	a := newSubscriptionActivator(gw, l)

	// Shop identity not loaded yet. Nothing runs and, critically, the
	// attempt guard is not taken.
	_, err := a.HandleCallback(context.Background(), "sess-1", 0, successParams("sub-ref-1"))
	require.ErrorIs(t, err, ErrShopContextUnavailable)
	assert.Equal(t, 0, gw.calls())
	assert.Empty(t, l.subs)

	// The retry once the shop is known counts as the first attempt.
	res, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.True(t, l.shopActive[3])
}

func TestSubscriptionCallbackActivatesOnceAcrossRepeats(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 500000}}
	a := newSubscriptionActivator(gw, l)

	first, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
	require.NoError(t, err)
	require.Equal(t, StateSuccess, first.State)
	periodEnd := first.Subscription.CurrentPeriodEnd

	for i := 0; i < 5; i++ {
		res, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
		require.NoError(t, err)
		assert.Equal(t, StateSuccess, res.State)
		assert.True(t, res.AlreadySettled)
		// The billing period never moves on a replay.
		assert.Equal(t, periodEnd, res.Subscription.CurrentPeriodEnd)
	}

	assert.Equal(t, 1, gw.calls())
	assert.Equal(t, 1, l.billingRows)
	assert.Len(t, l.payments, 1)
}

func TestSubscriptionCallbackColdReentrySkipsGateway(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 500000}}
	a := newSubscriptionActivator(gw, l)

	_, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
	require.NoError(t, err)

	a2 := newSubscriptionActivator(gw, l)
	res, err := a2.HandleCallback(context.Background(), "sess-2", 3, successParams("sub-ref-1"))
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	assert.True(t, res.AlreadySettled)
	assert.Equal(t, 1, gw.calls())
	assert.Equal(t, 1, l.billingRows)
}

func TestSubscriptionCallbackAmountMismatch(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 123400}}
	a := newSubscriptionActivator(gw, l)

	_, err := a.HandleCallback(context.Background(), "sess-1", 3, successParams("sub-ref-1"))
	require.ErrorIs(t, err, ErrAmountMismatch)
	assert.Empty(t, l.subs)
	assert.False(t, l.shopActive[3])
}

func TestSubscriptionCallbackCancelled(t *testing.T) {
	l := newMemLedger()
	gw := &fakeGateway{verifyRes: &paystack.VerifyResult{Success: true, AmountKobo: 500000}}
	a := newSubscriptionActivator(gw, l)

	params := url.Values{"status": {"canceled"}, "trxref": {"sub-ref-1"}}
	res, err := a.HandleCallback(context.Background(), "sess-1", 3, params)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 0, gw.calls())
}
