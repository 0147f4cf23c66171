package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/settlement"
)

// OrderCallback is the handler for GET /v1/payments/callback.
// The gateway redirects the buyer's browser here with its query
// parameters; the state machine does everything that matters. Whatever
// the outcome, the response is a redirect to a clean frontend URL so a
// refresh of the final page never replays gateway parameters.
func (h *Handlers) OrderCallback(c *gin.Context) {
	// 1. --- The order id rode along on the callback URL we registered ---
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid order_id"})
		return
	}

	// 2. --- Run the activation state machine ---
	sid := h.sessionID(c)
	result, err := h.Orders.HandleCallback(c, sid, orderID, c.Request.URL.Query())
	if err != nil {
		h.redirectFailure(c, err)
		return
	}

	// 3. --- Redirect to the matching terminal screen ---
	switch result.State {
	case settlement.StateCancelled:
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/payment/cancelled")
	case settlement.StateSuccess:
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/payment/complete?order="+result.OrderNumber)
	default: // ignored
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/")
	}
}

// SubscriptionCallback is the handler for GET /v1/subscriptions/callback.
// Same contract as OrderCallback, keyed by shop instead of order. A
// missing shop id defers the activation (the machine refuses to guess
// which shop to activate) and the frontend retries once its shop context
// has loaded.
func (h *Handlers) SubscriptionCallback(c *gin.Context) {
	shopID, _ := strconv.ParseInt(c.Query("shop_id"), 10, 64)

	sid := h.sessionID(c)
	result, err := h.Subscriptions.HandleCallback(c, sid, shopID, c.Request.URL.Query())
	if err != nil {
		if errors.Is(err, settlement.ErrShopContextUnavailable) {
			// Deferred, not failed: no guard was taken, retrying with
			// the shop id present will run as a first attempt.
			c.JSON(http.StatusAccepted, gin.H{
				"state": "deferred",
				"error": "Shop context not yet available, retry with shop_id",
			})
			return
		}
		h.redirectFailure(c, err)
		return
	}

	switch result.State {
	case settlement.StateCancelled:
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/billing/cancelled")
	case settlement.StateSuccess:
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/billing/active")
	default:
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/")
	}
}

// PaymentStatus is the handler for GET /v1/payments/status?shop_id=N.
// It serves the session's durable success marker so a reloaded page can
// show the confirmation screen (order number + redemption code) without
// re-running verification.
func (h *Handlers) PaymentStatus(c *gin.Context) {
	shopID, err := strconv.ParseInt(c.Query("shop_id"), 10, 64)
	if err != nil || shopID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid shop_id"})
		return
	}

	sid := h.sessionID(c)
	marker, ok := h.Orders.Attempts.Marker(settlement.MarkerKey(sid, shopID))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"paid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paid":           true,
		"orderNumber":    marker.OrderNumber,
		"redemptionCode": marker.RedemptionCode,
	})
}

// redirectFailure translates state-machine errors into the right terminal
// screen. "failed" tells the buyer they may have been charged and to
// contact support; "error" is the retry-safe transient bucket.
func (h *Handlers) redirectFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, settlement.ErrVerificationFailed),
		errors.Is(err, settlement.ErrAmountMismatch),
		errors.Is(err, ledger.ErrCodeExhausted):
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/payment/failed")
	default:
		h.Log.Warn("callback handling hit a retryable error", zap.Error(err))
		c.Redirect(http.StatusSeeOther, h.Cfg.FrontendBaseURL+"/payment/error")
	}
}
