package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storelink/storelink-golang/internal/ledger"
)

//
// --- Admin: Payout Handlers ---
//

// ApprovePayout is the handler for POST /v1/admin/payouts/:id/approve.
// The only path that debits a seller wallet.
func (h *Handlers) ApprovePayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout id"})
		return
	}

	if err := h.Store.ApprovePayout(c, payoutID); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payout request not found"})
		case errors.Is(err, ledger.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": "Payout request already reviewed"})
		case errors.Is(err, ledger.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "Wallet can no longer cover this payout"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve payout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payout approved"})
}

// RejectPayoutInput defines the JSON for POST /v1/admin/payouts/:id/reject.
type RejectPayoutInput struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectPayout is the handler for POST /v1/admin/payouts/:id/reject.
func (h *Handlers) RejectPayout(c *gin.Context) {
	payoutID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout id"})
		return
	}

	var input RejectPayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.RejectPayout(c, payoutID, input.Reason); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Payout request not found"})
		case errors.Is(err, ledger.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": "Payout request already reviewed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject payout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payout rejected"})
}

//
// --- Admin: Shop Visibility Handlers ---
//

// AdminActivateShop is the handler for POST /v1/admin/shops/:id/activate.
// Manual counterpart of gateway activation: grants a month and uses the
// same all-or-nothing subscription + visibility writes.
func (h *Handlers) AdminActivateShop(c *gin.Context) {
	shopID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop id"})
		return
	}

	if _, err := h.Store.ShopByID(c, shopID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
		return
	}

	// A manual reference per activation keeps the operation idempotent
	// per admin action while allowing repeat grants on later days.
	reference := "admin-" + strconv.FormatInt(shopID, 10) + "-" + time.Now().Format("2006-01-02")
	_, err = h.Store.ActivateSubscription(c, ledger.ActivateSubscriptionParams{
		ShopID:           shopID,
		Plan:             h.Subscriptions.Plan,
		GatewayReference: reference,
		AmountNaira:      0,
		Now:              time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate shop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Shop activated for one month"})
}

// AdminDeactivateShop is the handler for POST /v1/admin/shops/:id/deactivate.
func (h *Handlers) AdminDeactivateShop(c *gin.Context) {
	shopID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop id"})
		return
	}

	if _, err := h.Store.ShopByID(c, shopID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
		return
	}

	if err := h.Store.DeactivateShop(c, shopID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate shop"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Shop deactivated"})
}
