package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storelink/storelink-golang/internal/ledger"
)

// ConfirmDeliveryInput defines the JSON for POST /v1/orders/confirm-delivery.
type ConfirmDeliveryInput struct {
	OrderID int64 `json:"orderId" binding:"required"`
}

// ConfirmDelivery is the handler for POST /v1/orders/confirm-delivery.
// The buyer confirms receipt; the held funds move to the seller wallet.
// Submitting twice (double click, page remount) is a no-op on the second
// call, never a second credit.
func (h *Handlers) ConfirmDelivery(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input ConfirmDeliveryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Run the confirmation flow ---
	result, err := h.Confirmer.ConfirmByOrderID(c, input.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, ledger.ErrOrderUnpaid):
			c.JSON(http.StatusConflict, gin.H{"error": "Order has not been paid"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm delivery"})
		}
		return
	}

	// 3. --- Send Response ---
	if result.AlreadyConfirmed {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Delivery was already confirmed",
			"orderNumber": result.OrderNumber,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Delivery confirmed",
		"orderNumber": result.OrderNumber,
	})
}

// RedeemCodeInput defines the JSON for POST /v1/seller/redemptions.
type RedeemCodeInput struct {
	Code string `json:"code" binding:"required"`
}

// RedeemCode is the handler for POST /v1/seller/redemptions.
// Shop staff type in the buyer's redemption code at handover. Codes are
// case-normalized before lookup.
func (h *Handlers) RedeemCode(c *gin.Context) {
	var input RedeemCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Confirmer.ConfirmByCode(c, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown redemption code"})
		case errors.Is(err, ledger.ErrOrderUnpaid):
			c.JSON(http.StatusConflict, gin.H{"error": "Order has not been paid"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem code"})
		}
		return
	}

	if result.AlreadyConfirmed {
		c.JSON(http.StatusOK, gin.H{"message": "Code was already redeemed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Code redeemed, funds released",
		"orderNumber":    result.OrderNumber,
		"creditedAmount": result.CreditedAmount,
	})
}
