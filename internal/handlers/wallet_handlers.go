package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storelink/storelink-golang/internal/ledger"
)

// GetMyWallet is the handler for GET /v1/seller/wallet.
// Returns the wallet balance and recent payout history.
func (h *Handlers) GetMyWallet(c *gin.Context) {
	// 1. --- Get Seller ID & Shop ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	shop, err := h.Store.ShopByOwner(c, sellerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "You have no shop yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shop"})
		return
	}

	// 2. --- Get Wallet ---
	wallet, err := h.Store.WalletByShop(c, shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
		return
	}

	// 3. --- Get Payout History ---
	payouts, err := h.Store.PayoutsByShop(c, shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payout history"})
		return
	}

	// 4. --- Send Response ---
	c.JSON(http.StatusOK, gin.H{
		"wallet":  wallet,
		"payouts": payouts,
	})
}

// RequestPayoutInput defines the JSON for POST /v1/seller/wallet/request-payout.
type RequestPayoutInput struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	BankDetails string  `json:"bankDetails" binding:"required"`
}

// RequestPayout is the handler for POST /v1/seller/wallet/request-payout.
// Records a withdrawal request; admin approval performs the actual debit.
func (h *Handlers) RequestPayout(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input RequestPayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop, err := h.Store.ShopByOwner(c, sellerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "You have no shop yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shop"})
		return
	}

	payout, err := h.Store.CreatePayoutRequest(c, shop.ID, input.Amount, input.BankDetails)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient wallet balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payout request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payout request submitted",
		"payout":  payout,
	})
}
