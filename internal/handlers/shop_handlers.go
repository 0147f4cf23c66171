package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/paystack"
)

// RegisterShopInput defines the JSON for POST /v1/seller/shops.
type RegisterShopInput struct {
	Name string `json:"name" binding:"required,min=3"`
}

// RegisterShop is the handler for POST /v1/seller/shops.
// Creates the shop with its trial subscription and empty wallet.
func (h *Handlers) RegisterShop(c *gin.Context) {
	// 1. --- Get Seller ID ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	// 2. --- Bind & Validate JSON ---
	var input RegisterShopInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 3. --- Create shop + trial subscription + wallet ---
	shop, err := h.Store.CreateShop(c, ledger.NewShop{
		OwnerUserID: sellerID,
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "A shop with this name already exists"})
			return
		}
		h.Log.Error("register shop failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register shop"})
		return
	}

	// 4. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"shop":      shop,
		"trialDays": ledger.TrialDays,
	})
}

// GetMyShop is the handler for GET /v1/seller/shop.
// Returns the seller's shop with its subscription state.
func (h *Handlers) GetMyShop(c *gin.Context) {
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

	// A missing subscription row is a grandfathered legacy shop; the
	// visibility flag alone rules.
	sub, err := h.Store.SubscriptionByShop(c, shop.ID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shop":         shop,
		"subscription": sub,
	})
}

// InitializeSubscriptionInput defines the JSON for
// POST /v1/seller/subscription/initialize.
type InitializeSubscriptionInput struct {
	Email string `json:"email" binding:"required,email"`
}

// InitializeSubscription is the handler for
// POST /v1/seller/subscription/initialize.
// Starts a gateway payment for one month of the standard plan; the
// redirect comes back through SubscriptionCallback.
func (h *Handlers) InitializeSubscription(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input InitializeSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop, err := h.Store.ShopByOwner(c, sellerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Register a shop before subscribing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shop"})
		return
	}

	reference := "sub-" + uuid.NewString()
	callbackURL := fmt.Sprintf("%s/v1/subscriptions/callback?shop_id=%d", h.Cfg.Paystack.CallbackBaseURL, shop.ID)

	init, err := h.Gateway.Initialize(c, paystack.InitializeRequest{
		Email:       input.Email,
		AmountKobo:  nairaToKobo(h.Subscriptions.PlanPriceNaira),
		Reference:   reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		h.Log.Error("subscription initialize failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, please try again"})
		return
	}

	h.sessionID(c)

	c.JSON(http.StatusCreated, gin.H{
		"reference":        reference,
		"amount":           h.Subscriptions.PlanPriceNaira,
		"authorizationUrl": init.AuthorizationURL,
	})
}
