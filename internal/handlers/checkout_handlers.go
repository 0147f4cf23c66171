package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/paystack"
)

// CheckoutItemInput is one line of a checkout submission. The storefront
// sends the displayed name and price; they are snapshotted verbatim.
type CheckoutItemInput struct {
	ProductName string  `json:"productName" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" binding:"required,gt=0"`
}

// CheckoutInput defines the JSON for POST /v1/checkout.
type CheckoutInput struct {
	ShopID     int64               `json:"shopId" binding:"required"`
	BuyerName  string              `json:"buyerName" binding:"required"`
	BuyerPhone string              `json:"buyerPhone" binding:"required"`
	BuyerEmail string              `json:"buyerEmail" binding:"required,email"`
	Items      []CheckoutItemInput `json:"items" binding:"required,min=1,dive"`
}

// Checkout is the handler for POST /v1/checkout.
// It creates the unpaid order with its item snapshot, initializes a
// gateway transaction for the total, and returns the authorization URL
// the buyer is sent to.
func (h *Handlers) Checkout(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- The shop must exist and be open ---
	shop, err := h.Store.ShopByID(c, input.ShopID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up shop"})
		return
	}
	if !shop.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "This shop is not currently accepting orders"})
		return
	}

	// 3. --- Create the unpaid order ---
	newOrder := ledger.NewOrder{
		ShopID:     input.ShopID,
		BuyerName:  input.BuyerName,
		BuyerPhone: input.BuyerPhone,
	}
	for _, item := range input.Items {
		newOrder.Items = append(newOrder.Items, ledger.NewOrderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	order, err := h.Store.CreateOrder(c, newOrder)
	if err != nil {
		h.Log.Error("checkout: create order failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	// 4. --- Initialize the gateway transaction ---
	// The reference is ours, minted here; the callback URL carries the
	// order id so the callback handler knows which order to settle.
	reference := "stl-" + uuid.NewString()
	callbackURL := fmt.Sprintf("%s/v1/payments/callback?order_id=%d", h.Cfg.Paystack.CallbackBaseURL, order.ID)

	init, err := h.Gateway.Initialize(c, paystack.InitializeRequest{
		Email:       input.BuyerEmail,
		AmountKobo:  nairaToKobo(order.Total),
		Reference:   reference,
		CallbackURL: callbackURL,
	})
	if err != nil {
		h.Log.Error("checkout: gateway initialize failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, please try again"})
		return
	}

	// Make sure the browser has a session before it leaves for the
	// gateway; the callback's re-entry guard is keyed by it.
	h.sessionID(c)

	// 5. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"orderId":          order.ID,
		"orderNumber":      order.OrderNumber,
		"total":            order.Total,
		"reference":        reference,
		"authorizationUrl": init.AuthorizationURL,
	})
}

// GetOrder is the handler for GET /v1/orders/:number.
// Buyers use it to re-fetch their confirmation details.
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.Store.OrderByNumber(c, c.Param("number"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	items, err := h.Store.OrderItems(c, order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

func nairaToKobo(naira float64) int64 {
	return int64(math.Round(naira * 100))
}
