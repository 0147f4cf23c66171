package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storelink/storelink-golang/internal/handlers"
	"github.com/storelink/storelink-golang/internal/middleware"
)

// CORSMiddleware allows the storefront frontend to call the API with
// credentials (the session cookie rides on the callback-status calls).
func CORSMiddleware(frontendOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", frontendOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, jwtSecret []byte) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware(h.Cfg.FrontendBaseURL))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Buyer Routes (Public) ---
		v1.POST("/checkout", h.Checkout)
		v1.GET("/orders/:number", h.GetOrder)
		v1.POST("/orders/confirm-delivery", h.ConfirmDelivery)
		v1.POST("/payment-proofs", h.UploadPaymentProof)

		// --- Gateway Callback Routes (Public, browser redirects) ---
		v1.GET("/payments/callback", h.OrderCallback)
		v1.GET("/payments/status", h.PaymentStatus)
		v1.GET("/subscriptions/callback", h.SubscriptionCallback)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// --- Seller Shop & Subscription ---
			auth.POST("/seller/shops", h.RegisterShop)
			auth.GET("/seller/shop", h.GetMyShop)
			auth.POST("/seller/subscription/initialize", h.InitializeSubscription)

			// --- Seller Wallet & Redemption ---
			auth.GET("/seller/wallet", h.GetMyWallet)
			auth.POST("/seller/wallet/request-payout", h.RequestPayout)
			auth.POST("/seller/redemptions", h.RedeemCode)

			// --- Admin ---
			auth.GET("/admin/payment-proofs", h.GetPendingProofs)
			auth.PATCH("/admin/payment-proofs/:id", h.ReviewPaymentProof)
			auth.POST("/admin/payouts/:id/approve", h.ApprovePayout)
			auth.POST("/admin/payouts/:id/reject", h.RejectPayout)
			auth.POST("/admin/shops/:id/activate", h.AdminActivateShop)
			auth.POST("/admin/shops/:id/deactivate", h.AdminDeactivateShop)
		}
	}

	return router
}
