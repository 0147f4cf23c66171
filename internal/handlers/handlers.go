package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/config"
	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/paystack"
	"github.com/storelink/storelink-golang/internal/settlement"
)

// Handlers holds all dependencies for the HTTP layer.
type Handlers struct {
	Store         *ledger.Store
	Gateway       paystack.Client
	Orders        *settlement.OrderActivator
	Subscriptions *settlement.SubscriptionActivator
	Confirmer     *settlement.Confirmer
	Cfg           *config.Config
	Log           *zap.Logger
}

// sessionCookie identifies a browser session for the callback re-entry
// guard. Callbacks arrive on top-level navigations, so Lax is enough.
const sessionCookie = "storelink_session"

// sessionID returns the request's session ID, minting and setting one if
// the browser has none yet.
func (h *Handlers) sessionID(c *gin.Context) string {
	if sid, err := c.Cookie(sessionCookie); err == nil && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	c.SetCookie(sessionCookie, sid, 86400, "/", "", false, true)
	return sid
}
