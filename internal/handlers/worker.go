package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ProcessLapsedShops hides shops whose subscription period has ended.
// Run periodically from main. Each shop goes through the same
// two-write deactivation the admin action uses, so the visibility
// invariant holds even if the worker dies mid-batch: every shop is
// either fully deactivated or untouched.
func (h *Handlers) ProcessLapsedShops() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := h.Store.LapsedShopIDs(ctx, time.Now())
	if err != nil {
		h.Log.Error("lapse worker: query failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := h.Store.DeactivateShop(ctx, id); err != nil {
			h.Log.Error("lapse worker: deactivation failed",
				zap.Int64("shopId", id), zap.Error(err))
			continue
		}
		h.Log.Info("lapse worker: shop deactivated", zap.Int64("shopId", id))
	}
}
