package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/models"
)

// UploadProofInput defines the JSON for POST /v1/payment-proofs.
// The manual bank-transfer alternative to the gateway: the buyer (for an
// order) or seller (for a subscription) submits evidence of a transfer
// and an admin reviews it.
type UploadProofInput struct {
	PaymentType string  `json:"paymentType" binding:"required,oneof=order subscription"`
	ReferenceID int64   `json:"referenceId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Note        string  `json:"note"`
}

// UploadPaymentProof is the handler for POST /v1/payment-proofs.
func (h *Handlers) UploadPaymentProof(c *gin.Context) {
	var input UploadProofInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The referenced order or shop subscription must exist before we
	// accept a proof against it.
	switch input.PaymentType {
	case models.ProofTargetOrder:
		if _, err := h.Store.OrderByID(c, input.ReferenceID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
	case models.ProofTargetSubscription:
		if _, err := h.Store.ShopByID(c, input.ReferenceID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
			return
		}
	}

	proof, err := h.Store.CreatePaymentProof(c,
		models.ProofTarget{Kind: input.PaymentType, ID: input.ReferenceID},
		input.Amount, input.Note)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment proof"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Proof submitted for review",
		"proof":   proof,
	})
}

// GetPendingProofs is the handler for GET /v1/admin/payment-proofs.
func (h *Handlers) GetPendingProofs(c *gin.Context) {
	proofs, err := h.Store.PendingProofs(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending proofs"})
		return
	}
	if proofs == nil {
		proofs = []models.PaymentProof{}
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

// ReviewProofInput defines the JSON for PATCH /v1/admin/payment-proofs/:id.
type ReviewProofInput struct {
	Approve bool `json:"approve"`
}

// ReviewPaymentProof is the handler for PATCH /v1/admin/payment-proofs/:id.
// Review is terminal. Approval then runs the same settlement path the
// gateway flow uses, with a proof-derived reference, so a repeated
// approval attempt (crash between the two steps, admin retry) settles at
// most once.
func (h *Handlers) ReviewPaymentProof(c *gin.Context) {
	proofID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proof id"})
		return
	}

	var input ReviewProofInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proof, err := h.Store.ReviewProof(c, proofID, input.Approve)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Proof not found"})
		case errors.Is(err, ledger.ErrAlreadyReviewed):
			h.retryReviewedProof(c, proofID, input.Approve)
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to review proof"})
		}
		return
	}

	if !input.Approve {
		c.JSON(http.StatusOK, gin.H{"message": "Proof rejected", "proof": proof})
		return
	}

	if err := h.settleApprovedProof(c, proof); err != nil {
		h.Log.Error("manual settlement after proof approval failed",
			zap.Int64("proofId", proof.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Proof approved but settlement failed; retry the approval",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof approved and settled", "proof": proof})
}

// retryReviewedProof handles a review submitted against a proof that
// already has a verdict. The verdict is committed before settlement runs,
// so a crash or settlement failure in between leaves an approved proof
// whose money never moved; re-approving must re-run the (idempotent)
// settlement rather than conflict, or the proof is stuck forever.
// Any other re-review combination stays a conflict.
func (h *Handlers) retryReviewedProof(c *gin.Context, proofID int64, approve bool) {
	prior, err := h.Store.ProofByID(c, proofID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch proof"})
		return
	}

	if !approve || prior.Status != models.ProofApproved {
		c.JSON(http.StatusConflict, gin.H{"error": "Proof has already been reviewed"})
		return
	}

	if err := h.settleApprovedProof(c, prior); err != nil {
		h.Log.Error("manual settlement retry failed",
			zap.Int64("proofId", prior.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Proof approved but settlement failed; retry the approval",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof already approved and settled", "proof": prior})
}

// settleApprovedProof applies the approved proof through the same
// idempotent settlement operations the gateway path uses. The reference
// is derived from the proof id, so this is safe to re-run.
func (h *Handlers) settleApprovedProof(c *gin.Context, proof *models.PaymentProof) error {
	reference := fmt.Sprintf("proof-%d", proof.ID)

	switch proof.Target().Kind {
	case models.ProofTargetOrder:
		order, err := h.Store.OrderByID(c, proof.ReferenceID)
		if err != nil {
			return err
		}
		_, err = h.Store.SettleOrderPayment(c, ledger.SettleOrderParams{
			OrderID:          order.ID,
			GatewayReference: reference,
			AmountNaira:      order.Total,
			FeePercent:       h.Cfg.PlatformFeePercent,
		})
		return err
	case models.ProofTargetSubscription:
		_, err := h.Store.ActivateSubscription(c, ledger.ActivateSubscriptionParams{
			ShopID:           proof.ReferenceID,
			Plan:             h.Subscriptions.Plan,
			GatewayReference: reference,
			AmountNaira:      proof.Amount,
			Now:              time.Now(),
		})
		return err
	}
	return fmt.Errorf("unknown proof target kind %q", proof.PaymentType)
}
