package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printbridge/printbridge/internal/core"
)

type ConfirmPaymentRequest struct {
	JobID     string `json:"job_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type PaymentHandler struct {
	manager *core.Manager
}

func NewPaymentHandler(manager *core.Manager) *PaymentHandler {
	return &PaymentHandler{manager: manager}
}

// ConfirmPayment runs the payment gate for a job. A valid signature
// transitions the job to paid and triggers dispatch; an invalid one is
// terminal. Replaying a confirmation for an already-paid job succeeds
// without re-dispatching.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	job, err := h.manager.ConfirmPayment(c.Request.Context(), req.JobID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		switch {
		case core.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "job not found"})
		case core.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, core.ErrSignatureMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "signature verification failed"})
		case core.IsInvalidState(err):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to confirm payment"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "job_id": job.ID})
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payments/confirm", h.ConfirmPayment)
}
