package handler

import (
	"encoding/json"
	"net/http"

	"messmate/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BkashWebhookHandler is the gateway's callback entry point. The callback's
// own status claim is only used to pick an outcome; a success claim is
// re-verified against the gateway by the payment service before any state
// changes.
type BkashWebhookHandler struct {
	svc *service.PaymentService
	log *zap.Logger
}

func NewBkashWebhookHandler(svc *service.PaymentService, log *zap.Logger) *BkashWebhookHandler {
	return &BkashWebhookHandler{svc: svc, log: log}
}

func (h *BkashWebhookHandler) Handle(c *gin.Context) {
	paymentID := c.Query("paymentID")
	status := c.Query("status")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing paymentID"})
		return
	}
	h.log.Info("bkash callback received",
		zap.String("gateway_payment_id", paymentID),
		zap.String("status", status))

	outcome := service.OutcomeFailure
	if status == "success" {
		outcome = service.OutcomeSuccess
	}
	raw, _ := json.Marshal(map[string]string{
		"paymentID": paymentID,
		"status":    status,
	})

	res, err := h.svc.Reconcile(c.Request.Context(), paymentID, outcome, raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"status":   res.Status,
	})
}
