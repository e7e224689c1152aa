package handler

import (
	"net/http"
	"time"

	"messmate/config"
	"messmate/internal/middleware"
	"messmate/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc  *service.PaymentService
	poll config.PaymentConfig
}

func NewPaymentHandler(svc *service.PaymentService, poll config.PaymentConfig) *PaymentHandler {
	return &PaymentHandler{svc: svc, poll: poll}
}

type CreatePaymentRequest struct {
	RoomID uint    `json:"room_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}

func (h *PaymentHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Initiate(c.Request.Context(), userID, req.RoomID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"payment_id": res.GatewayPaymentID,
		"bkash_url":  res.BkashURL,
	})
}

type ExecutePaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

func (h *PaymentHandler) Execute(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req ExecutePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Execute(c.Request.Context(), userID, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  res.Status,
		"trx_id":  res.TrxID,
	})
}

func (h *PaymentHandler) Status(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if invoiceID := c.Query("invoiceId"); invoiceID != "" {
		res, err := h.svc.StatusByInvoice(c.Request.Context(), userID, invoiceID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId or invoiceId is required"})
		return
	}
	res, err := h.svc.Status(c.Request.Context(), userID, paymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Await blocks until the payment reaches a terminal state or the poll budget
// runs out, in which case the outcome is GATEWAY_TIMEOUT and the payment is
// left untouched for a later callback.
func (h *PaymentHandler) Await(c *gin.Context) {
	userID := middleware.GetUserID(c)
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentId is required"})
		return
	}
	outcome, err := h.svc.AwaitOutcome(c.Request.Context(), userID, paymentID, h.poll.PollInterval, h.poll.PollMaxAttempts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id": paymentID,
		"outcome":    outcome,
	})
}

func (h *PaymentHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	roomID, ok := roomIDQuery(c)
	if !ok {
		return
	}
	start, end := service.CurrentMonthRange(time.Now())
	start, end, err := parseDateRange(c, start, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format (use YYYY-MM-DD)"})
		return
	}
	payments, err := h.svc.History(userID, roomID, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
