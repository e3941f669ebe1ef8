package handler

import (
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"
	"github.com/TrulyGourav/OrchexPay/pkg/apperror"
	"github.com/TrulyGourav/OrchexPay/pkg/money"
	"github.com/TrulyGourav/OrchexPay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookHandler serves the inbound webhook endpoints: payment capture, order
// completion and the bank's payout verdict. Delivery is at-least-once, so
// every handler tolerates replays.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
	log        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc, log: log}
}

// PaymentSucceeded handles POST /api/v1/webhooks/payment-success.
func (h *WebhookHandler) PaymentSucceeded(c *gin.Context) {
	var req PaymentSucceededRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	order, err := h.webhookSvc.PaymentSucceeded(c.Request.Context(), ports.PaymentSucceededRequest{
		MerchantID: uuid.MustParse(req.MerchantID),
		VendorID:   uuid.MustParse(req.VendorID),
		OrderID:    req.OrderID,
		Amount:     amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toPendingOrderResponse(order))
}

// OrderCompleted handles POST /api/v1/webhooks/order-complete.
func (h *WebhookHandler) OrderCompleted(c *gin.Context) {
	var req OrderCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.webhookSvc.OrderCompleted(c.Request.Context(), ports.OrderCompletedRequest{
		MerchantID: uuid.MustParse(req.MerchantID),
		OrderID:    req.OrderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, OrderSplitResponse{
		Order:          toPendingOrderResponse(result.Order),
		VendorAmount:   result.VendorAmount.StringAmount(),
		PlatformAmount: result.PlatformAmount.StringAmount(),
		Reused:         result.Reused,
	})
}

// BankOutcome handles POST /api/v1/webhooks/bank-outcome.
func (h *WebhookHandler) BankOutcome(c *gin.Context) {
	var req BankOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payout, err := h.webhookSvc.BankOutcome(c.Request.Context(), ports.BankOutcomeRequest{
		PayoutID:       uuid.MustParse(req.PayoutID),
		Success:        *req.Success,
		IdempotencyKey: req.PayoutID + "-bank-outcome",
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPayoutResponse(payout))
}
