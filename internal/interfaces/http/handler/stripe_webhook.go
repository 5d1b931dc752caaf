package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/application/billing"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
	"github.com/sellerpulse/backend/internal/infrastructure/logger"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
)

// StripeWebhookHandler receives billing events from Stripe
type StripeWebhookHandler struct {
	BaseHandler
	service *billing.StripeWebhookService
	maxBody int64
}

// NewStripeWebhookHandler creates the Stripe webhook handler
func NewStripeWebhookHandler(service *billing.StripeWebhookService, httpCfg config.HTTPConfig) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		service: service,
		maxBody: httpCfg.MaxWebhookBody,
	}
}

// RegisterRoutes registers the Stripe endpoint on a public group
func (h *StripeWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.Handle)
}

// Handle verifies and applies a Stripe event. Stripe retries any non-2xx
// response, so handler errors surface as 400 only when a retry with the
// same payload could never succeed.
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}
	if int64(len(body)) > h.maxBody {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Payload too large")
		return
	}

	result, err := h.service.ProcessWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if result == nil {
			// Signature never verified; the payload is not from Stripe.
			h.Error(c, http.StatusBadRequest, dto.ErrCodeWebhookRejected, "Webhook verification failed")
			return
		}
		logger.FromGin(c).Error("Stripe webhook processing failed",
			zap.String("event_id", result.EventID),
			zap.Error(err))
		h.InternalError(c, "Webhook processing failed")
		return
	}
	h.Success(c, result)
}
