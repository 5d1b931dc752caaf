package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/application/webhook"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
	"github.com/sellerpulse/backend/internal/infrastructure/logger"
	"github.com/sellerpulse/backend/internal/interfaces/http/dto"
)

// WebhookHandler receives platform webhook deliveries. These endpoints sit
// outside the JWT group; the verifiers authenticate each delivery by its
// platform's signing scheme. Senders retry on non-2xx, so only outcomes
// that a retry could fix return an error status.
type WebhookHandler struct {
	BaseHandler
	etsy     *webhook.EtsyVerifier
	shopify  *webhook.ShopifyVerifier
	printify *webhook.PrintifyVerifier
	maxBody  int64
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(etsy *webhook.EtsyVerifier, shopify *webhook.ShopifyVerifier, printify *webhook.PrintifyVerifier, httpCfg config.HTTPConfig) *WebhookHandler {
	return &WebhookHandler{
		etsy:     etsy,
		shopify:  shopify,
		printify: printify,
		maxBody:  httpCfg.MaxWebhookBody,
	}
}

// RegisterRoutes registers the webhook endpoints on a public group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	hooks := rg.Group("/webhooks")
	{
		hooks.POST("/etsy", h.Etsy)
		hooks.POST("/shopify", h.Shopify)
		hooks.POST("/printify", h.Printify)
	}
}

// Etsy receives timestamped-HMAC deliveries from Etsy
func (h *WebhookHandler) Etsy(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	outcome, err := h.etsy.Handle(c.Request.Context(),
		c.GetHeader(webhook.EtsyEventIDHeader),
		c.GetHeader(webhook.EtsyTimestampHeader),
		c.GetHeader(webhook.EtsySignatureHeader),
		body,
	)
	h.respond(c, outcome, err)
}

// Shopify receives whole-body-HMAC deliveries from Shopify
func (h *WebhookHandler) Shopify(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	outcome, err := h.shopify.Handle(c.Request.Context(),
		c.GetHeader(webhook.ShopifyTopicHeader),
		c.GetHeader(webhook.ShopifyDomainHeader),
		c.GetHeader(webhook.ShopifyWebhookIDHeader),
		c.GetHeader(webhook.ShopifyHmacHeader),
		body,
	)
	h.respond(c, outcome, err)
}

// Printify receives deliveries authenticated by the per-user URL secret
func (h *WebhookHandler) Printify(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	outcome, err := h.printify.Handle(c.Request.Context(),
		c.Query("uid"),
		c.Query("secret"),
		body,
	)
	h.respond(c, outcome, err)
}

// readBody reads the raw request body up to the configured limit. The raw
// bytes are needed because every scheme signs the exact payload.
func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return nil, false
	}
	if int64(len(body)) > h.maxBody {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Payload too large")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) respond(c *gin.Context, outcome webhook.Outcome, err error) {
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrMissingSignature),
			errors.Is(err, webhook.ErrStaleTimestamp),
			errors.Is(err, webhook.ErrSignatureMismatch):
			h.Error(c, http.StatusUnauthorized, dto.ErrCodeWebhookRejected, "Webhook verification failed")
		default:
			logger.FromGin(c).Error("Webhook processing failed", zap.Error(err))
			h.InternalError(c, "Webhook processing failed")
		}
		return
	}

	if outcome == webhook.OutcomeUnknownAccount {
		// Not-found acknowledgment: the integration does not exist, a
		// retry will not change that.
		h.NotFound(c, "No connection for this shop")
		return
	}
	h.Success(c, gin.H{"outcome": string(outcome)})
}
