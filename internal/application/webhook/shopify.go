package webhook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// Header names on Shopify deliveries
const (
	ShopifyHmacHeader      = "X-Shopify-Hmac-Sha256"
	ShopifyTopicHeader     = "X-Shopify-Topic"
	ShopifyDomainHeader    = "X-Shopify-Shop-Domain"
	ShopifyWebhookIDHeader = "X-Shopify-Webhook-Id"
)

const shopifyUninstallTopic = "app/uninstalled"

var shopifyJobTypes = map[string]syncqueue.JobType{
	"orders/create":    syncqueue.JobTypeShopifyOrders,
	"orders/updated":   syncqueue.JobTypeShopifyOrders,
	"products/update":  syncqueue.JobTypeShopifyProducts,
	"customers/update": syncqueue.JobTypeShopifyCustomers,
}

// ShopifyVerifier verifies whole-body HMAC deliveries from Shopify. The
// event type and owning shop come from headers, so the body is never parsed
// here at all; the sync worker re-fetches the resource anyway.
type ShopifyVerifier struct {
	apiSecret   string
	accounts    account.Repository
	queue       Queue
	idempotency shared.IdempotencyStore
	idemTTL     time.Duration
	logger      *zap.Logger
}

// NewShopifyVerifier creates the Shopify webhook verifier
func NewShopifyVerifier(cfg config.ShopifyConfig, accounts account.Repository, queue Queue, idempotency shared.IdempotencyStore, idemCfg shared.IdempotencyConfig, logger *zap.Logger) *ShopifyVerifier {
	return &ShopifyVerifier{
		apiSecret:   cfg.APISecret,
		accounts:    accounts,
		queue:       queue,
		idempotency: idempotency,
		idemTTL:     idemCfg.TTL,
		logger:      logger.Named("webhook.shopify"),
	}
}

// Handle verifies one delivery. The app/uninstalled topic tears the
// connection down instead of enqueueing work; every other mapped topic
// produces an incremental sync job.
func (v *ShopifyVerifier) Handle(ctx context.Context, topic, shopDomain, webhookID, signature string, body []byte) (Outcome, error) {
	if err := verifyBodyHMAC(v.apiSecret, body, signature); err != nil {
		v.logger.Warn("Shopify webhook rejected",
			zap.String("topic", topic),
			zap.String("shop_domain", shopDomain),
			zap.Error(err),
		)
		return "", err
	}

	if webhookID != "" {
		fresh, err := v.idempotency.MarkProcessed(ctx, "shopify:"+webhookID, v.idemTTL)
		if err != nil {
			v.logger.Warn("Idempotency check unavailable", zap.Error(err))
		} else if !fresh {
			return OutcomeDuplicateDelivery, nil
		}
	}

	acct, err := v.accounts.FindByPlatformShopID(ctx, account.PlatformShopify, shopDomain)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return OutcomeUnknownAccount, nil
		}
		return "", err
	}

	if topic == shopifyUninstallTopic {
		acct.Disconnect()
		if err := v.accounts.Save(ctx, acct); err != nil {
			return "", err
		}
		v.logger.Info("Shopify app uninstalled",
			zap.String("shop_domain", shopDomain),
			zap.String("user_id", acct.UserID.String()),
		)
		return OutcomeDisconnected, nil
	}

	jobType, ok := shopifyJobTypes[topic]
	if !ok {
		v.logger.Debug("Unmapped Shopify topic", zap.String("topic", topic))
		return OutcomeIgnored, nil
	}

	result, err := v.queue.Enqueue(ctx, acct.UserID, jobType, syncqueue.PriorityWebhook, webhookMetadata(topic, webhookID))
	if err != nil {
		return "", err
	}

	v.logger.Info("Shopify webhook processed",
		zap.String("topic", topic),
		zap.String("shop_domain", shopDomain),
		zap.String("job_type", jobType.String()),
		zap.String("result", string(result)),
	)
	return enqueueOutcome(result), nil
}
