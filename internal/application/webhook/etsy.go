package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// Header names on Etsy deliveries
const (
	EtsyEventIDHeader   = "X-Etsy-Event-Id"
	EtsyTimestampHeader = "X-Etsy-Timestamp"
	EtsySignatureHeader = "X-Etsy-Signature"
)

// etsyJobTypes maps Etsy event types to sync job types. Event types outside
// this table are acknowledged without producing work.
var etsyJobTypes = map[string]syncqueue.JobType{
	"receipt_created": syncqueue.JobTypeEtsyOrders,
	"receipt_updated": syncqueue.JobTypeEtsyOrders,
	"listing_updated": syncqueue.JobTypeEtsyListings,
	"shop_updated":    syncqueue.JobTypeEtsyShop,
}

// EtsyVerifier verifies timestamped-HMAC deliveries from Etsy and enqueues
// the matching incremental sync job.
type EtsyVerifier struct {
	signingKey  []byte
	tolerance   time.Duration
	accounts    account.Repository
	queue       Queue
	idempotency shared.IdempotencyStore
	idemTTL     time.Duration
	logger      *zap.Logger

	now func() time.Time
}

// NewEtsyVerifier creates the Etsy webhook verifier. The configured signing
// secret is decoded once here; a malformed secret fails construction.
func NewEtsyVerifier(cfg config.EtsyConfig, accounts account.Repository, queue Queue, idempotency shared.IdempotencyStore, idemCfg shared.IdempotencyConfig, logger *zap.Logger) (*EtsyVerifier, error) {
	key, err := decodeSigningSecret(cfg.WebhookSecret)
	if err != nil {
		return nil, err
	}
	return &EtsyVerifier{
		signingKey:  key,
		tolerance:   cfg.WebhookTolerance,
		accounts:    accounts,
		queue:       queue,
		idempotency: idempotency,
		idemTTL:     idemCfg.TTL,
		logger:      logger.Named("webhook.etsy"),
		now:         time.Now,
	}, nil
}

type etsyEvent struct {
	EventType string `json:"event_type"`
	ShopID    int64  `json:"shop_id"`
	// TotalPrice is present on receipt events, as a decimal string
	TotalPrice string `json:"total_price"`
}

// Handle verifies one delivery and enqueues the sync job it maps to. The
// body is raw request bytes; it is not parsed until the signature checks
// out.
func (v *EtsyVerifier) Handle(ctx context.Context, eventID, timestamp, signature string, body []byte) (Outcome, error) {
	if err := verifyTimestampedHMAC(v.signingKey, eventID, timestamp, signature, body, v.now(), v.tolerance); err != nil {
		v.logger.Warn("Etsy webhook rejected",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return "", err
	}

	fresh, err := v.idempotency.MarkProcessed(ctx, "etsy:"+eventID, v.idemTTL)
	if err != nil {
		// The store being down must not drop verified events; downstream
		// queue dedup keeps the duplicate benign.
		v.logger.Warn("Idempotency check unavailable", zap.Error(err))
	} else if !fresh {
		return OutcomeDuplicateDelivery, nil
	}

	var event etsyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", err
	}

	jobType, ok := etsyJobTypes[event.EventType]
	if !ok {
		v.logger.Debug("Unmapped Etsy event type", zap.String("event_type", event.EventType))
		return OutcomeIgnored, nil
	}

	acct, err := v.accounts.FindByPlatformShopID(ctx, account.PlatformEtsy, strconv.FormatInt(event.ShopID, 10))
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return OutcomeUnknownAccount, nil
		}
		return "", err
	}

	metadata := webhookMetadata(event.EventType, eventID)
	if total, ok := normalizeAmount(event.TotalPrice); ok {
		metadata["order_total"] = total
	}

	result, err := v.queue.Enqueue(ctx, acct.UserID, jobType, syncqueue.PriorityWebhook, metadata)
	if err != nil {
		return "", err
	}

	v.logger.Info("Etsy webhook processed",
		zap.String("event_id", eventID),
		zap.String("event_type", event.EventType),
		zap.String("job_type", jobType.String()),
		zap.String("result", string(result)),
	)
	return enqueueOutcome(result), nil
}
