package webhook

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

var printifyJobTypes = map[string]syncqueue.JobType{
	"order:created":           syncqueue.JobTypePrintifyOrders,
	"order:updated":           syncqueue.JobTypePrintifyOrders,
	"product:publish:started": syncqueue.JobTypePrintifyProducts,
}

// PrintifyVerifier authenticates deliveries by the per-user secret embedded
// in the callback URL at registration time. The stored secret is
// vault-encrypted; rows written before encryption was introduced carry it in
// plaintext in the deprecated metadata column and are migrated forward on
// the first verified delivery.
type PrintifyVerifier struct {
	accounts    account.Repository
	vault       Vault
	queue       Queue
	idempotency shared.IdempotencyStore
	idemTTL     time.Duration
	logger      *zap.Logger
}

// NewPrintifyVerifier creates the Printify webhook verifier
func NewPrintifyVerifier(accounts account.Repository, vault Vault, queue Queue, idempotency shared.IdempotencyStore, idemCfg shared.IdempotencyConfig, logger *zap.Logger) *PrintifyVerifier {
	return &PrintifyVerifier{
		accounts:    accounts,
		vault:       vault,
		queue:       queue,
		idempotency: idempotency,
		idemTTL:     idemCfg.TTL,
		logger:      logger.Named("webhook.printify"),
	}
}

type printifyEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// legacyMetadata is the shape of the deprecated metadata column as far as
// this verifier cares: older rows stored the webhook secret there in
// plaintext.
type legacyMetadata struct {
	WebhookSecret string `json:"webhook_secret"`
}

// Handle verifies one delivery against the stored per-user secret. uid and
// secret come from the callback URL query string.
func (v *PrintifyVerifier) Handle(ctx context.Context, uid, secret string, body []byte) (Outcome, error) {
	if uid == "" || secret == "" {
		return "", ErrMissingSignature
	}
	userID, err := uuid.Parse(uid)
	if err != nil {
		return "", ErrMissingSignature
	}

	acct, err := v.accounts.FindByUserAndPlatform(ctx, userID, account.PlatformPrintify)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return OutcomeUnknownAccount, nil
		}
		return "", err
	}

	if err := v.verifySecret(ctx, acct, secret); err != nil {
		v.logger.Warn("Printify webhook rejected",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return "", err
	}

	var event printifyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", err
	}

	if event.ID != "" {
		fresh, err := v.idempotency.MarkProcessed(ctx, "printify:"+event.ID, v.idemTTL)
		if err != nil {
			v.logger.Warn("Idempotency check unavailable", zap.Error(err))
		} else if !fresh {
			return OutcomeDuplicateDelivery, nil
		}
	}

	jobType, ok := printifyJobTypes[event.Type]
	if !ok {
		v.logger.Debug("Unmapped Printify event type", zap.String("event_type", event.Type))
		return OutcomeIgnored, nil
	}

	result, err := v.queue.Enqueue(ctx, acct.UserID, jobType, syncqueue.PriorityWebhook, webhookMetadata(event.Type, event.ID))
	if err != nil {
		return "", err
	}

	v.logger.Info("Printify webhook processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("job_type", jobType.String()),
		zap.String("result", string(result)),
	)
	return enqueueOutcome(result), nil
}

// verifySecret compares the presented secret against the stored one. The
// encrypted column wins when present; otherwise the legacy plaintext value
// is checked and, on a match, encrypted into its permanent home so the
// plaintext path is only ever taken once per row.
func (v *PrintifyVerifier) verifySecret(ctx context.Context, acct *account.ConnectedAccount, presented string) error {
	if acct.WebhookSecret != "" {
		stored, err := v.vault.Decrypt(acct.WebhookSecret)
		if err != nil {
			// A blob that fails integrity cannot be recovered by a retry.
			v.logger.Error("Stored webhook secret failed integrity check",
				zap.String("account_id", acct.ID.String()),
				zap.Error(err),
			)
			return ErrSignatureMismatch
		}
		if !hmac.Equal([]byte(presented), []byte(stored)) {
			return ErrSignatureMismatch
		}
		return nil
	}

	if acct.LegacyMetadata == "" {
		return ErrSignatureMismatch
	}
	var legacy legacyMetadata
	if err := json.Unmarshal([]byte(acct.LegacyMetadata), &legacy); err != nil || legacy.WebhookSecret == "" {
		return ErrSignatureMismatch
	}
	if !hmac.Equal([]byte(presented), []byte(legacy.WebhookSecret)) {
		return ErrSignatureMismatch
	}

	v.migrateLegacySecret(ctx, acct, legacy.WebhookSecret)
	return nil
}

// migrateLegacySecret encrypts a verified plaintext secret into the
// encrypted column. Best-effort: a failed migration leaves the row on the
// legacy path for the next delivery.
func (v *PrintifyVerifier) migrateLegacySecret(ctx context.Context, acct *account.ConnectedAccount, secret string) {
	encrypted, err := v.vault.Encrypt(secret)
	if err != nil {
		v.logger.Warn("Webhook secret migration failed to encrypt",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err),
		)
		return
	}
	acct.SetWebhookSecret(encrypted)
	if err := v.accounts.Save(ctx, acct); err != nil {
		v.logger.Warn("Webhook secret migration failed to save",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err),
		)
		return
	}
	v.logger.Info("Legacy webhook secret migrated",
		zap.String("account_id", acct.ID.String()),
	)
}
