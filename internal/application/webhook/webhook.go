// Package webhook verifies inbound platform webhooks and turns them into
// sync jobs. Each sender signs deliveries differently: Etsy uses a
// timestamped HMAC under a shared secret, Shopify signs the whole body with
// the app API secret, and Printify echoes a per-user secret embedded in the
// callback URL. Verification always happens on the raw body before any
// parsing; a failed check produces no writes.
package webhook

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appqueue "github.com/sellerpulse/backend/internal/application/syncqueue"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

// Verification failures. Handlers map all of these to an authentication
// failure response; the distinction is for logs only.
var (
	ErrMissingSignature  = shared.Classify(shared.ErrAuthentication, "webhook: missing signature material")
	ErrStaleTimestamp    = shared.Classify(shared.ErrAuthentication, "webhook: timestamp outside tolerance")
	ErrSignatureMismatch = shared.Classify(shared.ErrAuthentication, "webhook: signature mismatch")
)

// Outcome describes what a verified delivery produced
type Outcome string

const (
	// OutcomeEnqueued means a sync job was created for the event
	OutcomeEnqueued Outcome = "enqueued"
	// OutcomeDeduplicated means an identical job was already queued
	OutcomeDeduplicated Outcome = "deduplicated"
	// OutcomeDuplicateDelivery means the event id was already processed
	OutcomeDuplicateDelivery Outcome = "duplicate_delivery"
	// OutcomeIgnored means the event type has no job mapping
	OutcomeIgnored Outcome = "ignored"
	// OutcomeUnknownAccount means no connection matches the event's shop.
	// Senders get a not-found acknowledgment, not an error.
	OutcomeUnknownAccount Outcome = "unknown_account"
	// OutcomeDisconnected means the event tore the connection down
	OutcomeDisconnected Outcome = "disconnected"
)

// Queue is the slice of the sync queue gateway the verifiers use
type Queue interface {
	Enqueue(ctx context.Context, userID uuid.UUID, jobType syncqueue.JobType, priority int, metadata map[string]string) (appqueue.EnqueueResult, error)
}

// Vault decrypts the stored per-user webhook secret
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// enqueueOutcome translates a gateway result into a delivery outcome
func enqueueOutcome(result appqueue.EnqueueResult) Outcome {
	if result == appqueue.ResultDeduplicated {
		return OutcomeDeduplicated
	}
	return OutcomeEnqueued
}

// normalizeAmount canonicalizes a platform-supplied money string for job
// metadata. Platforms disagree on formatting ("12.50", "12.5", " 12.50 ");
// a value that does not parse is omitted rather than failing the delivery.
func normalizeAmount(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return amount.String(), true
}

// webhookMetadata builds the job metadata for an event-triggered sync
func webhookMetadata(eventType, eventID string) map[string]string {
	return map[string]string{
		"trigger":    syncqueue.TriggerWebhook,
		"event_type": eventType,
		"event_id":   eventID,
	}
}
