package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed webhook event IDs so that redelivered
// events are acknowledged without producing duplicate work.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// IdempotencyConfig holds configuration for webhook replay suppression
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed event IDs. After this duration
	// the same event ID would be processed again; downstream dedup in the
	// job queue keeps that benign.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
