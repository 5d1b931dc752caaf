package cache

import (
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// NewIdempotencyStore returns a Redis-backed store when Redis is enabled,
// falling back to the in-memory store otherwise.
func NewIdempotencyStore(cfg config.RedisConfig) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		return NewMemoryIdempotencyStore(), nil
	}
	return NewRedisIdempotencyStore(cfg)
}
