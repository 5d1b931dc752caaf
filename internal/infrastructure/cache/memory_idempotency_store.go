package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

// MemoryIdempotencyStore is a process-local replay suppressor for
// single-instance deployments and tests.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryIdempotencyStore creates an in-memory store with a background
// sweep that evicts expired entries every minute.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryIdempotencyStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, expiry := range s.entries {
				if now.After(expiry) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// MarkProcessed records an event ID. Returns true if the ID is new.
func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.entries[eventID]; ok && now.Before(expiry) {
		return false, nil
	}
	s.entries[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether an event ID is recorded and unexpired
func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[eventID]
	return ok && time.Now().Before(expiry), nil
}

// Close stops the background sweep
func (s *MemoryIdempotencyStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

var _ shared.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
