package webhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	appqueue "github.com/sellerpulse/backend/internal/application/syncqueue"
	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.ConnectedAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByUserAndPlatform(ctx context.Context, userID uuid.UUID, p account.Platform) (*account.ConnectedAccount, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByPlatformShopID(ctx context.Context, p account.Platform, shopID string) (*account.ConnectedAccount, error) {
	args := m.Called(ctx, p, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]account.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindConnected(ctx context.Context, p account.Platform) ([]account.ConnectedAccount, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindTokenExpiring(ctx context.Context, p account.Platform, within time.Duration) ([]account.ConnectedAccount, error) {
	args := m.Called(ctx, p, within)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) Upsert(ctx context.Context, acct *account.ConnectedAccount) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *mockAccountRepository) Save(ctx context.Context, acct *account.ConnectedAccount) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *mockAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status account.Status, lastError string) error {
	args := m.Called(ctx, id, status, lastError)
	return args.Error(0)
}

func (m *mockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, userID uuid.UUID, jobType syncqueue.JobType, priority int, metadata map[string]string) (appqueue.EnqueueResult, error) {
	args := m.Called(ctx, userID, jobType, priority, metadata)
	return args.Get(0).(appqueue.EnqueueResult), args.Error(1)
}

// fakeVault marks ciphertext with a prefix instead of encrypting, so tests
// can assert on stored values directly.
type fakeVault struct{}

func (fakeVault) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeVault) Decrypt(blob string) (string, error) {
	plaintext, ok := strings.CutPrefix(blob, "enc:")
	if !ok {
		return "", shared.ErrIntegrity
	}
	return plaintext, nil
}

// fakeIdempotencyStore remembers marked event ids for the test's lifetime
type fakeIdempotencyStore struct {
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: map[string]bool{}}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	return s.seen[eventID], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }
