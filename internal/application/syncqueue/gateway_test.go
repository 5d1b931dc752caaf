package syncqueue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/syncqueue"
)

type mockJobRepository struct {
	mock.Mock
}

func (m *mockJobRepository) Insert(ctx context.Context, job *syncqueue.SyncJob) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *mockJobRepository) ExistsQueued(ctx context.Context, userID uuid.UUID, jobType syncqueue.JobType) (bool, error) {
	args := m.Called(ctx, userID, jobType)
	return args.Bool(0), args.Error(1)
}

func (m *mockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncqueue.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncqueue.SyncJob), args.Error(1)
}

func (m *mockJobRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]syncqueue.SyncJob, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncqueue.SyncJob), args.Error(1)
}

func (m *mockJobRepository) CountByStatus(ctx context.Context, userID uuid.UUID, status syncqueue.Status) (int64, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).(int64), args.Error(1)
}

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

func (m *mockAccountRepository) FindByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform account.Platform) (*account.ConnectedAccount, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindByPlatformShopID(ctx context.Context, platform account.Platform, shopID string) (*account.ConnectedAccount, error) {
	args := m.Called(ctx, platform, shopID)
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

func (m *mockAccountRepository) FindConnected(ctx context.Context, platform account.Platform) ([]account.ConnectedAccount, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.ConnectedAccount), args.Error(1)
}

func (m *mockAccountRepository) FindTokenExpiring(ctx context.Context, platform account.Platform, within time.Duration) ([]account.ConnectedAccount, error) {
	args := m.Called(ctx, platform, within)
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

func newTestGateway(jobs *mockJobRepository, accounts *mockAccountRepository) *Gateway {
	return NewGateway(jobs, accounts, zap.NewNop())
}

func connectedAccount(t *testing.T, userID uuid.UUID, platform account.Platform) *account.ConnectedAccount {
	t.Helper()
	acct, err := account.NewConnectedAccount(userID, platform, "shop-1", "Shop")
	require.NoError(t, err)
	return acct
}

func TestEnqueue(t *testing.T) {
	t.Run("inserts when nothing queued", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		jobs.On("ExistsQueued", mock.Anything, userID, syncqueue.JobTypeEtsyOrders).Return(false, nil)
		jobs.On("Insert", mock.Anything, mock.MatchedBy(func(job *syncqueue.SyncJob) bool {
			return job.UserID == userID &&
				job.JobType == syncqueue.JobTypeEtsyOrders &&
				job.Priority == syncqueue.PriorityWebhook &&
				job.Status == syncqueue.StatusQueued &&
				job.Metadata["trigger"] == syncqueue.TriggerWebhook
		})).Return(true, nil)

		result, err := gateway.Enqueue(context.Background(), userID, syncqueue.JobTypeEtsyOrders,
			syncqueue.PriorityWebhook, map[string]string{"trigger": syncqueue.TriggerWebhook})

		require.NoError(t, err)
		assert.Equal(t, ResultInserted, result)
		jobs.AssertExpectations(t)
	})

	t.Run("deduplicates queued work", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		jobs.On("ExistsQueued", mock.Anything, userID, syncqueue.JobTypeEtsyOrders).Return(true, nil)

		result, err := gateway.Enqueue(context.Background(), userID, syncqueue.JobTypeEtsyOrders,
			syncqueue.PriorityWebhook, nil)

		require.NoError(t, err)
		assert.Equal(t, ResultDeduplicated, result)
		jobs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("reports dedup when a concurrent insert wins the race", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		// The read sees nothing queued, but by insert time another delivery
		// has landed an identical row and the insert is dropped.
		jobs.On("ExistsQueued", mock.Anything, userID, syncqueue.JobTypeEtsyOrders).Return(false, nil)
		jobs.On("Insert", mock.Anything, mock.Anything).Return(false, nil)

		result, err := gateway.Enqueue(context.Background(), userID, syncqueue.JobTypeEtsyOrders,
			syncqueue.PriorityWebhook, nil)

		require.NoError(t, err)
		assert.Equal(t, ResultDeduplicated, result)
	})

	t.Run("rejects unknown job type", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		jobs.On("ExistsQueued", mock.Anything, userID, syncqueue.JobType("bogus")).Return(false, nil)

		_, err := gateway.Enqueue(context.Background(), userID, "bogus", syncqueue.PriorityManual, nil)
		assert.ErrorIs(t, err, syncqueue.ErrInvalidJobType)
	})
}

func TestEnqueueInitial(t *testing.T) {
	t.Run("queues full backfill without dedup", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		jobs.On("Insert", mock.Anything, mock.MatchedBy(func(job *syncqueue.SyncJob) bool {
			return job.Priority == syncqueue.PriorityInitial &&
				job.Metadata["trigger"] == syncqueue.TriggerInitial
		})).Return(true, nil).Times(3)

		err := gateway.EnqueueInitial(context.Background(), userID, account.PlatformEtsy)

		require.NoError(t, err)
		jobs.AssertExpectations(t)
		jobs.AssertNotCalled(t, "ExistsQueued", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("finishes the batch when one job type is already queued", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))
		userID := uuid.New()

		// A periodic etsy_orders row is still queued from before the
		// reconnect; the rest of the backfill must land anyway.
		jobs.On("Insert", mock.Anything, mock.MatchedBy(func(job *syncqueue.SyncJob) bool {
			return job.JobType == syncqueue.JobTypeEtsyOrders
		})).Return(false, nil).Once()
		jobs.On("Insert", mock.Anything, mock.Anything).Return(true, nil).Times(2)

		err := gateway.EnqueueInitial(context.Background(), userID, account.PlatformEtsy)

		require.NoError(t, err)
		jobs.AssertExpectations(t)
	})

	t.Run("printify backfill has two job types", func(t *testing.T) {
		jobs := new(mockJobRepository)
		gateway := newTestGateway(jobs, new(mockAccountRepository))

		jobs.On("Insert", mock.Anything, mock.Anything).Return(true, nil).Times(2)

		require.NoError(t, gateway.EnqueueInitial(context.Background(), uuid.New(), account.PlatformPrintify))
		jobs.AssertExpectations(t)
	})
}

func TestTriggerManual(t *testing.T) {
	t.Run("single platform", func(t *testing.T) {
		jobs := new(mockJobRepository)
		accounts := new(mockAccountRepository)
		gateway := newTestGateway(jobs, accounts)
		userID := uuid.New()

		accounts.On("FindByUserAndPlatform", mock.Anything, userID, account.PlatformShopify).
			Return(connectedAccount(t, userID, account.PlatformShopify), nil)
		jobs.On("ExistsQueued", mock.Anything, userID, mock.Anything).Return(false, nil)
		jobs.On("Insert", mock.Anything, mock.MatchedBy(func(job *syncqueue.SyncJob) bool {
			return job.Priority == syncqueue.PriorityManual
		})).Return(true, nil)

		inserted, err := gateway.TriggerManual(context.Background(), userID, account.PlatformShopify)

		require.NoError(t, err)
		assert.Equal(t, 3, inserted)
	})

	t.Run("all connected platforms, disconnected skipped", func(t *testing.T) {
		jobs := new(mockJobRepository)
		accounts := new(mockAccountRepository)
		gateway := newTestGateway(jobs, accounts)
		userID := uuid.New()

		etsy := connectedAccount(t, userID, account.PlatformEtsy)
		printify := connectedAccount(t, userID, account.PlatformPrintify)
		printify.Disconnect()

		accounts.On("FindByUser", mock.Anything, userID).
			Return([]account.ConnectedAccount{*etsy, *printify}, nil)
		jobs.On("ExistsQueued", mock.Anything, userID, mock.Anything).Return(false, nil)
		jobs.On("Insert", mock.Anything, mock.Anything).Return(true, nil)

		inserted, err := gateway.TriggerManual(context.Background(), userID, "")

		require.NoError(t, err)
		// Only Etsy's three job types; the disconnected Printify contributes none.
		assert.Equal(t, 3, inserted)
	})

	t.Run("disconnected platform rejected explicitly", func(t *testing.T) {
		jobs := new(mockJobRepository)
		accounts := new(mockAccountRepository)
		gateway := newTestGateway(jobs, accounts)
		userID := uuid.New()

		acct := connectedAccount(t, userID, account.PlatformEtsy)
		acct.Disconnect()
		accounts.On("FindByUserAndPlatform", mock.Anything, userID, account.PlatformEtsy).Return(acct, nil)

		_, err := gateway.TriggerManual(context.Background(), userID, account.PlatformEtsy)
		assert.ErrorIs(t, err, account.ErrNotConnected)
	})
}

func TestEnqueuePeriodic(t *testing.T) {
	jobs := new(mockJobRepository)
	accounts := new(mockAccountRepository)
	gateway := newTestGateway(jobs, accounts)

	user1 := uuid.New()
	user2 := uuid.New()

	accounts.On("FindConnected", mock.Anything, account.Platform("")).Return([]account.ConnectedAccount{
		*connectedAccount(t, user1, account.PlatformEtsy),
		*connectedAccount(t, user2, account.PlatformPrintify),
	}, nil)

	// One of user1's etsy jobs is already queued and gets deduplicated.
	jobs.On("ExistsQueued", mock.Anything, user1, syncqueue.JobTypeEtsyOrders).Return(true, nil)
	jobs.On("ExistsQueued", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	jobs.On("Insert", mock.Anything, mock.MatchedBy(func(job *syncqueue.SyncJob) bool {
		return job.Priority == syncqueue.PriorityPeriodic &&
			job.Metadata["trigger"] == syncqueue.TriggerPeriodic
	})).Return(true, nil)

	inserted, err := gateway.EnqueuePeriodic(context.Background())

	require.NoError(t, err)
	// 3 etsy + 2 printify - 1 deduplicated = 4
	assert.Equal(t, 4, inserted)
}
