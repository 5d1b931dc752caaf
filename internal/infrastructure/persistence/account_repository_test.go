package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sellerpulse/backend/internal/domain/account"
)

func newMockAccountRepository(t *testing.T) (*GormAccountRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormAccountRepository(gormDB), mock, mockDB
}

func accountRows(id, userID uuid.UUID, platform account.Platform, shopID string, status account.Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "platform", "shop_id", "shop_name", "status",
		"access_token", "refresh_token", "webhook_secret", "legacy_metadata",
		"last_error", "created_at", "updated_at",
	}).AddRow(
		id, userID, platform, shopID, "Test Shop", status,
		"encrypted-access", "encrypted-refresh", "", "{}",
		"", now, now,
	)
}

func TestGormAccountRepository_FindByUserAndPlatform(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		userID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE user_id = \$1 AND platform = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(userID, account.PlatformEtsy, 1).
			WillReturnRows(accountRows(accountID, userID, account.PlatformEtsy, "shop-123", account.StatusConnected))

		acct, err := repo.FindByUserAndPlatform(context.Background(), userID, account.PlatformEtsy)

		assert.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, accountID, acct.ID)
		assert.Equal(t, "shop-123", acct.ShopID)
		assert.Equal(t, "encrypted-access", acct.AccessToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns domain error when missing", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		userID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE user_id = \$1 AND platform = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(userID, account.PlatformShopify, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		acct, err := repo.FindByUserAndPlatform(context.Background(), userID, account.PlatformShopify)

		assert.Nil(t, acct)
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByPlatformShopID(t *testing.T) {
	t.Run("resolves webhook owner", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		userID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE platform = \$1 AND shop_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(account.PlatformShopify, "acme.myshopify.com", 1).
			WillReturnRows(accountRows(accountID, userID, account.PlatformShopify, "acme.myshopify.com", account.StatusConnected))

		acct, err := repo.FindByPlatformShopID(context.Background(), account.PlatformShopify, "acme.myshopify.com")

		assert.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, userID, acct.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns domain error for unknown shop", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE platform = \$1 AND shop_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(account.PlatformEtsy, "unknown", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		acct, err := repo.FindByPlatformShopID(context.Background(), account.PlatformEtsy, "unknown")

		assert.Nil(t, acct)
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindConnected(t *testing.T) {
	t.Run("filters by platform when given", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE status = \$1 AND platform = \$2`).
			WithArgs(account.StatusConnected, account.PlatformEtsy).
			WillReturnRows(accountRows(uuid.New(), uuid.New(), account.PlatformEtsy, "shop-1", account.StatusConnected))

		accounts, err := repo.FindConnected(context.Background(), account.PlatformEtsy)

		assert.NoError(t, err)
		assert.Len(t, accounts, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty platform returns all connected", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "connected_accounts" WHERE status = \$1`).
			WithArgs(account.StatusConnected).
			WillReturnRows(accountRows(uuid.New(), uuid.New(), account.PlatformPrintify, "shop-9", account.StatusConnected))

		accounts, err := repo.FindConnected(context.Background(), "")

		assert.NoError(t, err)
		assert.Len(t, accounts, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Upsert(t *testing.T) {
	t.Run("inserts with on-conflict update", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		acct, err := account.NewConnectedAccount(uuid.New(), account.PlatformEtsy, "shop-123", "Test Shop")
		require.NoError(t, err)
		require.NoError(t, acct.SetCredentials("encrypted-access", "encrypted-refresh", nil))

		mock.ExpectExec(`INSERT INTO "connected_accounts" .* ON CONFLICT \("user_id","platform"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = repo.Upsert(context.Background(), acct)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_UpdateStatus(t *testing.T) {
	t.Run("updates status fields", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()

		mock.ExpectExec(`UPDATE "connected_accounts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), accountID, account.StatusTokenExpired, "refresh refused")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns domain error when row is missing", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "connected_accounts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), uuid.New(), account.StatusDisconnected, "")

		assert.ErrorIs(t, err, account.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Delete(t *testing.T) {
	t.Run("deletes existing row", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`DELETE FROM "connected_accounts" WHERE id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), uuid.New()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns domain error when row is missing", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`DELETE FROM "connected_accounts" WHERE id = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), account.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
