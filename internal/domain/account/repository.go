package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for connected account persistence
type Repository interface {
	// FindByID finds a connected account by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ConnectedAccount, error)

	// FindByUserAndPlatform finds the single row for a (user, platform) pair
	FindByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform Platform) (*ConnectedAccount, error)

	// FindByPlatformShopID resolves the owning account for an inbound webhook
	// by the platform-specific shop/account identifier
	FindByPlatformShopID(ctx context.Context, platform Platform, shopID string) (*ConnectedAccount, error)

	// FindByUser finds all connections for a user
	FindByUser(ctx context.Context, userID uuid.UUID) ([]ConnectedAccount, error)

	// FindConnected finds all accounts in the connected state, optionally
	// filtered by platform (empty platform = all)
	FindConnected(ctx context.Context, platform Platform) ([]ConnectedAccount, error)

	// FindTokenExpiring finds connected accounts whose credential expires
	// within the given window
	FindTokenExpiring(ctx context.Context, platform Platform, within time.Duration) ([]ConnectedAccount, error)

	// Upsert creates or replaces the row for (user, platform). Uniqueness of
	// the pair is enforced by insert-on-conflict-update.
	Upsert(ctx context.Context, acct *ConnectedAccount) error

	// Save updates an existing account
	Save(ctx context.Context, acct *ConnectedAccount) error

	// UpdateStatus transitions the lifecycle status without touching credentials
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, lastError string) error

	// Delete removes the row; used only on full user account deletion
	Delete(ctx context.Context, id uuid.UUID) error
}
