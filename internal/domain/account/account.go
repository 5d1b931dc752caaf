package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// ConnectedAccount Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidUserID    = shared.Classify(shared.ErrValidation, "account: invalid user ID")
	ErrInvalidPlatform  = shared.Classify(shared.ErrValidation, "account: invalid platform code")
	ErrMissingShopID    = shared.Classify(shared.ErrValidation, "account: missing platform shop ID")
	ErrMissingToken     = shared.Classify(shared.ErrValidation, "account: missing encrypted access token")
	ErrNotConnected     = shared.Classify(shared.ErrValidation, "account: account is not connected")
	ErrAccountNotFound  = shared.Classify(shared.ErrNotFound, "account: connected account not found")
	ErrNoRefreshToken   = shared.Classify(shared.ErrIntegrity, "account: no refresh token stored")
	ErrInvalidLifecycle = shared.Classify(shared.ErrValidation, "account: invalid status transition")
)

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

// Platform identifies one of the supported commerce platforms
type Platform string

const (
	PlatformEtsy     Platform = "etsy"
	PlatformShopify  Platform = "shopify"
	PlatformPrintify Platform = "printify"
)

// IsValid returns true if the platform code is one of the fixed enumeration
func (p Platform) IsValid() bool {
	switch p {
	case PlatformEtsy, PlatformShopify, PlatformPrintify:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// AllPlatforms returns every supported platform code
func AllPlatforms() []Platform {
	return []Platform{PlatformEtsy, PlatformShopify, PlatformPrintify}
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status represents the lifecycle status of a connection
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
	StatusTokenExpired Status = "token_expired"
)

// IsValid returns true if the status is a known lifecycle state
func (s Status) IsValid() bool {
	switch s {
	case StatusConnected, StatusDisconnected, StatusError, StatusTokenExpired:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// ConnectedAccount
// ---------------------------------------------------------------------------

// ConnectedAccount is one row per (user, platform) pair. Credential fields
// hold vault-encrypted blobs, never plaintext; decryption happens only in
// the call scope that needs the secret for an outbound request.
type ConnectedAccount struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Platform Platform

	// External shop/account identity on the platform
	ShopID   string
	ShopName string

	Status Status

	// Vault-encrypted credentials
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time

	// Vault-encrypted per-user webhook secret (Printify only)
	WebhookSecret string

	// LegacyMetadata is a deprecated free-form JSON column. Older rows may
	// carry a plaintext webhook secret here; the verifier migrates it into
	// WebhookSecret on first use.
	LegacyMetadata string

	LastSyncAt *time.Time
	LastError  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConnectedAccount creates a connected account in the connected state.
// Called on first successful authorization; subsequent authorizations upsert
// over the existing (user, platform) row.
func NewConnectedAccount(userID uuid.UUID, platform Platform, shopID, shopName string) (*ConnectedAccount, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}
	if !platform.IsValid() {
		return nil, ErrInvalidPlatform
	}
	if shopID == "" {
		return nil, ErrMissingShopID
	}

	now := time.Now()
	return &ConnectedAccount{
		ID:        uuid.New(),
		UserID:    userID,
		Platform:  platform,
		ShopID:    shopID,
		ShopName:  shopName,
		Status:    StatusConnected,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetCredentials stores the vault-encrypted credential blobs
func (a *ConnectedAccount) SetCredentials(accessToken, refreshToken string, expiresAt *time.Time) error {
	if accessToken == "" {
		return ErrMissingToken
	}
	a.AccessToken = accessToken
	a.RefreshToken = refreshToken
	a.TokenExpiresAt = expiresAt
	a.UpdatedAt = time.Now()
	return nil
}

// SetWebhookSecret stores the vault-encrypted webhook secret
func (a *ConnectedAccount) SetWebhookSecret(encrypted string) {
	a.WebhookSecret = encrypted
	a.UpdatedAt = time.Now()
}

// IsConnected returns true when the connection is usable for sync
func (a *ConnectedAccount) IsConnected() bool {
	return a.Status == StatusConnected
}

// Reconnect marks the account connected again after a re-authorization
func (a *ConnectedAccount) Reconnect() {
	a.Status = StatusConnected
	a.LastError = ""
	a.UpdatedAt = time.Now()
}

// Disconnect marks the account disconnected, e.g. on a platform-initiated
// uninstall. Rows are never hard-deleted except on full account deletion.
func (a *ConnectedAccount) Disconnect() {
	a.Status = StatusDisconnected
	a.UpdatedAt = time.Now()
}

// MarkError records a failure that makes the connection unusable, such as a
// credential that no longer decrypts.
func (a *ConnectedAccount) MarkError(message string) {
	a.Status = StatusError
	a.LastError = message
	a.UpdatedAt = time.Now()
}

// MarkTokenExpired records an upstream refusal to refresh the credential
func (a *ConnectedAccount) MarkTokenExpired() {
	a.Status = StatusTokenExpired
	a.UpdatedAt = time.Now()
}

// RecordSyncSuccess stamps the last successful sync time
func (a *ConnectedAccount) RecordSyncSuccess(at time.Time) {
	a.LastSyncAt = &at
	a.LastError = ""
	a.UpdatedAt = time.Now()
}

// TokenExpiresWithin reports whether the credential expires within d.
// Accounts without an expiry (Shopify permanent tokens, Printify PATs)
// never expire.
func (a *ConnectedAccount) TokenExpiresWithin(d time.Duration) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return a.TokenExpiresAt.Before(time.Now().Add(d))
}
