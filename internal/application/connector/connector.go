// Package connector implements the platform connection flows: OAuth with
// PKCE (Etsy), OAuth with signed callbacks (Shopify), and direct token
// validation (Printify). Each connector ends the same way: encrypted
// credentials upserted on the (user, platform) row, an initial sync batch
// queued, and webhook registration fired off in the background.
package connector

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
)

// Error codes surfaced to the frontend in the ?error= redirect parameter.
// These are a UI contract; renaming one breaks the frontend copy for it.
const (
	CodeMissingParams       = "missing_params"
	CodeInvalidState        = "invalid_state"
	CodeMissingVerifier     = "missing_verifier"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeInvalidHMAC         = "invalid_hmac"
	CodeStorageFailed       = "storage_failed"
	CodeUnexpected          = "unexpected"
)

var (
	ErrMissingParams   = shared.Classify(shared.ErrValidation, "connector: missing callback parameters")
	ErrInvalidState    = shared.Classify(shared.ErrStateMismatch, "connector: state mismatch")
	ErrMissingVerifier = shared.Classify(shared.ErrStateMismatch, "connector: missing code verifier")
	ErrInvalidHMAC     = shared.Classify(shared.ErrAuthentication, "connector: callback signature invalid")
	ErrStorageFailed   = shared.Classify(shared.ErrStorage, "connector: storing connection failed")
)

// ErrorCode maps a connector error to its frontend error code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingParams):
		return CodeMissingParams
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrMissingVerifier):
		return CodeMissingVerifier
	case errors.Is(err, ErrInvalidHMAC):
		return CodeInvalidHMAC
	case errors.Is(err, platform.ErrInvalidCredential), errors.Is(err, platform.ErrRequestFailed):
		return CodeTokenExchangeFailed
	case errors.Is(err, ErrStorageFailed):
		return CodeStorageFailed
	default:
		return CodeUnexpected
	}
}

// Vault is the credential encryption boundary the connectors depend on
type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// Queue is the slice of the sync queue gateway the connectors use
type Queue interface {
	EnqueueInitial(ctx context.Context, userID uuid.UUID, platform account.Platform) error
}

// spawnFunc runs fn detached from the caller's request lifecycle. The
// default implementation gives fn its own 30s deadline; tests substitute a
// synchronous spawn.
type spawnFunc func(fn func(ctx context.Context))

func defaultSpawn(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// newPKCEVerifier generates a 32-byte code verifier, base64url without
// padding per RFC 7636.
func newPKCEVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// pkceChallenge derives the S256 challenge for a verifier
func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// newStateToken generates an unguessable OAuth state value
func newStateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// newWebhookSecret mints a 32-byte hex webhook secret for platforms without
// shared signing keys.
func newWebhookSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Service holds the connection operations that do not depend on a specific
// platform flow.
type Service struct {
	accounts account.Repository
	logger   *zap.Logger
}

// NewService creates the platform-agnostic connection service
func NewService(accounts account.Repository, logger *zap.Logger) *Service {
	return &Service{accounts: accounts, logger: logger.Named("connector")}
}

// ListConnections returns every connection row for a user
func (s *Service) ListConnections(ctx context.Context, userID uuid.UUID) ([]account.ConnectedAccount, error) {
	return s.accounts.FindByUser(ctx, userID)
}

// Disconnect marks a connection disconnected. Credentials stay on the row
// so a reconnect can reuse the shop identity; they are overwritten on the
// next authorization.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID, p account.Platform) error {
	if !p.IsValid() {
		return account.ErrInvalidPlatform
	}
	acct, err := s.accounts.FindByUserAndPlatform(ctx, userID, p)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdateStatus(ctx, acct.ID, account.StatusDisconnected, ""); err != nil {
		return err
	}
	s.logger.Info("Platform disconnected",
		zap.String("user_id", userID.String()),
		zap.String("platform", p.String()),
	)
	return nil
}
