package connector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/domain/shared"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
)

// EtsyConnector drives the authorization-code + PKCE flow against Etsy and
// keeps Etsy credentials fresh afterwards.
type EtsyConnector struct {
	etsy     *platform.EtsyClient
	accounts account.Repository
	vault    Vault
	queue    Queue
	logger   *zap.Logger
	spawn    spawnFunc

	webhookCallbackURL string
}

// NewEtsyConnector creates the Etsy connector
func NewEtsyConnector(etsy *platform.EtsyClient, accounts account.Repository, vault Vault, queue Queue, webhookCallbackURL string, logger *zap.Logger) *EtsyConnector {
	return &EtsyConnector{
		etsy:               etsy,
		accounts:           accounts,
		vault:              vault,
		queue:              queue,
		logger:             logger.Named("connector.etsy"),
		spawn:              defaultSpawn,
		webhookCallbackURL: webhookCallbackURL,
	}
}

// AuthBegin is the output of BeginAuth: everything the handler needs to
// redirect the browser and set the state/verifier cookies.
type AuthBegin struct {
	AuthorizeURL string
	State        string
	CodeVerifier string
}

// BeginAuth generates the PKCE verifier and state and builds the consent
// URL. The verifier and state travel back via signed cookies; nothing is
// stored server-side.
func (c *EtsyConnector) BeginAuth(_ context.Context) (*AuthBegin, error) {
	verifier, err := newPKCEVerifier()
	if err != nil {
		return nil, err
	}
	state, err := newStateToken()
	if err != nil {
		return nil, err
	}

	return &AuthBegin{
		AuthorizeURL: c.etsy.BuildAuthorizeURL(state, pkceChallenge(verifier)),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// CompleteAuth finishes the flow after the callback's state has been
// checked by the handler: redeems the code, resolves the shop, encrypts the
// tokens, upserts the connection, queues the initial backfill, and
// registers webhooks in the background.
func (c *EtsyConnector) CompleteAuth(ctx context.Context, userID uuid.UUID, code, codeVerifier string) error {
	if code == "" {
		return ErrMissingParams
	}
	if codeVerifier == "" {
		return ErrMissingVerifier
	}

	token, err := c.etsy.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return err
	}

	shop, err := c.etsy.FetchShop(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	acct, err := account.NewConnectedAccount(userID, account.PlatformEtsy, shop.ShopID, shop.ShopName)
	if err != nil {
		return err
	}

	encryptedAccess, err := c.vault.Encrypt(token.AccessToken)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	encryptedRefresh, err := c.vault.Encrypt(token.RefreshToken)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	if err := acct.SetCredentials(encryptedAccess, encryptedRefresh, token.ExpiresAt); err != nil {
		return err
	}

	if err := c.accounts.Upsert(ctx, acct); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}

	if err := c.queue.EnqueueInitial(ctx, userID, account.PlatformEtsy); err != nil {
		// The connection is saved; a failed backfill enqueue is recoverable
		// via manual sync, so it doesn't fail the flow.
		c.logger.Error("Initial sync enqueue failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	// Webhook registration is best-effort and must not delay the redirect.
	accessToken := token.AccessToken
	shopID := shop.ShopID
	c.spawn(func(ctx context.Context) {
		if err := c.etsy.RegisterWebhooks(ctx, accessToken, shopID, c.webhookCallbackURL); err != nil {
			c.logger.Warn("Etsy webhook registration failed",
				zap.String("user_id", userID.String()),
				zap.String("shop_id", shopID),
				zap.Error(err),
			)
		}
	})

	c.logger.Info("Etsy connected",
		zap.String("user_id", userID.String()),
		zap.String("shop_id", shop.ShopID),
	)
	return nil
}

// RefreshExpiring refreshes every connected Etsy credential expiring within
// the window. A refusal from Etsy moves the account to token_expired; a
// credential that no longer decrypts moves it to error. Neither outcome is
// retried here.
func (c *EtsyConnector) RefreshExpiring(ctx context.Context, within time.Duration) error {
	accounts, err := c.accounts.FindTokenExpiring(ctx, account.PlatformEtsy, within)
	if err != nil {
		return err
	}

	for i := range accounts {
		acct := &accounts[i]
		if err := c.refreshOne(ctx, acct); err != nil {
			c.logger.Warn("Token refresh failed",
				zap.String("account_id", acct.ID.String()),
				zap.String("user_id", acct.UserID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *EtsyConnector) refreshOne(ctx context.Context, acct *account.ConnectedAccount) error {
	if acct.RefreshToken == "" {
		return account.ErrNoRefreshToken
	}

	refreshToken, err := c.vault.Decrypt(acct.RefreshToken)
	if err != nil {
		if errors.Is(err, shared.ErrIntegrity) {
			if updErr := c.accounts.UpdateStatus(ctx, acct.ID, account.StatusError, "stored credential failed integrity check"); updErr != nil {
				return updErr
			}
		}
		return err
	}

	token, err := c.etsy.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, platform.ErrRefreshRefused) {
			if updErr := c.accounts.UpdateStatus(ctx, acct.ID, account.StatusTokenExpired, "platform refused token refresh"); updErr != nil {
				return updErr
			}
		}
		return err
	}

	encryptedAccess, err := c.vault.Encrypt(token.AccessToken)
	if err != nil {
		return err
	}
	encryptedRefresh, err := c.vault.Encrypt(token.RefreshToken)
	if err != nil {
		return err
	}
	if err := acct.SetCredentials(encryptedAccess, encryptedRefresh, token.ExpiresAt); err != nil {
		return err
	}
	return c.accounts.Save(ctx, acct)
}
