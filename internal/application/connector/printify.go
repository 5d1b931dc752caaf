package connector

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
)

// PrintifyConnector connects Printify accounts. There is no OAuth flow: the
// user pastes a personal access token, which is validated by calling the
// API, and a per-user webhook secret is minted since Printify has no shared
// signing key.
type PrintifyConnector struct {
	printify *platform.PrintifyClient
	accounts account.Repository
	vault    Vault
	queue    Queue
	logger   *zap.Logger
	spawn    spawnFunc

	webhookCallbackURL string
}

// NewPrintifyConnector creates the Printify connector
func NewPrintifyConnector(printify *platform.PrintifyClient, accounts account.Repository, vault Vault, queue Queue, webhookCallbackURL string, logger *zap.Logger) *PrintifyConnector {
	return &PrintifyConnector{
		printify:           printify,
		accounts:           accounts,
		vault:              vault,
		queue:              queue,
		logger:             logger.Named("connector.printify"),
		spawn:              defaultSpawn,
		webhookCallbackURL: webhookCallbackURL,
	}
}

// Connect validates the personal access token, mints the per-user webhook
// secret, and persists the connection. Returns the connected shop identity
// for the response body.
func (c *PrintifyConnector) Connect(ctx context.Context, userID uuid.UUID, personalAccessToken string) (*platform.ShopInfo, error) {
	if personalAccessToken == "" {
		return nil, ErrMissingParams
	}

	shops, err := c.printify.ListShops(ctx, personalAccessToken)
	if err != nil {
		return nil, err
	}
	if len(shops) == 0 {
		return nil, platform.ErrInvalidCredential
	}
	shop := shops[0]

	acct, err := account.NewConnectedAccount(userID, account.PlatformPrintify, shop.ShopID, shop.ShopName)
	if err != nil {
		return nil, err
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}

	encryptedToken, err := c.vault.Encrypt(personalAccessToken)
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	encryptedSecret, err := c.vault.Encrypt(secret)
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}

	// Printify PATs never expire.
	if err := acct.SetCredentials(encryptedToken, "", nil); err != nil {
		return nil, err
	}
	acct.SetWebhookSecret(encryptedSecret)

	if err := c.accounts.Upsert(ctx, acct); err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}

	if err := c.queue.EnqueueInitial(ctx, userID, account.PlatformPrintify); err != nil {
		c.logger.Error("Initial sync enqueue failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	callbackURL := c.callbackURL(userID, secret)
	token := personalAccessToken
	shopID := shop.ShopID
	c.spawn(func(ctx context.Context) {
		if err := c.printify.RegisterWebhooks(ctx, token, shopID, callbackURL); err != nil {
			c.logger.Warn("Printify webhook registration failed",
				zap.String("user_id", userID.String()),
				zap.String("shop_id", shopID),
				zap.Error(err),
			)
		}
	})

	c.logger.Info("Printify connected",
		zap.String("user_id", userID.String()),
		zap.String("shop_id", shop.ShopID),
	)
	return &shop, nil
}

// callbackURL builds the per-user webhook URL carrying the uid and the
// plaintext secret Printify will echo back on every delivery.
func (c *PrintifyConnector) callbackURL(userID uuid.UUID, secret string) string {
	q := url.Values{}
	q.Set("uid", userID.String())
	q.Set("secret", secret)
	return c.webhookCallbackURL + "?" + q.Encode()
}
