package connector

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/account"
	"github.com/sellerpulse/backend/internal/infrastructure/platform"
)

// ShopifyConnector drives the authorization-code flow against Shopify. The
// callback is authenticated by Shopify's query-string HMAC instead of PKCE,
// and the resulting access token is permanent.
type ShopifyConnector struct {
	shopify  *platform.ShopifyClient
	accounts account.Repository
	vault    Vault
	queue    Queue
	logger   *zap.Logger
	spawn    spawnFunc

	redirectURL        string
	webhookCallbackURL string
}

// NewShopifyConnector creates the Shopify connector
func NewShopifyConnector(shopify *platform.ShopifyClient, accounts account.Repository, vault Vault, queue Queue, redirectURL, webhookCallbackURL string, logger *zap.Logger) *ShopifyConnector {
	return &ShopifyConnector{
		shopify:            shopify,
		accounts:           accounts,
		vault:              vault,
		queue:              queue,
		logger:             logger.Named("connector.shopify"),
		spawn:              defaultSpawn,
		redirectURL:        redirectURL,
		webhookCallbackURL: webhookCallbackURL,
	}
}

// normalizeShopDomain validates and canonicalizes the merchant-entered shop
// domain: bare store names become <name>.myshopify.com and anything not
// under myshopify.com is rejected.
func normalizeShopDomain(input string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(input))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		return "", ErrMissingParams
	}
	if !strings.Contains(domain, ".") {
		domain += ".myshopify.com"
	}
	if !strings.HasSuffix(domain, ".myshopify.com") {
		return "", ErrMissingParams
	}
	if strings.ContainsAny(domain, "/?#@") {
		return "", ErrMissingParams
	}
	return domain, nil
}

// BeginAuth generates a state token and builds the install URL on the
// merchant's shop.
func (c *ShopifyConnector) BeginAuth(_ context.Context, shopDomain string) (*AuthBegin, error) {
	domain, err := normalizeShopDomain(shopDomain)
	if err != nil {
		return nil, err
	}
	state, err := newStateToken()
	if err != nil {
		return nil, err
	}

	return &AuthBegin{
		AuthorizeURL: c.shopify.BuildAuthorizeURL(domain, state, c.redirectURL),
		State:        state,
	}, nil
}

// CompleteAuth finishes the flow: verifies the callback HMAC over the full
// query before trusting any parameter, redeems the code, and persists the
// connection the same way every connector does.
func (c *ShopifyConnector) CompleteAuth(ctx context.Context, userID uuid.UUID, query url.Values) error {
	if !c.shopify.ValidateCallbackHMAC(query) {
		return ErrInvalidHMAC
	}

	code := query.Get("code")
	shopParam := query.Get("shop")
	if code == "" || shopParam == "" {
		return ErrMissingParams
	}
	shopDomain, err := normalizeShopDomain(shopParam)
	if err != nil {
		return err
	}

	token, err := c.shopify.ExchangeCode(ctx, shopDomain, code)
	if err != nil {
		return err
	}

	shop, err := c.shopify.FetchShop(ctx, shopDomain, token.AccessToken)
	if err != nil {
		return err
	}

	acct, err := account.NewConnectedAccount(userID, account.PlatformShopify, shop.ShopID, shop.ShopName)
	if err != nil {
		return err
	}

	encryptedAccess, err := c.vault.Encrypt(token.AccessToken)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	// Shopify tokens are permanent: no refresh token, no expiry.
	if err := acct.SetCredentials(encryptedAccess, "", nil); err != nil {
		return err
	}

	if err := c.accounts.Upsert(ctx, acct); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}

	if err := c.queue.EnqueueInitial(ctx, userID, account.PlatformShopify); err != nil {
		c.logger.Error("Initial sync enqueue failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	accessToken := token.AccessToken
	c.spawn(func(ctx context.Context) {
		if err := c.shopify.RegisterWebhooks(ctx, shopDomain, accessToken, c.webhookCallbackURL); err != nil {
			c.logger.Warn("Shopify webhook registration failed",
				zap.String("user_id", userID.String()),
				zap.String("shop_domain", shopDomain),
				zap.Error(err),
			)
		}
	})

	c.logger.Info("Shopify connected",
		zap.String("user_id", userID.String()),
		zap.String("shop_domain", shopDomain),
	)
	return nil
}
