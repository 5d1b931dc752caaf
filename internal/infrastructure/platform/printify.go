package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// PrintifyClient talks to the Printify API. Printify has no OAuth flow; the
// user supplies a personal access token which is validated by listing the
// shops it grants access to.
type PrintifyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPrintifyClient creates a Printify API client
func NewPrintifyClient(cfg config.PrintifyConfig) *PrintifyClient {
	return &PrintifyClient{
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// ListShops validates a personal access token by listing its shops. Any
// non-2xx response means the token is unusable, not just 401: Printify
// returns 400 for malformed tokens.
func (c *PrintifyClient) ListShops(ctx context.Context, token string) ([]ShopInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/shops.json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, wrapped: ErrInvalidCredential}
	}

	var shops []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(body, &shops); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRequestFailed, err)
	}

	infos := make([]ShopInfo, len(shops))
	for i, s := range shops {
		infos[i] = ShopInfo{
			ShopID:   strconv.FormatInt(s.ID, 10),
			ShopName: s.Title,
		}
	}
	return infos, nil
}

// RegisterWebhooks subscribes the per-user callback URL to order and
// product events. The callback URL already carries the uid and secret
// query parameters that authenticate deliveries.
func (c *PrintifyClient) RegisterWebhooks(ctx context.Context, token, shopID, callbackURL string) error {
	topics := []string{"order:created", "order:updated", "product:publish:started"}

	for _, topic := range topics {
		payload, err := json.Marshal(map[string]string{
			"topic": topic,
			"url":   callbackURL,
		})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/shops/"+shopID+"/webhooks.json", strings.NewReader(string(payload)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: subscribing %s: %v", ErrRequestFailed, topic, err)
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{status: resp.StatusCode, wrapped: ErrRequestFailed}
		}
	}
	return nil
}
