package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/finvault/affiliate/common/logger"
)

// WalletClient talks to the wallet service, which owns asset identity.
// The affiliate service only needs assetid -> symbol resolution when
// rendering reward rows.
type WalletClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger

	mu      sync.RWMutex
	symbols map[int64]string
}

// NewWalletClient creates a new wallet service client
func NewWalletClient(baseURL string, log *logger.Logger) *WalletClient {
	return &WalletClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		log:     log,
		symbols: make(map[int64]string),
	}
}

// AssetSymbol resolves an asset id to its display symbol. Symbols are
// immutable so successful lookups are cached for the process lifetime.
func (c *WalletClient) AssetSymbol(ctx context.Context, assetID int64) (string, error) {
	c.mu.RLock()
	symbol, ok := c.symbols[assetID]
	c.mu.RUnlock()
	if ok {
		return symbol, nil
	}

	url := fmt.Sprintf("%s/api/v1/assets/%d", c.baseURL, assetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build asset request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet service returned %d for asset %d", resp.StatusCode, assetID)
	}

	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode asset response: %w", err)
	}

	c.mu.Lock()
	c.symbols[assetID] = body.Symbol
	c.mu.Unlock()

	return body.Symbol, nil
}
