package tonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tonkeeper/tongo/ton"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNotInCollection = errors.New("item does not belong to collection")
	ErrNotRawAddress   = errors.New("item address is not in raw form")
)

// Client is a TonAPI HTTP client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// Rate limiting
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewClient creates a new TonAPI client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		minDelay: 250 * time.Millisecond, // ~4 RPS
	}
}

func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastCall)
	if elapsed < c.minDelay {
		select {
		case <-time.After(c.minDelay - elapsed):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastCall = time.Now()
	return nil
}

// APIError is a non-2xx answer from TonAPI
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// GetNftItem returns an NFT item by its address
func (c *Client) GetNftItem(ctx context.Context, address string) (*NftItem, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/nfts/"+address, nil)
	if err != nil {
		return nil, err
	}

	var item NftItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &item, nil
}

// OwnerOf implements staking.OwnershipOracle. Token ids are NFT item
// addresses in raw form; the item must belong to collection.
func (c *Client) OwnerOf(ctx context.Context, collection, tokenID string) (string, error) {
	acc, err := ton.ParseAccountID(tokenID)
	if err != nil {
		return "", fmt.Errorf("token %s: %w", tokenID, err)
	}
	if acc.ToRaw() != tokenID {
		return "", fmt.Errorf("token %s: %w", tokenID, ErrNotRawAddress)
	}

	item, err := c.GetNftItem(ctx, tokenID)
	if err != nil {
		return "", err
	}
	if item.Collection == nil || NormalizeAddress(item.Collection.Address) != NormalizeAddress(collection) {
		return "", fmt.Errorf("token %s: %w", tokenID, ErrNotInCollection)
	}
	if item.Owner == nil || item.Owner.Address == "" {
		return "", fmt.Errorf("token %s has no owner", tokenID)
	}
	return item.Owner.Address, nil
}

// --- Address Utilities ---

// RawToFriendly converts raw address (0:...) to friendly format (UQ.../EQ...)
func RawToFriendly(raw string) string {
	if raw == "" {
		return ""
	}

	acc, err := ton.ParseAccountID(raw)
	if err != nil {
		return raw
	}

	// bounceable, URL-safe
	return acc.ToHuman(true, false)
}

// NormalizeAddress converts any address format to raw (0:...)
func NormalizeAddress(addr string) string {
	if addr == "" {
		return ""
	}

	acc, err := ton.ParseAccountID(addr)
	if err != nil {
		return addr
	}

	return acc.ToRaw()
}

// ShortAddr returns a shortened address for display
func ShortAddr(addr string, n int) string {
	if addr == "" {
		return "unknown"
	}
	if len(addr) < n*2+3 {
		return addr
	}
	return addr[:n] + "..." + addr[len(addr)-n:]
}
