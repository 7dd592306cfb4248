// Package minter delivers queued reward mints to the issuing service.
package minter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suspectuso/nft-staking/internal/staking"
)

// ErrRejected marks an issuer answer that retrying will not change.
var ErrRejected = errors.New("mint rejected")

// Client is the HTTP client of the reward issuer
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new issuer client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Mint asks the issuer to create one reward token. A token id the issuer
// already knows counts as minted.
func (c *Client) Mint(ctx context.Context, m staking.MintInstruction) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mint", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", m.TokenID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300, resp.StatusCode == http.StatusConflict:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("issuer error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
