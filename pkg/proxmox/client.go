package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pvemcp/proxmox-mcp/pkg/tlsutil"
	"github.com/rs/zerolog/log"
)

// Client is a Proxmox VE API client using API token authentication.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// ClientConfig holds configuration for the PVE client.
type ClientConfig struct {
	Host        string // hostname or URL; https:// assumed when no scheme given
	Port        int    // defaults to 8006
	User        string // user@realm
	TokenName   string // API token id (the part after the '!')
	TokenValue  string // API token secret
	VerifySSL   bool
	Fingerprint string // optional SHA256 certificate pin
	Timeout     time.Duration
}

// APIError is returned for non-2xx responses from the PVE API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return fmt.Sprintf("authentication error: API error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new PVE API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.User == "" || cfg.TokenName == "" || cfg.TokenValue == "" {
		return nil, fmt.Errorf("token authentication requires user, token name and token value")
	}
	if !strings.Contains(cfg.User, "@") {
		return nil, fmt.Errorf("invalid user format %q, expected user@realm", cfg.User)
	}

	host := cfg.Host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
		log.Debug().Str("host", host).Msg("No protocol specified in PVE host, defaulting to HTTPS")
	}
	if strings.HasPrefix(host, "http://") {
		log.Warn().Str("host", host).Msg("Using HTTP for PVE connection. The Proxmox API normally requires HTTPS")
	}
	host = strings.TrimSuffix(host, "/")

	port := cfg.Port
	if port == 0 {
		port = 8006
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL:    fmt.Sprintf("%s:%d/api2/json", host, port),
		authHeader: fmt.Sprintf("PVEAPIToken=%s!%s=%s", cfg.User, cfg.TokenName, cfg.TokenValue),
		httpClient: tlsutil.CreateHTTPClient(cfg.VerifySSL, cfg.Fingerprint, timeout),
	}

	// Never log the token value itself.
	log.Debug().
		Str("user", cfg.User).
		Str("tokenName", cfg.TokenName).
		Str("baseURL", client.baseURL).
		Msg("PVE API token authentication configured")

	return client, nil
}

// request performs an API request and returns the inner "data" field of the
// response envelope. Every PVE payload is wrapped as {"data": ...}.
func (c *Client) request(ctx context.Context, method, path string, data url.Values) (json.RawMessage, error) {
	var body io.Reader
	if data != nil {
		body = strings.NewReader(data.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if len(respBody) == 0 {
		return nil, fmt.Errorf("empty response body from %s %s", method, path)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response from %s %s: %w", method, path, err)
	}

	return envelope.Data, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with form-encoded data.
func (c *Client) Post(ctx context.Context, path string, data url.Values) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPost, path, data)
}

// Put performs a PUT request with form-encoded data.
func (c *Client) Put(ctx context.Context, path string, data url.Values) (json.RawMessage, error) {
	return c.request(ctx, http.MethodPut, path, data)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}
