package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Facebook Graph API host and version.
	DefaultBaseURL = "https://graph.facebook.com/v23.0"

	defaultHopTimeout = 8 * time.Second
)

// Client issues Graph API GET requests against a pooled HTTP client.
// Every call gets its own per-hop timeout so multi-hop traversals stay
// bounded even when the transport has none.
type Client struct {
	baseURL    string
	httpClient *http.Client
	hopTimeout time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the Graph host, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the shared transport.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithHopTimeout bounds each individual Graph call.
func WithHopTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.hopTimeout = d
	}
}

// NewClient creates a Graph API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		hopTimeout: defaultHopTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

// BaseURL returns the configured Graph host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET against path with percent-encoded query parameters
// and decodes the JSON response into out. Non-200 responses come back as
// a *RequestError carrying the parsed error envelope.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.hopTimeout)
	defer cancel()

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RequestError{Operation: path, Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Operation: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Operation: path, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return ReadError(path, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Operation: path, Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	return nil
}
