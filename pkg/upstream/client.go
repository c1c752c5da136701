package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"curvelaboratory/promptgateway/pkg/telemetry/tracing"
)

const (
	// DefaultBackoff is the delay before the first retry; it doubles per attempt.
	DefaultBackoff = 200 * time.Millisecond

	// maxErrorBody bounds how much of an error body is kept in a StatusError.
	maxErrorBody = 2048
)

// CredentialSource resolves named secrets. It is satisfied by *secrets.Manager.
type CredentialSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ClusterConfig describes one named upstream.
type ClusterConfig struct {
	// Name identifies the cluster in logs and errors.
	Name string

	// BaseURL is prefixed to every request path.
	BaseURL string

	// MaxRetries is the number of additional attempts after a network
	// failure or a 502/503/504.
	MaxRetries int

	// Backoff is the initial retry delay. Zero means DefaultBackoff.
	Backoff time.Duration

	// APIKeySecret names the bearer credential, if any.
	APIKeySecret string
}

// Request is a single outbound exchange.
type Request struct {
	Method  string
	Path    string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Client sends requests to one cluster with pooled connections and bounded retries.
type Client struct {
	cfg     ClusterConfig
	client  *http.Client
	secrets CredentialSource
}

// NewClient creates a client for cfg. httpClient may be nil.
func NewClient(cfg ClusterConfig, httpClient *http.Client, secrets CredentialSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = DefaultBackoff
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg, client: httpClient, secrets: secrets}
}

// Name returns the cluster name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Do performs req, retrying network errors and 502/503/504 responses with
// exponential backoff. The final response is returned whatever its status;
// the caller owns its body. When the deadline of ctx expires Do returns a
// *TimeoutError.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.Backoff << (attempt - 1)
			slog.DebugContext(ctx, "retrying upstream request",
				"cluster", c.cfg.Name,
				"path", req.Path,
				"attempt", attempt,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, c.contextError(ctx, req)
			case <-time.After(backoff):
			}
		}

		httpReq, err := c.newRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.contextError(ctx, req)
			}
			lastErr = &TransportError{Cluster: c.cfg.Name, Cause: err}
			slog.WarnContext(ctx, "upstream request failed",
				"cluster", c.cfg.Name,
				"path", req.Path,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if retryableStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = &StatusError{Cluster: c.cfg.Name, StatusCode: resp.StatusCode, Body: string(body)}
			slog.WarnContext(ctx, "upstream returned retryable status",
				"cluster", c.cfg.Name,
				"path", req.Path,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// Call performs req and reads the whole response body. Non-2xx responses
// are returned as *StatusError.
func (c *Client) Call(ctx context.Context, req Request) ([]byte, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(ctx, req)
		}
		return nil, &TransportError{Cluster: c.cfg.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Cluster: c.cfg.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.cfg.APIKeySecret != "" && c.secrets != nil {
		key, err := c.secrets.GetSecret(ctx, c.cfg.APIKeySecret)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credential for %q: %w", c.cfg.Name, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	tracing.Inject(ctx, httpReq.Header)

	return httpReq, nil
}

func (c *Client) contextError(ctx context.Context, req Request) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Cluster: c.cfg.Name, Timeout: req.Timeout}
	}
	return ctx.Err()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
