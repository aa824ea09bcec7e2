// Package tracker is a client for the work-tracking service's REST API.
//
// It covers the small surface this tool needs: WIQL queries, batched
// work-item reads, JSON Patch writes, and create/delete for the fixture
// harness. Requests are rate limited client-side and retried with
// exponential backoff on transient failures.
package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// RetryConfig holds retry behavior for API calls.
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 30s)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           30 * time.Second,
	}
}

// withDefaults fills each unset field individually, so a caller that
// only tunes one knob still gets sane backoff and timeouts.
func (r RetryConfig) withDefaults() RetryConfig {
	defaults := DefaultRetryConfig()
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaults.MaxRetries
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = defaults.InitialBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = defaults.MaxBackoff
	}
	if r.BackoffMultiplier <= 0 {
		r.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if r.Timeout <= 0 {
		r.Timeout = defaults.Timeout
	}
	return r
}

// Config holds connection settings for the tracking service.
type Config struct {
	// BaseURL is the organization URL, e.g. "https://tracker.example.com/myorg".
	BaseURL string
	// Project is the project name or ID the work items live in.
	Project string
	// Token is a personal access token. Sent as basic auth with an
	// empty username, per the service's PAT convention.
	Token string
	// APIVersion is the REST API version string (default: "7.1").
	APIVersion string
	// RequestsPerSecond caps outgoing calls (default: 10).
	RequestsPerSecond float64
	// Retry configures backoff for transient failures.
	Retry RetryConfig
}

// Validate checks that the config can produce authenticated requests.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(c.Project) == "" {
		return fmt.Errorf("project is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Client talks to the tracking service.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	auth    string
}

// New creates a client from cfg, applying defaults for unset knobs.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "7.1"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	cfg.Retry = cfg.Retry.withDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Retry.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		// PAT auth: empty username, token as password.
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.Token)),
	}, nil
}

// url builds a project-scoped API URL. extraQuery, if non-empty, is
// appended after the api-version parameter.
func (c *Client) url(path, extraQuery string) string {
	u := fmt.Sprintf("%s/%s/_apis/wit/%s?api-version=%s", c.cfg.BaseURL, c.cfg.Project, path, c.cfg.APIVersion)
	if extraQuery != "" {
		u += "&" + extraQuery
	}
	return u
}

// do sends one API request, retrying transient failures with exponential
// backoff. The body is replayed on each attempt. Returns the response
// body on any 2xx status.
func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	backoff := c.cfg.Retry.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.cfg.Retry.BackoffMultiplier)
			if backoff > c.cfg.Retry.MaxBackoff {
				backoff = c.cfg.Retry.MaxBackoff
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		respBody, err := c.send(ctx, method, url, contentType, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.cfg.Retry.MaxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: summarize(respBody)}
	}
	return respBody, nil
}

// isRetryable reports whether an error is worth another attempt:
// transport failures, rate limiting, and server-side errors qualify;
// auth and client errors do not.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// summarize trims an error response body down to something printable.
func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "(empty response body)"
	}
	return s
}
