package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mercator-hq/quaestor/pkg/upstream"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultVersion is the anthropic-version header value
	DefaultVersion = "2023-06-01"

	// DefaultTimeout bounds one upstream exchange, body included.
	// Streaming completions can run for minutes.
	DefaultTimeout = 300 * time.Second

	// messagesPath is the Messages API endpoint path
	messagesPath = "/v1/messages"
)

// RetryConfig controls the transparent retry on 429 responses.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialDelay is the wait before the first retry
	InitialDelay time.Duration

	// Multiplier scales the delay after each retry
	Multiplier float64
}

// Config configures the upstream client.
type Config struct {
	// BaseURL is the API endpoint (default https://api.anthropic.com)
	BaseURL string

	// Timeout is the per-request timeout including body read
	Timeout time.Duration

	// MaxIdleConns is the connection pool size
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host connection pool size
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept
	IdleConnTimeout time.Duration

	// Retry controls the 429 retry behavior
	Retry RetryConfig

	// OnRetry is invoked once per retry attempt, for metrics. May be nil.
	OnRetry func()
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 5 * time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 3
	}
	return c
}

// Credentials are the caller's own API credentials, lifted from the inbound
// request. The client never holds a key of its own.
type Credentials struct {
	// APIKey is the x-api-key header value
	APIKey string

	// Authorization is the Authorization header value (OAuth bearer)
	Authorization string
}

// Empty reports whether no credential is present.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.Authorization == ""
}

// Apply sets the credential headers on h.
func (c Credentials) Apply(h http.Header) {
	if c.APIKey != "" {
		h.Set("x-api-key", c.APIKey)
	}
	if c.Authorization != "" {
		h.Set("Authorization", c.Authorization)
	}
}

// Client talks to the Anthropic Messages API.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a client with connection pooling.
func NewClient(config Config, logger *slog.Logger) *Client {
	config = config.withDefaults()

	if logger == nil {
		logger = slog.Default().With("component", "upstream")
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Forward sends a request upstream and returns the raw response, whatever
// its status. The caller relays status, headers, and body verbatim and owns
// closing the body.
//
// 429 responses are retried with exponential backoff, honoring Retry-After
// when present; once the retry budget is spent the final 429 is returned
// as-is for the caller to relay. Transport failures (connect errors,
// timeouts) return *upstream.UpstreamError.
func (c *Client) Forward(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, error) {
	url := c.config.BaseURL + path
	delay := c.config.Retry.InitialDelay

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		copyHeader(req.Header, header)
		if req.Header.Get("anthropic-version") == "" {
			req.Header.Set("anthropic-version", DefaultVersion)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, upstreamError(err)
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.config.Retry.MaxRetries {
			return resp, nil
		}

		wait := delay
		if after := parseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
			wait = after
		}
		drain(resp)

		c.logger.Warn("upstream rate limited, retrying",
			"attempt", attempt+1,
			"max_retries", c.config.Retry.MaxRetries,
			"wait", wait,
		)
		if c.config.OnRetry != nil {
			c.config.OnRetry()
		}

		select {
		case <-ctx.Done():
			return nil, upstreamError(ctx.Err())
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * c.config.Retry.Multiplier)
	}
}

// Complete sends a Messages API request and decodes the response.
// Non-2xx statuses are mapped to typed errors; the routing classifier
// rides this path with the caller's credentials.
func (c *Client) Complete(ctx context.Context, req *MessagesRequest, creds Credentials) (*MessagesResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	creds.Apply(header)

	resp, err := c.Forward(ctx, http.MethodPost, messagesPath, bodyBytes, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &upstream.ParseError{
			Cause: fmt.Errorf("failed to read response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp, respBytes)
	}

	var out MessagesResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, &upstream.ParseError{
			RawResponse: string(respBytes),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	return &out, nil
}

// statusError maps a non-2xx JSON path response to a typed error.
func statusError(resp *http.Response, body []byte) error {
	errType, errMessage := parseErrorBody(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &upstream.AuthError{
			StatusCode: resp.StatusCode,
			Message:    errMessage,
		}
	case http.StatusTooManyRequests:
		return &upstream.RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    errMessage,
		}
	default:
		return &upstream.APIError{
			StatusCode: resp.StatusCode,
			Type:       errType,
			Message:    errMessage,
		}
	}
}

func upstreamError(err error) *upstream.UpstreamError {
	message := "unable to reach the Anthropic API"
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		message = "upstream request timed out"
	}
	return &upstream.UpstreamError{
		StatusCode: http.StatusBadGateway,
		Message:    message,
		Cause:      err,
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}
