package httpChannel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// Client posts messages to a single endpoint. It satisfies channel.IOutbound.
type Client struct {
	url         string
	httpClient  *http.Client
	retryConfig RetryConfig
	limiter     *rate.Limiter
	logger      *zap.Logger
}

type ClientOption func(*Client)

func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithRateLimit paces outbound posts. A zero or negative rate disables pacing.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client posting JSON bodies to url
func NewClient(url string, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		url:         url,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts message with retries. Only failures where the server cannot
// have taken the message are retried: dial errors, 503 and 429. Timeouts and
// other statuses fail immediately since the body may already be queued.
func (c *Client) Send(ctx context.Context, message []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	attempts := c.retryConfig.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := c.retryConfig.InitialBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		retry, err := c.post(ctx, message)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.logger.Sugar().Debugw("Post failed, retrying",
			"url", c.url,
			"attempt", attempt+1,
			"error", err,
		)

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("post to %s abandoned: %w", c.url, ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return fmt.Errorf("failed to post to %s after %d attempts: %w", c.url, attempts, lastErr)
}

func (c *Client) post(ctx context.Context, message []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(message))
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("post to %s abandoned: %w", c.url, ctx.Err())
		}
		return isDialError(err), fmt.Errorf("post to %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("post to %s returned %d: %s", c.url, resp.StatusCode, bytes.TrimSpace(body))
	retry := resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests
	return retry, err
}

// isDialError reports whether err happened before any bytes reached the server.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
