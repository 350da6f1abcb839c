// Package httpclient provides the outbound HTTP transport shared by the
// market-data providers: explicit timeout, bounded retries on transient
// failures, and per-client TLS settings.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls the transport.
type Config struct {
	Timeout   time.Duration
	Retries   uint
	BaseDelay time.Duration
	MaxDelay  time.Duration
	UserAgent string

	// InsecureSkipVerify disables certificate verification for this client
	// only. Config validation restricts it to development mode.
	InsecureSkipVerify bool
}

// DefaultConfig mirrors the proxy routes: 10s timeout, 2 retries.
func DefaultConfig() Config {
	return Config{
		Timeout:   10 * time.Second,
		Retries:   2,
		BaseDelay: 250 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		UserAgent: "cryptostream/1.0",
	}
}

// Client is an http.Client wrapper that retries transient failures.
type Client struct {
	http      *http.Client
	retryer   *retryer
	userAgent string
	logger    *zap.Logger
}

// New creates a Client with its own transport.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // development only
		logger.Warn("TLS certificate verification disabled for provider transport")
	}

	return NewWithHTTPClient(&http.Client{Timeout: cfg.Timeout, Transport: transport}, cfg, logger)
}

// NewWithHTTPClient wraps an existing http.Client (for testing).
func NewWithHTTPClient(hc *http.Client, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: hc,
		retryer: &retryer{
			maxRetries: cfg.Retries,
			baseDelay:  cfg.BaseDelay,
			maxDelay:   cfg.MaxDelay,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Do sends req, retrying network errors, 429 and 5xx responses. When the
// retries are exhausted on a bad status, the last response is returned so
// the caller can report the status code.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	ctx := req.Context()
	var resp *http.Response

	err := c.retryer.do(ctx, func(attempt uint) (bool, error) {
		var err error
		resp, err = c.http.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			c.logger.Debug("provider request failed",
				zap.String("url", req.URL.Redacted()),
				zap.Uint("attempt", attempt),
				zap.Error(err),
			)
			return true, err
		}

		if retryableStatus(resp.StatusCode) && attempt < c.retryer.maxRetries {
			c.logger.Debug("provider returned retryable status",
				zap.String("url", req.URL.Redacted()),
				zap.Uint("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			resp.Body.Close()
			resp = nil
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
