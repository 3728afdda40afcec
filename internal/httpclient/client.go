// Package httpclient provides the shared HTTP client used for all outbound
// calls. It wraps the standard client with connection pooling, a default
// timeout for requests whose context carries no deadline, and User-Agent
// injection.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is applied when a request context has no deadline.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 30 * time.Second
	defaultDialKeepAlive       = 30 * time.Second

	defaultUserAgent = "UGCScan-Go"
)

// Client is a pooled HTTP client safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

// Config holds configuration for creating a Client.
type Config struct {
	DefaultTimeout time.Duration
	UserAgent      string
}

// New creates a client with pooled transport. A nil cfg uses the defaults.
func New(cfg *Config) *Client {
	timeout := DefaultTimeout
	userAgent := defaultUserAgent
	if cfg != nil {
		if cfg.DefaultTimeout > 0 {
			timeout = cfg.DefaultTimeout
		}
		if cfg.UserAgent != "" {
			userAgent = cfg.UserAgent
		}
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
	}

	return &Client{
		client:         &http.Client{Transport: transport},
		defaultTimeout: timeout,
		userAgent:      userAgent,
	}
}

// StdClient exposes the underlying http.Client so callers can install
// transport-level instrumentation or mocks.
func (c *Client) StdClient() *http.Client {
	return c.client
}

// Do executes the request. When the request context has no deadline the
// client's default timeout is applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if _, ok := req.Context().Deadline(); !ok {
		ctx, cancel := context.WithTimeout(req.Context(), c.defaultTimeout)
		req = req.WithContext(ctx)
		// The cancel func must outlive the response body read; tie it to the
		// body so callers closing the body release the context.
		resp, err := c.do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.do(req)
}

// Get issues a GET request against url with the given context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
