// Package httpclient fetches catalog pages with rate limiting, on-disk caching
// and conditional revalidation.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/everstacklabs/librarian/internal/cache"
)

// DefaultUserAgent identifies the crawler to the origin.
const DefaultUserAgent = "librarian/1.0 (+https://github.com/everstacklabs/librarian)"

// maxBody caps a single page read.
const maxBody = 16 << 20

// Client is an HTTP client with caching, rate limiting, and conditional fetch.
type Client struct {
	http      *http.Client
	cache     *cache.FileCache
	limiter   *rate.Limiter
	noCache   bool
	userAgent string
	retries   int
	backoff   time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithCache enables file-based caching.
func WithCache(c *cache.FileCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithNoCache disables caching.
func WithNoCache() Option {
	return func(cl *Client) { cl.noCache = true }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithRetries retries 429 and 5xx responses n times with linear backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.retries = n
		cl.backoff = backoff
	}
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		backoff:   time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response wraps an HTTP response body and metadata.
type Response struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FromCache   bool
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Get performs an HTTP GET with optional caching and conditional fetch.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	var staleEntry *cache.Entry
	if c.cache != nil && !c.noCache {
		entry, fresh := c.cache.Get(url)
		if fresh {
			slog.Debug("cache hit", "url", url)
			return &Response{Body: entry.Body, StatusCode: entry.StatusCode, ContentType: entry.ContentType, FromCache: true}, nil
		}
		staleEntry = entry
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			slog.Debug("retrying request", "url", url, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := c.do(ctx, url, staleEntry)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		se, ok := err.(*StatusError)
		if !ok || !retryable(se.Code) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string, staleEntry *cache.Entry) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	if staleEntry != nil {
		if staleEntry.ETag != "" {
			req.Header.Set("If-None-Match", staleEntry.ETag)
		}
		if staleEntry.LastMod != "" {
			req.Header.Set("If-Modified-Since", staleEntry.LastMod)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && staleEntry != nil {
		if c.cache != nil {
			_ = c.cache.Set(url, staleEntry)
		}
		return &Response{Body: staleEntry.Body, StatusCode: staleEntry.StatusCode, ContentType: staleEntry.ContentType, FromCache: true}, nil
	}

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	out := &Response{Body: body, StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
	if c.cache != nil && !c.noCache {
		if err := c.cache.Set(url, &cache.Entry{
			Body:        body,
			ContentType: out.ContentType,
			ETag:        resp.Header.Get("ETag"),
			LastMod:     resp.Header.Get("Last-Modified"),
			StatusCode:  resp.StatusCode,
		}); err != nil {
			slog.Warn("caching page failed", "url", url, "error", err)
		}
	}
	return out, nil
}
