// Package transport is the shared REST helper for backends that talk to
// their exchange without an SDK. One request per operation, no retry loop:
// a transport failure propagates immediately to the command layer. Outbound
// requests are paced with a token-bucket limiter so a burst of CLI-driven
// calls can't trip an exchange rate limit.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"tradeflow/logger"
)

// StatusError is a non-2xx HTTP response. Backends inspect it to decide
// whether the remote rejected the request or the payload carries a
// service-level error message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Client is a rate-limited HTTP client for one exchange.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// New builds a Client with the given request timeout and pacing.
func New(timeout time.Duration, requestsPerSecond, burst int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		log:     logger.GetLogger(),
	}
}

const maxErrorBodyBytes = 512

// Request issues one HTTP request and decodes the JSON response into out
// when out is non-nil. Headers may be nil. A non-2xx status returns a
// StatusError carrying a snippet of the body.
func (c *Client) Request(ctx context.Context, method, url string, headers map[string]string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.log.WithComponent("transport").WithFields(logger.Fields{
		"method":      method,
		"url":         url,
		"status":      resp.StatusCode,
		"duration_ms": float64(time.Since(start).Nanoseconds()) / 1e6,
	}).Debug("request complete")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	return nil
}

// Get issues one GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, url string, out interface{}) error {
	return c.Request(ctx, http.MethodGet, url, nil, nil, out)
}
