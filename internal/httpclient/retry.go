package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls when to retry after a response. Used by DoWithRetry.
type RetryPolicy struct {
	// Retry429: on 429 Too Many Requests, wait Retry-After (capped at Max429Wait) and retry once.
	Retry429   bool
	Max429Wait time.Duration
	// Retry5xx: on 5xx, wait Backoff5xx and retry once.
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (cap 60s) and 5xx (1s backoff).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 60 * time.Second,
	Retry5xx:   true,
	Backoff5xx: 1 * time.Second,
}

// PlaylistRetryPolicy is used for interactive playlist loads: a viewer is
// waiting, so waits are short.
var PlaylistRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 5 * time.Second,
	Retry5xx:   true,
	Backoff5xx: 500 * time.Millisecond,
}

// NoRetry never retries.
var NoRetry = RetryPolicy{}

// DoWithRetry performs req and on 429/5xx (when policy allows) waits and retries once.
// 2xx and 3xx responses are returned as-is; 4xx (except 429) are never retried.
// Caller must close resp.Body when err == nil.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	code := resp.StatusCode
	var wait time.Duration
	switch {
	case code < 400:
		return resp, nil
	case code == http.StatusTooManyRequests && policy.Retry429:
		wait = parseRetryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait)
	case code >= 500 && policy.Retry5xx:
		wait = policy.Backoff5xx
	default:
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	// request body (if any) was already consumed
	req2, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		req2.Header[k] = v
	}
	return client.Do(req2)
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); returns duration capped at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return capWait(1*time.Second, max)
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		return capWait(time.Duration(sec)*time.Second, max)
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return capWait(1*time.Second, max)
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	return capWait(until, max)
}

func capWait(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}
