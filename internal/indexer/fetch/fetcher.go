// Package fetch downloads M3U playlists over HTTP(S), directly or through
// CORS relays.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/criollotv/criollotv/internal/httpclient"
	"github.com/criollotv/criollotv/internal/indexer"
	"github.com/criollotv/criollotv/internal/metrics"
	"github.com/criollotv/criollotv/internal/safeurl"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
	DefaultUserAgent    = "CriolloTV/1.0"

	maxBodySize = 64 << 20
)

// Fetcher performs direct playlist downloads. The zero value is usable.
type Fetcher struct {
	// Client may be nil to use httpclient.Default(). Its redirect policy is
	// ignored; redirects are followed by Fetch itself.
	Client       *http.Client
	UserAgent    string
	MaxRedirects int
	Retry        httpclient.RetryPolicy
	HostSem      *httpclient.HostSemaphore
}

// New returns a Fetcher with the playlist retry policy and the global host limiter.
func New(client *http.Client) *Fetcher {
	return &Fetcher{
		Client:  client,
		Retry:   httpclient.PlaylistRetryPolicy,
		HostSem: httpclient.GlobalHostSem,
	}
}

// Fetch downloads rawURL and returns the body. 3xx responses with a Location
// are followed up to MaxRedirects hops. A response that does not carry an M3U
// marker fails with ErrInvalidContent. timeout bounds the whole operation;
// zero means DefaultTimeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	body, err := f.fetch(ctx, rawURL, timeout)
	metrics.PlaylistFetches.WithLabelValues(resultLabel(err)).Inc()
	return body, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return "", &Error{Kind: ErrNetwork, URL: rawURL, Detail: "only http and https URLs are supported"}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxHops := f.MaxRedirects
	if maxHops <= 0 {
		maxHops = DefaultMaxRedirects
	}
	client := httpclient.NoRedirect(f.Client)
	current := rawURL
	for hop := 0; ; hop++ {
		resp, release, err := f.do(ctx, client, current)
		if err != nil {
			return "", classify(ctx, rawURL, err)
		}
		if isRedirect(resp.StatusCode) && resp.Header.Get("Location") != "" {
			loc := resp.Header.Get("Location")
			drain(resp)
			release()
			if hop >= maxHops {
				return "", &Error{Kind: ErrNetwork, URL: rawURL, Detail: fmt.Sprintf("stopped after %d redirects", maxHops)}
			}
			next, err := safeurl.Resolve(current, loc)
			if err != nil {
				return "", &Error{Kind: ErrNetwork, URL: rawURL, Err: err}
			}
			current = next
			continue
		}
		body, err := readBody(resp)
		release()
		if err != nil {
			return "", classify(ctx, rawURL, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", &Error{Kind: ErrHTTPStatus, URL: rawURL, Status: resp.StatusCode}
		}
		if !indexer.LooksLikePlaylist(body) {
			return "", &Error{Kind: ErrInvalidContent, URL: rawURL, Detail: challengeHint(resp.Header, body)}
		}
		return body, nil
	}
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, target string) (*http.Response, func(), error) {
	release := func() {}
	if f.HostSem != nil {
		r, err := f.HostSem.Acquire(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		release = r
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		release()
		return nil, nil, err
	}
	ua := f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "audio/x-mpegurl, application/vnd.apple.mpegurl, text/plain, */*")
	req.Header.Set("Accept-Encoding", "br, gzip")
	resp, err := httpclient.DoWithRetry(ctx, client, req, f.Retry)
	if err != nil {
		release()
		return nil, nil, err
	}
	return resp, release, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// readBody decodes br/gzip bodies; Accept-Encoding is set by hand so the
// transport leaves them compressed.
func readBody(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func classify(ctx context.Context, rawURL string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: ErrTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: ErrNetwork, URL: rawURL, Err: err}
}
