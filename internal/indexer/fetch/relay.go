package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// DefaultRelays are public CORS relays tried, in order, after a direct fetch
// fails. Each is a prefix the query-escaped target URL is appended to.
var DefaultRelays = []string{
	"https://corsproxy.io/?",
	"https://api.allorigins.win/raw?url=",
	"https://api.codetabs.com/v1/proxy?quest=",
}

// RelayFetcher tries a direct fetch first, then each relay, and returns the
// first response that validates as a playlist.
type RelayFetcher struct {
	Direct *Fetcher
	Relays []string
}

// NewRelay returns a RelayFetcher over f. A nil relays slice uses DefaultRelays.
func NewRelay(f *Fetcher, relays []string) *RelayFetcher {
	if relays == nil {
		relays = DefaultRelays
	}
	return &RelayFetcher{Direct: f, Relays: relays}
}

// Fetch applies timeout to each attempt separately.
func (r *RelayFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	direct := r.Direct
	if direct == nil {
		direct = New(nil)
	}
	body, err := direct.Fetch(ctx, rawURL, timeout)
	if err == nil {
		return body, nil
	}
	attempts := []error{err}
	for _, relay := range r.Relays {
		if ctx.Err() != nil {
			break
		}
		body, err := direct.Fetch(ctx, RelayURL(relay, rawURL), timeout)
		if err == nil {
			return body, nil
		}
		attempts = append(attempts, err)
	}
	return "", &Error{Kind: ErrAllSourcesExhausted, URL: rawURL, Attempts: attempts}
}

// RelayURL builds the relay request URL for target.
func RelayURL(relay, target string) string {
	relay = strings.TrimSpace(relay)
	return relay + url.QueryEscape(target)
}
