package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/criollotv/criollotv/internal/httpclient"
	"github.com/criollotv/criollotv/internal/indexer"
	"github.com/criollotv/criollotv/internal/probe"
)

// Fetcher downloads a playlist body.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// CheckPlaylist fetches the M3U URL and returns how many channels it lists.
func CheckPlaylist(ctx context.Context, f Fetcher, m3uURL string, timeout time.Duration) (int, error) {
	if m3uURL == "" {
		return 0, fmt.Errorf("no M3U URL configured")
	}
	raw, err := f.Fetch(ctx, m3uURL, timeout)
	if err != nil {
		return 0, fmt.Errorf("playlist unreachable: %w", err)
	}
	return len(indexer.Parse(raw)), nil
}

// CheckStreams fetches the playlist and probes the stream URL of its first
// limit channels (all of them when limit <= 0).
func CheckStreams(ctx context.Context, f Fetcher, m3uURL string, timeout time.Duration, limit int) ([]probe.Result, error) {
	if m3uURL == "" {
		return nil, fmt.Errorf("no M3U URL configured")
	}
	raw, err := f.Fetch(ctx, m3uURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("playlist unreachable: %w", err)
	}
	chs := indexer.Parse(raw)
	if limit > 0 && len(chs) > limit {
		chs = chs[:limit]
	}
	return probe.Channels(ctx, httpclient.WithTimeout(probe.DefaultTimeout), chs, 4), nil
}

// CheckEndpoints hits /healthz, /api/config and /api/channels at baseURL and
// returns the first error, or the channel count the server reports.
func CheckEndpoints(ctx context.Context, baseURL string) (int, error) {
	client := httpclient.WithTimeout(5 * time.Second)
	for _, path := range []string{"/healthz", "/api/config"} {
		resp, err := get(ctx, client, baseURL+path)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		resp.Body.Close()
	}
	resp, err := get(ctx, client, baseURL+"/api/channels")
	if err != nil {
		return 0, fmt.Errorf("/api/channels: %w", err)
	}
	defer resp.Body.Close()
	var body struct {
		Success  bool              `json:"success"`
		Channels []json.RawMessage `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("/api/channels: %w", err)
	}
	if !body.Success {
		return 0, fmt.Errorf("/api/channels: success=false")
	}
	return len(body.Channels), nil
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}
