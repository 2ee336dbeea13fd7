package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/criollotv/criollotv/internal/httpclient"
)

// TDTChannels channel lists, tried in order.
const (
	TDTAPIURL    = "https://www.tdtchannels.com/lists/tv.json"
	TDTGitHubURL = "https://raw.githubusercontent.com/LaQuay/TDTChannels/master/TELEVISION.json"
)

// TDTResolver finds the YouTube video behind a TDTChannels player page by
// looking the channel up in the TDTChannels JSON lists.
type TDTResolver struct {
	Client *http.Client
	// Lists defaults to TDTAPIURL then TDTGitHubURL.
	Lists []string
	// Live resolves options that point at a channel rather than a video.
	Live Resolver
}

// IsTDTPage reports whether pageURL is on tdtchannels.com.
func IsTDTPage(pageURL string) bool {
	u, err := url.Parse(pageURL)
	return err == nil && strings.Contains(strings.ToLower(u.Host), "tdtchannels")
}

// VideoID returns the video of the channel named by the last path segment of
// pageURL.
func (r *TDTResolver) VideoID(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("tdtchannels %s: no channel name in URL", pageURL)
	}
	lists := r.Lists
	if len(lists) == 0 {
		lists = []string{TDTAPIURL, TDTGitHubURL}
	}
	var lastErr error
	for _, list := range lists {
		chs, err := r.load(ctx, list)
		if err != nil {
			lastErr = err
			continue
		}
		if id, ok := r.match(ctx, chs, name); ok {
			return id, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("tdtchannels %s: %w (last error: %v)", name, ErrNotLive, lastErr)
	}
	return "", fmt.Errorf("tdtchannels %s: %w", name, ErrNotLive)
}

type tdtChannel struct {
	Name    string            `json:"name"`
	Options []json.RawMessage `json:"options"`
	Web     []json.RawMessage `json:"web"`
}

// tdtList covers both layouts: {"countries":[{"ambits":[{"channels":[...]}]}]}
// and {"channels":[...]}; a bare array is handled by load.
type tdtList struct {
	Countries []struct {
		Ambits []struct {
			Channels []tdtChannel `json:"channels"`
		} `json:"ambits"`
	} `json:"countries"`
	Channels []tdtChannel `json:"channels"`
}

func (r *TDTResolver) load(ctx context.Context, listURL string) ([]tdtChannel, error) {
	client := r.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tdtchannels list %s: %w", listURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tdtchannels list %s: HTTP %d", listURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("tdtchannels list %s: %w", listURL, err)
	}
	return parseTDTList(body)
}

// parseTDTList skips anything before the first JSON value (the GitHub file
// has carried a BOM and stray text).
func parseTDTList(body []byte) ([]tdtChannel, error) {
	if i := bytes.IndexAny(body, "{["); i > 0 {
		body = body[i:]
	}
	if len(body) > 0 && body[0] == '[' {
		var chs []tdtChannel
		if err := json.Unmarshal(body, &chs); err != nil {
			return nil, fmt.Errorf("tdtchannels list: %w", err)
		}
		return chs, nil
	}
	var l tdtList
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("tdtchannels list: %w", err)
	}
	out := l.Channels
	for _, c := range l.Countries {
		for _, a := range c.Ambits {
			out = append(out, a.Channels...)
		}
	}
	return out, nil
}

func tdtKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

func (r *TDTResolver) match(ctx context.Context, chs []tdtChannel, name string) (string, bool) {
	want := tdtKey(name)
	for _, ch := range chs {
		if tdtKey(ch.Name) != want {
			continue
		}
		opts := ch.Options
		if len(opts) == 0 {
			opts = ch.Web
		}
		for _, raw := range opts {
			u := optionURL(raw)
			if id, ok := VideoIDFromURL(u); ok {
				return id, true
			}
			if r.Live != nil && isChannelURL(u) {
				if id, err := r.Live.LiveVideoID(ctx, u); err == nil {
					return id, true
				}
			}
		}
	}
	return "", false
}

// optionURL reads an option that is either {"url": "..."} or a bare string.
func optionURL(raw json.RawMessage) string {
	var o struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &o) == nil && o.URL != "" {
		return o.URL
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func isChannelURL(u string) bool {
	return strings.Contains(u, "youtube.com/channel/") || strings.Contains(u, "youtube.com/@") || strings.Contains(u, "youtube.com/c/")
}
