package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/httpclient"
)

// Kind classifies a stream URL by what a player has to do with it.
type Kind string

const (
	KindUnknown     Kind = ""
	KindHLS         Kind = "hls"         // m3u8 playlist
	KindProgressive Kind = "progressive" // mp4, ts, mkv... played as a single file
	KindPage        Kind = "page"        // an HTML page (embed, web player)
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 8 * time.Second

// Classify inspects streamURL and returns its kind. Well-known extensions
// are answered without a request; otherwise a one-byte ranged GET is sent
// and the Content-Type decides.
func Classify(ctx context.Context, client *http.Client, streamURL string) (Kind, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return KindUnknown, err
	}
	if k := kindFromPath(u.Path); k != KindUnknown {
		return k, nil
	}
	if client == nil {
		client = httpclient.WithTimeout(DefaultTimeout)
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return KindUnknown, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return KindUnknown, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return KindUnknown, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if k := kindFromContentType(resp.Header.Get("Content-Type")); k != KindUnknown {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown content type %q", resp.Header.Get("Content-Type"))
}

func kindFromPath(p string) Kind {
	p = strings.ToLower(p)
	switch {
	case strings.HasSuffix(p, ".m3u8"):
		return KindHLS
	case strings.HasSuffix(p, ".mp4"), strings.HasSuffix(p, ".m4v"), strings.HasSuffix(p, ".ts"),
		strings.HasSuffix(p, ".mkv"), strings.HasSuffix(p, ".webm"):
		return KindProgressive
	case strings.HasSuffix(p, ".html"), strings.HasSuffix(p, ".php"), strings.HasPrefix(p, "/embed/"):
		return KindPage
	}
	return KindUnknown
}

func kindFromContentType(ct string) Kind {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "mpegurl"):
		return KindHLS
	case strings.HasPrefix(ct, "video/"), strings.Contains(ct, "application/mp4"), strings.Contains(ct, "octet-stream"):
		return KindProgressive
	case strings.HasPrefix(ct, "text/html"):
		return KindPage
	}
	return KindUnknown
}

// Result is the outcome of probing one channel.
type Result struct {
	Channel catalog.Channel
	Kind    Kind
	Err     error
}

// OK reports whether the channel looked playable.
func (r Result) OK() bool { return r.Err == nil && r.Kind != KindUnknown }

// Channels probes chs, at most concurrency at a time, and returns results in
// channel order. Channels without a stream URL fail without a request.
func Channels(ctx context.Context, client *http.Client, chs []catalog.Channel, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 4
	}
	out := make([]Result, len(chs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, ch := range chs {
		i, ch := i, ch
		out[i].Channel = ch
		if !ch.HasStream() {
			out[i].Err = fmt.Errorf("no stream URL")
			continue
		}
		g.Go(func() error {
			out[i].Kind, out[i].Err = Classify(ctx, client, ch.StreamURL)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
