package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/criollotv/criollotv/internal/httpclient"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// PageResolver finds live video IDs by scraping channel /live pages.
type PageResolver struct {
	Client *http.Client
	// TDT, when set, resolves tdtchannels.com pages the page scrape misses.
	TDT *TDTResolver
}

// LiveVideoID returns the video currently live on the channel ref (see
// LivePageURL). A web page outside YouTube is scraped as is.
func (p *PageResolver) LiveVideoID(ctx context.Context, ref string) (string, error) {
	if !isWebPage(ref) {
		return p.VideoIDFromPage(ctx, LivePageURL(ref))
	}
	id, err := p.VideoIDFromPage(ctx, ref)
	if err != nil && p.TDT != nil && IsTDTPage(ref) {
		if tid, terr := p.TDT.VideoID(ctx, ref); terr == nil {
			return tid, nil
		}
	}
	return id, err
}

func isWebPage(ref string) bool {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return false
	}
	return !strings.Contains(ref, "youtube.com/") && !strings.Contains(ref, "youtu.be/")
}

// VideoIDFromPage loads any page and finds the YouTube video it embeds or
// points to: og:video meta tags, canonical link, iframes, then raw text.
func (p *PageResolver) VideoIDFromPage(ctx context.Context, pageURL string) (string, error) {
	client := p.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.5")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("youtube page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube page %s: HTTP %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("youtube page %s: %w", pageURL, err)
	}
	if id, ok := VideoIDFromHTML(string(body)); ok {
		return id, nil
	}
	return "", fmt.Errorf("%s: %w", pageURL, ErrNotLive)
}

// VideoIDFromHTML inspects a document for a video reference.
func VideoIDFromHTML(doc string) (string, bool) {
	root, err := html.Parse(strings.NewReader(doc))
	if err == nil {
		var meta, canonical, iframe string
		walk(root, func(n *html.Node) {
			switch n.Data {
			case "meta":
				prop := attr(n, "property")
				if meta == "" && (prop == "og:video" || prop == "og:video:url" || prop == "og:video:secure_url") {
					meta = attr(n, "content")
				}
			case "link":
				if canonical == "" && attr(n, "rel") == "canonical" {
					canonical = attr(n, "href")
				}
			case "iframe":
				src := attr(n, "src")
				if iframe == "" && (strings.Contains(src, "youtube.com") || strings.Contains(src, "youtu.be")) {
					iframe = src
				}
			}
		})
		for _, u := range []string{meta, canonical, iframe} {
			if id, ok := VideoIDFromURL(u); ok {
				return id, true
			}
		}
	}
	for _, re := range bodyPatterns {
		if m := re.FindStringSubmatch(doc); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
