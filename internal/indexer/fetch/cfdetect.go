package fetch

import (
	"net/http"
	"strings"
)

// cfResponseHeaders is the set of response headers that indicate Cloudflare.
var cfResponseHeaders = []string{
	"CF-RAY",
	"CF-Cache-Status",
	"CF-Request-ID",
	"CF-Worker",
}

// challengeHint explains a non-playlist body when the response looks like a
// Cloudflare challenge or an HTML page; empty when nothing stands out.
func challengeHint(h http.Header, body string) string {
	cf := strings.Contains(strings.ToLower(h.Get("Server")), "cloudflare")
	for _, name := range cfResponseHeaders {
		if h.Get(name) != "" {
			cf = true
			break
		}
	}
	head := strings.ToLower(body)
	if len(head) > 2048 {
		head = head[:2048]
	}
	html := strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
	switch {
	case cf && (html || strings.Contains(head, "just a moment")):
		return "cloudflare challenge page"
	case cf:
		return "served via cloudflare"
	case html:
		return "got an HTML page"
	case strings.TrimSpace(body) == "":
		return "empty body"
	}
	return ""
}
