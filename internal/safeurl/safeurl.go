package safeurl

import (
	"fmt"
	"net/url"
)

// IsHTTPOrHTTPS returns true if u is a valid absolute URL with scheme http or https and a host.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return (s == "http" || s == "https") && parsed.Host != ""
}

// Resolve resolves ref (typically a Location header) against base and rejects
// targets that are not http(s).
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	out := b.ResolveReference(r).String()
	if !IsHTTPOrHTTPS(out) {
		return "", fmt.Errorf("refusing non-http target %q", out)
	}
	return out, nil
}
