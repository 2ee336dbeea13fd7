// Package youtube finds the current live video of YouTube channels and turns
// catalog entries into playable channels.
package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrNotLive means the channel page had no live video.
var ErrNotLive = errors.New("channel is not live")

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// videoURLPatterns match a video ID inside a URL.
var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/live/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
}

// bodyPatterns find a video ID anywhere in a live page, in order of trust.
var bodyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`),
	regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/live/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`embed/([A-Za-z0-9_-]{11})`),
}

// VideoIDFromURL extracts an 11-character video ID from a YouTube video URL.
func VideoIDFromURL(u string) (string, bool) {
	for _, re := range videoURLPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// IsVideoID reports whether s has the shape of a video ID.
func IsVideoID(s string) bool {
	return videoIDRe.MatchString(s)
}

// LivePageURL returns the /live page of a channel given a UC... ID, an
// @handle (with or without @) or a channel URL.
func LivePageURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "youtube.com/") {
		u, err := url.Parse(ref)
		if err == nil {
			p := strings.TrimSuffix(u.Path, "/")
			if !strings.HasSuffix(p, "/live") {
				p += "/live"
			}
			return "https://www.youtube.com" + p
		}
	}
	if strings.HasPrefix(ref, "UC") && !strings.HasPrefix(ref, "@") {
		return "https://www.youtube.com/channel/" + ref + "/live"
	}
	return "https://www.youtube.com/@" + strings.TrimPrefix(ref, "@") + "/live"
}

// EmbedURL is the player URL handed to clients for a live video.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID + "?autoplay=1"
}

// WatchURL is the canonical watch page of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
