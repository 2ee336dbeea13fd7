package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MinQualityHeight is the smallest rendition Qualities reports.
const MinQualityHeight = 360

// Quality is one streamable rendition of a video.
type Quality struct {
	Label  string // "720p"
	Height int
	URL    string
}

// ytFormats is the part of yt-dlp's -J output Qualities reads.
type ytFormats struct {
	Formats []struct {
		Height   int    `json:"height"`
		Protocol string `json:"protocol"`
		URL      string `json:"url"`
		VCodec   string `json:"vcodec"`
	} `json:"formats"`
}

// ParseFormats reads yt-dlp -J output and returns one streamable rendition per
// height of at least MinQualityHeight, best first. The first format listed for
// a height wins.
func ParseFormats(raw []byte) ([]Quality, error) {
	var info ytFormats
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp formats: %w", err)
	}
	seen := make(map[int]bool)
	var out []Quality
	for _, f := range info.Formats {
		if f.Height < MinQualityHeight || f.URL == "" || f.VCodec == "none" || seen[f.Height] {
			continue
		}
		if !strings.Contains(f.Protocol, "m3u8") && !strings.Contains(f.Protocol, "https") {
			continue
		}
		seen[f.Height] = true
		out = append(out, Quality{Label: fmt.Sprintf("%dp", f.Height), Height: f.Height, URL: f.URL})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out, nil
}

// Qualities lists the renditions of a video via yt-dlp -J.
func (e *Extractor) Qualities(ctx context.Context, videoID string) ([]Quality, error) {
	out, err := e.run(ctx, "--no-warnings", "-J", WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	return ParseFormats([]byte(out))
}
