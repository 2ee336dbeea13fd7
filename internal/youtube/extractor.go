package youtube

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Extractor wraps the yt-dlp command line tool.
type Extractor struct {
	Path string // default "yt-dlp"
	// Format is the yt-dlp format selector for StreamURL.
	Format string
}

func (e *Extractor) path() string {
	if e.Path == "" {
		return "yt-dlp"
	}
	return e.Path
}

// Available reports whether the tool is on PATH.
func (e *Extractor) Available() bool {
	_, err := exec.LookPath(e.path())
	return err == nil
}

// LiveVideoID asks yt-dlp for the ID of the channel's live video.
func (e *Extractor) LiveVideoID(ctx context.Context, ref string) (string, error) {
	out, err := e.run(ctx, "--no-warnings", "--no-playlist", "--get-id", LivePageURL(ref))
	if err != nil {
		return "", err
	}
	id := firstLine(out)
	if !IsVideoID(id) {
		return "", fmt.Errorf("yt-dlp %s: %w", ref, ErrNotLive)
	}
	return id, nil
}

// StreamURL resolves a video to a direct (usually HLS) media URL.
func (e *Extractor) StreamURL(ctx context.Context, videoID string) (string, error) {
	format := e.Format
	if format == "" {
		format = "best[protocol^=m3u8][height<=1080]/best"
	}
	out, err := e.run(ctx, "--no-warnings", "-f", format, "-g", WatchURL(videoID))
	if err != nil {
		return "", err
	}
	u := firstLine(out)
	if u == "" {
		return "", fmt.Errorf("yt-dlp %s: no stream URL", videoID)
	}
	return u, nil
}

func (e *Extractor) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.path(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("yt-dlp exec: %w: %s", err, msg)
		}
		return "", fmt.Errorf("yt-dlp exec: %w", err)
	}
	return string(out), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
